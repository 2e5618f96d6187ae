package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	engine "github.com/asmbli/agentengine"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTemplateTools() {
	// ── list_templates ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List available MCP server templates, optionally filtered by category or difficulty"),
		mcp.WithString("category", mcp.Description("Filter by category (optional)")),
		mcp.WithString("difficulty", mcp.Description("Filter by difficulty: beginner, intermediate, advanced (optional)")),
	), s.handleListTemplates)

	// ── search_templates ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("search_templates",
		mcp.WithDescription("Search templates by name, description, tags, or category"),
		mcp.WithString("query", mcp.Description("Search text"), mcp.Required()),
	), s.handleSearchTemplates)

	// ── get_template ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_template",
		mcp.WithDescription("Get a template's full definition including its config fields"),
		mcp.WithString("templateId", mcp.Description("Template ID"), mcp.Required()),
	), s.handleGetTemplate)

	// ── validate_config ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("validate_config",
		mcp.WithDescription("Validate a configuration against a template's declared fields. Returns all errors and warnings at once."),
		mcp.WithString("templateId", mcp.Description("Template ID"), mcp.Required()),
		mcp.WithString("config", mcp.Description("Configuration as a JSON object"), mcp.Required()),
	), s.handleValidateConfig)

	// ── instantiate_template ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("instantiate_template",
		mcp.WithDescription("Instantiate a concrete server configuration from a template and validated config"),
		mcp.WithString("templateId", mcp.Description("Template ID"), mcp.Required()),
		mcp.WithString("config", mcp.Description("Configuration as a JSON object"), mcp.Required()),
		mcp.WithString("serverId", mcp.Description("Override the server id (optional)")),
	), s.handleInstantiateTemplate)

	// ── import_template ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("import_template",
		mcp.WithDescription("Import a template definition into the catalog"),
		mcp.WithString("template", mcp.Description("Template definition as JSON"), mcp.Required()),
	), s.handleImportTemplate)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	var list []*engine.ServerTemplate
	switch {
	case getString(args, "category") != "":
		list = s.templates.TemplatesByCategory(getString(args, "category"))
	case getString(args, "difficulty") != "":
		list = s.templates.TemplatesByDifficulty(getString(args, "difficulty"))
	default:
		list = s.templates.AllTemplates()
	}

	summaries := make([]map[string]any, len(list))
	for i, tpl := range list {
		summaries[i] = map[string]any{
			"id":          tpl.ID,
			"name":        tpl.Name,
			"description": tpl.Description,
			"category":    tpl.Category,
			"difficulty":  tpl.Difficulty,
		}
	}
	return jsonResult(summaries)
}

func (s *Server) handleSearchTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := getString(req.GetArguments(), "query")
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	return jsonResult(s.templates.SearchTemplates(query))
}

func (s *Server) handleGetTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := getString(req.GetArguments(), "templateId")
	tpl, ok := s.templates.Template(id)
	if !ok {
		return nil, fmt.Errorf("template %q not found", id)
	}
	return jsonResult(tpl)
}

func (s *Server) handleValidateConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	config, err := parseConfigArg(getString(args, "config"))
	if err != nil {
		return nil, err
	}
	return jsonResult(s.templates.ValidateConfig(getString(args, "templateId"), config))
}

func (s *Server) handleInstantiateTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	config, err := parseConfigArg(getString(args, "config"))
	if err != nil {
		return nil, err
	}

	instance, warnings, err := s.templates.Instantiate(
		getString(args, "templateId"), config, getString(args, "serverId"))

	var instErr *engine.InstantiationError
	if errors.As(err, &instErr) {
		return jsonResult(instErr.Result)
	}
	if err != nil {
		return nil, err
	}

	return jsonResult(map[string]any{
		"server":   instance,
		"warnings": warnings,
	})
}

func (s *Server) handleImportTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data := getString(req.GetArguments(), "template")

	tpl, err := s.templates.ImportTemplate([]byte(data), engine.ImportFormatJSON)
	if err != nil {
		return nil, fmt.Errorf("import template: %w", err)
	}
	return textResult(fmt.Sprintf("Template %s imported", tpl.ID)), nil
}

func parseConfigArg(raw string) (map[string]any, error) {
	config := map[string]any{}
	if raw == "" {
		return config, nil
	}
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return nil, fmt.Errorf("config must be a JSON object: %w", err)
	}
	return config, nil
}
