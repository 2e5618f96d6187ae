// Package mcpserver exposes the AgentEngine template catalog and canvas
// engine over the Model Context Protocol, so AI agents can browse
// templates, instantiate server configurations, and edit the canvas.
package mcpserver

import (
	"encoding/json"
	"fmt"

	engine "github.com/asmbli/agentengine"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for AgentEngine.
type Server struct {
	mcp       *server.MCPServer
	templates *engine.TemplateManager
	canvas    engine.CanvasEngine
}

// Deps holds the dependencies injected from the host application.
type Deps struct {
	Templates *engine.TemplateManager
	Canvas    engine.CanvasEngine
}

// New creates and configures a new MCP server with all tools registered.
func New(deps Deps) *Server {
	s := &Server{
		templates: deps.Templates,
		canvas:    deps.Canvas,
	}

	s.mcp = server.NewMCPServer(
		"agentengine-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTemplateTools()
	s.registerCanvasTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func getString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
