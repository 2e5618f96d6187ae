package mcpserver

import (
	"context"
	"fmt"
	"strings"

	engine "github.com/asmbli/agentengine"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerCanvasTools() {
	// ── get_canvas ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_canvas",
		mcp.WithDescription("Get the current canvas document state"),
	), s.handleGetCanvas)

	// ── add_element ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_element",
		mcp.WithDescription("Add an element to the canvas. The engine assigns the id."),
		mcp.WithNumber("x", mcp.Description("X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y position"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Height"), mcp.Required()),
		mcp.WithString("component", mcp.Description("Design system component name (optional)")),
		mcp.WithString("variant", mcp.Description("Component variant (optional)")),
		mcp.WithString("parent", mcp.Description("Parent element id (optional)")),
	), s.handleAddElement)

	// ── move_element ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_element",
		mcp.WithDescription("Move an element to a new position"),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
	), s.handleMoveElement)

	// ── delete_element (destructive) ───────────────────
	s.mcp.AddTool(mcp.NewTool("delete_element",
		mcp.WithDescription("Delete an element and all of its descendants"),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteElement)

	// ── align_elements ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("align_elements",
		mcp.WithDescription("Align elements to an edge of their bounding box"),
		mcp.WithString("elementIds", mcp.Description("Comma-separated element IDs"), mcp.Required()),
		mcp.WithString("edge",
			mcp.Description("Alignment edge: left, center, right, top, middle, bottom"),
			mcp.Required(),
		),
	), s.handleAlignElements)

	// ── distribute_elements ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("distribute_elements",
		mcp.WithDescription("Distribute elements evenly along an axis"),
		mcp.WithString("elementIds", mcp.Description("Comma-separated element IDs"), mcp.Required()),
		mcp.WithString("direction", mcp.Description("horizontal or vertical"), mcp.Required()),
	), s.handleDistributeElements)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last canvas mutation"),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo a previously undone canvas mutation"),
	), s.handleRedo)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleGetCanvas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.canvas.GetState())
}

func (s *Server) handleAddElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	el := s.canvas.AddElement(engine.ElementSpec{
		X:         getFloat(args, "x", 0),
		Y:         getFloat(args, "y", 0),
		Width:     getFloat(args, "width", 0),
		Height:    getFloat(args, "height", 0),
		Component: getString(args, "component"),
		Variant:   getString(args, "variant"),
		Parent:    getString(args, "parent"),
	})
	return jsonResult(el)
}

func (s *Server) handleMoveElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := getString(args, "elementId")

	x := getFloat(args, "x", 0)
	y := getFloat(args, "y", 0)
	if !s.canvas.UpdateElement(id, engine.ElementUpdate{X: &x, Y: &y}) {
		return nil, fmt.Errorf("element %q not found", id)
	}
	return textResult(fmt.Sprintf("Element %s moved", id)), nil
}

func (s *Server) handleDeleteElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := getString(req.GetArguments(), "elementId")

	if !s.canvas.DeleteElement(id) {
		return nil, fmt.Errorf("element %q not found", id)
	}
	return textResult(fmt.Sprintf("Element %s deleted", id)), nil
}

func (s *Server) handleAlignElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	ids := splitIDs(getString(args, "elementIds"))
	if len(ids) < 2 {
		return nil, fmt.Errorf("at least 2 element ids are required")
	}

	s.canvas.SelectElements(ids)
	s.canvas.AlignElementsBatched(engine.AlignEdge(getString(args, "edge")))
	return textResult(fmt.Sprintf("Aligned %d elements", len(ids))), nil
}

func (s *Server) handleDistributeElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	ids := splitIDs(getString(args, "elementIds"))
	if len(ids) < 3 {
		return nil, fmt.Errorf("at least 3 element ids are required")
	}

	s.canvas.SelectElements(ids)
	s.canvas.DistributeElementsBatched(engine.Direction(getString(args, "direction")))
	return textResult(fmt.Sprintf("Distributed %d elements", len(ids))), nil
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.canvas.Undo() {
		return textResult("Nothing to undo"), nil
	}
	return textResult("Undone"), nil
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.canvas.Redo() {
		return textResult("Nothing to redo"), nil
	}
	return textResult("Redone"), nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
