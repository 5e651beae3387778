package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calchat/internal/llm"
	"github.com/teemow/calchat/internal/tools/common"
)

// Registry keeps a set of MCP tools by name.
type Registry struct {
	tools map[string]mcpserver.ServerTool
	order []string
}

// NewRegistry creates a Registry holding tools. Later tools replace earlier
// ones with the same name.
func NewRegistry(tools ...mcpserver.ServerTool) *Registry {
	r := &Registry{tools: make(map[string]mcpserver.ServerTool, len(tools))}
	for _, t := range tools {
		r.Add(t)
	}
	return r
}

// Add registers a tool.
func (r *Registry) Add(tool mcpserver.ServerTool) {
	name := tool.Tool.Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// SortedNames returns the tool names alphabetically.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

// Get returns the named tool.
func (r *Registry) Get(name string) (mcpserver.ServerTool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Register adds every tool to an MCP server.
func (r *Registry) Register(s *mcpserver.MCPServer) error {
	if s == nil {
		return errors.New("mcp server is nil")
	}
	for _, name := range r.order {
		s.AddTools(r.tools[name])
	}
	return nil
}

// Definitions describes the tools for a language model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name].Tool
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  inputSchema(t),
		})
	}
	return defs
}

func inputSchema(t mcp.Tool) map[string]any {
	if len(t.RawInputSchema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(t.RawInputSchema, &schema); err == nil {
			return schema
		}
	}

	properties := t.InputSchema.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(t.InputSchema.Required) > 0 {
		schema["required"] = t.InputSchema.Required
	}
	return schema
}

// Invoke runs a tool with string arguments and returns its text output. The
// error is set when the tool is unknown or the handler itself fails; tool
// level failures come back as text with isError set.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (text string, isError bool, err error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", false, fmt.Errorf("unknown tool %q", name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(ctx, req)
	if err != nil {
		return "", true, err
	}
	if result == nil {
		return "", false, nil
	}
	return resultText(result), result.IsError, nil
}

// Call dispatches an agent tool call. Failures of any kind are returned as
// error results so the model can react to them.
func (r *Registry) Call(ctx context.Context, call llm.ToolCall) llm.ToolResult {
	result := llm.ToolResult{ToolCallID: call.ID, Name: call.Name}

	if raw, invalid := call.InvalidArguments(); invalid {
		result.Content = fmt.Sprintf("Error: could not parse arguments for %s: %s", call.Name, raw)
		result.IsError = true
		return result
	}

	text, isError, err := r.Invoke(common.ContextWithOrigin(ctx, common.OriginChat), call.Name, call.Arguments)
	if err != nil {
		result.Content = "Error: " + err.Error()
		result.IsError = true
		return result
	}

	result.Content = text
	result.IsError = isError
	return result
}

func resultText(result *mcp.CallToolResult) string {
	parts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}
