package agent

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrUnknownTool is returned when the model requests a tool no connected MCP
// server advertises.
var ErrUnknownTool = fmt.Errorf("unknown tool")

// MCPClientInterface defines the methods the agent expects from an MCP client.
type MCPClientInterface interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Router dispatches tool calls to the MCP client that registered the tool.
type Router struct {
	byName map[string]MCPClientInterface
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{byName: make(map[string]MCPClientInterface)}
}

// Register maps a tool name to its client. Returns false when the name is
// already taken; first registration wins.
func (r *Router) Register(name string, c MCPClientInterface) bool {
	if _, exists := r.byName[name]; exists {
		return false
	}
	r.byName[name] = c
	return true
}

// Lookup resolves a tool name to its client.
func (r *Router) Lookup(name string) (MCPClientInterface, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return c, nil
}

// Len reports how many tools are registered.
func (r *Router) Len() int {
	return len(r.byName)
}
