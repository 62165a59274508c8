// Package mcp exposes the assistant's retrieval tools over the Model Context
// Protocol so the orchestrator can reach them through stdio framing instead
// of in-process calls. The server and the in-process invoker share the same
// tool implementations.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tmc/langchaingo/tools"
)

// ServerName identifies the tool server to MCP clients.
const ServerName = "hybrid-search"

// NewServer assembles the stdio tool server with the two retrieval tools.
func NewServer(product, web tools.Tool, version string) *server.MCPServer {
	s := server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false))
	for _, t := range []tools.Tool{product, web} {
		s.AddTool(
			mcp.NewTool(t.Name(),
				mcp.WithDescription(t.Description()),
				mcp.WithString("query", mcp.Required(), mcp.Description("Plain-text query")),
			),
			toolHandler(t),
		)
	}
	return s
}

// ServeStdio blocks, serving the tool server over stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func toolHandler(t tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, err := t.Call(ctx, query)
		if err != nil {
			// tools normally fold failures into their text output; this
			// catches implementations that do not
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}
