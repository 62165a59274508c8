package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/prodassist/prodassist/plugin/tools"
)

// Client reaches the stdio tool server as a child process and satisfies the
// orchestrator's tool boundary.
type Client struct {
	c *client.Client
}

// NewStdioClient spawns command (typically this binary's mcp-server
// subcommand) and performs the MCP handshake.
func NewStdioClient(ctx context.Context, command string, args ...string) (*Client, error) {
	c, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, errors.Wrap(err, "spawn tool server")
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "prodassist", Version: "1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "initialize tool server")
	}
	return &Client{c: c}, nil
}

// Retrieve calls the product lookup tool.
func (cl *Client) Retrieve(ctx context.Context, query string) (string, error) {
	return cl.call(ctx, tools.ToolProductInfo, query)
}

// Search calls the web search tool.
func (cl *Client) Search(ctx context.Context, query string) (string, error) {
	return cl.call(ctx, tools.ToolWebSearch, query)
}

// Close shuts down the child tool server.
func (cl *Client) Close() error {
	return cl.c.Close()
}

func (cl *Client) call(ctx context.Context, name, query string) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = map[string]any{"query": query}

	res, err := cl.c.CallTool(ctx, req)
	if err != nil {
		return "", errors.Wrapf(err, "call %s", name)
	}
	for _, content := range res.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			return text.Text, nil
		}
	}
	if res.IsError {
		return "", errors.Errorf("tool %s failed without detail", name)
	}
	return "", errors.Errorf("tool %s returned no text content", name)
}
