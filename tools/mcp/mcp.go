// Package mcp connects the tool registry to external MCP servers: each
// configured server runs as a subprocess and the tools it advertises join
// the registry next to the built-ins.
package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"

	"github.com/m4xw311/ask/errors"
	"github.com/m4xw311/ask/logging"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client manages the connection to a single MCP server subprocess and the
// tools it advertises.
type Client struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools []*ServerTool
}

// NewClient starts the MCP server subprocess and discovers its tools.
func NewClient(name, command string, args []string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	ctx := context.Background()
	sdkClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "ask", Version: "v1.0.0"}, nil)
	conn, err := sdkClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Mark(errors.KindConfig, errors.Wrapf(err, "failed to connect to MCP server '%s'", name))
	}

	c := &Client{Name: name, cmd: cmd, conn: conn}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Mark(errors.KindConfig, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name))
		}
		for _, t := range list.Tools {
			c.tools = append(c.tools, &ServerTool{
				client:      c,
				name:        t.Name,
				description: t.Description,
				schema:      schemaToMap(t.InputSchema),
			})
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	logging.Debug().Str("server", name).Int("tools", len(c.tools)).Msg("MCP server initialized")
	return c, nil
}

// Tools returns the tools discovered on this server.
func (c *Client) Tools() []*ServerTool {
	return c.tools
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}

// ServerTool is one tool advertised by an MCP server. It satisfies the
// registry's Tool interface.
type ServerTool struct {
	client      *Client
	name        string
	description string
	schema      map[string]interface{}
}

func (t *ServerTool) Name() string        { return t.name }
func (t *ServerTool) Description() string { return t.description }

func (t *ServerTool) Parameters() map[string]interface{} {
	return t.schema
}

func (t *ServerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool '%s' on server '%s'", t.name, t.client.Name)
	}

	out := ""
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	return out, nil
}

// schemaToMap flattens the SDK's schema type into the plain map the
// provider adapters advertise. A server without a schema gets a permissive
// object schema.
func schemaToMap(schema any) map[string]interface{} {
	fallback := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
	if schema == nil {
		return fallback
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return fallback
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return fallback
	}
	return out
}
