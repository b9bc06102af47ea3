package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/logging"
	"github.com/m4xw311/ask/session"
	"github.com/m4xw311/ask/tools/mcp"
)

// Tool defines the interface for any local capability the model can invoke.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns a JSON-schema object describing the arguments,
	// advertised to the provider alongside the conversation.
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Result is the outcome of one tool invocation. Failures are results, not
// errors: the agent loop feeds them back into the conversation so the model
// can react.
type Result struct {
	ToolCallID string
	Output     string
	Success    bool
}

// Outputs larger than this are written to a temp file and replaced by a
// pointer message instructing the model to read the file in chunks.
const largeOutputThreshold = 32 * 1024

const defaultTimeout = 30 * time.Second

// Registry holds all available tools and executes tool calls against them.
type Registry struct {
	tools      map[string]Tool
	timeout    time.Duration
	mcpClients []*mcp.Client
}

// NewRegistry builds a registry with the built-in tools plus any tools
// discovered from configured MCP servers.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	timeout := defaultTimeout
	if cfg.ToolTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.ToolTimeoutSeconds) * time.Second
	}
	r := &Registry{tools: make(map[string]Tool), timeout: timeout}

	r.Register(&RunShellCommandTool{allowedCommands: cfg.AllowedCommands})
	r.Register(&ReadFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&WriteFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&SearchFilesTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(NewWebFetchTool())
	r.Register(NewWebSearchTool())
	r.Register(&ClipboardImageTool{cfg: cfg})

	for _, server := range cfg.MCPServers {
		client, err := mcp.NewClient(server.Name, server.Command, server.Args)
		if err != nil {
			return nil, err
		}
		r.mcpClients = append(r.mcpClients, client)
		for _, t := range client.Tools() {
			r.Register(t)
		}
	}

	return r, nil
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Tools returns every registered tool in stable name order, for
// advertisement in encoded requests.
func (r *Registry) Tools() []Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Execute runs one tool call synchronously, bounded by the per-invocation
// timeout. Unknown tool names and execution failures come back as failed
// Results so the conversation can continue.
func (r *Registry) Execute(ctx context.Context, call session.ToolCall) Result {
	t, ok := r.tools[call.Name]
	if !ok {
		return Result{ToolCallID: call.ID, Output: "unknown tool: " + call.Name, Success: false}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	output, err := t.Execute(ctx, call.Args)
	logging.Debug().
		Str("tool", call.Name).
		Dur("elapsed", time.Since(start)).
		Bool("ok", err == nil).
		Msg("tool executed")

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Result{ToolCallID: call.ID, Output: fmt.Sprintf("Error: tool '%s' timed out after %s", call.Name, r.timeout), Success: false}
		}
		return Result{ToolCallID: call.ID, Output: "Error: " + err.Error(), Success: false}
	}
	return Result{ToolCallID: call.ID, Output: spillLargeOutput(call.Name, output), Success: true}
}

// Close stops any MCP server subprocesses.
func (r *Registry) Close() {
	for _, c := range r.mcpClients {
		if err := c.Stop(); err != nil {
			logging.Warn().Err(err).Str("server", c.Name).Msg("failed to stop MCP server")
		}
	}
}

// spillLargeOutput writes oversized tool output to a temp file and returns
// a pointer message with a short preview, so a single runaway command does
// not flood the context window.
func spillLargeOutput(toolName, output string) string {
	if len(output) <= largeOutputThreshold {
		return output
	}

	tmp := filepath.Join(os.TempDir(), fmt.Sprintf("tool_output_%s_%d.txt", toolName, time.Now().UnixMilli()))
	if err := os.WriteFile(tmp, []byte(output), 0o644); err != nil {
		logging.Warn().Err(err).Msg("could not write large tool output to temp file")
		return fmt.Sprintf("[Output truncated due to size (%d bytes)]\n\n%s", len(output), output[:largeOutputThreshold])
	}

	lines := strings.Count(output, "\n") + 1
	return fmt.Sprintf(
		"Output too large (%d bytes, %d lines). Written to temp file: %s\n\n"+
			"To read the contents, use the read_file tool with this path.\n"+
			"Preview (first 2k chars):\n%s\n[...]",
		len(output), lines, tmp, output[:2000])
}

// isPathRestricted checks if a path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// isCommandAllowed checks a command against the allowlist. Patterns are
// regular expressions; an invalid pattern falls back to exact comparison.
func isCommandAllowed(command string, allowed []string) bool {
	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logging.Warn().Str("pattern", pattern).Err(err).Msg("invalid regex in allowed_commands")
			if command == pattern {
				return true
			}
			continue
		}
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
