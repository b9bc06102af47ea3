package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, cfg *config.Config) *Registry {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	r, err := NewRegistry(cfg)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestUnknownToolIsRecoverable(t *testing.T) {
	r := newTestRegistry(t, nil)
	res := r.Execute(context.Background(), session.ToolCall{ID: "call_1", Name: "nope"})
	assert.False(t, res.Success)
	assert.Equal(t, "call_1", res.ToolCallID)
	assert.Contains(t, res.Output, "unknown tool")
}

func TestRunShellCommand(t *testing.T) {
	r := newTestRegistry(t, nil)
	res := r.Execute(context.Background(), session.ToolCall{
		ID:   "call_2",
		Name: "run_shell_command",
		Args: map[string]interface{}{"command": "echo hello"},
	})
	assert.True(t, res.Success)
	assert.Contains(t, res.Output, "hello")
}

func TestRunShellCommandNonZeroExit(t *testing.T) {
	tool := &RunShellCommandTool{}
	out, err := tool.Execute(context.Background(), map[string]interface{}{"command": "exit 3"})
	require.NoError(t, err, "a failing command is conversational output, not a tool error")
	assert.Contains(t, out, "Command failed")
}

func TestRunShellCommandAllowlist(t *testing.T) {
	tool := &RunShellCommandTool{allowedCommands: []string{`^echo\b`}}

	_, err := tool.Execute(context.Background(), map[string]interface{}{"command": "echo ok"})
	assert.NoError(t, err)

	_, err = tool.Execute(context.Background(), map[string]interface{}{"command": "rm -rf /"})
	assert.Error(t, err)
}

func TestToolTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.ToolTimeoutSeconds = 1
	r := newTestRegistry(t, cfg)

	res := r.Execute(context.Background(), session.ToolCall{
		ID:   "call_3",
		Name: "run_shell_command",
		Args: map[string]interface{}{"command": "sleep 10"},
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "timed out")
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0o644))

	tool := &ReadFileTool{fsAccess: &config.FilesystemAccess{}}
	out, err := tool.Execute(context.Background(), map[string]interface{}{"path": path})
	require.NoError(t, err)
	assert.Equal(t, "contents", out)
}

func TestReadFileHiddenPathDenied(t *testing.T) {
	tool := &ReadFileTool{fsAccess: &config.FilesystemAccess{
		Hidden: []string{"**/secrets/**"},
	}}
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "/home/user/secrets/key.pem",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestWriteFileReadOnlyDenied(t *testing.T) {
	dir := t.TempDir()
	tool := &WriteFileTool{fsAccess: &config.FilesystemAccess{
		ReadOnly: []string{filepath.Join(dir, "locked", "**")},
	}}
	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":    filepath.Join(dir, "locked", "file.txt"),
		"content": "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.txt")
	fs := &config.FilesystemAccess{}

	w := &WriteFileTool{fsAccess: fs}
	out, err := w.Execute(context.Background(), map[string]interface{}{"path": path, "content": "data"})
	require.NoError(t, err)
	assert.Contains(t, out, "4 bytes")

	rd := &ReadFileTool{fsAccess: fs}
	got, err := rd.Execute(context.Background(), map[string]interface{}{"path": path})
	require.NoError(t, err)
	assert.Equal(t, "data", got)
}

func TestSearchFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "util.go"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), nil, 0o644))

	tool := &SearchFilesTool{fsAccess: &config.FilesystemAccess{}}
	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":    dir,
		"pattern": "*.go",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "util.go")
	assert.NotContains(t, out, "README.md")
}

func TestSearchFilesNoMatches(t *testing.T) {
	tool := &SearchFilesTool{fsAccess: &config.FilesystemAccess{}}
	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"path":    t.TempDir(),
		"pattern": "*.xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "No files found matching the criteria.", out)
}

func TestSpillLargeOutput(t *testing.T) {
	big := strings.Repeat("x", largeOutputThreshold+1)
	out := spillLargeOutput("run_shell_command", big)
	assert.Contains(t, out, "Output too large")
	assert.Contains(t, out, "read_file")

	small := "small output"
	assert.Equal(t, small, spillLargeOutput("run_shell_command", small))
}

func TestRegistryToolsSorted(t *testing.T) {
	r := newTestRegistry(t, nil)
	ts := r.Tools()
	require.NotEmpty(t, ts)
	for i := 1; i < len(ts); i++ {
		assert.Less(t, ts[i-1].Name(), ts[i].Name())
	}
}
