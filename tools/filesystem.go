package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/errors"
)

func pathSchema(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": desc,
	}
}

// ReadFileTool reads a file, honoring the configured hidden-path globs.
type ReadFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Read the contents of a file at the given path. Returns the file content as text."
}

func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": pathSchema("The path to the file to read"),
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'path' argument")
	}
	path = expandHome(path)

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}
	return string(content), nil
}

// WriteFileTool writes a file, honoring hidden and read-only globs.
type WriteFileTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Write content to a file at the given path. Creates the file if it doesn't exist, overwrites if it does."
}

func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":    pathSchema("The path to the file to write"),
			"content": pathSchema("The content to write to the file"),
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, pathOk := args["path"].(string)
	content, contentOk := args["content"].(string)
	if !pathOk || !contentOk {
		return "", errors.New("missing or invalid 'path' or 'content' arguments")
	}
	path = expandHome(path)

	hidden, err := isPathRestricted(path, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}
	readOnly, err := isPathRestricted(path, t.fsAccess.ReadOnly)
	if err != nil {
		return "", err
	}
	if readOnly {
		return "", errors.New("access denied: path '%s' is read-only", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "failed to create directories for '%s'", path)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write file '%s'", path)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to '%s'", len(content), path), nil
}

// SearchFilesTool finds files under a directory matching a glob pattern.
type SearchFilesTool struct {
	fsAccess *config.FilesystemAccess
}

func (t *SearchFilesTool) Name() string { return "search_files" }
func (t *SearchFilesTool) Description() string {
	return "Recursively search for files matching a glob pattern (e.g. '**/*.go') under a directory."
}

func (t *SearchFilesTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":    pathSchema("The directory to search in (defaults to the current directory)"),
			"pattern": pathSchema("Glob pattern to match files (e.g. '*.go' or '**/*.md')"),
		},
		"required": []string{},
	}
}

func (t *SearchFilesTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	root := "."
	if p, ok := args["path"].(string); ok && p != "" {
		root = expandHome(p)
	}
	pattern := "**/*"
	if p, ok := args["pattern"].(string); ok && p != "" {
		if !strings.Contains(p, "/") {
			// Bare filename patterns match at any depth.
			p = "**/" + p
		}
		pattern = p
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return "", errors.Wrapf(err, "search with pattern '%s' failed", pattern)
	}

	var out []string
	for _, m := range matches {
		if strings.HasPrefix(m, ".git/") || strings.Contains(m, "/.git/") {
			continue
		}
		full := filepath.Join(root, m)
		if hidden, err := isPathRestricted(full, t.fsAccess.Hidden); err == nil && hidden {
			continue
		}
		out = append(out, full)
	}

	if len(out) == 0 {
		return "No files found matching the criteria.", nil
	}
	return strings.Join(out, "\n"), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
