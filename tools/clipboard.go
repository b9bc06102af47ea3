package tools

import (
	"context"

	"github.com/m4xw311/ask/clipboard"
	"github.com/m4xw311/ask/config"
)

// ClipboardImageTool lets the model pull an image the user has copied,
// without the user re-running the CLI with the image flag.
type ClipboardImageTool struct {
	cfg *config.Config
}

func (t *ClipboardImageTool) Name() string { return "read_clipboard_image" }
func (t *ClipboardImageTool) Description() string {
	return "Fetch the image currently on the user's clipboard as a base64 data URL."
}

func (t *ClipboardImageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *ClipboardImageTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	return clipboard.CaptureImage(t.cfg)
}
