// Package clipboard shells out to the display server's clipboard utility to
// pull image data into the conversation pipeline.
package clipboard

import (
	"encoding/base64"
	"os/exec"
	"strings"

	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/errors"
)

// DetectCommand picks the clipboard extraction command for the running
// display server by inspecting the process table, the same heuristic the
// desktop session itself leaves behind (Xorg vs wayland compositor).
func DetectCommand(cfg *config.Config) string {
	out, err := exec.Command("ps", "-A").Output()
	if err != nil {
		return cfg.ClipboardCommandUnsupported
	}
	procs := strings.ToLower(string(out))
	switch {
	case strings.Contains(procs, "wayland"):
		return cfg.ClipboardCommandWayland
	case strings.Contains(procs, "xorg"):
		return cfg.ClipboardCommandXorg
	default:
		return cfg.ClipboardCommandUnsupported
	}
}

// CaptureImage runs the extraction command and returns the clipboard
// contents as a base64 PNG data URL suitable for a vision-capable model.
func CaptureImage(cfg *config.Config) (string, error) {
	command := DetectCommand(cfg)
	if command == cfg.ClipboardCommandUnsupported {
		return "", errors.Mark(errors.KindConfig,
			errors.New("unsupported OS/DE combination for clipboard images; only Xorg and Wayland are supported"))
	}

	out, err := exec.Command("sh", "-c", command).Output()
	if err != nil {
		return "", errors.Mark(errors.KindTool, errors.Wrapf(err, "clipboard command '%s' failed", command))
	}
	if len(out) == 0 {
		return "", errors.Mark(errors.KindTool,
			errors.New("clipboard returned no data; ensure an image is on the clipboard (command: %s)", command))
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(out), nil
}
