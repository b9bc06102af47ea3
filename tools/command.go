package tools

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/m4xw311/ask/errors"
)

// RunShellCommandTool executes a command string in the user's shell. When
// the allowlist is empty every command is permitted; approval then falls to
// the agent loop's confirmation callback.
type RunShellCommandTool struct {
	allowedCommands []string
}

func (t *RunShellCommandTool) Name() string { return "run_shell_command" }

func (t *RunShellCommandTool) Description() string {
	desc := "Execute a shell command on the system. Captures combined stdout/stderr and reports the exit status."
	if len(t.allowedCommands) > 0 {
		desc += "\nAllowed command patterns:"
		for _, cmd := range t.allowedCommands {
			desc += fmt.Sprintf("\n- %s", cmd)
		}
	}
	return desc
}

func (t *RunShellCommandTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to execute",
			},
		},
		"required": []string{"command"},
	}
}

func (t *RunShellCommandTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return "", errors.New("missing or invalid 'command' argument")
	}

	if len(t.allowedCommands) > 0 && !isCommandAllowed(command, t.allowedCommands) {
		return "", errors.New("command '%s' is not in the list of allowed commands", command)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	output, err := cmd.CombinedOutput()

	result := string(output)
	if result == "" {
		result = "(command produced no output)"
	}
	if err != nil {
		if _, isExit := err.(*exec.ExitError); isExit {
			// Non-zero exit is conversational information, not a failure of
			// the tool machinery itself.
			return fmt.Sprintf("%s\nCommand failed: %v", result, err), nil
		}
		return "", errors.Wrapf(err, "failed to execute command")
	}
	return result, nil
}
