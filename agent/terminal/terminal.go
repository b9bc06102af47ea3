package terminal

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m4xw311/ask/agent"
	"github.com/m4xw311/ask/session"
	"github.com/m4xw311/ask/tools"
)

var (
	promptColor    = color.New(color.FgGreen, color.Bold)
	assistantColor = color.New(color.FgCyan)
	toolColor      = color.New(color.FgYellow)
	warnColor      = color.New(color.FgRed)
)

// Terminal handles the interactive terminal mode for the agent.
type Terminal struct {
	agent   *agent.Agent
	confirm bool
	reader  *bufio.Reader
}

// New creates a Terminal. When confirm is set, every tool execution asks
// the user first; a refusal is fed back into the conversation.
func New(a *agent.Agent, confirm bool) *Terminal {
	return &Terminal{
		agent:   a,
		confirm: confirm,
		reader:  bufio.NewReader(os.Stdin),
	}
}

// Run starts the interactive session. An initial prompt from the command
// line is processed before reading from stdin.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	if initialPrompt != "" {
		if err := t.processTurn(ctx, initialPrompt); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("You: ")
		if !scanner.Scan() {
			// EOF ends the session
			break
		}

		userInput := strings.TrimSpace(scanner.Text())
		if userInput == "" {
			continue
		}
		if userInput == "/quit" || userInput == "/exit" {
			break
		}

		if err := t.processTurn(ctx, userInput); err != nil {
			warnColor.Printf("Error: %v\n", err)
		}
	}
	return scanner.Err()
}

// Once processes a single turn and returns, for non-interactive
// invocations where the input arrived via arguments or a pipe.
func (t *Terminal) Once(ctx context.Context, input, imageURL string) error {
	if imageURL != "" {
		return t.agent.ProcessUserInputWithImage(ctx, input, imageURL, t.callbacks())
	}
	return t.agent.ProcessUserInput(ctx, input, t.callbacks())
}

func (t *Terminal) processTurn(ctx context.Context, userInput string) error {
	return t.agent.ProcessUserInput(ctx, userInput, t.callbacks())
}

func (t *Terminal) callbacks() agent.ProcessCallbacks {
	return agent.ProcessCallbacks{
		OnAssistantMessage: func(message string) {
			assistantColor.Println(message)
		},
		OnToolCall: func(toolCall session.ToolCall) {
			switch t.agent.Verbosity {
			case agent.ToolVerbosityAll:
				toolColor.Printf("[tool] %s %v\n", toolCall.Name, toolCall.Args)
			case agent.ToolVerbosityInfo:
				toolColor.Printf("[tool] %s\n", toolCall.Name)
			}
		},
		OnToolResult: func(toolCall session.ToolCall, result tools.Result) {
			if t.agent.Verbosity == agent.ToolVerbosityAll {
				toolColor.Printf("[tool] %s -> %s\n", toolCall.Name, result.Output)
			}
		},
		ShouldExecuteTool: func(toolCall session.ToolCall) bool {
			if !t.confirm {
				return true
			}
			toolColor.Printf("Run tool `%s` with args %v? (y/n): ", toolCall.Name, toolCall.Args)
			answer, err := t.reader.ReadString('\n')
			if err != nil {
				return false
			}
			return strings.TrimSpace(strings.ToLower(answer)) == "y"
		},
		OnWarning: func(warning string) {
			warnColor.Printf("Warning: %s\n", warning)
		},
	}
}

// RenderTranscript formats a session for human reading, one block per
// message, the way the pager view shows it.
func RenderTranscript(sess *session.Session) string {
	var b strings.Builder
	for _, msg := range sess.Messages {
		switch msg.Role {
		case session.RoleUser:
			b.WriteString("### You\n")
		case session.RoleAssistant:
			b.WriteString("### Assistant\n")
		case session.RoleSystem:
			b.WriteString("### System\n")
		case session.RoleTool:
			fmt.Fprintf(&b, "### Tool result (%s)\n", msg.ToolCallID)
		}
		if msg.Content != "" {
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		if msg.ImageURL != "" {
			b.WriteString("[image attachment]\n")
		}
		for _, tc := range msg.ToolCalls {
			fmt.Fprintf(&b, "-> %s(%v)\n", tc.Name, tc.Args)
		}
		b.WriteString("\n")
	}
	return b.String()
}
