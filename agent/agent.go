package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/llm"
	"github.com/m4xw311/ask/logging"
	"github.com/m4xw311/ask/session"
	"github.com/m4xw311/ask/tools"
)

// Mode selects how a decoded tool call is handled. In plain mode tools are
// never advertised to the model and never executed; in agent mode the loop
// executes them and feeds the results back.
type Mode string

const (
	ModePlain Mode = "plain"
	ModeAgent Mode = "agent"
)

// ToolVerbosity controls how much tool activity the UI callbacks report.
type ToolVerbosity string

const (
	ToolVerbosityNone ToolVerbosity = "none"
	ToolVerbosityInfo ToolVerbosity = "info"
	ToolVerbosityAll  ToolVerbosity = "all"
)

// ProcessCallbacks let the caller own presentation and approval decisions
// while the loop owns state. Nil members are skipped; a nil
// ShouldExecuteTool approves everything.
type ProcessCallbacks struct {
	OnAssistantMessage func(message string)
	OnToolCall         func(toolCall session.ToolCall)
	OnToolResult       func(toolCall session.ToolCall, result tools.Result)
	ShouldExecuteTool  func(toolCall session.ToolCall) bool
	OnWarning          func(warning string)
}

func (cb ProcessCallbacks) warn(format string, args ...interface{}) {
	if cb.OnWarning != nil {
		cb.OnWarning(fmt.Sprintf(format, args...))
	}
}

// Agent drives one session through request/response exchanges against a
// single provider client.
type Agent struct {
	Config    *config.Config
	Session   *session.Session
	Store     *session.Store
	LLMClient llm.Client
	Registry  *tools.Registry
	Mode      Mode
	Verbosity ToolVerbosity

	// MaxIterations bounds the completion cycles of a single exchange.
	// Zero means unbounded, which is the default behavior.
	MaxIterations int
}

func New(cfg *config.Config, sess *session.Session, store *session.Store, client llm.Client, registry *tools.Registry, mode Mode) *Agent {
	return &Agent{
		Config:        cfg,
		Session:       sess,
		Store:         store,
		LLMClient:     client,
		Registry:      registry,
		Mode:          mode,
		Verbosity:     ToolVerbosityInfo,
		MaxIterations: cfg.MaxIterations,
	}
}

// ProcessUserInput runs one full exchange: the user turn, then completion
// cycles until the model stops requesting tools. The session is persisted
// only once the exchange is complete; a transport or decode failure rolls
// the in-memory history back so it matches what is on disk.
func (a *Agent) ProcessUserInput(ctx context.Context, input string, callbacks ProcessCallbacks) error {
	return a.processExchange(ctx, session.Message{Role: session.RoleUser, Content: input}, callbacks)
}

// ProcessUserInputWithImage is ProcessUserInput with an image attachment
// (a data URL, typically from the clipboard).
func (a *Agent) ProcessUserInputWithImage(ctx context.Context, input, imageURL string, callbacks ProcessCallbacks) error {
	return a.processExchange(ctx, session.Message{
		Role:     session.RoleUser,
		Content:  input,
		ImageURL: imageURL,
	}, callbacks)
}

func (a *Agent) processExchange(ctx context.Context, userMsg session.Message, callbacks ProcessCallbacks) error {
	checkpoint := len(a.Session.Messages)
	a.Session.Append(userMsg)

	var advertised []tools.Tool
	if a.Mode == ModeAgent && a.Registry != nil {
		advertised = a.Registry.Tools()
	}

	for iteration := 1; ; iteration++ {
		assistant, err := a.LLMClient.Chat(ctx, a.Session.Messages, advertised)
		if err != nil {
			// The partial exchange is discarded, never half-saved.
			a.Session.Truncate(checkpoint)
			return err
		}

		a.Session.Append(*assistant)
		if assistant.Content != "" && callbacks.OnAssistantMessage != nil {
			callbacks.OnAssistantMessage(assistant.Content)
		}

		if len(assistant.ToolCalls) == 0 {
			return a.save()
		}

		if a.Mode != ModeAgent {
			// Surface the request without acting on it.
			if callbacks.OnAssistantMessage != nil {
				callbacks.OnAssistantMessage(formatToolCalls(assistant.ToolCalls))
			}
			return a.save()
		}

		for _, call := range assistant.ToolCalls {
			a.Session.Append(a.executeToolCall(ctx, call, callbacks))
		}

		if a.MaxIterations > 0 && iteration >= a.MaxIterations {
			callbacks.warn("stopping after %d completion cycles; the conversation so far is saved", iteration)
			logging.Warn().Int("iterations", iteration).Msg("iteration cap reached")
			return a.save()
		}
	}
}

// executeToolCall runs one call through the registry and reports the
// outcome as a tool message. Denials and failures stay inside the
// conversation so the model can react to them.
func (a *Agent) executeToolCall(ctx context.Context, call session.ToolCall, callbacks ProcessCallbacks) session.Message {
	if callbacks.OnToolCall != nil {
		callbacks.OnToolCall(call)
	}

	if callbacks.ShouldExecuteTool != nil && !callbacks.ShouldExecuteTool(call) {
		return session.Message{
			Role:       session.RoleTool,
			ToolCallID: call.ID,
			Content:    "The user declined to run this tool.",
			ToolError:  true,
		}
	}

	result := a.Registry.Execute(ctx, call)
	if callbacks.OnToolResult != nil {
		callbacks.OnToolResult(call, result)
	}
	return session.Message{
		Role:       session.RoleTool,
		ToolCallID: result.ToolCallID,
		Content:    result.Output,
		ToolError:  !result.Success,
	}
}

func (a *Agent) save() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Save(a.Session)
}

func formatToolCalls(calls []session.ToolCall) string {
	var b strings.Builder
	b.WriteString("Requested tool calls (not executed):")
	for _, call := range calls {
		fmt.Fprintf(&b, "\n  %s(%v)", call.Name, call.Args)
	}
	return b.String()
}
