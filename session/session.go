// Package session holds the conversation data model and its file-backed
// store. A session is an ordered, append-only message history addressed by
// an identifier derived from the invoking terminal (or an explicit name).
package session

import (
	"os"
	"strconv"

	"github.com/m4xw311/ask/errors"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model-initiated request to run a local capability. Args are
// provider-defined structured data, passed through to the tool unvalidated.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// Message is one turn in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// ImageURL carries an inline data URL when the user attached a
	// clipboard image to this turn.
	ImageURL string `json:"image_url,omitempty"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message back to the assistant tool call
	// it answers. ToolError marks the result as a failure the model should
	// react to.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolError  bool   `json:"tool_error,omitempty"`
}

// Session is an ordered message history with a stable identity.
type Session struct {
	ID       string    `json:"id"`
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	dirty bool
}

// New creates an empty session.
func New(id, model string) *Session {
	return &Session{ID: id, Model: model}
}

// Append adds messages to the history and marks the session dirty. This is
// the only mutation short of an explicit clear.
func (s *Session) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
	if len(msgs) > 0 {
		s.dirty = true
	}
}

// Truncate discards every message at or past n, rolling back an aborted
// exchange so the in-memory state matches what was last persisted.
func (s *Session) Truncate(n int) {
	if n < len(s.Messages) {
		s.Messages = s.Messages[:n]
	}
}

// Dirty reports whether the session has unpersisted changes.
func (s *Session) Dirty() bool { return s.dirty }

func (s *Session) markClean() { s.dirty = false }

// Last returns the most recent message, or nil for an empty session.
func (s *Session) Last() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// Validate checks the tool-result linkage invariant: every tool message
// must answer a tool call issued by an earlier assistant message. Sessions
// with orphaned tool results are rejected rather than silently repaired.
func (s *Session) Validate() error {
	seen := make(map[string]bool)
	for i, msg := range s.Messages {
		for _, tc := range msg.ToolCalls {
			if msg.Role == RoleAssistant {
				seen[tc.ID] = true
			}
		}
		if msg.Role == RoleTool {
			if msg.ToolCallID == "" {
				return errors.New("tool message at index %d has no tool_call_id", i)
			}
			if !seen[msg.ToolCallID] {
				return errors.New("tool message at index %d references unknown tool call '%s'", i, msg.ToolCallID)
			}
		}
	}
	return nil
}

// DefaultID derives the session identity from the parent process, giving
// one conversation per terminal without any central registry.
func DefaultID() string {
	return strconv.Itoa(os.Getppid())
}
