// Package agent drives the conversation loop between a session, a
// provider client, and the tool registry.
//
// # Exchange model
//
// One call to ProcessUserInput is one exchange. The user turn is appended
// to the session, then the loop requests completions until the model
// answers with plain text:
//
//   - In plain mode no tools are advertised and none are ever executed.
//     If the model requests one anyway, the request is surfaced to the
//     caller as text and the exchange ends.
//   - In agent mode each requested tool call is executed sequentially
//     through the registry, its result is appended as a tool turn, and
//     the loop requests the next completion.
//
// The session is persisted only when an exchange completes. If the
// provider call fails mid-exchange, the in-memory history is rolled back
// to the last persisted state, so an interrupted run never leaves a
// half-saved conversation behind.
//
// Tool failures are not exchange failures: an unknown tool name, a
// non-zero exit, or a user refusal comes back to the model as a failed
// tool result so it can adapt.
//
// # Callbacks
//
// Presentation and approval stay with the caller through
// ProcessCallbacks:
//
//	callbacks := agent.ProcessCallbacks{
//	    OnAssistantMessage: func(message string) { fmt.Println(message) },
//	    ShouldExecuteTool:  func(tc session.ToolCall) bool { return confirm(tc) },
//	}
//	err := a.ProcessUserInput(ctx, input, callbacks)
//
// The terminal subpackage (agent/terminal) implements the interactive
// CLI on top of these callbacks.
package agent
