// Package llm adapts the abstract conversation model to each provider's
// wire schema. Every adapter translates the ordered message history plus
// the advertised tool schemas into the vendor's shape, and decodes the
// response back into a session.Message: either plain assistant text or a
// set of tool calls. Adding a provider never touches the agent loop.
package llm

import (
	"context"

	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/errors"
	"github.com/m4xw311/ask/session"
	"github.com/m4xw311/ask/tools"
)

// Client is the interface for one configured remote chat-completion
// service. Chat blocks for the full network round-trip; decode failures
// carry the adapter error kind, everything else from the wire carries the
// transport kind.
type Client interface {
	Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error)
}

// NewClient builds the adapter selected by the provider's client family.
func NewClient(ctx context.Context, cfg *config.Config, provider *config.Provider) (Client, error) {
	switch provider.Client {
	case config.ClientOpenAI:
		return NewOpenAIClient(cfg, provider)
	case config.ClientGemini:
		return NewGeminiClient(ctx, cfg, provider)
	case config.ClientAnthropic:
		return NewAnthropicClient(cfg, provider)
	case config.ClientBedrock:
		return NewBedrockClient(ctx, cfg, provider)
	default:
		return nil, errors.Mark(errors.KindConfig,
			errors.New("unknown provider client '%s' for provider '%s'", provider.Client, provider.Name))
	}
}

// ScriptedClient returns canned responses in order, recording what it was
// asked. Used by tests and available as the "mock" client family.
type ScriptedClient struct {
	Responses []*session.Message
	Errs      []error
	Calls     [][]session.Message
	Tools     [][]tools.Tool

	next int
}

func (c *ScriptedClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	snapshot := make([]session.Message, len(messages))
	copy(snapshot, messages)
	c.Calls = append(c.Calls, snapshot)
	c.Tools = append(c.Tools, availableTools)

	i := c.next
	c.next++
	if i < len(c.Errs) && c.Errs[i] != nil {
		return nil, c.Errs[i]
	}
	if i < len(c.Responses) {
		return c.Responses[i], nil
	}
	return nil, errors.Mark(errors.KindTransport, errors.New("scripted client exhausted after %d calls", i))
}
