package llm

import (
	"context"
	"encoding/json"

	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/errors"
	"github.com/m4xw311/ask/logging"
	"github.com/m4xw311/ask/session"
	"github.com/m4xw311/ask/tools"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient speaks the OpenAI Chat Completion schema. It covers every
// OpenAI-compatible host; the base URL is built from the provider's
// host/endpoint config.
type OpenAIClient struct {
	client       *openai.Client
	model        string
	maxTokens    int
	temperature  float64
	visionDetail string
}

// NewOpenAIClient resolves the API key from the environment variable named
// by the provider entry.
func NewOpenAIClient(cfg *config.Config, provider *config.Provider) (*OpenAIClient, error) {
	apiKey, err := provider.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	c := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(provider.BaseURL()),
	)
	return &OpenAIClient{
		client:       &c,
		model:        provider.Model,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		visionDetail: cfg.VisionDetail,
	}, nil
}

// Chat sends the full history and advertised tools, returning the decoded
// assistant message.
func (o *OpenAIClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: encodeOpenAIMessages(messages, o.visionDetail),
		Tools:    encodeOpenAITools(availableTools),
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}
	params.Temperature = openai.Float(o.temperature)

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Mark(errors.KindTransport, errors.Wrapf(err, "chat request failed"))
	}
	return decodeOpenAIResponse(resp)
}

// encodeOpenAIMessages converts the internal history to OpenAI's message
// union, preserving tool-call linkage.
func encodeOpenAIMessages(messages []session.Message, visionDetail string) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case session.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case session.RoleAssistant:
			assistant := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				argsBytes, err := json.Marshal(tc.Args)
				if err != nil {
					logging.Warn().Str("tool", tc.Name).Err(err).Msg("could not marshal tool call arguments; dropping call from history")
					continue
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsBytes),
					},
				})
			}
			out = append(out, assistant.ToParam())
		case session.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			if msg.ImageURL != "" {
				out = append(out, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(msg.Content),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL:    msg.ImageURL,
						Detail: visionDetail,
					}),
				}))
			} else {
				out = append(out, openai.UserMessage(msg.Content))
			}
		}
	}
	return out
}

// encodeOpenAITools advertises each tool with its real parameter schema.
func encodeOpenAITools(ts []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range ts {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  openai.FunctionParameters(t.Parameters()),
		}))
	}
	return out
}

// decodeOpenAIResponse converts a completion into the internal message
// shape: plain assistant text, or text plus tool calls.
func decodeOpenAIResponse(resp *openai.ChatCompletion) (*session.Message, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.Mark(errors.KindAdapter, errors.New("malformed response: no choices"))
	}

	choice := resp.Choices[0].Message
	msg := &session.Message{Role: session.RoleAssistant, Content: choice.Content}

	for _, tc := range choice.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, errors.Mark(errors.KindAdapter,
				errors.Wrapf(err, "malformed response: tool call arguments are not valid JSON"))
		}
		msg.ToolCalls = append(msg.ToolCalls, session.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return msg, nil
}
