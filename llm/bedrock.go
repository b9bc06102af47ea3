package llm

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"
	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/errors"
	"github.com/m4xw311/ask/session"
	"github.com/m4xw311/ask/tools"
)

// BedrockClient invokes Anthropic models hosted on AWS Bedrock. It builds
// the Anthropic JSON body directly; authentication comes from the ambient
// AWS credential chain, not from an api_key_variable.
type BedrockClient struct {
	client    *bedrockruntime.Client
	modelID   string
	maxTokens int
}

func NewBedrockClient(ctx context.Context, cfg *config.Config, provider *config.Provider) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Mark(errors.KindConfig, errors.Wrapf(err, "failed to load AWS config"))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	return &BedrockClient{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   provider.Model,
		maxTokens: maxTokens,
	}, nil
}

func (b *BedrockClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	body, err := encodeBedrockRequest(messages, availableTools, b.maxTokens)
	if err != nil {
		return nil, errors.Mark(errors.KindAdapter, errors.Wrapf(err, "failed to build request body"))
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Mark(errors.KindTransport, errors.Wrapf(err, "failed to invoke Bedrock model"))
	}
	return decodeBedrockResponse(resp.Body)
}

// encodeBedrockRequest builds the Anthropic-on-Bedrock JSON body from the
// history and advertised tools.
func encodeBedrockRequest(messages []session.Message, availableTools []tools.Tool, maxTokens int) ([]byte, error) {
	var body []map[string]interface{}
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case session.RoleSystem:
			systemPrompt = msg.Content
		case session.RoleUser:
			body = append(body, map[string]interface{}{
				"role":    "user",
				"content": []map[string]interface{}{{"type": "text", "text": msg.Content}},
			})
		case session.RoleAssistant:
			var blocks []map[string]interface{}
			if msg.Content != "" {
				blocks = append(blocks, map[string]interface{}{"type": "text", "text": msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, map[string]interface{}{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Name,
					"input": tc.Args,
				})
			}
			if len(blocks) == 0 {
				continue
			}
			body = append(body, map[string]interface{}{"role": "assistant", "content": blocks})
		case session.RoleTool:
			body = append(body, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{{
					"type":        "tool_result",
					"tool_use_id": msg.ToolCallID,
					"is_error":    msg.ToolError,
					"content":     msg.Content,
				}},
			})
		}
	}

	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages":          body,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}
	if len(availableTools) > 0 {
		var declared []map[string]interface{}
		for _, t := range availableTools {
			declared = append(declared, map[string]interface{}{
				"name":         t.Name(),
				"description":  t.Description(),
				"input_schema": t.Parameters(),
			})
		}
		request["tools"] = declared
	}

	return json.Marshal(request)
}

// decodeBedrockResponse parses the Anthropic JSON body that Bedrock
// returns verbatim.
func decodeBedrockResponse(body []byte) (*session.Message, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Mark(errors.KindAdapter, errors.Wrapf(err, "malformed response body"))
	}
	if errMsg, ok := response["error"]; ok {
		return nil, errors.Mark(errors.KindTransport, errors.New("Bedrock API error: %v", errMsg))
	}

	content, ok := response["content"].([]interface{})
	if !ok {
		return nil, errors.Mark(errors.KindAdapter, errors.New("malformed response: missing content array"))
	}

	msg := &session.Message{Role: session.RoleAssistant}
	for _, item := range content {
		block, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		switch block["type"] {
		case "text":
			if text, ok := block["text"].(string); ok {
				msg.Content += text
			}
		case "tool_use":
			name, _ := block["name"].(string)
			input, _ := block["input"].(map[string]interface{})
			id, _ := block["id"].(string)
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			msg.ToolCalls = append(msg.ToolCalls, session.ToolCall{ID: id, Name: name, Args: input})
		}
	}
	return msg, nil
}
