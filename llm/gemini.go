package llm

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/m4xw311/ask/config"
	"github.com/m4xw311/ask/errors"
	"github.com/m4xw311/ask/session"
	"github.com/m4xw311/ask/tools"
	"google.golang.org/api/option"
)

// GeminiClient speaks the Google Gemini schema via the genai SDK.
type GeminiClient struct {
	model *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, cfg *config.Config, provider *config.Provider) (*GeminiClient, error) {
	apiKey, err := provider.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Mark(errors.KindConfig, errors.Wrapf(err, "failed to create genai client"))
	}

	model := client.GenerativeModel(provider.Model)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}
	model.SetTemperature(float32(cfg.Temperature))

	return &GeminiClient{model: model}, nil
}

func (g *GeminiClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	history := encodeGeminiContents(messages)
	if len(history) == 0 {
		return nil, errors.Mark(errors.KindAdapter, errors.New("cannot send an empty conversation"))
	}

	g.model.Tools = encodeGeminiTools(availableTools)

	last := history[len(history)-1]
	chat := g.model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, errors.Mark(errors.KindTransport, errors.Wrapf(err, "chat request failed"))
	}
	return decodeGeminiResponse(resp)
}

// encodeGeminiContents converts the history to Gemini content. Gemini has
// no system role (system turns become user turns), correlates tool results
// by function name rather than call id, and takes inline images as blobs.
func encodeGeminiContents(messages []session.Message) []*genai.Content {
	callNames := make(map[string]string)
	var out []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case session.RoleAssistant:
			var parts []genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				callNames[tc.ID] = tc.Name
				parts = append(parts, genai.FunctionCall{Name: tc.Name, Args: tc.Args})
			}
			out = append(out, &genai.Content{Role: "model", Parts: parts})
		case session.RoleTool:
			out = append(out, &genai.Content{
				Role: "user",
				Parts: []genai.Part{genai.FunctionResponse{
					Name:     callNames[msg.ToolCallID],
					Response: map[string]interface{}{"content": msg.Content},
				}},
			})
		default: // system and user turns
			parts := []genai.Part{genai.Text(msg.Content)}
			if msg.ImageURL != "" {
				if blob, ok := dataURLToBlob(msg.ImageURL); ok {
					parts = append(parts, blob)
				}
			}
			out = append(out, &genai.Content{Role: "user", Parts: parts})
		}
	}
	return out
}

func encodeGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, t := range ts {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  schemaToGemini(t.Parameters()),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// schemaToGemini maps the JSON-schema object each tool advertises onto the
// genai schema type. Only the object/string/integer/number/boolean subset
// the built-in tools use is covered.
func schemaToGemini(schema map[string]interface{}) *genai.Schema {
	out := &genai.Schema{Type: genai.TypeObject}
	if schema == nil {
		return out
	}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	switch schema["type"] {
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	case "object", nil:
		out.Type = genai.TypeObject
		if props, ok := schema["properties"].(map[string]interface{}); ok {
			out.Properties = make(map[string]*genai.Schema, len(props))
			for name, sub := range props {
				if subMap, ok := sub.(map[string]interface{}); ok {
					out.Properties[name] = schemaToGemini(subMap)
				}
			}
		}
		if req, ok := schema["required"].([]string); ok {
			out.Required = req
		} else if req, ok := schema["required"].([]interface{}); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					out.Required = append(out.Required, s)
				}
			}
		}
	}
	return out
}

// decodeGeminiResponse converts a Gemini response into the internal shape.
// Gemini function calls carry no id, so one is minted per call; the id
// only has to be unique within the session.
func decodeGeminiResponse(resp *genai.GenerateContentResponse) (*session.Message, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.Mark(errors.KindAdapter, errors.New("malformed response: no candidates"))
	}

	msg := &session.Message{Role: session.RoleAssistant}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			msg.Content += string(v)
		case genai.FunctionCall:
			msg.ToolCalls = append(msg.ToolCalls, session.ToolCall{
				ID:   "call_" + uuid.NewString(),
				Name: v.Name,
				Args: v.Args,
			})
		default:
			return nil, errors.Mark(errors.KindAdapter, errors.New("malformed response: unsupported part type %T", v))
		}
	}
	return msg, nil
}

// dataURLToBlob decodes a "data:<mime>;base64,<payload>" URL into an
// inline blob part.
func dataURLToBlob(dataURL string) (genai.Blob, bool) {
	rest, found := strings.CutPrefix(dataURL, "data:")
	if !found {
		return genai.Blob{}, false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return genai.Blob{}, false
	}
	mime := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return genai.Blob{}, false
	}
	return genai.Blob{MIMEType: mime, Data: data}, true
}
