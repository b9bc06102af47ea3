package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/m4xw311/ask/errors"
	"github.com/m4xw311/ask/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeGeminiContentsCorrelatesToolResultsByName(t *testing.T) {
	history := []session.Message{
		{Role: session.RoleUser, Content: "list files"},
		{Role: session.RoleAssistant, ToolCalls: []session.ToolCall{{
			ID:   "call_1",
			Name: "run_shell_command",
			Args: map[string]interface{}{"command": "ls"},
		}}},
		{Role: session.RoleTool, ToolCallID: "call_1", Content: "a.txt"},
	}
	contents := encodeGeminiContents(history)
	require.Len(t, contents, 3)

	call, ok := contents[1].Parts[0].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "run_shell_command", call.Name)

	resp, ok := contents[2].Parts[0].(genai.FunctionResponse)
	require.True(t, ok)
	assert.Equal(t, "run_shell_command", resp.Name, "result routes back by function name")
	assert.Equal(t, "a.txt", resp.Response["content"])
}

func TestEncodeGeminiContentsSystemBecomesUser(t *testing.T) {
	contents := encodeGeminiContents([]session.Message{
		{Role: session.RoleSystem, Content: "be concise"},
		{Role: session.RoleUser, Content: "hi"},
	})
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "user", contents[1].Role)
}

func TestSchemaToGemini(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{"type": "string", "description": "shell command"},
			"count":   map[string]interface{}{"type": "integer"},
			"force":   map[string]interface{}{"type": "boolean"},
		},
		"required": []string{"command"},
	}
	out := schemaToGemini(schema)
	assert.Equal(t, genai.TypeObject, out.Type)
	require.Contains(t, out.Properties, "command")
	assert.Equal(t, genai.TypeString, out.Properties["command"].Type)
	assert.Equal(t, "shell command", out.Properties["command"].Description)
	assert.Equal(t, genai.TypeInteger, out.Properties["count"].Type)
	assert.Equal(t, genai.TypeBoolean, out.Properties["force"].Type)
	assert.Equal(t, []string{"command"}, out.Required)
}

func TestSchemaToGeminiNil(t *testing.T) {
	out := schemaToGemini(nil)
	assert.Equal(t, genai.TypeObject, out.Type)
	assert.Empty(t, out.Properties)
}

func TestDecodeGeminiResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: "model",
				Parts: []genai.Part{
					genai.Text("Checking."),
					genai.FunctionCall{Name: "read_file", Args: map[string]interface{}{"path": "x"}},
				},
			},
		}},
	}
	msg, err := decodeGeminiResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "Checking.", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "read_file", msg.ToolCalls[0].Name)
	assert.NotEmpty(t, msg.ToolCalls[0].ID, "gemini calls carry no id, one is minted")
}

func TestDecodeGeminiResponseNoCandidates(t *testing.T) {
	_, err := decodeGeminiResponse(&genai.GenerateContentResponse{})
	require.Error(t, err)
	assert.Equal(t, errors.KindAdapter, errors.KindOf(err))
}

func TestDataURLToBlob(t *testing.T) {
	blob, ok := dataURLToBlob("data:image/png;base64,aGVsbG8=")
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, []byte("hello"), blob.Data)

	_, ok = dataURLToBlob("https://example.com/x.png")
	assert.False(t, ok)

	_, ok = dataURLToBlob("data:image/png;base64,&&&")
	assert.False(t, ok)
}
