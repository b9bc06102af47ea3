package llm

import (
	"encoding/json"
	"testing"

	"github.com/m4xw311/ask/errors"
	"github.com/m4xw311/ask/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBedrockRequest(t *testing.T) {
	history := []session.Message{
		{Role: session.RoleSystem, Content: "be concise"},
		{Role: session.RoleUser, Content: "list files"},
		{Role: session.RoleAssistant, ToolCalls: []session.ToolCall{{
			ID:   "call_0",
			Name: "run_shell_command",
			Args: map[string]interface{}{"command": "ls"},
		}}},
		{Role: session.RoleTool, ToolCallID: "call_0", Content: "a.txt"},
	}

	body, err := encodeBedrockRequest(history, nil, 4096)
	require.NoError(t, err)

	var request map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &request))

	assert.Equal(t, "be concise", request["system"])
	assert.Equal(t, float64(4096), request["max_tokens"])

	messages := request["messages"].([]interface{})
	require.Len(t, messages, 3, "the system turn moves out of band")

	toolTurn := messages[2].(map[string]interface{})
	assert.Equal(t, "user", toolTurn["role"])
	block := toolTurn["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "tool_result", block["type"])
	assert.Equal(t, "call_0", block["tool_use_id"])
}

func TestDecodeBedrockResponseText(t *testing.T) {
	body := []byte(`{"content":[{"type":"text","text":"Hello! How can I help?"}]}`)
	msg, err := decodeBedrockResponse(body)
	require.NoError(t, err)
	assert.Equal(t, session.RoleAssistant, msg.Role)
	assert.Equal(t, "Hello! How can I help?", msg.Content)
	assert.Empty(t, msg.ToolCalls)
}

func TestDecodeBedrockResponseToolUse(t *testing.T) {
	body := []byte(`{"content":[
		{"type":"text","text":"Running it."},
		{"type":"tool_use","id":"toolu_1","name":"run_shell_command","input":{"command":"ls"}}
	]}`)
	msg, err := decodeBedrockResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "Running it.", msg.Content)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "toolu_1", msg.ToolCalls[0].ID)
	assert.Equal(t, "run_shell_command", msg.ToolCalls[0].Name)
	assert.Equal(t, "ls", msg.ToolCalls[0].Args["command"])
}

func TestDecodeBedrockResponseMintsMissingID(t *testing.T) {
	body := []byte(`{"content":[{"type":"tool_use","name":"read_file","input":{"path":"x"}}]}`)
	msg, err := decodeBedrockResponse(body)
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.NotEmpty(t, msg.ToolCalls[0].ID)
}

func TestDecodeBedrockResponseMalformed(t *testing.T) {
	for _, body := range []string{`not json`, `{"content":"plain string"}`} {
		_, err := decodeBedrockResponse([]byte(body))
		require.Error(t, err, body)
		assert.Equal(t, errors.KindAdapter, errors.KindOf(err), body)
	}
}

func TestDecodeBedrockResponseAPIError(t *testing.T) {
	_, err := decodeBedrockResponse([]byte(`{"error":"throttled"}`))
	require.Error(t, err)
	assert.Equal(t, errors.KindTransport, errors.KindOf(err))
}
