package llm

import (
	"encoding/json"
	"testing"

	"github.com/m4xw311/ask/errors"
	"github.com/m4xw311/ask/session"
	"github.com/openai/openai-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireJSON marshals an encoded param so assertions target the request
// shape the API sees rather than SDK union internals.
func wireJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestEncodeOpenAIMessagesRoles(t *testing.T) {
	history := []session.Message{
		{Role: session.RoleSystem, Content: "be concise"},
		{Role: session.RoleUser, Content: "hi"},
		{Role: session.RoleAssistant, Content: "hello"},
		{Role: session.RoleTool, ToolCallID: "call_0", Content: "done"},
	}
	params := encodeOpenAIMessages(history, "high")
	require.Len(t, params, 4)

	for i, role := range []string{"system", "user", "assistant", "tool"} {
		assert.Contains(t, wireJSON(t, params[i]), `"role":"`+role+`"`)
	}
	assert.Contains(t, wireJSON(t, params[3]), `"tool_call_id":"call_0"`)
}

func TestEncodeOpenAIMessagesPreservesToolCallLinkage(t *testing.T) {
	history := []session.Message{
		{Role: session.RoleAssistant, ToolCalls: []session.ToolCall{{
			ID:   "call_7",
			Name: "read_file",
			Args: map[string]interface{}{"path": "notes.txt"},
		}}},
		{Role: session.RoleTool, ToolCallID: "call_7", Content: "contents"},
	}
	params := encodeOpenAIMessages(history, "high")
	require.Len(t, params, 2)

	assistant := wireJSON(t, params[0])
	assert.Contains(t, assistant, `"id":"call_7"`)
	assert.Contains(t, assistant, `"name":"read_file"`)
	assert.Contains(t, wireJSON(t, params[1]), `"tool_call_id":"call_7"`)
}

func TestEncodeOpenAIMessagesImageAttachment(t *testing.T) {
	history := []session.Message{{
		Role:     session.RoleUser,
		Content:  "what is this?",
		ImageURL: "data:image/png;base64,aGk=",
	}}
	params := encodeOpenAIMessages(history, "low")
	require.Len(t, params, 1)

	user := wireJSON(t, params[0])
	assert.Contains(t, user, `"url":"data:image/png;base64,aGk="`)
	assert.Contains(t, user, `"detail":"low"`)
	assert.Contains(t, user, `"text":"what is this?"`)
}

func TestDecodeOpenAIResponseText(t *testing.T) {
	resp := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Content: "sure thing"},
		}},
	}
	msg, err := decodeOpenAIResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, session.RoleAssistant, msg.Role)
	assert.Equal(t, "sure thing", msg.Content)
	assert.Empty(t, msg.ToolCalls)
}

func TestDecodeOpenAIResponseToolCalls(t *testing.T) {
	resp := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCallUnion{{
					ID: "call_3",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      "run_shell_command",
						Arguments: `{"command":"ls"}`,
					},
				}},
			},
		}},
	}
	msg, err := decodeOpenAIResponse(resp)
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "call_3", msg.ToolCalls[0].ID)
	assert.Equal(t, "run_shell_command", msg.ToolCalls[0].Name)
	assert.Equal(t, "ls", msg.ToolCalls[0].Args["command"])
}

func TestDecodeOpenAIResponseMalformed(t *testing.T) {
	_, err := decodeOpenAIResponse(&openai.ChatCompletion{})
	require.Error(t, err)
	assert.Equal(t, errors.KindAdapter, errors.KindOf(err))

	resp := &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCallUnion{{
					ID:       "call_9",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{Name: "x", Arguments: "not json"},
				}},
			},
		}},
	}
	_, err = decodeOpenAIResponse(resp)
	require.Error(t, err)
	assert.Equal(t, errors.KindAdapter, errors.KindOf(err))
}
