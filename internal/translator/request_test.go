package translator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMapper struct{ target string }

func (f fakeMapper) Map(model string) (string, bool) {
	if f.target == "" {
		return model, false
	}
	return f.target, true
}

func decodeRequest(t *testing.T, body string) *AnthropicRequest {
	t.Helper()
	var req AnthropicRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestTranslateRequest_SimpleTextMessage(t *testing.T) {
	req := decodeRequest(t, `{
		"model": "claude-3-opus-20240229",
		"max_tokens": 1024,
		"messages": [{"role": "user", "content": "hello"}]
	}`)

	out := TranslateRequest(req, fakeMapper{target: "gpt-4-turbo"}, 4096)

	assert.Equal(t, "gpt-4-turbo", out["model"])
	assert.EqualValues(t, 1024, out["max_tokens"])

	messages := out["messages"].([]openAIMessage)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0]["role"])
	assert.Equal(t, "hello", messages[0]["content"])
}

func TestTranslateRequest_DefaultMaxTokens(t *testing.T) {
	req := decodeRequest(t, `{"model": "claude-3-opus", "messages": [{"role":"user","content":"hi"}]}`)
	out := TranslateRequest(req, fakeMapper{}, 4096)
	assert.EqualValues(t, 4096, out["max_tokens"])
}

func TestTranslateRequest_SystemPromptString(t *testing.T) {
	req := decodeRequest(t, `{
		"model": "claude-3-opus",
		"system": "be nice",
		"messages": [{"role": "user", "content": "hi"}]
	}`)
	out := TranslateRequest(req, fakeMapper{}, 4096)
	messages := out["messages"].([]openAIMessage)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0]["role"])
	assert.Equal(t, "be nice", messages[0]["content"])
}

func TestTranslateRequest_ToolResultBeforeUserContent(t *testing.T) {
	req := decodeRequest(t, `{
		"model": "claude-3-opus",
		"messages": [{
			"role": "user",
			"content": [
				{"type": "tool_result", "tool_use_id": "toolu_1", "content": "42"},
				{"type": "text", "text": "thanks"}
			]
		}]
	}`)
	out := TranslateRequest(req, fakeMapper{}, 4096)
	messages := out["messages"].([]openAIMessage)
	require.Len(t, messages, 2)
	assert.Equal(t, "tool", messages[0]["role"])
	assert.Equal(t, "toolu_1", messages[0]["tool_call_id"])
	assert.Equal(t, "user", messages[1]["role"])
	assert.Equal(t, "thanks", messages[1]["content"])
}

func TestTranslateRequest_AssistantToolUse(t *testing.T) {
	req := decodeRequest(t, `{
		"model": "claude-3-opus",
		"messages": [{
			"role": "assistant",
			"content": [
				{"type": "text", "text": "let me check"},
				{"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": {"city": "SF"}}
			]
		}]
	}`)
	out := TranslateRequest(req, fakeMapper{}, 4096)
	messages := out["messages"].([]openAIMessage)
	require.Len(t, messages, 1)
	assert.Equal(t, "let me check", messages[0]["content"])
	toolCalls := messages[0]["tool_calls"].([]map[string]interface{})
	require.Len(t, toolCalls, 1)
	assert.Equal(t, "toolu_1", toolCalls[0]["id"])
}

func TestTranslateRequest_TopLevelToolResultRole(t *testing.T) {
	req := decodeRequest(t, `{
		"model": "claude-3-opus",
		"messages": [
			{"role": "tool_result", "tool_use_id": "toolu_1", "content": "42"},
			{"role": "user", "content": "thanks"}
		]
	}`)
	out := TranslateRequest(req, fakeMapper{}, 4096)
	messages := out["messages"].([]openAIMessage)
	require.Len(t, messages, 2)
	assert.Equal(t, "tool", messages[0]["role"])
	assert.Equal(t, "toolu_1", messages[0]["tool_call_id"])
	assert.Equal(t, "42", messages[0]["content"])
}

func TestTranslateRequest_TopLevelToolResultError(t *testing.T) {
	req := decodeRequest(t, `{
		"model": "claude-3-opus",
		"messages": [
			{"role": "tool_result", "tool_use_id": "toolu_1", "content": "boom", "is_error": true}
		]
	}`)
	out := TranslateRequest(req, fakeMapper{}, 4096)
	messages := out["messages"].([]openAIMessage)
	require.Len(t, messages, 1)
	assert.Equal(t, "Error: boom", messages[0]["content"])
}

func TestTranslateToolChoice(t *testing.T) {
	cases := []struct {
		raw  string
		want interface{}
	}{
		{`"auto"`, "auto"},
		{`"any"`, "required"},
		{`"none"`, "none"},
		{`{"type":"tool","name":"get_weather"}`, map[string]interface{}{
			"type":     "function",
			"function": map[string]interface{}{"name": "get_weather"},
		}},
	}
	for _, c := range cases {
		got := translateToolChoice(json.RawMessage(c.raw))
		assert.Equal(t, c.want, got)
	}
}

func TestTranslateTools(t *testing.T) {
	tools := []Tool{{Name: "get_weather", Description: "gets weather", InputSchema: json.RawMessage(`{"type":"object"}`)}}
	out := translateTools(tools)
	require.Len(t, out, 1)
	assert.Equal(t, "function", out[0]["type"])
}
