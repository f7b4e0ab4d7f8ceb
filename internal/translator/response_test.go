package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateResponse_TextOnly(t *testing.T) {
	body := []byte(`{
		"choices": [{"message": {"content": "hi there"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5}
	}`)

	resp, err := TranslateResponse(body, "claude-3-opus-20240229")
	require.NoError(t, err)

	assert.Equal(t, "message", resp.Type)
	assert.Equal(t, "assistant", resp.Role)
	assert.Equal(t, "claude-3-opus-20240229", resp.Model)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "text", resp.Content[0].Type)
	assert.Equal(t, "hi there", resp.Content[0].Text)
	require.NotNil(t, resp.StopReason)
	assert.Equal(t, "end_turn", *resp.StopReason)
	assert.EqualValues(t, 10, resp.Usage.InputTokens)
	assert.EqualValues(t, 5, resp.Usage.OutputTokens)
}

func TestTranslateResponse_ToolCall(t *testing.T) {
	body := []byte(`{
		"choices": [{
			"message": {
				"content": null,
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"SF\"}"}}]
			},
			"finish_reason": "tool_calls"
		}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5}
	}`)

	resp, err := TranslateResponse(body, "claude-3-opus-20240229")
	require.NoError(t, err)

	require.Len(t, resp.Content, 1)
	assert.Equal(t, "tool_use", resp.Content[0].Type)
	assert.Equal(t, "call_1", resp.Content[0].ToolUseID)
	assert.Equal(t, "get_weather", resp.Content[0].ToolName)
	require.NotNil(t, resp.StopReason)
	assert.Equal(t, "tool_use", *resp.StopReason)
}

func TestTranslateResponse_MissingFinishReason(t *testing.T) {
	body := []byte(`{
		"choices": [{"message": {"content": "still going"}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5}
	}`)
	resp, err := TranslateResponse(body, "claude-3-opus")
	require.NoError(t, err)
	assert.Nil(t, resp.StopReason)
}

func TestTranslateResponse_NoChoices(t *testing.T) {
	body := []byte(`{"choices": [], "usage": {"prompt_tokens": 1, "completion_tokens": 0}}`)
	resp, err := TranslateResponse(body, "claude-3-opus")
	require.NoError(t, err)
	assert.Empty(t, resp.Content)
	assert.Nil(t, resp.StopReason)
}

func TestBuildPlaceholderResponse(t *testing.T) {
	resp := BuildPlaceholderResponse("claude-3-opus", "hello")
	require.Len(t, resp.Content, 1)
	assert.Equal(t, "hello", resp.Content[0].Text)
	assert.EqualValues(t, 100, resp.Usage.InputTokens)
	assert.EqualValues(t, 20, resp.Usage.OutputTokens)
}

func TestNewMessageID_Format(t *testing.T) {
	id := newMessageID()
	assert.Regexp(t, `^msg_[0-9a-f]{24}$`, id)
}

func TestNewToolUseID_Format(t *testing.T) {
	id := newToolUseID()
	assert.Regexp(t, `^toolu_[0-9a-f]{24}$`, id)
}
