package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateError_AlreadyAnthropicShape(t *testing.T) {
	body := []byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	got := TranslateError(body)
	assert.Equal(t, "rate_limit_error", got.Error.Type)
	assert.Equal(t, "slow down", got.Error.Message)
}

func TestTranslateError_OpenAIShape(t *testing.T) {
	body := []byte(`{"error":{"type":"invalid_request_error","message":"bad field"}}`)
	got := TranslateError(body)
	assert.Equal(t, "invalid_request_error", got.Error.Type)
	assert.Equal(t, "bad field", got.Error.Message)
}

func TestTranslateError_UnknownOpenAITypeMapsToAPIError(t *testing.T) {
	body := []byte(`{"error":{"type":"some_weird_type","message":"?"}}`)
	got := TranslateError(body)
	assert.Equal(t, "api_error", got.Error.Type)
}

func TestTranslateError_PlainStringError(t *testing.T) {
	body := []byte(`{"error": "boom"}`)
	got := TranslateError(body)
	assert.Equal(t, "api_error", got.Error.Type)
	assert.Equal(t, "boom", got.Error.Message)
}

func TestTranslateError_NonJSONBody(t *testing.T) {
	got := TranslateError([]byte("not json at all"))
	assert.Equal(t, "api_error", got.Error.Type)
	assert.Equal(t, "not json at all", got.Error.Message)
}

func TestStatusToErrorType(t *testing.T) {
	assert.Equal(t, "invalid_request_error", StatusToErrorType(400))
	assert.Equal(t, "authentication_error", StatusToErrorType(401))
	assert.Equal(t, "rate_limit_error", StatusToErrorType(429))
	assert.Equal(t, "overloaded_error", StatusToErrorType(529))
	assert.Equal(t, "api_error", StatusToErrorType(503))
}
