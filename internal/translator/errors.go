package translator

import "encoding/json"

var errorTypeMap = map[string]string{
	"invalid_request_error": "invalid_request_error",
	"authentication_error":  "authentication_error",
	"permission_error":      "permission_error",
	"not_found_error":       "not_found_error",
	"rate_limit_error":      "rate_limit_error",
	"server_error":          "api_error",
	"timeout":               "overloaded_error",
}

// TranslateError converts an upstream error body (which may already be in
// Anthropic shape, in OpenAI shape, or a bare string) into the Anthropic
// error envelope. It never raises: every code path produces some message.
func TranslateError(body []byte) *AnthropicError {
	var generic map[string]interface{}
	if err := json.Unmarshal(body, &generic); err != nil {
		return &AnthropicError{
			Type:  "error",
			Error: AnthropicErrorInner{Type: "api_error", Message: string(body)},
		}
	}
	return TranslateErrorObject(generic)
}

// TranslateErrorObject is the same translation over an already-decoded
// error object, used when the caller parsed the body for other reasons
// (e.g. to also extract a status-derived fallback).
func TranslateErrorObject(errorResponse map[string]interface{}) *AnthropicError {
	if errorResponse["type"] == "error" {
		if inner, ok := errorResponse["error"].(map[string]interface{}); ok {
			return &AnthropicError{
				Type: "error",
				Error: AnthropicErrorInner{
					Type:    stringField(inner, "type", "api_error"),
					Message: stringField(inner, "message", "An error occurred"),
				},
			}
		}
	}

	errorInfoRaw := errorResponse["error"]

	if s, ok := errorInfoRaw.(string); ok {
		return &AnthropicError{
			Type:  "error",
			Error: AnthropicErrorInner{Type: "api_error", Message: s},
		}
	}

	errorInfo, _ := errorInfoRaw.(map[string]interface{})

	openaiType := ""
	if errorInfo != nil {
		openaiType = stringField(errorInfo, "type", "")
		if openaiType == "" {
			openaiType = stringField(errorInfo, "code", "")
		}
	}
	if openaiType == "" {
		openaiType = stringField(errorResponse, "type", "")
	}
	if openaiType == "" {
		openaiType = "api_error"
	}

	anthropicType, ok := errorTypeMap[openaiType]
	if !ok {
		anthropicType = "api_error"
	}

	message := ""
	if errorInfo != nil {
		message = stringField(errorInfo, "message", "")
	}
	if message == "" {
		message = stringField(errorResponse, "message", "")
	}
	if message == "" {
		message = stringField(errorResponse, "detail", "")
	}
	if message == "" {
		message = "An error occurred"
	}

	return &AnthropicError{
		Type:  "error",
		Error: AnthropicErrorInner{Type: anthropicType, Message: message},
	}
}

func stringField(m map[string]interface{}, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// StatusToErrorType maps an HTTP status code to the Anthropic error type
// used when the body gave no usable type of its own (e.g. a blank 5xx).
func StatusToErrorType(status int) string {
	switch {
	case status == 400:
		return "invalid_request_error"
	case status == 401:
		return "authentication_error"
	case status == 403:
		return "permission_error"
	case status == 404:
		return "not_found_error"
	case status == 429:
		return "rate_limit_error"
	case status == 529:
		return "overloaded_error"
	case status >= 500:
		return "api_error"
	default:
		return "api_error"
	}
}
