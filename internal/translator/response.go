package translator

import (
	"encoding/json"

	"github.com/google/uuid"
)

var finishReasonToStopReason = map[string]string{
	"stop":           "end_turn",
	"length":         "max_tokens",
	"tool_calls":     "tool_use",
	"content_filter": "end_turn",
	"function_call":  "tool_use",
}

func translateFinishReason(reason string) string {
	if mapped, ok := finishReasonToStopReason[reason]; ok {
		return mapped
	}
	return "end_turn"
}

// newMessageID mints an Anthropic-shaped message id: "msg_" plus 24 hex
// characters, matching the original proxy's uuid4().hex[:24] scheme.
func newMessageID() string {
	return "msg_" + hex24()
}

func newToolUseID() string {
	return "toolu_" + hex24()
}

func hex24() string {
	id := uuid.New()
	s := id.String()
	out := make([]byte, 0, 24)
	for _, r := range s {
		if r == '-' {
			continue
		}
		out = append(out, byte(r))
		if len(out) == 24 {
			break
		}
	}
	return string(out)
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

type openAIChoice struct {
	Message      openAIRespMessage `json:"message"`
	FinishReason *string           `json:"finish_reason"`
}

type openAIRespMessage struct {
	Content   *string            `json:"content"`
	ToolCalls []openAIToolCall   `json:"tool_calls"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAIUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// TranslateResponse decodes an OpenAI chat-completion response body and converts it
// into an Anthropic /v1/messages response, tagged with originalModel (the
// model name the client originally asked for, not the mapped target name).
func TranslateResponse(body []byte, originalModel string) (*AnthropicResponse, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	out := &AnthropicResponse{
		ID:      newMessageID(),
		Type:    "message",
		Role:    "assistant",
		Model:   originalModel,
		Content: []ContentBlock{},
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}

	if len(resp.Choices) == 0 {
		return out, nil
	}

	choice := resp.Choices[0]

	if choice.Message.Content != nil && *choice.Message.Content != "" {
		out.Content = append(out.Content, ContentBlock{Type: "text", Text: *choice.Message.Content})
	}

	for _, tc := range choice.Message.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		input := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(input) {
			raw, _ := json.Marshal(map[string]string{"raw": tc.Function.Arguments})
			input = raw
		}
		id := tc.ID
		if id == "" {
			id = newToolUseID()
		}
		out.Content = append(out.Content, ContentBlock{
			Type:      "tool_use",
			ToolUseID: id,
			ToolName:  tc.Function.Name,
			ToolInput: input,
		})
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		stopReason := translateFinishReason(*choice.FinishReason)
		out.StopReason = &stopReason
	}

	return out, nil
}

// BuildPlaceholderResponse returns the canned Anthropic response used by
// placeholder mode, which never contacts the target endpoint.
func BuildPlaceholderResponse(model, content string) *AnthropicResponse {
	stopReason := "end_turn"
	return &AnthropicResponse{
		ID:    newMessageID(),
		Type:  "message",
		Role:  "assistant",
		Model: model,
		Content: []ContentBlock{
			{Type: "text", Text: content},
		},
		StopReason: &stopReason,
		Usage:      Usage{InputTokens: 100, OutputTokens: 20},
	}
}
