package translator

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ModelMapper resolves a client model name to the name the target endpoint
// expects. Implemented by *config.ModelMapper in production.
type ModelMapper interface {
	Map(modelName string) (mapped string, matched bool)
}

// openAIMessage is a loosely-typed chat-completion message: fields vary by
// role (content can be a string or a block array, tool_calls only appears
// on assistant messages), so a map keeps the translator free of a dozen
// near-duplicate structs.
type openAIMessage map[string]interface{}

// TranslateRequest converts an Anthropic /v1/messages request into an
// OpenAI /v1/chat/completions request body, ready to json.Marshal.
func TranslateRequest(req *AnthropicRequest, mapper ModelMapper, defaultMaxTokens int64) map[string]interface{} {
	out := map[string]interface{}{}

	model := req.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	mapped, _ := mapper.Map(model)
	out["model"] = mapped

	var messages []openAIMessage

	if req.System.Set {
		if req.System.IsText && req.System.Text != "" {
			messages = append(messages, openAIMessage{"role": "system", "content": req.System.Text})
		} else if len(req.System.Blocks) > 0 {
			var parts []string
			for _, b := range req.System.Blocks {
				if b.Type == "text" {
					parts = append(parts, b.Text)
				}
			}
			if text := strings.Join(parts, " "); text != "" {
				messages = append(messages, openAIMessage{"role": "system", "content": text})
			}
		}
	}

	for _, msg := range req.Messages {
		messages = append(messages, translateMessage(msg)...)
	}

	out["messages"] = messages

	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	out["max_tokens"] = maxTokens

	if req.Temperature != nil {
		out["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		out["top_p"] = *req.TopP
	}
	if len(req.StopSequences) > 0 {
		out["stop"] = req.StopSequences
	}
	if req.Stream != nil {
		out["stream"] = *req.Stream
		if *req.Stream {
			out["stream_options"] = map[string]interface{}{"include_usage": true}
		}
	}
	if len(req.Tools) > 0 {
		out["tools"] = translateTools(req.Tools)
	}
	if req.ToolChoice.Set {
		if tc := translateToolChoice(req.ToolChoice.Raw); tc != nil {
			out["tool_choice"] = tc
		}
	}

	return out
}

// translateMessage returns one or more OpenAI messages for a single
// Anthropic message. A user message containing tool_result blocks expands
// into the tool messages first, then the remaining user content — matching
// the order OpenAI expects a tool response to precede the next user turn.
func translateMessage(msg AnthropicMessage) []openAIMessage {
	switch msg.Role {
	case "user":
		return translateUserMessage(msg)
	case "assistant":
		return []openAIMessage{translateAssistantMessage(msg)}
	case "tool_result":
		return []openAIMessage{translateTopLevelToolResult(msg)}
	default:
		return nil
	}
}

// translateTopLevelToolResult handles the non-standard top-level
// `role: tool_result` variant some clients send instead of wrapping a
// tool_result content block in a user message. Kept for compatibility.
func translateTopLevelToolResult(msg AnthropicMessage) openAIMessage {
	var content string
	if msg.Content.IsText {
		content = msg.Content.Text
	} else {
		content = flattenTextBlocks(msg.Content.Blocks)
	}
	if msg.IsError {
		content = "Error: " + content
	}
	return openAIMessage{
		"role":         "tool",
		"tool_call_id": msg.ToolUseID,
		"content":      content,
	}
}

func translateUserMessage(msg AnthropicMessage) []openAIMessage {
	if msg.Content.IsText {
		return []openAIMessage{{"role": "user", "content": msg.Content.Text}}
	}

	var toolResults []openAIMessage
	var otherContent []map[string]interface{}

	for _, block := range msg.Content.Blocks {
		switch block.Type {
		case "tool_result":
			content := flattenToolResultContent(block.ToolResultContent)
			if block.IsError {
				content = "Error: " + content
			}
			toolResults = append(toolResults, openAIMessage{
				"role":         "tool",
				"tool_call_id": block.ToolResultID,
				"content":      content,
			})
		case "text":
			otherContent = append(otherContent, map[string]interface{}{"type": "text", "text": block.Text})
		case "image":
			if block.Source != nil && block.Source.Type == "base64" {
				mediaType := block.Source.MediaType
				if mediaType == "" {
					mediaType = "image/png"
				}
				otherContent = append(otherContent, map[string]interface{}{
					"type": "image_url",
					"image_url": map[string]interface{}{
						"url": "data:" + mediaType + ";base64," + block.Source.Data,
					},
				})
			}
		}
	}

	var result []openAIMessage
	result = append(result, toolResults...)

	switch {
	case len(otherContent) == 1 && otherContent[0]["type"] == "text":
		result = append(result, openAIMessage{"role": "user", "content": otherContent[0]["text"]})
	case len(otherContent) > 0:
		result = append(result, openAIMessage{"role": "user", "content": otherContent})
	}

	if len(result) == 0 {
		return []openAIMessage{{"role": "user", "content": ""}}
	}
	return result
}

func flattenToolResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		return flattenTextBlocks(blocks)
	}
	return string(raw)
}

func flattenTextBlocks(blocks []ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}

func translateAssistantMessage(msg AnthropicMessage) openAIMessage {
	out := openAIMessage{"role": "assistant"}

	if msg.Content.IsText {
		out["content"] = msg.Content.Text
		return out
	}

	var textParts []string
	var toolCalls []map[string]interface{}

	for i, block := range msg.Content.Blocks {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)
		case "tool_use":
			id := block.ToolUseID
			if id == "" {
				id = "call_" + strconv.Itoa(i)
			}
			input := block.ToolInput
			if len(input) == 0 {
				input = json.RawMessage("{}")
			}
			toolCalls = append(toolCalls, map[string]interface{}{
				"id":   id,
				"type": "function",
				"function": map[string]interface{}{
					"name":      block.ToolName,
					"arguments": string(input),
				},
			})
		}
	}

	if len(textParts) > 0 {
		out["content"] = strings.Join(textParts, " ")
	} else {
		out["content"] = nil
	}
	if len(toolCalls) > 0 {
		out["tool_calls"] = toolCalls
	}

	return out
}

func translateTools(tools []Tool) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		schema := t.InputSchema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out = append(out, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  json.RawMessage(schema),
			},
		})
	}
	return out
}

func translateToolChoice(raw json.RawMessage) interface{} {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "auto":
			return "auto"
		case "any":
			return "required"
		case "none":
			return "none"
		}
		return "auto"
	}

	var obj struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		switch obj.Type {
		case "auto":
			return "auto"
		case "any":
			return "required"
		case "none":
			return "none"
		case "tool":
			return map[string]interface{}{
				"type":     "function",
				"function": map[string]interface{}{"name": obj.Name},
			}
		}
	}
	return "auto"
}
