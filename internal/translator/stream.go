package translator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StreamState tracks progress through a single OpenAI→Anthropic stream
// translation. One StreamState belongs to exactly one in-flight request and
// is written by a single goroutine, so it needs no internal locking.
type StreamState struct {
	MessageID           string
	Model               string
	MessageStarted      bool
	ContentBlockStarted bool
	CurrentBlockIndex   int
	CurrentBlockType    string
	ToolCalls           map[int]*pendingToolCall
	InputTokens         int64
	OutputTokens        int64
	StopReason          string
	Done                bool
}

type pendingToolCall struct {
	ID           string
	Name         string
	InputJSON    strings.Builder
	BlockStarted bool
}

// NewStreamTranslator creates a StreamState seeded with a fresh message id
// and the model name to report back to the client.
func NewStreamTranslator(model string) *StreamState {
	return &StreamState{
		MessageID:        newMessageID(),
		Model:            model,
		CurrentBlockType: "text",
		ToolCalls:        make(map[int]*pendingToolCall),
	}
}

type openAIChunk struct {
	Error   json.RawMessage      `json:"error"`
	Choices []openAIChunkChoice  `json:"choices"`
	Usage   *openAIUsage         `json:"usage"`
}

type openAIChunkChoice struct {
	Delta        openAIChunkDelta `json:"delta"`
	FinishReason string           `json:"finish_reason"`
}

type openAIChunkDelta struct {
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	ToolCalls []openAIChunkToolCall  `json:"tool_calls"`
}

type openAIChunkToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// TranslateChunk consumes one raw SSE line ("data: {...}" or
// "data: [DONE]") from the OpenAI stream and returns zero or more complete
// Anthropic SSE event strings (each already framed with "event:"/"data:"
// and a trailing blank line).
func (s *StreamState) TranslateChunk(line []byte) []string {
	chunkStr := strings.TrimSpace(string(line))
	if chunkStr == "" {
		return nil
	}

	if chunkStr == "data: [DONE]" {
		return s.emitStreamEnd()
	}

	if !strings.HasPrefix(chunkStr, "data: ") {
		return nil
	}

	var chunk openAIChunk
	if err := json.Unmarshal([]byte(chunkStr[6:]), &chunk); err != nil {
		return nil
	}

	if len(chunk.Error) > 0 && !bytes.Equal(chunk.Error, []byte("null")) {
		return []string{s.emitErrorEvent(chunk.Error)}
	}

	if len(chunk.Choices) == 0 {
		if chunk.Usage != nil {
			s.InputTokens = chunk.Usage.PromptTokens
			s.OutputTokens = chunk.Usage.CompletionTokens
		}
		return nil
	}

	choice := chunk.Choices[0]
	var events []string

	if !s.MessageStarted {
		events = append(events, s.emitMessageStart())
		s.MessageStarted = true
	}

	if choice.Delta.Content != "" {
		if !s.ContentBlockStarted {
			events = append(events, s.emitContentBlockStart("text", s.CurrentBlockIndex))
			s.ContentBlockStarted = true
			s.CurrentBlockType = "text"
		}
		events = append(events, s.emitTextDelta(choice.Delta.Content))
	}

	for _, tcDelta := range choice.Delta.ToolCalls {
		events = append(events, s.handleToolCallDelta(tcDelta)...)
	}

	if choice.FinishReason != "" {
		s.StopReason = translateFinishReason(choice.FinishReason)
		if s.ContentBlockStarted {
			events = append(events, s.emitContentBlockStop())
		}
	}

	return events
}

func (s *StreamState) handleToolCallDelta(tc openAIChunkToolCall) []string {
	var events []string

	pending, ok := s.ToolCalls[tc.Index]
	if !ok {
		id := tc.ID
		if id == "" {
			id = newToolUseID()
		}
		pending = &pendingToolCall{ID: id}
		s.ToolCalls[tc.Index] = pending
	}

	if tc.ID != "" {
		pending.ID = tc.ID
	}

	if tc.Function.Name != "" {
		pending.Name = tc.Function.Name
	}

	if pending.Name != "" && !pending.BlockStarted {
		if s.ContentBlockStarted && s.CurrentBlockType == "text" {
			events = append(events, s.emitContentBlockStop())
			s.CurrentBlockIndex++
		}
		events = append(events, s.emitToolUseBlockStart(s.CurrentBlockIndex, pending))
		s.ContentBlockStarted = true
		s.CurrentBlockType = "tool_use"
		pending.BlockStarted = true
	}

	if tc.Function.Arguments != "" {
		pending.InputJSON.WriteString(tc.Function.Arguments)
		if pending.BlockStarted {
			events = append(events, s.emitInputJSONDelta(tc.Function.Arguments))
		}
	}

	return events
}

func (s *StreamState) emitMessageStart() string {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id":            s.MessageID,
			"type":          "message",
			"role":          "assistant",
			"content":       []interface{}{},
			"model":         s.Model,
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage": map[string]interface{}{
				"input_tokens":  s.InputTokens,
				"output_tokens": s.OutputTokens,
			},
		},
	})
	return frame("message_start", data)
}

func (s *StreamState) emitContentBlockStart(blockType string, index int) string {
	block := map[string]interface{}{"type": "text", "text": ""}
	data, _ := json.Marshal(map[string]interface{}{
		"type":          "content_block_start",
		"index":         index,
		"content_block": block,
	})
	return frame("content_block_start", data)
}

func (s *StreamState) emitToolUseBlockStart(index int, pending *pendingToolCall) string {
	block := map[string]interface{}{
		"type":  "tool_use",
		"id":    pending.ID,
		"name":  pending.Name,
		"input": map[string]interface{}{},
	}
	data, _ := json.Marshal(map[string]interface{}{
		"type":          "content_block_start",
		"index":         index,
		"content_block": block,
	})
	return frame("content_block_start", data)
}

func (s *StreamState) emitTextDelta(text string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"type":  "content_block_delta",
		"index": s.CurrentBlockIndex,
		"delta": map[string]interface{}{"type": "text_delta", "text": text},
	})
	return frame("content_block_delta", data)
}

func (s *StreamState) emitInputJSONDelta(fragment string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"type":  "content_block_delta",
		"index": s.CurrentBlockIndex,
		"delta": map[string]interface{}{"type": "input_json_delta", "partial_json": fragment},
	})
	return frame("content_block_delta", data)
}

func (s *StreamState) emitContentBlockStop() string {
	data, _ := json.Marshal(map[string]interface{}{
		"type":  "content_block_stop",
		"index": s.CurrentBlockIndex,
	})
	return frame("content_block_stop", data)
}

func (s *StreamState) emitErrorEvent(rawErr json.RawMessage) string {
	message := extractErrorMessage(rawErr)
	data, _ := json.Marshal(map[string]interface{}{
		"type": "error",
		"error": map[string]interface{}{
			"type":    "api_error",
			"message": message,
		},
	})
	return frame("error", data)
}

func extractErrorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if msg, ok := obj["message"].(string); ok {
			return msg
		}
		return fmt.Sprintf("%v", obj)
	}
	return string(raw)
}

func (s *StreamState) emitStreamEnd() []string {
	s.Done = true
	stopReason := s.StopReason
	if stopReason == "" {
		stopReason = "end_turn"
	}
	deltaData, _ := json.Marshal(map[string]interface{}{
		"type": "message_delta",
		"delta": map[string]interface{}{
			"stop_reason":   stopReason,
			"stop_sequence": nil,
		},
		"usage": map[string]interface{}{"output_tokens": s.OutputTokens},
	})
	return []string{
		frame("message_delta", deltaData),
		frame("message_stop", []byte(`{"type":"message_stop"}`)),
	}
}

// FinalizeIfOpen emits the stream-end sequence if the upstream connection
// closed without ever sending "[DONE]" — the original silently drops the
// stream in this case, but leaving a client's request permanently open is
// worse than closing it out with whatever stop reason was last observed.
func (s *StreamState) FinalizeIfOpen() []string {
	if s.Done {
		return nil
	}
	return s.emitStreamEnd()
}

func frame(event string, data []byte) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

// PlaceholderStream yields the canned Anthropic SSE sequence for
// placeholder mode, streaming content word by word the way the real
// upstream would. The caller is responsible for pacing (e.g. a small sleep
// between sends) since this function only builds the event strings.
func PlaceholderStream(model, content string) []string {
	msgID := newMessageID()
	var events []string

	startMsg, _ := json.Marshal(map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id": msgID, "type": "message", "role": "assistant",
			"content": []interface{}{}, "model": model,
			"stop_reason": nil, "stop_sequence": nil,
			"usage": map[string]interface{}{"input_tokens": 100, "output_tokens": 0},
		},
	})
	events = append(events, frame("message_start", startMsg))

	blockStart, _ := json.Marshal(map[string]interface{}{
		"type": "content_block_start", "index": 0,
		"content_block": map[string]interface{}{"type": "text", "text": ""},
	})
	events = append(events, frame("content_block_start", blockStart))

	words := strings.Fields(content)
	for i, word := range words {
		text := word
		if i < len(words)-1 {
			text += " "
		}
		deltaData, _ := json.Marshal(map[string]interface{}{
			"type": "content_block_delta", "index": 0,
			"delta": map[string]interface{}{"type": "text_delta", "text": text},
		})
		events = append(events, frame("content_block_delta", deltaData))
	}

	blockStop, _ := json.Marshal(map[string]interface{}{"type": "content_block_stop", "index": 0})
	events = append(events, frame("content_block_stop", blockStop))

	msgDelta, _ := json.Marshal(map[string]interface{}{
		"type": "message_delta",
		"delta": map[string]interface{}{"stop_reason": "end_turn", "stop_sequence": nil},
		"usage": map[string]interface{}{"output_tokens": len(words)},
	})
	events = append(events, frame("message_delta", msgDelta))
	events = append(events, frame("message_stop", []byte(`{"type":"message_stop"}`)))

	return events
}
