// Package translator converts between the Anthropic /v1/messages wire
// format and the OpenAI /v1/chat/completions wire format. It performs no
// I/O: every function here is a pure transformation over already-decoded
// JSON, so it is tested without a network or a mock server.
package translator

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is a tagged union over Anthropic's four content-block
// variants. Only the fields relevant to the block's Type are populated;
// MarshalJSON/UnmarshalJSON dispatch on Type so callers never see the
// union's zero-value noise on the wire.
type ContentBlock struct {
	Type string

	// text
	Text string

	// image
	Source *ImageSource

	// tool_use
	ToolUseID string
	ToolName  string
	ToolInput json.RawMessage

	// tool_result
	ToolResultID      string
	ToolResultContent json.RawMessage
	IsError           bool
}

// ImageSource is the Anthropic base64 image payload.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type rawContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *ImageSource    `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// UnmarshalJSON dispatches on the "type" discriminator.
func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var raw rawContentBlock
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.Type = raw.Type
	switch raw.Type {
	case "text":
		b.Text = raw.Text
	case "image":
		b.Source = raw.Source
	case "tool_use":
		b.ToolUseID = raw.ID
		b.ToolName = raw.Name
		b.ToolInput = raw.Input
	case "tool_result":
		b.ToolResultID = raw.ToolUseID
		b.ToolResultContent = raw.Content
		b.IsError = raw.IsError
	default:
		return fmt.Errorf("translator: unknown content block type %q", raw.Type)
	}
	return nil
}

// MarshalJSON re-assembles the tagged variant for the wire.
func (b ContentBlock) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case "text":
		return json.Marshal(rawContentBlock{Type: "text", Text: b.Text})
	case "image":
		return json.Marshal(rawContentBlock{Type: "image", Source: b.Source})
	case "tool_use":
		return json.Marshal(rawContentBlock{Type: "tool_use", ID: b.ToolUseID, Name: b.ToolName, Input: b.ToolInput})
	case "tool_result":
		return json.Marshal(rawContentBlock{Type: "tool_result", ToolUseID: b.ToolResultID, Content: b.ToolResultContent, IsError: b.IsError})
	default:
		return nil, fmt.Errorf("translator: unknown content block type %q", b.Type)
	}
}

// MessageContent holds either a plain string or a list of content blocks,
// matching Anthropic's "content: string | Block[]" union.
type MessageContent struct {
	Text   string
	Blocks []ContentBlock
	IsText bool
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.IsText = true
		c.Text = s
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	c.Blocks = blocks
	return nil
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsText {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}

// AnthropicMessage is one entry of the request "messages" array. ToolUseID
// and IsError only apply to the non-standard top-level role "tool_result"
// (see translateTopLevelToolResult); every other role leaves them zero.
type AnthropicMessage struct {
	Role      string         `json:"role"`
	Content   MessageContent `json:"content"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

// SystemPrompt accepts Anthropic's "system: string | Block[]" union.
type SystemPrompt struct {
	Text   string
	Blocks []ContentBlock
	IsText bool
	Set    bool
}

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	s.Set = true
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.IsText = true
		s.Text = str
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	s.Blocks = blocks
	return nil
}

// Tool is an Anthropic tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolChoice accepts Anthropic's string-or-object tool_choice union.
type ToolChoice struct {
	Raw json.RawMessage
	Set bool
}

func (t *ToolChoice) UnmarshalJSON(data []byte) error {
	t.Set = true
	t.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// AnthropicRequest is the decoded /v1/messages request body.
type AnthropicRequest struct {
	Model         string             `json:"model"`
	Messages      []AnthropicMessage `json:"messages"`
	System        SystemPrompt       `json:"system,omitempty"`
	MaxTokens     *int64             `json:"max_tokens,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	Stream        *bool              `json:"stream,omitempty"`
	Tools         []Tool             `json:"tools,omitempty"`
	ToolChoice    ToolChoice         `json:"tool_choice,omitempty"`
}

// AnthropicResponse is the non-streaming /v1/messages response body.
type AnthropicResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// Usage mirrors Anthropic's token-count object.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// AnthropicError is the Anthropic error envelope.
type AnthropicError struct {
	Type  string              `json:"type"`
	Error AnthropicErrorInner `json:"error"`
}

// AnthropicErrorInner carries the error's taxonomy and message.
type AnthropicErrorInner struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
