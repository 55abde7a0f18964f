package llm

import (
	"encoding/json"
	"strings"
)

// Message is one entry of the chat-completion conversation. Content is
// either a plain string or an ordered []ContentPart for multimodal
// turns; tool-result messages additionally carry the tool call id and
// function name they answer.
type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ContentPart is one typed segment of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references image content, usually as a data URI.
type ImageURL struct {
	URL string `json:"url"`
}

// Text builds a plain-text message.
func Text(role, content string) Message {
	return Message{Role: role, Content: content}
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part from a data URI.
func ImagePart(dataURI string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: dataURI}}
}

// ToolCall is a structured request from the model to invoke a named
// function. Arguments is the raw string the provider sent and may not
// be valid JSON.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the function name and raw JSON arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a tool exposed to the model.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction names a tool function.
type ToolFunction struct {
	Name string `json:"name"`
}

// AssistantMessage is the provider's view of one assistant turn. The
// content is kept as raw JSON so it can be echoed back verbatim when
// the tool loop continues the conversation.
type AssistantMessage struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	ToolCalls []ToolCall      `json:"tool_calls,omitempty"`
}

// Text extracts the plain-text content of the assistant message:
// string content verbatim, or the newline-joined text parts of a
// structured content list, trimmed. Returns "" when there is no text.
func (m *AssistantMessage) Text() string {
	if len(m.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var parts []ContentPart
	if err := json.Unmarshal(m.Content, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			if part.Type == "text" && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		return strings.TrimSpace(strings.Join(texts, "\n"))
	}
	return ""
}

// AsMessage converts the assistant turn into a Message that marshals
// back to the exact content the provider produced.
func (m *AssistantMessage) AsMessage() Message {
	content := any(m.Content)
	if len(m.Content) == 0 {
		content = ""
	}
	return Message{
		Role:      "assistant",
		Content:   content,
		ToolCalls: m.ToolCalls,
	}
}

// Choice is one completion choice from the provider.
type Choice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

// completionRequest is the chat-completions request body.
type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"`
}

// completionResponse is the chat-completions response body.
type completionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Usage reports provider token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
