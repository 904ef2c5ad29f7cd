package openai

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Chat Completions wire types.

// ChatRequest is an OpenAI chat completion request.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	Tools       []ChatTool    `json:"tools,omitempty"`
	ToolChoice  interface{}   `json:"tool_choice,omitempty"`
}

// ChatMessage is a message in Chat Completions format. Content is absent for
// assistant messages that only carry tool calls.
type ChatMessage struct {
	Role       string         `json:"role"`
	Content    *ChatContent   `json:"content,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
	ToolCalls  []ChatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// ChatContent is either a plain string or a list of content parts.
type ChatContent struct {
	Text  string
	Parts []ChatContentPart
}

// UnmarshalJSON accepts both the string and the part-array encoding.
func (c *ChatContent) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}
	return json.Unmarshal(data, &c.Parts)
}

// MarshalJSON re-emits whichever encoding is populated.
func (c ChatContent) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// JoinedText returns the textual content, concatenating text parts.
func (c *ChatContent) JoinedText() string {
	if c == nil {
		return ""
	}
	if c.Parts == nil {
		return c.Text
	}
	var out string
	for _, part := range c.Parts {
		if part.Type != "text" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += part.Text
	}
	return out
}

// ChatContentPart is one multimodal content part.
type ChatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *ChatImageURL `json:"image_url,omitempty"`
}

// ChatImageURL is the image payload of an image_url part.
type ChatImageURL struct {
	URL string `json:"url"`
}

// ChatToolCall is a tool invocation in an assistant message.
type ChatToolCall struct {
	// Index orders streamed tool call fragments. Absent in non-streaming
	// responses.
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function ChatFunction `json:"function"`
}

// ChatFunction is the function payload of a tool call. Arguments is a JSON
// string, possibly a fragment when streaming.
type ChatFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ChatTool is a tool definition.
type ChatTool struct {
	Type     string          `json:"type"`
	Function ChatFunctionDef `json:"function"`
}

// ChatFunctionDef describes a callable function.
type ChatFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatResponse is a non-streaming Chat Completions response.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// ChatChoice is one completion choice.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage is token accounting in Chat Completions format.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatStreamChunk is one SSE chunk of a streaming response.
type ChatStreamChunk struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []ChatStreamChoice `json:"choices"`
	Usage   *ChatUsage         `json:"usage,omitempty"`
}

// ChatStreamChoice is one choice inside a stream chunk.
type ChatStreamChoice struct {
	Index        int             `json:"index"`
	Delta        ChatStreamDelta `json:"delta"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// ChatStreamDelta is the incremental payload of a stream chunk. Reasoning
// models emit reasoning or reasoning_content alongside or instead of content.
type ChatStreamDelta struct {
	Role             string         `json:"role,omitempty"`
	Content          string         `json:"content,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
	ReasoningContent string         `json:"reasoning_content,omitempty"`
	ToolCalls        []ChatToolCall `json:"tool_calls,omitempty"`
}

// reasoningText returns whichever reasoning field the service populated.
func (d *ChatStreamDelta) reasoningText() string {
	if d.Reasoning != "" {
		return d.Reasoning
	}
	return d.ReasoningContent
}

// translateRequest converts a unified Messages request to Chat Completions
// format. Blocks the target format cannot represent are dropped with a
// warning rather than failing the request.
func translateRequest(req *providers.MessagesRequest) *ChatRequest {
	out := &ChatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
		Stream:      req.Stream,
	}

	if req.TopK != nil {
		slog.Debug("dropping top_k, chat completions has no equivalent")
	}
	if req.Thinking.Enabled() {
		slog.Debug("dropping thinking directive, chat completions has no equivalent")
	}

	if text := req.System.JoinedText(); text != "" {
		out.Messages = append(out.Messages, ChatMessage{
			Role:    "system",
			Content: &ChatContent{Text: text},
		})
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, translateMessage(msg)...)
	}

	for _, tool := range req.Tools {
		if tool.Type != "" {
			// Server tools (web search) have no function definition to send.
			slog.Debug("dropping server tool for chat completions", "tool", tool.Name, "type", tool.Type)
			continue
		}
		out.Tools = append(out.Tools, ChatTool{
			Type: "function",
			Function: ChatFunctionDef{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.InputSchema,
			},
		})
	}

	if choice := translateToolChoice(req.ToolChoice); choice != nil {
		out.ToolChoice = choice
	}

	return out
}

// translateMessage expands one unified message into its Chat Completions
// counterparts. Tool results become separate role "tool" messages.
func translateMessage(msg providers.Message) []ChatMessage {
	if msg.Content.Blocks == nil {
		return []ChatMessage{{
			Role:    msg.Role,
			Content: &ChatContent{Text: msg.Content.Text},
		}}
	}

	var parts []ChatContentPart
	var toolCalls []ChatToolCall
	var toolResults []ChatMessage

	for _, block := range msg.Content.Blocks {
		switch block.Type {
		case providers.ContentTypeText:
			parts = append(parts, ChatContentPart{Type: "text", Text: block.Text})

		case providers.ContentTypeImage:
			url := imageURL(block.Source)
			if url == "" {
				continue
			}
			parts = append(parts, ChatContentPart{
				Type:     "image_url",
				ImageURL: &ChatImageURL{URL: url},
			})

		case providers.ContentTypeToolUse:
			toolCalls = append(toolCalls, ChatToolCall{
				ID:   block.ID,
				Type: "function",
				Function: ChatFunction{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})

		case providers.ContentTypeToolResult:
			toolResults = append(toolResults, ChatMessage{
				Role:       "tool",
				Content:    &ChatContent{Text: toolResultText(block)},
				ToolCallID: block.ToolUseID,
			})

		case providers.ContentTypeThinking, providers.ContentTypeRedactedThinking:
			// No chat completions representation.

		default:
			slog.Debug("dropping unsupported content block", "type", block.Type)
		}
	}

	var out []ChatMessage

	if len(parts) > 0 || len(toolCalls) > 0 {
		m := ChatMessage{Role: msg.Role, ToolCalls: toolCalls}
		if len(parts) == 1 && parts[0].Type == "text" {
			// Single text part: use the string form for compatibility.
			m.Content = &ChatContent{Text: parts[0].Text}
		} else if len(parts) > 0 {
			m.Content = &ChatContent{Parts: parts}
		}
		out = append(out, m)
	}

	return append(out, toolResults...)
}

// imageURL converts an image source into a Chat Completions image URL,
// inlining base64 payloads as data URLs.
func imageURL(source *providers.ImageSource) string {
	if source == nil {
		return ""
	}
	if source.Type == "base64" {
		mediaType := source.MediaType
		if mediaType == "" {
			mediaType = "image/png"
		}
		return fmt.Sprintf("data:%s;base64,%s", mediaType, source.Data)
	}
	return source.URL
}

// toolResultText flattens a tool result payload to plain text. The payload
// is a string or a nested block array on the wire.
func toolResultText(block providers.ContentBlock) string {
	if len(block.Content) == 0 {
		return ""
	}
	if block.Content[0] == '"' {
		var s string
		if err := json.Unmarshal(block.Content, &s); err == nil {
			return s
		}
	}
	var nested []providers.ContentBlock
	if err := json.Unmarshal(block.Content, &nested); err == nil {
		var out string
		for _, b := range nested {
			if b.Type != providers.ContentTypeText {
				continue
			}
			if out != "" {
				out += "\n"
			}
			out += b.Text
		}
		return out
	}
	return string(block.Content)
}

// translateToolChoice maps the Anthropic tool_choice object to its Chat
// Completions counterpart. Unrecognized values are dropped.
func translateToolChoice(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}

	var choice struct {
		Type string `json:"type"`
		Name string `json:"name,omitempty"`
	}
	if err := json.Unmarshal(raw, &choice); err != nil {
		slog.Debug("dropping unparseable tool_choice", "error", err)
		return nil
	}

	switch choice.Type {
	case "auto":
		return "auto"
	case "any":
		return "required"
	case "none":
		return "none"
	case "tool":
		return map[string]interface{}{
			"type":     "function",
			"function": map[string]string{"name": choice.Name},
		}
	default:
		slog.Debug("dropping unknown tool_choice type", "type", choice.Type)
		return nil
	}
}

// translateResponse converts a Chat Completions response to the unified
// Messages shape.
func translateResponse(resp *ChatResponse, provider string) (*providers.MessagesResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, &providers.ParseError{
			Provider: provider,
			Cause:    fmt.Errorf("no choices in response"),
		}
	}

	choice := resp.Choices[0]

	var content []providers.ContentBlock

	// Reasoning models surface their reasoning in a dedicated field; map it
	// to a thinking block ahead of the answer.
	if choice.Message.Reasoning != "" {
		content = append(content, providers.ContentBlock{
			Type:     providers.ContentTypeThinking,
			Thinking: choice.Message.Reasoning,
		})
	}

	if text := choice.Message.Content.JoinedText(); text != "" {
		content = append(content, providers.ContentBlock{
			Type: providers.ContentTypeText,
			Text: text,
		})
	}

	for _, tc := range choice.Message.ToolCalls {
		content = append(content, providers.ContentBlock{
			Type:  providers.ContentTypeToolUse,
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: argumentsJSON(tc.Function.Arguments),
		})
	}

	// Some reasoning services put the entire answer in reasoning and leave
	// content empty. Surface it as the text reply in that case.
	if len(content) == 1 && content[0].Type == providers.ContentTypeThinking {
		content = []providers.ContentBlock{{
			Type: providers.ContentTypeText,
			Text: content[0].Thinking,
		}}
	}

	return &providers.MessagesResponse{
		ID:         resp.ID,
		Type:       "message",
		Role:       providers.RoleAssistant,
		Model:      resp.Model,
		Content:    content,
		StopReason: stopReason(choice.FinishReason),
		Usage: providers.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// argumentsJSON normalizes a tool call argument string into a JSON object.
func argumentsJSON(arguments string) json.RawMessage {
	if arguments == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	quoted, _ := json.Marshal(arguments)
	return quoted
}

// stopReason maps a Chat Completions finish reason to the unified stop
// reason. An absent finish reason defaults to end_turn.
func stopReason(finish string) string {
	switch finish {
	case "stop", "":
		return providers.StopEndTurn
	case "length":
		return providers.StopMaxTokens
	case "tool_calls", "function_call":
		return providers.StopToolUse
	default:
		return providers.StopEndTurn
	}
}
