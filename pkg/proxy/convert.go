package proxy

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
	"github.com/meta-introspector/claude-code-mux/pkg/providers/openai"
)

// DefaultMaxTokens is the generation budget used when a Chat Completions
// request omits max_tokens. The Messages schema requires one.
const DefaultMaxTokens = 4096

// ChatToMessages converts an inbound Chat Completions request to the
// unified Messages shape the gateway routes. System and developer messages
// become the system prompt, tool messages become tool_result blocks, and
// assistant tool calls become tool_use blocks.
func ChatToMessages(req *openai.ChatRequest) *providers.MessagesRequest {
	out := &providers.MessagesRequest{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        req.Stream,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = DefaultMaxTokens
	}

	var system []string

	msgs := req.Messages
	for i := 0; i < len(msgs); {
		msg := msgs[i]
		switch msg.Role {
		case "system", "developer":
			if text := msg.Content.JoinedText(); text != "" {
				system = append(system, text)
			}
			i++

		case "tool":
			// Consecutive tool results belong to one user turn.
			var blocks []providers.ContentBlock
			for i < len(msgs) && msgs[i].Role == "tool" {
				blocks = append(blocks, toolResultBlock(msgs[i]))
				i++
			}
			out.Messages = append(out.Messages, providers.Message{
				Role:    providers.RoleUser,
				Content: providers.MessageContent{Blocks: blocks},
			})

		case providers.RoleAssistant:
			out.Messages = append(out.Messages, assistantMessage(msg))
			i++

		default:
			out.Messages = append(out.Messages, userMessage(msg))
			i++
		}
	}

	if len(system) > 0 {
		out.System = &providers.SystemPrompt{Text: strings.Join(system, "\n")}
	}

	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, providers.Tool{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: tool.Function.Parameters,
		})
	}

	if choice := messagesToolChoice(req.ToolChoice); choice != nil {
		out.ToolChoice = choice
	}

	return out
}

// userMessage converts a user turn, expanding multimodal parts into
// content blocks.
func userMessage(msg openai.ChatMessage) providers.Message {
	if msg.Content == nil || msg.Content.Parts == nil {
		return providers.Message{
			Role:    providers.RoleUser,
			Content: providers.Text(msg.Content.JoinedText()),
		}
	}

	var blocks []providers.ContentBlock
	for _, part := range msg.Content.Parts {
		switch part.Type {
		case "text":
			blocks = append(blocks, providers.ContentBlock{
				Type: providers.ContentTypeText,
				Text: part.Text,
			})
		case "image_url":
			if part.ImageURL == nil {
				continue
			}
			blocks = append(blocks, providers.ContentBlock{
				Type:   providers.ContentTypeImage,
				Source: imageSource(part.ImageURL.URL),
			})
		}
	}

	return providers.Message{
		Role:    providers.RoleUser,
		Content: providers.MessageContent{Blocks: blocks},
	}
}

// assistantMessage converts an assistant turn. Tool calls become tool_use
// blocks; reasoning has no unified history representation and is dropped.
func assistantMessage(msg openai.ChatMessage) providers.Message {
	text := msg.Content.JoinedText()

	if len(msg.ToolCalls) == 0 {
		return providers.Message{
			Role:    providers.RoleAssistant,
			Content: providers.Text(text),
		}
	}

	var blocks []providers.ContentBlock
	if text != "" {
		blocks = append(blocks, providers.ContentBlock{
			Type: providers.ContentTypeText,
			Text: text,
		})
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, providers.ContentBlock{
			Type:  providers.ContentTypeToolUse,
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: toolArguments(tc.Function.Arguments),
		})
	}

	return providers.Message{
		Role:    providers.RoleAssistant,
		Content: providers.MessageContent{Blocks: blocks},
	}
}

// toolResultBlock converts a tool message into a tool_result block.
func toolResultBlock(msg openai.ChatMessage) providers.ContentBlock {
	content, _ := json.Marshal(msg.Content.JoinedText())
	return providers.ContentBlock{
		Type:      providers.ContentTypeToolResult,
		ToolUseID: msg.ToolCallID,
		Content:   content,
	}
}

// imageSource converts an image URL into the unified image source,
// unpacking data URLs into base64 payloads.
func imageSource(url string) *providers.ImageSource {
	if rest, ok := strings.CutPrefix(url, "data:"); ok {
		if mediaType, data, ok := strings.Cut(rest, ";base64,"); ok {
			return &providers.ImageSource{
				Type:      "base64",
				MediaType: mediaType,
				Data:      data,
			}
		}
	}
	return &providers.ImageSource{Type: "url", URL: url}
}

// toolArguments normalizes a tool call argument string into a JSON object.
func toolArguments(arguments string) json.RawMessage {
	if arguments == "" {
		return json.RawMessage(`{}`)
	}
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	quoted, _ := json.Marshal(arguments)
	return quoted
}

// messagesToolChoice maps a Chat Completions tool_choice to the Messages
// shape. Unrecognized values are dropped.
func messagesToolChoice(choice interface{}) json.RawMessage {
	switch v := choice.(type) {
	case string:
		switch v {
		case "auto":
			return json.RawMessage(`{"type":"auto"}`)
		case "required":
			return json.RawMessage(`{"type":"any"}`)
		case "none":
			return json.RawMessage(`{"type":"none"}`)
		}
	case map[string]interface{}:
		fn, ok := v["function"].(map[string]interface{})
		if !ok {
			return nil
		}
		name, ok := fn["name"].(string)
		if !ok {
			return nil
		}
		out, _ := json.Marshal(map[string]string{"type": "tool", "name": name})
		return out
	}
	return nil
}

// MessagesToChat converts a unified response to Chat Completions format.
// model is the name the client requested, echoed back as OpenAI services
// do.
func MessagesToChat(resp *providers.MessagesResponse, model string) *openai.ChatResponse {
	msg := openai.ChatMessage{Role: providers.RoleAssistant}

	var text, reasoning string
	for _, block := range resp.Content {
		switch block.Type {
		case providers.ContentTypeText:
			if text != "" {
				text += "\n"
			}
			text += block.Text

		case providers.ContentTypeThinking:
			if reasoning != "" {
				reasoning += "\n"
			}
			reasoning += block.Thinking

		case providers.ContentTypeToolUse:
			msg.ToolCalls = append(msg.ToolCalls, openai.ChatToolCall{
				ID:   block.ID,
				Type: "function",
				Function: openai.ChatFunction{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}

	if text != "" {
		msg.Content = &openai.ChatContent{Text: text}
	}
	msg.Reasoning = reasoning

	return &openai.ChatResponse{
		ID:      chatID(resp.ID),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.ChatChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: finishReason(resp.StopReason),
		}},
		Usage: openai.ChatUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

// chatID prefixes an upstream message ID in the Chat Completions style.
func chatID(id string) string {
	return "chatcmpl-" + id
}

// finishReason maps a unified stop reason to a Chat Completions finish
// reason.
func finishReason(stop string) string {
	switch stop {
	case providers.StopMaxTokens:
		return "length"
	case providers.StopToolUse:
		return "tool_calls"
	default:
		return "stop"
	}
}

// streamPayload is the subset of a Messages API stream event payload the
// translator reads.
type streamPayload struct {
	Message *struct {
		ID    string          `json:"id"`
		Usage providers.Usage `json:"usage"`
	} `json:"message"`
	Index        int                     `json:"index"`
	ContentBlock *providers.ContentBlock `json:"content_block"`
	Delta        *streamDelta            `json:"delta"`
	Usage        *providers.Usage        `json:"usage"`
}

// streamDelta is a content_block_delta or message_delta payload.
type streamDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Thinking    string `json:"thinking"`
	PartialJSON string `json:"partial_json"`
	StopReason  string `json:"stop_reason"`
}

// StreamTranslator converts unified stream events to Chat Completions
// chunks for the OpenAI-compatible surface. One translator serves one
// stream; it is not safe for concurrent use.
type StreamTranslator struct {
	id      string
	model   string
	created int64

	// tool content block index -> chat tool call index
	tools     map[int]int
	toolCount int

	usage providers.Usage
}

// NewStreamTranslator creates a translator for one stream. model is the
// name the client requested.
func NewStreamTranslator(model string) *StreamTranslator {
	return &StreamTranslator{
		model:   model,
		created: time.Now().Unix(),
		tools:   make(map[int]int),
	}
}

// Translate converts one unified event into zero or more Chat Completions
// chunks. Terminal error events are not handled here; the caller reports
// them in its own framing.
func (t *StreamTranslator) Translate(ev *providers.StreamEvent) []*openai.ChatStreamChunk {
	var payload streamPayload
	if len(ev.Data) > 0 {
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return nil
		}
	}

	switch ev.Type {
	case providers.EventMessageStart:
		if payload.Message != nil {
			t.id = chatID(payload.Message.ID)
			t.usage.InputTokens = payload.Message.Usage.InputTokens
		}
		return []*openai.ChatStreamChunk{
			t.chunk(openai.ChatStreamDelta{Role: providers.RoleAssistant}),
		}

	case providers.EventContentBlockStart:
		block := payload.ContentBlock
		if block == nil || block.Type != providers.ContentTypeToolUse {
			return nil
		}
		idx := t.toolCount
		t.toolCount++
		t.tools[payload.Index] = idx
		return []*openai.ChatStreamChunk{
			t.chunk(openai.ChatStreamDelta{
				ToolCalls: []openai.ChatToolCall{{
					Index: &idx,
					ID:    block.ID,
					Type:  "function",
					Function: openai.ChatFunction{
						Name: block.Name,
					},
				}},
			}),
		}

	case providers.EventContentBlockDelta:
		if payload.Delta == nil {
			return nil
		}
		switch payload.Delta.Type {
		case "text_delta":
			return []*openai.ChatStreamChunk{
				t.chunk(openai.ChatStreamDelta{Content: payload.Delta.Text}),
			}
		case "thinking_delta":
			return []*openai.ChatStreamChunk{
				t.chunk(openai.ChatStreamDelta{Reasoning: payload.Delta.Thinking}),
			}
		case "input_json_delta":
			idx, ok := t.tools[payload.Index]
			if !ok {
				return nil
			}
			return []*openai.ChatStreamChunk{
				t.chunk(openai.ChatStreamDelta{
					ToolCalls: []openai.ChatToolCall{{
						Index:    &idx,
						Function: openai.ChatFunction{Arguments: payload.Delta.PartialJSON},
					}},
				}),
			}
		}
		return nil

	case providers.EventMessageDelta:
		finish := "stop"
		if payload.Delta != nil {
			finish = finishReason(payload.Delta.StopReason)
		}
		if payload.Usage != nil {
			t.usage.OutputTokens = payload.Usage.OutputTokens
		}
		final := t.chunk(openai.ChatStreamDelta{})
		final.Choices[0].FinishReason = finish
		final.Usage = &openai.ChatUsage{
			PromptTokens:     t.usage.InputTokens,
			CompletionTokens: t.usage.OutputTokens,
			TotalTokens:      t.usage.InputTokens + t.usage.OutputTokens,
		}
		return []*openai.ChatStreamChunk{final}
	}

	// message_stop, content_block_stop and ping have no chat equivalent.
	return nil
}

// chunk builds a chunk envelope around one delta.
func (t *StreamTranslator) chunk(delta openai.ChatStreamDelta) *openai.ChatStreamChunk {
	return &openai.ChatStreamChunk{
		ID:      t.id,
		Object:  "chat.completion.chunk",
		Created: t.created,
		Model:   t.model,
		Choices: []openai.ChatStreamChoice{{Index: 0, Delta: delta}},
	}
}
