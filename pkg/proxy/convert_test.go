package proxy

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
	"github.com/meta-introspector/claude-code-mux/pkg/providers/openai"
)

func chatText(s string) *openai.ChatContent {
	return &openai.ChatContent{Text: s}
}

func TestChatToMessages_Basic(t *testing.T) {
	temp := 0.7
	req := &openai.ChatRequest{
		Model: "claude-sonnet-4",
		Messages: []openai.ChatMessage{
			{Role: "system", Content: chatText("Be brief.")},
			{Role: "user", Content: chatText("Hello")},
		},
		Temperature: &temp,
		Stop:        []string{"END"},
	}

	out := ChatToMessages(req)

	if out.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q, want claude-sonnet-4", out.Model)
	}
	if out.System == nil || out.System.Text != "Be brief." {
		t.Errorf("System = %+v, want text Be brief.", out.System)
	}
	if len(out.Messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(out.Messages))
	}
	if out.Messages[0].Role != providers.RoleUser || out.Messages[0].Content.Text != "Hello" {
		t.Errorf("Message = %+v, want user Hello", out.Messages[0])
	}
	if out.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want default %d", out.MaxTokens, DefaultMaxTokens)
	}
	if out.Temperature == nil || *out.Temperature != 0.7 {
		t.Errorf("Temperature not carried over: %+v", out.Temperature)
	}
	if len(out.StopSequences) != 1 || out.StopSequences[0] != "END" {
		t.Errorf("StopSequences = %v, want [END]", out.StopSequences)
	}
}

func TestChatToMessages_ExplicitMaxTokens(t *testing.T) {
	req := &openai.ChatRequest{
		Model:     "claude-sonnet-4",
		MaxTokens: 256,
		Messages:  []openai.ChatMessage{{Role: "user", Content: chatText("Hi")}},
	}

	if out := ChatToMessages(req); out.MaxTokens != 256 {
		t.Errorf("MaxTokens = %d, want 256", out.MaxTokens)
	}
}

func TestChatToMessages_ToolHistory(t *testing.T) {
	req := &openai.ChatRequest{
		Model: "claude-sonnet-4",
		Messages: []openai.ChatMessage{
			{Role: "user", Content: chatText("What's the weather in Boston and Berlin?")},
			{
				Role:    "assistant",
				Content: chatText("Checking both."),
				ToolCalls: []openai.ChatToolCall{
					{ID: "call_1", Type: "function", Function: openai.ChatFunction{Name: "get_weather", Arguments: `{"city":"Boston"}`}},
					{ID: "call_2", Type: "function", Function: openai.ChatFunction{Name: "get_weather", Arguments: `{"city":"Berlin"}`}},
				},
			},
			{Role: "tool", ToolCallID: "call_1", Content: chatText("58F, cloudy")},
			{Role: "tool", ToolCallID: "call_2", Content: chatText("12C, raining")},
		},
	}

	out := ChatToMessages(req)

	if len(out.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(out.Messages))
	}

	assistant := out.Messages[1]
	if assistant.Role != providers.RoleAssistant {
		t.Errorf("Role = %q, want assistant", assistant.Role)
	}
	blocks := assistant.Content.Blocks
	if len(blocks) != 3 {
		t.Fatalf("Expected text + 2 tool_use blocks, got %d", len(blocks))
	}
	if blocks[0].Type != providers.ContentTypeText || blocks[0].Text != "Checking both." {
		t.Errorf("First block = %+v, want text Checking both.", blocks[0])
	}
	if blocks[1].Type != providers.ContentTypeToolUse || blocks[1].ID != "call_1" || blocks[1].Name != "get_weather" {
		t.Errorf("Tool use block = %+v", blocks[1])
	}
	if string(blocks[1].Input) != `{"city":"Boston"}` {
		t.Errorf("Tool input = %s", blocks[1].Input)
	}

	// Consecutive tool results collapse into one user turn.
	results := out.Messages[2]
	if results.Role != providers.RoleUser {
		t.Errorf("Results role = %q, want user", results.Role)
	}
	if len(results.Content.Blocks) != 2 {
		t.Fatalf("Expected 2 tool_result blocks, got %d", len(results.Content.Blocks))
	}
	first := results.Content.Blocks[0]
	if first.Type != providers.ContentTypeToolResult || first.ToolUseID != "call_1" {
		t.Errorf("Tool result = %+v", first)
	}
	var resultText string
	if err := json.Unmarshal(first.Content, &resultText); err != nil || resultText != "58F, cloudy" {
		t.Errorf("Result content = %s, want JSON string 58F, cloudy", first.Content)
	}
}

func TestChatToMessages_Multimodal(t *testing.T) {
	req := &openai.ChatRequest{
		Model: "claude-sonnet-4",
		Messages: []openai.ChatMessage{
			{
				Role: "user",
				Content: &openai.ChatContent{
					Parts: []openai.ChatContentPart{
						{Type: "text", Text: "What's in this image?"},
						{Type: "image_url", ImageURL: &openai.ChatImageURL{URL: "data:image/png;base64,iVBORw0KGgo="}},
						{Type: "image_url", ImageURL: &openai.ChatImageURL{URL: "https://example.com/chart.png"}},
					},
				},
			},
		},
	}

	out := ChatToMessages(req)

	blocks := out.Messages[0].Content.Blocks
	if len(blocks) != 3 {
		t.Fatalf("Expected 3 blocks, got %d", len(blocks))
	}
	if blocks[0].Type != providers.ContentTypeText {
		t.Errorf("Block 0 type = %q, want text", blocks[0].Type)
	}

	inline := blocks[1].Source
	if inline == nil || inline.Type != "base64" || inline.MediaType != "image/png" || inline.Data != "iVBORw0KGgo=" {
		t.Errorf("Inline image source = %+v", inline)
	}

	linked := blocks[2].Source
	if linked == nil || linked.Type != "url" || linked.URL != "https://example.com/chart.png" {
		t.Errorf("Linked image source = %+v", linked)
	}
}

func TestChatToMessages_Tools(t *testing.T) {
	req := &openai.ChatRequest{
		Model:    "claude-sonnet-4",
		Messages: []openai.ChatMessage{{Role: "user", Content: chatText("Hi")}},
		Tools: []openai.ChatTool{{
			Type: "function",
			Function: openai.ChatFunctionDef{
				Name:        "get_weather",
				Description: "Look up the weather",
				Parameters:  json.RawMessage(`{"type":"object"}`),
			},
		}},
	}

	out := ChatToMessages(req)

	if len(out.Tools) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(out.Tools))
	}
	tool := out.Tools[0]
	if tool.Name != "get_weather" || tool.Description != "Look up the weather" {
		t.Errorf("Tool = %+v", tool)
	}
	if string(tool.InputSchema) != `{"type":"object"}` {
		t.Errorf("InputSchema = %s", tool.InputSchema)
	}
}

func TestChatToMessages_ToolChoice(t *testing.T) {
	tests := []struct {
		name   string
		choice interface{}
		want   string
	}{
		{"auto", "auto", `{"type":"auto"}`},
		{"required", "required", `{"type":"any"}`},
		{"none", "none", `{"type":"none"}`},
		{
			"named function",
			map[string]interface{}{"type": "function", "function": map[string]interface{}{"name": "get_weather"}},
			`{"name":"get_weather","type":"tool"}`,
		},
		{"unknown string", "sometimes", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &openai.ChatRequest{
				Model:      "claude-sonnet-4",
				Messages:   []openai.ChatMessage{{Role: "user", Content: chatText("Hi")}},
				ToolChoice: tt.choice,
			}

			out := ChatToMessages(req)

			if tt.want == "" {
				if out.ToolChoice != nil {
					t.Errorf("ToolChoice = %s, want dropped", out.ToolChoice)
				}
				return
			}
			if string(out.ToolChoice) != tt.want {
				t.Errorf("ToolChoice = %s, want %s", out.ToolChoice, tt.want)
			}
		})
	}
}

func TestMessagesToChat(t *testing.T) {
	resp := &providers.MessagesResponse{
		ID:         "msg_01",
		Type:       "message",
		Role:       providers.RoleAssistant,
		Model:      "claude-sonnet-4-upstream",
		StopReason: providers.StopToolUse,
		Content: []providers.ContentBlock{
			{Type: providers.ContentTypeThinking, Thinking: "Needs a lookup."},
			{Type: providers.ContentTypeText, Text: "Let me check."},
			{Type: providers.ContentTypeToolUse, ID: "toolu_1", Name: "get_weather", Input: json.RawMessage(`{"city":"Boston"}`)},
		},
		Usage: providers.Usage{InputTokens: 10, OutputTokens: 20},
	}

	out := MessagesToChat(resp, "claude-sonnet-4")

	if out.ID != "chatcmpl-msg_01" {
		t.Errorf("ID = %q, want chatcmpl-msg_01", out.ID)
	}
	if out.Object != "chat.completion" {
		t.Errorf("Object = %q, want chat.completion", out.Object)
	}
	if out.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q, want the requested name echoed back", out.Model)
	}
	if len(out.Choices) != 1 {
		t.Fatalf("Expected 1 choice, got %d", len(out.Choices))
	}

	choice := out.Choices[0]
	if choice.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls", choice.FinishReason)
	}
	if choice.Message.Content == nil || choice.Message.Content.Text != "Let me check." {
		t.Errorf("Content = %+v", choice.Message.Content)
	}
	if choice.Message.Reasoning != "Needs a lookup." {
		t.Errorf("Reasoning = %q", choice.Message.Reasoning)
	}
	if len(choice.Message.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(choice.Message.ToolCalls))
	}
	tc := choice.Message.ToolCalls[0]
	if tc.ID != "toolu_1" || tc.Function.Name != "get_weather" || tc.Function.Arguments != `{"city":"Boston"}` {
		t.Errorf("ToolCall = %+v", tc)
	}

	if out.Usage.PromptTokens != 10 || out.Usage.CompletionTokens != 20 || out.Usage.TotalTokens != 30 {
		t.Errorf("Usage = %+v", out.Usage)
	}
}

func TestFinishReason(t *testing.T) {
	tests := []struct {
		stop string
		want string
	}{
		{providers.StopEndTurn, "stop"},
		{providers.StopStopSequence, "stop"},
		{providers.StopMaxTokens, "length"},
		{providers.StopToolUse, "tool_calls"},
		{"", "stop"},
	}

	for _, tt := range tests {
		if got := finishReason(tt.stop); got != tt.want {
			t.Errorf("finishReason(%q) = %q, want %q", tt.stop, got, tt.want)
		}
	}
}

func streamEvent(eventType, data string) *providers.StreamEvent {
	return &providers.StreamEvent{Type: eventType, Data: json.RawMessage(data)}
}

func TestStreamTranslator_Text(t *testing.T) {
	tr := NewStreamTranslator("claude-sonnet-4")

	events := []*providers.StreamEvent{
		streamEvent(providers.EventMessageStart,
			`{"type":"message_start","message":{"id":"msg_01","usage":{"input_tokens":10,"output_tokens":1}}}`),
		streamEvent(providers.EventContentBlockStart,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		streamEvent(providers.EventContentBlockDelta,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`),
		streamEvent(providers.EventContentBlockDelta,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`),
		streamEvent(providers.EventContentBlockStop, `{"type":"content_block_stop","index":0}`),
		streamEvent(providers.EventMessageDelta,
			`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`),
		streamEvent(providers.EventMessageStop, `{"type":"message_stop"}`),
	}

	var chunks []*openai.ChatStreamChunk
	for _, ev := range events {
		chunks = append(chunks, tr.Translate(ev)...)
	}

	// Role chunk, two content chunks, finish chunk.
	if len(chunks) != 4 {
		t.Fatalf("Expected 4 chunks, got %d", len(chunks))
	}

	if chunks[0].Choices[0].Delta.Role != providers.RoleAssistant {
		t.Errorf("First chunk role = %q, want assistant", chunks[0].Choices[0].Delta.Role)
	}
	if chunks[0].ID != "chatcmpl-msg_01" {
		t.Errorf("Chunk ID = %q, want chatcmpl-msg_01", chunks[0].ID)
	}
	if chunks[0].Object != "chat.completion.chunk" {
		t.Errorf("Object = %q", chunks[0].Object)
	}

	var text strings.Builder
	for _, c := range chunks {
		text.WriteString(c.Choices[0].Delta.Content)
	}
	if text.String() != "Hello" {
		t.Errorf("Assembled text = %q, want Hello", text.String())
	}

	final := chunks[len(chunks)-1]
	if final.Choices[0].FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", final.Choices[0].FinishReason)
	}
	if final.Usage == nil || final.Usage.PromptTokens != 10 || final.Usage.CompletionTokens != 5 || final.Usage.TotalTokens != 15 {
		t.Errorf("Usage = %+v", final.Usage)
	}
}

func TestStreamTranslator_ToolCalls(t *testing.T) {
	tr := NewStreamTranslator("claude-sonnet-4")

	events := []*providers.StreamEvent{
		streamEvent(providers.EventMessageStart,
			`{"type":"message_start","message":{"id":"msg_02","usage":{"input_tokens":30,"output_tokens":1}}}`),
		streamEvent(providers.EventContentBlockStart,
			`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{}}}`),
		streamEvent(providers.EventContentBlockDelta,
			`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"city\":"}}`),
		streamEvent(providers.EventContentBlockDelta,
			`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"\"Boston\"}"}}`),
		streamEvent(providers.EventMessageDelta,
			`{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":12}}`),
	}

	var chunks []*openai.ChatStreamChunk
	for _, ev := range events {
		chunks = append(chunks, tr.Translate(ev)...)
	}

	if len(chunks) != 5 {
		t.Fatalf("Expected 5 chunks, got %d", len(chunks))
	}

	opener := chunks[1].Choices[0].Delta.ToolCalls
	if len(opener) != 1 {
		t.Fatalf("Expected 1 tool call in opener, got %d", len(opener))
	}
	if opener[0].ID != "toolu_1" || opener[0].Function.Name != "get_weather" {
		t.Errorf("Opener = %+v", opener[0])
	}
	if opener[0].Index == nil || *opener[0].Index != 0 {
		t.Errorf("Opener index = %v, want 0", opener[0].Index)
	}

	var args strings.Builder
	for _, c := range chunks[2:4] {
		for _, tc := range c.Choices[0].Delta.ToolCalls {
			args.WriteString(tc.Function.Arguments)
		}
	}
	if args.String() != `{"city":"Boston"}` {
		t.Errorf("Assembled arguments = %q", args.String())
	}

	final := chunks[4]
	if final.Choices[0].FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q, want tool_calls", final.Choices[0].FinishReason)
	}
}

func TestStreamTranslator_Thinking(t *testing.T) {
	tr := NewStreamTranslator("claude-sonnet-4")

	tr.Translate(streamEvent(providers.EventMessageStart,
		`{"type":"message_start","message":{"id":"msg_03","usage":{"input_tokens":5,"output_tokens":1}}}`))
	tr.Translate(streamEvent(providers.EventContentBlockStart,
		`{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":""}}`))

	chunks := tr.Translate(streamEvent(providers.EventContentBlockDelta,
		`{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"Two plus two"}}`))

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Choices[0].Delta.Reasoning != "Two plus two" {
		t.Errorf("Reasoning = %q", chunks[0].Choices[0].Delta.Reasoning)
	}
}

func TestStreamTranslator_IgnoresPing(t *testing.T) {
	tr := NewStreamTranslator("claude-sonnet-4")

	if chunks := tr.Translate(streamEvent(providers.EventPing, `{"type":"ping"}`)); chunks != nil {
		t.Errorf("Expected no chunks for ping, got %d", len(chunks))
	}
}
