package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// maxLineSize bounds one SSE line. Argument fragments for large tool calls
// can exceed the bufio default.
const maxLineSize = 1024 * 1024

// streamReader reads "data:" lines from a Chat Completions SSE stream.
type streamReader struct {
	resp    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool

	// done records whether the [DONE] sentinel was read.
	done bool
}

// newStreamReader opens the upstream stream. An error return means the
// upstream rejected the request before any response bytes.
func newStreamReader(ctx context.Context, a *Adapter, url string, req *ChatRequest, headers map[string]string) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := a.Do(ctx, "POST", url, bodyBytes, headers)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	return &streamReader{
		resp:    resp.Body,
		scanner: scanner,
	}, nil
}

// next returns the next chunk payload. Returns io.EOF at the [DONE] sentinel
// or when the upstream closes the stream.
func (s *streamReader) next() ([]byte, error) {
	if s.closed {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}
		if data == "" {
			continue
		}
		return []byte(data), nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Close()
}

// synthesizer converts Chat Completions chunks into Messages stream events.
// Chat streams have no block structure, so it opens and closes content
// blocks as the delta kinds change: reasoning deltas feed a thinking block,
// content deltas a text block, and each tool call gets a tool_use block.
type synthesizer struct {
	provider string

	started  bool
	open     int    // index of the open content block, -1 when none
	openKind string // text, thinking or tool
	openTool int    // chat tool call index backing the open tool block
	next     int    // next block index to allocate

	finish string
	usage  *ChatUsage
}

func newSynthesizer(provider string) *synthesizer {
	return &synthesizer{provider: provider, open: -1}
}

// event wraps a payload into a stream event of the given type.
func event(eventType string, payload interface{}) *providers.StreamEvent {
	data, _ := json.Marshal(payload)
	return &providers.StreamEvent{Type: eventType, Data: data}
}

// process converts one chunk into zero or more events.
func (y *synthesizer) process(chunk *ChatStreamChunk) []*providers.StreamEvent {
	var out []*providers.StreamEvent

	if !y.started {
		y.started = true
		out = append(out, event(providers.EventMessageStart, map[string]interface{}{
			"type": providers.EventMessageStart,
			"message": map[string]interface{}{
				"id":      chunk.ID,
				"type":    "message",
				"role":    providers.RoleAssistant,
				"model":   chunk.Model,
				"content": []interface{}{},
				"usage":   map[string]int{"input_tokens": 0, "output_tokens": 0},
			},
		}))
	}

	if chunk.Usage != nil {
		y.usage = chunk.Usage
	}
	if len(chunk.Choices) == 0 {
		return out
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if reasoning := delta.reasoningText(); reasoning != "" {
		out = append(out, y.ensureBlock("thinking", 0, map[string]interface{}{
			"type":     providers.ContentTypeThinking,
			"thinking": "",
		})...)
		out = append(out, event(providers.EventContentBlockDelta, map[string]interface{}{
			"type":  providers.EventContentBlockDelta,
			"index": y.open,
			"delta": map[string]string{"type": "thinking_delta", "thinking": reasoning},
		}))
	}

	if delta.Content != "" {
		out = append(out, y.ensureBlock("text", 0, map[string]interface{}{
			"type": providers.ContentTypeText,
			"text": "",
		})...)
		out = append(out, event(providers.EventContentBlockDelta, map[string]interface{}{
			"type":  providers.EventContentBlockDelta,
			"index": y.open,
			"delta": map[string]string{"type": "text_delta", "text": delta.Content},
		}))
	}

	for i, tc := range delta.ToolCalls {
		toolIdx := i
		if tc.Index != nil {
			toolIdx = *tc.Index
		}

		out = append(out, y.ensureBlock("tool", toolIdx, map[string]interface{}{
			"type":  providers.ContentTypeToolUse,
			"id":    tc.ID,
			"name":  tc.Function.Name,
			"input": map[string]interface{}{},
		})...)

		if tc.Function.Arguments != "" {
			out = append(out, event(providers.EventContentBlockDelta, map[string]interface{}{
				"type":  providers.EventContentBlockDelta,
				"index": y.open,
				"delta": map[string]string{"type": "input_json_delta", "partial_json": tc.Function.Arguments},
			}))
		}
	}

	if choice.FinishReason != "" {
		y.finish = choice.FinishReason
	}

	return out
}

// ensureBlock opens a block of the wanted kind, closing the previous one
// first. Returns no events when the right block is already open.
func (y *synthesizer) ensureBlock(kind string, toolIdx int, block map[string]interface{}) []*providers.StreamEvent {
	if y.open >= 0 && y.openKind == kind && (kind != "tool" || y.openTool == toolIdx) {
		return nil
	}

	var out []*providers.StreamEvent
	out = append(out, y.closeBlock()...)

	out = append(out, event(providers.EventContentBlockStart, map[string]interface{}{
		"type":          providers.EventContentBlockStart,
		"index":         y.next,
		"content_block": block,
	}))

	y.open = y.next
	y.openKind = kind
	y.openTool = toolIdx
	y.next++

	return out
}

// closeBlock emits the stop event for the open block, if any.
func (y *synthesizer) closeBlock() []*providers.StreamEvent {
	if y.open < 0 {
		return nil
	}
	ev := event(providers.EventContentBlockStop, map[string]interface{}{
		"type":  providers.EventContentBlockStop,
		"index": y.open,
	})
	y.open = -1
	return []*providers.StreamEvent{ev}
}

// finalize closes the open block and emits message_delta and message_stop.
func (y *synthesizer) finalize() []*providers.StreamEvent {
	out := y.closeBlock()

	outputTokens := 0
	if y.usage != nil {
		outputTokens = y.usage.CompletionTokens
	}

	out = append(out, event(providers.EventMessageDelta, map[string]interface{}{
		"type": providers.EventMessageDelta,
		"delta": map[string]interface{}{
			"stop_reason":   stopReason(y.finish),
			"stop_sequence": nil,
		},
		"usage": map[string]int{"output_tokens": outputTokens},
	}))

	return append(out, event(providers.EventMessageStop, map[string]interface{}{
		"type": providers.EventMessageStop,
	}))
}

// relayChat drives the reader through the synthesizer until the stream ends.
// A failure after the first delivered event is reported as a started stream
// error so the dispatcher never retries it elsewhere.
func relayChat(ctx context.Context, reader *streamReader, events chan<- *providers.StreamEvent, syn *synthesizer) {
	delivered := false

	flush := func(evs []*providers.StreamEvent) bool {
		for _, ev := range evs {
			select {
			case events <- ev:
				delivered = true
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	fail := func(msg string, cause error) {
		select {
		case events <- &providers.StreamEvent{
			Type: providers.EventError,
			Error: &providers.StreamError{
				Provider: syn.provider,
				Message:  msg,
				Started:  delivered,
				Cause:    cause,
			},
		}:
		case <-ctx.Done():
		}
	}

	for {
		data, err := reader.next()
		if err != nil {
			if err != io.EOF {
				fail("failed to read stream", err)
				return
			}
			// A finish reason or the [DONE] sentinel marks a complete
			// stream; anything else ended early.
			if reader.done || syn.finish != "" {
				flush(syn.finalize())
			} else {
				fail("stream ended before completion", nil)
			}
			return
		}

		var chunk ChatStreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			fail("malformed stream chunk", err)
			return
		}

		if !flush(syn.process(&chunk)) {
			return
		}
	}
}
