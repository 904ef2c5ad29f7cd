package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// collectEvents drains the stream channel until it closes.
func collectEvents(t *testing.T, events <-chan *providers.StreamEvent) []*providers.StreamEvent {
	t.Helper()

	var got []*providers.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("timed out waiting for stream events")
		}
	}
}

func sseHandler(t *testing.T, write func(event func(typ, data string))) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req providers.MessagesRequest
		if err := jsonDecode(r, &req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if !req.Stream {
			t.Error("stream flag not set on upstream request")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		write(func(typ, data string) {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", typ, data)
			flusher.Flush()
		})
	}
}

func jsonDecode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func TestStreamRelaysEvents(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, func(event func(typ, data string)) {
		event("message_start", `{"type":"message_start","message":{"id":"msg_01","usage":{"input_tokens":10}}}`)
		event("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)
		event("ping", `{"type":"ping"}`)
		event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`)
		event("content_block_stop", `{"type":"content_block_stop","index":0}`)
		event("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`)
		event("message_stop", `{"type":"message_stop"}`)
	}))
	defer server.Close()

	a, err := New(testConfig(server.URL), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	events, err := a.Stream(context.Background(), testRequest(), apiKeyCred())
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	got := collectEvents(t, events)

	wantTypes := []string{
		providers.EventMessageStart,
		providers.EventContentBlockStart,
		providers.EventPing,
		providers.EventContentBlockDelta,
		providers.EventContentBlockStop,
		providers.EventMessageDelta,
		providers.EventMessageStop,
	}
	if len(got) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(got), len(wantTypes))
	}
	for i, ev := range got {
		if ev.Type != wantTypes[i] {
			t.Errorf("event %d type = %q, want %q", i, ev.Type, wantTypes[i])
		}
		if ev.Error != nil {
			t.Errorf("event %d carries error: %v", i, ev.Error)
		}
	}

	// Payloads pass through byte for byte.
	if !strings.Contains(string(got[0].Data), `"msg_01"`) {
		t.Errorf("message_start data = %s", got[0].Data)
	}
	if !strings.Contains(string(got[3].Data), `"Hello"`) {
		t.Errorf("delta data = %s", got[3].Data)
	}
}

func TestStreamRejectedBeforeAnyBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"authentication_error"}}`))
	}))
	defer server.Close()

	a, err := New(testConfig(server.URL), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	events, err := a.Stream(context.Background(), testRequest(), apiKeyCred())
	if err == nil {
		t.Fatal("expected error for rejected stream")
	}
	if events != nil {
		t.Error("expected nil channel on rejection")
	}

	var authErr *providers.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthError, got %T: %v", err, err)
	}
}

func TestStreamEndsBeforeMessageStop(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, func(event func(typ, data string)) {
		event("message_start", `{"type":"message_start","message":{"id":"msg_01"}}`)
		event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`)
		// Handler returns without message_stop: truncated stream.
	}))
	defer server.Close()

	a, err := New(testConfig(server.URL), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	events, err := a.Stream(context.Background(), testRequest(), apiKeyCred())
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 3 {
		t.Fatalf("got %d events, want 2 relayed plus terminal error", len(got))
	}

	last := got[len(got)-1]
	if last.Error == nil {
		t.Fatal("expected terminal error event")
	}

	var streamErr *providers.StreamError
	if !errors.As(last.Error, &streamErr) {
		t.Fatalf("expected StreamError, got %T", last.Error)
	}
	if !streamErr.Started {
		t.Error("Started = false, want true after delivered events")
	}
}

func TestStreamUpstreamErrorEvent(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, func(event func(typ, data string)) {
		event("error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	}))
	defer server.Close()

	a, err := New(testConfig(server.URL), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	events, err := a.Stream(context.Background(), testRequest(), apiKeyCred())
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].Error == nil {
		t.Fatal("expected error on upstream error event")
	}

	var streamErr *providers.StreamError
	if !errors.As(got[0].Error, &streamErr) {
		t.Fatalf("expected StreamError, got %T", got[0].Error)
	}
	if streamErr.Started {
		t.Error("Started = true, want false before any delivered event")
	}
	if !strings.Contains(string(got[0].Data), "overloaded_error") {
		t.Errorf("error payload not forwarded: %s", got[0].Data)
	}
}

func TestStreamContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(sseHandler(t, func(event func(typ, data string)) {
		event("message_start", `{"type":"message_start","message":{"id":"msg_01"}}`)
		<-release
	}))
	defer server.Close()
	defer close(release)

	a, err := New(testConfig(server.URL), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events, err := a.Stream(ctx, testRequest(), apiKeyCred())
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	first := <-events
	if first == nil || first.Type != providers.EventMessageStart {
		t.Fatalf("unexpected first event %+v", first)
	}

	cancel()

	// The relay must terminate and close the channel.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream channel not closed after cancellation")
		}
	}
}
