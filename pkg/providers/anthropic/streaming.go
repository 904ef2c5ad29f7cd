package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// maxEventSize bounds a single SSE line. Large tool results can exceed the
// bufio default.
const maxEventSize = 1024 * 1024

// streamReader reads server-sent events from an upstream Messages stream.
type streamReader struct {
	provider string
	resp     io.ReadCloser
	scanner  *bufio.Scanner
	closed   bool
}

// rawEvent is one SSE event as read off the wire.
type rawEvent struct {
	eventType string
	data      []byte
}

// newStreamReader opens the upstream stream. An error return means the
// upstream rejected the request before any response bytes.
func newStreamReader(ctx context.Context, a *Adapter, url string, req *providers.MessagesRequest, headers map[string]string) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := a.Do(ctx, "POST", url, bodyBytes, headers)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)

	return &streamReader{
		provider: a.Name(),
		resp:     resp.Body,
		scanner:  scanner,
	}, nil
}

// next reads one complete SSE event. Returns nil, io.EOF at end of stream.
func (s *streamReader) next() (*rawEvent, error) {
	if s.closed {
		return nil, io.EOF
	}

	var eventType string
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if eventType != "" || len(dataLines) > 0 {
				break
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		}
		// Ignore other SSE fields (id, retry)
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}

	if eventType == "" && len(dataLines) == 0 {
		return nil, io.EOF
	}

	ev := &rawEvent{
		eventType: eventType,
		data:      []byte(strings.Join(dataLines, "\n")),
	}

	// Streams that omit the event field carry the type inside the payload.
	if ev.eventType == "" {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(ev.data, &probe); err == nil {
			ev.eventType = probe.Type
		}
	}

	return ev, nil
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Close()
}

// relayEvents forwards upstream events to the adapter's output channel until
// message_stop. A failure after the first delivered event is reported as a
// started stream error so the dispatcher never retries it elsewhere.
func relayEvents(ctx context.Context, reader *streamReader, events chan<- *providers.StreamEvent, provider string) {
	started := false

	for {
		ev, err := reader.next()
		if err != nil {
			msg := "failed to read stream"
			var cause error
			if err == io.EOF {
				// The relay returns at message_stop, so reaching EOF means
				// the upstream ended the stream early.
				msg = "stream ended before message_stop"
			} else {
				cause = err
			}
			send(ctx, events, &providers.StreamEvent{
				Type: providers.EventError,
				Error: &providers.StreamError{
					Provider: provider,
					Message:  msg,
					Started:  started,
					Cause:    cause,
				},
			})
			return
		}

		// Upstream-signalled error event: terminal, forwarded as a failure.
		if ev.eventType == providers.EventError {
			send(ctx, events, &providers.StreamEvent{
				Type: providers.EventError,
				Data: ev.data,
				Error: &providers.StreamError{
					Provider: provider,
					Message:  string(ev.data),
					Started:  started,
				},
			})
			return
		}

		if !send(ctx, events, &providers.StreamEvent{Type: ev.eventType, Data: ev.data}) {
			return
		}
		started = true

		if ev.eventType == providers.EventMessageStop {
			return
		}
	}
}

// send delivers one event unless the context is cancelled first.
func send(ctx context.Context, events chan<- *providers.StreamEvent, ev *providers.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
