package providers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// TestConfig returns an adapter configuration pointed at a test
// upstream.
func TestConfig(name, providerType, baseURL string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:           name,
		Type:           providerType,
		BaseURL:        baseURL,
		AuthKind:       providers.AuthAPIKey,
		APIKey:         "test-key",
		Enabled:        true,
		RequestTimeout: 5 * time.Second,
		ConnectTimeout: time.Second,
	}
}

// UserMessage builds a single-turn request.
func UserMessage(model, text string) *providers.MessagesRequest {
	return &providers.MessagesRequest{
		Model:     model,
		MaxTokens: 128,
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: providers.Text(text)},
		},
	}
}

// CollectEvents drains a stream until it closes, failing the test if it
// takes longer than two seconds.
func CollectEvents(t *testing.T, events <-chan *providers.StreamEvent) []*providers.StreamEvent {
	t.Helper()

	var collected []*providers.StreamEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return collected
			}
			collected = append(collected, ev)
		case <-timeout:
			t.Fatalf("Timed out collecting stream events, got %d so far", len(collected))
		}
	}
}

// StreamText reassembles the text deltas of collected events.
func StreamText(events []*providers.StreamEvent) string {
	var out string
	for _, ev := range events {
		if ev.Type != providers.EventContentBlockDelta {
			continue
		}
		var payload struct {
			Delta struct {
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err == nil {
			out += payload.Delta.Text
		}
	}
	return out
}

// EventTypes lists the event type of each collected event, for order
// assertions.
func EventTypes(events []*providers.StreamEvent) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}
