// Package providers holds fake upstream services for adapter, dispatch,
// and gateway tests. A MockUpstream speaks just enough of the Anthropic
// Messages and OpenAI Chat Completions dialects to drive the real
// adapters over HTTP.
package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockUpstream is a scripted provider API. Responses are registered per
// path; unregistered paths return 404.
type MockUpstream struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string]MockResponse
	requests  int
	lastBody  []byte
	lastHdr   http.Header
}

// MockResponse is one scripted response.
type MockResponse struct {
	// StatusCode defaults to 200.
	StatusCode int

	// Body is written as JSON unless it is a string or []byte.
	Body interface{}

	// Headers are set before the status is written.
	Headers map[string]string

	// Delay postpones the response, for timeout tests.
	Delay time.Duration

	// SSE holds pre-formatted server-sent event blocks. When set the
	// response streams them, one flush per block, instead of writing
	// Body.
	SSE []string
}

// NewMockUpstream starts the fake service. Callers own Close.
func NewMockUpstream() *MockUpstream {
	m := &MockUpstream{responses: make(map[string]MockResponse)}
	m.server = httptest.NewServer(http.HandlerFunc(m.handler))
	return m
}

// URL returns the service base URL, usable as a provider base_url.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts the service down.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Handle registers the response for a path.
func (m *MockUpstream) Handle(path string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = response
}

// Requests returns how many requests the service has received.
func (m *MockUpstream) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

// LastBody returns the most recent request body.
func (m *MockUpstream) LastBody() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBody
}

// LastHeader returns the most recent request headers.
func (m *MockUpstream) LastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHdr
}

func (m *MockUpstream) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.requests++
	m.lastBody = body
	m.lastHdr = r.Header.Clone()
	response, ok := m.responses[r.URL.Path]
	m.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.SSE) > 0 {
		m.streamSSE(w, r, response.SSE)
		return
	}

	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch v := response.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (m *MockUpstream) streamSSE(w http.ResponseWriter, r *http.Request, blocks []string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, block := range blocks {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		fmt.Fprintf(w, "%s\n\n", block)
		flusher.Flush()
	}
}

// AnthropicMessage builds a minimal Messages response body.
func AnthropicMessage(model, text string) map[string]interface{} {
	return map[string]interface{}{
		"id":   "msg_mock",
		"type": "message",
		"role": "assistant",
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"model":       model,
		"stop_reason": "end_turn",
		"usage": map[string]interface{}{
			"input_tokens":  10,
			"output_tokens": 20,
		},
	}
}

// AnthropicSSE formats one Messages SSE block with its event line.
func AnthropicSSE(eventType string, payload interface{}) string {
	data, _ := json.Marshal(payload)
	return fmt.Sprintf("event: %s\ndata: %s", eventType, data)
}

// AnthropicStream builds the SSE blocks of a complete successful
// Messages stream delivering one text block.
func AnthropicStream(model, text string) []string {
	return []string{
		AnthropicSSE("message_start", map[string]interface{}{
			"type": "message_start",
			"message": map[string]interface{}{
				"id":    "msg_mock",
				"type":  "message",
				"role":  "assistant",
				"model": model,
				"usage": map[string]interface{}{"input_tokens": 10, "output_tokens": 1},
			},
		}),
		AnthropicSSE("content_block_start", map[string]interface{}{
			"type":          "content_block_start",
			"index":         0,
			"content_block": map[string]interface{}{"type": "text", "text": ""},
		}),
		AnthropicSSE("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]interface{}{"type": "text_delta", "text": text},
		}),
		AnthropicSSE("content_block_stop", map[string]interface{}{
			"type":  "content_block_stop",
			"index": 0,
		}),
		AnthropicSSE("message_delta", map[string]interface{}{
			"type":  "message_delta",
			"delta": map[string]interface{}{"stop_reason": "end_turn"},
			"usage": map[string]interface{}{"output_tokens": 20},
		}),
		AnthropicSSE("message_stop", map[string]interface{}{
			"type": "message_stop",
		}),
	}
}

// OpenAIChatCompletion builds a minimal Chat Completions response body.
func OpenAIChatCompletion(model, content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// OpenAIData formats one Chat Completions stream line.
func OpenAIData(payload interface{}) string {
	data, _ := json.Marshal(payload)
	return fmt.Sprintf("data: %s", data)
}

// OpenAIChunk builds one streamed completion chunk. finishReason may be
// empty for intermediate chunks.
func OpenAIChunk(model, delta, finishReason string) string {
	choice := map[string]interface{}{
		"index": 0,
		"delta": map[string]interface{}{},
	}
	if delta != "" {
		choice["delta"] = map[string]interface{}{"content": delta}
	}
	if finishReason != "" {
		choice["finish_reason"] = finishReason
	}
	return OpenAIData(map[string]interface{}{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{choice},
	})
}

// OpenAIDone is the Chat Completions stream terminator line.
func OpenAIDone() string {
	return "data: [DONE]"
}

// ErrorResponse builds a provider error response in the shared
// {"error": {...}} shape.
func ErrorResponse(status int, errType, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body: map[string]interface{}{
			"type": "error",
			"error": map[string]interface{}{
				"type":    errType,
				"message": message,
			},
		},
	}
}

// AuthRejected is a 401 invalid-key response.
func AuthRejected() MockResponse {
	return ErrorResponse(http.StatusUnauthorized, "authentication_error", "invalid x-api-key")
}

// RateLimited is a 429 response with a Retry-After header.
func RateLimited(retryAfter int) MockResponse {
	response := ErrorResponse(http.StatusTooManyRequests, "rate_limit_error", "rate limit exceeded")
	response.Headers = map[string]string{"Retry-After": fmt.Sprintf("%d", retryAfter)}
	return response
}

// Overloaded is a 529 response, the Anthropic overload signal.
func Overloaded() MockResponse {
	return ErrorResponse(529, "overloaded_error", "overloaded")
}

// ServerError is a plain 500 response.
func ServerError() MockResponse {
	return ErrorResponse(http.StatusInternalServerError, "api_error", "internal server error")
}
