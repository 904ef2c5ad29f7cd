package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/meta-introspector/claude-code-mux/pkg/providers/openai"
)

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the content-type header before writing the status line.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteError maps an error through HandleError and writes the Messages API
// error envelope.
func WriteError(w http.ResponseWriter, err error) error {
	status, body := HandleError(err)
	return WriteJSONResponse(w, status, body)
}

// WriteChatError maps an error through HandleChatError and writes the Chat
// Completions error envelope.
func WriteChatError(w http.ResponseWriter, err error) error {
	status, body := HandleChatError(err)
	return WriteJSONResponse(w, status, body)
}

// SetSSEHeaders sets the appropriate headers for Server-Sent Events
// streaming.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// WriteSSEEvent writes one named event in Server-Sent Events format:
//
//	event: content_block_delta
//	data: {"type":"content_block_delta",...}
//
// Followed by a blank line. This is the Messages API stream framing; the
// data payload is relayed as received from the adapter.
func WriteSSEEvent(w http.ResponseWriter, eventType string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return fmt.Errorf("failed to write SSE event: %w", err)
	}

	// Flush immediately for real-time streaming
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// WriteSSEErrorEvent writes an error event in Messages API stream framing.
// This lets a failure be reported after the stream has started.
func WriteSSEErrorEvent(w http.ResponseWriter, body *ErrorBody) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE error: %w", err)
	}
	return WriteSSEEvent(w, "error", data)
}

// WriteSSEChunk writes a single Chat Completions chunk in Server-Sent
// Events format:
//
//	data: {"id":"chatcmpl-123","object":"chat.completion.chunk",...}
//
// Followed by a blank line.
func WriteSSEChunk(w http.ResponseWriter, chunk *openai.ChatStreamChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE chunk: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE chunk: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// WriteSSEDone writes the final "[DONE]" marker for Chat Completions
// streams. This signals to the client that the stream has completed.
func WriteSSEDone(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("failed to write SSE done marker: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// WriteSSEError writes an error in Chat Completions stream framing. This
// allows errors to be sent mid-stream if something goes wrong.
func WriteSSEError(w http.ResponseWriter, body *ChatErrorBody) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE error: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE error: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}
