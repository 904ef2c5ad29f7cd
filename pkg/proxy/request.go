package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
	"github.com/meta-introspector/claude-code-mux/pkg/providers/openai"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// APIKeyHeader is the Messages API authentication header.
	APIKeyHeader = "x-api-key"

	// AuthorizationHeader is the bearer-token authentication header used
	// by Chat Completions clients.
	AuthorizationHeader = "Authorization"

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// RequestError represents a request parsing or validation failure. It
// carries the HTTP status and error type to answer with.
type RequestError struct {
	Status  int
	Type    string
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// invalidRequest builds a 400 RequestError.
func invalidRequest(format string, args ...interface{}) *RequestError {
	return &RequestError{
		Status:  http.StatusBadRequest,
		Type:    ErrorTypeInvalidRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// ParseMessagesRequest parses an HTTP request body into a Messages API
// request. The body is limited to MaxRequestBodySize; larger bodies are
// rejected rather than buffered.
//
// Example usage:
//
//	req, err := ParseMessagesRequest(r)
//	if err != nil {
//	    status, body := HandleError(err)
//	    WriteJSONResponse(w, status, body)
//	    return
//	}
func ParseMessagesRequest(r *http.Request) (*providers.MessagesRequest, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	var req providers.MessagesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, invalidRequest("invalid JSON: %v", err)
	}

	if req.Model == "" {
		return nil, invalidRequest("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, invalidRequest("messages is required")
	}

	return &req, nil
}

// ParseCountTokensRequest parses an HTTP request body into a token count
// request.
func ParseCountTokensRequest(r *http.Request) (*providers.CountTokensRequest, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	var req providers.CountTokensRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, invalidRequest("invalid JSON: %v", err)
	}

	if req.Model == "" {
		return nil, invalidRequest("model is required")
	}

	return &req, nil
}

// ParseChatRequest parses an HTTP request body into a Chat Completions
// request for the OpenAI-compatible surface.
func ParseChatRequest(r *http.Request) (*openai.ChatRequest, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	var req openai.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, invalidRequest("invalid JSON: %v", err)
	}

	if req.Model == "" {
		return nil, invalidRequest("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, invalidRequest("messages is required")
	}

	return &req, nil
}

// readBody reads the request body under the size limit.
func readBody(r *http.Request) ([]byte, error) {
	limited := io.LimitReader(r.Body, MaxRequestBodySize+1)

	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, invalidRequest("failed to read request body: %v", err)
	}

	if len(body) > MaxRequestBodySize {
		return nil, &RequestError{
			Status:  http.StatusRequestEntityTooLarge,
			Type:    ErrorTypeRequestTooLarge,
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
		}
	}

	return body, nil
}

// ExtractAPIKey extracts the client credential from the request. The
// Messages API sends it in x-api-key; Chat Completions clients send
// "Authorization: Bearer <key>". Returns an empty string when neither
// header carries a credential.
func ExtractAPIKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}

	authHeader := r.Header.Get(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}

	// Expected format: "Bearer <api-key>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// ExtractRequestID extracts the request ID from the X-Request-ID header.
// If the header is not present, it returns an empty string and the
// middleware generates one.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}
