package proxy

import (
	"context"
	"errors"
	"net/http"

	"github.com/meta-introspector/claude-code-mux/pkg/dispatch"
	"github.com/meta-introspector/claude-code-mux/pkg/gateway"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Error type names of the Messages API error taxonomy.
const (
	ErrorTypeInvalidRequest  = "invalid_request_error"
	ErrorTypeAuthentication  = "authentication_error"
	ErrorTypePermission      = "permission_error"
	ErrorTypeNotFound        = "not_found_error"
	ErrorTypeRequestTooLarge = "request_too_large"
	ErrorTypeRateLimit       = "rate_limit_error"
	ErrorTypeAPI             = "api_error"
	ErrorTypeOverloaded      = "overloaded_error"
)

// ErrorBody is the error envelope written on every failed request. It is
// the Messages API error shape, which is also what the anthropic adapter
// parses from upstream rejections.
type ErrorBody struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the typed payload inside the envelope.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorBody builds an error envelope.
func NewErrorBody(errType, message string) *ErrorBody {
	return &ErrorBody{
		Type:  "error",
		Error: ErrorDetail{Type: errType, Message: message},
	}
}

// ChatErrorBody is the error envelope for the Chat Completions surface.
type ChatErrorBody struct {
	Error ChatErrorDetail `json:"error"`
}

// ChatErrorDetail is the error payload in Chat Completions format.
type ChatErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// HandleError converts an error from the gateway to the HTTP status code
// and error body to send to the client.
//
// Rejections the gateway produced itself (parse failures, unmapped models,
// missing configuration) get 4xx or 503. Upstream failures surface as 502
// after failover is exhausted, except that a terminal rate limit keeps its
// 429 so clients back off, and a permanent upstream 4xx passes through with
// the status the service answered.
//
// Example usage:
//
//	if err != nil {
//	    status, body := HandleError(err)
//	    WriteJSONResponse(w, status, body)
//	    return
//	}
func HandleError(err error) (int, *ErrorBody) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status, NewErrorBody(reqErr.Type, reqErr.Message)
	}

	if errors.Is(err, gateway.ErrNotReady) {
		return http.StatusServiceUnavailable, NewErrorBody(ErrorTypeAPI,
			"no configuration loaded, try again shortly")
	}

	var notFound *providers.ModelNotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, NewErrorBody(ErrorTypeNotFound, notFound.Error())
	}

	// A rate limit as the terminal failure keeps its status even when it
	// is the last attempt inside an exhausted failover chain.
	var rateLimit *providers.RateLimitError
	if errors.As(err, &rateLimit) {
		return http.StatusTooManyRequests, NewErrorBody(ErrorTypeRateLimit, rateLimit.Error())
	}

	if errors.Is(err, dispatch.ErrAllProvidersFailed) {
		return http.StatusBadGateway, NewErrorBody(ErrorTypeAPI, err.Error())
	}

	// Permanent upstream rejections abort failover and arrive unwrapped.
	// Pass a 4xx through so the client sees what the service objected to.
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		if provErr.StatusCode >= 400 && provErr.StatusCode < 500 {
			return provErr.StatusCode, NewErrorBody(errorTypeForStatus(provErr.StatusCode), provErr.Message)
		}
		return http.StatusBadGateway, NewErrorBody(ErrorTypeAPI, provErr.Error())
	}

	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		return http.StatusBadGateway, NewErrorBody(ErrorTypeAPI, authErr.Error())
	}

	var streamErr *providers.StreamError
	if errors.As(err, &streamErr) {
		return http.StatusBadGateway, NewErrorBody(ErrorTypeAPI, streamErr.Error())
	}

	var parseErr *providers.ParseError
	if errors.As(err, &parseErr) {
		return http.StatusInternalServerError, NewErrorBody(ErrorTypeAPI, parseErr.Error())
	}

	var timeoutErr *providers.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout, NewErrorBody(ErrorTypeAPI, timeoutErr.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, NewErrorBody(ErrorTypeAPI, "request deadline exceeded")
	}

	return http.StatusInternalServerError, NewErrorBody(ErrorTypeAPI,
		"An internal error occurred. Please try again later.")
}

// HandleChatError converts an error to the status code and Chat Completions
// error body for the OpenAI-compatible surface.
func HandleChatError(err error) (int, *ChatErrorBody) {
	status, body := HandleError(err)
	return status, &ChatErrorBody{
		Error: ChatErrorDetail{
			Message: body.Error.Message,
			Type:    body.Error.Type,
		},
	}
}

// errorTypeForStatus maps an HTTP status code to its canonical error type
// name.
func errorTypeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrorTypeInvalidRequest
	case http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case http.StatusForbidden:
		return ErrorTypePermission
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusRequestEntityTooLarge:
		return ErrorTypeRequestTooLarge
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case 529:
		return ErrorTypeOverloaded
	default:
		if status >= 400 && status < 500 {
			return ErrorTypeInvalidRequest
		}
		return ErrorTypeAPI
	}
}
