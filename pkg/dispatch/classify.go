package dispatch

import (
	"context"
	"errors"
	"net/http"

	"github.com/meta-introspector/claude-code-mux/pkg/providers"
)

// Error classes recorded on trace attempts and provider error metrics.
const (
	// ClassTimeout is an attempt or upstream timeout (includes 408).
	ClassTimeout = "timeout"

	// ClassRateLimited is an upstream 429.
	ClassRateLimited = "rate_limited"

	// ClassAuth is a credential failure: upstream 401/403 before any
	// response bytes, or a token that could not be resolved.
	ClassAuth = "auth"

	// ClassUpstream is a 5xx, a transport failure, or an unparseable
	// upstream response.
	ClassUpstream = "upstream"

	// ClassBadRequest is a non-auth 4xx. The request itself is at
	// fault, so no other candidate can do better.
	ClassBadRequest = "bad_request"

	// ClassStream is a failure after the response stream started.
	ClassStream = "stream"

	// ClassCancelled is a dispatch aborted by the caller.
	ClassCancelled = "cancelled"

	// ClassInternal is an unrecognized error.
	ClassInternal = "internal"
)

// Classify maps one attempt's error to its class and whether the
// failure is transient. A transient failure moves dispatch to the next
// candidate; anything else fails the dispatch immediately.
//
// Transient: timeouts, 408, 429, 5xx, transport failures, auth
// failures before response bytes, and malformed upstream responses.
// Permanent: any other 4xx, which signals a bad request rather than a
// provider outage.
func Classify(err error) (class string, transient bool) {
	var timeoutErr *providers.TimeoutError
	if errors.As(err, &timeoutErr) {
		return ClassTimeout, true
	}

	var rateErr *providers.RateLimitError
	if errors.As(err, &rateErr) {
		return ClassRateLimited, true
	}

	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		return ClassAuth, true
	}

	var streamErr *providers.StreamError
	if errors.As(err, &streamErr) {
		return ClassStream, !streamErr.Started
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		switch {
		case provErr.StatusCode == http.StatusRequestTimeout:
			return ClassTimeout, true
		case provErr.StatusCode == http.StatusTooManyRequests:
			return ClassRateLimited, true
		case provErr.StatusCode >= 500 || provErr.StatusCode == 0:
			return ClassUpstream, true
		default:
			return ClassBadRequest, false
		}
	}

	var parseErr *providers.ParseError
	if errors.As(err, &parseErr) {
		return ClassUpstream, true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout, true
	}
	if errors.Is(err, context.Canceled) {
		return ClassCancelled, false
	}

	return ClassInternal, true
}

// statusOf extracts the upstream HTTP status from a classified error,
// 0 when none applies.
func statusOf(err error) int {
	var rateErr *providers.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusTooManyRequests
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return provErr.StatusCode
	}

	return 0
}
