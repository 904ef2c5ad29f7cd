package trace

import (
	"context"
	"fmt"
	"time"
)

// Record is the audit trail of one gateway request: how the inbound
// model name was resolved and every provider attempt made for it, in
// order.
type Record struct {
	// ID is the record UUID.
	ID string `json:"id"`

	// RequestID ties the record to the request log lines.
	RequestID string `json:"request_id"`

	// Time is when dispatch started.
	Time time.Time `json:"time"`

	// RequestedModel is the model name the client sent.
	RequestedModel string `json:"requested_model"`

	// ResolvedModel is the mapped model name dispatch ran with.
	ResolvedModel string `json:"resolved_model"`

	// Rule names the routing rule that picked ResolvedModel
	// ("default", "websearch", "subagent", "think", "background" or
	// "explicit" when the client name was already mapped).
	Rule string `json:"rule"`

	// Stream reports whether the client asked for a streaming response.
	Stream bool `json:"stream"`

	// Attempts holds one entry per provider try, in dispatch order.
	Attempts []Attempt `json:"attempts"`

	// Outcome is OutcomeSuccess or OutcomeFailed.
	Outcome string `json:"outcome"`

	// Provider is the provider that served the request, on success.
	Provider string `json:"provider,omitempty"`

	// Model is the upstream model name actually used, on success.
	Model string `json:"model,omitempty"`

	// Error is the final error message, on failure.
	Error string `json:"error,omitempty"`

	// LatencyMS is the total dispatch time in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// InputTokens and OutputTokens are the reported usage, on success.
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Attempt is one provider try within a dispatch.
type Attempt struct {
	// Provider is the candidate's provider name.
	Provider string `json:"provider"`

	// Model is the upstream model name sent to the provider.
	Model string `json:"model"`

	// Priority is the candidate's configured priority.
	Priority int `json:"priority"`

	// Outcome is one of the Attempt* constants.
	Outcome string `json:"outcome"`

	// ErrorClass classifies the failure ("timeout", "rate_limited",
	// "auth", ...). Empty on success.
	ErrorClass string `json:"error_class,omitempty"`

	// Error is the failure message. Empty on success.
	Error string `json:"error,omitempty"`

	// Status is the upstream HTTP status, when one was received.
	Status int `json:"status,omitempty"`

	// LatencyMS is the attempt duration in milliseconds.
	LatencyMS int64 `json:"latency_ms"`
}

// Record outcomes.
const (
	// OutcomeSuccess means some candidate served the request.
	OutcomeSuccess = "success"
	// OutcomeFailed means every candidate failed or one failed fatally.
	OutcomeFailed = "failed"
)

// Attempt outcomes.
const (
	// AttemptSuccess means the attempt served the request.
	AttemptSuccess = "success"
	// AttemptFailover means a transient failure moved dispatch to the
	// next candidate.
	AttemptFailover = "failover"
	// AttemptFatal means a permanent failure stopped dispatch.
	AttemptFatal = "fatal"
	// AttemptAborted means no failover was possible: either the
	// response stream had already started, or the caller went away
	// mid-attempt.
	AttemptAborted = "aborted"
)

// Query defines filter parameters for reading records.
type Query struct {
	// Since and Until bound Record.Time, inclusive.
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`

	// Provider filters on the serving provider.
	Provider string `json:"provider,omitempty"`

	// Model filters on the resolved model.
	Model string `json:"model,omitempty"`

	// Outcome filters on the record outcome.
	Outcome string `json:"outcome,omitempty"`

	// Limit caps the number of returned records. Zero means the
	// backend default.
	Limit int `json:"limit,omitempty"`

	// Offset skips records, newest first.
	Offset int `json:"offset,omitempty"`
}

// Validate checks the query parameters.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", q.Limit)
	}
	if q.Offset < 0 {
		return fmt.Errorf("offset must not be negative, got %d", q.Offset)
	}
	switch q.Outcome {
	case "", OutcomeSuccess, OutcomeFailed:
	default:
		return fmt.Errorf("unknown outcome %q", q.Outcome)
	}
	if q.Since != nil && q.Until != nil && q.Since.After(*q.Until) {
		return fmt.Errorf("since %v is after until %v", q.Since, q.Until)
	}
	return nil
}

// Matches reports whether a record passes the query filters. Pagination
// is the backend's concern.
func (q *Query) Matches(record *Record) bool {
	if q.Since != nil && record.Time.Before(*q.Since) {
		return false
	}
	if q.Until != nil && record.Time.After(*q.Until) {
		return false
	}
	if q.Provider != "" && record.Provider != q.Provider {
		return false
	}
	if q.Model != "" && record.ResolvedModel != q.Model {
		return false
	}
	if q.Outcome != "" && record.Outcome != q.Outcome {
		return false
	}
	return true
}

// Storage is a trace record backend. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns matching records, newest first.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Count returns the number of matching records.
	Count(ctx context.Context, query *Query) (int64, error)

	// DeleteBefore removes records older than cutoff and returns how
	// many were deleted. Retention pruning uses this.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases backend resources.
	Close() error
}
