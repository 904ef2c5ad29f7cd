package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAllProvidersFailed matches AllProvidersFailedError with errors.Is().
var ErrAllProvidersFailed = errors.New("all providers failed")

// AttemptError is one failed attempt inside an AllProvidersFailedError,
// in attempt order.
type AttemptError struct {
	// Provider is the candidate that failed.
	Provider string

	// Class is the failure classification (see Classify).
	Class string

	// Err is the classified attempt error.
	Err error
}

// Error implements the error interface.
func (e AttemptError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Provider, e.Class, e.Err)
}

// Unwrap returns the attempt's underlying error.
func (e AttemptError) Unwrap() error {
	return e.Err
}

// AllProvidersFailedError is returned when every candidate for a model
// was tried and failed, or when the mapping has no usable candidate at
// all. Attempts holds each attempt's classified error in order.
type AllProvidersFailedError struct {
	// Model is the mapped model whose candidates were exhausted.
	Model string

	// Attempts contains one entry per attempted candidate, in attempt
	// order. Empty when every candidate was skipped before attempting.
	Attempts []AttemptError
}

// Error implements the error interface.
func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("no enabled provider candidates for model %q", e.Model)
	}

	parts := make([]string, len(e.Attempts))
	for i, attempt := range e.Attempts {
		parts[i] = attempt.Error()
	}
	return fmt.Sprintf("all providers failed for model %q: %s",
		e.Model, strings.Join(parts, "; "))
}

// Is implements error matching for errors.Is().
func (e *AllProvidersFailedError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Unwrap returns the last attempt's error for error chain traversal.
func (e *AllProvidersFailedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}
