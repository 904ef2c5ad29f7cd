package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/metrics"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace"
)

// streamBuffer is the event channel capacity handed to the caller.
const streamBuffer = 16

// TokenSource resolves OAuth access tokens per provider id. The auth
// Manager implements it.
type TokenSource interface {
	GetValidToken(ctx context.Context, providerID string) (string, error)
}

// AttemptSink receives one trace attempt per tried candidate, in
// attempt order. Calls for one dispatch are never concurrent; for a
// stream the final call happens before the event channel closes.
type AttemptSink func(trace.Attempt)

// AdapterSource resolves a provider name to its adapter. The provider
// factory registry implements it; only enabled providers resolve, so a
// miss covers both unknown and disabled providers.
type AdapterSource interface {
	Get(name string) (providers.Adapter, bool)
}

// Env is the borrowed dispatch environment: one configuration snapshot
// and the adapter registry built from it. A request borrows one Env for
// its whole lifetime, so a reload never changes candidates mid-flight.
type Env struct {
	Snapshot *config.Snapshot
	Registry AdapterSource
}

// Dispatcher walks a model's provider candidates in failover order
// until one serves the request. Candidates are tried strictly in
// ascending priority; a transient failure moves to the next candidate,
// a permanent one fails the dispatch, and once streamed output has
// reached the caller no failover ever happens.
type Dispatcher struct {
	tokens    TokenSource
	collector *metrics.Collector
	logger    *slog.Logger
}

// New creates a dispatcher. tokens may be nil when no provider uses
// OAuth; collector may be nil to disable metrics.
func New(tokens TokenSource, collector *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		tokens:    tokens,
		collector: collector,
		logger:    slog.Default().With("component", "dispatch"),
	}
}

// Complete dispatches a non-streaming request across the model's
// candidates and returns the first successful response.
func (d *Dispatcher) Complete(ctx context.Context, env Env, model string, req *providers.MessagesRequest, sink AttemptSink) (*providers.MessagesResponse, error) {
	candidates := env.Snapshot.Candidates(model)
	if len(candidates) == 0 {
		return nil, &providers.ModelNotFoundError{Model: model}
	}

	failure := &AllProvidersFailedError{Model: model}
	index := -1
	for _, candidate := range candidates {
		adapter, ok := env.Registry.Get(candidate.Provider)
		if !ok {
			d.logger.Debug("skipping unavailable provider",
				"provider", candidate.Provider,
				"model", model,
			)
			continue
		}
		index++

		upstream := *req
		upstream.Model = candidate.Model

		start := time.Now()
		resp, err := d.attemptComplete(ctx, adapter, &upstream)
		latency := time.Since(start)

		if err == nil {
			d.report(sink, successAttempt(candidate, latency))
			return resp, nil
		}

		if ctx.Err() != nil {
			// The caller is gone; stop without trying further
			// candidates.
			d.report(sink, failedAttempt(candidate, trace.AttemptAborted, ClassCancelled, err, latency, 0))
			return nil, ctx.Err()
		}

		class, transient := Classify(err)
		if !transient {
			d.report(sink, failedAttempt(candidate, trace.AttemptFatal, class, err, latency, statusOf(err)))
			d.logger.Warn("permanent provider failure",
				"provider", candidate.Provider,
				"attempt", index,
				"class", class,
				"error", err,
			)
			return nil, err
		}

		d.report(sink, failedAttempt(candidate, trace.AttemptFailover, class, err, latency, statusOf(err)))
		d.logger.Warn("provider attempt failed, trying next candidate",
			"provider", candidate.Provider,
			"attempt", index,
			"class", class,
			"error", err,
		)
		failure.Attempts = append(failure.Attempts, AttemptError{
			Provider: candidate.Provider,
			Class:    class,
			Err:      err,
		})
	}

	return nil, failure
}

// Stream dispatches a streaming request. Failover happens only until
// the first event has been accepted; from then on the returned channel
// is the single outcome and any later upstream failure arrives as its
// terminal error event.
func (d *Dispatcher) Stream(ctx context.Context, env Env, model string, req *providers.MessagesRequest, sink AttemptSink) (<-chan *providers.StreamEvent, error) {
	candidates := env.Snapshot.Candidates(model)
	if len(candidates) == 0 {
		return nil, &providers.ModelNotFoundError{Model: model}
	}

	failure := &AllProvidersFailedError{Model: model}
	index := -1
	for _, candidate := range candidates {
		adapter, ok := env.Registry.Get(candidate.Provider)
		if !ok {
			d.logger.Debug("skipping unavailable provider",
				"provider", candidate.Provider,
				"model", model,
			)
			continue
		}
		index++

		upstream := *req
		upstream.Model = candidate.Model

		start := time.Now()
		cfg := adapter.Config()
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)

		first, events, err := d.openStream(attemptCtx, adapter, cfg, &upstream)
		if err == nil {
			out := make(chan *providers.StreamEvent, streamBuffer)
			go d.relay(ctx, cancel, candidate, index, start, first, events, out, sink)
			return out, nil
		}
		cancel()
		latency := time.Since(start)

		if ctx.Err() != nil {
			d.report(sink, failedAttempt(candidate, trace.AttemptAborted, ClassCancelled, err, latency, 0))
			return nil, ctx.Err()
		}

		class, transient := Classify(err)
		if !transient {
			d.report(sink, failedAttempt(candidate, trace.AttemptFatal, class, err, latency, statusOf(err)))
			d.logger.Warn("permanent provider failure",
				"provider", candidate.Provider,
				"attempt", index,
				"class", class,
				"error", err,
			)
			return nil, err
		}

		d.report(sink, failedAttempt(candidate, trace.AttemptFailover, class, err, latency, statusOf(err)))
		d.logger.Warn("stream attempt failed, trying next candidate",
			"provider", candidate.Provider,
			"attempt", index,
			"class", class,
			"error", err,
		)
		failure.Attempts = append(failure.Attempts, AttemptError{
			Provider: candidate.Provider,
			Class:    class,
			Err:      err,
		})
	}

	return nil, failure
}

// CountTokens asks the first usable candidate for a token count.
// Failover follows the same transient rules as Complete, but counting
// is advisory so attempts are neither traced nor counted in metrics.
func (d *Dispatcher) CountTokens(ctx context.Context, env Env, model string, req *providers.CountTokensRequest) (*providers.CountTokensResponse, error) {
	candidates := env.Snapshot.Candidates(model)
	if len(candidates) == 0 {
		return nil, &providers.ModelNotFoundError{Model: model}
	}

	failure := &AllProvidersFailedError{Model: model}
	for _, candidate := range candidates {
		adapter, ok := env.Registry.Get(candidate.Provider)
		if !ok {
			continue
		}

		upstream := *req
		upstream.Model = candidate.Model

		resp, err := d.attemptCount(ctx, adapter, &upstream)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		class, transient := Classify(err)
		if !transient {
			return nil, err
		}
		failure.Attempts = append(failure.Attempts, AttemptError{
			Provider: candidate.Provider,
			Class:    class,
			Err:      err,
		})
	}

	return nil, failure
}

// attemptComplete runs one bounded non-streaming attempt.
func (d *Dispatcher) attemptComplete(ctx context.Context, adapter providers.Adapter, req *providers.MessagesRequest) (*providers.MessagesResponse, error) {
	cfg := adapter.Config()
	attemptCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	cred, err := d.credential(attemptCtx, cfg)
	if err != nil {
		return nil, err
	}

	return adapter.Complete(attemptCtx, req, cred)
}

// attemptCount runs one bounded token counting attempt.
func (d *Dispatcher) attemptCount(ctx context.Context, adapter providers.Adapter, req *providers.CountTokensRequest) (*providers.CountTokensResponse, error) {
	cfg := adapter.Config()
	attemptCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	cred, err := d.credential(attemptCtx, cfg)
	if err != nil {
		return nil, err
	}

	return adapter.CountTokens(attemptCtx, req, cred)
}

// openStream starts one streaming attempt and waits for its opening
// event. A stream is a winner only once that event arrives cleanly;
// anything earlier leaves failover possible because nothing has
// reached the caller.
func (d *Dispatcher) openStream(ctx context.Context, adapter providers.Adapter, cfg providers.ProviderConfig, req *providers.MessagesRequest) (*providers.StreamEvent, <-chan *providers.StreamEvent, error) {
	cred, err := d.credential(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	events, err := adapter.Stream(ctx, req, cred)
	if err != nil {
		return nil, nil, err
	}

	select {
	case first, ok := <-events:
		if !ok {
			return nil, nil, &providers.ProviderError{
				Provider: cfg.Name,
				Message:  "stream closed before any event",
			}
		}
		if first.Error != nil {
			return nil, nil, first.Error
		}
		return first, events, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// relay forwards a winning stream to the caller and records the
// attempt when it ends. Once the first event is delivered the stream
// is the dispatch's single outcome: an upstream failure is forwarded
// as the terminal error event and never retried elsewhere.
func (d *Dispatcher) relay(parent context.Context, cancel context.CancelFunc, candidate config.Candidate, index int, start time.Time, first *providers.StreamEvent, events <-chan *providers.StreamEvent, out chan<- *providers.StreamEvent, sink AttemptSink) {
	defer close(out)
	defer cancel()

	deliver := func(ev *providers.StreamEvent) bool {
		select {
		case out <- ev:
			return true
		case <-parent.Done():
			return false
		}
	}

	if !deliver(first) {
		d.report(sink, failedAttempt(candidate, trace.AttemptAborted, ClassCancelled, parent.Err(), time.Since(start), 0))
		return
	}

	for ev := range events {
		if ev.Error != nil {
			deliver(ev)
			class, _ := Classify(ev.Error)
			d.report(sink, failedAttempt(candidate, trace.AttemptAborted, class, ev.Error, time.Since(start), statusOf(ev.Error)))
			d.logger.Warn("stream interrupted after output started",
				"provider", candidate.Provider,
				"attempt", index,
				"error", ev.Error,
			)
			return
		}
		if !deliver(ev) {
			d.report(sink, failedAttempt(candidate, trace.AttemptAborted, ClassCancelled, parent.Err(), time.Since(start), 0))
			return
		}
	}

	d.report(sink, successAttempt(candidate, time.Since(start)))
}

// credential resolves the authentication material for one attempt. An
// OAuth resolution failure is an AuthError, which classifies as
// transient so dispatch moves to the next candidate.
func (d *Dispatcher) credential(ctx context.Context, cfg providers.ProviderConfig) (providers.Credential, error) {
	if cfg.AuthKind != providers.AuthOAuth {
		return providers.Credential{Kind: providers.AuthAPIKey, Secret: cfg.APIKey}, nil
	}

	if d.tokens == nil {
		return providers.Credential{}, &providers.AuthError{
			Provider: cfg.Name,
			Message:  "no token manager configured",
		}
	}

	token, err := d.tokens.GetValidToken(ctx, cfg.OAuthProvider)
	if err != nil {
		return providers.Credential{}, &providers.AuthError{
			Provider: cfg.Name,
			Message:  "oauth token unavailable",
			Cause:    err,
		}
	}

	return providers.Credential{Kind: providers.AuthOAuth, Secret: token}, nil
}

// report feeds one finished attempt to metrics and the trace sink.
func (d *Dispatcher) report(sink AttemptSink, attempt trace.Attempt) {
	if d.collector != nil {
		d.collector.RecordAttempt(attempt.Provider, attempt.Outcome, time.Duration(attempt.LatencyMS)*time.Millisecond)
		if attempt.ErrorClass != "" {
			d.collector.RecordProviderError(attempt.Provider, attempt.ErrorClass)
		}
	}
	if sink != nil {
		sink(attempt)
	}
}

// successAttempt builds the trace attempt for a served request.
func successAttempt(candidate config.Candidate, latency time.Duration) trace.Attempt {
	return trace.Attempt{
		Provider:  candidate.Provider,
		Model:     candidate.Model,
		Priority:  candidate.Priority,
		Outcome:   trace.AttemptSuccess,
		LatencyMS: latency.Milliseconds(),
	}
}

// failedAttempt builds the trace attempt for a failed try.
func failedAttempt(candidate config.Candidate, outcome, class string, err error, latency time.Duration, status int) trace.Attempt {
	attempt := trace.Attempt{
		Provider:   candidate.Provider,
		Model:      candidate.Model,
		Priority:   candidate.Priority,
		Outcome:    outcome,
		ErrorClass: class,
		Status:     status,
		LatencyMS:  latency.Milliseconds(),
	}
	if err != nil {
		attempt.Error = err.Error()
	}
	return attempt
}
