package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/dispatch"
	"github.com/meta-introspector/claude-code-mux/pkg/providerfactory"
	"github.com/meta-introspector/claude-code-mux/pkg/providers"
	"github.com/meta-introspector/claude-code-mux/pkg/routing"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/logging"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/metrics"
	"github.com/meta-introspector/claude-code-mux/pkg/telemetry/trace"
)

// ErrNotReady is returned for requests arriving before a configuration
// runtime has been installed.
var ErrNotReady = errors.New("gateway has no configuration loaded")

// Runtime pairs one configuration snapshot with the adapter registry
// built from it. The pair swaps as a unit on reload, so a request never
// sees a snapshot and a registry from different configurations.
type Runtime struct {
	Snapshot *config.Snapshot
	Registry *providerfactory.Registry
}

// Gateway orchestrates one request end to end: resolve the model with
// the routing rules, dispatch across the provider candidates, and seal
// a trace record with every attempt.
type Gateway struct {
	runtime    atomic.Pointer[Runtime]
	dispatcher *dispatch.Dispatcher
	recorder   *trace.Recorder
	collector  *metrics.Collector
	logger     *slog.Logger
}

// New creates a gateway. recorder and collector may be nil to disable
// trace persistence and metrics.
func New(dispatcher *dispatch.Dispatcher, recorder *trace.Recorder, collector *metrics.Collector) *Gateway {
	return &Gateway{
		dispatcher: dispatcher,
		recorder:   recorder,
		collector:  collector,
		logger:     slog.Default().With("component", "gateway"),
	}
}

// Install publishes a new runtime and returns the previous one, nil on
// first install. The caller releases the previous registry; in-flight
// requests keep the runtime they borrowed.
func (g *Gateway) Install(runtime *Runtime) *Runtime {
	return g.runtime.Swap(runtime)
}

// Snapshot returns the current configuration snapshot, nil before the
// first Install.
func (g *Gateway) Snapshot() *config.Snapshot {
	if rt := g.runtime.Load(); rt != nil {
		return rt.Snapshot
	}
	return nil
}

// Complete handles a non-streaming messages request.
func (g *Gateway) Complete(ctx context.Context, req *providers.MessagesRequest) (*providers.MessagesResponse, error) {
	rt := g.runtime.Load()
	if rt == nil {
		return nil, ErrNotReady
	}

	decision := routing.Resolve(rt.Snapshot, req)
	record := g.newRecord(ctx, req, decision, false)
	env := dispatch.Env{Snapshot: rt.Snapshot, Registry: rt.Registry}
	sink := func(attempt trace.Attempt) {
		record.Attempts = append(record.Attempts, attempt)
	}

	start := time.Now()
	resp, err := g.dispatcher.Complete(ctx, env, decision.Model, outbound(req, decision), sink)
	if err != nil {
		g.finish(ctx, record, time.Since(start), err)
		return nil, err
	}

	record.InputTokens = resp.Usage.InputTokens
	record.OutputTokens = resp.Usage.OutputTokens
	g.finish(ctx, record, time.Since(start), nil)
	return resp, nil
}

// Stream handles a streaming messages request. The returned channel
// carries the winning candidate's events; the trace record is sealed
// when the stream ends, which is when the attempt set is complete.
func (g *Gateway) Stream(ctx context.Context, req *providers.MessagesRequest) (<-chan *providers.StreamEvent, error) {
	rt := g.runtime.Load()
	if rt == nil {
		return nil, ErrNotReady
	}

	decision := routing.Resolve(rt.Snapshot, req)
	record := g.newRecord(ctx, req, decision, true)
	env := dispatch.Env{Snapshot: rt.Snapshot, Registry: rt.Registry}
	sink := func(attempt trace.Attempt) {
		record.Attempts = append(record.Attempts, attempt)
	}

	start := time.Now()
	events, err := g.dispatcher.Stream(ctx, env, decision.Model, outbound(req, decision), sink)
	if err != nil {
		g.finish(ctx, record, time.Since(start), err)
		return nil, err
	}

	out := make(chan *providers.StreamEvent)
	go g.forward(ctx, record, start, events, out)
	return out, nil
}

// CountTokens resolves the model the same way a messages request would
// and asks the candidates for a count.
func (g *Gateway) CountTokens(ctx context.Context, req *providers.CountTokensRequest) (*providers.CountTokensResponse, error) {
	rt := g.runtime.Load()
	if rt == nil {
		return nil, ErrNotReady
	}

	probe := &providers.MessagesRequest{
		Model:    req.Model,
		Messages: req.Messages,
		System:   req.System,
		Tools:    req.Tools,
	}
	decision := routing.Resolve(rt.Snapshot, probe)

	counted := req
	if decision.System != nil {
		clean := *req
		clean.System = decision.System
		counted = &clean
	}

	env := dispatch.Env{Snapshot: rt.Snapshot, Registry: rt.Registry}
	return g.dispatcher.CountTokens(ctx, env, decision.Model, counted)
}

// forward relays stream events to the caller, harvests token usage from
// the payloads, and seals the trace record once the upstream ends.
func (g *Gateway) forward(ctx context.Context, record *trace.Record, start time.Time, events <-chan *providers.StreamEvent, out chan<- *providers.StreamEvent) {
	defer close(out)

	deliver := true
	for ev := range events {
		observeUsage(record, ev)
		if !deliver {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			// The caller is gone; keep draining so the dispatcher can
			// finish the attempt log.
			deliver = false
		}
	}

	g.finish(ctx, record, time.Since(start), nil)
}

// finish seals the record from its attempt log, hands it to the
// recorder, and counts the request.
func (g *Gateway) finish(ctx context.Context, record *trace.Record, latency time.Duration, err error) {
	record.LatencyMS = latency.Milliseconds()

	last := len(record.Attempts) - 1
	if err == nil && last >= 0 && record.Attempts[last].Outcome == trace.AttemptSuccess {
		record.Outcome = trace.OutcomeSuccess
		record.Provider = record.Attempts[last].Provider
		record.Model = record.Attempts[last].Model
	} else {
		record.Outcome = trace.OutcomeFailed
		switch {
		case err != nil:
			record.Error = err.Error()
		case last >= 0:
			record.Error = record.Attempts[last].Error
		}
	}

	if g.recorder != nil {
		g.recorder.Record(record)
	}
	if g.collector != nil {
		g.collector.RecordRequest(record.ResolvedModel, record.Rule, record.Outcome, latency)
		if record.Outcome == trace.OutcomeSuccess && (record.InputTokens > 0 || record.OutputTokens > 0) {
			g.collector.RecordUsage(record.Provider, record.Model, record.InputTokens, record.OutputTokens)
		}
	}

	if record.Outcome == trace.OutcomeSuccess {
		g.logger.InfoContext(ctx, "request served",
			"model", record.ResolvedModel,
			"rule", record.Rule,
			"provider", record.Provider,
			"attempts", len(record.Attempts),
			"latency_ms", record.LatencyMS,
		)
		return
	}
	g.logger.WarnContext(ctx, "request failed",
		"model", record.ResolvedModel,
		"rule", record.Rule,
		"attempts", len(record.Attempts),
		"latency_ms", record.LatencyMS,
		"error", record.Error,
	)
}

// newRecord starts the trace record for one request.
func (g *Gateway) newRecord(ctx context.Context, req *providers.MessagesRequest, decision routing.Decision, stream bool) *trace.Record {
	return &trace.Record{
		RequestID:      logging.GetRequestID(ctx),
		Time:           time.Now(),
		RequestedModel: req.Model,
		ResolvedModel:  decision.Model,
		Rule:           ruleName(decision),
		Stream:         stream,
	}
}

// outbound applies the resolver's cleaned system prompt without
// touching the caller's request.
func outbound(req *providers.MessagesRequest, decision routing.Decision) *providers.MessagesRequest {
	if decision.System == nil {
		return req
	}
	out := *req
	out.System = decision.System
	return &out
}

// ruleName is the recorded rule label. A default decision that was not
// auto-mapped means the client named a mapped model explicitly.
func ruleName(decision routing.Decision) string {
	if decision.Rule == routing.RuleDefault && !decision.AutoMapped {
		return "explicit"
	}
	return string(decision.Rule)
}

// observeUsage pulls token usage from streaming payloads. The opening
// message_start carries the input count; each message_delta carries the
// cumulative output count.
func observeUsage(record *trace.Record, ev *providers.StreamEvent) {
	if len(ev.Data) == 0 {
		return
	}

	switch ev.Type {
	case providers.EventMessageStart:
		var payload struct {
			Message struct {
				Usage providers.Usage `json:"usage"`
			} `json:"message"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return
		}
		if payload.Message.Usage.InputTokens > 0 {
			record.InputTokens = payload.Message.Usage.InputTokens
		}
		if payload.Message.Usage.OutputTokens > 0 {
			record.OutputTokens = payload.Message.Usage.OutputTokens
		}

	case providers.EventMessageDelta:
		var payload struct {
			Usage providers.Usage `json:"usage"`
		}
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return
		}
		if payload.Usage.OutputTokens > 0 {
			record.OutputTokens = payload.Usage.OutputTokens
		}
	}
}
