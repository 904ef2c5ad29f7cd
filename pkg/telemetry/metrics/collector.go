package metrics

import (
	"sync"
	"time"

	"github.com/meta-introspector/claude-code-mux/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every metric name.
const namespace = "ccm"

// durationBuckets cover LLM latencies: interactive turns land between
// one and ten seconds, long generations past a minute.
var durationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// maxModelCardinality caps unique model label values. The model name
// comes from the client request, so it is unbounded input.
const maxModelCardinality = 1000

// Collector registers and records all gateway metrics. Recording is a
// no-op when metrics are disabled in the configuration.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	requests  *RequestMetrics
	providers *ProviderMetrics
	oauth     *OAuthMetrics
	http      *HTTPMetrics

	models *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics with the
// given registry. A nil registry gets a fresh one.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Collector{
		enabled:   cfg.IsEnabled(),
		registry:  registry,
		requests:  NewRequestMetrics(registry),
		providers: NewProviderMetrics(registry),
		oauth:     NewOAuthMetrics(registry),
		http:      NewHTTPMetrics(registry),
		models:    NewCardinalityLimiter(maxModelCardinality),
	}
}

// RecordRequest records one completed gateway request. rule names the
// routing rule that resolved the model; outcome is "success" or
// "failed".
func (c *Collector) RecordRequest(model, rule, outcome string, duration time.Duration) {
	if !c.enabled {
		return
	}
	if !c.models.Allow(model) {
		model = "other"
	}

	c.requests.RecordRequest(model, rule, outcome, duration)
}

// RecordUsage records reported token usage for a served request.
func (c *Collector) RecordUsage(provider, model string, inputTokens, outputTokens int) {
	if !c.enabled {
		return
	}
	if !c.models.Allow(model) {
		model = "other"
	}

	c.requests.RecordUsage(provider, model, inputTokens, outputTokens)
}

// RecordAttempt records one provider attempt. outcome is the attempt
// outcome ("success", "failover", "fatal", "aborted").
func (c *Collector) RecordAttempt(provider, outcome string, latency time.Duration) {
	if !c.enabled {
		return
	}

	c.providers.RecordAttempt(provider, outcome, latency)
}

// RecordProviderError records a classified provider failure
// ("timeout", "rate_limited", "auth", "server_error", ...).
func (c *Collector) RecordProviderError(provider, errorClass string) {
	if !c.enabled {
		return
	}

	c.providers.RecordError(provider, errorClass)
}

// StreamStarted marks a streaming response as in flight.
func (c *Collector) StreamStarted() {
	if !c.enabled {
		return
	}

	c.requests.StreamStarted()
}

// StreamEnded marks a streaming response as finished.
func (c *Collector) StreamEnded() {
	if !c.enabled {
		return
	}

	c.requests.StreamEnded()
}

// RecordHTTPRequest records one completed HTTP request. path should be
// the route pattern so the label cardinality stays bounded.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.http.RecordRequest(method, path, status, duration)
}

// RecordOAuthRefresh records a token refresh attempt. outcome is
// "success" or "failure".
func (c *Collector) RecordOAuthRefresh(provider, outcome string) {
	if !c.enabled {
		return
	}

	c.oauth.RecordRefresh(provider, outcome)
}

// SetTokenExpiry publishes when a provider's access token expires.
func (c *Collector) SetTokenExpiry(provider string, expiry time.Time) {
	if !c.enabled {
		return
	}

	c.oauth.SetTokenExpiry(provider, expiry)
}

// Registry returns the Prometheus registry behind this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter bounds the number of unique label values recorded
// for a client-controlled label.
type CardinalityLimiter struct {
	max     int
	current map[string]struct{}
	mu      sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing up to max unique
// values.
func NewCardinalityLimiter(max int) *CardinalityLimiter {
	return &CardinalityLimiter{
		max:     max,
		current: make(map[string]struct{}),
	}
}

// Allow reports whether the value may be used as a label. Known values
// are always allowed; new values are allowed until the limit is
// reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.max {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of distinct values seen.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
