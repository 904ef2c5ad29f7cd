// Package metrics provides Prometheus metrics for the gateway.
//
// # Overview
//
// The Collector registers every gateway metric on one registry and is
// handed to the components that record: the proxy handlers (requests,
// streams), the dispatcher (provider attempts, failovers) and the
// token manager (OAuth refreshes). When metrics are disabled in the
// configuration every Record method is a no-op.
//
// # Metrics
//
//	ccm_requests_total{model,rule,outcome}
//	ccm_request_duration_seconds{model}
//	ccm_tokens_total{provider,model,type}
//	ccm_active_streams
//	ccm_provider_attempts_total{provider,outcome}
//	ccm_provider_latency_seconds{provider}
//	ccm_provider_errors_total{provider,error_class}
//	ccm_oauth_refreshes_total{provider,outcome}
//	ccm_oauth_token_expiry_timestamp_seconds{provider}
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	mux.Handle("/metrics", collector.Handler())
//
//	collector.RecordRequest("claude-sonnet-4-5", "default", "success", duration)
//	collector.RecordAttempt("anthropic", "failover", latency)
//
// # Cardinality
//
// The model label comes from the client request. A CardinalityLimiter
// caps the number of distinct model values; past the cap new names are
// recorded as "other". Provider names come from the configuration and
// need no limiting.
package metrics
