package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OAuthMetrics tracks the token lifecycle.
//
// Metrics:
//   - ccm_oauth_refreshes_total: refresh attempts by provider and outcome
//   - ccm_oauth_token_expiry_timestamp_seconds: access token expiry
//
// An alert on token_expiry_timestamp_seconds - time() catches refresh
// loops that stopped making progress before requests start failing.
type OAuthMetrics struct {
	refreshes   *prometheus.CounterVec
	tokenExpiry *prometheus.GaugeVec
}

// NewOAuthMetrics creates and registers the OAuth metrics.
func NewOAuthMetrics(registry *prometheus.Registry) *OAuthMetrics {
	om := &OAuthMetrics{
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oauth_refreshes_total",
				Help:      "Total OAuth token refresh attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),

		tokenExpiry: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "oauth_token_expiry_timestamp_seconds",
				Help:      "Unix timestamp when the provider's access token expires",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		om.refreshes,
		om.tokenExpiry,
	)

	return om
}

// RecordRefresh records a refresh attempt ("success" or "failure").
func (om *OAuthMetrics) RecordRefresh(provider, outcome string) {
	om.refreshes.WithLabelValues(provider, outcome).Inc()
}

// SetTokenExpiry publishes the access token expiry time.
func (om *OAuthMetrics) SetTokenExpiry(provider string, expiry time.Time) {
	om.tokenExpiry.WithLabelValues(provider).Set(float64(expiry.Unix()))
}
