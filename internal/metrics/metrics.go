package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for governed HTTP requests.
const (
	OutcomeCompleted   = "completed"
	OutcomeFailed      = "failed"
	OutcomeTimedOut    = "timed_out"
	OutcomeForbidden   = "forbidden"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
)

// Result labels for secret lookups.
const (
	SecretFound    = "found"
	SecretNotFound = "not_found"
	SecretError    = "error"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	secretLookupsTotal  *prometheus.CounterVec
	rateLimitedTotal    *prometheus.CounterVec

	metricsOnce       sync.Once
	metricsRegistered atomic.Bool
)

// Recorder records governor metrics. The zero value is usable; it does
// nothing until InitMetrics has been called.
type Recorder struct{}

// NewRecorder creates a new Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// InitMetrics registers the plugin SDK collectors with the default registry.
// Safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "micropress_plugin_http_requests_total",
				Help: "Total number of governed outbound HTTP requests by outcome",
			},
			[]string{"plugin", "outcome"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "micropress_plugin_http_request_duration_seconds",
				Help:    "Duration of dispatched outbound HTTP requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"plugin"},
		)

		secretLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "micropress_plugin_secret_lookups_total",
				Help: "Total number of plugin secret lookups by result",
			},
			[]string{"plugin", "result"},
		)

		rateLimitedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "micropress_plugin_rate_limited_total",
				Help: "Total number of outbound requests rejected by the per-host rate limit",
			},
			[]string{"plugin"},
		)

		metricsRegistered.Store(true)
	})
}

// RecordHTTPRequest records the outcome of one governed request. A zero
// duration means the request was never dispatched.
func (m *Recorder) RecordHTTPRequest(plugin, outcome string, durationSeconds float64) {
	if !metricsRegistered.Load() {
		return
	}

	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(plugin, outcome).Inc()
	}

	if outcome == OutcomeRateLimited && rateLimitedTotal != nil {
		rateLimitedTotal.WithLabelValues(plugin).Inc()
	}

	if durationSeconds > 0 && httpRequestDuration != nil {
		httpRequestDuration.WithLabelValues(plugin).Observe(durationSeconds)
	}
}

// RecordSecretLookup records a secret lookup result.
func (m *Recorder) RecordSecretLookup(plugin, result string) {
	if !metricsRegistered.Load() || secretLookupsTotal == nil {
		return
	}
	secretLookupsTotal.WithLabelValues(plugin, result).Inc()
}

// GetHTTPRequestsTotal returns the request counter for testing.
func GetHTTPRequestsTotal() *prometheus.CounterVec {
	return httpRequestsTotal
}

// GetSecretLookupsTotal returns the secret lookup counter for testing.
func GetSecretLookupsTotal() *prometheus.CounterVec {
	return secretLookupsTotal
}

// GetRateLimitedTotal returns the rate limited counter for testing.
func GetRateLimitedTotal() *prometheus.CounterVec {
	return rateLimitedTotal
}
