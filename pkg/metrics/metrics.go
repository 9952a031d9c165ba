// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnsTotal tracks processed conversation turns by outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_total",
			Help: "Total conversation turns processed",
		},
		[]string{"outcome"},
	)

	// TurnDuration tracks end-to-end turn processing duration.
	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_turn_duration_seconds",
			Help:    "Conversation turn processing duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// IntentsTotal tracks classified intents.
	IntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_intents_total",
			Help: "Total messages classified by intent",
		},
		[]string{"intent"},
	)

	// ServiceActionsTotal tracks executed service actions.
	ServiceActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_service_actions_total",
			Help: "Total service actions attempted",
		},
		[]string{"action", "status"},
	)

	// KnowledgeBaseDuration tracks knowledge base query duration.
	KnowledgeBaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_kb_query_duration_seconds",
			Help:    "Knowledge base query duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider", "status"},
	)

	// KnowledgeBaseCacheHits tracks query cache hits and misses.
	KnowledgeBaseCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_kb_cache_total",
			Help: "Knowledge base query cache lookups",
		},
		[]string{"result"},
	)

	// SessionsActive tracks the number of live sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_sessions_active",
			Help: "Number of active user sessions",
		},
	)

	// SessionsExpired tracks sessions removed by the expiry sweep.
	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_sessions_expired_total",
			Help: "Total sessions removed by expiry",
		},
	)

	// DeliveryFailures tracks outbound message delivery failures.
	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_delivery_failures_total",
			Help: "Total outbound message delivery failures",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records metrics for a completed conversation turn.
func RecordTurn(outcome string, duration float64) {
	TurnsTotal.WithLabelValues(outcome).Inc()
	TurnDuration.Observe(duration)
}

// RecordServiceAction records a service action attempt.
func RecordServiceAction(action string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	ServiceActionsTotal.WithLabelValues(action, status).Inc()
}

// RecordKnowledgeBaseQuery records a knowledge base query.
func RecordKnowledgeBaseQuery(provider, status string, duration float64) {
	KnowledgeBaseDuration.WithLabelValues(provider, status).Observe(duration)
}
