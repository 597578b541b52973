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

	// TurnsTotal tracks processed conversation turns by routed intent.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_total",
			Help: "Total conversation turns processed",
		},
		[]string{"intent", "status"},
	)

	// TurnDuration tracks end-to-end turn processing duration.
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_turn_duration_seconds",
			Help:    "Turn processing duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"intent"},
	)

	// LLMCallDuration tracks LLM completion duration.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM completion call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// ConflictTransitions tracks conflict-flow phase transitions.
	ConflictTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calendar_conflict_transitions_total",
			Help: "Conflict-resolution flow transitions by outcome",
		},
		[]string{"outcome"},
	)

	// CompressionsTotal tracks history compressions performed.
	CompressionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "history_compressions_total",
			Help: "Total conversation history compressions",
		},
	)

	// ThreadStateSaves tracks thread state persistence operations.
	ThreadStateSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thread_state_saves_total",
			Help: "Thread state save operations",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records metrics for one processed conversation turn.
func RecordTurn(intent, status string, duration float64) {
	TurnsTotal.WithLabelValues(intent, status).Inc()
	TurnDuration.WithLabelValues(intent).Observe(duration)
}

// RecordLLMCall records metrics for an LLM completion.
func RecordLLMCall(provider, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(provider, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}
