package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Turn metrics
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_turns_total",
			Help: "Conversation turns by outcome",
		},
		[]string{"outcome"}, // "persisted", "abandoned", "rejected"
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_turn_stage_duration_seconds",
			Help:    "Time spent reaching each turn state",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	DegradedModalities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_degraded_modalities_total",
			Help: "Modalities that contributed no evidence to a turn",
		},
		[]string{"modality", "phase"},
	)

	Redactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_pii_redactions_total",
			Help: "PII spans replaced by placeholders",
		},
		[]string{"category", "target"}, // target: "question", "evidence", "answer"
	)

	PromptDefaultFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rag_prompt_default_fallbacks_total",
			Help: "Turns answered with the process default prompt",
		},
	)

	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_feedback_total",
			Help: "Feedback entries received",
		},
		[]string{"rating"},
	)
)
