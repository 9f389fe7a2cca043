package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SubmissionsGraded counts grading passes by final status
	SubmissionsGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradex_submissions_graded_total",
			Help: "Total number of submission grading passes",
		},
		[]string{"status"},
	)

	// AnswersGraded counts graded answers by question kind and outcome
	AnswersGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradex_answers_graded_total",
			Help: "Total number of graded answers",
		},
		[]string{"kind", "outcome"},
	)

	// GradingDuration measures whole-submission grading duration
	GradingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gradex_grading_duration_seconds",
			Help:    "Submission grading duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// LLMRequestDuration measures provider round-trip latency
	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gradex_llm_request_duration_seconds",
			Help:    "LLM provider request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"provider"},
	)

	// LLMFallbacks counts router fallback activations
	LLMFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gradex_llm_fallbacks_total",
			Help: "Total number of LLM router fallback activations",
		},
	)
)

// InitPrometheus registers all collectors with the default registry
func InitPrometheus() {
	prometheus.MustRegister(SubmissionsGraded)
	prometheus.MustRegister(AnswersGraded)
	prometheus.MustRegister(GradingDuration)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMFallbacks)
}
