package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pmc_assistant"

var (
	ChatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_requests_total",
		Help:      "Answered chat requests by channel and outcome.",
	}, []string{"channel", "outcome"})

	LanguageDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "language_detections_total",
		Help:      "Detected query languages by resolution layer.",
	}, []string{"language", "resolution"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_call_duration_seconds",
		Help:      "Latency of external calls.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"operation", "outcome"})

	SessionsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_evicted_total",
		Help:      "Sessions dropped from the in-memory store.",
	}, []string{"reason"})

	DiagnosticFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "diagnostic_write_failures_total",
		Help:      "Diagnostic records that could not be written.",
	})
)

// Outcome labels an error for the outcome dimension.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
