package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Unknown replaces a label value taken from caller input that did not match
// a known provider or space.
const Unknown = "unknown"

type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ChatRequests *prometheus.CounterVec
	ChatDuration *prometheus.HistogramVec

	RetrievalRequests *prometheus.CounterVec
	RetrievalResults  *prometheus.HistogramVec
}

// New registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so runs do not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request latency, including streamed bodies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ChatRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_chat_requests_total",
				Help: "Chat requests by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		ChatDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_chat_setup_duration_seconds",
				Help:    "Time until the upstream stream was opened.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider"},
		),
		RetrievalRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_retrieval_requests_total",
				Help: "Retrieval requests by embedding space and outcome.",
			},
			[]string{"space", "outcome"},
		),
		RetrievalResults: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_retrieval_results",
				Help:    "Chunks returned per retrieval.",
				Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
			},
			[]string{"space"},
		),
	}
}

// Outcome maps an error to its outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
