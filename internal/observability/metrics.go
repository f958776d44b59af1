package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec
	digestSendsTotal   *prometheus.CounterVec
	streakResetsTotal  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the API surface
// and background jobs. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptpal",
			Name:      "http_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptpal",
			Name:      "http_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptpal",
			Name:      "http_errors_total",
			Help:      "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		digestSendsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptpal",
			Name:      "digest_sends_total",
			Help:      "Digest emails attempted, labelled by outcome.",
		}, []string{"outcome"})

		streakResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "promptpal",
			Name:      "streak_resets_total",
			Help:      "Streak records reset by the nightly inactivity sweep.",
		})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, httpErrorsTotal, digestSendsTotal, streakResetsTotal)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// DigestSends exposes the counter for digest email attempts.
func DigestSends() *prometheus.CounterVec {
	RegisterMetrics()
	return digestSendsTotal
}

// StreakResets exposes the counter for nightly streak resets.
func StreakResets() prometheus.Counter {
	RegisterMetrics()
	return streakResetsTotal
}
