package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cineflow"

// Metrics groups the collectors of the console and the mock backend. Each process
// registers them once against its own registry.
type Metrics struct {
	PollTicks     *prometheus.CounterVec
	PollFailures  *prometheus.CounterVec
	PollConverged *prometheus.CounterVec
	PollersActive prometheus.Gauge

	ClientRequests *prometheus.CounterVec
	ClientDuration *prometheus.HistogramVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	TaskTransitions     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PollTicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_total",
			Help:      "Poll ticks executed, by poller kind",
		}, []string{"poller"}),
		PollFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_failures_total",
			Help:      "Poll ticks whose fetch failed, by poller kind",
		}, []string{"poller"}),
		PollConverged: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_converged_total",
			Help:      "Pollers that stopped because every entity reached a final status",
		}, []string{"poller"}),
		PollersActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pollers_active",
			Help:      "Pollers currently in the polling state",
		}),
		ClientRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_requests_total",
			Help:      "API requests issued by the console",
		}, []string{"method", "status"}),
		ClientDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "client_request_duration_seconds",
			Help:      "API request latency seen by the console",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the mock backend",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "path"}),
		TaskTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Task status transitions applied by the simulated executor",
		}, []string{"status"}),
	}
}

// NewIsolatedMetrics registers against a private registry, for tests and for
// components built without an explicit registry.
func NewIsolatedMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
