package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Payment protocol
	InitiationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payu_initiations_total",
			Help: "Payment initiations by result",
		},
		[]string{"result"}, // ok|invalid|store_error
	)
	CallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payu_callbacks_total",
			Help: "Gateway callbacks by reconciliation outcome",
		},
		[]string{"outcome"}, // created|applied|replayed|conflict|rejected|amount_mismatch|invalid|store_error
	)

	// Audit worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
	WorkerDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_dropped_total",
			Help: "Jobs dropped because the worker queue was full",
		},
	)

	initOnce sync.Once
)

// /metrics endpoint handler
var Handler = promhttp.Handler

// Init registers the collectors on the default registry. Safe to call more
// than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal)
		prometheus.MustRegister(HTTPLatency)
		prometheus.MustRegister(InitiationsTotal)
		prometheus.MustRegister(CallbacksTotal)
		prometheus.MustRegister(WorkerQueueDepth)
		prometheus.MustRegister(WorkerDroppedTotal)
	})
}
