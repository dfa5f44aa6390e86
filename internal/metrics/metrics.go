// Package metrics exposes Prometheus collectors for the HTTP layer and the
// chat session store.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explainer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explainer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explainer_session_store_operations_total",
			Help: "Total number of session store operations",
		},
		[]string{"operation", "mode", "outcome"},
	)

	storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explainer_session_store_operation_duration_seconds",
			Help:    "Session store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "mode"},
	)

	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explainer_llm_requests_total",
			Help: "Total number of answer generations",
		},
		[]string{"backend", "status"},
	)

	initOnce sync.Once
)

// Init registers all collectors with the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			storeOperationsTotal,
			storeOperationDuration,
			llmRequestsTotal,
		)
	})
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStoreOperation records one public session store call.
func RecordStoreOperation(operation, mode, outcome string, duration time.Duration) {
	storeOperationsTotal.WithLabelValues(operation, mode, outcome).Inc()
	storeOperationDuration.WithLabelValues(operation, mode).Observe(duration.Seconds())
}

// RecordLLMRequest records one answer generation.
func RecordLLMRequest(backend, status string) {
	llmRequestsTotal.WithLabelValues(backend, status).Inc()
}
