// Package metrics provides Prometheus instrumentation for the mint
// engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MintChainsStarted counts mint requests that entered the chain.
	MintChainsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mint_chains_started_total",
		Help: "Mint requests that entered the execution chain",
	})

	// StageTotal counts stage executions, partitioned by stage and outcome.
	StageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mint_stage_total",
		Help: "Execution chain stage runs",
	}, []string{"stage", "status"})

	// StageLatency tracks per-stage execution latency.
	StageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mint_stage_latency_seconds",
		Help:    "Execution chain stage latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// SimulateQueries counts mint previews served.
	SimulateQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mint_simulate_queries_total",
		Help: "Read-only mint previews served",
	})

	// ProgressClients tracks connected WebSocket clients.
	ProgressClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mint_progress_clients",
		Help: "Number of connected progress WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mint_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mint_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small and
		// fixed, so cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
