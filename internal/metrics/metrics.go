// Package metrics exposes Prometheus collectors for the linkstash service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingest outcomes.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeConflict  = "conflict"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	ingestTotal                *prometheus.CounterVec
	listRequestsTotal          prometheus.Counter
	eventsPublishedTotal       *prometheus.CounterVec
	inFlightRequests           prometheus.Gauge
	shutdownRejectedTotal      prometheus.Counter
	rateLimitedTotal           prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		ingestTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkstash_ingest_total",
				Help: "Total number of ingestion attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		listRequestsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "linkstash_list_total",
				Help: "Total number of successful listing queries.",
			},
		)

		eventsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linkstash_events_published_total",
				Help: "Total number of content events published, labeled by status.",
			},
			[]string{"status"},
		)

		inFlightRequests = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "linkstash_inflight_requests",
				Help: "Number of admitted API requests that have not completed.",
			},
		)

		shutdownRejectedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "linkstash_shutdown_rejected_total",
				Help: "Total number of API requests rejected while draining.",
			},
		)

		rateLimitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "linkstash_rate_limited_total",
				Help: "Total number of write requests rejected by the per-client rate limiter.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveIngest counts one ingestion outcome.
func ObserveIngest(outcome string) {
	Init()
	ingestTotal.WithLabelValues(outcome).Inc()
}

// ObserveList counts one successful listing query.
func ObserveList() {
	Init()
	listRequestsTotal.Inc()
}

// ObservePublish counts one event publication attempt.
func ObservePublish(ok bool) {
	Init()
	status := "ok"
	if !ok {
		status = "failed"
	}
	eventsPublishedTotal.WithLabelValues(status).Inc()
}

// ObserveRateLimited counts one request rejected by the rate limiter.
func ObserveRateLimited() {
	Init()
	rateLimitedTotal.Inc()
}

// LifecycleObserver feeds the lifecycle coordinator's counters into Prometheus.
type LifecycleObserver struct{}

// NewLifecycleObserver returns an observer backed by the package collectors.
func NewLifecycleObserver() LifecycleObserver {
	Init()
	return LifecycleObserver{}
}

// InFlight sets the in-flight gauge.
func (LifecycleObserver) InFlight(n int64) {
	inFlightRequests.Set(float64(n))
}

// Rejected counts a request refused during shutdown.
func (LifecycleObserver) Rejected() {
	shutdownRejectedTotal.Inc()
}
