// Package metrics exposes Prometheus metrics for HTTP traffic and copy corrections.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exam_grader"

// Correction outcomes.
const (
	OutcomeCorrected = "corrected"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors of one server. Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	corrections     *prometheus.CounterVec
	correctionTime  *prometheus.HistogramVec
	batchesInFlight prometheus.Gauge
	rateLimited     *prometheus.CounterVec
}

// New creates and registers the collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		responseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size by route pattern",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"route"},
		),
		corrections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "corrections_total",
				Help:      "Copy corrections by outcome",
			},
			[]string{"outcome"},
		),
		correctionTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "correction_duration_seconds",
				Help:      "Time to extract and grade one copy",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"outcome"},
		),
		batchesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "correction_batches_in_flight",
				Help:      "Exam-wide corrections currently running",
			},
		),
		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests refused with 429 by rate limit rule",
			},
			[]string{"rule"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.responseSize,
		m.corrections,
		m.correctionTime,
		m.batchesInFlight,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCorrection records one copy correction.
func (m *Metrics) ObserveCorrection(outcome string, d time.Duration) {
	m.corrections.WithLabelValues(outcome).Inc()
	m.correctionTime.WithLabelValues(outcome).Observe(d.Seconds())
}

// RateLimited counts one refused request.
func (m *Metrics) RateLimited(rule string) {
	m.rateLimited.WithLabelValues(rule).Inc()
}

// BatchStarted increments the in-flight batch gauge and returns the matching decrement.
func (m *Metrics) BatchStarted() (done func()) {
	m.batchesInFlight.Inc()
	return m.batchesInFlight.Dec
}

// Middleware records request count, latency and response size per route pattern.
// The route is the ServeMux pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.responseSize.WithLabelValues(route).Observe(float64(rw.bytesWritten))
	})
}

type responseWriter struct {
	http.ResponseWriter
	bytesWritten int
	statusCode   int
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Flush passes through so Server-Sent Events keep streaming.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
