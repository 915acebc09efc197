package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shulecore/academic-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the enrollment/sequence domain.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	sequenceIssued     *prometheus.CounterVec
	sequenceRetries    prometheus.Counter
	enrollmentsCreated prometheus.Counter
	autoEnrollFailures prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sequenceIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sequence_numbers_issued_total",
		Help: "Total formatted identifiers issued per kind",
	}, []string{"kind"})

	sequenceRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sequence_tx_retries_total",
		Help: "Total sequence transactions retried after serialization conflicts",
	})

	enrollmentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollments_created_total",
		Help: "Total enrollments created",
	})

	autoEnrollFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auto_enroll_failures_total",
		Help: "Total core-subject auto-enrollment failures surfaced as degraded success",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Total catalog cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Total catalog cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sequenceIssued, sequenceRetries,
		enrollmentsCreated, autoEnrollFailures, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		sequenceIssued:     sequenceIssued,
		sequenceRetries:    sequenceRetries,
		enrollmentsCreated: enrollmentsCreated,
		autoEnrollFailures: autoEnrollFailures,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSequenceIssued counts a successfully issued identifier.
func (m *MetricsService) RecordSequenceIssued(kind models.NumberKind) {
	if m == nil {
		return
	}
	m.sequenceIssued.WithLabelValues(string(kind)).Inc()
}

// RecordSequenceRetry counts a retried sequence transaction.
func (m *MetricsService) RecordSequenceRetry() {
	if m == nil {
		return
	}
	m.sequenceRetries.Inc()
}

// RecordEnrollmentCreated counts a created enrollment.
func (m *MetricsService) RecordEnrollmentCreated() {
	if m == nil {
		return
	}
	m.enrollmentsCreated.Inc()
}

// RecordAutoEnrollFailure counts a degraded enroll (core subjects not attached).
func (m *MetricsService) RecordAutoEnrollFailure() {
	if m == nil {
		return
	}
	m.autoEnrollFailures.Inc()
}

// RecordCacheLookup counts a catalog cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
