package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService registers and exposes application Prometheus collectors.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	cacheOperations     *prometheus.CounterVec
	enrollmentChanges   *prometheus.CounterVec
}

// NewMetricsService builds the service with a dedicated registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	s := &MetricsService{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_http_requests_total",
			Help: "Number of HTTP requests handled, by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lms_http_request_duration_seconds",
			Help:    "HTTP request latency distribution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cacheOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_cache_operations_total",
			Help: "Catalog cache operations by result (hit, miss, error).",
		}, []string{"operation", "result"}),
		enrollmentChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lms_enrollment_changes_total",
			Help: "Enrollment mutations by kind (enroll, unenroll).",
		}, []string{"kind"}),
	}

	registry.MustRegister(
		s.httpRequestsTotal,
		s.httpRequestDuration,
		s.cacheOperations,
		s.enrollmentChanges,
	)

	return s
}

// Registry exposes the underlying registry.
func (s *MetricsService) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest counts a completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	s.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	s.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCacheOperation counts a cache access by result.
func (s *MetricsService) RecordCacheOperation(operation, result string) {
	s.cacheOperations.WithLabelValues(operation, result).Inc()
}

// RecordEnrollmentChange counts an enrollment mutation.
func (s *MetricsService) RecordEnrollmentChange(kind string) {
	s.enrollmentChanges.WithLabelValues(kind).Inc()
}
