package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "registrar"

// Promotion outcomes recorded by the promotion worker.
const (
	PromotionOutcomePromoted = "promoted"
	PromotionOutcomeNoop     = "noop"
	PromotionOutcomeFailed   = "failed"
)

// MetricsService owns the Prometheus registry and the collectors the
// registrar reports to. A nil *MetricsService is a valid no-op recorder.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	inFlight          prometheus.Gauge
	enrollmentResults *prometheus.CounterVec
	promotions        *prometheus.CounterVec
	conflictChecks    *prometheus.HistogramVec
	conflictsFound    *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	eventFailures     *prometheus.CounterVec
}

// NewMetricsService registers the registrar collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served",
		}),
		enrollmentResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "enrollment_results_total",
			Help:      "Enrollment attempts by resulting status or error code",
		}, []string{"operation", "result"}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "waitlist_promotions_total",
			Help:      "Promotion task runs by outcome",
		}, []string{"outcome"}),
		conflictChecks: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "conflict_check_duration_seconds",
			Help:      "Duration of conflict detection runs",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"kind"}),
		conflictsFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "conflicts_detected_total",
			Help:      "Overlapping bookings reported by conflict checks",
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result",
		}, []string{"result"}),
		eventFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "event_publish_failures_total",
			Help:      "Domain events that could not be published",
		}, []string{"type"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration, m.requestTotal, m.inFlight, m.enrollmentResults, m.promotions,
		m.conflictChecks, m.conflictsFound, m.cacheLookups, m.eventFailures,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request latency and count.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, labelStatus).Inc()
}

// TrackInFlight bumps the in-flight gauge and returns the matching decrement.
func (m *MetricsService) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// RecordEnrollment counts an engine operation by its resulting status or error code.
func (m *MetricsService) RecordEnrollment(operation, result string) {
	if m == nil {
		return
	}
	m.enrollmentResults.WithLabelValues(operation, result).Inc()
}

// RecordPromotion counts a promotion task outcome.
func (m *MetricsService) RecordPromotion(outcome string) {
	if m == nil {
		return
	}
	m.promotions.WithLabelValues(outcome).Inc()
}

// ObserveConflictCheck records the duration and size of a conflict check.
func (m *MetricsService) ObserveConflictCheck(kind string, found int, duration time.Duration) {
	if m == nil {
		return
	}
	m.conflictChecks.WithLabelValues(kind).Observe(duration.Seconds())
	if found > 0 {
		m.conflictsFound.WithLabelValues(kind).Add(float64(found))
	}
}

// RecordCacheLookup counts a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordEventFailure counts a domain event that failed to publish.
func (m *MetricsService) RecordEventFailure(eventType string) {
	if m == nil {
		return
	}
	m.eventFailures.WithLabelValues(eventType).Inc()
}
