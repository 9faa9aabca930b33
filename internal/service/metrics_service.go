package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	reportsCreated  prometheus.Counter
	exportsStarted  *prometheus.CounterVec
	uploadsRejected prometheus.Counter
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

	reportsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reports_created_total",
		Help: "Total number of hazard reports submitted",
	})

	exportsStarted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_started_total",
		Help: "Total number of export tasks started",
	}, []string{"format"})

	uploadsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uploads_rejected_total",
		Help: "Total number of rejected image uploads",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reportsCreated, exportsStarted, uploadsRejected, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		reportsCreated:  reportsCreated,
		exportsStarted:  exportsStarted,
		uploadsRejected: uploadsRejected,
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

// ObserveHTTPRequest records per-route request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ReportCreated bumps the submission counter.
func (m *MetricsService) ReportCreated() {
	if m == nil {
		return
	}
	m.reportsCreated.Inc()
}

// ExportStarted bumps the export counter for a format.
func (m *MetricsService) ExportStarted(format string) {
	if m == nil {
		return
	}
	m.exportsStarted.WithLabelValues(format).Inc()
}

// UploadRejected bumps the rejected-upload counter.
func (m *MetricsService) UploadRejected() {
	if m == nil {
		return
	}
	m.uploadsRejected.Inc()
}
