// Package metrics holds the site's Prometheus collectors.
//
// All record methods are safe on a nil *Metrics, which disables recording.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "clubsite"

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec   // route, method, code
	requestDuration *prometheus.HistogramVec // route
	resolutions     *prometheus.CounterVec   // context, rule
	uploads         *prometheus.CounterVec   // outcome
	initAttempts    *prometheus.CounterVec   // step, outcome
	exports         *prometheus.CounterVec   // outcome
	exportDuration  prometheus.Histogram
}

// New creates and registers all collectors, plus Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code",
		}, []string{"route", "method", "code"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assets",
			Name:      "resolutions_total",
			Help:      "Asset reference resolutions by context and matched rule",
		}, []string{"context", "rule"}),

		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assets",
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome (stored, rejected, failed)",
		}, []string{"outcome"}),

		initAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "startup",
			Name:      "step_attempts_total",
			Help:      "Initialization step attempts by outcome",
		}, []string{"step", "outcome"}),

		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "pdf_total",
			Help:      "Printable exports by outcome",
		}, []string{"outcome"}),

		exportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "pdf_duration_seconds",
			Help:      "Printable export duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.resolutions,
		m.uploads,
		m.initAttempts,
		m.exports,
		m.exportDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Resolution records which resolver rule matched in a named context.
func (m *Metrics) Resolution(kind, rule string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(kind, rule).Inc()
}

// Upload records an upload outcome: stored, rejected or failed.
func (m *Metrics) Upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

// InitAttempt records one initialization step attempt.
func (m *Metrics) InitAttempt(step string, err error) {
	if m == nil {
		return
	}
	m.initAttempts.WithLabelValues(step, outcome(err)).Inc()
}

// Export records one printable export.
func (m *Metrics) Export(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.exportDuration.Observe(d.Seconds())
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
