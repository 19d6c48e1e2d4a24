package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medscan"

// Metrics holds the Prometheus collectors of the server. Each instance owns a
// registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal     *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	AnalysesActive    prometheus.Gauge
	ConfidenceScores  prometheus.Histogram
	DecodeErrorsTotal prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	StoreOperationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Analyses finished, by outcome, scan type and severity",
			},
			[]string{"status", "scan_type", "severity"},
		),
		AnalysisDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Time from upload to report, decode included",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		AnalysesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "analyses_active",
				Help:      "Analyses currently running",
			},
		),
		ConfidenceScores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_confidence",
				Help:      "Confidence of valid analyses",
				Buckets:   prometheus.LinearBuckets(60, 5, 9),
			},
		),
		DecodeErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Uploads that could not be decoded as images",
			},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		StoreOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Result store operations by driver, operation and result",
			},
			[]string{"driver", "operation", "result"},
		),
	}
}

// RecordAnalysis counts a finished analysis. confidence is ignored for invalid
// results.
func (m *Metrics) RecordAnalysis(status, scanType, severity string, confidence int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(status, scanType, severity).Inc()
	m.AnalysisDuration.Observe(elapsed.Seconds())
	if confidence > 0 {
		m.ConfidenceScores.Observe(float64(confidence))
	}
}

// RecordDecodeError counts an upload the loader rejected.
func (m *Metrics) RecordDecodeError() {
	if m == nil {
		return
	}
	m.DecodeErrorsTotal.Inc()
}

// TrackActive increments the active gauge and returns its decrement.
func (m *Metrics) TrackActive() func() {
	if m == nil {
		return func() {}
	}
	m.AnalysesActive.Inc()
	return m.AnalysesActive.Dec
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordStoreOperation records one result store call.
func (m *Metrics) RecordStoreOperation(driver, operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.StoreOperationsTotal.WithLabelValues(driver, operation, result).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
