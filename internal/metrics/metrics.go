// Package metrics exposes Prometheus collectors for the HTTP surface
// and the domain operations behind it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. Construct one per process
// and pass it where it is needed; there is no package-level instance.
type Metrics struct {
	// HTTP surface
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	HTTPErrorsTotal            *prometheus.CounterVec

	// Domain operations
	RecommendationsGeneratedTotal *prometheus.CounterVec
	RecommendationsAppliedTotal   prometheus.Counter
	AutomationExecutionsTotal     *prometheus.CounterVec
	AIRequestsTotal               *prometheus.CounterVec
	SheetsRowsPulledTotal         *prometheus.CounterVec
	ExportRowsTotal               prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered on a
// private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adpilot_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_http_errors_total",
				Help: "Total number of HTTP error responses",
			},
			[]string{"error_type"},
		),
		RecommendationsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_recommendations_generated_total",
				Help: "Total number of recommendations created, by type",
			},
			[]string{"type"},
		),
		RecommendationsAppliedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpilot_recommendations_applied_total",
				Help: "Total number of recommendations applied",
			},
		),
		AutomationExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_automation_executions_total",
				Help: "Total number of automation rule executions",
			},
			[]string{"action", "status"},
		),
		AIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_ai_requests_total",
				Help: "Total number of AI generation requests",
			},
			[]string{"provider", "status"},
		),
		SheetsRowsPulledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adpilot_sheets_rows_pulled_total",
				Help: "Total number of rows pulled from Google Sheets",
			},
			[]string{"sheet"},
		),
		ExportRowsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adpilot_export_rows_total",
				Help: "Total number of Ads Editor CSV rows exported",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		m.HTTPErrorsTotal,
		m.RecommendationsGeneratedTotal,
		m.RecommendationsAppliedTotal,
		m.AutomationExecutionsTotal,
		m.AIRequestsTotal,
		m.SheetsRowsPulledTotal,
		m.ExportRowsTotal,
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the scrape endpoint handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
