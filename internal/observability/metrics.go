package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "homeready"

// Metrics holds the Prometheus collectors for the audit service.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: method, route

	AuditsCreated   *prometheus.CounterVec // labels: hazard
	AuditsCleanedUp prometheus.Counter

	ReportsGenerated *prometheus.CounterVec // labels: hazard, outcome={success,timeout,error}
	RenderDuration   prometheus.Histogram
	ArchiveFailures  prometheus.Counter
	InsightRequests  *prometheus.CounterVec // labels: outcome={success,error,not_configured}

	RateLimited  prometheus.Counter
	CatalogItems *prometheus.GaugeVec // labels: kind={recommendation,grant,insurance}
}

func newMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		AuditsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_created_total",
			Help:      "Audits created by primary hazard.",
		}, []string{"hazard"}),
		AuditsCleanedUp: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_cleaned_up_total",
			Help:      "Abandoned incomplete audits deleted by cleanup.",
		}),
		ReportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "Report generation attempts by hazard and outcome.",
		}, []string{"hazard", "outcome"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_render_duration_seconds",
			Help:      "Time spent converting report HTML to PDF.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		ArchiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_archive_failures_total",
			Help:      "Generated reports that could not be copied to object storage.",
		}),
		InsightRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insight_requests_total",
			Help:      "AI insight requests by outcome.",
		}, []string{"outcome"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		CatalogItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_items",
			Help:      "Entries loaded from the static catalog by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HTTPRequests,
		m.HTTPDuration,
		m.AuditsCreated,
		m.AuditsCleanedUp,
		m.ReportsGenerated,
		m.RenderDuration,
		m.ArchiveFailures,
		m.InsightRequests,
		m.RateLimited,
		m.CatalogItems,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
