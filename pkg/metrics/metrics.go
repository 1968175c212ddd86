package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	PagesFetchedTotal   *prometheus.CounterVec
	FetchDuration       *prometheus.HistogramVec
	EntitiesTotal       *prometheus.CounterVec
	RunsTotal           *prometheus.CounterVec
	SchemaColumns       prometheus.Gauge
}

// New registers the application metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		PagesFetchedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_pages_fetched_total",
				Help: "Total number of page fetch attempts.",
			},
			[]string{"kind", "status"}, // kind: index, detail; status: success, failure
		),
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraper_fetch_duration_seconds",
				Help:    "Duration of page fetches.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"kind"},
		),
		EntitiesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_entities_total",
				Help: "Entities processed, by outcome.",
			},
			[]string{"outcome"}, // emitted, skipped
		),
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_runs_total",
				Help: "Scrape runs, by result.",
			},
			[]string{"result"},
		),
		SchemaColumns: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraper_schema_columns",
				Help: "Number of category columns in the last finished run.",
			},
		),
	}
}

func (m *Metrics) ObserveFetch(kind string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.PagesFetchedTotal.WithLabelValues(kind, status).Inc()
	m.FetchDuration.WithLabelValues(kind).Observe(seconds)
}

func (m *Metrics) IncEntity(outcome string) {
	if m == nil {
		return
	}
	m.EntitiesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FinishRun(result string, columns int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(result).Inc()
	if result == "success" {
		m.SchemaColumns.Set(float64(columns))
	}
}

func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}
