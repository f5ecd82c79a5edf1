// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service collectors. A single instance is created at
// startup and shared by the HTTP middleware, the importer and the
// dataset gauge refresher.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	ImportsTotal    *prometheus.CounterVec
	ImportRows      *prometheus.CounterVec
	ImportDuration  prometheus.Histogram
	CompaniesGauge  prometheus.Gauge
	FiscalRowsGauge prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fiscal_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fiscal_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ImportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fiscal_imports_total",
			Help: "Spreadsheet imports by outcome.",
		}, []string{"outcome"}),
		ImportRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fiscal_import_rows_total",
			Help: "Imported spreadsheet rows by result.",
		}, []string{"result"}),
		ImportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fiscal_import_duration_seconds",
			Help:    "End to end spreadsheet import latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CompaniesGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fiscal_companies_total",
			Help: "Companies currently registered.",
		}),
		FiscalRowsGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fiscal_records_total",
			Help: "Fiscal records currently stored.",
		}),
	}
}

// ObserveHTTP records one finished request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveImport records one finished import run
func (m *Metrics) ObserveImport(outcome string, imported, skipped int, elapsed time.Duration) {
	m.ImportsTotal.WithLabelValues(outcome).Inc()
	m.ImportRows.WithLabelValues("imported").Add(float64(imported))
	m.ImportRows.WithLabelValues("skipped").Add(float64(skipped))
	m.ImportDuration.Observe(elapsed.Seconds())
}
