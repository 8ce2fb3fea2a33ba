package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReportMetrics содержит метрики агрегации и генерации отчётов по счетам.
type ReportMetrics struct {
	generated prometheus.Counter
	failed    *prometheus.CounterVec

	aggregationDuration prometheus.Histogram
	dishLookupDuration  prometheus.Histogram
	dishLookups         *prometheus.CounterVec

	inFlight prometheus.Gauge
}

func NewReportMetrics() *ReportMetrics {
	return NewReportMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewReportMetricsWithRegisterer(registerer prometheus.Registerer) *ReportMetrics {
	return &ReportMetrics{
		generated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "rms_reports_generated_total",
			Help: "Total number of invoice reports rendered",
		}),
		failed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "rms_reports_failed_total",
			Help: "Total number of invoice reports that were not produced, by reason",
		}, []string{"reason"}),
		aggregationDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "rms_report_duration_seconds",
			Help:    "Duration of invoice aggregation and rendering",
			Buckets: prometheus.DefBuckets,
		}),
		dishLookupDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "rms_report_dish_lookup_duration_seconds",
			Help:    "Duration of a single dish lookup during aggregation",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		dishLookups: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "rms_report_dish_lookups_total",
			Help: "Total number of dish lookups during aggregation, by result",
		}, []string{"result"}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "rms_reports_in_flight",
			Help: "Number of invoice aggregations currently running",
		}),
	}
}

// RecordStarted увеличивает число активных агрегаций.
func (m *ReportMetrics) RecordStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RecordFinished уменьшает число активных агрегаций и пишет длительность.
func (m *ReportMetrics) RecordFinished(duration time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.aggregationDuration.Observe(duration.Seconds())
}

func (m *ReportMetrics) RecordGenerated() {
	if m == nil {
		return
	}
	m.generated.Inc()
}

// RecordFailed считает несостоявшийся отчёт с причиной.
func (m *ReportMetrics) RecordFailed(reason string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(reason).Inc()
}

func (m *ReportMetrics) RecordDishLookup(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dishLookups.WithLabelValues(result).Inc()
	m.dishLookupDuration.Observe(duration.Seconds())
}
