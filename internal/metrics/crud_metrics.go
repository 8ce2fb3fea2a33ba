package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты CRUD-операций.
const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// CRUDMetrics содержит метрики операций generic CRUD-сервиса.
type CRUDMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCRUDMetrics регистрирует метрики в DefaultRegisterer.
func NewCRUDMetrics() *CRUDMetrics {
	return NewCRUDMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCRUDMetricsWithRegisterer нужен тестам с изолированным реестром.
func NewCRUDMetricsWithRegisterer(registerer prometheus.Registerer) *CRUDMetrics {
	return &CRUDMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "rms_crud_operations_total",
			Help: "Total number of CRUD operations by entity, operation and result",
		}, []string{"entity", "operation", "result"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "rms_crud_operation_duration_seconds",
			Help:    "Duration of CRUD operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
	}
}

// ObserveOperation фиксирует результат и длительность операции. Безопасен для nil.
func (m *CRUDMetrics) ObserveOperation(entity, operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(entity, operation, result).Inc()
	m.duration.WithLabelValues(entity, operation).Observe(duration.Seconds())
}
