package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric ищет серию по имени и значениям лейблов в собранном реестре.
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok {
			if want != pair.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

func TestCRUDMetricsObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCRUDMetricsWithRegisterer(reg)

	m.ObserveOperation("dish", "save", ResultSuccess, 10*time.Millisecond)
	m.ObserveOperation("dish", "save", ResultSuccess, 20*time.Millisecond)
	m.ObserveOperation("dish", "update", ResultNotFound, time.Millisecond)

	saved := findMetric(t, reg, "rms_crud_operations_total", map[string]string{"entity": "dish", "operation": "save", "result": ResultSuccess})
	if saved.GetCounter().GetValue() != 2 {
		t.Errorf("expected 2 saves, got %f", saved.GetCounter().GetValue())
	}

	duration := findMetric(t, reg, "rms_crud_operation_duration_seconds", map[string]string{"entity": "dish", "operation": "save"})
	if duration.GetHistogram().GetSampleCount() != 2 {
		t.Errorf("expected 2 duration samples, got %d", duration.GetHistogram().GetSampleCount())
	}
}

func TestCRUDMetricsReuseRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewCRUDMetricsWithRegisterer(reg)
	second := NewCRUDMetricsWithRegisterer(reg)

	first.ObserveOperation("menu", "delete", ResultSuccess, time.Millisecond)
	second.ObserveOperation("menu", "delete", ResultSuccess, time.Millisecond)

	metric := findMetric(t, reg, "rms_crud_operations_total", map[string]string{"entity": "menu", "operation": "delete"})
	if metric.GetCounter().GetValue() != 2 {
		t.Errorf("expected shared counter value 2, got %f", metric.GetCounter().GetValue())
	}
}

func TestReportMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReportMetricsWithRegisterer(reg)

	m.RecordStarted()
	m.RecordStarted()
	m.RecordFinished(5 * time.Millisecond)
	m.RecordGenerated()
	m.RecordFailed("reference")
	m.RecordDishLookup(ResultSuccess, time.Millisecond)

	if v := findMetric(t, reg, "rms_reports_in_flight", nil).GetGauge().GetValue(); v != 1 {
		t.Errorf("expected 1 report in flight, got %f", v)
	}
	if v := findMetric(t, reg, "rms_reports_generated_total", nil).GetCounter().GetValue(); v != 1 {
		t.Errorf("expected 1 generated report, got %f", v)
	}
	if v := findMetric(t, reg, "rms_reports_failed_total", map[string]string{"reason": "reference"}).GetCounter().GetValue(); v != 1 {
		t.Errorf("expected 1 failed report, got %f", v)
	}
	if c := findMetric(t, reg, "rms_report_duration_seconds", nil).GetHistogram().GetSampleCount(); c != 1 {
		t.Errorf("expected 1 aggregation sample, got %d", c)
	}
	if v := findMetric(t, reg, "rms_report_dish_lookups_total", map[string]string{"result": ResultSuccess}).GetCounter().GetValue(); v != 1 {
		t.Errorf("expected 1 dish lookup, got %f", v)
	}
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetricsWithRegisterer(reg)

	m.ObserveRequest("GET", "/dishes/:id", 404, time.Millisecond)

	metric := findMetric(t, reg, "rms_http_requests_total", map[string]string{"method": "GET", "route": "/dishes/:id", "status": "404"})
	if metric.GetCounter().GetValue() != 1 {
		t.Errorf("expected 1 request, got %f", metric.GetCounter().GetValue())
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var crud *CRUDMetrics
	var report *ReportMetrics
	var http *HTTPMetrics

	crud.ObserveOperation("dish", "save", ResultSuccess, time.Millisecond)
	report.RecordStarted()
	report.RecordFinished(time.Millisecond)
	report.RecordGenerated()
	report.RecordFailed("render")
	report.RecordDishLookup(ResultError, time.Millisecond)
	http.ObserveRequest("GET", "/", 200, time.Millisecond)
}
