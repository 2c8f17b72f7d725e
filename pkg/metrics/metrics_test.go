package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func TestStoreMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStoreMetrics(reg)
	metrics.ObserveDuration("load_catalog", 250*time.Millisecond)
	metrics.IncSaveFailure("sales")
	metrics.AddSkipped("catalog", 3)
	metrics.AddSkipped("catalog", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "store_save_failures_total", "kind", "sales"); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failures=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "store_records_skipped_total", "kind", "catalog"); err != nil {
		t.Fatalf("fetch skipped: %v", err)
	} else if got != 3 {
		t.Fatalf("expected skipped=3, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "store_operation_duration_seconds", "operation", "load_catalog"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestSalesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSalesMetrics(reg)
	metrics.ObserveProcessed(decimal.RequireFromString("43.00"))
	metrics.ObserveProcessed(decimal.RequireFromString("7.50"))
	metrics.IncRejected("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if mf := findMetricFamily(mfs, "sales_processed_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 2 {
		t.Fatalf("expected 2 processed sales, got %v", mf)
	}
	if mf := findMetricFamily(mfs, "sale_revenue_total"); mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 50.5 {
		t.Fatalf("expected revenue 50.5, got %v", mf)
	}
	if got, err := fetchCounterValue(mfs, "sales_rejected_total", "code", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected one rejected sale under unknown, got %f (%v)", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	store := NewStoreMetrics(nil)
	store.ObserveDuration("save_catalog", time.Second)
	store.IncSaveFailure("catalog")
	store.AddSkipped("sales", 1)

	var sales *SalesMetrics
	sales.ObserveProcessed(decimal.NewFromInt(1))
	NewSalesMetrics(nil).IncRejected("CONFLICT")
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSalesMetrics(reg).ObserveProcessed(decimal.NewFromInt(10))

	path := filepath.Join(t.TempDir(), "nested", "shopkeeper.prom")
	if err := WriteTextfile(reg, path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "sales_processed_total 1") {
		t.Fatalf("textfile missing counter:\n%s", data)
	}

	if err := WriteTextfile(reg, ""); err == nil {
		t.Fatal("expected empty path to fail")
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
