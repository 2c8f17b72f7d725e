package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records record-store operations: how long each load/save took,
// whether it failed, and how many malformed records a load skipped.
type StoreMetrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
	skipped  *prometheus.CounterVec
}

// NewStoreMetrics registers the store metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_operation_duration_seconds",
		Help:    "Duration of record store loads and saves in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_save_failures_total",
		Help: "Failed record store writes.",
	}, []string{"kind"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_records_skipped_total",
		Help: "Malformed records skipped while loading.",
	}, []string{"kind"})
	reg.MustRegister(duration, failures, skipped)
	return &StoreMetrics{
		duration: duration,
		failures: failures,
		skipped:  skipped,
	}
}

// ObserveDuration records how long the named operation took.
func (s *StoreMetrics) ObserveDuration(operation string, duration time.Duration) {
	if s == nil || s.duration == nil {
		return
	}
	s.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSaveFailure counts a failed write of kind ("catalog" or "sales").
func (s *StoreMetrics) IncSaveFailure(kind string) {
	if s == nil || s.failures == nil {
		return
	}
	s.failures.WithLabelValues(normalizeLabel(kind)).Inc()
}

// AddSkipped counts n skipped records of kind.
func (s *StoreMetrics) AddSkipped(kind string, n int) {
	if s == nil || s.skipped == nil || n <= 0 {
		return
	}
	s.skipped.WithLabelValues(normalizeLabel(kind)).Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
