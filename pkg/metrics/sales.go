package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// SalesMetrics counts processed sales and the revenue they brought in.
type SalesMetrics struct {
	processed prometheus.Counter
	revenue   prometheus.Counter
	failed    *prometheus.CounterVec
}

func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	if reg == nil {
		return &SalesMetrics{}
	}
	processed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sales_processed_total",
		Help: "Sales finalized and persisted.",
	})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sale_revenue_total",
		Help: "Sum of processed sale totals.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_rejected_total",
		Help: "Sales that could not be processed, by error code.",
	}, []string{"code"})
	reg.MustRegister(processed, revenue, failed)
	return &SalesMetrics{
		processed: processed,
		revenue:   revenue,
		failed:    failed,
	}
}

// ObserveProcessed records one finalized sale worth total.
func (s *SalesMetrics) ObserveProcessed(total decimal.Decimal) {
	if s == nil || s.processed == nil {
		return
	}
	s.processed.Inc()
	s.revenue.Add(total.InexactFloat64())
}

// IncRejected records a sale that failed with the given error code.
func (s *SalesMetrics) IncRejected(code string) {
	if s == nil || s.failed == nil {
		return
	}
	s.failed.WithLabelValues(normalizeLabel(code)).Inc()
}
