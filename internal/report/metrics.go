package report

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	TierPrecomputed      = "precomputed"
	TierCostBased        = "cost_based"
	TierLineHeuristic    = "line_heuristic"
	TierInvoiceHeuristic = "invoice_heuristic"
	TierNotArray         = "not_array"
)

// Metrics counts which profit rule each invoice line fell through to and how
// long reports take. A nil *Metrics records nothing.
type Metrics struct {
	profitTiers *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	failures    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		profitTiers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pos",
				Subsystem: "report",
				Name:      "profit_tier_total",
				Help:      "Profit estimations by the rule that produced them",
			},
			[]string{"tier"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pos",
				Subsystem: "report",
				Name:      "generate_seconds",
				Help:      "Report generation latency",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"type"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pos",
				Subsystem: "report",
				Name:      "failures_total",
				Help:      "Reports that failed to generate",
			},
			[]string{"type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.profitTiers, m.duration, m.failures)
	}
	return m
}

func (m *Metrics) observeTier(tier string) {
	if m == nil {
		return
	}
	m.profitTiers.WithLabelValues(tier).Inc()
}

func (m *Metrics) observeDuration(reportType string, seconds float64) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(reportType).Observe(seconds)
}

func (m *Metrics) observeFailure(reportType string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reportType).Inc()
}
