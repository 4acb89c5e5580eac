// Package metrics provides observability for the verification module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the verification module's Prometheus collectors. A nil
// *Metrics is valid and records nothing, so wiring stays optional.
type Metrics struct {
	// Check outcomes by check name and status
	CheckOutcome *prometheus.CounterVec

	// Verdict outcomes by overall status
	VerdictOutcome *prometheus.CounterVec

	// Full evaluation latency per submission
	EvaluateLatency prometheus.Histogram

	// Evidence records rejected during normalization, by reason
	EvidenceRejected *prometheus.CounterVec

	// Cross-channel discrepancies detected, by check name
	DiscrepancyDetected *prometheus.CounterVec
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		CheckOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriterra_verification_check_outcomes_total",
			Help: "Total check outcomes by check name and status",
		}, []string{"check", "status"}),

		VerdictOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriterra_verification_verdict_outcomes_total",
			Help: "Total verdict outcomes by overall status",
		}, []string{"status"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "veriterra_verification_evaluate_duration_seconds",
			Help:    "Duration of full submission evaluation including aggregation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		EvidenceRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriterra_verification_evidence_rejected_total",
			Help: "Total evidence records rejected during normalization, by reason",
		}, []string{"reason"}),

		DiscrepancyDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veriterra_verification_discrepancies_total",
			Help: "Total cross-channel discrepancies detected, by check name",
		}, []string{"check"}),
	}
}

// IncrementCheckOutcome records one check result.
func (m *Metrics) IncrementCheckOutcome(check, status string) {
	if m != nil {
		m.CheckOutcome.WithLabelValues(check, status).Inc()
	}
}

// IncrementVerdictOutcome records one decided verdict.
func (m *Metrics) IncrementVerdictOutcome(status string) {
	if m != nil {
		m.VerdictOutcome.WithLabelValues(status).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// IncrementEvidenceRejected records one rejected evidence record.
func (m *Metrics) IncrementEvidenceRejected(reason string) {
	if m != nil {
		m.EvidenceRejected.WithLabelValues(reason).Inc()
	}
}

// IncrementDiscrepancy records one detected discrepancy.
func (m *Metrics) IncrementDiscrepancy(check string) {
	if m != nil {
		m.DiscrepancyDetected.WithLabelValues(check).Inc()
	}
}
