package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the verification flow metrics.
type Metrics struct {
	SubmissionsTotal *prometheus.CounterVec // Step-1 submissions by outcome (passed, rejected, invalid, store_error)
}

// NewMetrics creates a Metrics instance registered on the default
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_verification_submissions_total",
			Help: "Total number of step-1 submissions by outcome",
		}, []string{"outcome"}),
	}
}
