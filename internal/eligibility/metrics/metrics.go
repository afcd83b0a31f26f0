// Package metrics provides Prometheus metrics for the eligibility module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all eligibility evaluation metrics.
type Metrics struct {
	LookupsTotal          *prometheus.CounterVec   // Provider lookups by outcome (ok, error)
	LookupDurationSeconds *prometheus.HistogramVec // Provider lookup latency by outcome
	CacheHitsTotal        prometheus.Counter       // Lookup cache hits
	CacheMissesTotal      prometheus.Counter       // Lookup cache misses
	DecisionsTotal        *prometheus.CounterVec   // Evaluations by verdict (clean, vpn, blocked_country, fail_open)
}

// New creates a new Metrics instance with all metrics registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		LookupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_eligibility_lookups_total",
			Help: "Total number of geolocation provider lookups by outcome",
		}, []string{"outcome"}),

		LookupDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trialgate_eligibility_lookup_duration_seconds",
			Help:    "Duration of geolocation provider lookups by outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"outcome"}),

		CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trialgate_eligibility_cache_hits_total",
			Help: "Total number of lookup cache hits",
		}),

		CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trialgate_eligibility_cache_misses_total",
			Help: "Total number of lookup cache misses",
		}),

		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trialgate_eligibility_decisions_total",
			Help: "Total number of eligibility evaluations by verdict",
		}, []string{"verdict"}),
	}
}
