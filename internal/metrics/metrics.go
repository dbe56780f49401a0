// Package metrics defines the Prometheus collectors for the settlement
// backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementsCreated counts successfully created settlements.
	SettlementsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlements_created_total",
		Help: "Number of settlements created.",
	})

	// ClaimConflicts counts claims aborted because a selected order was
	// no longer eligible. A high rate means operators race each other.
	ClaimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_claim_conflicts_total",
		Help: "Number of settlement claims aborted due to stale order selections.",
	})

	// Transitions counts lifecycle transitions by target status.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transitions_total",
		Help: "Number of settlement lifecycle transitions by target status.",
	}, []string{"to"})

	// ClaimDuration observes how long claim transactions take.
	ClaimDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_claim_duration_seconds",
		Help:    "Duration of settlement claim transactions.",
		Buckets: prometheus.DefBuckets,
	})
)
