package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	allocationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "numberpool",
			Name:      "allocations_total",
			Help:      "Pool number allocations by selection strategy and sticky reuse.",
		},
		[]string{"strategy", "sticky"},
	)

	exhaustedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "numberpool",
			Name:      "exhausted_total",
			Help:      "Allocations refused because the pool reserve would be breached.",
		},
		[]string{"org_id"},
	)

	releasedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "numberpool",
			Name:      "released_total",
			Help:      "Pool numbers returned to the pool by release reason.",
		},
		[]string{"reason"},
	)

	availableGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "numberpool",
			Name:      "available",
			Help:      "Unbound active pool numbers per org, refreshed by the sweep.",
		},
		[]string{"org_id"},
	)

	sweepDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "numberpool",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of reclamation sweeps.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
