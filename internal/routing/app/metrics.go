package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolveCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "routing",
			Name:      "resolve_total",
			Help:      "Total routing resolutions by outcome reason.",
		},
		[]string{"reason", "mode"}, // mode: "live", "simulate", "cached"
	)

	resolveDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "routing",
			Name:      "resolve_duration_seconds",
			Help:      "Duration of routing resolutions.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	conflictsDetectedGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "routing",
			Name:      "window_conflicts",
			Help:      "Overlapping window pairs found by the last conflict scan.",
		},
		[]string{"org_id"},
	)
)
