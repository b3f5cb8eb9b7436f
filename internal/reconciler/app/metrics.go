package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconciler",
			Name:      "booking_events_total",
			Help:      "Booking events processed by type and outcome.",
		},
		[]string{"type", "outcome"}, // outcome: "created", "updated", "deleted", "noop", "error"
	)

	sendAttemptsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconciler",
			Name:      "send_attempts_total",
			Help:      "Outbound delivery attempts by result.",
		},
		[]string{"status"},
	)

	inboundCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconciler",
			Name:      "inbound_total",
			Help:      "Inbound messages by outcome.",
		},
		[]string{"outcome"}, // "forwarded", "duplicate", "error"
	)
)
