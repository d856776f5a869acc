package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookline_bookings_total",
			Help: "Booking requests by terminal outcome.",
		},
		[]string{"outcome"},
	)

	CommitRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookline_commit_retries_total",
			Help: "Commits re-attempted after losing a slot race.",
		},
	)

	ResolutionSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookline_slot_resolution_steps",
			Help:    "Grid steps walked to find the nearest free slot.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)
