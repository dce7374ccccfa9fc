// Package metrics holds the engine's prometheus counters, registered on the
// default registry and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lodgekeep_bookings_created_total",
		Help: "Bookings successfully created.",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lodgekeep_bookings_cancelled_total",
		Help: "Bookings cancelled.",
	})

	CapacityConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lodgekeep_capacity_conflicts_total",
		Help: "Booking creations rejected because availability evaporated between quote and commit.",
	})

	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lodgekeep_payments_recorded_total",
		Help: "Ledger entries recorded, by method.",
	}, []string{"method"})
)
