// Package metrics holds the Prometheus collectors for booking lifecycle
// outcomes.  They are registered on the default registry and exposed by
// the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventlink",
		Name:      "bookings_created_total",
		Help:      "Bookings stored with status pending.",
	})

	BookingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventlink",
		Name:      "bookings_rejected_total",
		Help:      "Create requests that did not produce a booking, by reason.",
	}, []string{"reason"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventlink",
		Name:      "booking_transitions_total",
		Help:      "Status transitions by target status and outcome.",
	}, []string{"to", "outcome"})

	CodeCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventlink",
		Name:      "booking_code_collisions_total",
		Help:      "Generated codes rejected by the store's unique constraint.",
	})

	RenderDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventlink",
		Name:      "ticket_render_degraded_total",
		Help:      "Tickets rendered without a scannable code.",
	})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventlink",
		Name:      "notification_failures_total",
		Help:      "Confirmation side effects that failed, by stage.",
	}, []string{"stage"})
)
