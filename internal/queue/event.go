// Package queue carries booking confirmations from the request that
// committed them to the worker that renders and mails the ticket.
// Messages are JSON; the correlation ID of the originating request
// travels in the correlation_id header.
package queue

import (
	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// Queue names.  Both are durable.
const (
	BookingConfirmedQueue   = "booking.confirmed"
	NotificationFailedQueue = "booking.notification_failed"
)

const correlationHeader = "correlation_id"

// BookingConfirmed is the payload of BookingConfirmedQueue.  It carries
// the booking and event snapshot so the worker never queries the
// database.
type BookingConfirmed = model.ConfirmedEvent

// NotificationFailed is the payload of NotificationFailedQueue.
type NotificationFailed = model.NotificationFailed
