package booking

import (
	"context"
	"time"

	"github.com/iliyamo/eventlink-tickets/internal/model"
	"github.com/iliyamo/eventlink-tickets/internal/ticket"
)

// Store is the shared persistent store behind the lifecycle engine.  Every
// mutation runs inside InTx; the function either commits as a whole or
// leaves no trace.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	FindByCode(ctx context.Context, code string) (model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	Stats(ctx context.Context) (model.BookingStats, error)
}

// Tx is the set of operations available inside a transaction.  The two
// conditional writes, Reserve and Transition, are the only points of
// coordination between concurrent requests.
type Tx interface {
	// Reserve adds quantity to the event's reserved count only if the
	// result stays within capacity.  It returns ErrSoldOut otherwise and
	// ErrNotFound when the event has no ledger entry.
	Reserve(ctx context.Context, eventID string, quantity int) error
	// Release returns quantity to the pool, never going below zero.
	Release(ctx context.Context, eventID string, quantity int) error
	// Insert stores a new booking.  It returns ErrDuplicateCode when the
	// code is already taken.
	Insert(ctx context.Context, b model.Booking) error
	// Transition moves the booking from one status to another if and only
	// if its current status is from.  It returns ErrInvalidTransition when
	// the guard does not match and ErrNotFound when the code is unknown.
	Transition(ctx context.Context, code string, from, to model.Status, at time.Time) (model.Booking, error)
	// DeleteByIDs removes bookings and releases the capacity held by the
	// non-cancelled ones.  It returns the number of removed rows.
	DeleteByIDs(ctx context.Context, ids []string) (int, error)
}

// Catalog gives read-only access to event metadata.
type Catalog interface {
	Event(ctx context.Context, id string) (model.Event, error)
}

// Dispatcher hands a committed confirmation to the rendering and
// notification pipeline.  Implementations may run asynchronously.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev model.ConfirmedEvent) error
}

// Renderer produces the ticket document for a confirmed booking.
type Renderer interface {
	Render(b model.Booking, ev model.Event) (ticket.Document, error)
}
