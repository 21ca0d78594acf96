package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/eventlink-tickets/internal/booking"
	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// CapacityRepo owns the event_capacity table, one row per event holding
// the total number of tickets and the number reserved by non-cancelled
// bookings.  reserved is only ever changed by the two conditional
// statements below.
type CapacityRepo struct {
	db *sqlx.DB
}

// NewCapacityRepo returns a new CapacityRepo bound to the given database.
func NewCapacityRepo(db *sqlx.DB) *CapacityRepo { return &CapacityRepo{db: db} }

// ReserveTx adds quantity to the event's reserved count.  The capacity
// check and the increment are a single UPDATE, so concurrent reservations
// for the same event serialise on the row lock and can never push
// reserved past total_tickets.
//
// It returns booking.ErrSoldOut when the remaining capacity is too small
// and booking.ErrNotFound when the event has no ledger row.
func (r *CapacityRepo) ReserveTx(ctx context.Context, tx *sqlx.Tx, eventID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("reserve: quantity must be positive, got %d", quantity)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE event_capacity SET reserved = reserved + ? WHERE event_id = ? AND reserved + ? <= total_tickets`,
		quantity, eventID, quantity)
	if err != nil {
		return fmt.Errorf("could not reserve capacity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not reserve capacity: %w", err)
	}
	if n == 1 {
		return nil
	}

	var one int
	err = tx.GetContext(ctx, &one, `SELECT 1 FROM event_capacity WHERE event_id = ?`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("could not read capacity: %w", err)
	}
	return booking.ErrSoldOut
}

// ReleaseTx returns quantity to the pool.  reserved never drops below
// zero, so releasing more than was held cannot inflate capacity beyond
// total_tickets.
func (r *CapacityRepo) ReleaseTx(ctx context.Context, tx *sqlx.Tx, eventID string, quantity int) error {
	if quantity < 1 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE event_capacity SET reserved = GREATEST(reserved - ?, 0) WHERE event_id = ?`,
		quantity, eventID)
	if err != nil {
		return fmt.Errorf("could not release capacity: %w", err)
	}
	return nil
}

// Availability reads the ledger entry of one event for display.
func (r *CapacityRepo) Availability(ctx context.Context, eventID string) (model.Capacity, error) {
	var c model.Capacity
	err := r.db.GetContext(ctx, &c,
		`SELECT event_id, total_tickets, reserved FROM event_capacity WHERE event_id = ?`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return c, booking.ErrNotFound
	}
	return c, err
}

// UpsertTx creates or resizes the ledger row of an event.  Shrinking below
// the number already reserved leaves the total unchanged.
func (r *CapacityRepo) UpsertTx(ctx context.Context, tx *sqlx.Tx, eventID string, total int) error {
	if total < 0 {
		return fmt.Errorf("capacity of %s must not be negative", eventID)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO event_capacity (event_id, total_tickets, reserved) VALUES (?, ?, 0)
		 ON DUPLICATE KEY UPDATE total_tickets = IF(reserved <= VALUES(total_tickets), VALUES(total_tickets), total_tickets)`,
		eventID, total)
	if err != nil {
		return fmt.Errorf("could not set capacity: %w", err)
	}
	return nil
}
