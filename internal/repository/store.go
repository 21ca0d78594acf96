package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/eventlink-tickets/internal/booking"
	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// Store is the MySQL implementation of booking.Store.  Reads go straight
// to the pool; mutations run inside InTx on a single transaction so the
// capacity ledger and the bookings table always move together.
type Store struct {
	db       *sqlx.DB
	bookings *BookingRepo
	capacity *CapacityRepo
}

// NewStore returns a Store bound to db.
func NewStore(db *sqlx.DB) *Store {
	if db == nil {
		panic("db is nil")
	}
	return &Store{db: db, bookings: NewBookingRepo(db), capacity: NewCapacityRepo(db)}
}

// InTx runs fn inside a transaction.  The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				err = errors.Join(err, rollbackErr)
			}
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("could not commit transaction: %w", commitErr)
		}
	}()

	return fn(ctx, &storeTx{tx: tx, bookings: s.bookings, capacity: s.capacity})
}

func (s *Store) FindByCode(ctx context.Context, code string) (model.Booking, error) {
	return s.bookings.GetByCode(ctx, s.db, code)
}

func (s *Store) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	return s.bookings.List(ctx, f)
}

func (s *Store) Stats(ctx context.Context) (model.BookingStats, error) {
	return s.bookings.Stats(ctx)
}

// storeTx adapts the repositories' *Tx methods to booking.Tx.
type storeTx struct {
	tx       *sqlx.Tx
	bookings *BookingRepo
	capacity *CapacityRepo
}

func (t *storeTx) Reserve(ctx context.Context, eventID string, quantity int) error {
	return t.capacity.ReserveTx(ctx, t.tx, eventID, quantity)
}

func (t *storeTx) Release(ctx context.Context, eventID string, quantity int) error {
	return t.capacity.ReleaseTx(ctx, t.tx, eventID, quantity)
}

func (t *storeTx) Insert(ctx context.Context, b model.Booking) error {
	return t.bookings.InsertTx(ctx, t.tx, b)
}

func (t *storeTx) Transition(ctx context.Context, code string, from, to model.Status, at time.Time) (model.Booking, error) {
	return t.bookings.TransitionTx(ctx, t.tx, code, from, to, at)
}

func (t *storeTx) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	held, err := t.bookings.HeldByIDsTx(ctx, t.tx, ids)
	if err != nil {
		return 0, err
	}
	n, err := t.bookings.DeleteByIDsTx(ctx, t.tx, ids)
	if err != nil {
		return 0, err
	}
	for _, h := range held {
		if err := t.capacity.ReleaseTx(ctx, t.tx, h.EventID, h.Quantity); err != nil {
			return 0, err
		}
	}
	return n, nil
}

var _ booking.Store = (*Store)(nil)
