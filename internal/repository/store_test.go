package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/eventlink-tickets/internal/booking"
	"github.com/iliyamo/eventlink-tickets/internal/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(sqlx.NewDb(db, "mysql")), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var bookingRowColumns = []string{
	"id", "code", "event_id", "event_title", "buyer_name", "buyer_email", "buyer_phone",
	"ticket_type", "quantity", "unit_price", "currency", "total_amount", "status",
	"created_at", "confirmed_at", "cancelled_at",
}

func TestReserve_ConditionalUpdate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE event_capacity SET reserved = reserved + ? WHERE event_id = ? AND reserved + ? <= total_tickets")).
		WithArgs(3, "e1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.Reserve(ctx, "e1", 3)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_SoldOutRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE event_capacity SET reserved = reserved + ?")).
		WithArgs(2, "e1", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM event_capacity WHERE event_id = ?")).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.Reserve(ctx, "e1", 2)
	})
	assert.ErrorIs(t, err, booking.ErrSoldOut)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_UnknownEvent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE event_capacity SET reserved = reserved + ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM event_capacity")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.Reserve(ctx, "ghost", 1)
	})
	assert.ErrorIs(t, err, booking.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_DuplicateCodeKeepsTransaction(t *testing.T) {
	store, mock := newMockStore(t)
	b := model.Booking{
		ID:          "0b7e0c43-1d8b-4b7e-9a8e-6c3f2f5e9d11",
		Code:        "EVT-01HZ9K-7QH2XW0C",
		EventID:     "e1",
		Buyer:       model.Buyer{Name: "Ama", Email: "ama@example.com", Phone: "020"},
		TicketType:  "VIP",
		Quantity:    1,
		UnitPrice:   decimal.NewFromInt(65),
		Currency:    "GHS",
		TotalAmount: decimal.NewFromInt(65),
		Status:      model.StatusPending,
		CreatedAt:   time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO bookings")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'code'"})
	mock.ExpectExec(q("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var first error
	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		first = tx.Insert(ctx, b)
		b.Code = "EVT-01HZ9K-8RJ3YZ1D"
		return tx.Insert(ctx, b)
	})
	require.NoError(t, err)
	assert.ErrorIs(t, first, booking.ErrDuplicateCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_OtherErrorsAreWrapped(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO bookings")).WillReturnError(boom)
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.Insert(ctx, model.Booking{Code: "EVT-01HZ9K-7QH2XW0C", Status: model.StatusPending})
	})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, booking.ErrDuplicateCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransition_GuardedOnPriorStatus(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	created := at.Add(-time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE bookings SET status = ?, confirmed_at = ? WHERE code = ? AND status = ?")).
		WithArgs("confirmed", at, "EVT-01HZ9K-7QH2XW0C", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FROM bookings WHERE code = ?")).
		WithArgs("EVT-01HZ9K-7QH2XW0C").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
			"0b7e0c43-1d8b-4b7e-9a8e-6c3f2f5e9d11", "EVT-01HZ9K-7QH2XW0C", "e1", "Afrochella",
			"Ama", "ama@example.com", "020", "VIP", 3, "65.00", "GHS", "195.00", "confirmed",
			created, at, nil,
		))
	mock.ExpectCommit()

	var got model.Booking
	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		var err error
		got, err = tx.Transition(ctx, "EVT-01HZ9K-7QH2XW0C", model.StatusPending, model.StatusConfirmed, at)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, "195", got.TotalAmount.String())
	assert.Equal(t, "Ama", got.Buyer.Name)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, got.ConfirmedAt.Equal(at))
	assert.Nil(t, got.CancelledAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransition_ZeroRowsIsInvalidTransition(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE bookings SET status = ?, cancelled_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT status FROM bookings WHERE code = ?")).
		WithArgs("EVT-01HZ9K-7QH2XW0C").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("confirmed"))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		if _, err := tx.Transition(ctx, "EVT-01HZ9K-7QH2XW0C", model.StatusPending, model.StatusCancelled, time.Now()); err != nil {
			return err
		}
		return tx.Release(ctx, "e1", 1)
	})
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransition_UnknownCode(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE bookings SET status = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT status FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		_, err := tx.Transition(ctx, "EVT-000000-00000000", model.StatusPending, model.StatusConfirmed, time.Now())
		return err
	})
	assert.ErrorIs(t, err, booking.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_NeverBelowZero(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE event_capacity SET reserved = GREATEST(reserved - ?, 0) WHERE event_id = ?")).
		WithArgs(2, "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		return tx.Release(ctx, "e1", 2)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByIDs_ReleasesHeldCapacity(t *testing.T) {
	store, mock := newMockStore(t)
	ids := []string{"id-1", "id-2", "id-3"}

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT event_id, SUM(quantity) AS quantity FROM bookings WHERE id IN (?, ?, ?)")).
		WithArgs("id-1", "id-2", "id-3").
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "quantity"}).AddRow("e1", 3).AddRow("e2", 1))
	mock.ExpectExec(q("DELETE FROM bookings WHERE id IN (?, ?, ?)")).
		WithArgs("id-1", "id-2", "id-3").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("GREATEST(reserved - ?, 0)")).WithArgs(3, "e1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("GREATEST(reserved - ?, 0)")).WithArgs(1, "e2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var n int
	err := store.InTx(context.Background(), func(ctx context.Context, tx booking.Tx) error {
		var err error
		n, err = tx.DeleteByIDs(ctx, ids)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByCode_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q("FROM bookings WHERE code = ?")).
		WithArgs("EVT-01HZ9K-7QH2XW0C").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))

	_, err := store.FindByCode(context.Background(), "EVT-01HZ9K-7QH2XW0C")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_BuildsFilter(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("WHERE status = ? AND created_at >= ? AND (LOWER(code) LIKE ? OR LOWER(buyer_name) LIKE ? OR LOWER(event_title) LIKE ?) ORDER BY created_at DESC")).
		WithArgs("pending", from, "%50\\%%", "%50\\%%", "%50\\%%").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns))

	got, err := store.List(context.Background(), model.BookingFilter{Status: model.StatusPending, From: from, Query: " 50% "})
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_Aggregates(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(q("SELECT status, COUNT(*) AS n FROM bookings GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).
			AddRow("pending", 2).AddRow("confirmed", 3).AddRow("cancelled", 1))
	mock.ExpectQuery(q("SELECT currency, SUM(total_amount) AS amount FROM bookings WHERE status = 'confirmed'")).
		WillReturnRows(sqlmock.NewRows([]string{"currency", "amount"}).AddRow("GHS", "250.00"))

	st, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, st.Total)
	assert.Equal(t, 2, st.Pending)
	assert.Equal(t, 3, st.Confirmed)
	assert.Equal(t, 1, st.Cancelled)
	assert.True(t, st.Revenue["GHS"].Equal(decimal.NewFromInt(250)))
	require.NoError(t, mock.ExpectationsWereMet())
}
