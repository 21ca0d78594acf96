package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/eventlink-tickets/internal/booking"
	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// BookingRepo provides data access to the bookings table.  Writes that
// belong to the lifecycle take an explicit transaction; the caller must
// commit or roll it back.  All timestamps are stored in UTC.
type BookingRepo struct {
	db *sqlx.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingRecord mirrors the schema of the bookings table.  It is used
// internally when constructing or scanning rows.  Business logic should
// use model.Booking instead.
type BookingRecord struct {
	ID          string          `db:"id"`
	Code        string          `db:"code"`
	EventID     string          `db:"event_id"`
	EventTitle  string          `db:"event_title"`
	BuyerName   string          `db:"buyer_name"`
	BuyerEmail  string          `db:"buyer_email"`
	BuyerPhone  string          `db:"buyer_phone"`
	TicketType  string          `db:"ticket_type"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Currency    string          `db:"currency"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	ConfirmedAt sql.NullTime    `db:"confirmed_at"`
	CancelledAt sql.NullTime    `db:"cancelled_at"`
}

const bookingColumns = `id, code, event_id, event_title, buyer_name, buyer_email, buyer_phone,
	ticket_type, quantity, unit_price, currency, total_amount, status,
	created_at, confirmed_at, cancelled_at`

func recordFromModel(b model.Booking) BookingRecord {
	rec := BookingRecord{
		ID:          b.ID,
		Code:        b.Code,
		EventID:     b.EventID,
		EventTitle:  b.EventTitleSnapshot,
		BuyerName:   b.Buyer.Name,
		BuyerEmail:  b.Buyer.Email,
		BuyerPhone:  b.Buyer.Phone,
		TicketType:  b.TicketType,
		Quantity:    b.Quantity,
		UnitPrice:   b.UnitPrice,
		Currency:    b.Currency,
		TotalAmount: b.TotalAmount,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt.UTC(),
	}
	if b.ConfirmedAt != nil {
		rec.ConfirmedAt = sql.NullTime{Time: b.ConfirmedAt.UTC(), Valid: true}
	}
	if b.CancelledAt != nil {
		rec.CancelledAt = sql.NullTime{Time: b.CancelledAt.UTC(), Valid: true}
	}
	return rec
}

// Model converts the row into the domain type.
func (r BookingRecord) Model() model.Booking {
	b := model.Booking{
		ID:                 r.ID,
		Code:               r.Code,
		EventID:            r.EventID,
		EventTitleSnapshot: r.EventTitle,
		Buyer:              model.Buyer{Name: r.BuyerName, Email: r.BuyerEmail, Phone: r.BuyerPhone},
		TicketType:         r.TicketType,
		Quantity:           r.Quantity,
		UnitPrice:          r.UnitPrice,
		Currency:           r.Currency,
		TotalAmount:        r.TotalAmount,
		Status:             model.Status(r.Status),
		CreatedAt:          r.CreatedAt.UTC(),
	}
	if r.ConfirmedAt.Valid {
		t := r.ConfirmedAt.Time.UTC()
		b.ConfirmedAt = &t
	}
	if r.CancelledAt.Valid {
		t := r.CancelledAt.Time.UTC()
		b.CancelledAt = &t
	}
	return b
}

// InsertTx stores a new pending booking.  A clash on the unique code
// index is reported as booking.ErrDuplicateCode and leaves tx usable.
func (r *BookingRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, b model.Booking) error {
	const q = `INSERT INTO bookings (` + bookingColumns + `) VALUES (
		:id, :code, :event_id, :event_title, :buyer_name, :buyer_email, :buyer_phone,
		:ticket_type, :quantity, :unit_price, :currency, :total_amount, :status,
		:created_at, :confirmed_at, :cancelled_at)`
	_, err := tx.NamedExecContext(ctx, q, recordFromModel(b))
	if err != nil {
		if isDuplicateEntry(err) {
			return booking.ErrDuplicateCode
		}
		return fmt.Errorf("could not insert booking: %w", err)
	}
	return nil
}

// GetByCode loads a booking by its exact code using q, which may be the
// pool or a transaction.
func (r *BookingRepo) GetByCode(ctx context.Context, q sqlx.QueryerContext, code string) (model.Booking, error) {
	var rec BookingRecord
	err := sqlx.GetContext(ctx, q, &rec, `SELECT `+bookingColumns+` FROM bookings WHERE code = ? LIMIT 1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, booking.ErrNotFound
		}
		return model.Booking{}, fmt.Errorf("could not get booking: %w", err)
	}
	return rec.Model(), nil
}

// TransitionTx moves the booking identified by code from one status to
// another.  The UPDATE is guarded on the expected prior status so that of
// two concurrent transitions at most one affects a row.  When no row is
// affected the current status decides between booking.ErrNotFound and
// booking.ErrInvalidTransition.
func (r *BookingRepo) TransitionTx(ctx context.Context, tx *sqlx.Tx, code string, from, to model.Status, at time.Time) (model.Booking, error) {
	var stampColumn string
	switch to {
	case model.StatusConfirmed:
		stampColumn = "confirmed_at"
	case model.StatusCancelled:
		stampColumn = "cancelled_at"
	default:
		return model.Booking{}, fmt.Errorf("%w: cannot move to %s", booking.ErrInvalidTransition, to)
	}

	q := `UPDATE bookings SET status = ?, ` + stampColumn + ` = ? WHERE code = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, string(to), at.UTC(), code, string(from))
	if err != nil {
		return model.Booking{}, fmt.Errorf("could not update booking status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Booking{}, fmt.Errorf("could not update booking status: %w", err)
	}
	if n == 0 {
		var current string
		err := tx.GetContext(ctx, &current, `SELECT status FROM bookings WHERE code = ?`, code)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, booking.ErrNotFound
		}
		if err != nil {
			return model.Booking{}, fmt.Errorf("could not read booking status: %w", err)
		}
		return model.Booking{}, fmt.Errorf("%w: booking is %s", booking.ErrInvalidTransition, current)
	}
	return r.GetByCode(ctx, tx, code)
}

// HeldCapacity is the quantity a set of bookings holds on one event.
type HeldCapacity struct {
	EventID  string `db:"event_id"`
	Quantity int    `db:"quantity"`
}

// HeldByIDsTx sums the quantities of the non-cancelled bookings among ids
// per event and locks those rows until the transaction ends.
func (r *BookingRepo) HeldByIDsTx(ctx context.Context, tx *sqlx.Tx, ids []string) ([]HeldCapacity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT event_id, SUM(quantity) AS quantity FROM bookings
		WHERE id IN (?) AND status <> 'cancelled'
		GROUP BY event_id ORDER BY event_id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	var held []HeldCapacity
	if err := tx.SelectContext(ctx, &held, tx.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("could not sum held capacity: %w", err)
	}
	return held, nil
}

// DeleteByIDsTx removes the bookings with the given ids and returns how
// many rows were deleted.  Unknown ids are ignored.
func (r *BookingRepo) DeleteByIDsTx(ctx context.Context, tx *sqlx.Tx, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`DELETE FROM bookings WHERE id IN (?)`, ids)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("could not delete bookings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// List returns the bookings matching f ordered by creation time, newest
// first.  Query is matched as a case-insensitive substring of the code,
// the buyer name and the event title.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, f.To.UTC())
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + escapeLike(strings.ToLower(s)) + "%"
		where = append(where, "(LOWER(code) LIKE ? OR LOWER(buyer_name) LIKE ? OR LOWER(event_title) LIKE ?)")
		args = append(args, like, like, like)
	}

	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, code`

	var recs []BookingRecord
	if err := r.db.SelectContext(ctx, &recs, q, args...); err != nil {
		return nil, fmt.Errorf("could not list bookings: %w", err)
	}
	out := make([]model.Booking, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Model())
	}
	return out, nil
}

// Stats counts bookings per status and sums the confirmed revenue per
// currency.
func (r *BookingRepo) Stats(ctx context.Context) (model.BookingStats, error) {
	st := model.BookingStats{Revenue: map[string]decimal.Decimal{}}

	var counts []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &counts, `SELECT status, COUNT(*) AS n FROM bookings GROUP BY status`); err != nil {
		return st, fmt.Errorf("could not count bookings: %w", err)
	}
	for _, c := range counts {
		st.Total += c.N
		switch model.Status(c.Status) {
		case model.StatusPending:
			st.Pending = c.N
		case model.StatusConfirmed:
			st.Confirmed = c.N
		case model.StatusCancelled:
			st.Cancelled = c.N
		}
	}

	var revenue []struct {
		Currency string          `db:"currency"`
		Amount   decimal.Decimal `db:"amount"`
	}
	err := r.db.SelectContext(ctx, &revenue,
		`SELECT currency, SUM(total_amount) AS amount FROM bookings WHERE status = 'confirmed' GROUP BY currency`)
	if err != nil {
		return st, fmt.Errorf("could not sum revenue: %w", err)
	}
	for _, rv := range revenue {
		st.Revenue[rv.Currency] = rv.Amount
	}
	return st, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
