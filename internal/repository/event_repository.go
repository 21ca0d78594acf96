package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/eventlink-tickets/internal/booking"
	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// EventRepo reads the event catalog together with each event's price
// table and ledger entry.  It implements booking.Catalog.
type EventRepo struct {
	db       *sqlx.DB
	capacity *CapacityRepo
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sqlx.DB) *EventRepo {
	return &EventRepo{db: db, capacity: NewCapacityRepo(db)}
}

const eventSelect = `SELECT e.id, e.title, e.description,
	DATE_FORMAT(e.event_date, '%Y-%m-%d') AS event_date, TIME_FORMAT(e.event_time, '%H:%i') AS event_time,
	e.venue, e.location, e.category, e.currency, e.organizer_name, e.organizer_phone,
	COALESCE(c.total_tickets, 0) AS total_tickets,
	GREATEST(COALESCE(c.total_tickets, 0) - COALESCE(c.reserved, 0), 0) AS available_tickets
	FROM events e
	LEFT JOIN event_capacity c ON c.event_id = e.id`

type priceRow struct {
	EventID    string          `db:"event_id"`
	TicketType string          `db:"ticket_type"`
	UnitPrice  decimal.Decimal `db:"unit_price"`
}

// Event returns one event with its prices.  Events without a published
// price table get model.DefaultPriceTable.
func (r *EventRepo) Event(ctx context.Context, id string) (model.Event, error) {
	var ev model.Event
	err := r.db.GetContext(ctx, &ev, eventSelect+` WHERE e.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, booking.ErrNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("could not get event: %w", err)
	}
	var rows []priceRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT event_id, ticket_type, unit_price FROM event_prices WHERE event_id = ?`, id)
	if err != nil {
		return model.Event{}, fmt.Errorf("could not get prices: %w", err)
	}
	ev.Prices = priceTable(rows)
	return ev, nil
}

// List returns all events ordered by date.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := r.db.SelectContext(ctx, &events, eventSelect+` ORDER BY e.event_date, e.event_time, e.id`); err != nil {
		return nil, fmt.Errorf("could not list events: %w", err)
	}
	var rows []priceRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT event_id, ticket_type, unit_price FROM event_prices`); err != nil {
		return nil, fmt.Errorf("could not list prices: %w", err)
	}
	byEvent := make(map[string][]priceRow)
	for _, p := range rows {
		byEvent[p.EventID] = append(byEvent[p.EventID], p)
	}
	for i := range events {
		events[i].Prices = priceTable(byEvent[events[i].ID])
	}
	return events, nil
}

// Upsert writes an event, replaces its price table and sets its capacity
// in one transaction.  Used by the catalog seeder.
func (r *EventRepo) Upsert(ctx context.Context, ev model.Event) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO events
		(id, title, description, event_date, event_time, venue, location, category, currency, organizer_name, organizer_phone)
		VALUES (:id, :title, :description, :event_date, :event_time, :venue, :location, :category, :currency, :organizer_name, :organizer_phone)
		ON DUPLICATE KEY UPDATE title = VALUES(title), description = VALUES(description),
		event_date = VALUES(event_date), event_time = VALUES(event_time), venue = VALUES(venue),
		location = VALUES(location), category = VALUES(category), currency = VALUES(currency),
		organizer_name = VALUES(organizer_name), organizer_phone = VALUES(organizer_phone)`, ev)
	if err != nil {
		return fmt.Errorf("could not upsert event: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM event_prices WHERE event_id = ?`, ev.ID); err != nil {
		return fmt.Errorf("could not clear prices: %w", err)
	}
	for ticketType, price := range ev.Prices {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO event_prices (event_id, ticket_type, unit_price) VALUES (?, ?, ?)`,
			ev.ID, ticketType, price)
		if err != nil {
			return fmt.Errorf("could not insert price %s: %w", ticketType, err)
		}
	}
	return r.capacity.UpsertTx(ctx, tx, ev.ID, ev.TotalTickets)
}

func priceTable(rows []priceRow) model.PriceTable {
	if len(rows) == 0 {
		return model.DefaultPriceTable()
	}
	pt := make(model.PriceTable, len(rows))
	for _, p := range rows {
		pt[p.TicketType] = p.UnitPrice
	}
	return pt
}

var _ booking.Catalog = (*EventRepo)(nil)
