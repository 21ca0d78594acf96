package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Event is a catalog entry.  The ticketing core only reads it: the title
// is snapshotted into bookings and the rest is printed on tickets.
//
// Fields:
//  ID             – catalog identifier.
//  Title          – display title.
//  Description    – free text shown on the event page.
//  Date           – calendar date of the event (YYYY-MM-DD).
//  Time           – start time as displayed (e.g. "18:00").
//  Venue          – venue name.
//  Location       – city or address line.
//  Category       – display category.
//  Currency       – currency of the price table.
//  OrganizerName  – organizer printed on the ticket.
//  OrganizerPhone – organizer contact (WhatsApp).
//  Prices         – per ticket type unit price.
//  TotalTickets   – capacity of the event.
//  Available      – TotalTickets minus reserved tickets, display only.
type Event struct {
    ID             string     `json:"id" db:"id" yaml:"id"`
    Title          string     `json:"title" db:"title" yaml:"title"`
    Description    string     `json:"description" db:"description" yaml:"description"`
    Date           string     `json:"date" db:"event_date" yaml:"date"`
    Time           string     `json:"time" db:"event_time" yaml:"time"`
    Venue          string     `json:"venue" db:"venue" yaml:"venue"`
    Location       string     `json:"location" db:"location" yaml:"location"`
    Category       string     `json:"category" db:"category" yaml:"category"`
    Currency       string     `json:"currency" db:"currency" yaml:"currency"`
    OrganizerName  string     `json:"organizer_name" db:"organizer_name" yaml:"organizer_name"`
    OrganizerPhone string     `json:"organizer_phone" db:"organizer_phone" yaml:"organizer_phone"`
    Prices         PriceTable `json:"prices" db:"-" yaml:"-"`
    TotalTickets   int        `json:"total_tickets" db:"total_tickets" yaml:"total_tickets"`
    Available      int        `json:"available_tickets" db:"available_tickets" yaml:"-"`
}

// PriceTable maps a ticket type to its unit price.
type PriceTable map[string]decimal.Decimal

// DefaultPriceTable is used for events that do not publish their own.
func DefaultPriceTable() PriceTable {
    return PriceTable{
        "Single": decimal.NewFromInt(30),
        "Double": decimal.NewFromInt(55),
        "VIP":    decimal.NewFromInt(65),
    }
}

// Price returns the unit price for ticketType.
func (p PriceTable) Price(ticketType string) (decimal.Decimal, bool) {
    v, ok := p[ticketType]
    return v, ok
}

// Capacity is the ledger entry of one event.
type Capacity struct {
    EventID      string `db:"event_id"`
    TotalTickets int    `db:"total_tickets"`
    Reserved     int    `db:"reserved"`
}

// Remaining returns the number of tickets that can still be reserved.
func (c Capacity) Remaining() int {
    if r := c.TotalTickets - c.Reserved; r > 0 {
        return r
    }
    return 0
}

// ConfirmedEvent is the payload handed to the notification channel after
// a booking has been confirmed.  It carries everything the ticket
// renderer and the email template need so the consumer never has to
// query the database.
type ConfirmedEvent struct {
    Booking     Booking   `json:"booking"`
    Event       Event     `json:"event"`
    ConfirmedAt time.Time `json:"confirmed_at"`
}

// NotificationFailed is reported when the delivery channel could not
// deliver a confirmation.  The booking stays confirmed.
type NotificationFailed struct {
    BookingCode string    `json:"booking_code"`
    Email       string    `json:"email"`
    Reason      string    `json:"reason"`
    FailedAt    time.Time `json:"failed_at"`
}
