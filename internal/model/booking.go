package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Status is the lifecycle state of a booking.  Pending is the only
// non-terminal state; confirmed and cancelled bookings never change
// status again.
type Status string

const (
    StatusPending   Status = "pending"
    StatusConfirmed Status = "confirmed"
    StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusCancelled:
        return true
    }
    return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
    return s == StatusConfirmed || s == StatusCancelled
}

// Buyer holds the contact details captured verbatim from the booking
// form.  They are validated for format only.
type Buyer struct {
    Name  string `json:"name"`
    Email string `json:"email"`
    Phone string `json:"phone"`
}

// Booking records a buyer's reservation of tickets for one event.
//
// Fields:
//  ID                 – surrogate key used by maintenance operations.
//  Code               – unique public identifier printed on the ticket.
//  EventID            – catalog entry the booking belongs to.
//  EventTitleSnapshot – event title captured when the booking was made.
//  Buyer              – name, email and phone of the buyer.
//  TicketType         – entry of the event's price table (Single, VIP ...).
//  Quantity           – number of tickets, at least one.
//  UnitPrice          – price of one ticket at creation time.
//  Currency           – ISO currency of the prices (e.g. GHS).
//  TotalAmount        – UnitPrice × Quantity, frozen at creation.
//  Status             – pending, confirmed or cancelled.
//  CreatedAt          – creation timestamp.
//  ConfirmedAt        – set once when the booking is confirmed.
//  CancelledAt        – set once when the booking is cancelled.
type Booking struct {
    ID                 string          `json:"id"`
    Code               string          `json:"code"`
    EventID            string          `json:"event_id"`
    EventTitleSnapshot string          `json:"event_title"`
    Buyer              Buyer           `json:"buyer"`
    TicketType         string          `json:"ticket_type"`
    Quantity           int             `json:"quantity"`
    UnitPrice          decimal.Decimal `json:"unit_price"`
    Currency           string          `json:"currency"`
    TotalAmount        decimal.Decimal `json:"total_amount"`
    Status             Status          `json:"status"`
    CreatedAt          time.Time       `json:"created_at"`
    ConfirmedAt        *time.Time      `json:"confirmed_at,omitempty"`
    CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
}

// BookingFilter narrows an administrative listing.  Zero values mean
// "no constraint".  Query matches code, buyer name or event title.
type BookingFilter struct {
    Status Status
    From   time.Time
    To     time.Time
    Query  string
}

// BookingStats aggregates bookings for the admin dashboard.  Revenue
// only counts confirmed bookings and is keyed by currency.
type BookingStats struct {
    Total     int                        `json:"total"`
    Pending   int                        `json:"pending"`
    Confirmed int                        `json:"confirmed"`
    Cancelled int                        `json:"cancelled"`
    Revenue   map[string]decimal.Decimal `json:"revenue"`
}
