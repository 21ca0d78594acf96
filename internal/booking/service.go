// Package booking implements the booking lifecycle: creating pending
// bookings against a capacity ledger, confirming or cancelling them
// exactly once, and resolving codes for status checks and venue
// verification.
//
// All coordination between concurrent requests happens through two
// conditional writes in the Store (capacity reservation and the status
// guard).  The Service itself keeps no state between calls.
package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/eventlink-tickets/internal/code"
	"github.com/iliyamo/eventlink-tickets/internal/metrics"
	"github.com/iliyamo/eventlink-tickets/internal/model"
	"github.com/iliyamo/eventlink-tickets/internal/ticket"
)

// DefaultCodeAttempts bounds the insert retry loop on code collisions.
const DefaultCodeAttempts = 5

// MaxQuantity is the largest number of tickets one booking may hold.
const MaxQuantity = 1000

// Column widths of the stored buyer fields, in characters.
const (
	maxNameLen  = 255
	maxEmailLen = 255
	maxPhoneLen = 32
)

// Config tunes the Service.
type Config struct {
	// CodeAttempts is the number of codes tried before ErrCodeExhausted.
	CodeAttempts int
	// StoreTimeout bounds every store round trip.  Zero disables it.
	StoreTimeout time.Duration
}

// CreateRequest is the buyer's booking form.
type CreateRequest struct {
	EventID    string
	Buyer      model.Buyer
	TicketType string
	Quantity   int
}

// Service is the lifecycle engine and lookup service.
type Service struct {
	store      Store
	catalog    Catalog
	codes      code.Generator
	renderer   Renderer
	dispatcher Dispatcher
	cfg        Config

	now   func() time.Time
	newID func() string
}

// NewService wires the engine.  All dependencies must be non-nil.
func NewService(store Store, catalog Catalog, codes code.Generator, renderer Renderer, dispatcher Dispatcher, cfg Config) *Service {
	if store == nil || catalog == nil || codes == nil || renderer == nil || dispatcher == nil {
		panic("nil dependency passed to booking.NewService")
	}
	if cfg.CodeAttempts < 1 {
		cfg.CodeAttempts = DefaultCodeAttempts
	}
	return &Service{
		store:      store,
		catalog:    catalog,
		codes:      codes,
		renderer:   renderer,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// Create validates the request, reserves capacity and stores a pending
// booking under a fresh code, all in one transaction.  The total amount
// is computed here once and never again.
func (s *Service) Create(ctx context.Context, req CreateRequest) (model.Booking, error) {
	req = normalizeRequest(req)
	if err := validateRequest(req); err != nil {
		metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return model.Booking{}, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	ev, err := s.catalog.Event(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.BookingsRejected.WithLabelValues("validation").Inc()
			return model.Booking{}, invalid("event_id", "unknown event")
		}
		return model.Booking{}, s.storeError("load event", err)
	}
	unitPrice, ok := ev.Prices.Price(req.TicketType)
	if !ok {
		metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return model.Booking{}, invalid("ticket_type", fmt.Sprintf("%q is not offered for this event", req.TicketType))
	}

	b := model.Booking{
		ID:                 s.newID(),
		EventID:            ev.ID,
		EventTitleSnapshot: ev.Title,
		Buyer:              req.Buyer,
		TicketType:         req.TicketType,
		Quantity:           req.Quantity,
		UnitPrice:          unitPrice,
		Currency:           ev.Currency,
		TotalAmount:        unitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Status:             model.StatusPending,
		CreatedAt:          s.now().Truncate(time.Microsecond),
	}

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"event_id": ev.ID,
		"quantity": req.Quantity,
	})

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Reserve(ctx, ev.ID, req.Quantity); err != nil {
			return err
		}
		for attempt := 1; ; attempt++ {
			b.Code = s.codes.Generate()
			err := tx.Insert(ctx, b)
			if err == nil {
				return nil
			}
			if !errors.Is(err, ErrDuplicateCode) {
				return err
			}
			metrics.CodeCollisions.Inc()
			logger.WithField("attempt", attempt).Warn("Booking code collision")
			if attempt >= s.cfg.CodeAttempts {
				return ErrCodeExhausted
			}
		}
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrSoldOut):
		metrics.BookingsRejected.WithLabelValues("sold_out").Inc()
		return model.Booking{}, err
	case errors.Is(err, ErrNotFound):
		metrics.BookingsRejected.WithLabelValues("validation").Inc()
		return model.Booking{}, invalid("event_id", "event has no ticket inventory")
	case errors.Is(err, ErrCodeExhausted):
		metrics.BookingsRejected.WithLabelValues("code_exhausted").Inc()
		logger.WithError(err).Error("Could not allocate booking code")
		return model.Booking{}, err
	default:
		return model.Booking{}, s.storeError("create booking", err)
	}

	metrics.BookingsCreated.Inc()
	logger.WithField("booking_code", b.Code).Info("Booking created")
	return b, nil
}

// Confirm moves a pending booking to confirmed.  The write is guarded on
// the pending status so concurrent confirmations produce exactly one
// success.  Rendering and notification run after the commit and their
// failures never affect the returned booking.
func (s *Service) Confirm(ctx context.Context, admin AdminCapability, bookingCode string) (model.Booking, error) {
	b, err := s.transition(ctx, admin, bookingCode, model.StatusConfirmed, nil)
	if err != nil {
		return model.Booking{}, err
	}
	s.dispatchConfirmed(ctx, b)
	return b, nil
}

// Cancel moves a pending booking to cancelled and returns its quantity to
// the event's capacity in the same transaction.
func (s *Service) Cancel(ctx context.Context, admin AdminCapability, bookingCode string) (model.Booking, error) {
	return s.transition(ctx, admin, bookingCode, model.StatusCancelled, func(ctx context.Context, tx Tx, b model.Booking) error {
		return tx.Release(ctx, b.EventID, b.Quantity)
	})
}

func (s *Service) transition(
	ctx context.Context,
	admin AdminCapability,
	bookingCode string,
	to model.Status,
	after func(ctx context.Context, tx Tx, b model.Booking) error,
) (model.Booking, error) {
	if !admin.valid() {
		return model.Booking{}, ErrUnauthorized
	}
	bookingCode = code.Normalize(bookingCode)

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var b model.Booking
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		b, err = tx.Transition(ctx, bookingCode, model.StatusPending, to, s.now().Truncate(time.Microsecond))
		if err != nil {
			return err
		}
		if after != nil {
			return after(ctx, tx, b)
		}
		return nil
	})

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"booking_code": bookingCode,
		"status":       to,
		"actor":        admin.Subject(),
	})
	switch {
	case err == nil:
		metrics.Transitions.WithLabelValues(string(to), "ok").Inc()
		logger.Info("Booking status changed")
		return b, nil
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
		metrics.Transitions.WithLabelValues(string(to), "rejected").Inc()
		logger.WithError(err).Info("Booking status change rejected")
		return model.Booking{}, err
	default:
		metrics.Transitions.WithLabelValues(string(to), "error").Inc()
		return model.Booking{}, s.storeError("change booking status", err)
	}
}

// dispatchConfirmed hands the confirmation to the notification pipeline.
// It runs on a context detached from the request so a client disconnect
// does not abort the hand-off, bounded by the store timeout so an
// unreachable broker cannot hold the confirm response.
func (s *Service) dispatchConfirmed(ctx context.Context, b model.Booking) {
	ctx, cancel := s.bounded(context.WithoutCancel(ctx))
	defer cancel()
	logger := log.FromContext(ctx).WithField("booking_code", b.Code)

	ev, err := s.snapshotEvent(ctx, b)
	if err != nil {
		logger.WithError(err).Warn("Catalog unavailable, dispatching with booking snapshot only")
	}
	confirmedAt := s.now()
	if b.ConfirmedAt != nil {
		confirmedAt = *b.ConfirmedAt
	}
	err = s.dispatcher.Dispatch(ctx, model.ConfirmedEvent{Booking: b, Event: ev, ConfirmedAt: confirmedAt})
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("dispatch").Inc()
		logger.WithError(fmt.Errorf("%w: %v", ErrNotificationFailure, err)).Error("Could not dispatch booking confirmation")
	}
}

func (s *Service) snapshotEvent(ctx context.Context, b model.Booking) (model.Event, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	ev, err := s.catalog.Event(ctx, b.EventID)
	if err != nil {
		return model.Event{ID: b.EventID, Title: b.EventTitleSnapshot, Currency: b.Currency}, err
	}
	return ev, nil
}

// Find resolves a booking code.  Input is trimmed and upper-cased first;
// only an exact match is returned.
func (s *Service) Find(ctx context.Context, bookingCode string) (model.Booking, error) {
	bookingCode = code.Normalize(bookingCode)
	if !code.Valid(bookingCode) {
		return model.Booking{}, ErrNotFound
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	b, err := s.store.FindByCode(ctx, bookingCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Booking{}, err
		}
		return model.Booking{}, s.storeError("find booking", err)
	}
	return b, nil
}

// Ticket renders the document of a confirmed booking.  It is used for
// buyer downloads and administrative re-renders; rendering the same
// booking twice gives the same content.
func (s *Service) Ticket(ctx context.Context, bookingCode string) (ticket.Document, error) {
	b, err := s.Find(ctx, bookingCode)
	if err != nil {
		return ticket.Document{}, err
	}
	if b.Status != model.StatusConfirmed {
		return ticket.Document{}, fmt.Errorf("%w: booking is %s", ErrInvalidTransition, b.Status)
	}
	ev, err := s.snapshotEvent(ctx, b)
	if err != nil {
		log.FromContext(ctx).WithError(err).Warn("Catalog unavailable, rendering from booking snapshot")
	}
	doc, err := s.renderer.Render(b, ev)
	if err != nil {
		return ticket.Document{}, err
	}
	if doc.Degraded {
		metrics.RenderDegraded.Inc()
		log.FromContext(ctx).WithField("booking_code", b.Code).WithError(ErrRenderDegraded).Warn("Ticket rendered without QR code")
	}
	return doc, nil
}

// List returns bookings matching f, newest first.
func (s *Service) List(ctx context.Context, admin AdminCapability, f model.BookingFilter) ([]model.Booking, error) {
	if !admin.valid() {
		return nil, ErrUnauthorized
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", f.Status))
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	items, err := s.store.List(ctx, f)
	if err != nil {
		return nil, s.storeError("list bookings", err)
	}
	return items, nil
}

// Delete is the maintenance bulk delete.  It is not a lifecycle
// transition; capacity held by deleted non-cancelled bookings is
// returned so the ledger keeps matching the stored bookings.
func (s *Service) Delete(ctx context.Context, admin AdminCapability, ids []string) (int, error) {
	if !admin.valid() {
		return 0, ErrUnauthorized
	}
	clean := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return 0, invalid("ids", fmt.Sprintf("%q is not a booking id", id))
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return 0, invalid("ids", "at least one id is required")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var n int
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		n, err = tx.DeleteByIDs(ctx, clean)
		return err
	})
	if err != nil {
		return 0, s.storeError("delete bookings", err)
	}
	log.FromContext(ctx).WithFields(logrus.Fields{"deleted": n, "actor": admin.Subject()}).Info("Bookings deleted")
	return n, nil
}

// Stats summarises bookings for the dashboard.
func (s *Service) Stats(ctx context.Context, admin AdminCapability) (model.BookingStats, error) {
	if !admin.valid() {
		return model.BookingStats{}, ErrUnauthorized
	}
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	st, err := s.store.Stats(ctx)
	if err != nil {
		return model.BookingStats{}, s.storeError("booking stats", err)
	}
	return st, nil
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *Service) storeError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func normalizeRequest(req CreateRequest) CreateRequest {
	req.EventID = strings.TrimSpace(req.EventID)
	req.TicketType = strings.TrimSpace(req.TicketType)
	req.Buyer.Name = strings.TrimSpace(req.Buyer.Name)
	req.Buyer.Email = strings.TrimSpace(req.Buyer.Email)
	req.Buyer.Phone = strings.TrimSpace(req.Buyer.Phone)
	return req
}

func validateRequest(req CreateRequest) error {
	switch {
	case req.EventID == "":
		return invalid("event_id", "is required")
	case req.Buyer.Name == "":
		return invalid("name", "is required")
	case utf8.RuneCountInString(req.Buyer.Name) > maxNameLen:
		return invalid("name", fmt.Sprintf("must be at most %d characters", maxNameLen))
	case req.Buyer.Phone == "":
		return invalid("phone", "is required")
	case utf8.RuneCountInString(req.Buyer.Phone) > maxPhoneLen:
		return invalid("phone", fmt.Sprintf("must be at most %d characters", maxPhoneLen))
	case utf8.RuneCountInString(req.Buyer.Email) > maxEmailLen:
		return invalid("email", fmt.Sprintf("must be at most %d characters", maxEmailLen))
	case !validEmail(req.Buyer.Email):
		return invalid("email", "must look like name@example.com")
	case req.TicketType == "":
		return invalid("ticket_type", "is required")
	case req.Quantity < 1:
		return invalid("quantity", "must be at least 1")
	case req.Quantity > MaxQuantity:
		return invalid("quantity", fmt.Sprintf("must be at most %d", MaxQuantity))
	}
	return nil
}

func validEmail(s string) bool {
	if !emailPattern.MatchString(s) {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
