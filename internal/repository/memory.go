package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/eventlink-tickets/internal/booking"
	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// MemoryStore is an in-process booking.Store.  Transactions are fully
// serialised: InTx holds the store lock for the duration of fn and works
// on a copy of the state that replaces the original only when fn
// succeeds.  It backs STORE_DRIVER=memory and the tests.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

type memoryState struct {
	bookings map[string]model.Booking // by code
	capacity map[string]model.Capacity
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		bookings: make(map[string]model.Booking, len(s.bookings)),
		capacity: make(map[string]model.Capacity, len(s.capacity)),
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.capacity {
		c.capacity[k] = v
	}
	return c
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		bookings: map[string]model.Booking{},
		capacity: map[string]model.Capacity{},
	}}
}

// SetCapacity creates or resizes the ledger entry of an event.  Reserved
// tickets are kept.
func (s *MemoryStore) SetCapacity(eventID string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.state.capacity[eventID]
	c.EventID = eventID
	c.TotalTickets = total
	s.state.capacity[eventID] = c
}

// Availability returns the ledger entry of an event.
func (s *MemoryStore) Availability(_ context.Context, eventID string) (model.Capacity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.capacity[eventID]
	if !ok {
		return model.Capacity{}, booking.ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{state: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *MemoryStore) FindByCode(ctx context.Context, code string) (model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return model.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.bookings[code]
	if !ok {
		return model.Booking{}, booking.ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := []model.Booking{}
	for _, b := range s.state.bookings {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && b.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !b.CreatedAt.Before(f.To) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(b.Code), q) &&
			!strings.Contains(strings.ToLower(b.Buyer.Name), q) &&
			!strings.Contains(strings.ToLower(b.EventTitleSnapshot), q) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (model.BookingStats, error) {
	if err := ctx.Err(); err != nil {
		return model.BookingStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.BookingStats{Revenue: map[string]decimal.Decimal{}}
	for _, b := range s.state.bookings {
		st.Total++
		switch b.Status {
		case model.StatusPending:
			st.Pending++
		case model.StatusConfirmed:
			st.Confirmed++
			st.Revenue[b.Currency] = st.Revenue[b.Currency].Add(b.TotalAmount)
		case model.StatusCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) Reserve(_ context.Context, eventID string, quantity int) error {
	c, ok := t.state.capacity[eventID]
	if !ok {
		return booking.ErrNotFound
	}
	if quantity < 1 || quantity > c.TotalTickets-c.Reserved {
		return booking.ErrSoldOut
	}
	c.Reserved += quantity
	t.state.capacity[eventID] = c
	return nil
}

func (t *memoryTx) Release(_ context.Context, eventID string, quantity int) error {
	c, ok := t.state.capacity[eventID]
	if !ok || quantity < 1 {
		return nil
	}
	c.Reserved -= quantity
	if c.Reserved < 0 {
		c.Reserved = 0
	}
	t.state.capacity[eventID] = c
	return nil
}

func (t *memoryTx) Insert(_ context.Context, b model.Booking) error {
	if _, taken := t.state.bookings[b.Code]; taken {
		return booking.ErrDuplicateCode
	}
	t.state.bookings[b.Code] = b
	return nil
}

func (t *memoryTx) Transition(_ context.Context, code string, from, to model.Status, at time.Time) (model.Booking, error) {
	b, ok := t.state.bookings[code]
	if !ok {
		return model.Booking{}, booking.ErrNotFound
	}
	if b.Status != from {
		return model.Booking{}, booking.ErrInvalidTransition
	}
	at = at.UTC()
	switch to {
	case model.StatusConfirmed:
		b.ConfirmedAt = &at
	case model.StatusCancelled:
		b.CancelledAt = &at
	default:
		return model.Booking{}, booking.ErrInvalidTransition
	}
	b.Status = to
	t.state.bookings[code] = b
	return b, nil
}

func (t *memoryTx) DeleteByIDs(ctx context.Context, ids []string) (int, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	n := 0
	for code, b := range t.state.bookings {
		if _, ok := want[b.ID]; !ok {
			continue
		}
		if b.Status != model.StatusCancelled {
			if err := t.Release(ctx, b.EventID, b.Quantity); err != nil {
				return 0, err
			}
		}
		delete(t.state.bookings, code)
		n++
	}
	return n, nil
}

// MemoryCatalog is an in-process booking.Catalog.  Available tickets are
// read from the MemoryStore ledger.
type MemoryCatalog struct {
	store *MemoryStore

	mu     sync.RWMutex
	events map[string]model.Event
}

// NewMemoryCatalog returns a catalog holding events, each registered in
// the store's ledger with its TotalTickets.
func NewMemoryCatalog(store *MemoryStore, events ...model.Event) *MemoryCatalog {
	c := &MemoryCatalog{store: store, events: map[string]model.Event{}}
	for _, ev := range events {
		c.Put(ev)
	}
	return c
}

// Put adds or replaces an event.  Replacing an event's prices never
// touches existing bookings.
func (c *MemoryCatalog) Put(ev model.Event) {
	if len(ev.Prices) == 0 {
		ev.Prices = model.DefaultPriceTable()
	}
	prices := make(model.PriceTable, len(ev.Prices))
	for k, v := range ev.Prices {
		prices[k] = v
	}
	ev.Prices = prices

	c.mu.Lock()
	c.events[ev.ID] = ev
	c.mu.Unlock()
	c.store.SetCapacity(ev.ID, ev.TotalTickets)
}

// Upsert is Put with the seeder's signature.
func (c *MemoryCatalog) Upsert(_ context.Context, ev model.Event) error {
	c.Put(ev)
	return nil
}

func (c *MemoryCatalog) Event(ctx context.Context, id string) (model.Event, error) {
	c.mu.RLock()
	ev, ok := c.events[id]
	c.mu.RUnlock()
	if !ok {
		return model.Event{}, booking.ErrNotFound
	}
	return c.withAvailability(ctx, ev), nil
}

// List returns all events ordered by date.
func (c *MemoryCatalog) List(ctx context.Context) ([]model.Event, error) {
	c.mu.RLock()
	out := make([]model.Event, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	for i := range out {
		out[i] = c.withAvailability(ctx, out[i])
	}
	return out, nil
}

func (c *MemoryCatalog) withAvailability(ctx context.Context, ev model.Event) model.Event {
	prices := make(model.PriceTable, len(ev.Prices))
	for k, v := range ev.Prices {
		prices[k] = v
	}
	ev.Prices = prices
	if capacity, err := c.store.Availability(ctx, ev.ID); err == nil {
		ev.TotalTickets = capacity.TotalTickets
		ev.Available = capacity.Remaining()
	}
	return ev
}

var (
	_ booking.Store   = (*MemoryStore)(nil)
	_ booking.Catalog = (*MemoryCatalog)(nil)
)
