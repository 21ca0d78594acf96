// Package catalog loads the static event catalog from a YAML file and
// writes it through to the store at startup.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/eventlink-tickets/internal/model"
)

// File is the layout of the catalog file:
//
//	events:
//	  - id: afrochella-2025
//	    title: Afrochella
//	    date: "2025-12-20"
//	    time: "18:00"
//	    venue: El-Wak Stadium
//	    currency: GHS
//	    total_tickets: 500
//	    prices: {Single: "30", Double: "55", VIP: "65"}
type File struct {
	Events []entry `yaml:"events"`
}

type entry struct {
	model.Event `yaml:",inline"`
	Prices      map[string]string `yaml:"prices"`
}

// Upserter stores catalog entries.
type Upserter interface {
	Upsert(ctx context.Context, ev model.Event) error
}

// Load reads and validates the catalog at path.
func Load(path string) ([]model.Event, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a catalog document.  Entries without prices get the
// default price table; the currency defaults to GHS.
func Parse(raw []byte) ([]model.Event, error) {
	var f File
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Events))
	events := make([]model.Event, 0, len(f.Events))
	for i, e := range f.Events {
		ev := e.Event
		ev.ID = strings.TrimSpace(ev.ID)
		if ev.ID == "" {
			return nil, fmt.Errorf("event #%d: id is required", i+1)
		}
		if seen[ev.ID] {
			return nil, fmt.Errorf("event %s: duplicate id", ev.ID)
		}
		seen[ev.ID] = true
		if strings.TrimSpace(ev.Title) == "" {
			return nil, fmt.Errorf("event %s: title is required", ev.ID)
		}
		if _, err := time.Parse("2006-01-02", ev.Date); err != nil {
			return nil, fmt.Errorf("event %s: date must be YYYY-MM-DD: %w", ev.ID, err)
		}
		if ev.TotalTickets < 0 {
			return nil, fmt.Errorf("event %s: total_tickets must not be negative", ev.ID)
		}
		if ev.Currency == "" {
			ev.Currency = "GHS"
		}
		ev.Currency = strings.ToUpper(ev.Currency)

		prices, err := priceTable(e.Prices)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		ev.Prices = prices
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events, nil
}

func priceTable(raw map[string]string) (model.PriceTable, error) {
	if len(raw) == 0 {
		return model.DefaultPriceTable(), nil
	}
	pt := make(model.PriceTable, len(raw))
	for ticketType, s := range raw {
		p, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("price of %s: %w", ticketType, err)
		}
		if !p.IsPositive() {
			return nil, fmt.Errorf("price of %s must be positive", ticketType)
		}
		pt[ticketType] = p
	}
	return pt, nil
}

// Seed loads path and upserts every event.
func Seed(ctx context.Context, path string, store Upserter) (int, error) {
	events, err := Load(path)
	if err != nil {
		return 0, err
	}
	for _, ev := range events {
		if err := store.Upsert(ctx, ev); err != nil {
			return 0, fmt.Errorf("seed event %s: %w", ev.ID, err)
		}
	}
	log.FromContext(ctx).WithField("events", len(events)).Info("Catalog seeded")
	return len(events), nil
}
