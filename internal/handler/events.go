package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/eventlink-tickets/internal/booking"
    "github.com/iliyamo/eventlink-tickets/internal/model"
)

// EventCatalog is the read side of the catalog used for display.
type EventCatalog interface {
    Event(ctx context.Context, id string) (model.Event, error)
    List(ctx context.Context) ([]model.Event, error)
}

// EventHandler serves the public catalog.
type EventHandler struct {
    Catalog EventCatalog
}

func NewEventHandler(catalog EventCatalog) *EventHandler {
    if catalog == nil {
        panic("nil catalog passed to NewEventHandler")
    }
    return &EventHandler{Catalog: catalog}
}

// List returns every event with its remaining tickets.
func (h *EventHandler) List(c echo.Context) error {
    events, err := h.Catalog.List(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Get returns one event.
func (h *EventHandler) Get(c echo.Context) error {
    ev, err := h.Catalog.Event(c.Request().Context(), c.Param("id"))
    if err != nil {
        if errors.Is(err, booking.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, ev)
}
