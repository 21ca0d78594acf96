package handler

import (
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/eventlink-tickets/internal/booking"
    "github.com/iliyamo/eventlink-tickets/internal/middleware"
    "github.com/iliyamo/eventlink-tickets/internal/model"
)

// AdminBookingHandler serves the administrative booking endpoints.  Every
// route is mounted behind JWTAuth and RequireRole, which grant the
// capability the lifecycle engine checks.
type AdminBookingHandler struct {
    Bookings *booking.Service
}

func NewAdminBookingHandler(svc *booking.Service) *AdminBookingHandler {
    if svc == nil {
        panic("nil service passed to NewAdminBookingHandler")
    }
    return &AdminBookingHandler{Bookings: svc}
}

// List accepts status, from, to and q query parameters.  Dates are
// YYYY-MM-DD or RFC 3339; a bare "to" date includes the whole day.
func (h *AdminBookingHandler) List(c echo.Context) error {
    f := model.BookingFilter{
        Status: model.Status(strings.ToLower(strings.TrimSpace(c.QueryParam("status")))),
        Query:  c.QueryParam("q"),
    }
    var err error
    if f.From, err = parseBound(c.QueryParam("from"), false); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date", "field": "from"})
    }
    if f.To, err = parseBound(c.QueryParam("to"), true); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to date", "field": "to"})
    }

    items, err := h.Bookings.List(c.Request().Context(), middleware.AdminCapability(c), f)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": items, "count": len(items)})
}

func parseBound(s string, endOfDay bool) (time.Time, error) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, nil
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t.UTC(), nil
    }
    t, err := time.Parse("2006-01-02", s)
    if err != nil {
        return time.Time{}, err
    }
    if endOfDay {
        t = t.AddDate(0, 0, 1)
    }
    return t, nil
}

type deleteReq struct {
    IDs []string `json:"ids"`
}

// Delete removes bookings by id.
func (h *AdminBookingHandler) Delete(c echo.Context) error {
    var req deleteReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    n, err := h.Bookings.Delete(c.Request().Context(), middleware.AdminCapability(c), req.IDs)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}

// Confirm moves a pending booking to confirmed.
func (h *AdminBookingHandler) Confirm(c echo.Context) error {
    b, err := h.Bookings.Confirm(c.Request().Context(), middleware.AdminCapability(c), c.Param("code"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Cancel moves a pending booking to cancelled.
func (h *AdminBookingHandler) Cancel(c echo.Context) error {
    b, err := h.Bookings.Cancel(c.Request().Context(), middleware.AdminCapability(c), c.Param("code"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Ticket re-renders the ticket of a confirmed booking.
func (h *AdminBookingHandler) Ticket(c echo.Context) error {
    return writeTicket(c, h.Bookings, c.Param("code"))
}

// Stats returns booking counts and confirmed revenue.
func (h *AdminBookingHandler) Stats(c echo.Context) error {
    st, err := h.Bookings.Stats(c.Request().Context(), middleware.AdminCapability(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, st)
}
