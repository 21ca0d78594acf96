package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/eventlink-tickets/internal/booking"
    "github.com/iliyamo/eventlink-tickets/internal/model"
)

// BookingHandler serves the buyer facing booking endpoints.
type BookingHandler struct {
    Bookings *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
    if svc == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{Bookings: svc}
}

type createBookingReq struct {
    Name       string `json:"name"`
    Email      string `json:"email"`
    Phone      string `json:"phone"`
    TicketType string `json:"ticket_type"`
    Quantity   int    `json:"quantity"`
}

// Create stores a pending booking for the event in the path.
func (h *BookingHandler) Create(c echo.Context) error {
    var req createBookingReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    b, err := h.Bookings.Create(c.Request().Context(), booking.CreateRequest{
        EventID:    c.Param("id"),
        Buyer:      model.Buyer{Name: req.Name, Email: req.Email, Phone: req.Phone},
        TicketType: req.TicketType,
        Quantity:   req.Quantity,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// Find is the status check used by buyers and at the venue entrance.
func (h *BookingHandler) Find(c echo.Context) error {
    b, err := h.Bookings.Find(c.Request().Context(), c.Param("code"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Ticket downloads the PDF ticket of a confirmed booking.
func (h *BookingHandler) Ticket(c echo.Context) error {
    return writeTicket(c, h.Bookings, c.Param("code"))
}

func writeTicket(c echo.Context, svc *booking.Service, code string) error {
    doc, err := svc.Ticket(c.Request().Context(), code)
    if err != nil {
        return respondError(c, err)
    }
    c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+doc.FileName+`"`)
    c.Response().Header().Set("X-Ticket-Degraded", strconv.FormatBool(doc.Degraded))
    return c.Blob(http.StatusOK, "application/pdf", doc.PDF)
}
