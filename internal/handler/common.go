package handler // handler defines the HTTP handlers of the ticketing API

import (
    "errors"
    "net/http"

    "github.com/ThreeDotsLabs/go-event-driven/common/log"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/eventlink-tickets/internal/booking"
)

// respondError translates lifecycle errors into status codes.  Unexpected
// errors are logged and reported without detail.
func respondError(c echo.Context, err error) error {
    var verr *booking.ValidationError
    switch {
    case errors.As(err, &verr):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error(), "field": verr.Field})
    case errors.Is(err, booking.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    case errors.Is(err, booking.ErrSoldOut):
        return c.JSON(http.StatusConflict, echo.Map{"error": "not enough tickets left"})
    case errors.Is(err, booking.ErrInvalidTransition):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    case errors.Is(err, booking.ErrUnauthorized):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, booking.ErrCodeExhausted), errors.Is(err, booking.ErrStoreUnavailable):
        log.FromContext(c.Request().Context()).WithError(err).Warn("Request could not be served")
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "temporarily unavailable, please retry"})
    }
    log.FromContext(c.Request().Context()).WithError(err).Error("Request failed")
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
