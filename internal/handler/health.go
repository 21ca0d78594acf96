package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Pinger is implemented by *sqlx.DB.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// Health reports liveness and, when a database is configured, whether it
// answers a ping within two seconds.
type Health struct {
    DB Pinger
}

// Check returns 200 "ok", or 503 when the database does not respond.
func (h Health) Check(c echo.Context) error {
    if h.DB != nil {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := h.DB.PingContext(ctx); err != nil {
            return c.String(http.StatusServiceUnavailable, "database unavailable")
        }
    }
    return c.String(http.StatusOK, "ok")
}
