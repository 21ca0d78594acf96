package middleware

import (
    "time"

    "github.com/ThreeDotsLabs/go-event-driven/common/log"
    "github.com/labstack/echo/v4"
    "github.com/lithammer/shortuuid/v3"
    "github.com/sirupsen/logrus"
)

// CorrelationHeader carries the request correlation ID in both directions.
const CorrelationHeader = "Correlation-ID"

// Correlation assigns every request a correlation ID, taken from the
// Correlation-ID header when the client sends one, and puts a logger
// carrying it into the request context.  The ID is echoed back in the
// response and travels with queue messages published for the request.
func Correlation() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            id := req.Header.Get(CorrelationHeader)
            if id == "" {
                id = shortuuid.New()
            }

            ctx := log.ContextWithCorrelationID(req.Context(), id)
            ctx = log.ToContext(ctx, logrus.WithFields(logrus.Fields{"correlation_id": id}))
            c.SetRequest(req.WithContext(ctx))
            c.Response().Header().Set(CorrelationHeader, id)
            return next(c)
        }
    }
}

// RequestLog logs one line per request once the handler has returned.
func RequestLog() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }

            entry := log.FromContext(c.Request().Context()).WithFields(logrus.Fields{
                "method":   c.Request().Method,
                "path":     c.Path(),
                "status":   c.Response().Status,
                "duration": time.Since(start).String(),
            })
            if c.Response().Status >= 500 {
                entry.Error("Request failed")
            } else {
                entry.Debug("Request handled")
            }
            return nil
        }
    }
}

func withLogField(c echo.Context, key string, value any) {
    req := c.Request()
    ctx := log.ToContext(req.Context(), log.FromContext(req.Context()).WithField(key, value))
    c.SetRequest(req.WithContext(ctx))
}
