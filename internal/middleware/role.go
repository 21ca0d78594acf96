package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/eventlink-tickets/internal/booking"
)

const capabilityKey = "admin_capability"

// RequireRole aborts with 403 unless the role stored by JWTAuth is one of
// roles.  On success the request receives a booking.AdminCapability for
// the token subject, retrievable with AdminCapability.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get("role").(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
            }
            c.Set(capabilityKey, booking.GrantAdmin(userID(c)))
            return next(c)
        }
    }
}

// AdminCapability returns the capability granted by RequireRole.  The zero
// value is returned for requests that did not pass through it, and the
// lifecycle engine rejects it.
func AdminCapability(c echo.Context) booking.AdminCapability {
    if granted, ok := c.Get(capabilityKey).(booking.AdminCapability); ok {
        return granted
    }
    return booking.AdminCapability{}
}
