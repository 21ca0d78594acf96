package middleware

import "github.com/labstack/echo/v4"

// userID returns the subject stored by JWTAuth, or "guest" for
// unauthenticated requests.
func userID(c echo.Context) string {
    if v, ok := c.Get("user_id").(string); ok && v != "" {
        return v
    }
    return "guest"
}
