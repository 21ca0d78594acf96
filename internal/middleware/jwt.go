package middleware // middleware provides reusable HTTP middleware for the API

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/eventlink-tickets/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores its subject, role and email in the request context under
// "user_id", "role" and "email".  The secret must match the one used by
// the login handler.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            c.Set("user_id", claims.Subject)
            c.Set("role", claims.Role)
            c.Set("email", claims.Email)
            withLogField(c, "admin_id", claims.Subject)
            return next(c)
        }
    }
}
