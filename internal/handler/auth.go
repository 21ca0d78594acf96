package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/ThreeDotsLabs/go-event-driven/common/log"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/eventlink-tickets/internal/booking"
    "github.com/iliyamo/eventlink-tickets/internal/config"
    "github.com/iliyamo/eventlink-tickets/internal/model"
    "github.com/iliyamo/eventlink-tickets/internal/utils"
)

// AdminAccounts looks up administrator accounts.  *repository.AdminRepo
// implements it.
type AdminAccounts interface {
    GetByEmail(ctx context.Context, email string) (model.Admin, error)
}

// AuthHandler issues access tokens to administrators.
type AuthHandler struct {
    Cfg    config.Config
    Admins AdminAccounts
}

func NewAuthHandler(cfg config.Config, admins AdminAccounts) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Admins: admins}
}

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}

type adminPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Role  string `json:"role"`
}

type loginResp struct {
    Admin  adminPart `json:"admin"`
    Access tokenPart `json:"access"`
}

// Login verifies the credentials and returns a short lived access token.
// Unknown accounts, wrong passwords and disabled accounts all get the same
// 401 response.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }
    if h.Admins == nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "admin login is not available"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    a, err := h.Admins.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, booking.ErrNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        log.FromContext(ctx).WithError(err).Error("Admin lookup failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !a.IsActive || a.Role != model.RoleAdmin || !utils.VerifyPassword(a.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, a.ID, a.Email, a.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    log.FromContext(ctx).WithField("admin_id", a.ID).Info("Admin logged in")
    return c.JSON(http.StatusOK, loginResp{
        Admin:  adminPart{ID: a.ID, Email: a.Email, Role: a.Role},
        Access: tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Me returns the identity carried by the access token.
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "admin_id": c.Get("user_id"),
        "email":    c.Get("email"),
        "role":     c.Get("role"),
    })
}
