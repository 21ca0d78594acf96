package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/eventlink-tickets/internal/booking"
	"github.com/iliyamo/eventlink-tickets/internal/code"
	"github.com/iliyamo/eventlink-tickets/internal/config"
	"github.com/iliyamo/eventlink-tickets/internal/handler"
	"github.com/iliyamo/eventlink-tickets/internal/model"
	"github.com/iliyamo/eventlink-tickets/internal/repository"
	"github.com/iliyamo/eventlink-tickets/internal/router"
	"github.com/iliyamo/eventlink-tickets/internal/ticket"
	"github.com/iliyamo/eventlink-tickets/internal/utils"
)

const (
	adminEmail    = "ops@eventlink.test"
	adminPassword = "correct horse"
)

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, model.ConfirmedEvent) error { return nil }

type admins map[string]model.Admin

func (a admins) GetByEmail(_ context.Context, email string) (model.Admin, error) {
	if ad, ok := a[email]; ok {
		return ad, nil
	}
	return model.Admin{}, booking.ErrNotFound
}

func newServer(t *testing.T, capacity int) *echo.Echo {
	t.Helper()
	store := repository.NewMemoryStore()
	catalog := repository.NewMemoryCatalog(store, model.Event{
		ID:           "afrochella",
		Title:        "Afrochella",
		Date:         "2025-12-20",
		Time:         "18:00",
		Venue:        "El-Wak Stadium",
		Currency:     "GHS",
		TotalTickets: capacity,
	})
	svc := booking.NewService(store, catalog, code.NewGenerator("EVT"), ticket.NewRenderer(""), noopDispatcher{},
		booking.Config{StoreTimeout: time.Second})

	hash, err := utils.HashPassword(adminPassword, bcrypt.MinCost)
	require.NoError(t, err)
	accounts := admins{adminEmail: {ID: 1, Email: adminEmail, PasswordHash: hash, Role: model.RoleAdmin, IsActive: true}}

	cfg := config.Config{JWTSecret: "router-test", AccessTTLMin: 5}
	return router.New(router.Deps{
		Events:    handler.NewEventHandler(catalog),
		Bookings:  handler.NewBookingHandler(svc),
		Admin:     handler.NewAdminBookingHandler(svc),
		Auth:      handler.NewAuthHandler(cfg, accounts),
		JWTSecret: cfg.JWTSecret,
	})
}

func do(e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func login(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": adminEmail, "password": adminPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
	}](t, rec)
	require.NotEmpty(t, resp.Access.Token)
	return resp.Access.Token
}

var buyer = map[string]any{
	"name":        "Ama Mensah",
	"email":       "ama@example.com",
	"phone":       "+233 24 555 0101",
	"ticket_type": "VIP",
	"quantity":    2,
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	e := newServer(t, 10)

	rec := do(e, http.MethodGet, "/v1/events/afrochella", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, decode[model.Event](t, rec).Available)

	rec = do(e, http.MethodPost, "/v1/events/afrochella/bookings", "", buyer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Booking](t, rec)
	assert.Equal(t, model.StatusPending, created.Status)
	assert.Equal(t, "130", created.TotalAmount.String())
	assert.NotEmpty(t, rec.Header().Get("Correlation-ID"))

	rec = do(e, http.MethodGet, "/v1/bookings/"+strings.ToLower(created.Code), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Code, decode[model.Booking](t, rec).Code)

	rec = do(e, http.MethodGet, "/v1/bookings/"+created.Code+"/ticket", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/v1/admin/bookings/"+created.Code+"/confirm", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := login(t, e)
	rec = do(e, http.MethodPost, "/v1/admin/bookings/"+created.Code+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusConfirmed, decode[model.Booking](t, rec).Status)

	rec = do(e, http.MethodPost, "/v1/admin/bookings/"+created.Code+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodGet, "/v1/bookings/"+created.Code+"/ticket", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), created.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = do(e, http.MethodGet, "/v1/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[model.BookingStats](t, rec)
	assert.Equal(t, 1, stats.Confirmed)
	assert.Equal(t, "130", stats.Revenue["GHS"].String())

	rec = do(e, http.MethodGet, "/v1/admin/bookings?status=confirmed&from=2000-01-01", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Bookings []model.Booking `json:"bookings"`
		Count    int             `json:"count"`
	}](t, rec)
	require.Equal(t, 1, list.Count)

	rec = do(e, http.MethodDelete, "/v1/admin/bookings", token, map[string]any{"ids": []string{list.Bookings[0].ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[map[string]int](t, rec)["deleted"])

	rec = do(e, http.MethodGet, "/v1/events/afrochella", "", nil)
	assert.Equal(t, 10, decode[model.Event](t, rec).Available)
}

func TestCreateErrorsOverHTTP(t *testing.T) {
	e := newServer(t, 1)

	bad := map[string]any{"name": "Ama", "email": "not-an-email", "phone": "024", "ticket_type": "VIP", "quantity": 1}
	rec := do(e, http.MethodPost, "/v1/events/afrochella/bookings", "", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decode[map[string]string](t, rec)["field"])

	rec = do(e, http.MethodPost, "/v1/events/afrochella/bookings", "", buyer)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodPost, "/v1/events/missing/bookings", "", buyer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/v1/bookings/EVT-000000-00000000", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/v1/events/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e := newServer(t, 1)

	rec := do(e, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": adminEmail, "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "nobody@eventlink.test", "password": adminPassword})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": adminEmail})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newServer(t, 1)
	rec := do(e, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
