package router // package router registers the HTTP routes of the API

import (
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/eventlink-tickets/internal/config"
    "github.com/iliyamo/eventlink-tickets/internal/handler"
    "github.com/iliyamo/eventlink-tickets/internal/middleware"
    "github.com/iliyamo/eventlink-tickets/internal/model"
)

// Deps bundles everything the routes need.  Redis may be nil, in which
// case rate limiting and caching are disabled.
type Deps struct {
    Health    handler.Health
    Events    *handler.EventHandler
    Bookings  *handler.BookingHandler
    Admin     *handler.AdminBookingHandler
    Auth      *handler.AuthHandler
    JWTSecret string

    Redis       *redis.Client
    LookupLimit config.RateLimitConfig
    CreateLimit config.RateLimitConfig
    Cache       config.CacheConfig
}

// New returns an Echo instance with the global middleware installed and
// every route registered.
func New(d Deps) *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true
    e.Use(middleware.Correlation(), middleware.RequestLog())
    Register(e, d)
    return e
}

// Register mounts the public, auth and admin routes on e.
func Register(e *echo.Echo, d Deps) {
    e.GET("/healthz", d.Health.Check)
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

    // Catalog pages are cached briefly; the available ticket count may
    // lag by up to the cache TTL.
    cached := middleware.NewRedisCache(d.Cache, d.Redis)
    e.GET("/v1/events", d.Events.List, cached)
    e.GET("/v1/events/:id", d.Events.Get, cached)

    // Booking creation gets its own, smaller bucket.
    e.POST("/v1/events/:id/bookings", d.Bookings.Create, middleware.NewTokenBucket(d.CreateLimit, d.Redis))

    lookup := middleware.NewTokenBucket(d.LookupLimit, d.Redis)
    e.GET("/v1/bookings/:code", d.Bookings.Find, lookup)
    e.GET("/v1/bookings/:code/ticket", d.Bookings.Ticket, lookup)

    e.POST("/v1/auth/login", d.Auth.Login, lookup)

    admin := e.Group("/v1/admin", middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RoleAdmin))
    admin.GET("/me", d.Auth.Me)
    admin.GET("/bookings", d.Admin.List)
    admin.DELETE("/bookings", d.Admin.Delete)
    admin.POST("/bookings/:code/confirm", d.Admin.Confirm)
    admin.POST("/bookings/:code/cancel", d.Admin.Cancel)
    admin.GET("/bookings/:code/ticket", d.Admin.Ticket)
    admin.GET("/stats", d.Admin.Stats)
}
