package main // Entry point package: HTTP API and ticket worker

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/ThreeDotsLabs/go-event-driven/common/log"
    "github.com/sirupsen/logrus"
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/eventlink-tickets/internal/booking"
    "github.com/iliyamo/eventlink-tickets/internal/catalog"
    "github.com/iliyamo/eventlink-tickets/internal/code"
    "github.com/iliyamo/eventlink-tickets/internal/config"
    "github.com/iliyamo/eventlink-tickets/internal/database"
    "github.com/iliyamo/eventlink-tickets/internal/handler"
    "github.com/iliyamo/eventlink-tickets/internal/notify"
    "github.com/iliyamo/eventlink-tickets/internal/queue"
    "github.com/iliyamo/eventlink-tickets/internal/repository"
    "github.com/iliyamo/eventlink-tickets/internal/router"
    "github.com/iliyamo/eventlink-tickets/internal/ticket"
)

// eventStore is what the server needs from the catalog backend.
type eventStore interface {
    booking.Catalog
    handler.EventCatalog
    catalog.Upserter
}

func main() {
    cfg := config.Load()
    log.Init(cfg.Level())

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if err := run(ctx, cfg); err != nil {
        logrus.WithError(err).Fatal("Server stopped")
    }
}

func run(ctx context.Context, cfg config.Config) error {
    var (
        store  booking.Store
        events eventStore
        admins handler.AdminAccounts
        health handler.Health
    )
    switch cfg.StoreDriver {
    case "memory":
        mem := repository.NewMemoryStore()
        store, events = mem, repository.NewMemoryCatalog(mem)
        logrus.Warn("Using the in-memory store: bookings are lost on restart and admin login is disabled")
    default:
        db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
        if err != nil {
            return err
        }
        defer db.Close()
        if err := database.Migrate(ctx, db); err != nil {
            return err
        }
        store, events = repository.NewStore(db), repository.NewEventRepo(db)
        admins, health.DB = repository.NewAdminRepo(db), db
    }

    if cfg.CatalogFile != "" {
        if _, err := catalog.Seed(ctx, cfg.CatalogFile, events); err != nil {
            return err
        }
    }

    renderer := ticket.NewRenderer(cfg.Ticket.Issuer)

    var sender notify.Sender = notify.LogSender{}
    if cfg.SMTP.Enabled() {
        sender = notify.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)
    }

    var (
        failures   queue.FailureReporter = queue.LogReporter{}
        publisher  *queue.Publisher
        inline     *queue.InlineDispatcher
        dispatcher booking.Dispatcher
    )
    if cfg.AMQPURL != "" {
        publisher = queue.NewPublisher(cfg.AMQPURL)
        failures = publisher
    }
    confirmations := queue.NewConfirmationHandler(renderer, ticket.NewFileStore(cfg.Ticket.Dir), sender, failures)
    if publisher != nil {
        dispatcher = publisher
    } else {
        inline = queue.NewInlineDispatcher(confirmations)
        dispatcher = inline
    }

    svc := booking.NewService(store, events, code.NewGenerator(cfg.Booking.CodePrefix), renderer, dispatcher, booking.Config{
        CodeAttempts: cfg.Booking.CodeAttempts,
        StoreTimeout: cfg.Booking.StoreTimeout,
    })

    rdb := config.NewRedisClient(config.LoadRedisConfig())
    if rdb != nil {
        defer rdb.Close()
    }
    lookupLimit, createLimit := config.LoadRateLimitConfig()

    e := router.New(router.Deps{
        Health:      health,
        Events:      handler.NewEventHandler(events),
        Bookings:    handler.NewBookingHandler(svc),
        Admin:       handler.NewAdminBookingHandler(svc),
        Auth:        handler.NewAuthHandler(cfg, admins),
        JWTSecret:   cfg.JWTSecret,
        Redis:       rdb,
        LookupLimit: lookupLimit,
        CreateLimit: createLimit,
        Cache:       config.LoadCacheConfig(),
    })

    g, ctx := errgroup.WithContext(ctx)

    g.Go(func() error {
        logrus.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env, "store": cfg.StoreDriver}).Info("Server starting...")
        if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
            return err
        }
        return nil
    })

    if publisher != nil {
        worker := queue.NewWorker(cfg.AMQPURL, confirmations)
        g.Go(func() error {
            return worker.Run(ctx)
        })
    }

    g.Go(func() error {
        <-ctx.Done()
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        err := e.Shutdown(shutdownCtx)
        if inline != nil {
            inline.Wait()
        }
        return err
    })

    return g.Wait()
}
