package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings"
    "time"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for counts and costs.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    JWTSecret    string // secret used to sign JWTs
    AccessTTLMin int    // access token time‑to‑live in minutes
    BcryptCost   int    // bcrypt cost for password hashing
    StoreDriver  string // "mysql" (default) or "memory"
    LogLevel     string // logrus level name
    CatalogFile  string // optional YAML catalog seeded at startup
    AMQPURL      string // RabbitMQ URL; empty runs notifications in-process

    Booking BookingConfig
    Ticket  TicketConfig
    SMTP    SMTPConfig
}

// BookingConfig tunes the lifecycle engine.
type BookingConfig struct {
    CodePrefix   string        // printed in front of every booking code
    CodeAttempts int           // codes tried before giving up on a create
    StoreTimeout time.Duration // bound on every store round trip
}

// TicketConfig controls rendered documents.
type TicketConfig struct {
    Issuer string // header printed on every ticket
    Dir    string // where the worker stores rendered PDFs
}

// SMTPConfig is the outbound mail server.  Without a host confirmations
// are only logged.
type SMTPConfig struct {
    Host string
    Port int
    User string
    Pass string
    From string
}

// Enabled reports whether mail can be sent.
func (s SMTPConfig) Enabled() bool { return s.Host != "" }

// Load reads configuration values from a .env file (if present) and the
// environment.  Missing required variables are fatal.
func Load() Config {
    if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
        logrus.WithError(err).Warn("could not read .env file")
    }
    cfg, err := FromEnv()
    if err != nil {
        logrus.WithError(err).Fatal("invalid configuration")
    }
    return cfg
}

// FromEnv builds a Config from the current environment without touching
// .env files.  It reports every missing or malformed variable at once.
func FromEnv() (Config, error) {
    var errs []error
    must := func(key string) string {
        v, ok := os.LookupEnv(key)
        if !ok || strings.TrimSpace(v) == "" {
            errs = append(errs, fmt.Errorf("missing required env var: %s", key))
        }
        return v
    }
    optInt := func(key string, def int) int {
        v := os.Getenv(key)
        if v == "" {
            return def
        }
        n, err := strconv.Atoi(v)
        if err != nil {
            errs = append(errs, fmt.Errorf("invalid int for %s: %q", key, v))
        }
        return n
    }
    optDur := func(key string, def time.Duration) time.Duration {
        v := os.Getenv(key)
        if v == "" {
            return def
        }
        d, err := time.ParseDuration(v)
        if err != nil {
            errs = append(errs, fmt.Errorf("invalid duration for %s: %q", key, v))
        }
        return d
    }

    cfg := Config{
        Env:          must("APP_ENV"),                        // environment (dev/test/prod)
        Port:         must("APP_PORT"),                       // port to bind the HTTP server
        DBPass:       os.Getenv("DB_PASS"),                   // database password (empty allowed)
        JWTSecret:    must("JWT_SECRET"),                     // secret used for signing JWTs
        AccessTTLMin: optInt("ACCESS_TOKEN_TTL_MIN", 60),     // TTL for access tokens in minutes
        BcryptCost:   optInt("BCRYPT_COST", 12),              // bcrypt cost factor
        StoreDriver:  strings.ToLower(envStr("STORE_DRIVER", "mysql")),
        LogLevel:     envStr("LOG_LEVEL", "info"),
        CatalogFile:  os.Getenv("CATALOG_FILE"),
        AMQPURL:      envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
        Booking: BookingConfig{
            CodePrefix:   envStr("BOOKING_CODE_PREFIX", "EVT"),
            CodeAttempts: optInt("BOOKING_CODE_ATTEMPTS", 5),
            StoreTimeout: optDur("STORE_TIMEOUT", 5*time.Second),
        },
        Ticket: TicketConfig{
            Issuer: envStr("TICKET_ISSUER", "EVENTLINK GHANA"),
            Dir:    envStr("TICKET_DIR", "tickets"),
        },
        SMTP: SMTPConfig{
            Host: os.Getenv("SMTP_HOST"),
            Port: optInt("SMTP_PORT", 587),
            User: os.Getenv("SMTP_USER"),
            Pass: os.Getenv("SMTP_PASS"),
            From: envStr("MAIL_FROM", "tickets@eventlink.local"),
        },
    }
    if cfg.StoreDriver == "mysql" {
        cfg.DBUser = must("DB_USER") // database user
        cfg.DBHost = must("DB_HOST") // database host
        cfg.DBPort = must("DB_PORT") // database port
        cfg.DBName = must("DB_NAME") // database name
    }

    if cfg.StoreDriver != "mysql" && cfg.StoreDriver != "memory" {
        errs = append(errs, fmt.Errorf("STORE_DRIVER must be mysql or memory, got %q", cfg.StoreDriver))
    }
    if cfg.Booking.CodeAttempts < 1 {
        errs = append(errs, errors.New("BOOKING_CODE_ATTEMPTS must be at least 1"))
    }
    if cfg.Booking.StoreTimeout <= 0 {
        errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
    }
    if !validPrefix(cfg.Booking.CodePrefix) {
        errs = append(errs, fmt.Errorf("BOOKING_CODE_PREFIX must be 2 to 8 letters, got %q", cfg.Booking.CodePrefix))
    }
    if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
        errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
    }
    return cfg, errors.Join(errs...)
}

// Level returns the configured logrus level, defaulting to info.
func (c Config) Level() logrus.Level {
    lvl, err := logrus.ParseLevel(c.LogLevel)
    if err != nil {
        return logrus.InfoLevel
    }
    return lvl
}

func validPrefix(p string) bool {
    if len(p) < 2 || len(p) > 8 {
        return false
    }
    for _, r := range strings.ToUpper(p) {
        if r < 'A' || r > 'Z' {
            return false
        }
    }
    return true
}
