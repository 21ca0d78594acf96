// Command admin performs operator tasks against the ticketing database:
//
//	admin create-admin --email ops@eventlink.gh --password '...'
//	admin seed --file catalog.yaml
//	admin migrate
package main

import (
    "context"
    "errors"
    "fmt"
    "os"
    "time"

    "github.com/ThreeDotsLabs/go-event-driven/common/log"
    "github.com/sirupsen/logrus"
    "github.com/spf13/pflag"

    "github.com/iliyamo/eventlink-tickets/internal/catalog"
    "github.com/iliyamo/eventlink-tickets/internal/config"
    "github.com/iliyamo/eventlink-tickets/internal/database"
    "github.com/iliyamo/eventlink-tickets/internal/model"
    "github.com/iliyamo/eventlink-tickets/internal/repository"
)

const usage = `usage: admin <command> [flags]

commands:
  create-admin   create an administrator account
  seed           upsert the events of a YAML catalog
  migrate        create missing tables
`

func main() {
    if len(os.Args) < 2 {
        fmt.Fprint(os.Stderr, usage)
        os.Exit(2)
    }
    cfg := config.Load()
    log.Init(cfg.Level())

    ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
    defer cancel()

    if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
        logrus.WithError(err).Error("Command failed")
        cancel()
        os.Exit(1)
    }
}

func run(ctx context.Context, cfg config.Config, cmd string, args []string) error {
    fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
    var (
        email    = fs.String("email", "", "administrator email")
        password = fs.String("password", "", "administrator password (or ADMIN_PASSWORD)")
        file     = fs.String("file", cfg.CatalogFile, "catalog YAML file")
    )
    if err := fs.Parse(args); err != nil {
        return err
    }
    if cfg.StoreDriver == "memory" {
        return errors.New("admin commands need STORE_DRIVER=mysql")
    }

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        return err
    }
    defer db.Close()
    if err := database.Migrate(ctx, db); err != nil {
        return err
    }

    switch cmd {
    case "migrate":
        logrus.Info("Schema is up to date")
        return nil
    case "create-admin":
        if *password == "" {
            *password = os.Getenv("ADMIN_PASSWORD")
        }
        if *email == "" || *password == "" {
            return errors.New("--email and --password are required")
        }
        id, err := repository.NewAdminRepo(db).Create(ctx, *email, *password, model.RoleAdmin, cfg.BcryptCost)
        if err != nil {
            return err
        }
        logrus.WithFields(logrus.Fields{"admin_id": id, "email": *email}).Info("Administrator created")
        return nil
    case "seed":
        if *file == "" {
            return errors.New("--file or CATALOG_FILE is required")
        }
        n, err := catalog.Seed(ctx, *file, repository.NewEventRepo(db))
        if err != nil {
            return err
        }
        logrus.WithField("events", n).Info("Catalog seeded")
        return nil
    }
    return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}
