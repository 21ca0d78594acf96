package database

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"
)

// schema is applied statement by statement on startup.  Every statement
// is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id              VARCHAR(64)  NOT NULL PRIMARY KEY,
		title           VARCHAR(255) NOT NULL,
		description     TEXT         NOT NULL,
		event_date      DATE         NOT NULL,
		event_time      TIME         NOT NULL,
		venue           VARCHAR(255) NOT NULL,
		location        VARCHAR(255) NOT NULL DEFAULT '',
		category        VARCHAR(64)  NOT NULL DEFAULT '',
		currency        CHAR(3)      NOT NULL DEFAULT 'GHS',
		organizer_name  VARCHAR(255) NOT NULL DEFAULT '',
		organizer_phone VARCHAR(32)  NOT NULL DEFAULT '',
		created_at      DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS event_prices (
		event_id    VARCHAR(64)   NOT NULL,
		ticket_type VARCHAR(32)   NOT NULL,
		unit_price  DECIMAL(10,2) NOT NULL,
		PRIMARY KEY (event_id, ticket_type),
		CONSTRAINT fk_event_prices_event FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS event_capacity (
		event_id      VARCHAR(64)  NOT NULL PRIMARY KEY,
		total_tickets INT NOT NULL,
		reserved      INT NOT NULL DEFAULT 0,
		CONSTRAINT chk_event_capacity CHECK (reserved >= 0 AND reserved <= total_tickets),
		CONSTRAINT fk_event_capacity_event FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id           CHAR(36)      NOT NULL PRIMARY KEY,
		code         VARCHAR(32)   NOT NULL,
		event_id     VARCHAR(64)   NOT NULL,
		event_title  VARCHAR(255)  NOT NULL,
		buyer_name   VARCHAR(255)  NOT NULL,
		buyer_email  VARCHAR(255)  NOT NULL,
		buyer_phone  VARCHAR(32)   NOT NULL,
		ticket_type  VARCHAR(32)   NOT NULL,
		quantity     INT           NOT NULL,
		unit_price   DECIMAL(10,2) NOT NULL,
		currency     CHAR(3)       NOT NULL,
		total_amount DECIMAL(12,2) NOT NULL,
		status       ENUM('pending','confirmed','cancelled') NOT NULL DEFAULT 'pending',
		created_at   DATETIME(6)   NOT NULL,
		confirmed_at DATETIME(6)   NULL,
		cancelled_at DATETIME(6)   NULL,
		UNIQUE KEY uq_bookings_code (code),
		KEY idx_bookings_event_status (event_id, status),
		KEY idx_bookings_created (created_at),
		CONSTRAINT chk_bookings_quantity CHECK (quantity >= 1)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS admins (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255)    NOT NULL,
		password_hash VARCHAR(255)    NOT NULL,
		role          VARCHAR(16)     NOT NULL DEFAULT 'ADMIN',
		is_active     BOOLEAN         NOT NULL DEFAULT TRUE,
		created_at    DATETIME(6)     NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_admins_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables the service needs.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	log.FromContext(ctx).WithField("statements", len(schema)).Info("Schema up to date")
	return nil
}
