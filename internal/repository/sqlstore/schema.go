// internal/repository/sqlstore/schema.go
package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"micropatrons/pkg/db"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		balance INTEGER NOT NULL DEFAULT 200000 CHECK (balance >= 0),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS activity (
		id TEXT PRIMARY KEY,
		from_user_id TEXT NOT NULL REFERENCES users(id),
		to_user_id TEXT NOT NULL REFERENCES users(id),
		amount INTEGER NOT NULL CHECK (amount > 0),
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (from_user_id <> to_user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity(timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_from_user ON activity(from_user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_to_user ON activity(to_user_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		balance BIGINT NOT NULL DEFAULT 200000 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS activity (
		id TEXT PRIMARY KEY,
		from_user_id TEXT NOT NULL REFERENCES users(id),
		to_user_id TEXT NOT NULL REFERENCES users(id),
		amount BIGINT NOT NULL CHECK (amount > 0),
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (from_user_id <> to_user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity(timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_from_user ON activity(from_user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_to_user ON activity(to_user_id)`,
}

// Migrate creates the ledger tables if they do not exist yet.
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	statements := sqliteSchema
	if conn.DriverName() == db.DriverPostgres {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
