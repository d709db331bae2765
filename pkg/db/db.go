// pkg/db/db.go
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// Config holds database connection configuration.
type Config struct {
	Driver       string        `envconfig:"DB_DRIVER" default:"sqlite"`
	Path         string        `envconfig:"DB_PATH" default:"micropatrons.db"`
	DSN          string        `envconfig:"DB_DSN"`
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         int           `envconfig:"DB_PORT" default:"5432"`
	User         string        `envconfig:"DB_USER" default:"user"`
	Password     string        `envconfig:"DB_PASSWORD" default:"password"`
	DBName       string        `envconfig:"DB_NAME" default:"micropatrons"`
	SSLMode      string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"4"`
	BusyTimeout  time.Duration `envconfig:"DB_BUSY_TIMEOUT" default:"5s"`
}

// Open connects to the configured SQL driver.
func Open(cfg Config) (*sqlx.DB, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return NewSQLiteDB(cfg)
	case DriverPostgres:
		return NewPostgresDB(cfg)
	default:
		return nil, fmt.Errorf("unsupported SQL driver %q", cfg.Driver)
	}
}

// SQLiteDSN builds a modernc.org/sqlite connection string. Writers take the
// database lock at BEGIN so that balance checks and updates never interleave.
func SQLiteDSN(cfg Config) string {
	path := cfg.Path
	if path == "" {
		path = MemoryPath
	}
	timeout := cfg.BusyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_txlock=immediate&_time_format=sqlite",
		path, timeout.Milliseconds())
	if path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	return dsn
}

// NewSQLiteDB opens the file-backed ledger store.
func NewSQLiteDB(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverSQLite, SQLiteDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if cfg.Path == "" || cfg.Path == MemoryPath || maxOpen <= 0 {
		// Every in-memory connection is its own database.
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(0)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping SQLite: %w", err)
	}
	return db, nil
}

// NewPostgresDB initializes and returns a new PostgreSQL database connection.
func NewPostgresDB(cfg Config) (*sqlx.DB, error) {
	connStr := cfg.DSN
	if connStr == "" {
		connStr = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	}

	db, err := sqlx.Connect(DriverPostgres, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return db, nil
}

func ping(db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
