// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"micropatrons/pkg/db" // Import db package for its Config struct
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	Env            string        `envconfig:"APP_ENV" default:"development"`
	ServerPort     string        `envconfig:"SERVER_PORT" default:"5173"`
	APIBasePath    string        `envconfig:"API_BASE_PATH" default:"/api"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"json"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	SeedOnStart    bool          `envconfig:"SEED_ON_START" default:"false"`
	DB             db.Config     `ignored:"true"`
}

// LoadConfig loads configuration from environment variables, after merging
// any .env files given (or ./.env when none are). Variables already set in
// the process environment win over file values.
func LoadConfig(envFiles ...string) (*AppConfig, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("invalid application config: %w", err)
	}
	if err := envconfig.Process("", &cfg.DB); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	switch cfg.DB.Driver {
	case db.DriverSQLite, db.DriverPostgres, db.DriverMemory:
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want %s, %s or %s",
			cfg.DB.Driver, db.DriverSQLite, db.DriverPostgres, db.DriverMemory)
	}
	if cfg.APIBasePath == "" || cfg.APIBasePath[0] != '/' {
		return nil, fmt.Errorf("invalid API_BASE_PATH %q: must start with /", cfg.APIBasePath)
	}
	return &cfg, nil
}
