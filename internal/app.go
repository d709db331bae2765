// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	router "micropatrons/internal/api"
	"micropatrons/internal/api/handler"
	"micropatrons/internal/config"
	"micropatrons/internal/metrics"
	"micropatrons/internal/repository"
	"micropatrons/internal/repository/memory"
	"micropatrons/internal/repository/sqlstore"
	"micropatrons/internal/seed"
	"micropatrons/internal/service"
	"micropatrons/internal/util"
	"micropatrons/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger

	// Storage
	Store repository.Store

	// Services
	LedgerService service.LedgerService
	Metrics       *metrics.Recorder

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// OpenStore connects the configured ledger store and applies the schema.
func OpenStore(ctx context.Context, cfg db.Config) (repository.Store, error) {
	if cfg.Driver == db.DriverMemory {
		return memory.New(), nil
	}

	conn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return sqlstore.New(conn), nil
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context, envFiles ...string) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig(envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel, cfg.LogFormat)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", "env", cfg.Env)

	// 3. Open the ledger store
	store, err := OpenStore(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open ledger store: %w", err)
	}
	app.Store = store
	app.Logger.Info("Ledger store ready.", "driver", cfg.DB.Driver)

	if cfg.SeedOnStart {
		fixture, err := seed.Default()
		if err != nil {
			return fmt.Errorf("failed to load seed fixture: %w", err)
		}
		applied, err := seed.ApplyIfEmpty(ctx, store, fixture)
		if err != nil {
			return fmt.Errorf("failed to seed ledger: %w", err)
		}
		app.Logger.Info("Seed on start checked.", "applied", applied)
	}

	// 4. Initialize Services
	app.Metrics = metrics.NewRecorder()
	app.LedgerService = service.NewLedgerService(store,
		service.WithLogger(app.Logger),
		service.WithObserver(app.Metrics),
	)
	app.Logger.Info("Services initialized.")

	// 5. Initialize HTTP Handlers and Router
	ledgerHandler := handler.NewLedgerHandler(app.LedgerService, app.Logger)
	app.HTTPHandler = router.NewRouter(ledgerHandler, router.RouterConfig{
		BasePath: cfg.APIBasePath,
		Timeout:  cfg.RequestTimeout,
		Metrics:  app.Metrics.Handler(),
	})
	app.Logger.Info("HTTP router and handlers initialized.", "base_path", cfg.APIBasePath)

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Error("Failed to close ledger store", "error", err)
			return fmt.Errorf("failed to close ledger store: %w", err)
		}
		app.Logger.Info("Ledger store closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
