// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	router "krako-ledger/internal/api"
	"krako-ledger/internal/api/handler"
	"krako-ledger/internal/config"
	"krako-ledger/internal/repository"
	"krako-ledger/internal/repository/postgres"
	"krako-ledger/internal/service"
	"krako-ledger/internal/util"
	"krako-ledger/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	// Repositories
	ProfileRepository     repository.ProfileRepository
	TransactionRepository repository.TransactionRepository

	// Services
	LedgerService service.LedgerService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{Logger: util.GetLogger()}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.Log)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.",
		"claim_max_daily", cfg.Claim.MaxDailyClaims,
		"claim_amount", cfg.Claim.DailyClaimAmount,
		"claim_time_zone", cfg.Claim.TimeZone,
	)

	policy, err := cfg.Claim.Policy()
	if err != nil {
		return fmt.Errorf("invalid claim policy: %w", err)
	}

	// 3. Connect to Database
	database, err := db.NewPostgresDB(ctx, app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	// 4. Initialize Repositories
	app.ProfileRepository = postgres.NewProfileRepository(app.DB)
	app.TransactionRepository = postgres.NewTransactionRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 5. Initialize Services
	app.LedgerService = service.NewLedgerService(
		app.DB, // DBTxBeginner
		app.DB, // DBExecutor
		app.ProfileRepository,
		app.TransactionRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		service.Settings{
			Policy:       policy,
			WriteTimeout: cfg.Claim.WriteTimeout,
			Logger:       app.Logger,
		},
	)
	app.Logger.Info("Services initialized.")

	// 6. Initialize HTTP Handlers and Router
	if cfg.Auth.JWTSecret == "" {
		app.Logger.Warn("AUTH_JWT_SECRET is not set; every /me request will be rejected")
	}
	ledgerHandler := handler.NewLedgerHandler(app.LedgerService, app.Logger)
	app.HTTPHandler = router.NewRouter(ledgerHandler, cfg.Auth.JWTSecret, cfg.HTTP.RequestTimeout, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
