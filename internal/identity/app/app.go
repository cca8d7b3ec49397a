package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/identity/internal/identity/http"
	"github.com/aussiebroadwan/identity/internal/identity/mailer"
	"github.com/aussiebroadwan/identity/internal/identity/metrics"
	"github.com/aussiebroadwan/identity/internal/identity/service"
	"github.com/aussiebroadwan/identity/internal/identity/store"
	"github.com/aussiebroadwan/identity/internal/identity/store/drivers/postgres"
	"github.com/aussiebroadwan/identity/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application wires the identity service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	metrics *metrics.Metrics

	tokenService        *service.TokenService
	sessionManager      *service.SessionManager
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "identity",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates an Application with every dependency initialised.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &Application{
		cfg:     cfg,
		logger:  NewLogger(cfg),
		metrics: metrics.New(),
	}

	if err := cryptox.LoadPepper(cfg.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the router, for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion, "store", app.cfg.StoreDriver)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.db.Close()
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains requests, stops housekeeping and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

// OpenStore connects to the configured driver without migrating.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	switch cfg.StoreDriver {
	case "postgres":
		return postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		dsn := cfg.DatabaseFile
		if dsn != ":memory:" {
			dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		}
		return sqlite.NewStore(dsn)
	}
}

func (app *Application) initDatabase() error {
	db, err := OpenStore(context.Background(), app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

// NewMailer returns the configured code delivery.
func NewMailer(cfg Config, logger *slog.Logger) (service.Mailer, error) {
	if cfg.Mailer == "smtp" {
		m, err := mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	if cfg.Env == "prod" {
		logger.Warn("log mailer in use: sign-in codes are written to the log and never delivered")
	}
	return mailer.LogMailer{Logger: logger}, nil
}

func (app *Application) initServices() error {
	tokens, err := service.NewTokenService(service.TokenConfig{
		Issuer:        app.cfg.Issuer,
		AccessSecret:  []byte(app.cfg.AccessSecret),
		RefreshSecret: []byte(app.cfg.RefreshSecret),
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
		Leeway:        5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokenService = tokens

	m, err := NewMailer(app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}

	roles, err := app.cfg.Roles()
	if err != nil {
		return err
	}

	app.sessionManager = &service.SessionManager{
		Store:  app.db,
		Tokens: tokens,
		OTP: &service.OTPIssuer{
			Store:  app.db,
			Mailer: m,
			TTL:    app.cfg.OTPTTL,
		},
		Metrics:             app.metrics,
		SecondFactorRoles:   roles,
		RotateRefreshTokens: app.cfg.RotateRefreshTokens,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.sessionManager,
		BuildVersion,
		app.db,
		app.metrics,
		app.logger,
	)
	router.RateLimitScale = app.cfg.RateLimitScale
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
