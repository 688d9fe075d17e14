package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	httpapi "github.com/aussiebroadwan/authsession/internal/devbackend/http"
	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// BuildVersion is the module version stamped into the binary.
var BuildVersion = versioninfo.Short()

// Application encapsulates the dev backend with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	backend             *service.Backend
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "devbackend",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initBackend(); err != nil {
		return nil, err
	}
	if err := app.seed(context.Background()); err != nil {
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the HTTP handler serving the API, for in-process tests.
func (app *Application) Handler() http.Handler {
	return app.server.Handler
}

// Backend returns the in-memory backend.
func (app *Application) Backend() *service.Backend {
	return app.backend
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("dev backend starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"public_url", app.cfg.PublicURL,
		"require_assertion", app.cfg.RequireAssertion,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down dev backend...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	app.logger.Info("dev backend stopped")
	return nil
}

func (app *Application) initBackend() error {
	pepper, err := readPepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to read pepper file: %w", err)
	}

	backend, err := service.New(service.Options{
		Issuer:           app.cfg.Issuer,
		TokenSecret:      []byte(app.cfg.TokenSecret),
		TokenTTL:         app.cfg.TokenTTL,
		Code:             app.cfg.Code,
		RandomCodes:      app.cfg.RandomCodes,
		CodeTTL:          app.cfg.CodeTTL,
		AttemptTTL:       app.cfg.AttemptTTL,
		SessionTTL:       app.cfg.SessionTTL,
		Pepper:           pepper,
		PublicURL:        app.cfg.PublicURL,
		RequireAssertion: app.cfg.RequireAssertion,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	app.backend = backend

	app.housekeepingService = service.NewHousekeepingService(
		app.backend,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// seed creates the configured startup user.
func (app *Application) seed(ctx context.Context) error {
	if app.cfg.SeedEmail == "" {
		return nil
	}

	user, err := app.backend.CreateUser(ctx, service.UserSeed{
		EmailAddress: app.cfg.SeedEmail,
		Password:     app.cfg.SeedPassword,
		TOTP:         app.cfg.SeedTOTP,
	})
	if err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	attrs := []any{"user_id", user.User.ID, "email", app.cfg.SeedEmail}
	if user.TOTPSecret != "" {
		attrs = append(attrs, "totp_secret", user.TOTPSecret)
	}
	app.logger.Info("seeded user", attrs...)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.backend, BuildVersion, app.logger)
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           otelhttp.NewHandler(router, "devbackend"),
		ReadHeaderTimeout: 3 * time.Second,
	}
}
