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

	httpapi "github.com/aussiebroadwan/taskflow/internal/taskflow/http"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/mail"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/session"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/postgres"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application holds the TaskFlow server and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	sessions *session.Manager
	mailer   mail.Mailer

	authService         *service.AuthService
	userService         *service.UserService
	taskService         *service.TaskService
	subTaskService      *service.SubTaskService
	categoryService     *service.CategoryService
	trashService        *service.TrashService
	profileService      *service.ProfileService
	dashboardService    *service.DashboardService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with its database migrated and all
// dependencies wired.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "taskflow",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSessions(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Housekeeping returns the cleanup service so it can be run on demand.
func (app *Application) Housekeeping() *service.HousekeepingService {
	return app.housekeepingService
}

// Run starts the server and blocks until a shutdown signal arrives or the
// server fails.
func (app *Application) Run() error {
	if err := app.housekeepingService.Start(); err != nil {
		return fmt.Errorf("failed to start housekeeping: %w", err)
	}

	app.logger.Info("taskflow starting",
		slog.Int("port", app.cfg.Port),
		slog.String("db_driver", app.cfg.DBDriver),
		slog.String("version", BuildVersion),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down taskflow...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slog.Any("error", err))
		}
	}

	app.housekeepingService.Stop()

	return app.Close()
}

// Close releases the database without touching the server. Used by one-off
// commands that never call Run.
func (app *Application) Close() error {
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slog.Any("error", err))
		return err
	}
	app.logger.Info("taskflow stopped")
	return nil
}

func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DBDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", slog.String("driver", app.cfg.DBDriver))
	return nil
}

func (app *Application) initSessions() error {
	secret := []byte(app.cfg.SessionSecret)
	if len(secret) == 0 {
		token, err := cryptox.GenerateToken(jwtx.MinSecretSize)
		if err != nil {
			return err
		}
		secret = []byte(token)
		app.logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	codec, err := jwtx.NewHS256(secret, app.cfg.AppName)
	if err != nil {
		return fmt.Errorf("failed to initialize session codec: %w", err)
	}

	app.sessions = session.NewManager(
		app.db.Sessions(),
		codec,
		app.cfg.AppName,
		app.cfg.SessionLifetime,
		app.cfg.CookieSecure,
	)
	return nil
}

func (app *Application) initServices() {
	app.mailer = mail.NewLogMailer(mail.Sender{
		AppName:     app.cfg.AppName,
		FromAddress: app.cfg.MailFromAddress,
		FromName:    app.cfg.MailFromName,
	}, app.logger)

	app.authService = &service.AuthService{
		Store:       app.db,
		Mailer:      app.mailer,
		BaseURL:     app.cfg.AppURL,
		RememberTTL: app.cfg.RememberLifetime,
	}
	app.userService = &service.UserService{Store: app.db}
	app.taskService = &service.TaskService{Store: app.db}
	app.subTaskService = &service.SubTaskService{Store: app.db}
	app.categoryService = &service.CategoryService{Store: app.db}
	app.trashService = &service.TrashService{Store: app.db}
	app.profileService = &service.ProfileService{Store: app.db}
	app.dashboardService = &service.DashboardService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.TrashRetention = app.cfg.TrashRetention
	app.housekeepingService.LoginAttemptRetention = app.cfg.LoginAttemptRetention
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.db, app.sessions, BuildVersion, app.logger)

	router.CookieSecure = app.cfg.CookieSecure
	router.TrustProxyHeaders = app.cfg.TrustProxyHeaders
	router.AuthService = app.authService
	router.UserService = app.userService
	router.TaskService = app.taskService
	router.SubTaskService = app.subTaskService
	router.CategoryService = app.categoryService
	router.TrashService = app.trashService
	router.ProfileService = app.profileService
	router.DashboardService = app.dashboardService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
