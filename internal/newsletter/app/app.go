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

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/quillpost/quillpost/internal/newsletter/domain"
	"github.com/quillpost/quillpost/internal/newsletter/email"
	httpapi "github.com/quillpost/quillpost/internal/newsletter/http"
	"github.com/quillpost/quillpost/internal/newsletter/service"
	"github.com/quillpost/quillpost/internal/newsletter/session"
	"github.com/quillpost/quillpost/internal/newsletter/store"
	"github.com/quillpost/quillpost/internal/newsletter/store/drivers/sqlite"
	"github.com/quillpost/quillpost/pkg/cryptox"
	"github.com/quillpost/quillpost/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the newsletter service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db          store.Store
	redisClient *redis.Client
	sessions    *session.Manager

	credentialsService  *service.CredentialsService
	subscriptionService *service.SubscriptionService
	publishService      *service.PublishService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "quillpost",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.HMACKey.IsEmpty() {
		return nil, errors.New("NEWSLETTER_HMAC_KEY must be set")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	app.initSessions()
	app.initServices()

	if err := app.seedAdminUser(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.logger.Info("newsletter service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down newsletter service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("newsletter service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initSessions() {
	var sessionStore session.Store
	if app.cfg.RedisAddr != "" {
		app.redisClient = redis.NewClient(&redis.Options{Addr: app.cfg.RedisAddr})
		sessionStore = session.NewRedisStore(app.redisClient)
		app.logger.Info("sessions backed by redis", "addr", app.cfg.RedisAddr)
	} else {
		sessionStore = session.NewMemoryStore()
		app.logger.Info("sessions held in memory; restarts log everyone out")
	}

	app.sessions = &session.Manager{
		Store: sessionStore,
		TTL:   app.cfg.SessionTTL,
	}
}

func (app *Application) initServices() {
	emailClient := email.NewClient(
		app.cfg.EmailBaseURL,
		app.cfg.EmailSender,
		app.cfg.EmailAuthToken,
		app.cfg.EmailTimeout,
	)

	app.credentialsService = service.NewCredentialsService(app.db)
	app.subscriptionService = &service.SubscriptionService{
		Store:   app.db,
		Emails:  emailClient,
		BaseURL: app.cfg.BaseURL,
	}
	app.publishService = &service.PublishService{
		Store:  app.db,
		Emails: emailClient,
	}
}

// seedAdminUser creates the first operator account when the users table is
// empty and credentials were provided via config.
func (app *Application) seedAdminUser(ctx context.Context) error {
	if app.cfg.AdminUsername == "" || app.cfg.AdminPassword.IsEmpty() {
		return nil
	}

	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if !empty {
		return nil
	}

	hash, err := cryptox.HashPassword(app.cfg.AdminPassword.Expose())
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	err = app.db.Users().CreateUser(ctx, domain.User{
		ID:           uuid.New(),
		Username:     app.cfg.AdminUsername,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	app.logger.Info("seeded initial admin user", "username", app.cfg.AdminUsername)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.sessions,
		app.cfg.HMACKey,
		app.cfg.SignedRedirects,
		app.logger,
	)
	router.CredentialsService = app.credentialsService
	router.SubscriptionService = app.subscriptionService
	router.PublishService = app.publishService
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}
