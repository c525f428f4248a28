package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/identity/internal/auth/cache"
	httpapi "github.com/aussiebroadwan/identity/internal/auth/http"
	"github.com/aussiebroadwan/identity/internal/auth/metrics"
	"github.com/aussiebroadwan/identity/internal/auth/outbox"
	"github.com/aussiebroadwan/identity/internal/auth/service"
	"github.com/aussiebroadwan/identity/internal/auth/service/mfa"
	"github.com/aussiebroadwan/identity/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/identity/pkg/cryptox"
	"github.com/aussiebroadwan/identity/pkg/jwtx"
	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// BuildVersion is overridden at build time with
// -ldflags "-X github.com/aussiebroadwan/identity/internal/auth/app.BuildVersion=...".
var BuildVersion = "v0.1.0-dev"

// Application owns the process-wide dependencies and background workers.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      *sqlite.Store
	cache   *cache.Redis
	metrics *metrics.Metrics
	keys    *service.KeyService

	housekeeping *service.HousekeepingService
	publisher    *outbox.Publisher

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

// New opens the database, applies migrations, connects the cache, loads the
// signing keys and wires every service behind the HTTP router.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Application, error) {
	app := &Application{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	cryptox.SetPepperPath(cfg.PepperFile)

	db, err := OpenDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	c, err := cache.New(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.RedisPrefix,
	}, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.cache = c

	keys, err := initKeys(ctx, cfg, db, logger)
	if err != nil {
		app.closeStores()
		return nil, err
	}
	app.keys = keys

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	return app, nil
}

// OpenDatabase opens the SQLite file and brings the schema up to date.
func OpenDatabase(cfg Config, logger *slog.Logger) (*sqlite.Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply database migrations: %w", err)
	}

	logger.Info("database migrations applied", "file", cfg.DatabaseFile)
	return db, nil
}

func (app *Application) initServices() error {
	cfg := app.cfg
	ring := app.keys.Ring

	verifier := ring.Verifier(jwtx.VerifyOptions{Issuer: cfg.Issuer, Leeway: 30 * time.Second})
	provider, err := service.NewTokenProvider(cfg.TokenFormat, ring, verifier, app.cache)
	if err != nil {
		return err
	}
	// Tokens of the other format stay resolvable across a format switch
	// until they expire.
	resolvers := []service.TokenProvider{&service.ReferenceProvider{Cache: app.cache}}
	if provider.Format() == service.TokenFormatReference {
		resolvers = []service.TokenProvider{&service.JWTProvider{Keys: ring, Verifier: verifier}}
	}
	tokens := service.NewTokenIssuer(app.db, cfg.Issuer, cfg.Audience, provider, resolvers...)
	app.logger.Info("access token format", "format", provider.Format())

	var mail mfa.EmailSender = mfa.LogEmailSender{Logger: app.logger}
	if cfg.SMTP.Host != "" {
		mail = mfa.NewSMTPSender(mfa.SMTPConfig(cfg.SMTP), app.logger)
	} else {
		app.logger.Warn("MFA_SMTP_HOST not set, email codes are written to the log")
	}
	factory := mfa.NewFactory(
		&mfa.TOTPProvider{Metrics: app.metrics},
		mfa.NewSMSProvider(app.cache, mfa.LogSMSSender{Logger: app.logger}, app.logger, app.metrics),
		mfa.NewEmailProvider(app.cache, mail, app.logger, app.metrics),
	)

	var bus outbox.EventBus = outbox.LogBus{Logger: app.logger}
	switch cfg.EventBus {
	case "redis":
		bus = outbox.NewRedisStreamBus(app.cache.Client(), cfg.EventStream)
	case "log", "":
	default:
		return fmt.Errorf("unknown EVENT_BUS %q (want log or redis)", cfg.EventBus)
	}
	app.publisher = outbox.NewPublisher(app.db, bus, cfg.Outbox, app.logger, app.metrics)
	app.housekeeping = service.NewHousekeepingService(app.db, app.keys, app.logger, cfg.HousekeepingInterval)

	router := httpapi.NewRouter(ring.KeySet(), cfg.Issuer, BuildVersion, app.db, app.logger)
	router.Cache = app.cache
	router.Metrics = app.metrics
	router.RateLimits = cfg.RateLimits
	router.IdempotencyTTL = cfg.IdempotencyTTL

	router.Tokens = tokens
	router.Grants = service.NewGrantDispatcher(app.db, app.metrics, service.DefaultGrants(app.db, tokens))
	router.AuthorizeService = &service.AuthorizeService{Store: app.db, MFA: factory}
	router.UserService = &service.UserService{Store: app.db}
	router.ClientService = &service.ClientService{Store: app.db}
	router.ConsentService = &service.ConsentService{Store: app.db}
	router.MFAService = &service.MFAService{Store: app.db, Factory: factory, Issuer: cfg.WebAuthn.RPName}
	router.WebAuthnService = &service.WebAuthnService{
		Store:   app.db,
		Cache:   app.cache,
		Config:  cfg.WebAuthn,
		Metrics: app.metrics,
	}
	router.KeyService = app.keys
	router.BootstrapService = &service.BootstrapService{Store: app.db, Token: cfg.BootstrapToken}
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}

// Run serves HTTP and runs the background workers until ctx is cancelled,
// then shuts everything down.
func (app *Application) Run(ctx context.Context) error {
	app.housekeeping.Start()
	app.publisher.Start(ctx)

	app.logger.Info("identity service starting",
		"port", app.cfg.Port,
		"issuer", app.cfg.Issuer,
		"version", BuildVersion,
		"bootstrap_enabled", app.cfg.BootstrapToken != "",
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	}

	if err := app.Shutdown(); err != nil {
		return errors.Join(runErr, fmt.Errorf("graceful shutdown failed: %w", err))
	}
	return runErr
}

// Shutdown drains in-flight requests, stops the workers and closes the
// stores.
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

	app.publisher.Stop()
	app.housekeeping.Stop()

	err := app.closeStores()
	app.logger.Info("identity service stopped")
	return err
}

func (app *Application) closeStores() error {
	var errs []error
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("error closing cache", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
