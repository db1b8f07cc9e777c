package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/relativitydevhub/authservice/internal/auth"
	"github.com/relativitydevhub/authservice/internal/background"
	"github.com/relativitydevhub/authservice/internal/cache"
	"github.com/relativitydevhub/authservice/internal/config"
	"github.com/relativitydevhub/authservice/internal/database"
	"github.com/relativitydevhub/authservice/internal/handlers"
	"github.com/relativitydevhub/authservice/internal/repositories"
	"github.com/relativitydevhub/authservice/internal/services"
	pkgauth "github.com/relativitydevhub/authservice/pkg/auth"
)

// App owns the connections and the HTTP handler of one service instance
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *database.DB
	redis   *cache.Redis
	users   *repositories.UserRepository
	hasher  *pkgauth.Hasher
	health  *handlers.HealthHandler
	cleanup *background.CleanupManager
	handler http.Handler

	closeOnce sync.Once
}

// New connects to PostgreSQL (and Redis when configured), applies pending
// migrations when enabled and wires the HTTP stack
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		db:     db,
		users:  repositories.NewUserRepository(db),
		hasher: pkgauth.NewHasher(cfg.Auth.BcryptCost),
		health: handlers.NewHealthHandler(handlers.HealthInfo{
			Service:     cfg.Server.ServiceName,
			Version:     cfg.Server.Version,
			Environment: cfg.Server.Env,
		}),
	}
	a.health.AddCheck("database", handlers.CheckerFunc(db.HealthCheck))

	var revocations RevocationStore
	if cfg.Redis.Enabled() {
		a.redis, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.health.AddCheck("redis", a.redis)
		revocations = cache.NewRevocationCache(a.redis.Client)
		logger.Info("token revocation backed by redis")
	} else {
		repo := repositories.NewTokenRevocationRepository(db)
		revocations = repo
		a.cleanup = background.NewCleanupManager(repo, logger, cfg.Auth.CleanupInterval)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn, cfg.Auth.JWTIssuer)
	if err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := Deps{
		Config:      cfg,
		Logger:      logger,
		Users:       a.users,
		Revocations: revocations,
		Tokens:      tokens,
		Hasher:      a.hasher,
		Notifier:    notifier,
		Timing: auth.NewTimingDelay(auth.TimingConfig{
			BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
			RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
		}),
		Health: a.health,
	}
	if a.redis != nil {
		deps.RedisClient = a.redis.Client
	}

	a.handler = NewRouter(deps)
	return a, nil
}

func newNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.Notifier, error) {
	if !cfg.Email.Enabled() {
		return services.NewLogNotifier(logger), nil
	}

	notifier, err := services.NewSESNotifier(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, cfg.Server.ServiceName, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("welcome emails enabled", slog.String("region", cfg.Email.AWSRegion))
	return notifier, nil
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// EnsureAdmin creates the bootstrap admin from ADMIN_EMAIL and ADMIN_PASSWORD
// when both are set and no account with that email exists yet
func (a *App) EnsureAdmin(ctx context.Context) error {
	if a.cfg.Auth.AdminEmail == "" || a.cfg.Auth.AdminPassword == "" {
		a.logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	created, err := EnsureUser(ctx, a.users, a.hasher, AdminAccount(a.cfg.Auth.AdminEmail, a.cfg.Auth.AdminPassword))
	if err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}
	if created {
		a.logger.Info("admin user created")
	}
	return nil
}

// Run serves HTTP on cfg.Server.Port until ctx is cancelled, then drains
// in-flight requests
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	defer cleanupCancel()
	if a.cleanup != nil {
		go a.cleanup.Start(cleanupCtx)
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", a.cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	}

	a.health.SetShutdown(true)
	cleanupCancel()
	if a.cleanup != nil {
		a.cleanup.Stop()
		<-a.cleanup.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.logger.Info("server stopped gracefully")
	return nil
}

// Close releases the database pool and Redis client
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				a.logger.Error("redis close error", slog.Any("error", err))
			}
		}
		a.db.Close()
	})
}
