package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/relativitydevhub/authservice/internal/auth"
	"github.com/relativitydevhub/authservice/internal/config"
	"github.com/relativitydevhub/authservice/internal/handlers"
	"github.com/relativitydevhub/authservice/internal/middleware"
	"github.com/relativitydevhub/authservice/internal/routes"
	"github.com/relativitydevhub/authservice/internal/services"
	pkgauth "github.com/relativitydevhub/authservice/pkg/auth"
	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
	pkglogger "github.com/relativitydevhub/authservice/pkg/logger"
)

// RevocationStore records and answers token revocations
type RevocationStore interface {
	auth.TokenRevocationChecker
	services.TokenRevoker
}

// Deps are the already-constructed collaborators NewRouter wires together
type Deps struct {
	Config      *config.Config
	Logger      *slog.Logger
	Users       services.UserRepository
	Revocations RevocationStore
	Tokens      *auth.TokenManager
	Hasher      *pkgauth.Hasher
	Timing      *auth.TimingDelay
	Notifier    services.Notifier

	// Optional
	Health      *handlers.HealthHandler
	RedisClient *redis.Client
}

// NewRouter builds the chi router with the global middleware chain and all
// routes mounted under the configured API prefix
func NewRouter(deps Deps) *chi.Mux {
	cfg := deps.Config
	logger := deps.Logger
	auditLogger := pkglogger.NewAuditLogger(logger)
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)

	authService := services.NewAuthService(deps.Users, deps.Tokens, deps.Hasher, deps.Revocations, deps.Notifier, deps.Timing, logger, auditLogger)
	userService := services.NewUserService(deps.Users, deps.Hasher, logger, auditLogger)

	health := deps.Health
	if health == nil {
		health = handlers.NewHealthHandler(handlers.HealthInfo{
			Service:     cfg.Server.ServiceName,
			Version:     cfg.Server.Version,
			Environment: cfg.Server.Env,
		})
	}

	authOpts := []auth.Option{
		auth.WithLogger(logger),
		auth.WithRevocationChecker(deps.Revocations, cfg.Auth.RevocationFailClosed),
	}
	if cfg.Auth.RevalidateUsers {
		authOpts = append(authOpts, auth.WithUserValidator(deps.Users))
	}

	globalLimit := middleware.RateLimitConfig{
		Limit:    cfg.RateLimit.Limit,
		Window:   cfg.RateLimit.Window,
		Name:     "global",
		IPConfig: ipConfig,
	}
	authLimit := middleware.DefaultAuthRateLimit(ipConfig)
	authLimit.Limit = cfg.RateLimit.AuthLimit

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Production: cfg.Server.IsProduction()}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middleware.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer(logger))
	router.Use(rateLimiter(deps.RedisClient, globalLimit, logger))
	router.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, r, "Endpoint not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService),
		Users:         handlers.NewUserHandler(userService),
		Health:        health,
		Authenticate:  auth.Authenticate(deps.Tokens, authOpts...),
		AuthRateLimit: rateLimiter(deps.RedisClient, authLimit, logger),
	}

	if prefix := cfg.Server.APIPrefix; prefix != "" {
		router.Route(prefix, func(r chi.Router) {
			routes.RegisterRoutes(r, h)
		})
	} else {
		routes.RegisterRoutes(router, h)
	}

	return router
}

func rateLimiter(client *redis.Client, cfg middleware.RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if client != nil {
		return middleware.RedisRateLimitByIP(client, cfg, logger)
	}
	return middleware.RateLimitByIP(cfg)
}
