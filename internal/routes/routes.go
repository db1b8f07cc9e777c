package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relativitydevhub/authservice/internal/auth"
	"github.com/relativitydevhub/authservice/internal/handlers"
	"github.com/relativitydevhub/authservice/internal/models"
)

// Middleware is a standard net/http middleware
type Middleware func(http.Handler) http.Handler

// Handlers groups everything RegisterRoutes mounts
type Handlers struct {
	Auth   *handlers.AuthHandler
	Users  *handlers.UserHandler
	Health *handlers.HealthHandler

	// Authenticate verifies the bearer token and loads claims
	Authenticate Middleware

	// AuthRateLimit guards credential endpoints on top of the global limit
	AuthRateLimit Middleware
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers) {
	router.Get("/health", h.Health.Liveness)
	router.Get("/health/ready", h.Health.Readiness)

	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		if h.AuthRateLimit != nil {
			r.Use(h.AuthRateLimit)
		}
		r.Post("/auth/register", h.Auth.Register)
		r.Post("/auth/login", h.Auth.Login)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Post("/auth/refresh", h.Auth.Refresh)
		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/verify", h.Auth.Verify)

		// Self or admin; ownership is enforced by the user service
		r.Get("/users/profile", h.Users.Profile)
		r.Get("/users/{id}", h.Users.GetUser)
		r.Patch("/users/{id}", h.Users.UpdateUser)
		r.Post("/users/{id}/verify-email", h.Users.VerifyEmail)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Get("/users", h.Users.ListUsers)
			r.Post("/users", h.Users.CreateUser)
			r.Delete("/users/{id}", h.Users.DeleteUser)
			r.Patch("/users/{id}/status", h.Users.UpdateStatus)
			r.Patch("/users/{id}/role", h.Users.UpdateRole)
			r.Post("/users/{id}/suspend", h.Users.Suspend)
			r.Post("/users/{id}/activate", h.Users.Activate)
		})
	})
}
