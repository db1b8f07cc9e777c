package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/relativitydevhub/authservice/internal/models"
	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
)

type contextKey string

const (
	// UserContextKey is the key for storing token claims in context
	UserContextKey contextKey = "user"
)

// TokenVerifier verifies bearer tokens
type TokenVerifier interface {
	Verify(token string) (*models.TokenClaims, error)
}

// TokenRevocationChecker reports whether a token id has been revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// UserLookup loads the current state of a token subject
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type authOptions struct {
	revocation TokenRevocationChecker
	failClosed bool
	users      UserLookup
	logger     *slog.Logger
}

// Option configures Authenticate
type Option func(*authOptions)

// WithRevocationChecker rejects tokens whose jti has been revoked. When
// failClosed is set, a failing check answers 503 instead of letting the
// request through.
func WithRevocationChecker(checker TokenRevocationChecker, failClosed bool) Option {
	return func(o *authOptions) {
		o.revocation = checker
		o.failClosed = failClosed
	}
}

// WithUserValidator re-reads the subject on every request. Missing or
// non-active users are rejected and the stored role replaces the token role.
func WithUserValidator(users UserLookup) Option {
	return func(o *authOptions) {
		o.users = users
	}
}

// WithLogger sets the logger used for lookup failures
func WithLogger(logger *slog.Logger) Option {
	return func(o *authOptions) {
		o.logger = logger
	}
}

// Authenticate validates the bearer token and stores its claims in the
// request context
func Authenticate(verifier TokenVerifier, opts ...Option) func(next http.Handler) http.Handler {
	o := &authOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, r, "No token provided")
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, r, "Invalid token")
				return
			}

			if o.revocation != nil && claims.ID != "" {
				revoked, err := o.revocation.IsTokenRevoked(r.Context(), claims.ID)
				if err != nil {
					o.logger.Error("token revocation check failed",
						slog.String("jti", claims.ID),
						slog.Any("error", err),
					)
					if o.failClosed {
						pkghttp.WriteServiceUnavailable(w, r, "Unable to verify token status")
						return
					}
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, r, "Invalid token")
					return
				}
			}

			if o.users != nil {
				user, err := o.users.GetByID(r.Context(), claims.UserID())
				if err != nil {
					if errors.Is(err, models.ErrNotFound) {
						pkghttp.WriteUnauthorized(w, r, "Invalid token")
						return
					}
					o.logger.Error("failed to load token subject",
						slog.String("user_id", claims.UserID()),
						slog.Any("error", err),
					)
					pkghttp.WriteInternalError(w, r)
					return
				}
				if !user.IsActive() {
					pkghttp.WriteUnauthorized(w, r, "Invalid token")
					return
				}

				fresh := *claims
				fresh.Role = user.Role
				fresh.Email = user.Email
				claims = &fresh
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole allows the request only if the caller's role is one of roles.
// It must run after Authenticate.
func RequireRole(roles ...models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				pkghttp.WriteUnauthorized(w, r, "Unauthorized")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			pkghttp.WriteForbidden(w, r, "Insufficient permissions")
		})
	}
}

// WithClaims returns a copy of ctx carrying claims
func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// ClaimsFromContext returns the authenticated claims, or nil
func ClaimsFromContext(ctx context.Context) *models.TokenClaims {
	claims, ok := ctx.Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	return ClaimsFromContext(r.Context())
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
