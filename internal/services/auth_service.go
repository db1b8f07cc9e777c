package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/relativitydevhub/authservice/internal/auth"
	"github.com/relativitydevhub/authservice/internal/models"
	pkgauth "github.com/relativitydevhub/authservice/pkg/auth"
	pkglogger "github.com/relativitydevhub/authservice/pkg/logger"
)

// TokenRevoker records revoked token ids until their expiry
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error
}

// RegisterInput is a self-service sign-up request
type RegisterInput struct {
	Email                string
	FirstName            string
	LastName             string
	Password             string
	PasswordConfirmation string
}

// AuthResult is returned by operations that issue a token
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthService handles authentication business logic
type AuthService struct {
	repo        UserRepository
	tm          *auth.TokenManager
	hasher      *pkgauth.Hasher
	revoker     TokenRevoker
	notifier    Notifier
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	dummyHash   string
}

func NewAuthService(
	repo UserRepository,
	tm *auth.TokenManager,
	hasher *pkgauth.Hasher,
	revoker TokenRevoker,
	notifier Notifier,
	timing *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	// compared against when the email is unknown so both paths pay for bcrypt
	dummyHash, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		logger.Error("failed to prepare dummy hash", slog.Any("error", err))
	}
	if timing == nil {
		timing = auth.NoDelay()
	}

	return &AuthService{
		repo:        repo,
		tm:          tm,
		hasher:      hasher,
		revoker:     revoker,
		notifier:    notifier,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
		dummyHash:   dummyHash,
	}
}

// Login authenticates email and password and issues a token. Unknown
// emails, wrong passwords and inactive accounts all yield
// models.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	start := time.Now()
	email = strings.TrimSpace(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load user for login", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		s.hasher.Verify(password, s.dummyHash)
		return nil, s.loginFailed(ctx, start, email, "", "invalid_credentials")
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, start, email, user.ID, "invalid_credentials")
	}

	if !user.IsActive() {
		return nil, s.loginFailed(ctx, start, email, user.ID, "account_"+string(user.Status))
	}

	lastLogin, err := s.repo.UpdateLastLogin(ctx, user.ID)
	if err != nil {
		s.logger.Error("failed to update last login", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	user.LastLoginAt = &lastLogin

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		UserID:    user.ID,
		Success:   true,
	})
	s.timing.WaitFrom(start, true)

	return result, nil
}

func (s *AuthService) loginFailed(ctx context.Context, start time.Time, email, userID, reason string) error {
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventLoginFailed,
		UserID:        userID,
		Email:         email,
		Success:       false,
		FailureReason: reason,
	})
	s.timing.WaitFrom(start, false)
	return models.ErrInvalidCredentials
}

// Register creates an active user with role user and issues a token
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.Password != in.PasswordConfirmation {
		return nil, models.ErrPasswordMismatch
	}
	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.Email)

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if exists {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventUserRegistered,
			Email:         email,
			Success:       false,
			FailureReason: "email_exists",
		})
		return nil, models.ErrConflict
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Email:         email,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		PasswordHash:  hash,
		Role:          models.RoleUser,
		Status:        models.StatusActive,
		EmailVerified: false,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventUserRegistered,
		UserID:    user.ID,
		Success:   true,
	})

	if s.notifier != nil {
		if err := s.notifier.SendWelcome(ctx, user); err != nil {
			s.logger.Warn("welcome notification failed", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	return result, nil
}

// Refresh issues a new token for userID after re-reading the account
func (s *AuthService) Refresh(ctx context.Context, userID string) (*AuthResult, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to load user for refresh", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive() {
		return nil, models.ErrUnauthorized
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventTokenRefreshed,
		UserID:    user.ID,
		Success:   true,
	})

	return result, nil
}

// Logout revokes the presented token until it would have expired
func (s *AuthService) Logout(ctx context.Context, claims *models.TokenClaims) error {
	if claims == nil {
		return models.ErrUnauthorized
	}
	if claims.ID == "" || s.revoker == nil {
		return nil
	}

	if err := s.revoker.RevokeToken(ctx, claims.ID, claims.UserID(), claims.ExpiresAtTime(), "logout"); err != nil {
		s.logger.Error("failed to revoke token", slog.String("user_id", claims.UserID()), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		UserID:    claims.UserID(),
		Success:   true,
	})

	return nil
}

// Verify returns the current record of the token subject
func (s *AuthService) Verify(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to load user for verify", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	issued, err := s.tm.Issue(auth.SubjectFromUser(user))
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResult{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		User:      user,
	}, nil
}
