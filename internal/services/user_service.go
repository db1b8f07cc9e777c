package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/relativitydevhub/authservice/internal/models"
	pkgauth "github.com/relativitydevhub/authservice/pkg/auth"
	pkglogger "github.com/relativitydevhub/authservice/pkg/logger"
)

// MaxPageSize bounds an explicit limit on ListUsers
const MaxPageSize = 100

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	SetEmailVerified(ctx context.Context, id string, verified bool) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) (time.Time, error)
}

// Actor is the authenticated caller of a user-management operation
type Actor struct {
	UserID string
	Role   models.Role
}

// ActorFromClaims builds an Actor from verified token claims
func ActorFromClaims(claims *models.TokenClaims) Actor {
	return Actor{UserID: claims.UserID(), Role: claims.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanAccess reports whether the actor may read or modify the user with id
func (a Actor) CanAccess(id string) bool {
	return a.IsAdmin() || a.UserID == id
}

// CreateUserInput is an admin-initiated account creation
type CreateUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      models.Role
}

// UserService handles user business logic
type UserService struct {
	repo        UserRepository
	hasher      *pkgauth.Hasher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewUserService(repo UserRepository, hasher *pkgauth.Hasher, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		hasher:      hasher,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// GetUser returns the user with id if the actor may see it
func (s *UserService) GetUser(ctx context.Context, actor Actor, id string) (*models.User, error) {
	if !actor.CanAccess(id) {
		return nil, models.ErrForbidden
	}
	return s.getByID(ctx, id)
}

// Profile returns the caller's own record
func (s *UserService) Profile(ctx context.Context, actor Actor) (*models.User, error) {
	return s.getByID(ctx, actor.UserID)
}

// ListUsers returns users newest first and the total row count. A limit of
// zero returns every user; a larger one is clamped to MaxPageSize.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	if limit < 0 {
		limit = 0
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count users", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}

	return users, total, nil
}

// CreateUser creates an account on behalf of an admin
func (s *UserService) CreateUser(ctx context.Context, actor Actor, in CreateUserInput) (*models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", models.ErrValidation, in.Role)
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
		return nil, models.ErrConflict
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Role:         in.Role,
		Status:       models.StatusActive,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventUserCreated,
		UserID:    created.ID,
		ActorID:   actor.UserID,
		Metadata:  map[string]string{"role": string(created.Role)},
	})

	return created, nil
}

// UpdateUser applies a partial update. Non-admins may only change their own
// name and email.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, id string, upd models.UserUpdate) (*models.User, error) {
	if !actor.CanAccess(id) {
		return nil, models.ErrForbidden
	}
	if upd.HasPrivilegedFields() && !actor.IsAdmin() {
		return nil, models.ErrForbidden
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", models.ErrValidation, *upd.Role)
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", models.ErrValidation, *upd.Status)
	}

	updated, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, s.mapWriteError(err, id, "failed to update user")
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventUserUpdated,
		UserID:    id,
		ActorID:   actor.UserID,
	})

	return updated, nil
}

// UpdateStatus sets the account status
func (s *UserService) UpdateStatus(ctx context.Context, actor Actor, id string, status models.Status) (*models.User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", models.ErrValidation, status)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, s.mapWriteError(err, id, "failed to update user status")
	}

	eventType := pkglogger.EventStatusChanged
	if status == models.StatusInactive {
		eventType = pkglogger.EventUserDeactivated
	}
	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: eventType,
		UserID:    id,
		ActorID:   actor.UserID,
		Metadata:  map[string]string{"new_status": string(status)},
	})

	return updated, nil
}

// UpdateRole sets the account role
func (s *UserService) UpdateRole(ctx context.Context, actor Actor, id string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: invalid role %q", models.ErrValidation, role)
	}

	updated, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, s.mapWriteError(err, id, "failed to update user role")
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRoleChanged,
		UserID:    id,
		ActorID:   actor.UserID,
		Metadata:  map[string]string{"new_role": string(role)},
	})

	return updated, nil
}

// VerifyEmail marks the address of id as verified
func (s *UserService) VerifyEmail(ctx context.Context, actor Actor, id string) (*models.User, error) {
	if !actor.CanAccess(id) {
		return nil, models.ErrForbidden
	}

	updated, err := s.repo.SetEmailVerified(ctx, id, true)
	if err != nil {
		return nil, s.mapWriteError(err, id, "failed to verify email")
	}

	s.auditLogger.LogAccountAction(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventEmailVerified,
		UserID:    id,
		ActorID:   actor.UserID,
	})

	return updated, nil
}

func (s *UserService) Suspend(ctx context.Context, actor Actor, id string) (*models.User, error) {
	return s.UpdateStatus(ctx, actor, id, models.StatusSuspended)
}

func (s *UserService) Activate(ctx context.Context, actor Actor, id string) (*models.User, error) {
	return s.UpdateStatus(ctx, actor, id, models.StatusActive)
}

// Deactivate soft-deletes id by moving it to inactive. Rows are never removed.
func (s *UserService) Deactivate(ctx context.Context, actor Actor, id string) error {
	_, err := s.UpdateStatus(ctx, actor, id, models.StatusInactive)
	return err
}

func (s *UserService) getByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func (s *UserService) mapWriteError(err error, id, msg string) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return models.ErrNotFound
	case errors.Is(err, models.ErrConflict):
		return models.ErrConflict
	case errors.Is(err, models.ErrBadRequest):
		return fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	s.logger.Error(msg, slog.String("user_id", id), slog.Any("error", err))
	return models.ErrInternalServer
}
