package services

import (
	"context"
	"sync"
	"time"

	"github.com/relativitydevhub/authservice/internal/models"
)

// MockUserRepository implements UserRepository for testing. Unset funcs
// fall back to ErrNotFound or an empty result.
type MockUserRepository struct {
	GetByIDFunc          func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc       func(ctx context.Context, email string) (*models.User, error)
	ExistsByEmailFunc    func(ctx context.Context, email string) (bool, error)
	ListFunc             func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CountFunc            func(ctx context.Context) (int, error)
	CreateFunc           func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc           func(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	UpdateStatusFunc     func(ctx context.Context, id string, status models.Status) (*models.User, error)
	UpdateRoleFunc       func(ctx context.Context, id string, role models.Role) (*models.User, error)
	SetEmailVerifiedFunc func(ctx context.Context, id string, verified bool) (*models.User, error)
	UpdateLastLoginFunc  func(ctx context.Context, id string) (time.Time, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.ExistsByEmailFunc != nil {
		return m.ExistsByEmailFunc(ctx, email)
	}
	return false, nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, upd)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.User, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if m.UpdateRoleFunc != nil {
		return m.UpdateRoleFunc(ctx, id, role)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) SetEmailVerified(ctx context.Context, id string, verified bool) (*models.User, error) {
	if m.SetEmailVerifiedFunc != nil {
		return m.SetEmailVerifiedFunc(ctx, id, verified)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string) (time.Time, error) {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id)
	}
	return time.Now(), nil
}

// MockTokenRevoker implements TokenRevoker for testing
type MockTokenRevoker struct {
	RevokeTokenFunc func(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error
}

func (m *MockTokenRevoker) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, userID, expiresAt, reason)
	}
	return nil
}

// MockNotifier records welcome messages
type MockNotifier struct {
	mu   sync.Mutex
	Sent []*models.User
	Err  error
}

func (m *MockNotifier) SendWelcome(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, user)
	return m.Err
}
