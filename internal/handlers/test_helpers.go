package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/relativitydevhub/authservice/internal/auth"
	"github.com/relativitydevhub/authservice/internal/models"
	"github.com/relativitydevhub/authservice/internal/services"
	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds claims for the given subject to the request context
func WithAuthContext(req *http.Request, userID, email string, role models.Role) *http.Request {
	claims := &models.TokenClaims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
			ID:      "jti-" + userID,
		},
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// WithURLParam sets a chi route parameter on the request
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedStatus, resp.StatusCode)
	assert.Equal(t, http.StatusText(expectedStatus), resp.Error, "Error text mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	assert.NotEmpty(t, resp.Timestamp)
	return resp
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc func(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	LoginFunc    func(ctx context.Context, email, password string) (*services.AuthResult, error)
	RefreshFunc  func(ctx context.Context, userID string) (*services.AuthResult, error)
	LogoutFunc   func(ctx context.Context, claims *models.TokenClaims) error
	VerifyFunc   func(ctx context.Context, userID string) (*models.User, error)
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, in)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, email, password)
}

func (m *MockAuthService) Refresh(ctx context.Context, userID string) (*services.AuthResult, error) {
	if m.RefreshFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.RefreshFunc(ctx, userID)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *models.TokenClaims) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, claims)
}

func (m *MockAuthService) Verify(ctx context.Context, userID string) (*models.User, error) {
	if m.VerifyFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.VerifyFunc(ctx, userID)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	GetUserFunc      func(ctx context.Context, actor services.Actor, id string) (*models.User, error)
	ProfileFunc      func(ctx context.Context, actor services.Actor) (*models.User, error)
	ListUsersFunc    func(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	CreateUserFunc   func(ctx context.Context, actor services.Actor, in services.CreateUserInput) (*models.User, error)
	UpdateUserFunc   func(ctx context.Context, actor services.Actor, id string, upd models.UserUpdate) (*models.User, error)
	UpdateStatusFunc func(ctx context.Context, actor services.Actor, id string, status models.Status) (*models.User, error)
	UpdateRoleFunc   func(ctx context.Context, actor services.Actor, id string, role models.Role) (*models.User, error)
	VerifyEmailFunc  func(ctx context.Context, actor services.Actor, id string) (*models.User, error)
	SuspendFunc      func(ctx context.Context, actor services.Actor, id string) (*models.User, error)
	ActivateFunc     func(ctx context.Context, actor services.Actor, id string) (*models.User, error)
	DeactivateFunc   func(ctx context.Context, actor services.Actor, id string) error
}

func (m *MockUserService) GetUser(ctx context.Context, actor services.Actor, id string) (*models.User, error) {
	if m.GetUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserFunc(ctx, actor, id)
}

func (m *MockUserService) Profile(ctx context.Context, actor services.Actor) (*models.User, error) {
	if m.ProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ProfileFunc(ctx, actor)
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, 0, nil
	}
	return m.ListUsersFunc(ctx, limit, offset)
}

func (m *MockUserService) CreateUser(ctx context.Context, actor services.Actor, in services.CreateUserInput) (*models.User, error) {
	if m.CreateUserFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateUserFunc(ctx, actor, in)
}

func (m *MockUserService) UpdateUser(ctx context.Context, actor services.Actor, id string, upd models.UserUpdate) (*models.User, error) {
	if m.UpdateUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserFunc(ctx, actor, id, upd)
}

func (m *MockUserService) UpdateStatus(ctx context.Context, actor services.Actor, id string, status models.Status) (*models.User, error) {
	if m.UpdateStatusFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateStatusFunc(ctx, actor, id, status)
}

func (m *MockUserService) UpdateRole(ctx context.Context, actor services.Actor, id string, role models.Role) (*models.User, error) {
	if m.UpdateRoleFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateRoleFunc(ctx, actor, id, role)
}

func (m *MockUserService) VerifyEmail(ctx context.Context, actor services.Actor, id string) (*models.User, error) {
	if m.VerifyEmailFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.VerifyEmailFunc(ctx, actor, id)
}

func (m *MockUserService) Suspend(ctx context.Context, actor services.Actor, id string) (*models.User, error) {
	if m.SuspendFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SuspendFunc(ctx, actor, id)
}

func (m *MockUserService) Activate(ctx context.Context, actor services.Actor, id string) (*models.User, error) {
	if m.ActivateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ActivateFunc(ctx, actor, id)
}

func (m *MockUserService) Deactivate(ctx context.Context, actor services.Actor, id string) error {
	if m.DeactivateFunc == nil {
		return models.ErrNotFound
	}
	return m.DeactivateFunc(ctx, actor, id)
}
