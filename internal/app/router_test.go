package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/relativitydevhub/authservice/internal/auth"
	"github.com/relativitydevhub/authservice/internal/config"
	"github.com/relativitydevhub/authservice/internal/models"
	pkgauth "github.com/relativitydevhub/authservice/pkg/auth"
	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
)

const routerTestSecret = "router-test-secret-with-32-plus-bytes"

// memoryUsers is an in-memory services.UserRepository
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*models.User)}
}

func (m *memoryUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memoryUsers) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []*models.User{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memoryUsers) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memoryUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return nil, models.ErrConflict
		}
	}
	cp := *user
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memoryUsers) mutate(id string, fn func(u *models.User)) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	return m.mutate(id, func(u *models.User) {
		if upd.FirstName != nil {
			u.FirstName = *upd.FirstName
		}
		if upd.LastName != nil {
			u.LastName = *upd.LastName
		}
		if upd.Email != nil {
			u.Email = *upd.Email
		}
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		if upd.Status != nil {
			u.Status = *upd.Status
		}
		if upd.EmailVerified != nil {
			u.EmailVerified = *upd.EmailVerified
		}
	})
}

func (m *memoryUsers) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.User, error) {
	return m.mutate(id, func(u *models.User) { u.Status = status })
}

func (m *memoryUsers) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	return m.mutate(id, func(u *models.User) { u.Role = role })
}

func (m *memoryUsers) SetEmailVerified(ctx context.Context, id string, verified bool) (*models.User, error) {
	return m.mutate(id, func(u *models.User) { u.EmailVerified = verified })
}

func (m *memoryUsers) UpdateLastLogin(ctx context.Context, id string) (time.Time, error) {
	now := time.Now()
	_, err := m.mutate(id, func(u *models.User) { u.LastLoginAt = &now })
	return now, err
}

// memoryRevocations is an in-memory RevocationStore
type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memoryRevocations) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = expiresAt
	return nil
}

func (m *memoryRevocations) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

type testEnv struct {
	handler http.Handler
	users   *memoryUsers
	tokens  *auth.TokenManager
	hasher  *pkgauth.Hasher
}

func testConfig(prefix string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Env:            "test",
			APIPrefix:      prefix,
			ServiceName:    "auth-service",
			Version:        "1.0.0",
			RequestTimeout: 10 * time.Second,
		},
		Auth: config.AuthConfig{
			JWTSecret:       routerTestSecret,
			JWTExpiresIn:    time.Hour,
			JWTIssuer:       "auth-service",
			RevalidateUsers: true,
		},
		RateLimit: config.RateLimitConfig{
			Limit:     1000,
			Window:    time.Minute,
			AuthLimit: 1000,
		},
	}
}

func newTestEnv(t *testing.T, prefix string) *testEnv {
	t.Helper()

	tokens, err := auth.NewTokenManager(routerTestSecret, time.Hour, "auth-service")
	require.NoError(t, err)

	env := &testEnv{
		users:  newMemoryUsers(),
		tokens: tokens,
		hasher: pkgauth.NewHasher(bcrypt.MinCost),
	}
	env.handler = NewRouter(Deps{
		Config:      testConfig(prefix),
		Logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Users:       env.users,
		Revocations: &memoryRevocations{revoked: make(map[string]time.Time)},
		Tokens:      tokens,
		Hasher:      env.hasher,
		Timing:      auth.NoDelay(),
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// tokenFor seeds a user with role and returns a valid token for it
func (e *testEnv) tokenFor(t *testing.T, email string, role models.Role) (string, *models.User) {
	t.Helper()

	created, err := EnsureUser(context.Background(), e.users, e.hasher, Account{
		Email:     email,
		FirstName: "Test",
		LastName:  string(role),
		Password:  "Secret123!",
		Role:      role,
	})
	require.NoError(t, err)
	require.True(t, created)

	user, err := e.users.GetByEmail(context.Background(), email)
	require.NoError(t, err)

	issued, err := e.tokens.Issue(auth.SubjectFromUser(user))
	require.NoError(t, err)
	return issued.Token, user
}

func TestRouter_RegisterExample(t *testing.T) {
	env := newTestEnv(t, "")

	w := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":                "a@b.com",
		"firstName":            "A",
		"lastName":             "B",
		"password":             "Secret123!",
		"passwordConfirmation": "Secret123!",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Message string                 `json:"message"`
		Token   string                 `json:"token"`
		User    map[string]interface{} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Len(t, strings.Split(resp.Token, "."), 3)
	assert.NotContains(t, resp.User, "passwordHash")
	assert.NotContains(t, w.Body.String(), "$2a$")
	assert.Equal(t, "user", resp.User["role"])
	assert.Equal(t, "active", resp.User["status"])
	assert.Equal(t, false, resp.User["emailVerified"])

	claims, err := env.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User["id"], claims.UserID())
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)

	// same email again
	w = env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":                "a@b.com",
		"firstName":            "A",
		"lastName":             "B",
		"password":             "Secret123!",
		"passwordConfirmation": "Secret123!",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	count, _ := env.users.Count(context.Background())
	assert.Equal(t, 1, count)
}

func TestRouter_LoginThenProfile(t *testing.T) {
	env := newTestEnv(t, "")
	_, _ = env.tokenFor(t, "login@b.com", models.RoleUser)

	w := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "LOGIN@b.com", "password": "Secret123!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = env.do(t, http.MethodGet, "/users/profile", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"lastLoginAt":"`)

	w = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "login@b.com", "password": "Wrong123!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_UsersListRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, "")
	userToken, _ := env.tokenFor(t, "user@b.com", models.RoleUser)
	adminToken, _ := env.tokenFor(t, "admin@b.com", models.RoleAdmin)

	w := env.do(t, http.MethodGet, "/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Users []map[string]interface{} `json:"users"`
		Total int                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Users, 2)

	w = env.do(t, http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_UsersListReturnsEveryUser(t *testing.T) {
	env := newTestEnv(t, "")
	adminToken, _ := env.tokenFor(t, "admin@b.com", models.RoleAdmin)
	for i := 0; i < 24; i++ {
		_, err := EnsureUser(context.Background(), env.users, env.hasher, Account{
			Email:     fmt.Sprintf("user%02d@b.com", i),
			FirstName: "Test",
			LastName:  "User",
			Password:  "Secret123!",
			Role:      models.RoleUser,
		})
		require.NoError(t, err)
	}

	var list struct {
		Users []map[string]interface{} `json:"users"`
		Total int                      `json:"total"`
	}

	w := env.do(t, http.MethodGet, "/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 25, list.Total)
	assert.Len(t, list.Users, list.Total)

	w = env.do(t, http.MethodGet, "/users?limit=10&offset=20", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 25, list.Total)
	assert.Len(t, list.Users, 5)
}

func TestRouter_RegisterKeepsEmailCase(t *testing.T) {
	env := newTestEnv(t, "")
	register := func(email string) *httptest.ResponseRecorder {
		return env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"email":                email,
			"firstName":            "Alice",
			"lastName":             "Liddell",
			"password":             "Secret123!",
			"passwordConfirmation": "Secret123!",
		})
	}

	w := register("Alice@Example.com")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Alice@Example.com", resp.User.Email)

	w = register("Alice@Example.com")
	assert.Equal(t, http.StatusConflict, w.Code)

	// a different case is a different address unless the column collation says otherwise
	w = register("alice@example.com")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRouter_RoleChangeTakesEffectImmediately(t *testing.T) {
	env := newTestEnv(t, "")
	adminToken, _ := env.tokenFor(t, "admin@b.com", models.RoleAdmin)
	userToken, user := env.tokenFor(t, "user@b.com", models.RoleUser)

	w := env.do(t, http.MethodPatch, "/users/"+user.ID+"/role", adminToken, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the old token still carries role=user but the stored role is admin
	w = env.do(t, http.MethodGet, "/users", userToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/users/"+user.ID+"/suspend", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/users/profile", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_LogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t, "")
	token, _ := env.tokenFor(t, "user@b.com", models.RoleUser)

	w := env.do(t, http.MethodGet, "/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Logout successful")

	w = env.do(t, http.MethodGet, "/auth/verify", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_SelfOrAdmin(t *testing.T) {
	env := newTestEnv(t, "")
	aliceToken, alice := env.tokenFor(t, "alice@b.com", models.RoleUser)
	_, bob := env.tokenFor(t, "bob@b.com", models.RoleUser)

	w := env.do(t, http.MethodGet, "/users/"+alice.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/users/"+bob.ID, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, "/users/"+alice.ID, aliceToken, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/users/"+bob.ID, aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_SoftDelete(t *testing.T) {
	env := newTestEnv(t, "")
	adminToken, _ := env.tokenFor(t, "admin@b.com", models.RoleAdmin)
	_, user := env.tokenFor(t, "user@b.com", models.RoleUser)

	w := env.do(t, http.MethodDelete, "/users/"+user.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	stored, err := env.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, stored.Status)

	w = env.do(t, http.MethodDelete, "/users/"+uuid.NewString(), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_APIPrefixAndNotFound(t *testing.T) {
	env := newTestEnv(t, "/api/v1")

	w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Content-Type-Options"))

	w = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Endpoint not found", resp.Message)
	assert.Equal(t, "Not Found", resp.Error)
	assert.Equal(t, "/health", resp.Path)
}

func TestEnsureUser_Idempotent(t *testing.T) {
	users := newMemoryUsers()
	hasher := pkgauth.NewHasher(bcrypt.MinCost)
	acct := AdminAccount("Root@Example.com", "Secret123!")

	created, err := EnsureUser(context.Background(), users, hasher, acct)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureUser(context.Background(), users, hasher, acct)
	require.NoError(t, err)
	assert.False(t, created)

	admin, err := users.GetByEmail(context.Background(), "Root@Example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.EmailVerified)
	assert.True(t, hasher.Verify("Secret123!", admin.PasswordHash))

	_, err = EnsureUser(context.Background(), users, hasher, AdminAccount("weak@example.com", "short"))
	assert.Error(t, err, "weak password must be rejected")
}
