package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relativitydevhub/authservice/internal/handlers"
	"github.com/relativitydevhub/authservice/internal/models"
	"github.com/relativitydevhub/authservice/internal/services"
)

func TestProfile(t *testing.T) {
	mockSvc := &handlers.MockUserService{
		ProfileFunc: func(ctx context.Context, actor services.Actor) (*models.User, error) {
			u := testUser()
			u.ID = actor.UserID
			return u, nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	req := handlers.WithAuthContext(httptest.NewRequest(http.MethodGet, "/users/profile", nil), "u1", "a@b.com", models.RoleUser)
	w := httptest.NewRecorder()
	handler.Profile(w, req)

	var resp handlers.UserEnvelope
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.NotNil(t, resp.User)
	assert.Equal(t, "u1", resp.User.ID)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestListUsers(t *testing.T) {
	var gotLimit, gotOffset int
	mockSvc := &handlers.MockUserService{
		ListUsersFunc: func(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
			gotLimit, gotOffset = limit, offset
			return []*models.User{testUser(), testUser()}, 57, nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	req := handlers.WithAuthContext(httptest.NewRequest(http.MethodGet, "/users?limit=2&offset=4", nil), "admin", "admin@b.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.ListUsers(w, req)

	var resp handlers.ListUsersResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Len(t, resp.Users, 2)
	assert.Equal(t, 57, resp.Total)
	assert.Equal(t, 2, gotLimit)
	assert.Equal(t, 4, gotOffset)
}

func TestListUsers_NoQueryReturnsEveryUser(t *testing.T) {
	gotLimit := -1
	mockSvc := &handlers.MockUserService{
		ListUsersFunc: func(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
			gotLimit = limit
			return []*models.User{testUser()}, 1, nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	req := handlers.WithAuthContext(httptest.NewRequest(http.MethodGet, "/users", nil), "admin", "admin@b.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.ListUsers(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, gotLimit)
}

func TestListUsers_InvalidParams(t *testing.T) {
	handler := handlers.NewUserHandler(&handlers.MockUserService{})

	for _, query := range []string{"limit=abc", "limit=0", "limit=101", "offset=-1"} {
		t.Run(query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users?"+query, nil)
			w := httptest.NewRecorder()
			handler.ListUsers(w, req)

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest)
		})
	}
}

func TestCreateUser(t *testing.T) {
	var got services.CreateUserInput
	mockSvc := &handlers.MockUserService{
		CreateUserFunc: func(ctx context.Context, actor services.Actor, in services.CreateUserInput) (*models.User, error) {
			got = in
			u := testUser()
			u.Role = in.Role
			return u, nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	body := handlers.CreateUserRequest{
		Email:     "rev@b.com",
		FirstName: "Rev",
		LastName:  "Iewer",
		Password:  "Secret123!",
		Role:      "reviewer",
	}
	req := handlers.WithAuthContext(handlers.NewTestRequest(t, http.MethodPost, "/users", body), "admin", "admin@b.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.CreateUser(w, req)

	var resp handlers.UserEnvelope
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "reviewer", resp.User.Role)
	assert.Equal(t, models.RoleReviewer, got.Role)
}

func TestCreateUser_InvalidRole(t *testing.T) {
	handler := handlers.NewUserHandler(&handlers.MockUserService{})

	body := handlers.CreateUserRequest{
		Email:     "x@b.com",
		FirstName: "X",
		LastName:  "Y",
		Password:  "Secret123!",
		Role:      "superuser",
	}
	req := handlers.WithAuthContext(handlers.NewTestRequest(t, http.MethodPost, "/users", body), "admin", "admin@b.com", models.RoleAdmin)
	w := httptest.NewRecorder()
	handler.CreateUser(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusBadRequest)
	assert.Contains(t, resp.Message, "role")
}

func TestGetUser_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"forbidden", models.ErrForbidden, http.StatusForbidden},
		{"not found", models.ErrNotFound, http.StatusNotFound},
		{"internal", models.ErrInternalServer, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := &handlers.MockUserService{
				GetUserFunc: func(ctx context.Context, actor services.Actor, id string) (*models.User, error) {
					return nil, tt.err
				},
			}
			handler := handlers.NewUserHandler(mockSvc)

			req := httptest.NewRequest(http.MethodGet, "/users/other", nil)
			req = handlers.WithURLParam(handlers.WithAuthContext(req, "u1", "a@b.com", models.RoleUser), "id", "other")
			w := httptest.NewRecorder()
			handler.GetUser(w, req)

			handlers.AssertErrorResponse(t, w, tt.wantStatus)
		})
	}
}

func TestGetUser_PassesActorAndID(t *testing.T) {
	var gotActor services.Actor
	var gotID string
	mockSvc := &handlers.MockUserService{
		GetUserFunc: func(ctx context.Context, actor services.Actor, id string) (*models.User, error) {
			gotActor, gotID = actor, id
			return testUser(), nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/users/target", nil)
	req = handlers.WithURLParam(handlers.WithAuthContext(req, "admin", "admin@b.com", models.RoleAdmin), "id", "target")
	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "target", gotID)
	assert.Equal(t, services.Actor{UserID: "admin", Role: models.RoleAdmin}, gotActor)
}

func TestUpdateUser_PartialFields(t *testing.T) {
	var got models.UserUpdate
	mockSvc := &handlers.MockUserService{
		UpdateUserFunc: func(ctx context.Context, actor services.Actor, id string, upd models.UserUpdate) (*models.User, error) {
			got = upd
			return testUser(), nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	req := handlers.NewTestRequest(t, http.MethodPatch, "/users/u1", map[string]interface{}{
		"firstName": "Augusta",
		"status":    "suspended",
	})
	req = handlers.WithURLParam(handlers.WithAuthContext(req, "admin", "admin@b.com", models.RoleAdmin), "id", "u1")
	w := httptest.NewRecorder()
	handler.UpdateUser(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.FirstName)
	assert.Equal(t, "Augusta", *got.FirstName)
	require.NotNil(t, got.Status)
	assert.Equal(t, models.StatusSuspended, *got.Status)
	assert.Nil(t, got.LastName)
	assert.Nil(t, got.Role)
}

func TestUpdateUser_Conflict(t *testing.T) {
	mockSvc := &handlers.MockUserService{
		UpdateUserFunc: func(ctx context.Context, actor services.Actor, id string, upd models.UserUpdate) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	req := handlers.NewTestRequest(t, http.MethodPatch, "/users/u1", map[string]string{"email": "taken@b.com"})
	req = handlers.WithURLParam(handlers.WithAuthContext(req, "u1", "a@b.com", models.RoleUser), "id", "u1")
	w := httptest.NewRecorder()
	handler.UpdateUser(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusConflict)
}

func TestDeleteUser(t *testing.T) {
	mockSvc := &handlers.MockUserService{
		DeactivateFunc: func(ctx context.Context, actor services.Actor, id string) error {
			if id == "missing" {
				return models.ErrNotFound
			}
			return nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	req := handlers.WithURLParam(handlers.WithAuthContext(httptest.NewRequest(http.MethodDelete, "/users/u1", nil), "admin", "admin@b.com", models.RoleAdmin), "id", "u1")
	w := httptest.NewRecorder()
	handler.DeleteUser(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	req = handlers.WithURLParam(handlers.WithAuthContext(httptest.NewRequest(http.MethodDelete, "/users/missing", nil), "admin", "admin@b.com", models.RoleAdmin), "id", "missing")
	w = httptest.NewRecorder()
	handler.DeleteUser(w, req)
	resp := handlers.AssertErrorResponse(t, w, http.StatusNotFound)
	assert.Equal(t, "User not found", resp.Message)
}

func TestUpdateStatus(t *testing.T) {
	mockSvc := &handlers.MockUserService{
		UpdateStatusFunc: func(ctx context.Context, actor services.Actor, id string, status models.Status) (*models.User, error) {
			u := testUser()
			u.Status = status
			return u, nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	t.Run("valid", func(t *testing.T) {
		req := handlers.NewTestRequest(t, http.MethodPatch, "/users/u1/status", handlers.UpdateStatusRequest{Status: "suspended"})
		req = handlers.WithURLParam(handlers.WithAuthContext(req, "admin", "admin@b.com", models.RoleAdmin), "id", "u1")
		w := httptest.NewRecorder()
		handler.UpdateStatus(w, req)

		var resp handlers.MessageUserResponse
		handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "User status updated successfully", resp.Message)
		assert.Equal(t, "suspended", resp.User.Status)
	})

	t.Run("invalid enum", func(t *testing.T) {
		req := handlers.NewTestRequest(t, http.MethodPatch, "/users/u1/status", handlers.UpdateStatusRequest{Status: "banned"})
		req = handlers.WithURLParam(handlers.WithAuthContext(req, "admin", "admin@b.com", models.RoleAdmin), "id", "u1")
		w := httptest.NewRecorder()
		handler.UpdateStatus(w, req)

		resp := handlers.AssertErrorResponse(t, w, http.StatusBadRequest)
		assert.Equal(t, "Valid status is required (active, inactive, suspended)", resp.Message)
	})
}

func TestUpdateRole(t *testing.T) {
	mockSvc := &handlers.MockUserService{
		UpdateRoleFunc: func(ctx context.Context, actor services.Actor, id string, role models.Role) (*models.User, error) {
			if id == "missing" {
				return nil, models.ErrNotFound
			}
			u := testUser()
			u.Role = role
			return u, nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	req := handlers.NewTestRequest(t, http.MethodPatch, "/users/u1/role", handlers.UpdateRoleRequest{Role: "admin"})
	req = handlers.WithURLParam(handlers.WithAuthContext(req, "admin", "admin@b.com", models.RoleAdmin), "id", "u1")
	w := httptest.NewRecorder()
	handler.UpdateRole(w, req)

	var resp handlers.MessageUserResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "User role updated successfully", resp.Message)
	assert.Equal(t, "admin", resp.User.Role)

	req = handlers.NewTestRequest(t, http.MethodPatch, "/users/missing/role", handlers.UpdateRoleRequest{Role: "user"})
	req = handlers.WithURLParam(handlers.WithAuthContext(req, "admin", "admin@b.com", models.RoleAdmin), "id", "missing")
	w = httptest.NewRecorder()
	handler.UpdateRole(w, req)
	handlers.AssertErrorResponse(t, w, http.StatusNotFound)

	req = handlers.NewTestRequest(t, http.MethodPatch, "/users/u1/role", handlers.UpdateRoleRequest{Role: "root"})
	req = handlers.WithURLParam(handlers.WithAuthContext(req, "admin", "admin@b.com", models.RoleAdmin), "id", "u1")
	w = httptest.NewRecorder()
	handler.UpdateRole(w, req)
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest)
}

func TestUserActions(t *testing.T) {
	mockSvc := &handlers.MockUserService{
		SuspendFunc: func(ctx context.Context, actor services.Actor, id string) (*models.User, error) {
			u := testUser()
			u.Status = models.StatusSuspended
			return u, nil
		},
		ActivateFunc: func(ctx context.Context, actor services.Actor, id string) (*models.User, error) {
			u := testUser()
			u.Status = models.StatusActive
			return u, nil
		},
		VerifyEmailFunc: func(ctx context.Context, actor services.Actor, id string) (*models.User, error) {
			if actor.UserID != id {
				return nil, models.ErrForbidden
			}
			u := testUser()
			u.EmailVerified = true
			return u, nil
		},
	}
	handler := handlers.NewUserHandler(mockSvc)

	newReq := func(path, callerID, targetID string, role models.Role) *http.Request {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		return handlers.WithURLParam(handlers.WithAuthContext(req, callerID, "c@b.com", role), "id", targetID)
	}

	w := httptest.NewRecorder()
	handler.Suspend(w, newReq("/users/u1/suspend", "admin", "u1", models.RoleAdmin))
	var resp handlers.UserEnvelope
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "suspended", resp.User.Status)

	w = httptest.NewRecorder()
	handler.Activate(w, newReq("/users/u1/activate", "admin", "u1", models.RoleAdmin))
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "active", resp.User.Status)

	w = httptest.NewRecorder()
	handler.VerifyEmail(w, newReq("/users/u1/verify-email", "u1", "u1", models.RoleUser))
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.True(t, resp.User.EmailVerified)

	w = httptest.NewRecorder()
	handler.VerifyEmail(w, newReq("/users/u2/verify-email", "u1", "u2", models.RoleUser))
	handlers.AssertErrorResponse(t, w, http.StatusForbidden)
}

func TestUserHandler_RequiresClaims(t *testing.T) {
	handler := handlers.NewUserHandler(&handlers.MockUserService{})

	w := httptest.NewRecorder()
	handler.Profile(w, httptest.NewRequest(http.MethodGet, "/users/profile", nil))

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized)
}
