package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relativitydevhub/authservice/internal/auth"
	"github.com/relativitydevhub/authservice/internal/models"
	"github.com/relativitydevhub/authservice/internal/services"
	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
)

// UserService defines the interface for user business logic
type UserService interface {
	GetUser(ctx context.Context, actor services.Actor, id string) (*models.User, error)
	Profile(ctx context.Context, actor services.Actor) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	CreateUser(ctx context.Context, actor services.Actor, in services.CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, actor services.Actor, id string, upd models.UserUpdate) (*models.User, error)
	UpdateStatus(ctx context.Context, actor services.Actor, id string, status models.Status) (*models.User, error)
	UpdateRole(ctx context.Context, actor services.Actor, id string, role models.Role) (*models.User, error)
	VerifyEmail(ctx context.Context, actor services.Actor, id string) (*models.User, error)
	Suspend(ctx context.Context, actor services.Actor, id string) (*models.User, error)
	Activate(ctx context.Context, actor services.Actor, id string) (*models.User, error)
	Deactivate(ctx context.Context, actor services.Actor, id string) error
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// actorFromRequest returns the authenticated caller, writing 401 when absent
func actorFromRequest(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, r, "Unauthorized")
		return services.Actor{}, false
	}
	return services.ActorFromClaims(claims), true
}

// Profile returns the caller's own record
//
// @Summary Get current user profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} UserEnvelope
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /users/profile [get]
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	user, err := h.service.Profile(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, UserEnvelope{User: userModelToResponse(user)})
}

// ListUsers retrieves all users, newest first. limit and offset narrow the
// result to a page.
//
// @Summary List users
// @Security BearerAuth
// @Param limit query int false "Limit (default all, max 100)"
// @Param offset query int false "Offset (default 0)"
// @Produce json
// @Success 200 {object} ListUsersResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query().Get("limit"), 0, 1, services.MaxPageSize)
	if err != nil {
		pkghttp.WriteBadRequest(w, r, "Invalid limit parameter")
		return
	}

	offset, err := parseIntParam(r.URL.Query().Get("offset"), 0, 0, 1_000_000)
	if err != nil {
		pkghttp.WriteBadRequest(w, r, "Invalid offset parameter")
		return
	}

	users, total, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := ListUsersResponse{
		Users: make([]*UserResponse, len(users)),
		Total: total,
	}
	for i, user := range users {
		response.Users[i] = userModelToResponse(user)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// CreateUser creates a new user on behalf of an admin
//
// @Summary Create a user
// @Security BearerAuth
// @Accept json
// @Param request body CreateUserRequest true "Create user request"
// @Produce json
// @Success 201 {object} UserEnvelope
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /users [post]
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, r, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, r, err.Error())
		return
	}

	user, err := h.service.CreateUser(r.Context(), actor, services.CreateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Role:      models.Role(req.Role),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, UserEnvelope{User: userModelToResponse(user)})
}

// GetUser retrieves a user by ID. Non-admins may only read themselves.
//
// @Summary Get user by ID
// @Security BearerAuth
// @Param id path string true "User ID"
// @Produce json
// @Success 200 {object} UserEnvelope
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, UserEnvelope{User: userModelToResponse(user)})
}

// UpdateUser applies a partial update
//
// @Summary Update user
// @Security BearerAuth
// @Accept json
// @Param id path string true "User ID"
// @Param request body UpdateUserRequest true "Update user request"
// @Produce json
// @Success 200 {object} UserEnvelope
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /users/{id} [patch]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, r, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, r, err.Error())
		return
	}

	user, err := h.service.UpdateUser(r.Context(), actor, chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, UserEnvelope{User: userModelToResponse(user)})
}

// DeleteUser soft-deletes a user by marking it inactive
//
// @Summary Deactivate user
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus changes a user's account status
//
// @Summary Update user status
// @Security BearerAuth
// @Accept json
// @Param id path string true "User ID"
// @Param request body UpdateStatusRequest true "Status"
// @Produce json
// @Success 200 {object} MessageUserResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /users/{id}/status [patch]
func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil || ValidateRequest(req) != nil {
		pkghttp.WriteBadRequest(w, r, "Valid status is required (active, inactive, suspended)")
		return
	}

	user, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "id"), models.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageUserResponse{
		Message: "User status updated successfully",
		User:    userModelToResponse(user),
	})
}

// UpdateRole changes a user's role
//
// @Summary Update user role
// @Security BearerAuth
// @Accept json
// @Param id path string true "User ID"
// @Param request body UpdateRoleRequest true "Role"
// @Produce json
// @Success 200 {object} MessageUserResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /users/{id}/role [patch]
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil || ValidateRequest(req) != nil {
		pkghttp.WriteBadRequest(w, r, "Valid role is required (admin, user, reviewer)")
		return
	}

	user, err := h.service.UpdateRole(r.Context(), actor, chi.URLParam(r, "id"), models.Role(req.Role))
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageUserResponse{
		Message: "User role updated successfully",
		User:    userModelToResponse(user),
	})
}

// VerifyEmail marks a user's email as verified
//
// @Summary Verify user email
// @Security BearerAuth
// @Param id path string true "User ID"
// @Produce json
// @Success 200 {object} UserEnvelope
// @Router /users/{id}/verify-email [post]
func (h *UserHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.service.VerifyEmail)
}

// Suspend sets a user's status to suspended
//
// @Summary Suspend user
// @Security BearerAuth
// @Param id path string true "User ID"
// @Produce json
// @Success 200 {object} UserEnvelope
// @Router /users/{id}/suspend [post]
func (h *UserHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.service.Suspend)
}

// Activate sets a user's status to active
//
// @Summary Activate user
// @Security BearerAuth
// @Param id path string true "User ID"
// @Produce json
// @Success 200 {object} UserEnvelope
// @Router /users/{id}/activate [post]
func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.service.Activate)
}

type userActionFunc func(ctx context.Context, actor services.Actor, id string) (*models.User, error)

func (h *UserHandler) userAction(w http.ResponseWriter, r *http.Request, action userActionFunc) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	user, err := action(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, UserEnvelope{User: userModelToResponse(user)})
}

// parseIntParam parses an optional integer query parameter within [min, max]
func parseIntParam(value string, def, min, max int) (int, error) {
	if value == "" {
		return def, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, errors.New("parameter out of range")
	}
	return n, nil
}
