package handlers

import (
	"context"
	"net/http"

	"github.com/relativitydevhub/authservice/internal/auth"
	"github.com/relativitydevhub/authservice/internal/models"
	"github.com/relativitydevhub/authservice/internal/services"
	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Refresh(ctx context.Context, userID string) (*services.AuthResult, error)
	Logout(ctx context.Context, claims *models.TokenClaims) error
	Verify(ctx context.Context, userID string) (*models.User, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register handles self-service registration
//
// @Summary Register a new user
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, r, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, r, err.Error())
		return
	}

	result, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:                req.Email,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, AuthResponse{
		Message:   "User registered successfully",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      userModelToResponse(result.User),
	})
}

// Login handles user login
//
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, r, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, r, "Email and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AuthResponse{
		Message:   "Login successful",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      userModelToResponse(result.User),
	})
}

// Refresh re-issues a token for the authenticated caller
//
// @Summary Refresh access token
// @Security BearerAuth
// @Produce json
// @Success 200 {object} TokenResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, r, "Unauthorized")
		return
	}

	result, err := h.service.Refresh(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, TokenResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout revokes the presented token
//
// @Summary User logout
// @Security BearerAuth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, r, "Unauthorized")
		return
	}

	if err := h.service.Logout(r.Context(), claims); err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// Verify reports whether the presented token is valid and returns its subject
//
// @Summary Verify token
// @Security BearerAuth
// @Produce json
// @Success 200 {object} MessageUserResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/verify [get]
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, r, "Unauthorized")
		return
	}

	user, err := h.service.Verify(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageUserResponse{
		Message: "Token is valid",
		User:    userModelToResponse(user),
	})
}
