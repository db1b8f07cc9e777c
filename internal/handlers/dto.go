package handlers

import (
	"time"

	"github.com/relativitydevhub/authservice/internal/models"
)

// Request DTOs

// RegisterRequest represents the request body for self-service registration
type RegisterRequest struct {
	Email                string `json:"email" validate:"required,email,max=255"`
	FirstName            string `json:"firstName" validate:"required,min=1,max=100"`
	LastName             string `json:"lastName" validate:"required,min=1,max=100"`
	Password             string `json:"password" validate:"required,min=8,max=72"`
	PasswordConfirmation string `json:"passwordConfirmation" validate:"required"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Role      string `json:"role" validate:"omitempty,oneof=admin user reviewer"`
}

// UpdateUserRequest represents a partial update. Absent fields are left as is.
type UpdateUserRequest struct {
	Email         *string `json:"email" validate:"omitempty,email,max=255"`
	FirstName     *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName      *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Role          *string `json:"role" validate:"omitempty,oneof=admin user reviewer"`
	Status        *string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
	EmailVerified *bool   `json:"emailVerified"`
}

func (req UpdateUserRequest) toModel() models.UserUpdate {
	upd := models.UserUpdate{
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		EmailVerified: req.EmailVerified,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		upd.Role = &role
	}
	if req.Status != nil {
		status := models.Status(*req.Status)
		upd.Status = &status
	}
	return upd
}

// UpdateStatusRequest represents the request body for changing account status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive suspended"`
}

// UpdateRoleRequest represents the request body for changing a user's role
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user reviewer"`
}

// Response DTOs

// UserResponse is the public representation of a user. It never carries the
// password hash.
type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Message   string        `json:"message"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *UserResponse `json:"user"`
}

// TokenResponse is returned by refresh
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// MessageUserResponse pairs a confirmation message with the affected user
type MessageUserResponse struct {
	Message string        `json:"message"`
	User    *UserResponse `json:"user"`
}

type UserEnvelope struct {
	User *UserResponse `json:"user"`
}

// ListUsersResponse represents a page of users. Total is the full row count.
type ListUsersResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

// userModelToResponse converts a user model to a response DTO
func userModelToResponse(user *models.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Role:          string(user.Role),
		Status:        string(user.Status),
		EmailVerified: user.EmailVerified,
		LastLoginAt:   user.LastLoginAt,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}
