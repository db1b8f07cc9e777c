package models

import (
	"time"
)

// Role governs access-control decisions
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleReviewer Role = "reviewer"
)

// Status governs whether a user may authenticate
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleReviewer:
		return true
	}
	return false
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

type User struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	PasswordHash  string
	Role          Role
	Status        Status
	EmailVerified bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive reports whether the account may log in or refresh tokens
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// UserUpdate carries the optional fields of a partial user update.
// Nil pointers leave the stored value untouched.
type UserUpdate struct {
	Email         *string
	FirstName     *string
	LastName      *string
	Role          *Role
	Status        *Status
	EmailVerified *bool
}

// HasPrivilegedFields reports whether the update touches admin-only columns
func (u UserUpdate) HasPrivilegedFields() bool {
	return u.Role != nil || u.Status != nil || u.EmailVerified != nil
}

// IsEmpty reports whether the update changes nothing
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.FirstName == nil && u.LastName == nil && !u.HasPrivilegedFields()
}
