package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Input validation
	ErrValidation       = errors.New("validation failed")
	ErrPasswordMismatch = errors.New("passwords do not match")

	// Authentication
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoToken            = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid token")
)
