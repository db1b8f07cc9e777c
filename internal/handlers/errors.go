package handlers

import (
	"errors"
	"net/http"

	"github.com/relativitydevhub/authservice/internal/models"
	pkgauth "github.com/relativitydevhub/authservice/pkg/auth"
	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
)

// Client-facing messages
const (
	msgEmailExists       = "User with this email already exists"
	msgUserNotFound      = "User not found"
	msgForbidden         = "You cannot access this resource"
	msgInvalidCreds      = "Invalid email or password"
	msgPasswordsMismatch = "Passwords do not match"
)

// writeError maps a service error onto the common error body. Password
// policy failures carry their own message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pwErr *pkgauth.PasswordValidationError
	switch {
	case errors.As(err, &pwErr):
		pkghttp.WriteBadRequest(w, r, pwErr.Error())
	case errors.Is(err, models.ErrPasswordMismatch):
		pkghttp.WriteBadRequest(w, r, msgPasswordsMismatch)
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, r, msgInvalidCreds)
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, r, msgEmailExists)
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, r, msgUserNotFound)
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, r, msgForbidden)
	default:
		pkghttp.WriteServiceError(w, r, err, "")
	}
}
