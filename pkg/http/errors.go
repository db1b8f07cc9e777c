package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/relativitydevhub/authservice/internal/models"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"` // HTTP status text, e.g. "Unauthorized"
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not exposed to the client
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	path := ""
	if r != nil && r.URL != nil {
		path = r.URL.Path
	}

	WriteJSON(w, statusCode, ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
		Error:      http.StatusText(statusCode),
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Path:       path,
	})
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusNotFound, message)
}

func WriteConflict(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusConflict, message)
}

func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusTooManyRequests, message)
}

func WriteServiceUnavailable(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusServiceUnavailable, message)
}

func WriteInternalError(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusInternalServerError, "Internal server error")
}

// StatusForError maps a service error onto an HTTP status code
func StatusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrPasswordMismatch),
		errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrNoToken),
		errors.Is(err, models.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err using StatusForError. Messages of 5xx errors
// are replaced with a generic one so internal detail never reaches clients.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		WriteInternalError(w, r)
		return
	}
	if message == "" {
		message = err.Error()
	}
	WriteError(w, r, status, message)
}
