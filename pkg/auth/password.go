package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLen    = 8
	MaxPasswordLen    = 72 // bcrypt ignores everything past 72 bytes
)

// ErrEmptyPassword is returned when hashing an empty string
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordValidationError holds validation error details (internal use only)
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "password does not meet requirements: " + strings.Join(e.Errors, ", ")
}

// Common weak passwords to reject
var commonPasswords = map[string]bool{
	"password":     true,
	"12345678":     true,
	"qwerty":       true,
	"abc123":       true,
	"password123":  true,
	"password123!": true,
	"password1!":   true,
	"123456":       true,
	"admin":        true,
	"admin123!":    true,
	"letmein":      true,
	"welcome":      true,
	"welcome1!":    true,
	"monkey":       true,
	"dragon":       true,
	"master":       true,
	"123123":       true,
	"passw0rd":     true,
	"passw0rd!":    true,
	"shadow":       true,
	"sunshine":     true,
	"princess":     true,
	"football":     true,
	"trustno1":     true,
}

// Hasher hashes and verifies passwords with bcrypt at a fixed cost
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher. Costs outside bcrypt's accepted range fall
// back to DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Cost returns the bcrypt work factor in use
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt hash of password. It only fails on empty input or
// internal error; strength checks belong to ValidatePassword.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify reports whether password matches hashedPassword
func (h *Hasher) Verify(password, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// NeedsRehash reports whether hashedPassword was produced with a different cost
func (h *Hasher) NeedsRehash(hashedPassword string) bool {
	cost, err := bcrypt.Cost([]byte(hashedPassword))
	if err != nil {
		return true
	}
	return cost != h.cost
}

// ValidatePassword enforces strong password requirements
func ValidatePassword(password string) error {
	errs := make([]string, 0)

	if len(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		errs = append(errs, "must contain at least one uppercase letter")
	}
	if !hasLower {
		errs = append(errs, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		errs = append(errs, "must contain at least one digit")
	}
	if !hasSpecial {
		errs = append(errs, "must contain at least one special character")
	}

	if commonPasswords[strings.ToLower(password)] {
		errs = append(errs, "is too common")
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}

	return nil
}
