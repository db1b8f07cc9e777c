package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of an access token. The subject id travels in
// the registered "sub" claim.
type TokenClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the token subject
func (c *TokenClaims) UserID() string {
	return c.Subject
}

// ExpiresAtTime returns the expiry, or the zero time when absent
func (c *TokenClaims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
