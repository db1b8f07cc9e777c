package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/relativitydevhub/authservice/internal/models"
)

// MinSecretLength is the smallest accepted HMAC key, in bytes
const MinSecretLength = 32

// ErrWeakSecret is returned when the signing secret is too short
var ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")

// Subject identifies who a token is issued to
type Subject struct {
	UserID string
	Email  string
	Role   models.Role
}

// SubjectFromUser builds the token subject of a stored user
func SubjectFromUser(u *models.User) Subject {
	return Subject{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// IssuedToken is a signed token and its registered claims
type IssuedToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// TokenManager issues and verifies HS256 access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenManager
type TokenOption func(*TokenManager)

// WithLeeway tolerates clock skew when checking exp and nbf
func WithLeeway(d time.Duration) TokenOption {
	return func(tm *TokenManager) {
		tm.leeway = d
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager creates a TokenManager. Secrets shorter than
// MinSecretLength are rejected with ErrWeakSecret.
func NewTokenManager(secret string, ttl time.Duration, issuer string, opts ...TokenOption) (*TokenManager, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	tm := &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Issue signs a token for subject with the default lifetime
func (tm *TokenManager) Issue(subject Subject) (*IssuedToken, error) {
	return tm.IssueWithTTL(subject, tm.ttl)
}

// IssueWithTTL signs a token for subject that expires after ttl
func (tm *TokenManager) IssueWithTTL(subject Subject, ttl time.Duration) (*IssuedToken, error) {
	if subject.UserID == "" {
		return nil, fmt.Errorf("cannot issue token without subject")
	}

	now := tm.now()
	expiresAt := now.Add(ttl)
	jti := uuid.New().String()

	claims := &models.TokenClaims{
		Email: subject.Email,
		Role:  subject.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			ID:        jti,
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		JTI:       jti,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks signature, algorithm, expiry and issuer of tokenString.
// Every failure wraps models.ErrInvalidToken.
func (tm *TokenManager) Verify(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(tm.leeway),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(tm.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, models.ErrInvalidToken
	}

	return claims, nil
}
