package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access-token claims surfaced in views and logs
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type accessClaims struct {
	UserID any    `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

var peekParser = jwt.NewParser()

// PeekClaims decodes an access token WITHOUT verifying its signature or expiry.
// The result is only fit for display and log enrichment; it must never gate access.
func PeekClaims(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	var raw accessClaims
	if _, _, err := peekParser.ParseUnverified(tokenString, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims := &Claims{
		Email: raw.Email,
		Role:  raw.Role,
	}

	switch v := raw.UserID.(type) {
	case string:
		claims.UserID = v
	case float64:
		claims.UserID = fmt.Sprintf("%.0f", v)
	case nil:
		claims.UserID = raw.Subject
	}

	if raw.ExpiresAt != nil {
		claims.ExpiresAt = raw.ExpiresAt.Time
	}

	return claims, nil
}

// Expired reports whether the decoded expiry has passed. Tokens without expiry never expire.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
