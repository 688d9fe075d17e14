package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTokenTTL is the lifetime of a session token. Session tokens
// are deliberately short-lived; clients keep them fresh by polling.
const DefaultSessionTokenTTL = 60 * time.Second

var (
	ErrMalformed     = errors.New("jwtx: malformed token")
	ErrInvalidSig    = errors.New("jwtx: invalid signature")
	ErrExpired       = errors.New("jwtx: token expired")
	ErrNotYetValid   = errors.New("jwtx: token not yet valid")
	ErrMissingExpiry = errors.New("jwtx: token has no exp claim")
)

// Claims are the session-token claims. Additive changes only, clients parse
// these without verifying the signature.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID the token was minted for
	SID string `json:"sid,omitempty"`

	// Template is the name of the token template used to shape the claims.
	// Empty for the default session token.
	Template string `json:"tpl,omitempty"`

	// Authentication Methods Reference, e.g. ["pwd","otp"]
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds minimally-correct session token claims.
func NewSessionClaims(subject, sid, template string, amr []string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:      sid,
		Template: template,
		AMR:      amr,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Expiry returns the exp claim, or ErrMissingExpiry when the token has none.
func (c *Claims) Expiry() (time.Time, error) {
	if c.ExpiresAt == nil {
		return time.Time{}, ErrMissingExpiry
	}
	return c.ExpiresAt.Time, nil
}

// ValidateExpiryWithLeeway checks exp and nbf with a small grace period for
// clock skew.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
