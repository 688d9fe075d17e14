package service

import (
	"time"

	"github.com/aussiebroadwan/authsession/pkg/jwtx"
)

// DefaultCode is the one-time code every prepared verification expects.
const DefaultCode = "424242"

// Options configure a Backend. Zero values fall back to defaults.
type Options struct {
	// Issuer is the iss claim of minted session tokens
	Issuer string

	// TokenSecret signs session tokens (HS256), at least 32 bytes. A random
	// secret is generated when empty.
	TokenSecret []byte

	// TokenTTL is the lifetime of session tokens
	TokenTTL time.Duration

	// Code is the one-time code accepted by every code strategy
	Code string

	// RandomCodes issues a fresh random code per verification instead of
	// Code. Issued codes are logged.
	RandomCodes bool

	// CodeTTL bounds how long a prepared code stays valid
	CodeTTL time.Duration

	// AttemptTTL is how long an idle sign-in or sign-up lives
	AttemptTTL time.Duration

	// SessionTTL is how long a session lives
	SessionTTL time.Duration

	// Pepper is mixed into password hashes
	Pepper string

	// PublicURL is the externally reachable base URL, used to build the
	// emulated OAuth consent links
	PublicURL string

	// RequireAssertion makes every device prove itself through
	// POST /v1/client/verify before it is served
	RequireAssertion bool

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Issuer == "" {
		o.Issuer = "authsession-devbackend"
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = jwtx.DefaultSessionTokenTTL
	}
	if o.Code == "" {
		o.Code = DefaultCode
	}
	if o.CodeTTL <= 0 {
		o.CodeTTL = 10 * time.Minute
	}
	if o.AttemptTTL <= 0 {
		o.AttemptTTL = 30 * time.Minute
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 7 * 24 * time.Hour
	}
	if o.PublicURL == "" {
		o.PublicURL = "http://localhost:8080"
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
