package authsdk

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/pipeline"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

// ============================================================================
// Wire helpers
// ============================================================================

// Timestamp is a point in time sent as Unix milliseconds.
type Timestamp struct {
	time.Time
}

// At wraps t for the wire.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }

// MarshalJSON encodes the zero time as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, t.UnixMilli(), 10), nil
}

// UnmarshalJSON accepts Unix milliseconds or null.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	ms, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = time.UnixMilli(ms)
	return nil
}

// envelope is the body of every successful resource response. Client is the
// piggy-backed snapshot, absent on endpoints that do not touch it.
type envelope[T any] struct {
	Response T       `json:"response"`
	Client   *Client `json:"client,omitempty"`
}

// ============================================================================
// Client
// ============================================================================

// Client is the device level authentication container. The SDK never
// mutates a Client; every snapshot from the backend replaces the previous
// one wholesale.
type Client struct {
	Object string `json:"object"`
	ID     string `json:"id"`

	// SignIn is the in-progress sign-in attempt, if any
	SignIn *SignIn `json:"sign_in"`

	// SignUp is the in-progress sign-up attempt, if any
	SignUp *SignUp `json:"sign_up"`

	// Sessions lists every session on this device, active or not
	Sessions []Session `json:"sessions"`

	LastActiveSessionID string `json:"last_active_session_id,omitempty"`

	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// ActiveSessions returns the sessions whose status is active.
func (c *Client) ActiveSessions() []Session {
	if c == nil {
		return nil
	}
	var out []Session
	for _, s := range c.Sessions {
		if s.Status == SessionActive {
			out = append(out, s)
		}
	}
	return out
}

// LastActiveSession resolves LastActiveSessionID.
func (c *Client) LastActiveSession() (*Session, bool) {
	if c == nil || c.LastActiveSessionID == "" {
		return nil, false
	}
	return c.Session(c.LastActiveSessionID)
}

// Session looks up a session by id.
func (c *Client) Session(id string) (*Session, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Sessions {
		if c.Sessions[i].ID == id {
			s := c.Sessions[i]
			return &s, true
		}
	}
	return nil, false
}

// Validate checks that the last active session is part of the snapshot.
func (c *Client) Validate() error {
	if c.LastActiveSessionID == "" {
		return nil
	}
	if _, ok := c.Session(c.LastActiveSessionID); !ok {
		return &ClientError{Op: "client", Message: fmt.Sprintf("last active session %q is not in the session list", c.LastActiveSessionID)}
	}
	return nil
}

// ============================================================================
// Session
// ============================================================================

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionEnded     SessionStatus = "ended"
	SessionExpired   SessionStatus = "expired"
	SessionRemoved   SessionStatus = "removed"
	SessionReplaced  SessionStatus = "replaced"
	SessionRevoked   SessionStatus = "revoked"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is one authenticated device and user pairing. Its status is owned
// by the backend.
type Session struct {
	Object string        `json:"object"`
	ID     string        `json:"id"`
	Status SessionStatus `json:"status"`

	ExpireAt     Timestamp `json:"expire_at"`
	AbandonAt    Timestamp `json:"abandon_at"`
	LastActiveAt Timestamp `json:"last_active_at"`

	// LastActiveToken is the most recent session token the backend minted
	LastActiveToken *TokenResource `json:"last_active_token,omitempty"`

	User *User `json:"user,omitempty"`
}

// User is the account a session belongs to.
type User struct {
	ID                  string    `json:"id"`
	Username            string    `json:"username,omitempty"`
	FirstName           string    `json:"first_name,omitempty"`
	LastName            string    `json:"last_name,omitempty"`
	PrimaryEmailAddress string    `json:"primary_email_address,omitempty"`
	PrimaryPhoneNumber  string    `json:"primary_phone_number,omitempty"`
	PasswordEnabled     bool      `json:"password_enabled"`
	TwoFactorEnabled    bool      `json:"two_factor_enabled"`
	TOTPEnabled         bool      `json:"totp_enabled"`
	BackupCodeEnabled   bool      `json:"backup_code_enabled"`
	CreatedAt           Timestamp `json:"created_at"`
}

// TokenResource carries a signed session token.
type TokenResource struct {
	Object string `json:"object"`
	JWT    string `json:"jwt"`
}

// ============================================================================
// Verification & Factor
// ============================================================================

type VerificationStatus string

const (
	VerificationUnverified   VerificationStatus = "unverified"
	VerificationVerified     VerificationStatus = "verified"
	VerificationTransferable VerificationStatus = "transferable"
	VerificationFailed       VerificationStatus = "failed"
	VerificationExpired      VerificationStatus = "expired"
)

// Verification tracks one attempted factor or sign-up field.
type Verification struct {
	Status   VerificationStatus `json:"status"`
	Strategy strategy.Name      `json:"strategy"`
	Attempts int                `json:"attempts"`
	ExpireAt Timestamp          `json:"expire_at"`

	// ExternalVerificationRedirectURL is set for redirect strategies
	ExternalVerificationRedirectURL string `json:"external_verification_redirect_url,omitempty"`

	// Nonce is the passkey challenge
	Nonce string `json:"nonce,omitempty"`

	Error *pipeline.ErrorDetail `json:"error,omitempty"`
}

// Factor is one concrete way to satisfy a verification step.
type Factor struct {
	Strategy strategy.Name `json:"strategy"`

	// SafeIdentifier is a display safe form of the identifier the factor
	// targets, e.g. "j***@example.com"
	SafeIdentifier string `json:"safe_identifier,omitempty"`

	EmailAddressID string `json:"email_address_id,omitempty"`
	PhoneNumberID  string `json:"phone_number_id,omitempty"`
	Web3WalletID   string `json:"web3_wallet_id,omitempty"`
	PasskeyID      string `json:"passkey_id,omitempty"`

	Primary bool `json:"primary,omitempty"`
	Default bool `json:"default,omitempty"`
}

// ============================================================================
// Lifecycle events
// ============================================================================

type EventType string

const (
	EventSignInCompleted EventType = "signInCompleted"
	EventSignUpCompleted EventType = "signUpCompleted"
	EventSignedOut       EventType = "signedOut"
)

// Event is published on the SDK's broadcast channel. Exactly one of SignIn,
// SignUp and Session is set, matching Type.
type Event struct {
	ID   string
	Type EventType
	At   time.Time

	SignIn  *SignIn
	SignUp  *SignUp
	Session *Session
}

// rawObject peeks at the object discriminator of a response.
type rawObject struct {
	Object string `json:"object"`
}

func objectOf(raw json.RawMessage) string {
	var o rawObject
	_ = json.Unmarshal(raw, &o)
	return o.Object
}
