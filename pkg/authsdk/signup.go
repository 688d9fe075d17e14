package authsdk

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/authsession/pkg/pipeline"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

type SignUpStatus string

const (
	SignUpMissingRequirements SignUpStatus = "missing_requirements"
	SignUpComplete            SignUpStatus = "complete"
	SignUpAbandoned           SignUpStatus = "abandoned"
)

// Keys of SignUp.Verifications.
const (
	FieldEmailAddress    = "email_address"
	FieldPhoneNumber     = "phone_number"
	FieldExternalAccount = "external_account"
	FieldWeb3Wallet      = "web3_wallet"
)

// SignUp is an in-progress registration. Like SignIn, operations return a
// fresh object and leave the receiver untouched.
type SignUp struct {
	Object string       `json:"object"`
	ID     string       `json:"id"`
	Status SignUpStatus `json:"status"`

	EmailAddress   string            `json:"email_address,omitempty"`
	PhoneNumber    string            `json:"phone_number,omitempty"`
	Username       string            `json:"username,omitempty"`
	FirstName      string            `json:"first_name,omitempty"`
	LastName       string            `json:"last_name,omitempty"`
	UnsafeMetadata strategy.Metadata `json:"unsafe_metadata,omitempty"`

	RequiredFields   []string `json:"required_fields"`
	OptionalFields   []string `json:"optional_fields"`
	MissingFields    []string `json:"missing_fields"`
	UnverifiedFields []string `json:"unverified_fields"`

	// Verifications is keyed by field class, see the Field constants
	Verifications map[string]*Verification `json:"verifications"`

	CreatedSessionID string `json:"created_session_id,omitempty"`
	CreatedUserID    string `json:"created_user_id,omitempty"`

	AbandonAt Timestamp `json:"abandon_at"`

	client *SDKClient
}

// IsComplete reports whether every requirement is met and the user and
// session exist.
func (s *SignUp) IsComplete() bool {
	return len(s.MissingFields) == 0 &&
		len(s.UnverifiedFields) == 0 &&
		s.CreatedSessionID != "" &&
		s.CreatedUserID != ""
}

// Validate checks that the status agrees with IsComplete.
func (s *SignUp) Validate() error {
	if (s.Status == SignUpComplete) != s.IsComplete() {
		return clientErr("sign_up", "status %q inconsistent with missing=%v unverified=%v session=%q user=%q",
			s.Status, s.MissingFields, s.UnverifiedFields, s.CreatedSessionID, s.CreatedUserID)
	}
	return nil
}

// Verification returns the verification of a field class.
func (s *SignUp) Verification(field string) (*Verification, bool) {
	v, ok := s.Verifications[field]
	return v, ok && v != nil
}

// SignUpUpdate sets profile fields on an existing sign-up. Empty fields are
// left unchanged.
type SignUpUpdate struct {
	EmailAddress   string            `url:"email_address,omitempty"`
	PhoneNumber    string            `url:"phone_number,omitempty"`
	Username       string            `url:"username,omitempty"`
	Password       string            `url:"password,omitempty"`
	FirstName      string            `url:"first_name,omitempty"`
	LastName       string            `url:"last_name,omitempty"`
	UnsafeMetadata strategy.Metadata `url:"unsafe_metadata,omitempty"`
	LegalAccepted  bool              `url:"legal_accepted,int,omitempty"`
}

// SignUp starts a registration.
func (c *SDKClient) SignUp(ctx context.Context, create strategy.SignUpCreate) (*SignUp, error) {
	body := create.SignUpBody()
	if body.Strategy.IsRedirect() && body.RedirectURL == "" {
		body.RedirectURL = c.cfg.RedirectURL
	}
	return c.signUpRequest(ctx, "sign_up.create", &pipeline.Request{Method: http.MethodPost, Path: pathSignUps, Body: body})
}

func (c *SDKClient) signUpRequest(ctx context.Context, op string, req *pipeline.Request) (*SignUp, error) {
	su, err := do[*SignUp](ctx, c, op, req)
	if err != nil {
		return nil, err
	}
	su.client = c
	return su, nil
}

func (s *SignUp) ready(op string) error {
	if s == nil || s.client == nil || s.ID == "" {
		return clientErr(op, "sign-up was not created by an SDK client")
	}
	return nil
}

// Get re-fetches the sign-up, optionally scoped by a rotating token nonce.
func (s *SignUp) Get(ctx context.Context, rotatingTokenNonce string) (*SignUp, error) {
	const op = "sign_up.get"
	if err := s.ready(op); err != nil {
		return nil, err
	}

	req := &pipeline.Request{Method: http.MethodGet, Path: signUpPath(s.ID)}
	if rotatingTokenNonce != "" {
		req.Query = url.Values{"rotating_token_nonce": {rotatingTokenNonce}}
	}
	return s.client.signUpRequest(ctx, op, req)
}

// Update sets profile fields.
func (s *SignUp) Update(ctx context.Context, update SignUpUpdate) (*SignUp, error) {
	const op = "sign_up.update"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	return s.client.signUpRequest(ctx, op, &pipeline.Request{
		Method: http.MethodPatch,
		Path:   signUpPath(s.ID),
		Body:   update,
	})
}

// PrepareVerification sends a code to the email address or phone number on
// the sign-up.
func (s *SignUp) PrepareVerification(ctx context.Context, prep strategy.VerificationPreparation) (*SignUp, error) {
	const op = "sign_up.prepare_verification"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	return s.client.signUpRequest(ctx, op, &pipeline.Request{
		Method: http.MethodPost,
		Path:   signUpPath(s.ID, "prepare_verification"),
		Body:   prep.FactorBody(),
	})
}

// AttemptVerification submits the received code.
func (s *SignUp) AttemptVerification(ctx context.Context, attempt strategy.VerificationAttempt) (*SignUp, error) {
	const op = "sign_up.attempt_verification"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	return s.client.signUpRequest(ctx, op, &pipeline.Request{
		Method: http.MethodPost,
		Path:   signUpPath(s.ID, "attempt_verification"),
		Body:   attempt.FactorBody(),
	})
}
