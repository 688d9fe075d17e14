package authsdk

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/authsession/pkg/pipeline"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

type SignInStatus string

const (
	SignInNeedsIdentifier   SignInStatus = "needs_identifier"
	SignInNeedsFirstFactor  SignInStatus = "needs_first_factor"
	SignInNeedsSecondFactor SignInStatus = "needs_second_factor"
	SignInNeedsNewPassword  SignInStatus = "needs_new_password"
	SignInComplete          SignInStatus = "complete"
	SignInAbandoned         SignInStatus = "abandoned"
)

// SignIn is an in-progress sign-in attempt. Operations never modify the
// receiver; each returns the refreshed attempt, which is also visible
// through the synchronized client.
type SignIn struct {
	Object string       `json:"object"`
	ID     string       `json:"id"`
	Status SignInStatus `json:"status"`

	// Identifier is the login value the user claimed
	Identifier string `json:"identifier,omitempty"`

	SupportedIdentifiers   []string `json:"supported_identifiers,omitempty"`
	SupportedFirstFactors  []Factor `json:"supported_first_factors,omitempty"`
	SupportedSecondFactors []Factor `json:"supported_second_factors,omitempty"`

	FirstFactorVerification  *Verification `json:"first_factor_verification,omitempty"`
	SecondFactorVerification *Verification `json:"second_factor_verification,omitempty"`

	// CreatedSessionID is set once the attempt is complete
	CreatedSessionID string `json:"created_session_id,omitempty"`

	AbandonAt Timestamp `json:"abandon_at"`
	UserData  *UserData `json:"user_data,omitempty"`

	client *SDKClient
}

// UserData is the public profile of the user being signed in.
type UserData struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Validate checks that a created session is reported exactly when the
// attempt is complete.
func (s *SignIn) Validate() error {
	if (s.Status == SignInComplete) != (s.CreatedSessionID != "") {
		return clientErr("sign_in", "status %q inconsistent with created session %q", s.Status, s.CreatedSessionID)
	}
	return nil
}

// ResetPasswordParams sets the new password after a reset code was verified.
type ResetPasswordParams struct {
	Password               string `url:"password"`
	SignOutOfOtherSessions bool   `url:"sign_out_of_other_sessions,int,omitempty"`
}

// SignIn starts a sign-in attempt.
func (c *SDKClient) SignIn(ctx context.Context, create strategy.SignInCreate) (*SignIn, error) {
	body := create.SignInBody()
	if body.Strategy.IsRedirect() && body.RedirectURL == "" {
		body.RedirectURL = c.cfg.RedirectURL
	}
	return c.signInRequest(ctx, "sign_in.create", &pipeline.Request{Method: http.MethodPost, Path: pathSignIns, Body: body})
}

func (c *SDKClient) signInRequest(ctx context.Context, op string, req *pipeline.Request) (*SignIn, error) {
	si, err := do[*SignIn](ctx, c, op, req)
	if err != nil {
		return nil, err
	}
	return c.bindSignIn(si), nil
}

func (c *SDKClient) bindSignIn(si *SignIn) *SignIn {
	if si != nil {
		si.client = c
	}
	return si
}

func (s *SignIn) ready(op string) error {
	if s == nil || s.client == nil || s.ID == "" {
		return clientErr(op, "sign-in was not created by an SDK client")
	}
	return nil
}

// Get re-fetches the attempt. A rotating token nonce from a redirect
// callback scopes the fetch to the result of that redirect.
func (s *SignIn) Get(ctx context.Context, rotatingTokenNonce string) (*SignIn, error) {
	const op = "sign_in.get"
	if err := s.ready(op); err != nil {
		return nil, err
	}

	req := &pipeline.Request{Method: http.MethodGet, Path: signInPath(s.ID)}
	if rotatingTokenNonce != "" {
		req.Query = url.Values{"rotating_token_nonce": {rotatingTokenNonce}}
	}
	return s.client.signInRequest(ctx, op, req)
}

// PrepareFirstFactor begins the first factor verification. Strategies that
// need no preparation return the receiver without a request. Missing
// resource ids are taken from the matching supported factor.
func (s *SignIn) PrepareFirstFactor(ctx context.Context, prep strategy.FirstFactorPreparation) (*SignIn, error) {
	const op = "sign_in.prepare_first_factor"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	if !prep.Strategy().NeedsPreparation() {
		return s, nil
	}

	body := s.client.completeFactorBody(prep.FactorBody(), s.SupportedFirstFactors)
	return s.client.signInRequest(ctx, op, &pipeline.Request{
		Method: http.MethodPost,
		Path:   signInPath(s.ID, "prepare_first_factor"),
		Body:   body,
	})
}

// AttemptFirstFactor submits proof for the first factor.
func (s *SignIn) AttemptFirstFactor(ctx context.Context, attempt strategy.FirstFactorAttempt) (*SignIn, error) {
	const op = "sign_in.attempt_first_factor"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	return s.client.signInRequest(ctx, op, &pipeline.Request{
		Method: http.MethodPost,
		Path:   signInPath(s.ID, "attempt_first_factor"),
		Body:   attempt.FactorBody(),
	})
}

// PrepareSecondFactor begins the second factor verification. TOTP and
// backup codes need no preparation.
func (s *SignIn) PrepareSecondFactor(ctx context.Context, prep strategy.SecondFactorPreparation) (*SignIn, error) {
	const op = "sign_in.prepare_second_factor"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	if !prep.Strategy().NeedsPreparation() {
		return s, nil
	}

	body := s.client.completeFactorBody(prep.FactorBody(), s.SupportedSecondFactors)
	return s.client.signInRequest(ctx, op, &pipeline.Request{
		Method: http.MethodPost,
		Path:   signInPath(s.ID, "prepare_second_factor"),
		Body:   body,
	})
}

// AttemptSecondFactor submits proof for the second factor.
func (s *SignIn) AttemptSecondFactor(ctx context.Context, attempt strategy.SecondFactorAttempt) (*SignIn, error) {
	const op = "sign_in.attempt_second_factor"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	return s.client.signInRequest(ctx, op, &pipeline.Request{
		Method: http.MethodPost,
		Path:   signInPath(s.ID, "attempt_second_factor"),
		Body:   attempt.FactorBody(),
	})
}

// ResetPassword sets a new password. It is only valid once a reset
// password strategy was verified as the first factor; otherwise a
// ClientError is returned and nothing is sent.
func (s *SignIn) ResetPassword(ctx context.Context, params ResetPasswordParams) (*SignIn, error) {
	const op = "sign_in.reset_password"
	if err := s.ready(op); err != nil {
		return nil, err
	}

	v := s.FirstFactorVerification
	if v == nil || !v.Strategy.IsResetPassword() || v.Status != VerificationVerified {
		return nil, clientErr(op, "a reset password code must be verified first")
	}
	if params.Password == "" {
		return nil, clientErr(op, "password is required")
	}

	return s.client.signInRequest(ctx, op, &pipeline.Request{
		Method: http.MethodPost,
		Path:   signInPath(s.ID, "reset_password"),
		Body:   params,
	})
}

// completeFactorBody fills the resource id and redirect URL a preparation
// left empty.
func (c *SDKClient) completeFactorBody(body strategy.FactorBody, supported []Factor) strategy.FactorBody {
	f, ok := findFactor(supported, body.Strategy)
	if ok {
		switch body.Strategy {
		case strategy.NameEmailCode, strategy.NameEmailLink, strategy.NameResetPasswordEmailCode:
			if body.EmailAddressID == "" {
				body.EmailAddressID = f.EmailAddressID
			}
		case strategy.NamePhoneCode, strategy.NameResetPasswordPhoneCode:
			if body.PhoneNumberID == "" {
				body.PhoneNumberID = f.PhoneNumberID
			}
		}
	}

	if body.RedirectURL == "" && (body.Strategy.IsRedirect() || body.Strategy == strategy.NameEmailLink) {
		body.RedirectURL = c.cfg.RedirectURL
	}
	return body
}

func findFactor(factors []Factor, name strategy.Name) (Factor, bool) {
	for _, f := range factors {
		if f.Strategy == name {
			return f, true
		}
	}
	return Factor{}, false
}
