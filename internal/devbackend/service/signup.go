package service

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/idx"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

const fieldPassword = "password"

var optionalSignUpFields = []string{"first_name", "last_name", "username", authsdk.FieldPhoneNumber}

type signUpRecord struct {
	su       authsdk.SignUp
	clientID string

	passwordHash string
	code         string
	codeExpires  time.Time
	nonce        string

	// external is the identity proved by a redirect, ID token or transfer
	external *externalIdentity
}

func (r *signUpRecord) view() *authsdk.SignUp {
	su := r.su
	su.RequiredFields = slices.Clone(r.su.RequiredFields)
	su.OptionalFields = slices.Clone(r.su.OptionalFields)
	su.MissingFields = slices.Clone(r.su.MissingFields)
	su.UnverifiedFields = slices.Clone(r.su.UnverifiedFields)
	su.UnsafeMetadata = maps.Clone(r.su.UnsafeMetadata)
	su.Verifications = make(map[string]*authsdk.Verification, len(r.su.Verifications))
	for k, v := range r.su.Verifications {
		su.Verifications[k] = cloneVerification(v)
	}
	return &su
}

func (r *signUpRecord) verified(field string) bool {
	v := r.su.Verifications[field]
	return v != nil && v.Status == authsdk.VerificationVerified
}

func (b *Backend) newSignUp(c *clientRecord) *signUpRecord {
	return &signUpRecord{
		clientID: c.id,
		su: authsdk.SignUp{
			Object:        "sign_up_attempt",
			ID:            idx.Prefixed("sua"),
			Status:        authsdk.SignUpMissingRequirements,
			Verifications: map[string]*authsdk.Verification{},
			AbandonAt:     authsdk.At(b.now().Add(b.opts.AttemptTTL)),
		},
	}
}

func (b *Backend) hashIfSet(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	return cryptox.HashPassword(password, b.opts.Pepper)
}

// CreateSignUp starts a registration on the device's client.
func (b *Backend) CreateSignUp(_ context.Context, token string, body strategy.SignUpBody) (Result, error) {
	hash, err := b.hashIfSet(body.Password)
	if err != nil {
		return Result{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, created, err := b.device(token, true)
	if err != nil {
		return Result{}, err
	}
	if body.Transfer {
		return b.transferToSignUp(c, created)
	}

	r := b.newSignUp(c)
	switch {
	case body.Strategy.IsRedirect():
		v, err := b.startRedirect(c, flowSignUp, r.su.ID, body.Strategy, body.EmailAddress, body.RedirectURL)
		if err != nil {
			return Result{}, err
		}
		r.su.Verifications[authsdk.FieldExternalAccount] = v

	case body.Strategy.IsIDToken():
		ident, err := b.verifyIDToken(body.Strategy, body.Token)
		if err != nil {
			return Result{}, err
		}
		v := &authsdk.Verification{Status: authsdk.VerificationVerified, Strategy: body.Strategy, Attempts: 1}
		if _, known := b.lookupExternal(ident); known {
			v.Status = authsdk.VerificationTransferable
		} else {
			r.su.EmailAddress = ident.email
		}
		r.external = ident
		r.su.Verifications[authsdk.FieldExternalAccount] = v

	case body.Strategy != "":
		return Result{}, errStrategy(body.Strategy.String())
	}

	if err := b.applySignUpFields(r, body, hash); err != nil {
		return Result{}, err
	}
	b.evaluate(c, r)

	b.signUps[r.su.ID] = r
	if r.su.Status != authsdk.SignUpComplete {
		c.signUpID = r.su.ID
	}
	return b.result(c, created, r.view()), nil
}

// applySignUpFields copies the non-empty fields of body. Changing an
// identifier drops its verification.
func (b *Backend) applySignUpFields(r *signUpRecord, body strategy.SignUpBody, passwordHash string) error {
	for _, ident := range []string{body.EmailAddress, body.PhoneNumber, body.Username} {
		if _, taken := b.identifiers[normalize(ident)]; ident != "" && taken {
			return errIdentifierExists(ident)
		}
	}

	if body.EmailAddress != "" && body.EmailAddress != r.su.EmailAddress {
		r.su.EmailAddress = body.EmailAddress
		delete(r.su.Verifications, authsdk.FieldEmailAddress)
	}
	if body.PhoneNumber != "" && body.PhoneNumber != r.su.PhoneNumber {
		r.su.PhoneNumber = body.PhoneNumber
		delete(r.su.Verifications, authsdk.FieldPhoneNumber)
	}
	if body.Username != "" {
		r.su.Username = body.Username
	}
	if body.FirstName != "" {
		r.su.FirstName = body.FirstName
	}
	if body.LastName != "" {
		r.su.LastName = body.LastName
	}
	if len(body.UnsafeMetadata) > 0 {
		r.su.UnsafeMetadata = maps.Clone(body.UnsafeMetadata)
	}
	if passwordHash != "" {
		r.passwordHash = passwordHash
	}
	return nil
}

// evaluate recomputes the requirement lists and completes the sign-up once
// nothing is missing or unverified.
func (b *Backend) evaluate(c *clientRecord, r *signUpRecord) {
	su := &r.su
	if su.Status == authsdk.SignUpComplete {
		return
	}

	external := r.external != nil && r.verified(authsdk.FieldExternalAccount)
	su.RequiredFields = []string{authsdk.FieldEmailAddress, fieldPassword}
	if external {
		// The provider vouches for the user, no password needed
		su.RequiredFields = []string{authsdk.FieldEmailAddress}
	}
	su.OptionalFields = optionalSignUpFields

	su.MissingFields = nil
	for _, f := range su.RequiredFields {
		switch {
		case f == authsdk.FieldEmailAddress && su.EmailAddress == "",
			f == fieldPassword && r.passwordHash == "":
			su.MissingFields = append(su.MissingFields, f)
		}
	}

	su.UnverifiedFields = nil
	emailFromProvider := external && r.external.email != "" && normalize(r.external.email) == normalize(su.EmailAddress)
	if su.EmailAddress != "" && !emailFromProvider && !r.verified(authsdk.FieldEmailAddress) {
		su.UnverifiedFields = append(su.UnverifiedFields, authsdk.FieldEmailAddress)
	}
	if su.PhoneNumber != "" && !r.verified(authsdk.FieldPhoneNumber) {
		su.UnverifiedFields = append(su.UnverifiedFields, authsdk.FieldPhoneNumber)
	}

	if v := su.Verifications[authsdk.FieldExternalAccount]; v != nil && !external {
		// A redirect or transfer is still pending
		return
	}
	if len(su.MissingFields) > 0 || len(su.UnverifiedFields) > 0 {
		return
	}
	b.completeSignUp(c, r)
}

func (b *Backend) completeSignUp(c *clientRecord, r *signUpRecord) {
	su := &r.su
	u := b.addUser(su.EmailAddress, su.PhoneNumber, su.Username, su.FirstName, su.LastName, r.passwordHash)
	amr := []string{"otp"}
	if r.external != nil {
		b.externals[externalKey(r.external.provider, r.external.subject)] = u.user.ID
		amr = []string{"oauth"}
	}

	s := b.createSession(c, u.user.ID, amr)
	su.Status = authsdk.SignUpComplete
	su.CreatedUserID = u.user.ID
	su.CreatedSessionID = s.session.ID
	if c.signUpID == su.ID {
		c.signUpID = ""
	}
	flowsCompleted.WithLabelValues(flowSignUp).Inc()
	b.logger.Info("sign-up completed", "sign_up_id", su.ID, "user_id", u.user.ID, "session_id", s.session.ID)
}

func (b *Backend) signUpOf(token, id string) (*clientRecord, *signUpRecord, error) {
	c, _, err := b.device(token, false)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, errAuthenticationInvalid
	}
	r, ok := b.signUps[id]
	if !ok || r.clientID != c.id {
		return nil, nil, errNotFound("sign_up", id)
	}
	return c, r, nil
}

// GetSignUp returns a sign-up of the device, optionally scoped by the
// rotating token nonce of a finished redirect.
func (b *Backend) GetSignUp(_ context.Context, token, id, nonce string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signUpOf(token, id)
	if err != nil {
		return Result{}, err
	}
	if nonce != "" && !cryptox.EqualTokens(nonce, r.nonce) {
		return Result{}, errNotFound("sign_up", id)
	}
	return b.result(c, false, r.view()), nil
}

// UpdateSignUp sets profile fields.
func (b *Backend) UpdateSignUp(_ context.Context, token, id string, body strategy.SignUpBody) (Result, error) {
	hash, err := b.hashIfSet(body.Password)
	if err != nil {
		return Result{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signUpOf(token, id)
	if err != nil {
		return Result{}, err
	}
	if r.su.Status != authsdk.SignUpMissingRequirements {
		return Result{}, errInvalidState(CodeSignUpInvalidState, "sign-up is %s", r.su.Status)
	}
	if err := b.applySignUpFields(r, body, hash); err != nil {
		return Result{}, err
	}
	b.evaluate(c, r)
	return b.result(c, false, r.view()), nil
}

func verificationField(name strategy.Name) (string, bool) {
	switch name {
	case strategy.NameEmailCode:
		return authsdk.FieldEmailAddress, true
	case strategy.NamePhoneCode:
		return authsdk.FieldPhoneNumber, true
	}
	return "", false
}

// PrepareVerification sends a code to the sign-up's email address or phone
// number.
func (b *Backend) PrepareVerification(_ context.Context, token, id string, body strategy.FactorBody) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signUpOf(token, id)
	if err != nil {
		return Result{}, err
	}
	if r.su.Status != authsdk.SignUpMissingRequirements {
		return Result{}, errInvalidState(CodeSignUpInvalidState, "sign-up is %s", r.su.Status)
	}

	field, ok := verificationField(body.Strategy)
	if !ok {
		return Result{}, errStrategy(body.Strategy.String())
	}
	if (field == authsdk.FieldEmailAddress && r.su.EmailAddress == "") ||
		(field == authsdk.FieldPhoneNumber && r.su.PhoneNumber == "") {
		return Result{}, errParamMissing(field)
	}

	r.su.Verifications[field] = b.issueCode(body.Strategy, &r.code, &r.codeExpires, r.su.ID)
	return b.result(c, false, r.view()), nil
}

// AttemptVerification checks the code sent by PrepareVerification.
func (b *Backend) AttemptVerification(_ context.Context, token, id string, body strategy.FactorBody) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signUpOf(token, id)
	if err != nil {
		return Result{}, err
	}
	if r.su.Status != authsdk.SignUpMissingRequirements {
		return Result{}, errInvalidState(CodeSignUpInvalidState, "sign-up is %s", r.su.Status)
	}

	field, ok := verificationField(body.Strategy)
	if !ok {
		return Result{}, errStrategy(body.Strategy.String())
	}
	if err := b.checkCode(r.su.Verifications[field], body.Strategy, r.code, r.codeExpires, body.Code); err != nil {
		return Result{}, err
	}

	b.evaluate(c, r)
	return b.result(c, false, r.view()), nil
}
