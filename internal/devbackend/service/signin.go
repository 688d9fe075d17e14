package service

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/idx"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

// maxCodeAttempts fails a verification after this many wrong codes.
const maxCodeAttempts = 5

type signInRecord struct {
	si       authsdk.SignIn
	clientID string
	userID   string

	code        string
	codeExpires time.Time
	challenge   string
	nonce       string

	// external is the identity a redirect or ID token proved but no user
	// owns yet, kept for a transfer into a sign-up
	external *externalIdentity
	amr      []string
}

func (r *signInRecord) view() *authsdk.SignIn {
	si := r.si
	si.SupportedFirstFactors = slices.Clone(r.si.SupportedFirstFactors)
	si.SupportedSecondFactors = slices.Clone(r.si.SupportedSecondFactors)
	si.FirstFactorVerification = cloneVerification(r.si.FirstFactorVerification)
	si.SecondFactorVerification = cloneVerification(r.si.SecondFactorVerification)
	if r.si.UserData != nil {
		ud := *r.si.UserData
		si.UserData = &ud
	}
	return &si
}

func cloneVerification(v *authsdk.Verification) *authsdk.Verification {
	if v == nil {
		return nil
	}
	cp := *v
	if v.Error != nil {
		e := *v.Error
		cp.Error = &e
	}
	return &cp
}

func (b *Backend) newSignIn(c *clientRecord) *signInRecord {
	return &signInRecord{
		clientID: c.id,
		si: authsdk.SignIn{
			Object:    "sign_in_attempt",
			ID:        idx.Prefixed("sia"),
			Status:    authsdk.SignInNeedsIdentifier,
			AbandonAt: authsdk.At(b.now().Add(b.opts.AttemptTTL)),
		},
	}
}

func (b *Backend) ownedSignIn(c *clientRecord, id string) (*signInRecord, error) {
	r, ok := b.signIns[id]
	if !ok || r.clientID != c.id {
		return nil, errNotFound("sign_in", id)
	}
	return r, nil
}

// CreateSignIn starts a sign-in on the device's client, creating the
// client when the device has none.
func (b *Backend) CreateSignIn(_ context.Context, token string, body strategy.SignInBody) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, created, err := b.device(token, true)
	if err != nil {
		return Result{}, err
	}
	if body.Transfer {
		return b.transferToSignIn(c, created)
	}

	r := b.newSignIn(c)
	switch {
	case body.Strategy == strategy.NamePasskey:
		r.si.Status = authsdk.SignInNeedsFirstFactor
		r.si.SupportedFirstFactors = []authsdk.Factor{{Strategy: strategy.NamePasskey}}

	case body.Strategy.IsRedirect():
		v, err := b.startRedirect(c, flowSignIn, r.si.ID, body.Strategy, body.Identifier, body.RedirectURL)
		if err != nil {
			return Result{}, err
		}
		r.si.Identifier = body.Identifier
		r.si.Status = authsdk.SignInNeedsFirstFactor
		r.si.FirstFactorVerification = v

	case body.Strategy.IsIDToken():
		ident, err := b.verifyIDToken(body.Strategy, body.Token)
		if err != nil {
			return Result{}, err
		}
		b.resolveExternalSignIn(c, r, ident, body.Strategy)

	case body.Strategy == strategy.NameTicket:
		return Result{}, errStrategy(body.Strategy.String())

	case body.Strategy == "" || body.Strategy == strategy.NamePassword || body.Strategy.NeedsPreparation():
		if err := b.identify(c, r, body); err != nil {
			return Result{}, err
		}

	default:
		return Result{}, errStrategy(body.Strategy.String())
	}

	b.signIns[r.si.ID] = r
	if r.si.Status != authsdk.SignInComplete {
		c.signInID = r.si.ID
	}
	return b.result(c, created, r.view()), nil
}

// identify runs the identifier flow: look the user up, offer their
// factors, and verify a password or prepare a factor sent along.
func (b *Backend) identify(c *clientRecord, r *signInRecord, body strategy.SignInBody) error {
	if body.Identifier == "" {
		return errParamMissing("identifier")
	}
	u, ok := b.userByIdentifier(body.Identifier)
	if !ok {
		return errIdentifierNotFound
	}

	r.userID = u.user.ID
	r.si.Identifier = body.Identifier
	r.si.Status = authsdk.SignInNeedsFirstFactor
	r.si.SupportedFirstFactors = firstFactors(u)
	r.si.UserData = &authsdk.UserData{FirstName: u.user.FirstName, LastName: u.user.LastName}

	switch {
	case body.Password != "":
		if err := cryptox.VerifyPassword(body.Password, b.opts.Pepper, u.passwordHash); err != nil {
			return errPasswordIncorrect
		}
		r.si.FirstFactorVerification = &authsdk.Verification{
			Status:   authsdk.VerificationVerified,
			Strategy: strategy.NamePassword,
			Attempts: 1,
		}
		b.afterFirstFactor(c, r, u, "pwd")
		return nil

	case body.Strategy != "" && body.Strategy != strategy.NamePassword:
		return b.prepareFirstFactor(c, r, u, strategy.FactorBody{Strategy: body.Strategy, RedirectURL: body.RedirectURL})
	}
	return nil
}

func firstFactors(u *userRecord) []authsdk.Factor {
	var out []authsdk.Factor
	if u.passwordHash != "" {
		out = append(out, authsdk.Factor{Strategy: strategy.NamePassword})
	}
	if u.emailID != "" {
		out = append(out, authsdk.Factor{
			Strategy:       strategy.NameEmailCode,
			SafeIdentifier: u.user.PrimaryEmailAddress,
			EmailAddressID: u.emailID,
			Primary:        true,
		})
	}
	if u.phoneID != "" {
		out = append(out, authsdk.Factor{
			Strategy:       strategy.NamePhoneCode,
			SafeIdentifier: u.user.PrimaryPhoneNumber,
			PhoneNumberID:  u.phoneID,
		})
	}
	if u.passkeyID != "" {
		out = append(out, authsdk.Factor{Strategy: strategy.NamePasskey, PasskeyID: u.passkeyID})
	}
	if u.emailID != "" && u.passwordHash != "" {
		out = append(out, authsdk.Factor{
			Strategy:       strategy.NameResetPasswordEmailCode,
			SafeIdentifier: u.user.PrimaryEmailAddress,
			EmailAddressID: u.emailID,
		})
	}
	if u.phoneID != "" && u.passwordHash != "" {
		out = append(out, authsdk.Factor{
			Strategy:       strategy.NameResetPasswordPhoneCode,
			SafeIdentifier: u.user.PrimaryPhoneNumber,
			PhoneNumberID:  u.phoneID,
		})
	}
	return out
}

func secondFactors(u *userRecord) []authsdk.Factor {
	var out []authsdk.Factor
	if u.totpSecret != "" {
		out = append(out, authsdk.Factor{Strategy: strategy.NameTOTP})
	}
	if u.phoneID != "" {
		out = append(out, authsdk.Factor{
			Strategy:       strategy.NamePhoneCode,
			SafeIdentifier: u.user.PrimaryPhoneNumber,
			PhoneNumberID:  u.phoneID,
		})
	}
	if len(u.backupCodes) > 0 {
		out = append(out, authsdk.Factor{Strategy: strategy.NameBackupCode})
	}
	return out
}

// afterFirstFactor moves to the second factor when the user has one
// enrolled, otherwise completes the sign-in.
func (b *Backend) afterFirstFactor(c *clientRecord, r *signInRecord, u *userRecord, amr string) {
	r.amr = append(r.amr, amr)
	if u.needsSecondFactor() {
		r.si.Status = authsdk.SignInNeedsSecondFactor
		r.si.SupportedSecondFactors = secondFactors(u)
		return
	}
	b.completeSignIn(c, r)
}

func (b *Backend) completeSignIn(c *clientRecord, r *signInRecord) {
	s := b.createSession(c, r.userID, r.amr)
	r.si.Status = authsdk.SignInComplete
	r.si.CreatedSessionID = s.session.ID
	if c.signInID == r.si.ID {
		c.signInID = ""
	}
	flowsCompleted.WithLabelValues(flowSignIn).Inc()
	b.logger.Info("sign-in completed", "sign_in_id", r.si.ID, "session_id", s.session.ID)
}

// GetSignIn returns a sign-in of the device. A rotating token nonce must
// match the one handed out by the redirect that finished the attempt.
func (b *Backend) GetSignIn(_ context.Context, token, id, nonce string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signInOf(token, id)
	if err != nil {
		return Result{}, err
	}
	if nonce != "" && !cryptox.EqualTokens(nonce, r.nonce) {
		return Result{}, errNotFound("sign_in", id)
	}
	return b.result(c, false, r.view()), nil
}

func (b *Backend) signInOf(token, id string) (*clientRecord, *signInRecord, error) {
	c, _, err := b.device(token, false)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, errAuthenticationInvalid
	}
	r, err := b.ownedSignIn(c, id)
	if err != nil {
		return nil, nil, err
	}
	return c, r, nil
}

// PrepareFirstFactor sends a code, issues a passkey challenge or starts a
// redirect for the chosen first factor.
func (b *Backend) PrepareFirstFactor(_ context.Context, token, id string, body strategy.FactorBody) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signInOf(token, id)
	if err != nil {
		return Result{}, err
	}
	if r.si.Status != authsdk.SignInNeedsFirstFactor {
		return Result{}, errInvalidState(CodeSignInInvalidState, "sign-in is %s", r.si.Status)
	}
	if err := b.prepareFirstFactor(c, r, b.users[r.userID], body); err != nil {
		return Result{}, err
	}
	return b.result(c, false, r.view()), nil
}

func (b *Backend) prepareFirstFactor(c *clientRecord, r *signInRecord, u *userRecord, body strategy.FactorBody) error {
	name := body.Strategy
	switch {
	case name == strategy.NameEmailCode || name == strategy.NameResetPasswordEmailCode:
		if u == nil || u.emailID == "" {
			return errStrategy(name.String())
		}
		if body.EmailAddressID != "" && body.EmailAddressID != u.emailID {
			return errNotFound("email_address", body.EmailAddressID)
		}
		r.si.FirstFactorVerification = b.issueCode(name, &r.code, &r.codeExpires, r.si.ID)

	case name == strategy.NamePhoneCode || name == strategy.NameResetPasswordPhoneCode:
		if u == nil || u.phoneID == "" {
			return errStrategy(name.String())
		}
		if body.PhoneNumberID != "" && body.PhoneNumberID != u.phoneID {
			return errNotFound("phone_number", body.PhoneNumberID)
		}
		r.si.FirstFactorVerification = b.issueCode(name, &r.code, &r.codeExpires, r.si.ID)

	case name == strategy.NamePasskey:
		challenge, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			return err
		}
		r.challenge = challenge
		r.si.FirstFactorVerification = &authsdk.Verification{
			Status:   authsdk.VerificationUnverified,
			Strategy: strategy.NamePasskey,
			Nonce:    challenge,
			ExpireAt: authsdk.At(b.now().Add(b.opts.CodeTTL)),
		}

	case name.IsRedirect():
		v, err := b.startRedirect(c, flowSignIn, r.si.ID, name, r.si.Identifier, body.RedirectURL)
		if err != nil {
			return err
		}
		r.si.FirstFactorVerification = v

	default:
		return errStrategy(name.String())
	}
	return nil
}

// issueCode stores a fresh one-time code and returns the unverified
// verification that awaits it.
func (b *Backend) issueCode(name strategy.Name, code *string, expires *time.Time, flowID string) *authsdk.Verification {
	*code = b.opts.Code
	if b.opts.RandomCodes {
		if random, err := cryptox.GenerateNumericCode(6); err == nil {
			*code = random
		}
		b.logger.Info("verification code issued", "flow_id", flowID, "strategy", name, "code", *code)
	}
	*expires = b.now().Add(b.opts.CodeTTL)

	return &authsdk.Verification{
		Status:   authsdk.VerificationUnverified,
		Strategy: name,
		ExpireAt: authsdk.At(*expires),
	}
}

// checkCode verifies attempt against a prepared code verification.
func (b *Backend) checkCode(v *authsdk.Verification, name strategy.Name, code string, expires time.Time, attempt string) error {
	if v == nil || v.Strategy != name {
		return errInvalidState(CodeVerificationMissing, "%s was not prepared", name)
	}
	switch v.Status {
	case authsdk.VerificationVerified:
		return nil
	case authsdk.VerificationFailed:
		return errCodeIncorrect
	}
	if b.now().After(expires) {
		v.Status = authsdk.VerificationExpired
		return errVerificationExpired
	}

	v.Attempts++
	if attempt == "" || !cryptox.EqualTokens(attempt, code) {
		if v.Attempts >= maxCodeAttempts {
			v.Status = authsdk.VerificationFailed
		}
		v.Error = &authsdk.ErrorDetail{Code: errCodeIncorrect.Code, Message: errCodeIncorrect.Message}
		return errCodeIncorrect
	}
	v.Status = authsdk.VerificationVerified
	v.Error = nil
	return nil
}

// passkeyCredential is the emulated public key credential: the registered
// passkey id and the challenge it signed.
type passkeyCredential struct {
	ID        string `json:"id"`
	Challenge string `json:"challenge"`
}

// AttemptFirstFactor verifies the first factor.
func (b *Backend) AttemptFirstFactor(_ context.Context, token, id string, body strategy.FactorBody) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signInOf(token, id)
	if err != nil {
		return Result{}, err
	}
	if r.si.Status != authsdk.SignInNeedsFirstFactor {
		return Result{}, errInvalidState(CodeSignInInvalidState, "sign-in is %s", r.si.Status)
	}
	u := b.users[r.userID]

	switch name := body.Strategy; name {
	case strategy.NamePassword:
		if u == nil || u.passwordHash == "" {
			return Result{}, errStrategy(name.String())
		}
		if err := cryptox.VerifyPassword(body.Password, b.opts.Pepper, u.passwordHash); err != nil {
			return Result{}, errPasswordIncorrect
		}
		r.si.FirstFactorVerification = &authsdk.Verification{Status: authsdk.VerificationVerified, Strategy: name, Attempts: 1}
		b.afterFirstFactor(c, r, u, "pwd")

	case strategy.NameEmailCode, strategy.NamePhoneCode:
		if err := b.checkCode(r.si.FirstFactorVerification, name, r.code, r.codeExpires, body.Code); err != nil {
			return Result{}, err
		}
		b.afterFirstFactor(c, r, u, "otp")

	case strategy.NameResetPasswordEmailCode, strategy.NameResetPasswordPhoneCode:
		if err := b.checkCode(r.si.FirstFactorVerification, name, r.code, r.codeExpires, body.Code); err != nil {
			return Result{}, err
		}
		r.si.Status = authsdk.SignInNeedsNewPassword

	case strategy.NamePasskey:
		var cred passkeyCredential
		if err := json.Unmarshal([]byte(body.PublicKeyCredential), &cred); err != nil {
			return Result{}, errParamMissing("public_key_credential")
		}
		if r.challenge == "" || !cryptox.EqualTokens(cred.Challenge, r.challenge) {
			return Result{}, newError(http.StatusUnprocessableEntity, "passkey_invalid", "passkey challenge mismatch")
		}
		uid, ok := b.passkeys[cred.ID]
		if !ok {
			return Result{}, newError(http.StatusUnprocessableEntity, "passkey_not_found", "passkey %q is not registered", cred.ID)
		}
		r.userID = uid
		r.challenge = ""
		r.si.FirstFactorVerification.Status = authsdk.VerificationVerified
		r.si.FirstFactorVerification.Attempts++
		b.afterFirstFactor(c, r, b.users[uid], "pkey")

	default:
		return Result{}, errStrategy(name.String())
	}
	return b.result(c, false, r.view()), nil
}

// PrepareSecondFactor sends a phone code for the second factor.
func (b *Backend) PrepareSecondFactor(_ context.Context, token, id string, body strategy.FactorBody) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signInOf(token, id)
	if err != nil {
		return Result{}, err
	}
	if r.si.Status != authsdk.SignInNeedsSecondFactor {
		return Result{}, errInvalidState(CodeSignInInvalidState, "sign-in is %s", r.si.Status)
	}
	u := b.users[r.userID]
	if body.Strategy != strategy.NamePhoneCode || u.phoneID == "" {
		return Result{}, errStrategy(body.Strategy.String())
	}
	r.si.SecondFactorVerification = b.issueCode(body.Strategy, &r.code, &r.codeExpires, r.si.ID)
	return b.result(c, false, r.view()), nil
}

// AttemptSecondFactor verifies a TOTP, phone or backup code and completes
// the sign-in.
func (b *Backend) AttemptSecondFactor(_ context.Context, token, id string, body strategy.FactorBody) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signInOf(token, id)
	if err != nil {
		return Result{}, err
	}
	if r.si.Status != authsdk.SignInNeedsSecondFactor {
		return Result{}, errInvalidState(CodeSignInInvalidState, "sign-in is %s", r.si.Status)
	}
	u := b.users[r.userID]

	switch name := body.Strategy; name {
	case strategy.NameTOTP:
		if u.totpSecret == "" {
			return Result{}, errStrategy(name.String())
		}
		if !totp.Validate(body.Code, u.totpSecret) {
			return Result{}, errCodeIncorrect
		}
		r.si.SecondFactorVerification = &authsdk.Verification{Status: authsdk.VerificationVerified, Strategy: name, Attempts: 1}

	case strategy.NamePhoneCode:
		if err := b.checkCode(r.si.SecondFactorVerification, name, r.code, r.codeExpires, body.Code); err != nil {
			return Result{}, err
		}

	case strategy.NameBackupCode:
		if !u.backupCodes[body.Code] {
			return Result{}, errCodeIncorrect
		}
		delete(u.backupCodes, body.Code)
		u.refreshFlags()
		r.si.SecondFactorVerification = &authsdk.Verification{Status: authsdk.VerificationVerified, Strategy: name, Attempts: 1}

	default:
		return Result{}, errStrategy(name.String())
	}

	r.amr = append(r.amr, "mfa")
	b.completeSignIn(c, r)
	return b.result(c, false, r.view()), nil
}

// ResetPassword sets a new password once a reset code was verified. With
// signOutOthers every other session of the user ends.
func (b *Backend) ResetPassword(_ context.Context, token, id, password string, signOutOthers bool) (Result, error) {
	if password == "" {
		return Result{}, errParamMissing("password")
	}
	hash, err := cryptox.HashPassword(password, b.opts.Pepper)
	if err != nil {
		return Result{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, r, err := b.signInOf(token, id)
	if err != nil {
		return Result{}, err
	}
	v := r.si.FirstFactorVerification
	if r.si.Status != authsdk.SignInNeedsNewPassword || v == nil || !v.Strategy.IsResetPassword() || v.Status != authsdk.VerificationVerified {
		return Result{}, errInvalidState(CodeSignInInvalidState, "a reset password code must be verified first")
	}

	u := b.users[r.userID]
	u.passwordHash = hash
	u.refreshFlags()
	if signOutOthers {
		b.endUserSessions(u.user.ID)
	}

	b.afterFirstFactor(c, r, u, "otp")
	return b.result(c, false, r.view()), nil
}
