package strategy

// Preparation begins a verification step: it asks the backend to deliver a
// code, issue a passkey challenge or build a redirect URL.
type Preparation interface {
	Strategy() Name
	FactorBody() FactorBody
}

// FirstFactorPreparation can begin a sign-in first factor.
type FirstFactorPreparation interface {
	Preparation
	firstFactorPreparation()
}

// SecondFactorPreparation can begin a sign-in second factor.
type SecondFactorPreparation interface {
	Preparation
	secondFactorPreparation()
}

// VerificationPreparation can begin a sign-up field verification.
type VerificationPreparation interface {
	Preparation
	verificationPreparation()
}

// Attempt completes a verification step with proof.
type Attempt interface {
	Strategy() Name
	FactorBody() FactorBody
}

// FirstFactorAttempt completes a sign-in first factor.
type FirstFactorAttempt interface {
	Attempt
	firstFactorAttempt()
}

// SecondFactorAttempt completes a sign-in second factor.
type SecondFactorAttempt interface {
	Attempt
	secondFactorAttempt()
}

// VerificationAttempt completes a sign-up field verification.
type VerificationAttempt interface {
	Attempt
	verificationAttempt()
}

// ============================================================================
// Preparations
// ============================================================================

// EmailCode sends a one-time code to an email address. An empty
// EmailAddressID lets the flow pick the address of the matching factor.
type EmailCode struct{ EmailAddressID string }

func (EmailCode) Strategy() Name { return NameEmailCode }
func (e EmailCode) FactorBody() FactorBody {
	return FactorBody{Strategy: NameEmailCode, EmailAddressID: e.EmailAddressID}
}

// PhoneCode sends a one-time code by SMS.
type PhoneCode struct{ PhoneNumberID string }

func (PhoneCode) Strategy() Name { return NamePhoneCode }
func (p PhoneCode) FactorBody() FactorBody {
	return FactorBody{Strategy: NamePhoneCode, PhoneNumberID: p.PhoneNumberID}
}

// EmailLink sends a magic link that lands on RedirectURL.
type EmailLink struct {
	EmailAddressID string
	RedirectURL    string
}

func (EmailLink) Strategy() Name { return NameEmailLink }
func (e EmailLink) FactorBody() FactorBody {
	return FactorBody{Strategy: NameEmailLink, EmailAddressID: e.EmailAddressID, RedirectURL: e.RedirectURL}
}

// PasskeyChallenge asks for a passkey challenge nonce.
type PasskeyChallenge struct{}

func (PasskeyChallenge) Strategy() Name         { return NamePasskey }
func (PasskeyChallenge) FactorBody() FactorBody { return FactorBody{Strategy: NamePasskey} }

// ResetPasswordEmailCode sends a password reset code by email.
type ResetPasswordEmailCode struct{ EmailAddressID string }

func (ResetPasswordEmailCode) Strategy() Name { return NameResetPasswordEmailCode }
func (r ResetPasswordEmailCode) FactorBody() FactorBody {
	return FactorBody{Strategy: NameResetPasswordEmailCode, EmailAddressID: r.EmailAddressID}
}

// ResetPasswordPhoneCode sends a password reset code by SMS.
type ResetPasswordPhoneCode struct{ PhoneNumberID string }

func (ResetPasswordPhoneCode) Strategy() Name { return NameResetPasswordPhoneCode }
func (r ResetPasswordPhoneCode) FactorBody() FactorBody {
	return FactorBody{Strategy: NameResetPasswordPhoneCode, PhoneNumberID: r.PhoneNumberID}
}

// OAuthRedirect prepares a redirect first factor for an existing sign-in.
type OAuthRedirect struct {
	Provider    string
	RedirectURL string
}

func (o OAuthRedirect) Strategy() Name { return OAuthName(o.Provider) }
func (o OAuthRedirect) FactorBody() FactorBody {
	return FactorBody{Strategy: OAuthName(o.Provider), RedirectURL: o.RedirectURL}
}

// EnterpriseSSORedirect prepares the enterprise SSO first factor.
type EnterpriseSSORedirect struct{ RedirectURL string }

func (EnterpriseSSORedirect) Strategy() Name { return NameEnterpriseSSO }
func (e EnterpriseSSORedirect) FactorBody() FactorBody {
	return FactorBody{Strategy: NameEnterpriseSSO, RedirectURL: e.RedirectURL}
}

// Unprepared names a factor that needs no preparation (password, TOTP,
// backup code). Preparing it is a no-op and issues no request.
type Unprepared struct{ Name Name }

func (u Unprepared) Strategy() Name         { return u.Name }
func (u Unprepared) FactorBody() FactorBody { return FactorBody{Strategy: u.Name} }

// ============================================================================
// Attempts
// ============================================================================

// PasswordAttempt submits the account password.
type PasswordAttempt struct{ Password string }

func (PasswordAttempt) Strategy() Name { return NamePassword }
func (p PasswordAttempt) FactorBody() FactorBody {
	return FactorBody{Strategy: NamePassword, Password: p.Password}
}

// EmailCodeAttempt submits a code received by email.
type EmailCodeAttempt struct{ Code string }

func (EmailCodeAttempt) Strategy() Name { return NameEmailCode }
func (e EmailCodeAttempt) FactorBody() FactorBody {
	return FactorBody{Strategy: NameEmailCode, Code: e.Code}
}

// PhoneCodeAttempt submits a code received by SMS.
type PhoneCodeAttempt struct{ Code string }

func (PhoneCodeAttempt) Strategy() Name { return NamePhoneCode }
func (p PhoneCodeAttempt) FactorBody() FactorBody {
	return FactorBody{Strategy: NamePhoneCode, Code: p.Code}
}

// PasskeyAttempt submits the JSON encoded public key credential produced by
// the platform authenticator.
type PasskeyAttempt struct{ PublicKeyCredential string }

func (PasskeyAttempt) Strategy() Name { return NamePasskey }
func (p PasskeyAttempt) FactorBody() FactorBody {
	return FactorBody{Strategy: NamePasskey, PublicKeyCredential: p.PublicKeyCredential}
}

// ResetPasswordEmailCodeAttempt submits a password reset code sent by email.
type ResetPasswordEmailCodeAttempt struct{ Code string }

func (ResetPasswordEmailCodeAttempt) Strategy() Name { return NameResetPasswordEmailCode }
func (r ResetPasswordEmailCodeAttempt) FactorBody() FactorBody {
	return FactorBody{Strategy: NameResetPasswordEmailCode, Code: r.Code}
}

// ResetPasswordPhoneCodeAttempt submits a password reset code sent by SMS.
type ResetPasswordPhoneCodeAttempt struct{ Code string }

func (ResetPasswordPhoneCodeAttempt) Strategy() Name { return NameResetPasswordPhoneCode }
func (r ResetPasswordPhoneCodeAttempt) FactorBody() FactorBody {
	return FactorBody{Strategy: NameResetPasswordPhoneCode, Code: r.Code}
}

// TOTPAttempt submits an authenticator app code.
type TOTPAttempt struct{ Code string }

func (TOTPAttempt) Strategy() Name { return NameTOTP }
func (t TOTPAttempt) FactorBody() FactorBody {
	return FactorBody{Strategy: NameTOTP, Code: t.Code}
}

// BackupCodeAttempt submits one of the user's backup codes.
type BackupCodeAttempt struct{ Code string }

func (BackupCodeAttempt) Strategy() Name { return NameBackupCode }
func (b BackupCodeAttempt) FactorBody() FactorBody {
	return FactorBody{Strategy: NameBackupCode, Code: b.Code}
}

func (EmailCode) firstFactorPreparation()              {}
func (PhoneCode) firstFactorPreparation()              {}
func (EmailLink) firstFactorPreparation()              {}
func (PasskeyChallenge) firstFactorPreparation()       {}
func (ResetPasswordEmailCode) firstFactorPreparation() {}
func (ResetPasswordPhoneCode) firstFactorPreparation() {}
func (OAuthRedirect) firstFactorPreparation()          {}
func (EnterpriseSSORedirect) firstFactorPreparation()  {}
func (Unprepared) firstFactorPreparation()             {}

func (EmailCode) secondFactorPreparation()  {}
func (PhoneCode) secondFactorPreparation()  {}
func (Unprepared) secondFactorPreparation() {}

func (EmailCode) verificationPreparation() {}
func (PhoneCode) verificationPreparation() {}

func (PasswordAttempt) firstFactorAttempt()               {}
func (EmailCodeAttempt) firstFactorAttempt()              {}
func (PhoneCodeAttempt) firstFactorAttempt()              {}
func (PasskeyAttempt) firstFactorAttempt()                {}
func (ResetPasswordEmailCodeAttempt) firstFactorAttempt() {}
func (ResetPasswordPhoneCodeAttempt) firstFactorAttempt() {}

func (EmailCodeAttempt) secondFactorAttempt()  {}
func (PhoneCodeAttempt) secondFactorAttempt()  {}
func (TOTPAttempt) secondFactorAttempt()       {}
func (BackupCodeAttempt) secondFactorAttempt() {}

func (EmailCodeAttempt) verificationAttempt() {}
func (PhoneCodeAttempt) verificationAttempt() {}
