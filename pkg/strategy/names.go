package strategy

import "strings"

// Name is a strategy name as sent on the wire.
type Name string

const (
	NamePassword               Name = "password"
	NameEmailCode              Name = "email_code"
	NamePhoneCode              Name = "phone_code"
	NameEmailLink              Name = "email_link"
	NamePasskey                Name = "passkey"
	NameTOTP                   Name = "totp"
	NameBackupCode             Name = "backup_code"
	NameResetPasswordEmailCode Name = "reset_password_email_code"
	NameResetPasswordPhoneCode Name = "reset_password_phone_code"
	NameEnterpriseSSO          Name = "enterprise_sso"
	NameTicket                 Name = "ticket"

	// OAuth strategies are "oauth_<provider>", ID-token strategies are
	// "oauth_token_<provider>".
	oauthPrefix   = "oauth_"
	idTokenPrefix = "oauth_token_"
)

// OAuthName returns the redirect strategy for provider, e.g. "oauth_google".
func OAuthName(provider string) Name {
	return Name(oauthPrefix + strings.ToLower(provider))
}

// IDTokenName returns the ID-token strategy for provider, e.g. "oauth_token_apple".
func IDTokenName(provider string) Name {
	return Name(idTokenPrefix + strings.ToLower(provider))
}

// IsOAuth reports whether n is a redirect based OAuth strategy.
func (n Name) IsOAuth() bool {
	return strings.HasPrefix(string(n), oauthPrefix) && !n.IsIDToken()
}

// IsIDToken reports whether n is an ID-token strategy.
func (n Name) IsIDToken() bool {
	return strings.HasPrefix(string(n), idTokenPrefix)
}

// IsResetPassword reports whether n is one of the reset password strategies.
func (n Name) IsResetPassword() bool {
	return n == NameResetPasswordEmailCode || n == NameResetPasswordPhoneCode
}

// IsRedirect reports whether n completes in an external browser session.
func (n Name) IsRedirect() bool {
	return n.IsOAuth() || n == NameEnterpriseSSO
}

// NeedsPreparation reports whether a verification using n must be prepared
// before it can be attempted. Passwords, TOTP and backup codes are known to
// the user already.
func (n Name) NeedsPreparation() bool {
	switch n {
	case NamePassword, NameTOTP, NameBackupCode:
		return false
	default:
		return true
	}
}

// Provider returns the provider part of an OAuth or ID-token strategy.
func (n Name) Provider() string {
	switch {
	case n.IsIDToken():
		return strings.TrimPrefix(string(n), idTokenPrefix)
	case n.IsOAuth():
		return strings.TrimPrefix(string(n), oauthPrefix)
	default:
		return ""
	}
}

func (n Name) String() string { return string(n) }
