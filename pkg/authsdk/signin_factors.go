package authsdk

import (
	"strings"

	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

// FactorPolicy orders first factor strategies from most to least preferred.
type FactorPolicy struct {
	Name  string
	Order []strategy.Name
}

var (
	// PasswordPreferred is used when the instance prefers passwords.
	PasswordPreferred = FactorPolicy{
		Name: "password",
		Order: []strategy.Name{
			strategy.NamePassword,
			strategy.NameEmailCode,
			strategy.NamePhoneCode,
			strategy.NameEmailLink,
		},
	}

	// OTPPreferred is used when the instance prefers one-time codes.
	OTPPreferred = FactorPolicy{
		Name: "otp",
		Order: []strategy.Name{
			strategy.NameEmailCode,
			strategy.NamePhoneCode,
			strategy.NameEmailLink,
			strategy.NamePassword,
		},
	}

	// SecondFactorOrder is the fixed second factor preference.
	SecondFactorOrder = []strategy.Name{strategy.NameTOTP, strategy.NamePhoneCode}
)

// PolicyFor maps the backend's preferred sign-in strategy to a policy.
// Unknown values fall back to PasswordPreferred.
func PolicyFor(preferred string) FactorPolicy {
	if strings.EqualFold(preferred, OTPPreferred.Name) {
		return OTPPreferred
	}
	return PasswordPreferred
}

// SelectFirstFactor picks the first factor to use:
//
//  1. an unverified, non-passkey verification already in progress for a
//     factor matching the identifier
//  2. enterprise SSO, while the attempt needs a first factor
//  3. the policy order, among factors matching the identifier
//  4. the first supported factor
func (s *SignIn) SelectFirstFactor(policy FactorPolicy) (Factor, bool) {
	factors := s.SupportedFirstFactors
	if len(factors) == 0 {
		return Factor{}, false
	}

	if v := s.FirstFactorVerification; v != nil && v.Status == VerificationUnverified && v.Strategy != strategy.NamePasskey {
		for _, f := range factors {
			if f.Strategy == v.Strategy && s.matchesIdentifier(f) {
				return f, true
			}
		}
	}

	if s.Status == SignInNeedsFirstFactor {
		if f, ok := findFactor(factors, strategy.NameEnterpriseSSO); ok {
			return f, true
		}
	}

	if len(policy.Order) == 0 {
		policy = PasswordPreferred
	}
	for _, name := range policy.Order {
		for _, f := range factors {
			if f.Strategy == name && s.matchesIdentifier(f) {
				return f, true
			}
		}
	}

	return factors[0], true
}

// SelectSecondFactor prefers TOTP, then phone codes, then whatever else is
// offered.
func (s *SignIn) SelectSecondFactor() (Factor, bool) {
	factors := s.SupportedSecondFactors
	if len(factors) == 0 {
		return Factor{}, false
	}
	for _, name := range SecondFactorOrder {
		if f, ok := findFactor(factors, name); ok {
			return f, true
		}
	}
	return factors[0], true
}

// matchesIdentifier reports whether f targets the claimed identifier.
// Factors without a safe identifier (e.g. password) match any.
func (s *SignIn) matchesIdentifier(f Factor) bool {
	if f.SafeIdentifier == "" || s.Identifier == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(f.SafeIdentifier), strings.TrimSpace(s.Identifier))
}
