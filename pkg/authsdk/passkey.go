package authsdk

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

// PasskeyProvider produces a signed passkey assertion for a challenge. The
// result is the JSON encoded public key credential.
type PasskeyProvider interface {
	Assert(ctx context.Context, challenge string) (credential string, err error)
}

// PasskeyProviderFunc adapts a function to PasskeyProvider.
type PasskeyProviderFunc func(ctx context.Context, challenge string) (string, error)

func (f PasskeyProviderFunc) Assert(ctx context.Context, challenge string) (string, error) {
	return f(ctx, challenge)
}

// SignInWithPasskey runs an identifier-less passkey sign-in: create,
// request a challenge, sign it, attempt.
func (c *SDKClient) SignInWithPasskey(ctx context.Context, provider PasskeyProvider) (*SignIn, error) {
	const op = "sign_in.passkey"
	if provider == nil {
		return nil, clientErr(op, "no passkey provider")
	}

	si, err := c.SignIn(ctx, strategy.Passkey{})
	if err != nil {
		return nil, err
	}
	si, err = si.PrepareFirstFactor(ctx, strategy.PasskeyChallenge{})
	if err != nil {
		return nil, err
	}

	v := si.FirstFactorVerification
	if v == nil || v.Nonce == "" {
		return nil, clientErr(op, "backend returned no passkey challenge")
	}

	credential, err := provider.Assert(ctx, v.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%s: assert: %w", op, err)
	}
	return si.AttemptFirstFactor(ctx, strategy.PasskeyAttempt{PublicKeyCredential: credential})
}

// SignInWithIDToken exchanges a native provider ID token. An identity the
// backend does not know yet is transferred into a sign-up.
func (c *SDKClient) SignInWithIDToken(ctx context.Context, provider, token string) (*TransferResult, error) {
	if provider == "" || token == "" {
		return nil, clientErr("sign_in.id_token", "provider and token are required")
	}

	si, err := c.SignIn(ctx, strategy.IDToken{Provider: provider, Token: token})
	if err != nil {
		return nil, err
	}

	if v := si.FirstFactorVerification; v != nil && v.Status == VerificationTransferable {
		su, err := c.SignUp(ctx, strategy.Transfer{})
		if err != nil {
			return nil, err
		}
		return &TransferResult{SignUp: su}, nil
	}
	return &TransferResult{SignIn: si}, nil
}
