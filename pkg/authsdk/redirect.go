package authsdk

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

// RedirectAuthenticator opens an external authentication session (browser,
// app switch) at authURL and blocks until it returns to the callback URL.
type RedirectAuthenticator interface {
	Authenticate(ctx context.Context, authURL *url.URL) (callback *url.URL, err error)
}

// RedirectAuthenticatorFunc adapts a function to RedirectAuthenticator.
type RedirectAuthenticatorFunc func(ctx context.Context, authURL *url.URL) (*url.URL, error)

func (f RedirectAuthenticatorFunc) Authenticate(ctx context.Context, authURL *url.URL) (*url.URL, error) {
	return f(ctx, authURL)
}

// TransferResult is the outcome of a flow that may pivot between sign-in
// and sign-up. Exactly one field is set.
type TransferResult struct {
	SignIn *SignIn
	SignUp *SignUp
}

const rotatingTokenNonceParam = "rotating_token_nonce"

// SignInWithRedirect creates a redirect sign-in and completes it.
func (c *SDKClient) SignInWithRedirect(ctx context.Context, create strategy.SignInCreate, auth RedirectAuthenticator) (*TransferResult, error) {
	si, err := c.SignIn(ctx, create)
	if err != nil {
		return nil, err
	}
	return si.AuthenticateWithRedirect(ctx, auth)
}

// SignUpWithRedirect creates a redirect sign-up and completes it.
func (c *SDKClient) SignUpWithRedirect(ctx context.Context, create strategy.SignUpCreate, auth RedirectAuthenticator) (*TransferResult, error) {
	su, err := c.SignUp(ctx, create)
	if err != nil {
		return nil, err
	}
	return su.AuthenticateWithRedirect(ctx, auth)
}

// AuthenticateWithRedirect runs the external session for the first factor.
// A callback carrying a rotating token nonce resolves this sign-in. Without
// one, the client is re-fetched, and a transferable first factor turns the
// attempt into a sign-up.
func (s *SignIn) AuthenticateWithRedirect(ctx context.Context, auth RedirectAuthenticator) (*TransferResult, error) {
	const op = "sign_in.authenticate_with_redirect"
	if err := s.ready(op); err != nil {
		return nil, err
	}

	var redirect string
	if v := s.FirstFactorVerification; v != nil {
		redirect = v.ExternalVerificationRedirectURL
	}
	callback, err := runRedirect(ctx, op, redirect, auth)
	if err != nil {
		return nil, err
	}

	if nonce := callback.Query().Get(rotatingTokenNonceParam); nonce != "" {
		si, err := s.Get(ctx, nonce)
		if err != nil {
			return nil, err
		}
		return &TransferResult{SignIn: si}, nil
	}

	client, err := s.client.fetchClient(ctx)
	if err != nil {
		return nil, err
	}

	si := s.client.bindSignIn(clientSignIn(client))
	if si == nil {
		if si, err = s.Get(ctx, ""); err != nil {
			return nil, err
		}
	}

	if v := si.FirstFactorVerification; v != nil && v.Status == VerificationTransferable {
		su, err := s.client.SignUp(ctx, strategy.Transfer{})
		if err != nil {
			return nil, err
		}
		return &TransferResult{SignUp: su}, nil
	}
	return &TransferResult{SignIn: si}, nil
}

// AuthenticateWithRedirect mirrors SignIn.AuthenticateWithRedirect: an
// external account that already exists turns the sign-up into a sign-in.
func (s *SignUp) AuthenticateWithRedirect(ctx context.Context, auth RedirectAuthenticator) (*TransferResult, error) {
	const op = "sign_up.authenticate_with_redirect"
	if err := s.ready(op); err != nil {
		return nil, err
	}

	var redirect string
	if v, ok := s.Verification(FieldExternalAccount); ok {
		redirect = v.ExternalVerificationRedirectURL
	}
	callback, err := runRedirect(ctx, op, redirect, auth)
	if err != nil {
		return nil, err
	}

	if nonce := callback.Query().Get(rotatingTokenNonceParam); nonce != "" {
		su, err := s.Get(ctx, nonce)
		if err != nil {
			return nil, err
		}
		return &TransferResult{SignUp: su}, nil
	}

	client, err := s.client.fetchClient(ctx)
	if err != nil {
		return nil, err
	}

	su := clientSignUp(client)
	if su == nil {
		if su, err = s.Get(ctx, ""); err != nil {
			return nil, err
		}
	}
	su.client = s.client

	if v, ok := su.Verification(FieldExternalAccount); ok && v.Status == VerificationTransferable {
		si, err := s.client.SignIn(ctx, strategy.Transfer{})
		if err != nil {
			return nil, err
		}
		return &TransferResult{SignIn: si}, nil
	}
	return &TransferResult{SignUp: su}, nil
}

func runRedirect(ctx context.Context, op, redirect string, auth RedirectAuthenticator) (*url.URL, error) {
	if redirect == "" {
		return nil, clientErr(op, "no external verification redirect url")
	}
	authURL, err := url.Parse(redirect)
	if err != nil || !authURL.IsAbs() {
		return nil, &ClientError{Op: op, Message: fmt.Sprintf("invalid external verification redirect url %q", redirect), Err: err}
	}
	if auth == nil {
		return nil, clientErr(op, "no redirect authenticator")
	}

	callback, err := auth.Authenticate(ctx, authURL)
	if err != nil {
		return nil, fmt.Errorf("%s: external authentication: %w", op, err)
	}
	if callback == nil {
		return nil, clientErr(op, "external authentication returned no callback url")
	}
	return callback, nil
}

func clientSignIn(c *Client) *SignIn {
	if c == nil || c.SignIn == nil {
		return nil
	}
	si := *c.SignIn
	return &si
}

func clientSignUp(c *Client) *SignUp {
	if c == nil || c.SignUp == nil {
		return nil
	}
	su := *c.SignUp
	return &su
}
