package authsdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

const oauthSignIn = `{"response": {
	"object": "sign_in_attempt", "id": "sia_1", "status": "needs_first_factor",
	"first_factor_verification": {
		"status": "unverified", "strategy": "oauth_google",
		"external_verification_redirect_url": "https://accounts.example.com/o/oauth2/auth?state=abc"
	}
}}`

// callbackTo returns an authenticator that checks the auth URL and returns
// the given callback.
func callbackTo(t *testing.T, callback string) authsdk.RedirectAuthenticator {
	return authsdk.RedirectAuthenticatorFunc(func(_ context.Context, authURL *url.URL) (*url.URL, error) {
		require.Equal(t, "accounts.example.com", authURL.Host)
		return url.Parse(callback)
	})
}

func TestSignInWithRedirect(t *testing.T) {
	t.Parallel()

	t.Run("nonce resolves the sign-in", func(t *testing.T) {
		t.Parallel()
		backend, srv := newFakeBackend(t)
		backend.reply(http.MethodPost, "/v1/client/sign_ins", oauthSignIn)
		backend.reply(http.MethodGet, "/v1/client/sign_ins/sia_1", `{"response": {
			"object": "sign_in_attempt", "id": "sia_1", "status": "complete", "created_session_id": "sess_1"
		}}`)

		sdk, _ := newSDK(t, srv.URL)
		res, err := sdk.SignInWithRedirect(context.Background(), strategy.OAuth{Provider: "google"},
			callbackTo(t, "authsession://callback?rotating_token_nonce=n0nce"))
		require.NoError(t, err)
		require.Nil(t, res.SignUp)
		require.Equal(t, authsdk.SignInComplete, res.SignIn.Status)

		require.Equal(t, "oauth_google", backend.form(http.MethodPost, "/v1/client/sign_ins").Get("strategy"))
		require.Equal(t, authsdk.DefaultRedirectURL, backend.form(http.MethodPost, "/v1/client/sign_ins").Get("redirect_url"))
		require.Equal(t, "n0nce", backend.form(http.MethodGet, "/v1/client/sign_ins/sia_1").Get("rotating_token_nonce"))
	})

	t.Run("transferable identity becomes a sign-up", func(t *testing.T) {
		t.Parallel()
		backend, srv := newFakeBackend(t)
		backend.reply(http.MethodPost, "/v1/client/sign_ins", oauthSignIn)
		backend.reply(http.MethodGet, "/v1/client", `{"response": {
			"object": "client", "id": "client_1", "sessions": [],
			"sign_in": {
				"object": "sign_in_attempt", "id": "sia_1", "status": "needs_first_factor",
				"first_factor_verification": {"status": "transferable", "strategy": "oauth_google"}
			}
		}}`)
		backend.reply(http.MethodPost, "/v1/client/sign_ups", `{"response": {
			"object": "sign_up_attempt", "id": "sua_1", "status": "complete",
			"created_session_id": "sess_1", "created_user_id": "user_1"
		}}`)

		sdk, _ := newSDK(t, srv.URL)
		res, err := sdk.SignInWithRedirect(context.Background(), strategy.OAuth{Provider: "google"},
			callbackTo(t, "authsession://callback"))
		require.NoError(t, err)
		require.Nil(t, res.SignIn)
		require.Equal(t, "sua_1", res.SignUp.ID)
		require.Equal(t, "1", backend.form(http.MethodPost, "/v1/client/sign_ups").Get("transfer"))
	})

	t.Run("missing redirect url", func(t *testing.T) {
		t.Parallel()
		backend, srv := newFakeBackend(t)
		backend.reply(http.MethodPost, "/v1/client/sign_ins", `{"response": {
			"object": "sign_in_attempt", "id": "sia_1", "status": "needs_first_factor"
		}}`)

		called := false
		auth := authsdk.RedirectAuthenticatorFunc(func(context.Context, *url.URL) (*url.URL, error) {
			called = true
			return nil, nil
		})

		sdk, _ := newSDK(t, srv.URL)
		_, err := sdk.SignInWithRedirect(context.Background(), strategy.OAuth{Provider: "google"}, auth)
		var clientErr *authsdk.ClientError
		require.ErrorAs(t, err, &clientErr)
		require.False(t, called)
	})

	t.Run("authenticator failure", func(t *testing.T) {
		t.Parallel()
		backend, srv := newFakeBackend(t)
		backend.reply(http.MethodPost, "/v1/client/sign_ins", oauthSignIn)

		cancelled := errors.New("user cancelled")
		auth := authsdk.RedirectAuthenticatorFunc(func(context.Context, *url.URL) (*url.URL, error) {
			return nil, cancelled
		})

		sdk, _ := newSDK(t, srv.URL)
		_, err := sdk.SignInWithRedirect(context.Background(), strategy.OAuth{Provider: "google"}, auth)
		require.ErrorIs(t, err, cancelled)
		require.Zero(t, backend.count(http.MethodGet, "/v1/client"))
	})
}

func TestSignUpWithRedirectTransfersToSignIn(t *testing.T) {
	t.Parallel()

	backend, srv := newFakeBackend(t)
	backend.reply(http.MethodPost, "/v1/client/sign_ups", `{"response": {
		"object": "sign_up_attempt", "id": "sua_1", "status": "missing_requirements",
		"verifications": {"external_account": {
			"status": "unverified", "strategy": "oauth_github",
			"external_verification_redirect_url": "https://accounts.example.com/login/oauth/authorize"
		}}
	}}`)
	backend.reply(http.MethodGet, "/v1/client", `{"response": {
		"object": "client", "id": "client_1", "sessions": [],
		"sign_up": {
			"object": "sign_up_attempt", "id": "sua_1", "status": "missing_requirements",
			"verifications": {"external_account": {"status": "transferable", "strategy": "oauth_github"}}
		}
	}}`)
	backend.reply(http.MethodPost, "/v1/client/sign_ins", `{
		"response": {"object": "sign_in_attempt", "id": "sia_1", "status": "complete", "created_session_id": "sess_1"},
		"client": {
			"object": "client", "id": "client_1",
			"sessions": [{"object": "session", "id": "sess_1", "status": "active"}],
			"last_active_session_id": "sess_1"
		}
	}`)

	sdk, _ := newSDK(t, srv.URL)
	res, err := sdk.SignUpWithRedirect(context.Background(), strategy.OAuth{Provider: "github"},
		callbackTo(t, "authsession://callback"))
	require.NoError(t, err)
	require.Nil(t, res.SignUp)
	require.Equal(t, authsdk.SignInComplete, res.SignIn.Status)
	require.Equal(t, "1", backend.form(http.MethodPost, "/v1/client/sign_ins").Get("transfer"))
	require.Equal(t, "sess_1", sdk.ActiveSessionID())
}

func TestSignInWithPasskey(t *testing.T) {
	t.Parallel()

	backend, srv := newFakeBackend(t)
	backend.reply(http.MethodPost, "/v1/client/sign_ins", `{"response": {
		"object": "sign_in_attempt", "id": "sia_1", "status": "needs_first_factor",
		"supported_first_factors": [{"strategy": "passkey"}]
	}}`)
	backend.reply(http.MethodPost, "/v1/client/sign_ins/sia_1/prepare_first_factor", `{"response": {
		"object": "sign_in_attempt", "id": "sia_1", "status": "needs_first_factor",
		"first_factor_verification": {"status": "unverified", "strategy": "passkey", "nonce": "challenge-1"}
	}}`)
	backend.reply(http.MethodPost, "/v1/client/sign_ins/sia_1/attempt_first_factor", `{"response": {
		"object": "sign_in_attempt", "id": "sia_1", "status": "complete", "created_session_id": "sess_1"
	}}`)

	sdk, _ := newSDK(t, srv.URL)
	si, err := sdk.SignInWithPasskey(context.Background(), authsdk.PasskeyProviderFunc(func(_ context.Context, challenge string) (string, error) {
		require.Equal(t, "challenge-1", challenge)
		return `{"id":"pk_1","challenge":"challenge-1"}`, nil
	}))
	require.NoError(t, err)
	require.Equal(t, authsdk.SignInComplete, si.Status)

	require.Equal(t, "passkey", backend.form(http.MethodPost, "/v1/client/sign_ins").Get("strategy"))
	require.JSONEq(t, `{"id":"pk_1","challenge":"challenge-1"}`,
		backend.form(http.MethodPost, "/v1/client/sign_ins/sia_1/attempt_first_factor").Get("public_key_credential"))
}

func TestSignInWithIDToken(t *testing.T) {
	t.Parallel()

	t.Run("known identity signs in", func(t *testing.T) {
		t.Parallel()
		backend, srv := newFakeBackend(t)
		backend.reply(http.MethodPost, "/v1/client/sign_ins", `{"response": {
			"object": "sign_in_attempt", "id": "sia_1", "status": "complete", "created_session_id": "sess_1"
		}}`)

		sdk, _ := newSDK(t, srv.URL)
		res, err := sdk.SignInWithIDToken(context.Background(), "apple", "id.token.value")
		require.NoError(t, err)
		require.Equal(t, "sia_1", res.SignIn.ID)

		form := backend.form(http.MethodPost, "/v1/client/sign_ins")
		require.Equal(t, "oauth_token_apple", form.Get("strategy"))
		require.Equal(t, "id.token.value", form.Get("token"))
	})

	t.Run("unknown identity transfers", func(t *testing.T) {
		t.Parallel()
		backend, srv := newFakeBackend(t)
		backend.reply(http.MethodPost, "/v1/client/sign_ins", `{"response": {
			"object": "sign_in_attempt", "id": "sia_1", "status": "needs_identifier",
			"first_factor_verification": {"status": "transferable", "strategy": "oauth_token_apple"}
		}}`)
		backend.reply(http.MethodPost, "/v1/client/sign_ups", `{"response": {
			"object": "sign_up_attempt", "id": "sua_1", "status": "complete",
			"created_session_id": "sess_1", "created_user_id": "user_1"
		}}`)

		sdk, _ := newSDK(t, srv.URL)
		res, err := sdk.SignInWithIDToken(context.Background(), "apple", "id.token.value")
		require.NoError(t, err)
		require.Equal(t, "sua_1", res.SignUp.ID)
	})

	t.Run("requires a token", func(t *testing.T) {
		t.Parallel()
		sdk, _ := newSDK(t, "http://127.0.0.1:0")
		_, err := sdk.SignInWithIDToken(context.Background(), "apple", "")
		var clientErr *authsdk.ClientError
		require.ErrorAs(t, err, &clientErr)
	})
}
