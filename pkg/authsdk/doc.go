/*
Package authsdk is a client SDK for the authentication session backend.

# Overview

An SDKClient manages one device's authentication state: the client snapshot
(sessions, the in-progress sign-in and sign-up), the device token, and a
cache of short lived session tokens. Every request goes through a pipeline
that prefixes proxy paths, form encodes bodies, attaches device headers,
retries rate limited requests once and resynchronizes the client when the
backend reports the device's auth as invalid.

	client, err := authsdk.NewSDKClient(authsdk.Config{
		BaseURL:  "https://auth.example.com",
		ClientID: "app_123",
	})
	if err != nil {
		return err
	}
	defer client.Close()

	if _, err := client.Load(ctx); err != nil {
		return err
	}

# Sign-in

Flows are driven by strategies from package strategy. Each operation sends
exactly one request and returns the refreshed attempt:

	si, err := client.SignIn(ctx, strategy.Identifier{Identifier: "user@example.com"})
	si, err = si.PrepareFirstFactor(ctx, strategy.EmailCode{})
	si, err = si.AttemptFirstFactor(ctx, strategy.EmailCodeAttempt{Code: "123456"})
	if si.Status == authsdk.SignInNeedsSecondFactor {
		si, err = si.AttemptSecondFactor(ctx, strategy.TOTPAttempt{Code: code})
	}

SelectFirstFactor and SelectSecondFactor pick a factor from what the backend
offers, following a configurable FactorPolicy.

# Redirects and transfers

Redirect strategies (OAuth, enterprise SSO) complete in an external session
run by a RedirectAuthenticator. The backend may decide that the identity
belongs to the other flow; the SDK then creates the other kind of attempt
with strategy.Transfer and returns it in a TransferResult:

	res, err := client.SignInWithRedirect(ctx, strategy.OAuth{Provider: "google"}, auth)
	if res.SignUp != nil {
		// new user, continue with the sign-up
	}

# Tokens

GetToken returns a token for the active session. Concurrent callers share
one request, and cached tokens are reused until they are within the
expiration buffer of expiring. While Load has started polling, the active
session's token is refreshed in the background.

# Errors

Backend errors are *APIError values carrying the backend's code; dispatch on
it with errors.As. Misuse of a flow, or a response missing something the
protocol requires, is a *ClientError. Neither is retried.

# Events

Subscribe delivers signInCompleted, signUpCompleted and signedOut events.
Slow subscribers lose events instead of blocking requests.
*/
package authsdk
