package authsdk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

func TestSignUpWithEmailVerification(t *testing.T) {
	ds := setupDevBackend(t)
	sdk, _ := newSDK(t, ds)
	ctx := t.Context()

	events, cancel := sdk.Subscribe(4)
	defer cancel()

	su, err := sdk.SignUp(ctx, strategy.Standard{
		EmailAddress:   "new@example.com",
		FirstName:      "New",
		UnsafeMetadata: strategy.Metadata{"plan": "free", "seats": 3},
	})
	require.NoError(t, err)
	require.Equal(t, authsdk.SignUpMissingRequirements, su.Status)
	require.Contains(t, su.MissingFields, "password")
	require.Contains(t, su.UnverifiedFields, authsdk.FieldEmailAddress)
	require.Equal(t, "free", su.UnsafeMetadata["plan"])

	su, err = su.Update(ctx, authsdk.SignUpUpdate{Password: testPassword})
	require.NoError(t, err)
	require.Empty(t, su.MissingFields)

	su, err = su.PrepareVerification(ctx, strategy.EmailCode{})
	require.NoError(t, err)
	v, ok := su.Verification(authsdk.FieldEmailAddress)
	require.True(t, ok)
	require.Equal(t, authsdk.VerificationUnverified, v.Status)

	su, err = su.AttemptVerification(ctx, strategy.EmailCodeAttempt{Code: service.DefaultCode})
	require.NoError(t, err)
	require.Equal(t, authsdk.SignUpComplete, su.Status)
	require.True(t, su.IsComplete())
	require.Equal(t, su.CreatedSessionID, sdk.ActiveSessionID())

	select {
	case e := <-events:
		require.Equal(t, authsdk.EventSignUpCompleted, e.Type)
		require.Equal(t, su.ID, e.SignUp.ID)
	case <-time.After(time.Second):
		t.Fatal("no sign-up event")
	}

	// The new account can sign in elsewhere with its password
	other, _ := newSDK(t, ds)
	si, err := other.SignIn(ctx, strategy.Identifier{Identifier: "new@example.com", Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, authsdk.SignInComplete, si.Status)
}

func TestSignUpExistingIdentifier(t *testing.T) {
	ds := setupDevBackend(t)
	createUser(t, ds, service.UserSeed{EmailAddress: "taken@example.com"})
	sdk, _ := newSDK(t, ds)

	_, err := sdk.SignUp(t.Context(), strategy.Standard{EmailAddress: "taken@example.com", Password: testPassword})
	require.Error(t, err)
	require.Nil(t, sdk.Client().SignUp)
}

func TestOAuthRedirect(t *testing.T) {
	ds := setupDevBackend(t)
	ctx := t.Context()

	t.Run("known account signs in", func(t *testing.T) {
		createUser(t, ds, service.UserSeed{EmailAddress: "known@example.com"})
		sdk, _ := newSDK(t, ds)

		res, err := sdk.SignInWithRedirect(ctx, strategy.OAuth{Provider: "google"}, consentAs(t, "known@example.com"))
		require.NoError(t, err)
		require.Nil(t, res.SignUp)
		require.Equal(t, authsdk.SignInComplete, res.SignIn.Status)
		require.Equal(t, res.SignIn.CreatedSessionID, sdk.ActiveSessionID())
	})

	t.Run("new account transfers to sign-up", func(t *testing.T) {
		sdk, _ := newSDK(t, ds)

		res, err := sdk.SignInWithRedirect(ctx, strategy.OAuth{Provider: "github"}, consentAs(t, "fresh@example.com"))
		require.NoError(t, err)
		require.Nil(t, res.SignIn)
		require.Equal(t, authsdk.SignUpComplete, res.SignUp.Status)
		require.Equal(t, "fresh@example.com", res.SignUp.EmailAddress)
		require.Equal(t, res.SignUp.CreatedSessionID, sdk.ActiveSessionID())

		// The linked provider account now signs straight in
		again, _ := newSDK(t, ds)
		res, err = again.SignInWithRedirect(ctx, strategy.OAuth{Provider: "github"}, consentAs(t, "fresh@example.com"))
		require.NoError(t, err)
		require.Equal(t, authsdk.SignInComplete, res.SignIn.Status)
	})
}
