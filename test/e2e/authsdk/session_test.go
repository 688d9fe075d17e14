package authsdk_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/authsession/internal/devbackend/app"
	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/aussiebroadwan/authsession/pkg/localstore"
	"github.com/aussiebroadwan/authsession/pkg/strategy"
)

// signedIn returns an SDK with an active session for a fresh user.
func signedIn(t *testing.T, ds *devServer, email string) (*authsdk.SDKClient, localstore.Store) {
	t.Helper()
	createUser(t, ds, service.UserSeed{EmailAddress: email, Password: testPassword})
	sdk, store := newSDK(t, ds)
	si, err := sdk.SignIn(t.Context(), strategy.Identifier{Identifier: email, Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, authsdk.SignInComplete, si.Status)
	return sdk, store
}

func TestSessionTokens(t *testing.T) {
	ds := setupDevBackend(t)
	sdk, _ := signedIn(t, ds, "ada@example.com")
	ctx := t.Context()

	token, err := sdk.GetToken(ctx, authsdk.TokenOptions{})
	require.NoError(t, err)

	signer, err := jwtx.NewHS256Signer("", []byte(tokenSecret))
	require.NoError(t, err)
	claims, err := signer.Verify(token, time.Now())
	require.NoError(t, err)
	require.Equal(t, sdk.ActiveSessionID(), claims.SID)
	require.Contains(t, claims.AMR, "pwd")

	t.Run("cached until close to expiry", func(t *testing.T) {
		before := ds.tokenRequests.Load()
		again, err := sdk.GetToken(ctx, authsdk.TokenOptions{})
		require.NoError(t, err)
		require.Equal(t, token, again)
		require.Equal(t, before, ds.tokenRequests.Load())
	})

	t.Run("skip cache mints a new token", func(t *testing.T) {
		before := ds.tokenRequests.Load()
		_, err := sdk.GetToken(ctx, authsdk.TokenOptions{SkipCache: true})
		require.NoError(t, err)
		require.Equal(t, before+1, ds.tokenRequests.Load())
	})

	t.Run("concurrent callers share one request per template", func(t *testing.T) {
		before := ds.tokenRequests.Load()

		var wg sync.WaitGroup
		tokens := make([]string, 8)
		for i := range tokens {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tok, err := sdk.GetToken(ctx, authsdk.TokenOptions{Template: "hasura"})
				assert.NoError(t, err)
				tokens[i] = tok
			}()
		}
		wg.Wait()

		require.Equal(t, before+1, ds.tokenRequests.Load())
		for _, tok := range tokens {
			require.Equal(t, tokens[0], tok)
		}

		claims, err := jwtx.ParseUnverified(tokens[0])
		require.NoError(t, err)
		require.Equal(t, "hasura", claims.Template)
	})
}

func TestSignOut(t *testing.T) {
	ds := setupDevBackend(t)
	ctx := t.Context()

	t.Run("one session", func(t *testing.T) {
		sdk, store := signedIn(t, ds, "one@example.com")
		events, cancel := sdk.Subscribe(4)
		defer cancel()

		sessionID := sdk.ActiveSessionID()
		_, err := sdk.GetToken(ctx, authsdk.TokenOptions{})
		require.NoError(t, err)

		require.NoError(t, sdk.SignOut(ctx, sessionID))
		require.Empty(t, sdk.ActiveSessionID())

		select {
		case e := <-events:
			require.Equal(t, authsdk.EventSignedOut, e.Type)
			require.Equal(t, sessionID, e.Session.ID)
		case <-time.After(time.Second):
			t.Fatal("no signed out event")
		}

		_, err = sdk.GetToken(ctx, authsdk.TokenOptions{})
		require.ErrorIs(t, err, authsdk.ErrNoActiveSession)

		_, err = store.Get(ctx, localstore.KeyActiveSessionID)
		require.ErrorIs(t, err, localstore.ErrNotFound)
	})

	t.Run("every session", func(t *testing.T) {
		sdk, _ := signedIn(t, ds, "all@example.com")

		require.NoError(t, sdk.SignOut(ctx, ""))
		require.Empty(t, sdk.ActiveSessionID())
		require.Empty(t, sdk.Client().ActiveSessions())
	})
}

func TestRestoreFromStore(t *testing.T) {
	ds := setupDevBackend(t)
	first, store := signedIn(t, ds, "ada@example.com")
	sessionID := first.ActiveSessionID()
	require.NoError(t, first.Close())

	// A restarted app picks up the device and session from its store
	restarted, _ := newSDK(t, ds, func(cfg *authsdk.Config) { cfg.Store = store })
	require.Equal(t, sessionID, restarted.ActiveSessionID())

	token, err := restarted.GetToken(t.Context(), authsdk.TokenOptions{})
	require.NoError(t, err)
	claims, err := jwtx.ParseUnverified(token)
	require.NoError(t, err)
	require.Equal(t, sessionID, claims.SID)
}

func TestRateLimitedRequestsAreRetried(t *testing.T) {
	ds := setupDevBackend(t)
	sdk, _ := signedIn(t, ds, "ada@example.com")
	path := "/v1/client/sessions/" + sdk.ActiveSessionID() + "/tokens"

	t.Run("one throttled attempt is retried", func(t *testing.T) {
		armFault(t, ds, http.MethodPost, path, http.StatusTooManyRequests, 1, 1)

		before := ds.tokenRequests.Load()
		token, err := sdk.GetToken(t.Context(), authsdk.TokenOptions{SkipCache: true})
		require.NoError(t, err)
		require.NotEmpty(t, token)
		require.Equal(t, before+2, ds.tokenRequests.Load())
	})

	t.Run("the retry budget is one attempt", func(t *testing.T) {
		armFault(t, ds, http.MethodPost, path, http.StatusTooManyRequests, 2, 1)

		before := ds.tokenRequests.Load()
		_, err := sdk.GetToken(t.Context(), authsdk.TokenOptions{SkipCache: true})
		require.Error(t, err)
		require.True(t, authsdk.IsCode(err, "injected_fault"))
		require.Equal(t, before+2, ds.tokenRequests.Load())
	})
}

func TestServerErrorsSurface(t *testing.T) {
	ds := setupDevBackend(t)
	sdk, _ := signedIn(t, ds, "ada@example.com")

	path := "/v1/client/sessions/" + sdk.ActiveSessionID() + "/tokens"
	armFault(t, ds, http.MethodPost, path, http.StatusInternalServerError, 1, 0)

	_, err := sdk.GetToken(t.Context(), authsdk.TokenOptions{})
	require.Error(t, err)
	require.True(t, authsdk.IsCode(err, "injected_fault"))

	// The failure is not cached
	_, err = sdk.GetToken(t.Context(), authsdk.TokenOptions{})
	require.NoError(t, err)
}

func TestDeviceAssertion(t *testing.T) {
	ds := setupDevBackend(t, func(cfg *app.Config) { cfg.RequireAssertion = true })
	createUser(t, ds, service.UserSeed{EmailAddress: "ada@example.com", Password: testPassword})

	t.Run("attested device is served", func(t *testing.T) {
		var asserts atomic.Int32
		sdk, store := newSDK(t, ds, func(cfg *authsdk.Config) {
			cfg.DeviceAttester = authsdk.DeviceAttesterFunc(func(_ context.Context, clientID string) (string, error) {
				asserts.Add(1)
				return "assertion-for-" + clientID, nil
			})
		})
		require.Equal(t, int32(1), asserts.Load())

		token, err := store.Get(t.Context(), localstore.KeyDeviceToken)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		si, err := sdk.SignIn(t.Context(), strategy.Identifier{Identifier: "ada@example.com", Password: testPassword})
		require.NoError(t, err)
		require.Equal(t, authsdk.SignInComplete, si.Status)
		require.Equal(t, int32(1), asserts.Load())
	})

	t.Run("without an attester the error reaches the caller", func(t *testing.T) {
		sdk, err := authsdk.NewSDKClient(authsdk.Config{BaseURL: ds.URL, DisableTokenPolling: true})
		require.NoError(t, err)
		defer sdk.Close()

		_, err = sdk.Load(t.Context())
		require.True(t, authsdk.IsCode(err, authsdk.CodeRequiresAssertion))
	})
}
