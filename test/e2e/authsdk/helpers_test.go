package authsdk_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/authsession/internal/devbackend/app"
	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/localstore"
	"github.com/aussiebroadwan/authsession/pkg/localstore/drivers/memory"
)

/*
 * Shared setup for the SDK end-to-end tests. Every test gets its own dev
 * backend served in-process, so tests never share users or rate limits.
 */

const (
	testPassword = "Correct-Horse-42"
	tokenSecret  = "e2e-token-secret-0123456789abcdef"
)

type devServer struct {
	URL     string
	Backend *service.Backend

	// tokenRequests counts session token mints reaching the backend
	tokenRequests atomic.Int64
}

// setupDevBackend starts a dev backend. The public URL is the test server's
// own address so OAuth consent links resolve.
func setupDevBackend(t *testing.T, mutate ...func(*app.Config)) *devServer {
	t.Helper()

	srv := httptest.NewUnstartedServer(nil)
	publicURL := "http://" + srv.Listener.Addr().String()

	cfg := app.Config{
		TokenSecret:          tokenSecret,
		PublicURL:            publicURL,
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "json",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Minute,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	application, err := app.New(cfg)
	require.NoError(t, err)

	ds := &devServer{URL: publicURL, Backend: application.Backend()}
	handler := application.Handler()
	srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/tokens") {
			ds.tokenRequests.Add(1)
		}
		handler.ServeHTTP(w, r)
	})
	srv.Start()
	t.Cleanup(srv.Close)

	return ds
}

// newSDK builds a loaded SDK client against ds. Token polling is off so
// request counts stay deterministic.
func newSDK(t *testing.T, ds *devServer, mutate ...func(*authsdk.Config)) (*authsdk.SDKClient, localstore.Store) {
	t.Helper()

	store := memory.New()
	cfg := authsdk.Config{
		BaseURL:             ds.URL,
		ClientID:            "e2e",
		Store:               store,
		DisableTokenPolling: true,
		RetryMinWait:        10 * time.Millisecond,
		RetryMaxWait:        50 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	sdk, err := authsdk.NewSDKClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sdk.Close() })

	_, err = sdk.Load(t.Context())
	require.NoError(t, err)
	return sdk, store
}

func createUser(t *testing.T, ds *devServer, seed service.UserSeed) service.SeededUser {
	t.Helper()
	user, err := ds.Backend.CreateUser(context.Background(), seed)
	require.NoError(t, err)
	return user
}

// armFault makes the next count requests to method and path fail.
func armFault(t *testing.T, ds *devServer, method, path string, status, count, retryAfter int) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"method":      method,
		"path":        path,
		"status":      status,
		"count":       count,
		"retry_after": retryAfter,
	})
	require.NoError(t, err)

	resp, err := http.Post(ds.URL+"/v1/dev/faults", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// consentAs returns an authenticator that plays the user consenting at the
// dev backend's provider page as email.
func consentAs(t *testing.T, email string) authsdk.RedirectAuthenticator {
	t.Helper()
	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	return authsdk.RedirectAuthenticatorFunc(func(ctx context.Context, authURL *url.URL) (*url.URL, error) {
		u := *authURL
		q := u.Query()
		q.Set("email", email)
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := noRedirect.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		return url.Parse(resp.Header.Get("Location"))
	})
}
