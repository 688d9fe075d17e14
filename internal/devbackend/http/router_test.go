package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

func newTestServer(t *testing.T) (*httptest.Server, *service.Backend) {
	t.Helper()
	backend, err := service.New(service.Options{PublicURL: "http://dev.test"}, nil)
	require.NoError(t, err)

	router := NewRouter(backend, "test", slogx.Discard())
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, backend
}

// call sends a form request with an optional device token.
func call(t *testing.T, srv *httptest.Server, method, path, token string, form url.Values) *http.Response {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type envelopeOf[T any] struct {
	Response T               `json:"response"`
	Client   *authsdk.Client `json:"client"`
}

func TestClientEndpoints(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp := call(t, srv, http.MethodGet, "/v1/client", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Cache-Control"), "no-store")
	empty := decodeJSON[envelopeOf[*authsdk.Client]](t, resp)
	require.Nil(t, empty.Response)

	resp = call(t, srv, http.MethodPost, "/v1/client", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := resp.Header.Get("Authorization")
	require.NotEmpty(t, token)
	created := decodeJSON[envelopeOf[authsdk.Client]](t, resp)
	require.Equal(t, "client", created.Response.Object)

	resp = call(t, srv, http.MethodGet, "/v1/client", "Bearer "+token, nil)
	fetched := decodeJSON[envelopeOf[authsdk.Client]](t, resp)
	require.Equal(t, created.Response.ID, fetched.Response.ID)
	require.Empty(t, resp.Header.Get("Authorization"))
}

func TestPasswordSignInOverHTTP(t *testing.T) {
	t.Parallel()
	srv, backend := newTestServer(t)
	_, err := backend.CreateUser(t.Context(), service.UserSeed{EmailAddress: "user@example.com", Password: "hunter22"})
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		resp := call(t, srv, http.MethodPost, "/v1/client/sign_ins", "", url.Values{
			"identifier": {"user@example.com"},
			"password":   {"nope"},
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		body := decodeJSON[httpx.ErrorBody](t, resp)
		require.Len(t, body.Errors, 1)
		require.Equal(t, authsdk.CodeFormPasswordIncorrect, body.Errors[0].Code)
		require.Equal(t, "password", body.Errors[0].Meta["param_name"])
		require.NotEmpty(t, body.TraceID)
		require.Equal(t, resp.Header.Get("X-Request-ID"), body.TraceID)
	})

	t.Run("complete", func(t *testing.T) {
		resp := call(t, srv, http.MethodPost, "/v1/client/sign_ins", "", url.Values{
			"identifier": {"user@example.com"},
			"password":   {"hunter22"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		token := resp.Header.Get("Authorization")
		require.NotEmpty(t, token)

		env := decodeJSON[envelopeOf[authsdk.SignIn]](t, resp)
		require.Equal(t, authsdk.SignInComplete, env.Response.Status)
		require.Equal(t, env.Response.CreatedSessionID, env.Client.LastActiveSessionID)

		resp = call(t, srv, http.MethodPost, "/v1/client/sessions/"+env.Response.CreatedSessionID+"/tokens/hasura", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		tok := decodeJSON[envelopeOf[authsdk.TokenResource]](t, resp)
		require.NotEmpty(t, tok.Response.JWT)
		require.Nil(t, tok.Client)

		resp = call(t, srv, http.MethodDelete, "/v1/client", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decodeJSON[envelopeOf[authsdk.Client]](t, resp)
		require.Empty(t, out.Response.ActiveSessions())
	})
}

func TestFormValidation(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/client/sign_ins", strings.NewReader(`{"identifier":"x"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, srv, http.MethodPost, "/v1/client/sign_ups", "", url.Values{
		"email_address":   {"new@example.com"},
		"unsafe_metadata": {"not json"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeJSON[httpx.ErrorBody](t, resp)
	require.Equal(t, "unsafe_metadata", body.Errors[0].Meta["param_name"])
}

func TestSignUpMetadataRoundTrip(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp := call(t, srv, http.MethodPost, "/v1/client/sign_ups", "", url.Values{
		"email_address":   {"new@example.com"},
		"unsafe_metadata": {`{"plan":"pro"}`},
		"legal_accepted":  {"1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := resp.Header.Get("Authorization")
	env := decodeJSON[envelopeOf[authsdk.SignUp]](t, resp)
	require.Equal(t, "pro", env.Response.UnsafeMetadata["plan"])
	require.Equal(t, []string{"password"}, env.Response.MissingFields)

	resp = call(t, srv, http.MethodPatch, "/v1/client/sign_ups/"+env.Response.ID, token, url.Values{"password": {"correct-horse"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env = decodeJSON[envelopeOf[authsdk.SignUp]](t, resp)
	require.Empty(t, env.Response.MissingFields)
	require.Equal(t, env.Response.ID, env.Client.SignUp.ID)
}

func TestOAuthConsent(t *testing.T) {
	t.Parallel()
	srv, backend := newTestServer(t)
	_, err := backend.CreateUser(t.Context(), service.UserSeed{EmailAddress: "user@example.com"})
	require.NoError(t, err)

	resp := call(t, srv, http.MethodPost, "/v1/client/sign_ins", "", url.Values{
		"strategy":     {"oauth_github"},
		"redirect_url": {"authsession://callback"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeJSON[envelopeOf[authsdk.SignIn]](t, resp)

	consent, err := url.Parse(env.Response.FirstFactorVerification.ExternalVerificationRedirectURL)
	require.NoError(t, err)
	require.Equal(t, "github", consent.Query().Get("provider"))

	resp = call(t, srv, http.MethodGet, consent.RequestURI(), "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeJSON[httpx.ErrorBody](t, resp)
	require.Equal(t, "consent_required", body.Errors[0].Code)

	resp = call(t, srv, http.MethodGet, consent.RequestURI()+"&email=user%40example.com", "", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	callback, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "authsession", callback.Scheme)
	require.NotEmpty(t, callback.Query().Get("rotating_token_nonce"))
}

func TestFaultInjection(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	fault, err := json.Marshal(Fault{Method: "get", Path: "/v1/client", Status: 429, Code: "too_many_requests", Count: 2, RetryAfter: 3})
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/v1/dev/faults", "application/json", strings.NewReader(string(fault)))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	for range 2 {
		resp := call(t, srv, http.MethodGet, "/v1/client", "", nil)
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		require.Equal(t, "3", resp.Header.Get("Retry-After"))
		body := decodeJSON[httpx.ErrorBody](t, resp)
		require.Equal(t, "too_many_requests", body.Errors[0].Code)
	}

	resp = call(t, srv, http.MethodGet, "/v1/client", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFaultsArm(t *testing.T) {
	t.Parallel()

	fs := NewFaults()
	require.Error(t, fs.Arm(Fault{Path: "/v1/client", Status: 500}))
	require.Error(t, fs.Arm(Fault{Method: "GET", Path: "v1/client", Status: 500}))
	require.Error(t, fs.Arm(Fault{Method: "GET", Path: "/v1/client", Status: 200}))

	require.NoError(t, fs.Arm(Fault{Method: "GET", Path: "/v1/client", Status: 500}))
	require.NoError(t, fs.Arm(Fault{Method: "POST", Path: "/v1/client", Status: 503}))
	require.Equal(t, 2, fs.Len())

	req := httptest.NewRequest(http.MethodGet, "/v1/client", nil)
	f, ok := fs.take(req)
	require.True(t, ok)
	require.Equal(t, "injected_fault", f.Code)
	_, ok = fs.take(req)
	require.False(t, ok, "count defaults to a single shot")

	fs.Reset()
	require.Zero(t, fs.Len())
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp := call(t, srv, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "test", decodeJSON[HealthResponse](t, resp).Version)

	call(t, srv, http.MethodPost, "/v1/client", "", nil)
	resp = call(t, srv, http.MethodGet, "/readyz", "", nil)
	health := decodeJSON[HealthResponse](t, resp)
	require.NotNil(t, health.Stats)
	require.Equal(t, 1, health.Stats.Clients)
}
