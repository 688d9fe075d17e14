package authsdk_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/localstore"
	"github.com/aussiebroadwan/authsession/pkg/localstore/drivers/memory"
)

// fakeBackend answers canned responses keyed by "METHOD /path" and records
// what it received.
type fakeBackend struct {
	t *testing.T

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]int
	forms  map[string]url.Values
	auth   map[string]string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	f := &fakeBackend{
		t:      t,
		routes: map[string]http.HandlerFunc{},
		calls:  map[string]int{},
		forms:  map[string]url.Values{},
		auth:   map[string]string{},
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	_ = r.ParseForm()

	f.mu.Lock()
	f.calls[key]++
	f.forms[key] = r.Form
	f.auth[key] = r.Header.Get("Authorization")
	h, ok := f.routes[key]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"code":"resource_not_found","message":"no route `+key+`"}]}`)
		return
	}
	h(w, r)
}

func (f *fakeBackend) handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// reply answers method+path with a 200 JSON body.
func (f *fakeBackend) reply(method, path, body string) {
	f.handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})
}

func (f *fakeBackend) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

func (f *fakeBackend) form(method, path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forms[method+" "+path]
}

func (f *fakeBackend) authorization(method, path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth[method+" "+path]
}

func newSDK(t *testing.T, baseURL string, mutate ...func(*authsdk.Config)) (*authsdk.SDKClient, localstore.Store) {
	t.Helper()
	store := memory.New()
	cfg := authsdk.Config{
		BaseURL:             baseURL,
		ClientID:            "app_test",
		Store:               store,
		DisableTokenPolling: true,
		RetryMinWait:        time.Millisecond,
		RetryMaxWait:        10 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := authsdk.NewSDKClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, store
}
