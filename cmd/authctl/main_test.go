package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	httpapi "github.com/aussiebroadwan/authsession/internal/devbackend/http"
	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

type harness struct {
	backend   *service.Backend
	url       string
	stateFile string

	// stateDB switches device state to the sqlite store when set
	stateDB string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend, err := service.New(service.Options{PublicURL: "http://dev.test"}, nil)
	require.NoError(t, err)

	router := httpapi.NewRouter(backend, "test", slogx.Discard())
	router.ApplyRoutes()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &harness{
		backend:   backend,
		url:       srv.URL,
		stateFile: filepath.Join(t.TempDir(), "state.json"),
	}
}

// run executes authctl with stdin fed from input and returns what it wrote
// to stdout.
func (h *harness) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	app := newApp()
	app.Reader = strings.NewReader(input)
	app.Writer = &stdout
	app.ErrWriter = &stderr

	argv := append([]string{
		"authctl",
		"--backend", h.url,
		"--state-file", h.stateFile,
		"--store-key", "correct horse battery staple",
	}, args...)
	if h.stateDB != "" {
		argv = slices.Insert(argv, 1, "--state-db", h.stateDB)
	}
	err := app.Run(argv)
	t.Logf("authctl %s\nstdout: %s\nstderr: %s", strings.Join(args, " "), stdout.String(), stderr.String())
	return stdout.String(), err
}

func TestTOTPCode(t *testing.T) {
	const secret = "JBSWY3DPEHPK3PXP"
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	want, err := totp.GenerateCode(secret, at)
	require.NoError(t, err)

	var stdout bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	require.NoError(t, app.Run([]string{"authctl", "totp", "code", "--at", at.Format(time.RFC3339), secret}))
	require.Equal(t, want, strings.TrimSpace(stdout.String()))

	require.Error(t, newApp().Run([]string{"authctl", "totp", "code"}))
}

func TestSignInTokenSignOut(t *testing.T) {
	h := newHarness(t)
	user, err := h.backend.CreateUser(context.Background(), service.UserSeed{
		EmailAddress: "ada@example.com",
		Password:     "analytical-engine",
		TOTP:         true,
	})
	require.NoError(t, err)

	out, err := h.run(t, "", "signin", "-i", "ada@example.com", "-p", "analytical-engine", "--totp-secret", user.TOTPSecret)
	require.NoError(t, err)
	require.Contains(t, out, "signed in, session sess_")
	sessionID := strings.TrimSpace(strings.TrimPrefix(out, "signed in, session "))

	t.Run("device state is sealed at rest", func(t *testing.T) {
		raw, err := os.ReadFile(h.stateFile)
		require.NoError(t, err)
		require.Contains(t, string(raw), "active_session_id")
		require.NotContains(t, string(raw), sessionID)
	})

	t.Run("sessions marks the active one", func(t *testing.T) {
		out, err := h.run(t, "", "sessions")
		require.NoError(t, err)
		require.Contains(t, out, sessionID)
		require.Contains(t, out, "ada@example.com")
		require.Contains(t, out, "*")
	})

	t.Run("token claims name the session", func(t *testing.T) {
		out, err := h.run(t, "", "token", "--claims", "-t", "hasura")
		require.NoError(t, err)
		require.Contains(t, out, `"sid": "`+sessionID+`"`)
		require.Contains(t, out, `"tpl": "hasura"`)
	})

	out, err = h.run(t, "", "signout")
	require.NoError(t, err)
	require.Contains(t, out, "signed out of "+sessionID)

	_, err = h.run(t, "", "token")
	require.ErrorContains(t, err, "not signed in")
}

func TestSignInPromptsForEmailCode(t *testing.T) {
	h := newHarness(t)
	_, err := h.backend.CreateUser(context.Background(), service.UserSeed{EmailAddress: "grace@example.com"})
	require.NoError(t, err)

	out, err := h.run(t, service.DefaultCode+"\n", "signin", "-i", "grace@example.com", "--prefer", "otp")
	require.NoError(t, err)
	require.Contains(t, out, "signed in")
}

func TestSignInWrongCode(t *testing.T) {
	h := newHarness(t)
	_, err := h.backend.CreateUser(context.Background(), service.UserSeed{EmailAddress: "grace@example.com"})
	require.NoError(t, err)

	_, err = h.run(t, "", "signin", "-i", "grace@example.com", "--code", "000000")
	require.Error(t, err)
}

func TestSignUpPromptsForMissingFields(t *testing.T) {
	h := newHarness(t)

	input := "a-long-password\n" + service.DefaultCode + "\n"
	out, err := h.run(t, input, "signup", "--email", "linus@example.com", "--metadata", `{"plan":"free"}`)
	require.NoError(t, err)
	require.Contains(t, out, "signed up as")

	out, err = h.run(t, "", "sessions")
	require.NoError(t, err)
	require.Contains(t, out, "linus@example.com")

	t.Run("rejects malformed metadata", func(t *testing.T) {
		_, err := h.run(t, "", "signup", "--email", "x@example.com", "--metadata", "[1,2]")
		require.ErrorContains(t, err, "JSON object")
	})
}

func TestSQLiteState(t *testing.T) {
	h := newHarness(t)
	h.stateDB = filepath.Join(t.TempDir(), "state.db")
	_, err := h.backend.CreateUser(context.Background(), service.UserSeed{EmailAddress: "ada@example.com", Password: "analytical-engine"})
	require.NoError(t, err)

	out, err := h.run(t, "", "signin", "-i", "ada@example.com", "-p", "analytical-engine")
	require.NoError(t, err)
	require.Contains(t, out, "signed in")

	out, err = h.run(t, "", "sessions")
	require.NoError(t, err)
	require.Contains(t, out, "ada@example.com")

	// Nothing went to the state file
	_, err = os.Stat(h.stateFile)
	require.ErrorIs(t, err, os.ErrNotExist)
}
