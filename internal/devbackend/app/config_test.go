package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DEVBACKEND_PUBLIC_URL", "HOUSEKEEPING_INTERVAL", "DEVBACKEND_REQUIRE_ASSERTION"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "http://localhost:8080", cfg.PublicURL)
	require.Equal(t, time.Minute, cfg.HousekeepingInterval)
	require.False(t, cfg.RequireAssertion)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEVBACKEND_REQUIRE_ASSERTION", "true")
	t.Setenv("DEVBACKEND_TOKEN_TTL", "30")
	t.Setenv("DEVBACKEND_CODE_TTL", "2m")
	t.Setenv("HOUSEKEEPING_INTERVAL", "garbage")

	cfg := LoadConfig()
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "http://localhost:9090", cfg.PublicURL)
	require.True(t, cfg.RequireAssertion)
	require.Equal(t, 30*time.Second, cfg.TokenTTL)
	require.Equal(t, 2*time.Minute, cfg.CodeTTL)
	require.Equal(t, time.Minute, cfg.HousekeepingInterval)
}

func TestReadPepper(t *testing.T) {
	pepper, err := readPepper("")
	require.NoError(t, err)
	require.Empty(t, pepper)

	path := filepath.Join(t.TempDir(), "pepper")
	require.NoError(t, os.WriteFile(path, []byte("  spicy\n"), 0o600))
	pepper, err = readPepper(path)
	require.NoError(t, err)
	require.Equal(t, "spicy", pepper)

	_, err = readPepper(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
