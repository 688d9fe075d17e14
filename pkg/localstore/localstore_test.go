package localstore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/aussiebroadwan/authsession/pkg/localstore"
	"github.com/aussiebroadwan/authsession/pkg/localstore/drivers/file"
	"github.com/aussiebroadwan/authsession/pkg/localstore/drivers/memory"
	"github.com/aussiebroadwan/authsession/pkg/localstore/drivers/sqlite"
)

func newSealer(t *testing.T) *cryptox.Sealer {
	t.Helper()
	sealer, err := cryptox.NewSealer([]byte("device-secret-for-tests"), "localstore")
	require.NoError(t, err)
	return sealer
}

func drivers(t *testing.T) map[string]func(t *testing.T) localstore.Store {
	return map[string]func(t *testing.T) localstore.Store{
		"memory": func(t *testing.T) localstore.Store { return memory.New() },
		"file": func(t *testing.T) localstore.Store {
			s, err := file.OpenPath(filepath.Join(t.TempDir(), "state.json"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) localstore.Store {
			s, err := sqlite.Open(filepath.Join(t.TempDir(), "state.db"))
			require.NoError(t, err)
			return s
		},
		"sealed": func(t *testing.T) localstore.Store {
			return localstore.Sealed(memory.New(), newSealer(t))
		},
	}
}

func TestDrivers(t *testing.T) {
	t.Parallel()

	for name, open := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := open(t)
			defer func() { require.NoError(t, s.Close()) }()

			_, err := s.Get(ctx, localstore.KeyActiveSessionID)
			require.ErrorIs(t, err, localstore.ErrNotFound)

			require.NoError(t, s.Set(ctx, localstore.KeyActiveSessionID, "sess_1"))
			require.NoError(t, s.Set(ctx, localstore.KeyActiveSessionID, "sess_2"))
			require.NoError(t, s.Set(ctx, localstore.KeyDeviceToken, "dvt_1"))

			got, err := s.Get(ctx, localstore.KeyActiveSessionID)
			require.NoError(t, err)
			require.Equal(t, "sess_2", got)

			require.NoError(t, s.Delete(ctx, localstore.KeyActiveSessionID))
			require.NoError(t, s.Delete(ctx, localstore.KeyActiveSessionID))
			_, err = s.Get(ctx, localstore.KeyActiveSessionID)
			require.ErrorIs(t, err, localstore.ErrNotFound)

			got, err = s.Get(ctx, localstore.KeyDeviceToken)
			require.NoError(t, err)
			require.Equal(t, "dvt_1", got)
		})
	}
}

func TestFileStorePersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s, err := file.OpenPath(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, localstore.KeyDeviceToken, "dvt_1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := file.OpenPath(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, localstore.KeyDeviceToken)
	require.NoError(t, err)
	require.Equal(t, "dvt_1", got)
}

func TestSQLiteStorePersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, localstore.KeyActiveSessionID, "sess_1"))
	require.NoError(t, s.Close())

	// Migrations are re-applied on open without error
	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Ping(ctx))
	got, err := reopened.Get(ctx, localstore.KeyActiveSessionID)
	require.NoError(t, err)
	require.Equal(t, "sess_1", got)
}

func TestSealed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	inner := memory.New()
	sealed := localstore.Sealed(inner, newSealer(t))
	require.NoError(t, sealed.Set(ctx, localstore.KeyDeviceToken, "dvt_secret"))

	t.Run("values are not stored in the clear", func(t *testing.T) {
		raw, err := inner.Get(ctx, localstore.KeyDeviceToken)
		require.NoError(t, err)
		require.False(t, strings.Contains(raw, "dvt_secret"))
	})

	t.Run("values are bound to their key", func(t *testing.T) {
		raw, err := inner.Get(ctx, localstore.KeyDeviceToken)
		require.NoError(t, err)
		require.NoError(t, inner.Set(ctx, localstore.KeyActiveSessionID, raw))

		_, err = sealed.Get(ctx, localstore.KeyActiveSessionID)
		require.Error(t, err)
	})

	t.Run("a different key cannot open", func(t *testing.T) {
		other, err := cryptox.NewSealer([]byte("another-device-secret"), "localstore")
		require.NoError(t, err)

		_, err = localstore.Sealed(inner, other).Get(ctx, localstore.KeyDeviceToken)
		require.Error(t, err)
	})
}
