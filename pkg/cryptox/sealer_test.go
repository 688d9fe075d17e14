package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/authsession/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("test-master-key-for-encryption-12345"), "test")
	require.NoError(t, err)

	plaintext := []byte("sess_01hq7t3z1mz0jq3m6mzq1fq3zv")

	sealed, err := s.Seal(plaintext, []byte("active_session_id"))
	require.NoError(t, err)
	require.NotEqual(t, plaintext, sealed, "sealed data should differ from plaintext")

	opened, err := s.Open(sealed, []byte("active_session_id"))
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSealProducesDistinctCiphertexts(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("key"), "test")
	require.NoError(t, err)

	// Random nonce per seal, so the same input never encrypts the same way twice
	a, err := s.Seal([]byte("same"), nil)
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"), nil)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpenFailures(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("key"), "test")
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("device-token"), []byte("device_token"))
	require.NoError(t, err)

	t.Run("wrong additional data", func(t *testing.T) {
		_, err := s.Open(sealed, []byte("active_session_id"))
		require.Error(t, err)
	})

	t.Run("different info derives a different key", func(t *testing.T) {
		other, err := cryptox.NewSealer([]byte("key"), "other")
		require.NoError(t, err)

		_, err = other.Open(sealed, []byte("device_token"))
		require.Error(t, err)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := append([]byte(nil), sealed...)
		tampered[len(tampered)-1] ^= 0xff

		_, err := s.Open(tampered, []byte("device_token"))
		require.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := s.Open([]byte("abc"), nil)
		require.ErrorIs(t, err, cryptox.ErrSealedTooShort)
	})
}

func TestNewSealerRejectsEmptyKey(t *testing.T) {
	_, err := cryptox.NewSealer(nil, "test")
	require.Error(t, err)
}
