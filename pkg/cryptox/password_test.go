package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("P@ssw0rd!", "pepper")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"), "hash should be in PHC format")
	require.Len(t, strings.Split(hash, "$"), 6)

	require.NoError(t, VerifyPassword("P@ssw0rd!", "pepper", hash))
	require.ErrorIs(t, VerifyPassword("wrong", "pepper", hash), ErrPasswordMismatch)

	// Same password with a different pepper must not verify
	require.ErrorIs(t, VerifyPassword("P@ssw0rd!", "other", hash), ErrPasswordMismatch)
}

func TestHashPasswordIsSalted(t *testing.T) {
	a, err := HashPassword("password123", "")
	require.NoError(t, err)
	b, err := HashPassword("password123", "")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong algorithm", "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"},
		{"wrong version", "$argon2id$v=16$m=1,t=1,p=1$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$garbage$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword("pw", "", tt.hash)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}
