package idx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.NotEmpty(t, id.String())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
	require.False(t, id.IsZero())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := idx.Parse("")
	require.ErrorIs(t, err, idx.ErrInvalid)

	_, err = idx.Parse("not-a-ulid")
	require.ErrorIs(t, err, idx.ErrInvalid)
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	id := idx.NewAt(tm)

	require.WithinDuration(t, tm, id.Time(), time.Millisecond)
}

func TestPrefixed(t *testing.T) {
	t.Run("round trips through SplitPrefixed", func(t *testing.T) {
		s := idx.Prefixed("sess")
		require.True(t, strings.HasPrefix(s, "sess_"))
		require.Equal(t, strings.ToLower(s), s)

		prefix, id, err := idx.SplitPrefixed(s)
		require.NoError(t, err)
		require.Equal(t, "sess", prefix)
		require.False(t, id.IsZero())
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, _, err := idx.SplitPrefixed(idx.New().String())
		require.ErrorIs(t, err, idx.ErrInvalid)

		_, _, err = idx.SplitPrefixed("_01hq7t3z1mz0jq3m6mzq1fq3zv")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})

	t.Run("ids are ordered by creation", func(t *testing.T) {
		a := idx.Prefixed("sia")
		b := idx.Prefixed("sia")
		require.Less(t, a, b)
	})
}

func TestMustParse(t *testing.T) {
	require.NotPanics(t, func() {
		_ = idx.MustParse("01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV")
	})
	require.Panics(t, func() {
		_ = idx.MustParse("nope")
	})
}
