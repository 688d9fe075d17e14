package tokencache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/aussiebroadwan/authsession/pkg/tokencache"
)

var epoch = time.Unix(1_700_000_000, 0)

func mint(t *testing.T, sid, template string, ttl time.Duration) string {
	t.Helper()
	signer, err := jwtx.NewHS256Signer("test", []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	token, err := signer.Sign(jwtx.NewSessionClaims("user_1", sid, template, nil, ttl, "test", epoch))
	require.NoError(t, err)
	return token
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, "sess_1", tokencache.Key("sess_1", ""))
	require.Equal(t, "sess_1-hasura", tokencache.Key("sess_1", "hasura"))
}

func TestGetTokenDeduplicates(t *testing.T) {
	t.Parallel()

	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		token := mint(t, "sess_1", "", time.Minute)
		release := make(chan struct{})
		var fetches atomic.Int32

		cache := tokencache.New(func(ctx context.Context, sid, tpl string) (string, error) {
			fetches.Add(1)
			<-release
			return token, nil
		}, tokencache.WithClock(func() time.Time { return epoch }))

		const n = 32
		results := make([]string, n)
		errs := make([]error, n)
		var started, wg sync.WaitGroup
		started.Add(n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				started.Done()
				results[i], errs[i] = cache.GetToken(context.Background(), "sess_1", tokencache.Options{})
			}(i)
		}
		started.Wait()
		// Give every goroutine the chance to join before the fetch completes
		require.Eventually(t, func() bool { return fetches.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		require.Equal(t, int32(1), fetches.Load())
		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			require.Equal(t, token, results[i])
		}
	})

	t.Run("concurrent callers share the same failure", func(t *testing.T) {
		boom := errors.New("backend unavailable")
		release := make(chan struct{})
		var fetches atomic.Int32

		cache := tokencache.New(func(ctx context.Context, sid, tpl string) (string, error) {
			fetches.Add(1)
			<-release
			return "", boom
		})

		const n = 8
		errs := make([]error, n)
		var started, wg sync.WaitGroup
		started.Add(n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				started.Done()
				_, errs[i] = cache.GetToken(context.Background(), "sess_1", tokencache.Options{})
			}(i)
		}
		started.Wait()
		require.Eventually(t, func() bool { return fetches.Load() == 1 }, time.Second, time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		require.Equal(t, int32(1), fetches.Load())
		for _, err := range errs {
			require.ErrorIs(t, err, boom)
		}
		require.Equal(t, 0, cache.Len())
	})

	t.Run("templates are fetched separately", func(t *testing.T) {
		var fetches atomic.Int32
		cache := tokencache.New(func(ctx context.Context, sid, tpl string) (string, error) {
			fetches.Add(1)
			return mint(t, sid, tpl, time.Minute), nil
		}, tokencache.WithClock(func() time.Time { return epoch }))

		_, err := cache.GetToken(context.Background(), "sess_1", tokencache.Options{})
		require.NoError(t, err)
		_, err = cache.GetToken(context.Background(), "sess_1", tokencache.Options{Template: "hasura"})
		require.NoError(t, err)
		require.Equal(t, int32(2), fetches.Load())
	})

	t.Run("cancelled caller does not cancel the fetch", func(t *testing.T) {
		token := mint(t, "sess_1", "", time.Minute)
		release := make(chan struct{})
		var fetchErr atomic.Value

		cache := tokencache.New(func(ctx context.Context, sid, tpl string) (string, error) {
			<-release
			if ctx.Err() != nil {
				fetchErr.Store(ctx.Err())
			}
			return token, nil
		}, tokencache.WithClock(func() time.Time { return epoch }))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := cache.GetToken(ctx, "sess_1", tokencache.Options{})
		require.ErrorIs(t, err, context.Canceled)

		close(release)
		got, err := cache.GetToken(context.Background(), "sess_1", tokencache.Options{})
		require.NoError(t, err)
		require.Equal(t, token, got)
		require.Nil(t, fetchErr.Load())
	})
}

func TestGetTokenFreshness(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: epoch}
	var fetches atomic.Int32
	cache := tokencache.New(func(ctx context.Context, sid, tpl string) (string, error) {
		fetches.Add(1)
		return mint(t, sid, tpl, time.Minute), nil
	}, tokencache.WithClock(clock.Now))

	ctx := context.Background()
	first, err := cache.GetToken(ctx, "sess_1", tokencache.Options{})
	require.NoError(t, err)
	require.Equal(t, int32(1), fetches.Load())

	// 60s token, 40s elapsed: 20s left is outside the default 10s buffer
	clock.Advance(40 * time.Second)
	got, err := cache.GetToken(ctx, "sess_1", tokencache.Options{})
	require.NoError(t, err)
	require.Equal(t, first, got)
	require.Equal(t, int32(1), fetches.Load())

	// 20s left is inside a 30s buffer
	_, err = cache.GetToken(ctx, "sess_1", tokencache.Options{ExpirationBuffer: 30 * time.Second})
	require.NoError(t, err)
	require.Equal(t, int32(2), fetches.Load())

	t.Run("buffer equal to remaining lifetime refetches", func(t *testing.T) {
		// The refetched token was minted at epoch as well, so 20s remain
		_, err := cache.GetToken(ctx, "sess_1", tokencache.Options{ExpirationBuffer: 20 * time.Second})
		require.NoError(t, err)
		require.Equal(t, int32(3), fetches.Load())
	})

	t.Run("buffer is capped at 60s", func(t *testing.T) {
		// 180s left: inside a 10 minute buffer, outside the 60s cap
		clock.Set(epoch.Add(-2 * time.Minute))
		_, err := cache.GetToken(ctx, "sess_1", tokencache.Options{})
		require.NoError(t, err)
		before := fetches.Load()

		// A 10 minute buffer would always miss without the cap
		_, err = cache.GetToken(ctx, "sess_1", tokencache.Options{ExpirationBuffer: 10 * time.Minute})
		require.NoError(t, err)
		require.Equal(t, before, fetches.Load())
	})

	t.Run("skip cache forces a fetch", func(t *testing.T) {
		before := fetches.Load()
		_, err := cache.GetToken(ctx, "sess_1", tokencache.Options{SkipCache: true})
		require.NoError(t, err)
		require.Equal(t, before+1, fetches.Load())
	})
}

func TestGetTokenUnparsableIsNotCached(t *testing.T) {
	t.Parallel()

	var fetches atomic.Int32
	cache := tokencache.New(func(ctx context.Context, sid, tpl string) (string, error) {
		fetches.Add(1)
		return "opaque-token", nil
	})

	for i := 0; i < 2; i++ {
		got, err := cache.GetToken(context.Background(), "sess_1", tokencache.Options{})
		require.NoError(t, err)
		require.Equal(t, "opaque-token", got)
	}
	require.Equal(t, int32(2), fetches.Load())
	require.Equal(t, 0, cache.Len())
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	cache := tokencache.New(func(ctx context.Context, sid, tpl string) (string, error) {
		return mint(t, sid, tpl, time.Minute), nil
	}, tokencache.WithClock(func() time.Time { return epoch }))

	ctx := context.Background()
	for _, key := range []struct{ sid, tpl string }{{"sess_1", ""}, {"sess_1", "hasura"}, {"sess_2", ""}} {
		_, err := cache.GetToken(ctx, key.sid, tokencache.Options{Template: key.tpl})
		require.NoError(t, err)
	}
	require.Equal(t, 3, cache.Len())

	cache.Invalidate("sess_1")
	require.Equal(t, 1, cache.Len())

	cache.Clear()
	require.Equal(t, 0, cache.Len())
}

func TestGetTokenRequiresSession(t *testing.T) {
	t.Parallel()
	cache := tokencache.New(func(context.Context, string, string) (string, error) { return "", nil })
	_, err := cache.GetToken(context.Background(), "", tokencache.Options{})
	require.ErrorIs(t, err, tokencache.ErrEmptySessionID)
}
