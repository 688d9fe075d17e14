// Package tokencache caches short lived session tokens and guarantees at most
// one concurrent fetch per session and template.
package tokencache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/aussiebroadwan/authsession/pkg/jwtx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

const (
	// DefaultExpirationBuffer is how close to expiry a cached token may be
	// before it is refetched.
	DefaultExpirationBuffer = 10 * time.Second

	// MaxExpirationBuffer caps any requested buffer.
	MaxExpirationBuffer = 60 * time.Second

	defaultSize = 256
	defaultTTL  = 10 * time.Minute
)

// ErrEmptySessionID is returned for lookups without a session.
var ErrEmptySessionID = errors.New("tokencache: empty session id")

// Fetcher retrieves a fresh token from the backend. It runs detached from
// the context of the caller that triggered it.
type Fetcher func(ctx context.Context, sessionID, template string) (string, error)

// Options tune a single GetToken call.
type Options struct {
	// Template selects a custom token template. Empty means the default
	// session token.
	Template string

	// ExpirationBuffer defaults to DefaultExpirationBuffer and is capped at
	// MaxExpirationBuffer. Negative values disable the buffer.
	ExpirationBuffer time.Duration

	// SkipCache forces a fetch. A fetch already in flight is still joined.
	SkipCache bool
}

func (o Options) buffer() time.Duration {
	switch {
	case o.ExpirationBuffer == 0:
		return DefaultExpirationBuffer
	case o.ExpirationBuffer < 0:
		return 0
	default:
		return min(o.ExpirationBuffer, MaxExpirationBuffer)
	}
}

// Key returns the cache key for a session and template.
func Key(sessionID, template string) string {
	if template == "" {
		return sessionID
	}
	return sessionID + "-" + template
}

type entry struct {
	token     string
	template  string
	expiresAt time.Time
}

// call is one in-flight fetch. Its result fields are written before done is
// closed and only read after.
type call struct {
	done  chan struct{}
	token string
	err   error
}

// Cache is safe for concurrent use.
type Cache struct {
	fetch  Fetcher
	logger *slog.Logger
	now    func() time.Time

	store    *expirable.LRU[string, entry]
	inflight *xsync.MapOf[string, *call]
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithSize bounds the number of cached tokens.
func WithSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.store = expirable.NewLRU[string, entry](n, nil, defaultTTL)
		}
	}
}

// New returns a cache that fetches through fetch.
func New(fetch Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetch:    fetch,
		logger:   slogx.Discard(),
		now:      time.Now,
		store:    expirable.NewLRU[string, entry](defaultSize, nil, defaultTTL),
		inflight: xsync.NewMapOf[string, *call](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetToken returns a token for sessionID. Concurrent calls for the same key
// share one fetch and its result, success or failure. Cancelling ctx stops
// the wait but not the fetch.
func (c *Cache) GetToken(ctx context.Context, sessionID string, opts Options) (string, error) {
	if sessionID == "" {
		return "", ErrEmptySessionID
	}
	key := Key(sessionID, opts.Template)

	if inflight, ok := c.inflight.Load(key); ok {
		coalescedTotal.Inc()
		return wait(ctx, inflight)
	}

	if !opts.SkipCache {
		if e, ok := c.store.Get(key); ok && e.template == opts.Template && e.expiresAt.Sub(c.now()) > opts.buffer() {
			hitsTotal.Inc()
			return e.token, nil
		}
	}

	fresh := &call{done: make(chan struct{})}
	actual, loaded := c.inflight.LoadOrStore(key, fresh)
	if loaded {
		coalescedTotal.Inc()
		return wait(ctx, actual)
	}

	missesTotal.Inc()
	go c.run(context.WithoutCancel(ctx), key, sessionID, opts.Template, fresh)
	return wait(ctx, fresh)
}

// run performs the fetch for the leader of key. The cache is updated before
// the in-flight entry is cleared so a caller arriving in between sees the
// new token.
func (c *Cache) run(ctx context.Context, key, sessionID, template string, cl *call) {
	token, err := c.fetch(ctx, sessionID, template)
	if err != nil {
		c.logger.Debug("token fetch failed", "session_id", sessionID, "template", template, "error", err)
	} else {
		c.put(key, template, token)
	}

	c.inflight.Delete(key)
	cl.token, cl.err = token, err
	close(cl.done)
}

func (c *Cache) put(key, template, token string) {
	claims, err := jwtx.ParseUnverified(token)
	if err != nil {
		c.logger.Warn("not caching unparsable token", "key", key, "error", err)
		return
	}
	exp, err := claims.Expiry()
	if err != nil {
		c.logger.Warn("not caching token without expiry", "key", key)
		return
	}
	c.store.Add(key, entry{token: token, template: template, expiresAt: exp})
}

func wait(ctx context.Context, cl *call) (string, error) {
	select {
	case <-cl.done:
		return cl.token, cl.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops every cached token of sessionID. In-flight fetches are
// left to complete.
func (c *Cache) Invalidate(sessionID string) {
	prefix := sessionID + "-"
	for _, key := range c.store.Keys() {
		if key == sessionID || strings.HasPrefix(key, prefix) {
			c.store.Remove(key)
		}
	}
}

// Clear drops every cached token.
func (c *Cache) Clear() {
	c.store.Purge()
}

// Len returns the number of cached tokens.
func (c *Cache) Len() int {
	return c.store.Len()
}
