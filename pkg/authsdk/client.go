package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/authsession/pkg/events"
	"github.com/aussiebroadwan/authsession/pkg/localstore"
	"github.com/aussiebroadwan/authsession/pkg/localstore/drivers/memory"
	"github.com/aussiebroadwan/authsession/pkg/pipeline"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
	"github.com/aussiebroadwan/authsession/pkg/tokencache"
)

// SDKClient drives authentication flows for one device. It is safe for
// concurrent use; create one per device identity and Close it when done.
type SDKClient struct {
	cfg    Config
	logger *slog.Logger

	state    *State
	store    localstore.Store
	ownStore bool

	pipeline *pipeline.Pipeline
	tokens   *tokencache.Cache
	poller   *tokencache.Poller
	bus      *events.Bus[Event]

	// completed remembers flows whose completion was already published
	completed *xsync.MapOf[string, struct{}]

	// flights coalesces client resyncs and assertion refreshes
	flights singleflight.Group
	wg      sync.WaitGroup

	lifetime  context.Context
	shutdown  context.CancelFunc
	closeOnce sync.Once
}

// NewSDKClient wires the request pipeline, token cache and event bus.
// Nothing is sent until the first operation; call Load to restore and
// fetch the device's client.
func NewSDKClient(cfg Config) (*SDKClient, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slogx.Discard()
	}

	c := &SDKClient{
		cfg:    cfg,
		logger: logger,
		state:  NewState(),
		store:  cfg.Store,
		bus:    events.New[Event](logger),

		completed: xsync.NewMapOf[string, struct{}](),
	}
	if c.store == nil {
		c.store = memory.New()
		c.ownStore = true
	}
	c.lifetime, c.shutdown = context.WithCancel(context.Background())

	c.pipeline, err = c.newPipeline()
	if err != nil {
		return nil, err
	}

	c.tokens = tokencache.New(c.fetchToken, tokencache.WithLogger(logger))
	c.poller = tokencache.NewPoller(c.tokens, c.state.ActiveSessionID, logger, cfg.TokenPollInterval)

	return c, nil
}

func (c *SDKClient) newPipeline() (*pipeline.Pipeline, error) {
	p := &pipeline.Pipeline{
		BaseURL:    c.cfg.BaseURL,
		HTTPClient: c.cfg.HTTPClient,
		Logger:     c.logger,
		Done:       c.lifetime.Done(),
	}

	if c.cfg.ProxyURL != "" {
		rewrite, err := pipeline.ProxyRewrite(c.cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("authsdk: %w", err)
		}
		p.Preparers = append(p.Preparers, rewrite)
	}
	p.Preparers = append(p.Preparers, pipeline.FormEncoding())

	p.Decorators = append(p.Decorators, pipeline.DeviceHeaders(c.cfg.ClientID, c.state.DeviceToken))
	if c.cfg.OutboundRate > 0 {
		p.Decorators = append(p.Decorators, pipeline.Throttle(rate.NewLimiter(c.cfg.OutboundRate, c.cfg.OutboundBurst)))
	}

	// Sync must run before events so subscribers observe the new snapshot
	p.Responders = []pipeline.Responder{
		pipeline.RespondFunc(c.syncResponse),
		pipeline.RespondFunc(c.emitEvents),
	}

	if c.cfg.DeviceAttester != nil {
		p.Retry = append(p.Retry, pipeline.DeviceAssertionRetry{Refresh: c.refreshAssertion})
	}
	p.Retry = append(p.Retry,
		pipeline.RateLimitRetry{MinWait: c.cfg.RetryMinWait, MaxWait: c.cfg.RetryMaxWait},
		pipeline.InvalidAuthRecovery{Resync: c.scheduleResync},
	)
	return p, nil
}

// Load restores the persisted device token and active session id, then
// fetches the device's client, creating one when the backend has none.
// It starts background token polling unless disabled.
func (c *SDKClient) Load(ctx context.Context) (*Client, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	sessionID, err := c.readStore(ctx, localstore.KeyActiveSessionID)
	if err != nil {
		return nil, err
	}
	token, err := c.readStore(ctx, localstore.KeyDeviceToken)
	if err != nil {
		return nil, err
	}
	c.state.restore(sessionID, token)

	client, err := c.fetchClient(ctx)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client, err = c.createClient(ctx)
		if err != nil {
			return nil, err
		}
	}

	if !c.cfg.DisableTokenPolling {
		c.poller.Start()
	}
	return client, nil
}

func (c *SDKClient) readStore(ctx context.Context, key string) (string, error) {
	v, err := c.store.Get(ctx, key)
	if errors.Is(err, localstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("authsdk: restore %s: %w", key, err)
	}
	return v, nil
}

// fetchClient returns the backend's client for this device, nil when there
// is none.
func (c *SDKClient) fetchClient(ctx context.Context) (*Client, error) {
	client, err := doOptional[*Client](ctx, c, "client.get", &pipeline.Request{Method: http.MethodGet, Path: pathClient})
	if err != nil {
		return nil, err
	}
	if client == nil {
		// A missing client clears whatever the device remembered
		c.state.Replace(nil)
	}
	return client, nil
}

func (c *SDKClient) createClient(ctx context.Context) (*Client, error) {
	return do[*Client](ctx, c, "client.create", &pipeline.Request{Method: http.MethodPost, Path: pathClient})
}

// Refresh re-fetches the client snapshot.
func (c *SDKClient) Refresh(ctx context.Context) (*Client, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.fetchClient(ctx)
}

// Client returns the latest snapshot, nil before Load.
func (c *SDKClient) Client() *Client {
	return c.state.Client()
}

// ActiveSessionID returns the device's active session, "" when signed out.
func (c *SDKClient) ActiveSessionID() string {
	return c.state.ActiveSessionID()
}

// State exposes the snapshot container, mainly to tests and embedders.
func (c *SDKClient) State() *State {
	return c.state
}

// Subscribe returns a channel of lifecycle events. A buffer of 0 uses the
// configured default. Events are dropped for subscribers that fall behind.
func (c *SDKClient) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = c.cfg.EventBuffer
	}
	return c.bus.Subscribe(buffer)
}

// SetForeground resumes or pauses background token polling.
func (c *SDKClient) SetForeground(foreground bool) {
	if c.cfg.DisableTokenPolling || c.checkOpen() != nil {
		return
	}
	c.poller.SetForeground(foreground)
}

// Close stops background work, aborts pending retry waits and closes event
// subscriptions. It closes the store only when the SDK created it.
func (c *SDKClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.shutdown()
		c.poller.Stop()
		c.wg.Wait()
		c.bus.Close()
		if c.ownStore {
			err = c.store.Close()
		}
	})
	return err
}

func (c *SDKClient) checkOpen() error {
	if c.lifetime.Err() != nil {
		return ErrClosed
	}
	return nil
}

// scheduleResync re-fetches the client in the background after the backend
// reported the device's auth as invalid. Concurrent triggers share one
// fetch.
func (c *SDKClient) scheduleResync(ctx context.Context) {
	if c.checkOpen() != nil {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(c.lifetime, cancel)
		defer stop()

		_, err, _ := c.flights.Do("resync", func() (any, error) {
			return c.fetchClient(ctx)
		})
		if err != nil && ctx.Err() == nil {
			c.logger.Warn("client resync failed", "error", err)
		}
	}()
}
