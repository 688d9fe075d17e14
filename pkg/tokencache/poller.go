package tokencache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// DefaultPollInterval is used when NewPoller is given a non-positive interval.
const DefaultPollInterval = 5 * time.Second

// Poller keeps the active session's default token fresh by refetching it
// on a fixed interval while the host process is in the foreground.
type Poller struct {
	Cache    *Cache
	Logger   *slog.Logger
	Interval time.Duration

	// ActiveSession returns the session to refresh, or "" to skip a tick.
	ActiveSession func() string

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(cache *Cache, activeSession func() string, logger *slog.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slogx.Discard()
	}

	return &Poller{
		Cache:         cache,
		Logger:        logger,
		Interval:      interval,
		ActiveSession: activeSession,
	}
}

// Start begins polling. Starting a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh != nil {
		return
	}
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.run(p.stopCh, p.doneCh)

	p.Logger.Debug("token poller started", "interval", p.Interval)
}

// Stop halts polling and waits for the worker to exit. A fetch already in
// flight keeps running; only the wait for it is abandoned.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopCh == nil {
		return
	}
	close(p.stopCh)
	<-p.doneCh
	p.stopCh, p.doneCh = nil, nil

	p.Logger.Debug("token poller stopped")
}

// SetForeground starts the poller when the process enters the foreground
// and stops it when it leaves.
func (p *Poller) SetForeground(foreground bool) {
	if foreground {
		p.Start()
		return
	}
	p.Stop()
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopCh != nil
}

func (p *Poller) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	// Stop must not wait for a slow fetch to finish
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	p.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			p.refresh(ctx)
		case <-stopCh:
			return
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	sessionID := p.ActiveSession()
	if sessionID == "" {
		return
	}

	if _, err := p.Cache.GetToken(ctx, sessionID, Options{SkipCache: true}); err != nil && ctx.Err() == nil {
		p.Logger.Warn("token refresh failed", "session_id", sessionID, "error", err)
	}
}
