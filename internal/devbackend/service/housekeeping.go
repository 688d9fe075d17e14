package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
)

// SweepStats counts what one sweep changed.
type SweepStats struct {
	SignIns  int
	SignUps  int
	Sessions int
	Grants   int
}

// Sweep abandons idle sign-ins and sign-ups, expires sessions past their
// lifetime and drops stale consent links.
func (b *Backend) Sweep(_ context.Context) SweepStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var stats SweepStats

	for id, r := range b.signIns {
		switch {
		case r.si.Status == authsdk.SignInAbandoned || r.si.Status == authsdk.SignInComplete:
			// Keep finished attempts readable for one more lifetime
			if now.After(r.si.AbandonAt.Add(b.opts.AttemptTTL)) {
				delete(b.signIns, id)
			}
		case now.After(r.si.AbandonAt.Time):
			r.si.Status = authsdk.SignInAbandoned
			if c, ok := b.clients[r.clientID]; ok && c.signInID == id {
				c.signInID = ""
			}
			stats.SignIns++
		}
	}

	for id, r := range b.signUps {
		switch {
		case r.su.Status == authsdk.SignUpAbandoned || r.su.Status == authsdk.SignUpComplete:
			if now.After(r.su.AbandonAt.Add(b.opts.AttemptTTL)) {
				delete(b.signUps, id)
			}
		case now.After(r.su.AbandonAt.Time):
			r.su.Status = authsdk.SignUpAbandoned
			if c, ok := b.clients[r.clientID]; ok && c.signUpID == id {
				c.signUpID = ""
			}
			stats.SignUps++
		}
	}

	for _, c := range b.clients {
		expired := false
		for _, s := range c.sessions {
			if s.session.Status == authsdk.SessionActive && now.After(s.session.ExpireAt.Time) {
				s.session.Status = authsdk.SessionExpired
				expired = true
				stats.Sessions++
			}
		}
		if expired {
			c.repairLastActive()
			c.updatedAt = now
		}
	}

	for state, g := range b.grants {
		if now.After(g.expires) {
			delete(b.grants, state)
			stats.Grants++
		}
	}

	housekeepingSwept.WithLabelValues("sign_in").Add(float64(stats.SignIns))
	housekeepingSwept.WithLabelValues("sign_up").Add(float64(stats.SignUps))
	housekeepingSwept.WithLabelValues("session").Add(float64(stats.Sessions))
	housekeepingSwept.WithLabelValues("grant").Add(float64(stats.Grants))
	return stats
}

// HousekeepingService periodically sweeps the backend so idle attempts and
// sessions age out the way they would on a real deployment.
type HousekeepingService struct {
	Backend  *Backend
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 minute.
func NewHousekeepingService(backend *Backend, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Backend:  backend,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop() to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the background worker and waits for an in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	stats := s.Backend.Sweep(context.Background())
	if stats == (SweepStats{}) {
		s.Logger.Debug("housekeeping sweep found nothing")
		return
	}
	s.Logger.Info("housekeeping sweep completed",
		"sign_ins", stats.SignIns,
		"sign_ups", stats.SignUps,
		"sessions", stats.Sessions,
		"grants", stats.Grants,
	)
}
