package service

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/idx"
	"github.com/aussiebroadwan/authsession/pkg/jwtx"
)

// createSession signs the user in on c and makes the new session the
// client's last active one.
func (b *Backend) createSession(c *clientRecord, userID string, amr []string) *sessionRecord {
	now := b.now()
	s := &sessionRecord{
		userID: userID,
		amr:    slices.Clone(amr),
		session: authsdk.Session{
			Object:       "session",
			ID:           idx.Prefixed("sess"),
			Status:       authsdk.SessionActive,
			ExpireAt:     authsdk.At(now.Add(b.opts.SessionTTL)),
			AbandonAt:    authsdk.At(now.Add(4 * b.opts.SessionTTL)),
			LastActiveAt: authsdk.At(now),
		},
	}
	c.sessions = append(c.sessions, s)
	c.lastActiveSessionID = s.session.ID
	sessionsCreated.Inc()
	return s
}

func (b *Backend) sessionView(s *sessionRecord) authsdk.Session {
	out := s.session
	if u, ok := b.users[s.userID]; ok {
		user := u.user
		out.User = &user
	}
	if s.session.LastActiveToken != nil {
		tok := *s.session.LastActiveToken
		out.LastActiveToken = &tok
	}
	return out
}

func (c *clientRecord) session(id string) (*sessionRecord, bool) {
	for _, s := range c.sessions {
		if s.session.ID == id {
			return s, true
		}
	}
	return nil, false
}

// repairLastActive points the client at its most recent active session
// once the last active one is gone.
func (c *clientRecord) repairLastActive() {
	if s, ok := c.session(c.lastActiveSessionID); ok && s.session.Status == authsdk.SessionActive {
		return
	}
	c.lastActiveSessionID = ""
	for i := len(c.sessions) - 1; i >= 0; i-- {
		if c.sessions[i].session.Status == authsdk.SessionActive {
			c.lastActiveSessionID = c.sessions[i].session.ID
			return
		}
	}
}

// endUserSessions ends every active session of a user on every client.
func (b *Backend) endUserSessions(userID string) {
	for _, c := range b.clients {
		changed := false
		for _, s := range c.sessions {
			if s.userID == userID && s.session.Status == authsdk.SessionActive {
				s.session.Status = authsdk.SessionEnded
				changed = true
			}
		}
		if changed {
			c.repairLastActive()
			c.updatedAt = b.now()
		}
	}
}

func (b *Backend) activeSessionOf(token, id string) (*clientRecord, *sessionRecord, error) {
	c, _, err := b.device(token, false)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, errAuthenticationInvalid
	}
	s, ok := c.session(id)
	if !ok {
		return nil, nil, errNotFound("session", id)
	}
	if s.session.Status != authsdk.SessionActive {
		return nil, nil, newError(http.StatusUnauthorized, CodeSessionNotActive, "session %q is %s", id, s.session.Status)
	}
	return c, s, nil
}

// RemoveSession signs a single session out.
func (b *Backend) RemoveSession(_ context.Context, token, id string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, s, err := b.activeSessionOf(token, id)
	if err != nil {
		return Result{}, err
	}
	s.session.Status = authsdk.SessionRemoved
	c.repairLastActive()

	view := b.sessionView(s)
	return b.result(c, false, &view), nil
}

// CreateToken mints a session token, shaped by template when one is named.
func (b *Backend) CreateToken(_ context.Context, token, id, template string) (Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, s, err := b.activeSessionOf(token, id)
	if err != nil {
		return Result{}, err
	}

	now := b.now()
	claims := jwtx.NewSessionClaims(s.userID, s.session.ID, template, s.amr, b.opts.TokenTTL, b.opts.Issuer, now)
	jwt, err := b.signer.Sign(claims)
	if err != nil {
		return Result{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	tok := &authsdk.TokenResource{Object: "token", JWT: jwt}
	s.session.LastActiveAt = authsdk.At(now)
	if template == "" {
		s.session.LastActiveToken = &authsdk.TokenResource{Object: "token", JWT: jwt}
	}
	tokensMinted.WithLabelValues(templateLabel(template)).Inc()
	return Result{Response: tok}, nil
}

func templateLabel(template string) string {
	if template == "" {
		return "session"
	}
	return template
}
