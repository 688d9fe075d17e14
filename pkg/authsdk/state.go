package authsdk

import "sync"

// State holds the device's current client snapshot and credentials. It is
// written by the response sync step only; readers always see a whole
// snapshot, never a partially updated one.
type State struct {
	mu sync.RWMutex

	client          *Client
	activeSessionID string
	deviceToken     string
}

// NewState returns an empty state.
func NewState() *State {
	return &State{}
}

// Client returns the current snapshot, nil before the first one arrived.
// Callers must treat it as read only.
func (s *State) Client() *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// Replace installs c as the current snapshot. The last write wins.
func (s *State) Replace(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = c
	s.activeSessionID = ""
	if c != nil {
		s.activeSessionID = c.LastActiveSessionID
	}
}

// ActiveSessionID returns the last active session id of the snapshot, or the
// restored id before any snapshot arrived.
func (s *State) ActiveSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSessionID
}

// DeviceToken returns the token sent in the Authorization header.
func (s *State) DeviceToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deviceToken
}

// SetDeviceToken replaces the device token.
func (s *State) SetDeviceToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceToken = token
}

// restore seeds persisted values before the first snapshot. Values already
// set by a snapshot win.
func (s *State) restore(activeSessionID, deviceToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil && s.activeSessionID == "" {
		s.activeSessionID = activeSessionID
	}
	if s.deviceToken == "" {
		s.deviceToken = deviceToken
	}
}
