// Package localstore persists the small amount of device state the SDK needs
// across restarts: the active session id and the device token.
package localstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("localstore: not found")

// Well known keys.
const (
	KeyActiveSessionID = "active_session_id"
	KeyDeviceToken     = "device_token"
)

// Store is a small key/value store. Drivers must be safe for concurrent use.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any underlying resources.
	Close() error
}
