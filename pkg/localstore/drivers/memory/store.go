// Package memory is an in-process localstore driver. Nothing survives a
// restart; it is the SDK default and the test double for the other drivers.
package memory

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/aussiebroadwan/authsession/pkg/localstore"
)

type Store struct {
	values *xsync.MapOf[string, string]
}

func New() *Store {
	return &Store{values: xsync.NewMapOf[string, string]()}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, ok := s.values.Load(key)
	if !ok {
		return "", localstore.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.values.Store(key, value)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.values.Delete(key)
	return nil
}

func (s *Store) Close() error { return nil }

var _ localstore.Store = (*Store)(nil)
