package localstore

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aussiebroadwan/authsession/pkg/cryptox"
)

// Sealed wraps a store so every value is encrypted at rest. The key name is
// bound to the ciphertext, so a value copied to another key fails to open.
func Sealed(inner Store, sealer *cryptox.Sealer) Store {
	return &sealedStore{inner: inner, sealer: sealer}
}

type sealedStore struct {
	inner  Store
	sealer *cryptox.Sealer
}

func (s *sealedStore) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}

	sealed, err := base64.RawStdEncoding.DecodeString(raw)
	if err != nil {
		return "", fmt.Errorf("localstore: decode %q: %w", key, err)
	}
	plain, err := s.sealer.Open(sealed, []byte(key))
	if err != nil {
		return "", fmt.Errorf("localstore: open %q: %w", key, err)
	}
	return string(plain), nil
}

func (s *sealedStore) Set(ctx context.Context, key, value string) error {
	sealed, err := s.sealer.Seal([]byte(value), []byte(key))
	if err != nil {
		return fmt.Errorf("localstore: seal %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, base64.RawStdEncoding.EncodeToString(sealed))
}

func (s *sealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *sealedStore) Close() error {
	return s.inner.Close()
}
