// Package localstore holds the host-local string mirror of per-user remote
// documents, used for offline first paint.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownBackend = errors.New("unknown local store backend")

const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Store is an async string key-value store. Get reports an absent key as
// ("", false, nil); Remove of an absent key succeeds.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Key namespaces a feature's mirror by identity id: @<feature>_<identityID>.
func Key(feature string, identityID string) string {
	return "@" + feature + "_" + identityID
}

type Options struct {
	Backend  string
	Path     string
	RedisURL string
}

func Open(options Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(options.Backend)) {
	case BackendBadger:
		store, err := OpenBadgerStore(options.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendRedis:
		store, err := NewRedisStore(options.RedisURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, options.Backend)
	}
}
