// Package cache is a string key/value store with per-entry expiry. Entries
// are derived copies of store data and may be dropped at any time.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable wraps connection and timeout failures. Readers treat it as
// a miss.
var ErrUnavailable = errors.New("cache unavailable")

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultTimeout bounds every backend round trip.
const DefaultTimeout = 200 * time.Millisecond

type Cache interface {
	// Get reports ok=false with a nil error on a miss.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value. A zero ttl keeps the entry until it is deleted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key starting with prefix and reports how
	// many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

type Config struct {
	Backend  string
	RedisURL string
	Timeout  time.Duration
}

// Open builds the configured backend. A Redis backend is returned even when
// the server cannot be reached yet; the error from Ping tells the caller.
func Open(ctx context.Context, cfg Config) (Cache, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(time.Minute), nil
	case BackendRedis:
		r, err := NewRedis(cfg.RedisURL, timeout)
		if err != nil {
			return nil, err
		}
		return r, r.Ping(ctx)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
