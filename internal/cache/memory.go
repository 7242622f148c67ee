package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Cache for single-instance deployments and tests.
type Memory struct {
	items *gocache.Cache
}

// NewMemory returns an empty cache; expired entries are purged every
// cleanupInterval and are never returned in between.
func NewMemory(cleanupInterval time.Duration) *Memory {
	return &Memory{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, unavailable("get", err)
	}
	v, ok := m.items.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return unavailable("set", err)
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.items.Set(key, value, ttl)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("del", err)
	}
	m.items.Delete(key)
	return nil
}

func (m *Memory) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("del", err)
	}
	n := 0
	for key := range m.items.Items() {
		if strings.HasPrefix(key, prefix) {
			m.items.Delete(key)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

// Close drops every entry.
func (m *Memory) Close() error {
	m.items.Flush()
	return nil
}
