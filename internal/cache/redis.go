package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedis parses url (redis://host:port/db) and builds a client whose dial,
// read and write timeouts all equal timeout.
func NewRedis(url string, timeout time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.DialTimeout = timeout
	opts.ReadTimeout = timeout
	opts.WriteTimeout = timeout
	opts.MaxRetries = -1 // no retries; a failure is a miss

	return NewRedisClient(redis.NewClient(opts), timeout), nil
}

func NewRedisClient(client *redis.Client, timeout time.Duration) *Redis {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Redis{client: client, timeout: timeout}
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	v, err := r.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, unavailable("get", err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

// DeleteByPrefix walks the keyspace with SCAN so the server is never blocked
// the way KEYS would block it. Each round trip gets its own timeout.
func (r *Redis) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	match := escapeGlob(prefix) + "*"

	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := r.scan(ctx, cursor, match)
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := r.del(ctx, keys)
			deleted += n
			if err != nil {
				return deleted, err
			}
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func (r *Redis) scan(ctx context.Context, cursor uint64, match string) ([]string, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	keys, next, err := r.client.Scan(ctx, cursor, match, scanBatch).Result()
	if err != nil {
		return nil, 0, unavailable("scan", err)
	}
	return keys, next, nil
}

func (r *Redis) del(ctx context.Context, keys []string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, unavailable("del", err)
	}
	return int(n), nil
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n == 1, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes the pattern characters SCAN MATCH understands.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
