package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the Redis-backed Store. Every call is bounded by opTimeout
// so a stalled Redis degrades persistence-dependent rules instead of hanging
// requests.
type RedisStore struct {
	client    *redis.Client
	opTimeout time.Duration
	keyPrefix string
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password, if the server requires AUTH.
	Password string

	// DB selects the logical database.
	DB int

	// KeyPrefix namespaces all keys, e.g. "mimicd:". Optional.
	KeyPrefix string

	// OpTimeout bounds each store call. Defaults to 2s.
	OpTimeout time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.OpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &RedisStore{
		client:    client,
		opTimeout: opts.OpTimeout,
		keyPrefix: opts.KeyPrefix,
	}, nil
}

// Get returns the entity stored under key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, nil
}

// Put stores an entity under key with an optional TTL.
func (s *RedisStore) Put(ctx context.Context, key string, entity []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.keyPrefix+key, entity, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes the entity under key, returning ErrNotFound if absent.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	n, err := s.client.Del(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
