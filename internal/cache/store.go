// Package cache provides the response cache shared by the model wrappers:
// a small store port with Redis and in-memory adapters, key construction from
// declared key attributes, and a wrapper that applies separate expiry windows
// to populated and empty results.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/Yates-Labs/sleuth/internal/config"
)

// ErrCacheMiss is returned by Store.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is the storage port behind Cached. A zero expiration keeps the value
// until it is evicted by the backend.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NewRedisClient connects to Redis and pings it.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return client, nil
}

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore wraps client. Closing the client stays with the caller.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Get translates redis.Nil to ErrCacheMiss.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

// Set stores value under key. A zero expiration keeps it until evicted.
func (r *RedisStore) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Delete removes key. Deleting an absent key is not an error.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// MemoryStore is a process-local Store used when no Redis address is
// configured. Entries expire individually.
type MemoryStore struct {
	items *gocache.Cache
}

// memoryCleanupInterval is how often expired entries are reclaimed.
const memoryCleanupInterval = 10 * time.Minute

// NewMemoryStore returns an empty MemoryStore. Entries live for the
// expiration passed to Set, or until deleted when it is zero.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, memoryCleanupInterval)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return "", ErrCacheMiss
	}
	val, ok := v.(string)
	if !ok {
		return "", ErrCacheMiss
	}
	return val, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value string, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = gocache.NoExpiration
	}
	m.items.Set(key, value, expiration)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Len reports the number of stored entries, expired ones not yet reclaimed
// included.
func (m *MemoryStore) Len() int {
	return m.items.ItemCount()
}
