package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Yates-Labs/sleuth/internal/config"
	"github.com/Yates-Labs/sleuth/internal/logger"
)

// Policy holds the two expiry windows of a cached method.
type Policy struct {
	DataTTL   time.Duration
	NoDataTTL time.Duration
}

// DefaultPolicy keeps data for 30 days and empty results for an hour.
func DefaultPolicy() Policy {
	return Policy{
		DataTTL:   30 * 24 * time.Hour,
		NoDataTTL: time.Hour,
	}
}

// PolicyFromConfig fills missing windows from DefaultPolicy.
func PolicyFromConfig(cfg config.CacheConfig) Policy {
	p := DefaultPolicy()
	if cfg.DataTTL > 0 {
		p.DataTTL = cfg.DataTTL
	}
	if cfg.NoDataTTL > 0 {
		p.NoDataTTL = cfg.NoDataTTL
	}
	return p
}

// Cached memoizes calls returning T in a Store. Values are JSON encoded.
// A nil *Cached, or one without a store, calls through.
type Cached[T any] struct {
	store  Store
	policy Policy
	empty  func(T) bool
	log    *zap.Logger
}

// New wraps store. empty reports whether a result counts as "no data" and
// gets the shorter expiry; nil treats every result as data.
func New[T any](store Store, policy Policy, empty func(T) bool, log *zap.Logger) *Cached[T] {
	return &Cached[T]{
		store:  store,
		policy: policy,
		empty:  empty,
		log:    logger.OrNop(log),
	}
}

// Do returns the cached value for key, or runs fn and stores its result.
// Errors from fn are returned and never cached. Store failures are logged and
// otherwise ignored.
func (c *Cached[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error) {
	if c == nil || c.store == nil {
		return fn(ctx)
	}

	if raw, err := c.store.Get(ctx, key); err == nil {
		var hit T
		errUnmarshal := json.Unmarshal([]byte(raw), &hit)
		if errUnmarshal == nil {
			c.log.Debug("cache hit", zap.String("key", key))
			return hit, nil
		}
		c.log.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(errUnmarshal))
	} else if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	}

	val, err := fn(ctx)
	if err != nil {
		return val, err
	}

	encoded, err := json.Marshal(val)
	if err != nil {
		c.log.Warn("failed to encode value for cache", zap.String("key", key), zap.Error(err))
		return val, nil
	}

	ttl := c.policy.DataTTL
	if c.empty != nil && c.empty(val) {
		ttl = c.policy.NoDataTTL
	}

	if err := c.store.Set(ctx, key, string(encoded), ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	} else {
		c.log.Debug("cache store", zap.String("key", key), zap.Duration("ttl", ttl))
	}

	return val, nil
}
