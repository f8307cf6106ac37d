package cache

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"algocrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// NullCacheValue marks a cached absence so repeated misses do not reach the service.
const NullCacheValue = "$NULL$"

// GetWithCached implements cache-aside with null value caching.
// A nil cache always calls fn. Cache read and write failures are ignored.
func GetWithCached[T any](
	ctx context.Context,
	cache Cache,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) (string, error),
	unmarshal func(string) (T, error),
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T
	if cache == nil {
		return fn(ctx)
	}

	cached, err := cache.Get(ctx, key)
	switch {
	case err != nil:
		logger.Debug(ctx, "cache read failed", zap.String("key", key), zap.Error(err))
	case cached == NullCacheValue:
		return zero, nil
	case cached != "":
		result, err := unmarshal(cached)
		if err == nil {
			return result, nil
		}
		logger.Debug(ctx, "cached entry unreadable", zap.String("key", key), zap.Error(err))
	}

	data, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	if isEmpty(data) {
		if err := cache.Set(ctx, key, NullCacheValue, emptyTTL); err != nil {
			logger.Debug(ctx, "cache write failed", zap.String("key", key), zap.Error(err))
		}
		return zero, nil
	}

	encoded, err := marshal(data)
	if err != nil {
		return data, nil
	}
	if err := cache.Set(ctx, key, encoded, JitterTTL(ttl)); err != nil {
		logger.Debug(ctx, "cache write failed", zap.String("key", key), zap.Error(err))
	}
	return data, nil
}

// Invalidate removes keys, ignoring a nil cache.
func Invalidate(ctx context.Context, cache Cache, keys ...string) error {
	if cache == nil || len(keys) == 0 {
		return nil
	}
	return cache.Del(ctx, keys...)
}

// JitterTTL shortens ttl by up to 10% so entries written together do not expire together.
func JitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	maxJitter := int64(ttl / 10)
	if maxJitter <= 0 {
		return ttl
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxJitter+1))
	if err != nil {
		return ttl
	}
	return ttl - time.Duration(n.Int64())
}
