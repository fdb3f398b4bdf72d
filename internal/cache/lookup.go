// Package cache puts a Redis read-through cache in front of the installation
// record lookup.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ardjee/forms/internal/matcher"
	"github.com/ardjee/forms/internal/model"
)

const keyPrefix = "forms:installations:"

// Client is the part of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// NewClient connects to Redis at addr.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Lookup caches candidate blocks from another matcher.Lookup. Redis failures
// are logged and fall through to the wrapped lookup.
type Lookup struct {
	next   matcher.Lookup
	client Client
	ttl    time.Duration
}

var _ matcher.Lookup = (*Lookup)(nil)

// NewLookup wraps next. Entries expire after ttl.
func NewLookup(next matcher.Lookup, client Client, ttl time.Duration) *Lookup {
	return &Lookup{next: next, client: client, ttl: ttl}
}

// Key returns the cache key for a postal code and city block.
func Key(postalCode, city string) string {
	return keyPrefix + postalCode + "|" + city
}

func (l *Lookup) QueryByPostalCodeAndCity(ctx context.Context, postalCode, city string) ([]model.InstallationRecord, error) {
	key := Key(postalCode, city)

	if records, ok := l.get(ctx, key); ok {
		return records, nil
	}

	records, err := l.next.QueryByPostalCodeAndCity(ctx, postalCode, city)
	if err != nil {
		return nil, err
	}
	// Empty blocks are not cached so a fresh import is visible immediately.
	if len(records) > 0 {
		l.set(ctx, key, records)
	}
	return records, nil
}

func (l *Lookup) get(ctx context.Context, key string) ([]model.InstallationRecord, bool) {
	raw, err := l.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		zap.L().Warn("cache: get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var records []model.InstallationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		zap.L().Warn("cache: corrupt entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return records, true
}

func (l *Lookup) set(ctx context.Context, key string, records []model.InstallationRecord) {
	raw, err := json.Marshal(records)
	if err != nil {
		zap.L().Warn("cache: marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := l.client.Set(ctx, key, raw, l.ttl).Err(); err != nil {
		zap.L().Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
}
