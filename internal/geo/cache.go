package geo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// KV is the cache backend, satisfied by the store's geo cache methods.
type KV interface {
	GetGeoCache(ctx context.Context, key string) ([]byte, bool, error)
	PutGeoCache(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// cache wraps the KV with JSON encoding and TTL policy. Cache failures are
// logged and treated as misses; lookups never fail an enrichment.
type cache struct {
	kv  KV
	ttl time.Duration
}

func newCache(kv KV, ttlDays int) *cache {
	return &cache{kv: kv, ttl: time.Duration(ttlDays) * 24 * time.Hour}
}

// pointKey builds a cache key for a coordinate-anchored lookup. Coordinates
// snap to 3 decimal places (roughly 110 m cells) so nearby requests share
// entries.
func pointKey(kind string, lat, lng float64) string {
	return hashKey(fmt.Sprintf("%s:%.3f:%.3f", kind, lat, lng))
}

// textKey builds a cache key for a text-anchored lookup (addresses).
func textKey(kind, text string) string {
	return hashKey(kind + ":" + text)
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return "geo_" + hex.EncodeToString(sum[:])
}

// get unmarshals a cached value into out, reporting whether it was found.
func (c *cache) get(ctx context.Context, key string, out any) bool {
	if c == nil || c.kv == nil {
		return false
	}
	data, ok, err := c.kv.GetGeoCache(ctx, key)
	if err != nil {
		zap.L().Warn("geo: cache read failed", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		zap.L().Warn("geo: cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *cache) put(ctx context.Context, key string, v any) {
	if c == nil || c.kv == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.kv.PutGeoCache(ctx, key, data, c.ttl); err != nil {
		zap.L().Warn("geo: cache write failed", zap.Error(err))
	}
}
