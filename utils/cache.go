package utils

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/pulso/config"
)

const (
	// TracksCacheKey holds the serialized track catalog.
	TracksCacheKey  = "pulso:cache:tracks"
	userCachePrefix = "pulso:cache:user:"
)

// UserCacheKey names a per-user read model, e.g. UserCacheKey(id, "profile").
func UserCacheKey(userID, part string) string {
	return userCachePrefix + userID + ":" + part
}

// CacheGetJSON decodes a cached value into out. Misses, Redis errors and
// undecodable payloads all report false.
func CacheGetJSON(ctx context.Context, key string, out interface{}) bool {
	rc := GetRedis()
	if rc == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		Logger.Warn("cache payload undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// CacheSetJSON stores v as JSON. A zero ttl uses the configured cache TTL.
func CacheSetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	if ttl <= 0 {
		ttl = config.Get().CacheTTL()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateUser drops every cached read model of one user. Called after any
// write that moves coins, streaks, track or intents.
func InvalidateUser(ctx context.Context, userID string) {
	InvalidateByPrefix(ctx, userCachePrefix+userID+":")
}

// InvalidateByPrefix deletes keys matching prefix using SCAN.
func InvalidateByPrefix(ctx context.Context, prefix string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ {
		keys, next, err := rc.Scan(ctx, cursor, prefix+"*", 500).Result()
		if err != nil {
			Logger.Warn("cache invalidation scan failed", zap.String("prefix", prefix), zap.Error(err))
			return
		}
		if len(keys) > 0 {
			_ = rc.Del(ctx, keys...).Err()
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
