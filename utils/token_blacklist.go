package utils

import (
	"context"
	"sync"
	"time"
)

const revokedKeyPrefix = "pulso:jwt:revoked:"

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.RWMutex
)

// RevokeToken marks a token id as revoked until it would have expired anyway.
func RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := rc.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err(); err == nil {
			return
		}
	}
	revokedMu.Lock()
	revoked[tokenID] = expiresAt
	revokedMu.Unlock()
}

// IsTokenRevoked reports whether RevokeToken was called for tokenID.
// A Redis error counts as not revoked so an outage does not lock everyone out.
func IsTokenRevoked(ctx context.Context, tokenID string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if n, err := rc.Exists(ctx, revokedKeyPrefix+tokenID).Result(); err == nil && n > 0 {
			return true
		}
	}

	revokedMu.RLock()
	exp, ok := revoked[tokenID]
	revokedMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		revokedMu.Lock()
		delete(revoked, tokenID)
		revokedMu.Unlock()
		return false
	}
	return true
}
