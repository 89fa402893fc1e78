package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cppla/pulso/config"
)

type failureWindow struct {
	count     int
	expiresAt time.Time
}

var (
	loginFailures   = map[string]failureWindow{}
	loginFailuresMu sync.Mutex
)

func loginKey(username, ip string) string {
	return "pulso:login:fail:" + strings.ToLower(username) + ":" + ip
}

// LoginLocked reports whether username has hit the failure limit from ip
// within the lockout window.
func LoginLocked(ctx context.Context, username, ip string) bool {
	cfg := config.Get()
	if cfg.LoginMaxFailures <= 0 {
		return false
	}
	return loginFailureCount(ctx, loginKey(username, ip)) >= cfg.LoginMaxFailures
}

// LoginFailed records one failed attempt. The window restarts on the first
// failure and is not extended by later ones.
func LoginFailed(ctx context.Context, username, ip string) {
	window := time.Duration(config.Get().LoginLockoutMinutes) * time.Minute
	key := loginKey(username, ip)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := rc.Incr(ctx, key).Result()
		if err == nil {
			if n == 1 {
				_ = rc.Expire(ctx, key, window).Err()
			}
			return
		}
	}

	loginFailuresMu.Lock()
	defer loginFailuresMu.Unlock()
	w := loginFailures[key]
	if time.Now().After(w.expiresAt) {
		w = failureWindow{expiresAt: time.Now().Add(window)}
	}
	w.count++
	loginFailures[key] = w
}

// LoginSucceeded clears the failure counter.
func LoginSucceeded(ctx context.Context, username, ip string) {
	key := loginKey(username, ip)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		_ = rc.Del(ctx, key).Err()
	}
	loginFailuresMu.Lock()
	delete(loginFailures, key)
	loginFailuresMu.Unlock()
}

func loginFailureCount(ctx context.Context, key string) int {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		n, err := rc.Get(ctx, key).Int()
		if err == nil {
			return n
		}
	}
	loginFailuresMu.Lock()
	defer loginFailuresMu.Unlock()
	w, ok := loginFailures[key]
	if !ok {
		return 0
	}
	if time.Now().After(w.expiresAt) {
		delete(loginFailures, key)
		return 0
	}
	return w.count
}
