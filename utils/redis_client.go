package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cppla/pulso/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns the shared Redis client, or nil when Redis is disabled or
// unreachable at first use. Callers fall back to in-process behaviour on nil.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		if cfg.RedisDisabled {
			return
		}
		client := redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			Logger.Warn("redis unavailable, using in-process fallbacks", zap.Error(err))
			_ = client.Close()
			return
		}
		redisClient = client
	})
	return redisClient
}

// SetRedis installs a client directly, bypassing configuration.
func SetRedis(c *redis.Client) {
	redisOnce.Do(func() {})
	redisClient = c
}
