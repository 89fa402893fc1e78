package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/pulso/config"
	"github.com/cppla/pulso/utils"
)

const limiterIdleTTL = 5 * time.Minute

type clientLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

type limiterSet struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
}

func newLimiterSet(perMinute int) *limiterSet {
	perMinute = max(perMinute, 1)
	return &limiterSet{
		clients: map[string]*clientLimiter{},
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
	}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, c := range s.clients {
		if now.After(c.expires) {
			delete(s.clients, k)
		}
	}
	c, ok := s.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[key] = c
	}
	c.expires = now.Add(limiterIdleTTL)
	return c.limiter.Allow()
}

// RateLimitMiddleware applies a token bucket per client key: the user id when
// authenticated, the client IP otherwise.
func RateLimitMiddleware() gin.HandlerFunc {
	return RateLimit(config.Get().RateLimitPerMinute)
}

// RateLimit is RateLimitMiddleware with an explicit budget.
func RateLimit(perMinute int) gin.HandlerFunc {
	set := newLimiterSet(perMinute)
	return func(ctx *gin.Context) {
		key := ctx.ClientIP()
		if uid := ctx.GetString(ContextUserIDKey); uid != "" {
			key = "user:" + uid
		}
		if !set.allow(key) {
			utils.Abort(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}
