package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/mr1hm/go-quake-heatmap/internal/cache"
)

// RateLimiter hands each client IP its own token bucket. Idle buckets are
// forgotten after ttl.
type RateLimiter struct {
	rps      int
	limiters *cache.Cache[*rate.Limiter]
}

func NewRateLimiter(rps int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		rps:      rps,
		limiters: cache.New[*rate.Limiter](ttl, ttl),
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := l.limiters.GetOrCreate(c.ClientIP(), func() *rate.Limiter {
			return rate.NewLimiter(rate.Limit(l.rps), l.rps)
		})
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) Close() {
	l.limiters.Close()
}
