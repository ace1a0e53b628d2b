package middleware

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/turtacn/riskserve/internal/config"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

// idle client limiters are dropped after this long
const limiterIdleTTL = 10 * time.Minute

// RateLimitMiddleware limits requests per client IP with a token bucket.
// 按客户端 IP 的令牌桶限流。
func RateLimitMiddleware(cfg *config.RateLimitConfig, log logger.Logger) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := cache.New(limiterIdleTTL, limiterIdleTTL)
	var mu sync.Mutex
	limiterFor := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters.Get(key); ok {
			// touch so active clients keep their bucket
			limiters.SetDefault(key, l)
			return l.(*rate.Limiter)
		}
		l := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		limiters.SetDefault(key, l)
		return l
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := limiterFor(clientIP)
		if !limiter.Allow() {
			retryAfter := int(math.Ceil(1 / cfg.RequestsPerSecond))
			log.Warn(c.Request.Context(), "Rate limit exceeded", logger.Fields{"client_ip": clientIP, "path": c.FullPath()})
			c.Header("Retry-After", fmt.Sprint(retryAfter))
			abort(c, errors.RateLimited(retryAfter))
			return
		}
		c.Next()
	}
}
