package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

// HeaderIdempotencyKey lets a client retry a POST without it being applied twice.
const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyMiddleware returns a Gin middleware that rejects a request whose
// Idempotency-Key was already seen within ttl, so a double-submitted correction is
// queued once. Requests without the header pass through. Redis failures fail open.
// IdempotencyMiddleware 使用 Redis SETNX 拒绝重复提交的请求。
func IdempotencyMiddleware(redisClient redis.UniversalClient, ttl time.Duration, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ttl <= 0 {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > 128 {
			abort(c, errors.Validation("invalid idempotency key", map[string]string{HeaderIdempotencyKey: "must be at most 128 characters"}))
			return
		}

		// SETNX makes check-and-set atomic across replicas
		redisKey := "riskserve:idempotency:" + c.FullPath() + ":" + key
		isNew, err := redisClient.SetNX(c.Request.Context(), redisKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
		if err != nil {
			log.Error(c.Request.Context(), "Redis check for idempotency key failed", err, logger.Fields{"key": key})
			c.Next()
			return
		}
		if !isNew {
			log.Warn(c.Request.Context(), "Duplicate request rejected", logger.Fields{"key": key, "path": c.FullPath()})
			abort(c, errors.Duplicate(key))
			return
		}

		c.Next()

		// a rejected request may be retried with the same key
		if c.Writer.Status() >= http.StatusBadRequest {
			if err := redisClient.Del(c.Request.Context(), redisKey).Err(); err != nil {
				log.Warn(c.Request.Context(), "Failed to release idempotency key", logger.Fields{"key": key, "error": err.Error()})
			}
		}
	}
}
