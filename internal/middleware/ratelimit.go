package middleware

import (
	"context"
	"log"
	"strconv"
	"time"

	"flashfeed/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter counts hits per key in fixed windows.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int64, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "rl:" + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= l.limit, nil
}

// RateLimit throttles write routes per caller (or per client IP when
// anonymous). A nil limiter disables it; limiter failures let the request
// through.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if id, ok := CurrentUser(c); ok {
			key = "user:" + strconv.FormatUint(uint64(id.UserID), 10)
		}
		key += ":" + c.FullPath()

		ok, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			log.Printf("[%s] rate limiter unavailable: %v", GetRequestID(c), err)
			c.Next()
			return
		}
		if !ok {
			AbortWithError(c, apperr.TooManyRequests("Too many requests, slow down"))
			return
		}
		c.Next()
	}
}
