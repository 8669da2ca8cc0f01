package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Config controls the fixed-window limiter applied to order placement.
type Config struct {
	Enabled        bool
	WindowDuration time.Duration
	OrderRequests  int
	WhitelistedIPs []string
}

// RateLimiter is a Redis-backed fixed-window counter keyed by client IP.
// Order placement is the only write-heavy public endpoint, so one bucket
// per IP per window is enough.
type RateLimiter struct {
	client *redis.Client
	config *Config
}

func NewRateLimiter(client *redis.Client, config *Config) *RateLimiter {
	return &RateLimiter{client: client, config: config}
}

// Allow increments the caller's window counter and reports whether the
// request is within limits. Fails open when Redis is unreachable.
func (rl *RateLimiter) Allow(ctx context.Context, ip string) (bool, int, error) {
	for _, whitelisted := range rl.config.WhitelistedIPs {
		if ip == whitelisted {
			return true, rl.config.OrderRequests, nil
		}
	}

	window := time.Now().Unix() / int64(rl.config.WindowDuration.Seconds())
	key := fmt.Sprintf("ratelimit:orders:%s:%d", ip, window)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.config.WindowDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, rl.config.OrderRequests, err
	}

	count := int(incr.Val())
	remaining := rl.config.OrderRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.config.OrderRequests, remaining, nil
}

// Middleware applies the limiter to a route group.
func Middleware(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || !rl.config.Enabled {
			c.Next()
			return
		}

		allowed, remaining, err := rl.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Redis outage must not block purchases
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.OrderRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many order requests, slow down",
			})
			return
		}

		c.Next()
	}
}
