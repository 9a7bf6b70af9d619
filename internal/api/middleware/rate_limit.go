package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter reports whether one more request fits in the window for key.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RateLimitMiddleware struct {
	limiter RateLimiter
}

func NewRateLimitMiddleware(limiter RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// WebSocketRateLimit limits handshakes per client IP. It runs before
// authentication, so the IP is the only key available. Limiter errors let
// the request through.
func (rm *RateLimitMiddleware) WebSocketRateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rm.limiter == nil || requests <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:websocket:%s", c.ClientIP())
		allowed, err := rm.limiter.CheckRateLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			slog.Warn("Rate limit check failed, allowing handshake", "clientIP", c.ClientIP(), "error", err)
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "WebSocket connection rate limit exceeded",
				"message": fmt.Sprintf("Too many connection attempts. Limit: %d per %v", requests, window),
			})
			return
		}

		c.Next()
	}
}
