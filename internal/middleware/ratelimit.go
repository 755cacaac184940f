package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereayou/cipherchat/internal/ratelimit"
)

// RateLimit rejects clients that exceed the limiter's window, keyed by
// client IP. A failing limiter lets requests through.
func RateLimit(limiter ratelimit.Limiter, scope string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
