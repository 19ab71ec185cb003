package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ociswap/registry/internal/service"
)

// RateLimitMiddleware throttles per client IP.
func RateLimitMiddleware(pool *service.LimiterPool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pool == nil {
			c.Next()
			return
		}

		if !pool.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": "1s",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
