package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ociswap/registry/internal/pkg/apperrors"
)

// ReadOnlyMiddleware rejects every mutating call while maintenance mode is on.
func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			c.Error(apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
			c.Abort()
		}
	}
}
