package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ociswap/registry/internal/pkg/apperrors"
	"github.com/ociswap/registry/internal/pkg/logger"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle if there are errors
		if len(c.Errors) == 0 {
			return
		}

		// Get the last error; core sentinels map to their own codes
		appErr := apperrors.Wrap(c.Errors.Last().Err)

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", appErr.Type,
			"client_ip", c.ClientIP(),
		}

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "Internal Server Error", logFields...)
		} else {
			logger.Warn(appErr.Message, logFields...)
		}

		if c.Writer.Written() {
			return
		}
		AddAuditContext(c, "error_code", string(appErr.Type))
		c.JSON(appErr.HTTPStatus, appErr)
	}
}
