package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxRequestBodyBytes bounds every request body; registry payloads are a few hundred bytes.
const MaxRequestBodyBytes int64 = 1 << 20

// BodyLimitMiddleware makes reads past limit fail instead of buffering them.
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	if limit <= 0 {
		limit = MaxRequestBodyBytes
	}
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// readBody consumes the request body and puts it back for the next reader.
// On error the bytes read so far are put back in front of the failing reader,
// so later readers see the same error.
func readBody(c *gin.Context, limit int64) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))
		return body, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
