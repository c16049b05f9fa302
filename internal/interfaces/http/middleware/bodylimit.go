package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodySize applies when the configured limit is zero
const DefaultMaxBodySize int64 = 1 << 20

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is refused with 413; bodies of unknown length are cut off while
// being read, which surfaces as a JSON decoding error in the handler.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abortWithError(c, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE",
				"Request body exceeds maximum allowed size")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
