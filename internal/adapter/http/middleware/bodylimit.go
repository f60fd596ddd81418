package middleware

import (
	"net/http"

	"github.com/devtofunmi/fake-bank/pkg/apperror"
	"github.com/devtofunmi/fake-bank/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize rejects bodies over maxBytes. A declared Content-Length over the
// limit is refused before the handler runs; otherwise reads past the limit fail.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrBodyTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
