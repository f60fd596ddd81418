package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/pkg/apperror"
	"github.com/devtofunmi/fake-bank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderSignature carries the hex HMAC-SHA256 of a funding webhook body.
const HeaderSignature = "X-Signature"

// WebhookSignature authenticates funding provider callbacks. The signature
// covers the raw body, which is restored for the handler after verification.
func WebhookSignature(sigSvc ports.SignatureService, secret string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(HeaderSignature)
		if signature == "" {
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(c, apperror.ErrBodyTooLarge())
			} else {
				response.Error(c, apperror.Validation("cannot read request body"))
			}
			c.Abort()
			return
		}

		if !sigSvc.Verify(secret, body, signature) {
			log.Warn().
				Str("client_ip", c.ClientIP()).
				Int("body_bytes", len(body)).
				Msg("funding webhook signature mismatch")
			response.Error(c, apperror.ErrInvalidSignature())
			c.Abort()
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}
