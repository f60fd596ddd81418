package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/devtofunmi/fake-bank/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

const webhookSecret = "whsec_test"

func TestWebhookSignature(t *testing.T) {
	const body = `{"reference":"WA-FUND-123","account_id":"3f1c","amount":"20.00"}`

	tests := []struct {
		name      string
		signature string
		verified  bool
		status    int
		code      string
	}{
		{name: "missing header", status: http.StatusUnauthorized, code: "SEC_002"},
		{name: "mismatch", signature: "bad", verified: false, status: http.StatusUnauthorized, code: "SEC_002"},
		{name: "verified", signature: "good", verified: true, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			sigSvc := mocks.NewMockSignatureService(ctrl)
			if tt.signature != "" {
				sigSvc.EXPECT().Verify(webhookSecret, []byte(body), tt.signature).Return(tt.verified)
			}

			var seen string
			router := gin.New()
			router.POST("/api/v1/webhooks/funding", WebhookSignature(sigSvc, webhookSecret, zerolog.Nop()), func(c *gin.Context) {
				b, _ := io.ReadAll(c.Request.Body)
				seen = string(b)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/funding", strings.NewReader(body))
			if tt.signature != "" {
				req.Header.Set(HeaderSignature, tt.signature)
			}
			w := serve(router, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Contains(t, w.Body.String(), tt.code)
				assert.Empty(t, seen, "handler must not run")
				return
			}
			assert.Equal(t, body, seen, "handler sees the signed body")
		})
	}
}

func TestWebhookSignature_OversizedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	sigSvc := mocks.NewMockSignatureService(ctrl)

	router := gin.New()
	router.Use(MaxBodySize(16))
	router.POST("/api/v1/webhooks/funding", WebhookSignature(sigSvc, webhookSecret, zerolog.Nop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/funding", io.NopCloser(strings.NewReader(strings.Repeat("a", 64))))
	req.ContentLength = -1
	req.Header.Set(HeaderSignature, "sig")
	w := serve(router, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "REQ_001")
}
