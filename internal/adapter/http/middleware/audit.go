package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxAuditResourceID lets a handler name the resource an audited request touched,
// such as a transfer reference.
const CtxAuditResourceID = "audit_resource_id"

// AuditLog creates an audit middleware that records successful write operations.
// Routes are matched on their registered pattern, not the raw URL.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method != http.MethodPost {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath())
		if action == "" {
			return
		}

		var userID *uuid.UUID
		if id, ok := UserID(c); ok {
			userID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxAuditResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route string) (domain.AuditAction, string) {
	switch route {
	case "/api/v1/auth/signup":
		return domain.AuditActionSignup, "user"
	case "/api/v1/auth/login":
		return domain.AuditActionLogin, "session"
	case "/api/v1/wallet/transfer":
		return domain.AuditActionTransfer, "transaction"
	case "/api/v1/wallet/deposit":
		return domain.AuditActionDeposit, "transaction"
	case "/api/v1/wallet/transfers/scheduled", "/api/v1/wallet/deposits/scheduled":
		return domain.AuditActionSchedule, "job"
	case "/api/v1/webhooks/funding":
		return domain.AuditActionFunding, "transaction"
	}
	return "", ""
}
