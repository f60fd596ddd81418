package handler

import (
	"github.com/devtofunmi/fake-bank/internal/adapter/http/dto"
	"github.com/devtofunmi/fake-bank/internal/adapter/http/middleware"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/pkg/apperror"
	"github.com/devtofunmi/fake-bank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FundingHandler receives credits from the external funding provider.
type FundingHandler struct {
	walletSvc ports.WalletService
}

// NewFundingHandler creates a new FundingHandler.
func NewFundingHandler(walletSvc ports.WalletService) *FundingHandler {
	return &FundingHandler{walletSvc: walletSvc}
}

// Webhook handles POST /api/v1/webhooks/funding. The provider retries until it
// sees a 2xx, so a replayed reference answers 200 with the recorded result.
func (h *FundingHandler) Webhook(c *gin.Context) {
	var req dto.FundingWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.Error(c, apperror.Validation("account_id must be a UUID"))
		return
	}
	amount, err := minorAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.walletSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		AccountID: accountID,
		Amount:    amount,
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, result.Reference)
	writeDeposit(c, result)
}
