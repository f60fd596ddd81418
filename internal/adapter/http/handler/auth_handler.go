package handler

import (
	"github.com/devtofunmi/fake-bank/internal/adapter/http/dto"
	"github.com/devtofunmi/fake-bank/internal/adapter/http/middleware"
	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/pkg/apperror"
	"github.com/devtofunmi/fake-bank/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Signup handles POST /api/v1/auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.authSvc.Signup(c.Request.Context(), ports.SignupRequest{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, result.UserID.String())
	response.Created(c, dto.SignupResponse{
		UserID:    result.UserID.String(),
		AccountID: result.AccountID.String(),
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Attribute the audit entry to the user who just logged in.
	c.Set(middleware.CtxUserID, result.UserID)
	c.Set(middleware.CtxAuditResourceID, result.UserID.String())
	response.OK(c, dto.LoginResponse{
		Token:     result.Token,
		Expiry:    result.ExpiresAt.Unix(),
		UserID:    result.UserID.String(),
		AccountID: result.AccountID.String(),
	})
}

// Me handles GET /api/v1/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	user, account, err := h.authSvc.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.MeResponse{
		UserID:      user.ID.String(),
		Email:       user.Email,
		Name:        user.Name,
		PhoneNumber: user.PhoneNumber,
		Wallet: dto.BalanceResponse{
			AccountID:    account.ID.String(),
			Balance:      domain.FormatMajor(account.Balance),
			BalanceMinor: account.Balance,
		},
	})
}
