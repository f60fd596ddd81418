package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/devtofunmi/fake-bank/internal/adapter/http/dto"
	"github.com/devtofunmi/fake-bank/internal/adapter/http/middleware"
	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/pkg/apperror"
	"github.com/devtofunmi/fake-bank/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// WalletHandler handles the authenticated wallet endpoints.
type WalletHandler struct {
	walletSvc    ports.WalletService
	reportingSvc ports.ReportingService
	jobSvc       ports.JobService // nil = scheduling disabled
	users        ports.UserRepository
	accounts     ports.AccountRepository
	now          func() time.Time
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(
	walletSvc ports.WalletService,
	reportingSvc ports.ReportingService,
	jobSvc ports.JobService,
	users ports.UserRepository,
	accounts ports.AccountRepository,
) *WalletHandler {
	return &WalletHandler{
		walletSvc:    walletSvc,
		reportingSvc: reportingSvc,
		jobSvc:       jobSvc,
		users:        users,
		accounts:     accounts,
		now:          time.Now,
	}
}

// GetBalance handles GET /api/v1/wallet.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.walletSvc.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		AccountID:    result.AccountID.String(),
		Balance:      domain.FormatMajor(result.BalanceMinorUnits),
		BalanceMinor: result.BalanceMinorUnits,
	})
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	senderID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	transfer, err := h.transferRequest(c.Request.Context(), senderID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.walletSvc.Transfer(c.Request.Context(), transfer)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, result.Reference)
	response.OK(c, dto.TransferResponse{
		Reference:       result.Reference,
		NewBalance:      domain.FormatMajor(result.NewSenderBalance),
		NewBalanceMinor: result.NewSenderBalance,
	})
}

// ScheduleTransfer handles POST /api/v1/wallet/transfers/scheduled.
func (h *WalletHandler) ScheduleTransfer(c *gin.Context) {
	senderID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ScheduledTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	runAt, err := parseRunAt(req.RunAt)
	if err != nil {
		response.Error(c, err)
		return
	}

	transfer, err := h.transferRequest(c.Request.Context(), senderID, &req.TransferRequest)
	if err != nil {
		response.Error(c, err)
		return
	}

	job, err := h.jobSvc.ScheduleTransfer(c.Request.Context(), transfer, runAt)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeJob(c, job)
}

// ScheduleDeposit handles POST /api/v1/wallet/deposits/scheduled.
func (h *WalletHandler) ScheduleDeposit(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ScheduledDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	runAt, err := parseRunAt(req.RunAt)
	if err != nil {
		response.Error(c, err)
		return
	}
	amount, err := minorAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	job, err := h.jobSvc.ScheduleDeposit(c.Request.Context(), ports.DepositRequest{
		AccountID: accountID,
		Amount:    amount,
		Reference: req.Reference,
	}, runAt)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeJob(c, job)
}

func parseRunAt(raw string) (time.Time, error) {
	runAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperror.Validation("run_at must be an RFC 3339 timestamp")
	}
	return runAt, nil
}

func writeJob(c *gin.Context, job *domain.ScheduledJob) {
	c.Set(middleware.CtxAuditResourceID, job.ID.String())
	response.Created(c, dto.ScheduledJobResponse{
		ID:     job.ID.String(),
		Type:   string(job.Type),
		Status: string(job.Status),
		RunAt:  job.RunAt.Format(time.RFC3339),
	})
}

// Deposit handles POST /api/v1/wallet/deposit. A deposit without a reference
// gets a MANUAL-<unix-ms> reference.
func (h *WalletHandler) Deposit(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := minorAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	reference := req.Reference
	if reference == "" {
		reference = "MANUAL-" + strconv.FormatInt(h.now().UnixMilli(), 10)
	}

	result, err := h.walletSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		AccountID: accountID,
		Amount:    amount,
		Reference: reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAuditResourceID, result.Reference)
	writeDeposit(c, result)
}

// ListTransactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	txns, total, err := h.reportingSvc.History(c.Request.Context(), accountID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	response.Paged(c, items, response.PageMeta{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	})
}

// Reconcile handles GET /api/v1/wallet/reconcile.
func (h *WalletHandler) Reconcile(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	rec, err := h.reportingSvc.Reconcile(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ReconcileResponse{
		AccountID:     rec.AccountID.String(),
		CachedBalance: domain.FormatMajor(rec.CachedBalance),
		LedgerBalance: domain.FormatMajor(rec.LedgerBalance),
		DriftMinor:    rec.Drift(),
		Entries:       rec.Entries,
		InBalance:     rec.Drift() == 0,
	})
}

// transferRequest validates the amount and resolves the single recipient
// selector to an account.
func (h *WalletHandler) transferRequest(ctx context.Context, senderID uuid.UUID, req *dto.TransferRequest) (ports.TransferRequest, error) {
	if req.RecipientCount() != 1 {
		return ports.TransferRequest{}, apperror.Validation("exactly one of to_account_id, to_email or to_phone is required")
	}
	amount, err := minorAmount(req.Amount)
	if err != nil {
		return ports.TransferRequest{}, err
	}
	receiverID, err := h.resolveRecipient(ctx, req)
	if err != nil {
		return ports.TransferRequest{}, err
	}
	return ports.TransferRequest{
		SenderAccountID:   senderID,
		ReceiverAccountID: receiverID,
		Amount:            amount,
	}, nil
}

func (h *WalletHandler) resolveRecipient(ctx context.Context, req *dto.TransferRequest) (uuid.UUID, error) {
	var (
		user *domain.User
		err  error
	)
	switch {
	case req.ToAccountID != nil && *req.ToAccountID != "":
		id, err := uuid.Parse(*req.ToAccountID)
		if err != nil {
			return uuid.Nil, apperror.Validation("to_account_id must be a UUID")
		}
		account, err := h.accounts.GetByID(ctx, id)
		if err != nil {
			return uuid.Nil, apperror.InternalError(fmt.Errorf("find recipient account: %w", err))
		}
		if account == nil {
			return uuid.Nil, apperror.ErrAccountNotFound()
		}
		return account.ID, nil
	case req.ToEmail != nil && *req.ToEmail != "":
		user, err = h.users.GetByEmail(ctx, strings.ToLower(*req.ToEmail))
	default:
		user, err = h.users.GetByPhone(ctx, *req.ToPhone)
	}
	if err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("find recipient: %w", err))
	}
	if user == nil {
		return uuid.Nil, apperror.ErrAccountNotFound()
	}

	account, err := h.accounts.GetByUserID(ctx, user.ID)
	if err != nil {
		return uuid.Nil, apperror.InternalError(fmt.Errorf("find recipient account: %w", err))
	}
	if account == nil {
		return uuid.Nil, apperror.ErrAccountNotFound()
	}
	return account.ID, nil
}

// minorAmount converts a major-unit request amount to positive minor units.
func minorAmount(major decimal.Decimal) (int64, error) {
	minor, err := domain.ToPositiveMinorUnits(major)
	switch {
	case errors.Is(err, domain.ErrAmountNotPositive):
		return 0, apperror.ErrInvalidAmount()
	case err != nil:
		return 0, apperror.Validation(err.Error())
	}
	return minor, nil
}

// writeDeposit answers 201 for a new credit and 200 for a replay.
func writeDeposit(c *gin.Context, result *ports.DepositResult) {
	body := dto.DepositResponse{
		Reference:       result.Reference,
		Amount:          domain.FormatMajor(result.Amount),
		NewBalance:      domain.FormatMajor(result.NewBalance),
		NewBalanceMinor: result.NewBalance,
		Replayed:        result.Replayed,
	}
	if result.Replayed {
		response.OK(c, body)
		return
	}
	response.Created(c, body)
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:           t.ID.String(),
		Kind:         string(t.Kind),
		Amount:       domain.FormatMajor(t.Amount),
		AmountMinor:  t.Amount,
		Reference:    t.Reference,
		BalanceAfter: domain.FormatMajor(t.BalanceAfter),
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}
