package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devtofunmi/fake-bank/internal/adapter/http/middleware"
	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/internal/core/ports/mocks"
	"github.com/devtofunmi/fake-bank/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type walletDeps struct {
	h         *WalletHandler
	wallet    *mocks.MockWalletService
	reporting *mocks.MockReportingService
	jobs      *mocks.MockJobService
	users     *mocks.MockUserRepository
	accounts  *mocks.MockAccountRepository
}

func setupWalletHandler(ctrl *gomock.Controller) *walletDeps {
	d := &walletDeps{
		wallet:    mocks.NewMockWalletService(ctrl),
		reporting: mocks.NewMockReportingService(ctrl),
		jobs:      mocks.NewMockJobService(ctrl),
		users:     mocks.NewMockUserRepository(ctrl),
		accounts:  mocks.NewMockAccountRepository(ctrl),
	}
	d.h = NewWalletHandler(d.wallet, d.reporting, d.jobs, d.users, d.accounts)
	return d
}

// newTestContext builds a context for method and target with a raw JSON body.
func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

// authenticate sets what JWTAuth would have stored for the caller.
func authenticate(c *gin.Context, userID, accountID uuid.UUID) {
	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxAccountID, accountID)
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["error_code"].(string)
	return code
}

// --- Auth Handler Tests ---

func TestSignup_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	userID, accountID := uuid.New(), uuid.New()
	phone := "+2348012345678"
	mockAuth.EXPECT().Signup(gomock.Any(), ports.SignupRequest{
		Email:       "ada@example.com",
		Password:    "<b>StrongP@ss</b>",
		Name:        "Ada",
		PhoneNumber: &phone,
	}).Return(&ports.SignupResponse{UserID: userID, AccountID: accountID}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/signup",
		`{"email":"ada@example.com","password":"<b>StrongP@ss</b>","name":"Ada","phone_number":"+2348012345678"}`)
	h.Signup(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, userID.String(), data["user_id"])
	assert.Equal(t, accountID.String(), data["account_id"])
	assert.Equal(t, userID.String(), c.GetString(middleware.CtxAuditResourceID))
}

func TestSignup_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockAuthService(ctrl))

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/signup", `{"email":"not-an-email","password":"short"}`)
	h.Signup(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "WAL_002", errorCode(t, w))
}

func TestSignup_UserExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)
	mockAuth.EXPECT().Signup(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrUserExists())

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/signup",
		`{"email":"ada@example.com","password":"StrongP@ss123","name":"Ada"}`)
	h.Signup(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AUTH_002", errorCode(t, w))
}

func TestLogin_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	userID, accountID := uuid.New(), uuid.New()
	expiry := time.Now().Add(24 * time.Hour)
	mockAuth.EXPECT().Login(gomock.Any(), "ada@example.com", "StrongP@ss123").Return(&ports.LoginResponse{
		Token:     "jwt_token",
		ExpiresAt: expiry,
		UserID:    userID,
		AccountID: accountID,
	}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"StrongP@ss123"}`)
	h.Login(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "jwt_token", data["token"])
	assert.Equal(t, float64(expiry.Unix()), data["expiry"])
	assert.Equal(t, accountID.String(), data["account_id"])

	got, ok := middleware.UserID(c)
	require.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)
	mockAuth.EXPECT().Login(gomock.Any(), "ada@example.com", "wrong").Return(nil, apperror.ErrInvalidCredentials())

	c, w := newTestContext(http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"wrong"}`)
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_001", errorCode(t, w))
}

func TestMe_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	userID, accountID := uuid.New(), uuid.New()
	mockAuth.EXPECT().Me(gomock.Any(), userID).Return(
		&domain.User{ID: userID, Email: "ada@example.com", Name: "Ada"},
		&domain.Account{ID: accountID, UserID: userID, Balance: 5000},
		nil,
	)

	c, w := newTestContext(http.MethodGet, "/api/v1/me", "")
	authenticate(c, userID, accountID)
	h.Me(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "ada@example.com", data["email"])
	wallet := data["wallet"].(map[string]interface{})
	assert.Equal(t, "50.00", wallet["balance"])
	assert.Equal(t, float64(5000), wallet["balance_minor"])
}

func TestMe_Unauthenticated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockAuthService(ctrl))
	c, w := newTestContext(http.MethodGet, "/api/v1/me", "")
	h.Me(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_003", errorCode(t, w))
}

// --- Wallet Handler Tests ---

func TestGetBalance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	accountID := uuid.New()
	d.wallet.EXPECT().GetBalance(gomock.Any(), accountID).Return(&ports.BalanceResult{
		AccountID:         accountID,
		BalanceMinorUnits: 5000,
	}, nil)

	c, w := newTestContext(http.MethodGet, "/api/v1/wallet", "")
	authenticate(c, uuid.New(), accountID)
	d.h.GetBalance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "50.00", data["balance"])
	assert.Equal(t, float64(5000), data["balance_minor"])
}

func TestTransfer_ToAccountID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	sender, receiver := uuid.New(), uuid.New()

	d.accounts.EXPECT().GetByID(gomock.Any(), receiver).Return(&domain.Account{ID: receiver}, nil)
	d.wallet.EXPECT().Transfer(gomock.Any(), ports.TransferRequest{
		SenderAccountID:   sender,
		ReceiverAccountID: receiver,
		Amount:            5000,
	}).Return(&ports.TransferResult{Reference: "TRF-abc", NewSenderBalance: 5000}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfer",
		`{"to_account_id":"`+receiver.String()+`","amount":"50.00"}`)
	authenticate(c, uuid.New(), sender)
	d.h.Transfer(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "TRF-abc", data["reference"])
	assert.Equal(t, "50.00", data["new_balance"])
	assert.Equal(t, "TRF-abc", c.GetString(middleware.CtxAuditResourceID))
}

func TestTransfer_ToEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	sender, receiver, bob := uuid.New(), uuid.New(), uuid.New()

	d.users.EXPECT().GetByEmail(gomock.Any(), "bob@example.com").Return(&domain.User{ID: bob}, nil)
	d.accounts.EXPECT().GetByUserID(gomock.Any(), bob).Return(&domain.Account{ID: receiver, UserID: bob}, nil)
	d.wallet.EXPECT().Transfer(gomock.Any(), ports.TransferRequest{
		SenderAccountID:   sender,
		ReceiverAccountID: receiver,
		Amount:            2001, // 20.005 rounds half away from zero
	}).Return(&ports.TransferResult{Reference: "TRF-x", NewSenderBalance: 0}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfer", `{"to_email":"Bob@Example.com","amount":20.005}`)
	authenticate(c, uuid.New(), sender)
	d.h.Transfer(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decodeData(t, w)["new_balance"])
}

func TestTransfer_ToPhone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	sender, receiver, bob := uuid.New(), uuid.New(), uuid.New()

	d.users.EXPECT().GetByPhone(gomock.Any(), "+2348012345678").Return(&domain.User{ID: bob}, nil)
	d.accounts.EXPECT().GetByUserID(gomock.Any(), bob).Return(&domain.Account{ID: receiver, UserID: bob}, nil)
	d.wallet.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(&ports.TransferResult{Reference: "TRF-p"}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfer", `{"to_phone":"+2348012345678","amount":"1.00"}`)
	authenticate(c, uuid.New(), sender)
	d.h.Transfer(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransfer_RecipientSelectors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"none", `{"amount":"1.00"}`},
		{"two", `{"to_email":"bob@example.com","to_phone":"+2348012345678","amount":"1.00"}`},
		{"empty string", `{"to_email":"","amount":"1.00"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			d := setupWalletHandler(ctrl)
			c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfer", tc.body)
			authenticate(c, uuid.New(), uuid.New())
			d.h.Transfer(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "WAL_002", errorCode(t, w))
		})
	}
}

func TestTransfer_InvalidAmount(t *testing.T) {
	for _, amount := range []string{`"0"`, `"-5.00"`, `"0.004"`} {
		ctrl := gomock.NewController(t)
		d := setupWalletHandler(ctrl)

		c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfer",
			`{"to_account_id":"`+uuid.NewString()+`","amount":`+amount+`}`)
		authenticate(c, uuid.New(), uuid.New())
		d.h.Transfer(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, "amount %s", amount)
		assert.Equal(t, "WAL_002", errorCode(t, w))
		ctrl.Finish()
	}
}

func TestTransfer_RecipientNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	d.users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfer", `{"to_email":"ghost@example.com","amount":"1.00"}`)
	authenticate(c, uuid.New(), uuid.New())
	d.h.Transfer(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "WAL_004", errorCode(t, w))
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	receiver := uuid.New()
	d.accounts.EXPECT().GetByID(gomock.Any(), receiver).Return(&domain.Account{ID: receiver}, nil)
	d.wallet.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfer",
		`{"to_account_id":"`+receiver.String()+`","amount":"1000000.00"}`)
	authenticate(c, uuid.New(), uuid.New())
	d.h.Transfer(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "WAL_001", errorCode(t, w))
}

func TestTransfer_Busy(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	receiver := uuid.New()
	d.accounts.EXPECT().GetByID(gomock.Any(), receiver).Return(&domain.Account{ID: receiver}, nil)
	d.wallet.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrLockTimeout(errors.New("lock wait")))

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfer",
		`{"to_account_id":"`+receiver.String()+`","amount":"1.00"}`)
	authenticate(c, uuid.New(), uuid.New())
	d.h.Transfer(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SYS_002", errorCode(t, w))
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestDeposit_DefaultReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	d.h.now = func() time.Time { return time.UnixMilli(1700000000000) }
	accountID := uuid.New()

	d.wallet.EXPECT().Deposit(gomock.Any(), ports.DepositRequest{
		AccountID: accountID,
		Amount:    2000,
		Reference: "MANUAL-1700000000000",
	}).Return(&ports.DepositResult{
		Reference:  "MANUAL-1700000000000",
		AccountID:  accountID,
		Amount:     2000,
		NewBalance: 2000,
	}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/deposit", `{"amount":"20.00"}`)
	authenticate(c, uuid.New(), accountID)
	d.h.Deposit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "20.00", data["amount"])
	assert.Equal(t, "20.00", data["new_balance"])
	assert.Equal(t, false, data["replayed"])
}

func TestDeposit_ReplayAnswers200(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	accountID := uuid.New()
	d.wallet.EXPECT().Deposit(gomock.Any(), ports.DepositRequest{
		AccountID: accountID,
		Amount:    500,
		Reference: "REF-1",
	}).Return(&ports.DepositResult{Reference: "REF-1", AccountID: accountID, Amount: 500, NewBalance: 500, Replayed: true}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/deposit", `{"amount":"5.00","reference":"REF-1"}`)
	authenticate(c, uuid.New(), accountID)
	d.h.Deposit(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeData(t, w)["replayed"])
}

func TestDeposit_UnsafeReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/deposit", `{"amount":"5.00","reference":"REF 1; DROP"}`)
	authenticate(c, uuid.New(), uuid.New())
	d.h.Deposit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTransactions_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	accountID := uuid.New()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	d.reporting.EXPECT().History(gomock.Any(), accountID, 2, 20).Return([]domain.Transaction{
		{ID: uuid.New(), AccountID: accountID, Kind: domain.EntryKindCredit, Amount: 500, Reference: "REF-1", BalanceAfter: 500, CreatedAt: created},
	}, int64(21), nil)

	// An out-of-range page size falls back to the default.
	c, w := newTestContext(http.MethodGet, "/api/v1/wallet/transactions?page=2&page_size=500", "")
	authenticate(c, uuid.New(), accountID)
	d.h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []map[string]interface{} `json:"data"`
		Meta map[string]interface{}   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "credit", resp.Data[0]["kind"])
	assert.Equal(t, "5.00", resp.Data[0]["amount"])
	assert.Equal(t, "2024-01-02T03:04:05Z", resp.Data[0]["created_at"])
	assert.Equal(t, float64(21), resp.Meta["total"])
	assert.Equal(t, float64(2), resp.Meta["page"])
	assert.Equal(t, float64(20), resp.Meta["page_size"])
}

func TestListTransactions_ServiceError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	d.reporting.EXPECT().History(gomock.Any(), gomock.Any(), 1, 20).Return(nil, int64(0), apperror.ErrDatabaseError(errors.New("db down")))

	c, w := newTestContext(http.MethodGet, "/api/v1/wallet/transactions", "")
	authenticate(c, uuid.New(), uuid.New())
	d.h.ListTransactions(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestReconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	accountID := uuid.New()
	d.reporting.EXPECT().Reconcile(gomock.Any(), accountID).Return(&ports.Reconciliation{
		AccountID:     accountID,
		CachedBalance: 1500,
		LedgerBalance: 1500,
		Entries:       3,
	}, nil)

	c, w := newTestContext(http.MethodGet, "/api/v1/wallet/reconcile", "")
	authenticate(c, uuid.New(), accountID)
	d.h.Reconcile(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "15.00", data["ledger_balance"])
	assert.Equal(t, true, data["in_balance"])
	assert.Equal(t, float64(0), data["drift_minor"])
}

func TestScheduleTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	sender, receiver := uuid.New(), uuid.New()
	runAt := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

	d.accounts.EXPECT().GetByID(gomock.Any(), receiver).Return(&domain.Account{ID: receiver}, nil)
	d.jobs.EXPECT().ScheduleTransfer(gomock.Any(), ports.TransferRequest{
		SenderAccountID:   sender,
		ReceiverAccountID: receiver,
		Amount:            1000,
	}, runAt).Return(&domain.ScheduledJob{
		ID:     uuid.New(),
		Type:   domain.JobTypeTransfer,
		Status: domain.JobStatusPending,
		RunAt:  runAt,
	}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfers/scheduled",
		`{"to_account_id":"`+receiver.String()+`","amount":"10.00","run_at":"2030-05-01T09:00:00Z"}`)
	authenticate(c, uuid.New(), sender)
	d.h.ScheduleTransfer(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, string(domain.JobStatusPending), data["status"])
	assert.Equal(t, "2030-05-01T09:00:00Z", data["run_at"])
}

func TestScheduleTransfer_BadRunAt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/transfers/scheduled",
		`{"to_account_id":"`+uuid.NewString()+`","amount":"10.00","run_at":"tomorrow"}`)
	authenticate(c, uuid.New(), uuid.New())
	d.h.ScheduleTransfer(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	accountID := uuid.New()
	runAt := time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)
	jobID := uuid.New()

	d.jobs.EXPECT().ScheduleDeposit(gomock.Any(), ports.DepositRequest{
		AccountID: accountID,
		Amount:    2550,
	}, runAt).Return(&domain.ScheduledJob{
		ID:     jobID,
		Type:   domain.JobTypeDeposit,
		Status: domain.JobStatusPending,
		RunAt:  runAt,
	}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/deposits/scheduled",
		`{"amount":"25.50","run_at":"2030-05-01T09:00:00Z"}`)
	authenticate(c, uuid.New(), accountID)
	d.h.ScheduleDeposit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, jobID.String(), data["id"])
	assert.Equal(t, string(domain.JobTypeDeposit), data["type"])
	assert.Equal(t, jobID.String(), c.GetString(middleware.CtxAuditResourceID))
}

func TestScheduleDeposit_InvalidAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	d := setupWalletHandler(ctrl)
	c, w := newTestContext(http.MethodPost, "/api/v1/wallet/deposits/scheduled",
		`{"amount":"0","run_at":"2030-05-01T09:00:00Z"}`)
	authenticate(c, uuid.New(), uuid.New())
	d.h.ScheduleDeposit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "WAL_002", errorCode(t, w))
}

// --- Funding Webhook Tests ---

func TestFundingWebhook_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewFundingHandler(mockWallet)
	accountID := uuid.New()

	mockWallet.EXPECT().Deposit(gomock.Any(), ports.DepositRequest{
		AccountID: accountID,
		Amount:    2000,
		Reference: "WA-FUND-123",
	}).Return(&ports.DepositResult{Reference: "WA-FUND-123", AccountID: accountID, Amount: 2000, NewBalance: 2000}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/webhooks/funding",
		`{"reference":"WA-FUND-123","account_id":"`+accountID.String()+`","amount":"20.00"}`)
	h.Webhook(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "WA-FUND-123", c.GetString(middleware.CtxAuditResourceID))
}

func TestFundingWebhook_ReferenceConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockWallet := mocks.NewMockWalletService(ctrl)
	h := NewFundingHandler(mockWallet)
	mockWallet.EXPECT().Deposit(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrDuplicateReference())

	c, w := newTestContext(http.MethodPost, "/api/v1/webhooks/funding",
		`{"reference":"WA-FUND-123","account_id":"`+uuid.NewString()+`","amount":"25.00"}`)
	h.Webhook(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "WAL_003", errorCode(t, w))
}

func TestFundingWebhook_MissingReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewFundingHandler(mocks.NewMockWalletService(ctrl))
	c, w := newTestContext(http.MethodPost, "/api/v1/webhooks/funding",
		`{"account_id":"`+uuid.NewString()+`","amount":"20.00"}`)
	h.Webhook(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health Check Tests ---

func TestHealthCheck(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/health", "")
	HealthCheck()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := mocks.NewMockHealthChecker(ctrl)
	db.EXPECT().Ping(gomock.Any()).Return(nil)
	db.EXPECT().Name().Return("postgres")
	cache := mocks.NewMockHealthChecker(ctrl)
	cache.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	cache.EXPECT().Name().Return("redis")

	c, w := newTestContext(http.MethodGet, "/health", "")
	HealthCheck(db, cache)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp struct {
		Status       string                       `json:"status"`
		Dependencies map[string]map[string]any `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Dependencies["postgres"]["status"])
	assert.Equal(t, "unhealthy", resp.Dependencies["redis"]["status"])
	assert.Equal(t, "connection refused", resp.Dependencies["redis"]["error"])
	assert.Contains(t, resp.Dependencies["postgres"], "latency_ms")
}

func TestHealthCheck_PingHasDeadline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	db := mocks.NewMockHealthChecker(ctrl)
	db.EXPECT().Ping(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "ping must run under a deadline")
		return nil
	})
	db.EXPECT().Name().Return("postgres")

	c, w := newTestContext(http.MethodGet, "/health", "")
	HealthCheck(db)(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
