package dto

import (
	"github.com/shopspring/decimal"
)

// SignupRequest is the request body for user registration.
type SignupRequest struct {
	Email       string  `json:"email" binding:"required,email,max=254"`
	Password    string  `json:"password" binding:"required,min=8,max=128" sanitize:"-"`
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	PhoneNumber *string `json:"phone_number,omitempty" binding:"omitempty,phone"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// SignupResponse is the response body for successful registration.
type SignupResponse struct {
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token     string `json:"token"`
	Expiry    int64  `json:"expiry"` // Unix timestamp
	UserID    string `json:"user_id"`
	AccountID string `json:"account_id"`
}

// MeResponse describes the authenticated user.
type MeResponse struct {
	UserID      string          `json:"user_id"`
	Email       string          `json:"email"`
	Name        string          `json:"name,omitempty"`
	PhoneNumber *string         `json:"phone_number,omitempty"`
	Wallet      BalanceResponse `json:"wallet"`
}

// BalanceResponse renders a balance in major units ("50.00") and minor units.
type BalanceResponse struct {
	AccountID    string `json:"account_id"`
	Balance      string `json:"balance"`
	BalanceMinor int64  `json:"balance_minor"`
}

// TransferRequest is the request body for a transfer. Exactly one recipient
// selector must be set.
type TransferRequest struct {
	ToAccountID *string         `json:"to_account_id,omitempty" binding:"omitempty,uuid"`
	ToEmail     *string         `json:"to_email,omitempty" binding:"omitempty,email"`
	ToPhone     *string         `json:"to_phone,omitempty" binding:"omitempty,phone"`
	Amount      decimal.Decimal `json:"amount"` // Major units, e.g. "50.00" or 50
}

// RecipientCount returns how many recipient selectors are set.
func (r *TransferRequest) RecipientCount() int {
	n := 0
	for _, s := range []*string{r.ToAccountID, r.ToEmail, r.ToPhone} {
		if s != nil && *s != "" {
			n++
		}
	}
	return n
}

// ScheduledTransferRequest is a transfer to run at RunAt.
type ScheduledTransferRequest struct {
	TransferRequest
	RunAt string `json:"run_at" binding:"required"` // RFC 3339
}

// DepositRequest is the request body for a manual deposit.
type DepositRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty" binding:"omitempty,max=100,safe_ref"`
}

// ScheduledDepositRequest is a deposit to run at RunAt. Without a reference the
// job id becomes the reference.
type ScheduledDepositRequest struct {
	DepositRequest
	RunAt string `json:"run_at" binding:"required"` // RFC 3339
}

// FundingWebhookRequest is the payload posted by the funding provider.
type FundingWebhookRequest struct {
	Reference string          `json:"reference" binding:"required,max=100,safe_ref"`
	AccountID string          `json:"account_id" binding:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"`
}

// TransferResponse is the response body for a committed transfer.
type TransferResponse struct {
	Reference       string `json:"reference"`
	NewBalance      string `json:"new_balance"`
	NewBalanceMinor int64  `json:"new_balance_minor"`
}

// DepositResponse is the response body for a deposit or its replay.
type DepositResponse struct {
	Reference       string `json:"reference"`
	Amount          string `json:"amount"`
	NewBalance      string `json:"new_balance"`
	NewBalanceMinor int64  `json:"new_balance_minor"`
	Replayed        bool   `json:"replayed"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Amount       string `json:"amount"`
	AmountMinor  int64  `json:"amount_minor"`
	Reference    string `json:"reference"`
	BalanceAfter string `json:"balance_after"`
	CreatedAt    string `json:"created_at"`
}

// ReconcileResponse compares the cached balance with the ledger.
type ReconcileResponse struct {
	AccountID     string `json:"account_id"`
	CachedBalance string `json:"cached_balance"`
	LedgerBalance string `json:"ledger_balance"`
	DriftMinor    int64  `json:"drift_minor"`
	Entries       int64  `json:"entries"`
	InBalance     bool   `json:"in_balance"`
}

// ScheduledJobResponse describes a scheduled job.
type ScheduledJobResponse struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	RunAt  string `json:"run_at"`
}
