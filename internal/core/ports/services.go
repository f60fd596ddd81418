package ports

import (
	"context"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signature string) bool
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, accountID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// LedgerMetrics records engine outcomes.
type LedgerMetrics interface {
	RecordTransfer(outcome string, duration time.Duration)
	RecordDeposit(outcome string, replayed bool, duration time.Duration)
	RecordJob(jobType domain.JobType, outcome string)
}

// --- Service Ports (Business Logic) ---

// WalletService is the only writer of balances and ledger entries.
type WalletService interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	Deposit(ctx context.Context, req DepositRequest) (*DepositResult, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (*BalanceResult, error)
}

// TransferRequest holds validated input for a transfer between two resolved accounts.
type TransferRequest struct {
	SenderAccountID   uuid.UUID
	ReceiverAccountID uuid.UUID
	Amount            int64 // Minor units
}

// TransferResult is the outcome of a committed transfer.
type TransferResult struct {
	Reference        string `json:"reference"`
	NewSenderBalance int64  `json:"new_sender_balance"`
}

// DepositRequest holds validated input for an idempotent deposit.
type DepositRequest struct {
	AccountID uuid.UUID
	Amount    int64 // Minor units
	Reference string
}

// DepositResult is the recorded effect of a deposit. Replayed is set when the
// reference had already been applied and nothing was mutated.
type DepositResult struct {
	Reference  string    `json:"reference"`
	AccountID  uuid.UUID `json:"account_id"`
	Amount     int64     `json:"amount"`
	NewBalance int64     `json:"new_balance"`
	Replayed   bool      `json:"replayed"`
}

// BalanceResult is an unlocked balance read.
type BalanceResult struct {
	AccountID         uuid.UUID
	BalanceMinorUnits int64
}

// AuthService defines signup/login business logic.
type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*domain.User, *domain.Account, error)
}

// SignupRequest holds input for user registration.
type SignupRequest struct {
	Email       string
	Password    string
	Name        string
	PhoneNumber *string
}

// SignupResponse holds the identifiers created at signup.
type SignupResponse struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
}

// LoginResponse holds an issued bearer token.
type LoginResponse struct {
	Token     string
	ExpiresAt time.Time
	UserID    uuid.UUID
	AccountID uuid.UUID
}

// ReportingService defines read-only ledger views.
type ReportingService interface {
	History(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error)
	Reconcile(ctx context.Context, accountID uuid.UUID) (*Reconciliation, error)
}

// Reconciliation compares the cached balance with the ledger.
type Reconciliation struct {
	AccountID     uuid.UUID
	CachedBalance int64
	LedgerBalance int64
	Entries       int64
}

// Drift is the cached balance minus the ledger-derived balance.
func (r Reconciliation) Drift() int64 {
	return r.CachedBalance - r.LedgerBalance
}

// JobService schedules and executes deferred ledger operations.
type JobService interface {
	ScheduleTransfer(ctx context.Context, req TransferRequest, runAt time.Time) (*domain.ScheduledJob, error)
	ScheduleDeposit(ctx context.Context, req DepositRequest, runAt time.Time) (*domain.ScheduledJob, error)
	RunDue(ctx context.Context) (int, error)
}

// AuditService records audit entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// Engine outcome labels reported to LedgerMetrics.
const (
	OutcomeCommitted = "committed"
	OutcomeReplayed  = "replayed"
	OutcomeRejected  = "rejected"
	OutcomeBusy      = "busy"
	OutcomeFailed    = "failed"
)

// NoOpMetrics discards every observation.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordTransfer(outcome string, duration time.Duration) {}
func (NoOpMetrics) RecordDeposit(outcome string, replayed bool, duration time.Duration) {}
func (NoOpMetrics) RecordJob(jobType domain.JobType, outcome string) {}

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string // e.g. "postgres", "redis"
}
