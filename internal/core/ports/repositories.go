package ports

import (
	"context"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

// AccountRepository defines persistence operations for account balances.
// Methods accepting pgx.Tx run inside the caller's atomic scope.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	// LockForUpdate reads the account and holds an exclusive row lock until tx ends.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	// AdjustBalance applies delta relative to the stored balance and returns the result.
	AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error)
}

// LedgerRepository defines the append-only ledger. There is no update or delete.
type LedgerRepository interface {
	// Append inserts an entry, failing with domain.ErrDuplicateReference on reuse.
	Append(ctx context.Context, tx pgx.Tx, entry *domain.Transaction) error
	FindByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	FindByReferenceTx(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error)
	SumByAccount(ctx context.Context, accountID uuid.UUID) (*LedgerSummary, error)
}

// LedgerSummary aggregates every entry of one account.
type LedgerSummary struct {
	Credits int64
	Debits  int64
	Entries int64
}

// Net returns the balance implied by the ledger.
func (s LedgerSummary) Net() int64 {
	return s.Credits - s.Debits
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
}

// JobRepository defines persistence for scheduled jobs.
type JobRepository interface {
	Create(ctx context.Context, job *domain.ScheduledJob) error
	// ClaimDue atomically moves up to limit due pending jobs to processing.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledJob, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
	// Release returns a claimed job that never started to pending and uncounts
	// the attempt.
	Release(ctx context.Context, id uuid.UUID) error
	// ReclaimStale settles jobs left in processing since before cutoff. Deposits
	// return to pending; transfers fail because their outcome is unknown.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRepository persists audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor opens atomic scopes.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
