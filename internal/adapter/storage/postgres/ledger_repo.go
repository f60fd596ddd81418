package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `id, account_id, kind, amount, reference, balance_after, created_at`

// LedgerRepo implements ports.LedgerRepository over the append-only
// transactions table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a ledger entry within a database transaction. The unique
// reference index turns a reused reference into domain.ErrDuplicateReference.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.Transaction) error {
	query := `INSERT INTO transactions (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.AccountID, string(e.Kind), e.Amount,
		e.Reference, e.BalanceAfter, e.CreatedAt,
	)
	if err != nil {
		return translate("append ledger entry", err, domain.ErrDuplicateReference)
	}
	return nil
}

// FindByReference fetches a committed entry by reference.
func (r *LedgerRepo) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + ledgerColumns + ` FROM transactions WHERE reference = $1`
	return scanEntry(r.pool.QueryRow(ctx, query, reference))
}

// FindByReferenceTx fetches an entry by reference inside the caller's scope.
func (r *LedgerRepo) FindByReferenceTx(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + ledgerColumns + ` FROM transactions WHERE reference = $1`
	return scanEntry(tx.QueryRow(ctx, query, reference))
}

// ListByAccount returns one page of an account's entries, newest first, and
// the total entry count.
func (r *LedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	query := `SELECT ` + ledgerColumns + ` FROM transactions WHERE account_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		var e domain.Transaction
		if err := scanEntryInto(rows, &e); err != nil {
			return nil, 0, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, total, nil
}

// SumByAccount aggregates all entries of an account.
func (r *LedgerRepo) SumByAccount(ctx context.Context, accountID uuid.UUID) (*ports.LedgerSummary, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE kind = 'credit'), 0) AS credits,
		COALESCE(SUM(amount) FILTER (WHERE kind = 'debit'), 0) AS debits,
		COUNT(*) AS entries
		FROM transactions WHERE account_id = $1`

	s := &ports.LedgerSummary{}
	if err := r.pool.QueryRow(ctx, query, accountID).Scan(&s.Credits, &s.Debits, &s.Entries); err != nil {
		return nil, fmt.Errorf("sum ledger entries: %w", err)
	}
	return s, nil
}

func scanEntry(row pgx.Row) (*domain.Transaction, error) {
	e := &domain.Transaction{}
	if err := scanEntryInto(row, e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translate("scan ledger entry", err, nil)
	}
	return e, nil
}

func scanEntryInto(row pgx.Row, e *domain.Transaction) error {
	var kind string
	if err := row.Scan(&e.ID, &e.AccountID, &kind, &e.Amount, &e.Reference, &e.BalanceAfter, &e.CreatedAt); err != nil {
		return err
	}
	e.Kind = domain.EntryKind(kind)
	return nil
}
