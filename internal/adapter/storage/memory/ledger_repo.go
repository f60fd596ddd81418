package memory

import (
	"context"
	"fmt"

	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(s *Store) *LedgerRepo {
	return &LedgerRepo{store: s}
}

// Append stages an entry. A reference that is committed, or claimed by any
// open scope, fails immediately with domain.ErrDuplicateReference.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.Transaction) error {
	t, err := txFrom(tx)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	_, committed := s.entries[e.Reference]
	if !s.claim(t, "ref:"+e.Reference, committed) {
		return fmt.Errorf("append ledger entry %q: %w", e.Reference, domain.ErrDuplicateReference)
	}
	t.entries = append(t.entries, *e)
	return nil
}

// FindByReference returns a committed entry or nil.
func (r *LedgerRepo) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[reference]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// FindByReferenceTx also sees entries staged by tx.
func (r *LedgerRepo) FindByReferenceTx(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error) {
	t, err := txFrom(tx)
	if err != nil {
		return nil, fmt.Errorf("find ledger entry: %w", err)
	}
	for _, e := range t.entries {
		if e.Reference == reference {
			return &e, nil
		}
	}
	return r.FindByReference(ctx, reference)
}

// ListByAccount returns committed entries newest first.
func (r *LedgerRepo) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]domain.Transaction, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := s.entryOrder[accountID]
	total := int64(len(refs))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(refs) {
		return []domain.Transaction{}, total, nil
	}

	entries := make([]domain.Transaction, 0, max(limit, 0))
	for i := len(refs) - 1 - offset; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, s.entries[refs[i]])
	}
	return entries, total, nil
}

// SumByAccount aggregates committed entries of an account.
func (r *LedgerRepo) SumByAccount(ctx context.Context, accountID uuid.UUID) (*ports.LedgerSummary, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := &ports.LedgerSummary{}
	for _, ref := range s.entryOrder[accountID] {
		e := s.entries[ref]
		switch e.Kind {
		case domain.EntryKindCredit:
			sum.Credits += e.Amount
		case domain.EntryKindDebit:
			sum.Debits += e.Amount
		}
		sum.Entries++
	}
	return sum, nil
}
