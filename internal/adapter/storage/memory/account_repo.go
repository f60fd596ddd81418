package memory

import (
	"context"
	"fmt"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	store *Store
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(s *Store) *AccountRepo {
	return &AccountRepo{store: s}
}

// Create stages a new account; it becomes visible when tx commits.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	t, err := txFrom(tx)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.accountsByUser[a.UserID]
	if !s.claim(t, "account-user:"+a.UserID.String(), exists) {
		return fmt.Errorf("insert account: %w", domain.ErrDuplicateUser)
	}
	t.accounts = append(t.accounts, *a)
	return nil
}

// GetByID reads committed state without locking.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	a := row.account
	return &a, nil
}

// GetByUserID reads the account owned by userID without locking.
func (r *AccountRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	s := r.store
	s.mu.Lock()
	id, ok := s.accountsByUser[userID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// LockForUpdate takes the row lock for the rest of tx and returns the balance
// as seen by tx, including its own uncommitted adjustments.
func (r *AccountRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	t, err := txFrom(tx)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}

	row := r.store.row(id)
	if row == nil {
		if staged := t.stagedAccount(id); staged != nil {
			a := *staged
			return &a, nil
		}
		return nil, nil
	}

	if err := t.hold(ctx, row); err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	a := row.account
	r.store.mu.Unlock()

	a.Balance += t.deltas[id]
	return &a, nil
}

// AdjustBalance stages a relative change. Like an UPDATE, it takes the row
// lock if tx does not hold it yet.
func (r *AccountRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	t, err := txFrom(tx)
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	row := r.store.row(id)
	if row == nil {
		staged := t.stagedAccount(id)
		if staged == nil {
			return 0, fmt.Errorf("account not found: %s", id)
		}
		if staged.Balance+delta < 0 {
			return 0, fmt.Errorf("adjust balance: %w", domain.ErrNegativeBalance)
		}
		staged.Balance += delta
		return staged.Balance, nil
	}

	if err := t.hold(ctx, row); err != nil {
		return 0, err
	}

	r.store.mu.Lock()
	current := row.account.Balance
	r.store.mu.Unlock()

	next := current + t.deltas[id] + delta
	if next < 0 {
		return 0, fmt.Errorf("adjust balance: %w", domain.ErrNegativeBalance)
	}
	t.deltas[id] += delta
	return next, nil
}
