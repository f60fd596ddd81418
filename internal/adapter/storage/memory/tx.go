package memory

import (
	"context"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Tx is an atomic scope over a Store. Only Commit and Rollback are
// implemented; the remaining pgx.Tx methods are not supported.
type Tx struct {
	pgx.Tx

	store *Store
	done  bool

	held     map[uuid.UUID]*accountRow
	deltas   map[uuid.UUID]int64
	entries  []domain.Transaction
	accounts []domain.Account
	users    []domain.User
	claims   []string
}

// Commit applies every staged write under the store mutex, then releases row locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	s := t.store
	now := clock()

	s.mu.Lock()
	for _, u := range t.users {
		s.users[u.ID] = u
		s.emails[u.Email] = u.ID
		if u.PhoneNumber != nil {
			s.phones[*u.PhoneNumber] = u.ID
		}
	}
	for _, a := range t.accounts {
		s.accounts[a.ID] = &accountRow{account: a, lock: make(chan struct{}, 1)}
		s.accountsByUser[a.UserID] = a.ID
	}
	for id, delta := range t.deltas {
		if row, ok := s.accounts[id]; ok {
			row.account.Balance += delta
			row.account.UpdatedAt = now
		}
	}
	for _, e := range t.entries {
		s.entries[e.Reference] = e
		s.entryOrder[e.AccountID] = append(s.entryOrder[e.AccountID], e.Reference)
	}
	t.releaseClaims()
	s.mu.Unlock()

	t.finish()
	return nil
}

// Rollback discards staged writes and releases row locks. Rolling back a
// finished scope returns pgx.ErrTxClosed, as pgx does.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}

	t.store.mu.Lock()
	t.releaseClaims()
	t.store.mu.Unlock()

	t.finish()
	return nil
}

// releaseClaims must be called with the store mutex held.
func (t *Tx) releaseClaims() {
	for _, key := range t.claims {
		if t.store.claims[key] == t {
			delete(t.store.claims, key)
		}
	}
	t.claims = nil
}

func (t *Tx) finish() {
	t.done = true
	for id, row := range t.held {
		<-row.lock
		delete(t.held, id)
	}
}

// hold locks row for the rest of the scope. Re-locking a held row is a no-op.
func (t *Tx) hold(ctx context.Context, row *accountRow) error {
	if _, ok := t.held[row.account.ID]; ok {
		return nil
	}
	if err := t.store.acquire(ctx, row); err != nil {
		return err
	}
	t.held[row.account.ID] = row
	return nil
}

func (t *Tx) stagedAccount(id uuid.UUID) *domain.Account {
	for i := range t.accounts {
		if t.accounts[i].ID == id {
			return &t.accounts[i]
		}
	}
	return nil
}
