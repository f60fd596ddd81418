// Package memory is a process-local implementation of the storage ports.
// Row locks are held until the owning Tx commits or rolls back, and staged
// writes become visible atomically at commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultLockTimeout bounds row-lock waits when none is configured.
const DefaultLockTimeout = 5 * time.Second

var clock = func() time.Time { return time.Now().UTC() }

// ErrForeignTx is returned when a repository receives a pgx.Tx it did not open.
var ErrForeignTx = errors.New("memory: transaction was not opened by this store")

type accountRow struct {
	account domain.Account
	lock    chan struct{}
}

// Store holds all committed state behind one mutex.
type Store struct {
	mu sync.Mutex

	accounts       map[uuid.UUID]*accountRow
	accountsByUser map[uuid.UUID]uuid.UUID
	entries        map[string]domain.Transaction
	entryOrder     map[uuid.UUID][]string
	claims         map[string]*Tx
	users          map[uuid.UUID]domain.User
	emails         map[string]uuid.UUID
	phones         map[string]uuid.UUID
	jobs           map[uuid.UUID]*domain.ScheduledJob
	audit          []domain.AuditLog

	lockTimeout time.Duration
}

// NewStore creates an empty store. A non-positive lockTimeout uses DefaultLockTimeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{
		accounts:       make(map[uuid.UUID]*accountRow),
		accountsByUser: make(map[uuid.UUID]uuid.UUID),
		entries:        make(map[string]domain.Transaction),
		entryOrder:     make(map[uuid.UUID][]string),
		claims:         make(map[string]*Tx),
		users:          make(map[uuid.UUID]domain.User),
		emails:         make(map[string]uuid.UUID),
		phones:         make(map[string]uuid.UUID),
		jobs:           make(map[uuid.UUID]*domain.ScheduledJob),
		lockTimeout:    lockTimeout,
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{
		store:  s,
		held:   make(map[uuid.UUID]*accountRow),
		deltas: make(map[uuid.UUID]int64),
	}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name returns the dependency name.
func (s *Store) Name() string {
	return "memory"
}

// AuditLogs returns a copy of every recorded audit entry.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditLog(nil), s.audit...)
}

func (s *Store) row(id uuid.UUID) *accountRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

// acquire waits for the row lock, bounded by the store's lock timeout and ctx.
func (s *Store) acquire(ctx context.Context, row *accountRow) error {
	select {
	case row.lock <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()

	select {
	case row.lock <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("lock account %s: %w", row.account.ID, domain.ErrLockTimeout)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("lock account %s: %w: %w", row.account.ID, domain.ErrLockTimeout, ctx.Err())
		}
		return fmt.Errorf("lock account %s: %w", row.account.ID, ctx.Err())
	}
}

// claim reserves a unique key for t until it finishes. It must be called with
// the store mutex held and reports false if the key is committed or claimed.
func (s *Store) claim(t *Tx, key string, committed bool) bool {
	if committed {
		return false
	}
	if _, taken := s.claims[key]; taken {
		return false
	}
	s.claims[key] = t
	t.claims = append(t.claims, key)
	return true
}

func txFrom(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, ErrForeignTx
	}
	if t.done {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}
