package memory

import (
	"context"
	"fmt"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	store *Store
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{store: s}
}

// Create stages a user. Email and phone number are unique across committed
// users and open scopes.
func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	t, err := txFrom(tx)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	_, emailTaken := s.emails[u.Email]
	if !s.claim(t, "email:"+u.Email, emailTaken) {
		return fmt.Errorf("insert user: %w", domain.ErrDuplicateUser)
	}
	if u.PhoneNumber != nil {
		_, phoneTaken := s.phones[*u.PhoneNumber]
		if !s.claim(t, "phone:"+*u.PhoneNumber, phoneTaken) {
			return fmt.Errorf("insert user: %w", domain.ErrDuplicateUser)
		}
	}
	t.users = append(t.users, *u)
	return nil
}

// GetByID fetches a committed user.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetByEmail fetches a committed user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	id, ok := r.store.emails[email]
	r.store.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// GetByPhone fetches a committed user by phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	r.store.mu.Lock()
	id, ok := r.store.phones[phone]
	r.store.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}
