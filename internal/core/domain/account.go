package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account holds the cached balance of a user's wallet.
// Balance is in minor currency units (kobo) and is derived from the ledger.
type Account struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanDebit reports whether the account can cover amount without going negative.
func (a *Account) CanDebit(amount int64) bool {
	return amount > 0 && a.Balance >= amount
}

// NewAccount returns a zero-balance account for a freshly registered user.
func NewAccount(userID uuid.UUID, now time.Time) *Account {
	return &Account{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
