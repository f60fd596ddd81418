package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered customer. Each user owns exactly one account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PhoneNumber  *string   `json:"phone_number,omitempty"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"` // Never expose
	CreatedAt    time.Time `json:"created_at"`
}
