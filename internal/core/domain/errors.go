package domain

import "errors"

// Storage-level conditions reported by every AccountRepository / LedgerRepository
// implementation. Services translate them into apperror values.
var (
	// ErrDuplicateReference is returned when a ledger reference already exists.
	ErrDuplicateReference = errors.New("duplicate ledger reference")
	// ErrLockTimeout is returned when a row lock could not be acquired in time.
	ErrLockTimeout = errors.New("row lock wait timed out")
	// ErrNegativeBalance is returned when a balance adjustment would go below zero.
	ErrNegativeBalance = errors.New("balance would become negative")
	// ErrDuplicateUser is returned when an email or phone number is already registered.
	ErrDuplicateUser = errors.New("user already exists")
)
