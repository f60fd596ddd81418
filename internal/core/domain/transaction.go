package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntryKind is the direction of a ledger entry.
type EntryKind string

const (
	EntryKindCredit EntryKind = "credit"
	EntryKindDebit  EntryKind = "debit"
)

const (
	transferRefPrefix = "TRF-"
	creditLegSuffix   = "-CREDIT"
)

// Transaction is an immutable ledger entry for one leg of a funds movement.
type Transaction struct {
	ID           uuid.UUID `json:"id"`
	AccountID    uuid.UUID `json:"account_id"`
	Kind         EntryKind `json:"kind"`
	Amount       int64     `json:"amount"`        // Minor units, always positive
	Reference    string    `json:"reference"`     // Globally unique
	BalanceAfter int64     `json:"balance_after"` // Account balance right after this leg
	CreatedAt    time.Time `json:"created_at"`
}

// SignedAmount returns the amount with the sign of its effect on the balance.
func (t *Transaction) SignedAmount() int64 {
	if t.Kind == EntryKindDebit {
		return -t.Amount
	}
	return t.Amount
}

// IsValid reports whether kind is one of the known entry kinds.
func (k EntryKind) IsValid() bool {
	return k == EntryKindCredit || k == EntryKindDebit
}

// NewTransferReference generates the debit-leg reference of a new transfer.
func NewTransferReference() string {
	return transferRefPrefix + uuid.NewString()
}

// CreditReference derives the credit-leg reference from a transfer's debit reference.
func CreditReference(debitRef string) string {
	return debitRef + creditLegSuffix
}

// TransferBaseReference strips the credit-leg suffix, returning the reference shared
// by both legs of a transfer.
func TransferBaseReference(ref string) string {
	return strings.TrimSuffix(ref, creditLegSuffix)
}

// IsTransferReference reports whether ref belongs to either leg of a transfer.
func IsTransferReference(ref string) bool {
	return strings.HasPrefix(ref, transferRefPrefix)
}
