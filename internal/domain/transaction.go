// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise point arithmetic
)

// TransactionType defines the kind of ledger entry.
type TransactionType string

const (
	TransactionTypeClaim    TransactionType = "claim"
	TransactionTypeTask     TransactionType = "task"
	TransactionTypeReferral TransactionType = "referral"
	TransactionTypeBonus    TransactionType = "bonus"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeClaim, TransactionTypeTask, TransactionTypeReferral, TransactionTypeBonus:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID          string          `db:"id" json:"id"`                   // UUID assigned at creation
	UserID      string          `db:"user_id" json:"user_id"`         // Owning profile
	Type        TransactionType `db:"transaction_type" json:"type"`   // claim, task, referral, bonus
	Amount      decimal.Decimal `db:"amount" json:"amount"`           // Signed, NUMERIC(20, 4) in DB
	Description string          `db:"description" json:"description"` // Human-readable annotation
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`   // Ordering key for history
}

// NewTransaction creates a new Transaction stamped with now.
func NewTransaction(userID string, txType TransactionType, amount decimal.Decimal, description string, now time.Time) *Transaction {
	return &Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: description,
		CreatedAt:   now.UTC(),
	}
}
