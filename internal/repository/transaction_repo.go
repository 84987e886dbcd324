// internal/repository/transaction_repo.go
package repository

import (
	"context"

	"krako-ledger/internal/domain"
)

// TransactionRepository defines the interface for ledger entry operations.
type TransactionRepository interface {
	// CreateTransaction appends a ledger entry.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// GetTransactionsByUserID returns a page of the user's entries, newest first, and the total count.
	GetTransactionsByUserID(ctx context.Context, q DBExecutor, userID string, limit, offset int) ([]domain.Transaction, int64, error)
}
