// internal/repository/account_repo.go
package repository

import (
	"context"

	"micropatrons/internal/domain"
)

// AccountRepository defines the interface for account data operations.
type AccountRepository interface {
	// CreateAccount inserts a new account using the provided DBExecutor.
	CreateAccount(ctx context.Context, q DBExecutor, account *domain.Account) error
	// GetAccountByID retrieves an account by its ID.
	GetAccountByID(ctx context.Context, q DBExecutor, id string) (*domain.Account, error)
	// GetAccountByUsername retrieves an account by its exact username.
	GetAccountByUsername(ctx context.Context, q DBExecutor, username string) (*domain.Account, error)
	// ListAccounts returns accounts ordered by username, optionally filtered
	// by a case-insensitive substring.
	ListAccounts(ctx context.Context, q DBExecutor, search string) ([]domain.Account, error)
	// Debit subtracts amount from the account, refusing to go below zero.
	Debit(ctx context.Context, q DBExecutor, accountID string, amount int64) error
	// Credit adds amount to the account.
	Credit(ctx context.Context, q DBExecutor, accountID string, amount int64) error
	// DeleteAll removes every account.
	DeleteAll(ctx context.Context, q DBExecutor) error
}
