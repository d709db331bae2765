// internal/repository/store.go
package repository

import (
	"context"
	"time"

	"micropatrons/internal/domain"
)

// Reader is the read-only side of the ledger store. Reads observe only
// committed units of work.
type Reader interface {
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	ListAccounts(ctx context.Context, search string) ([]domain.Account, error)
	ListActivity(ctx context.Context, limit, offset int) ([]domain.ActivityView, error)
	ListActivityForAccount(ctx context.Context, username string, limit, offset int) ([]domain.ActivityView, error)
	ListActivityByAmount(ctx context.Context, amount int64) ([]domain.ActivityView, error)
	ListActivitySince(ctx context.Context, since time.Time) ([]domain.Activity, error)
}

// Tx is the view of the store inside one unit of work.
type Tx interface {
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, id string) (*domain.Account, error)
	// Debit returns util.ErrInsufficientBalance rather than letting the
	// balance drop below zero.
	Debit(ctx context.Context, accountID string, amount int64) error
	Credit(ctx context.Context, accountID string, amount int64) error
	CreateActivity(ctx context.Context, activity *domain.Activity) error
	CreateAccount(ctx context.Context, account *domain.Account) error
}

// Store is the durable ledger state shared by every request handler.
type Store interface {
	Reader
	// RunAtomic executes work as one unit: every write it makes becomes
	// visible together when work returns nil, and none do otherwise.
	RunAtomic(ctx context.Context, work func(tx Tx) error) error
	// Reset wipes all accounts and activity. Provisioning only.
	Reset(ctx context.Context) error
	Close() error
}
