// internal/repository/sqlstore/store.go
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"micropatrons/internal/domain"
	"micropatrons/internal/repository"
	"micropatrons/pkg/db"
)

// Store implements repository.Store on a SQL database. Units of work are
// database transactions.
type Store struct {
	conn         *sqlx.DB
	accountRepo  repository.AccountRepository
	activityRepo repository.ActivityRepository
	beginTx      db.BeginTxFunc
	commitTx     db.CommitTxFunc
	rollbackTx   db.RollbackTxFunc
}

// Option customises a Store.
type Option func(*Store)

// WithTxFuncs replaces the transaction lifecycle, e.g. to inject failures.
func WithTxFuncs(begin db.BeginTxFunc, commit db.CommitTxFunc, rollback db.RollbackTxFunc) Option {
	return func(s *Store) {
		s.beginTx = begin
		s.commitTx = commit
		s.rollbackTx = rollback
	}
}

// New creates a Store over an open connection.
func New(conn *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		conn:         conn,
		accountRepo:  NewAccountRepository(),
		activityRepo: NewActivityRepository(),
		beginTx:      db.BeginTx,
		commitTx:     db.CommitTx,
		rollbackTx:   db.RollbackTx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying connection.
func (s *Store) DB() *sqlx.DB {
	return s.conn
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.accountRepo.GetAccountByUsername(ctx, s.conn, username)
}

func (s *Store) ListAccounts(ctx context.Context, search string) ([]domain.Account, error) {
	return s.accountRepo.ListAccounts(ctx, s.conn, search)
}

func (s *Store) ListActivity(ctx context.Context, limit, offset int) ([]domain.ActivityView, error) {
	return s.activityRepo.ListActivity(ctx, s.conn, limit, offset)
}

func (s *Store) ListActivityForAccount(ctx context.Context, username string, limit, offset int) ([]domain.ActivityView, error) {
	return s.activityRepo.ListActivityForAccount(ctx, s.conn, username, limit, offset)
}

func (s *Store) ListActivityByAmount(ctx context.Context, amount int64) ([]domain.ActivityView, error) {
	return s.activityRepo.ListActivityByAmount(ctx, s.conn, amount)
}

func (s *Store) ListActivitySince(ctx context.Context, since time.Time) ([]domain.Activity, error) {
	return s.activityRepo.ListActivitySince(ctx, s.conn, since)
}

// RunAtomic runs work inside one database transaction. Once begun, the
// transaction is detached from ctx cancellation so that a caller that stops
// waiting cannot cut a commit in half.
func (s *Store) RunAtomic(ctx context.Context, work func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	txController, err := s.beginTx(ctx, s.conn)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("transaction controller does not implement DBExecutor")
	}

	if err := work(&sqlTx{q: txExecutor, accounts: s.accountRepo, activity: s.activityRepo}); err != nil {
		return err
	}

	if err := s.commitTx(txController); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Reset clears activity first, then accounts, in one transaction.
func (s *Store) Reset(ctx context.Context) error {
	return s.RunAtomic(ctx, func(tx repository.Tx) error {
		q := tx.(*sqlTx).q
		if err := s.activityRepo.DeleteAll(ctx, q); err != nil {
			return err
		}
		return s.accountRepo.DeleteAll(ctx, q)
	})
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// sqlTx binds the repositories to one open transaction.
type sqlTx struct {
	q        repository.DBExecutor
	accounts repository.AccountRepository
	activity repository.ActivityRepository
}

func (t *sqlTx) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return t.accounts.GetAccountByUsername(ctx, t.q, username)
}

func (t *sqlTx) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	return t.accounts.GetAccountByID(ctx, t.q, id)
}

func (t *sqlTx) Debit(ctx context.Context, accountID string, amount int64) error {
	return t.accounts.Debit(ctx, t.q, accountID, amount)
}

func (t *sqlTx) Credit(ctx context.Context, accountID string, amount int64) error {
	return t.accounts.Credit(ctx, t.q, accountID, amount)
}

func (t *sqlTx) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	return t.activity.CreateActivity(ctx, t.q, activity)
}

func (t *sqlTx) CreateAccount(ctx context.Context, account *domain.Account) error {
	return t.accounts.CreateAccount(ctx, t.q, account)
}
