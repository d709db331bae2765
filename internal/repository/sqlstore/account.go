// internal/repository/sqlstore/account.go
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"micropatrons/internal/domain"
	"micropatrons/internal/repository"
	"micropatrons/internal/util"
)

const accountColumns = `id, username, balance, created_at`

// AccountRepository implements repository.AccountRepository over sqlx.
type AccountRepository struct{}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository() repository.AccountRepository {
	return &AccountRepository{}
}

// CreateAccount inserts a new account using the provided DBExecutor.
func (r *AccountRepository) CreateAccount(ctx context.Context, q repository.DBExecutor, account *domain.Account) error {
	query := q.Rebind(`INSERT INTO users (id, username, balance, created_at) VALUES (?, ?, ?, ?)`)
	_, err := q.ExecContext(ctx, query, account.ID, account.Username, account.Balance, account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return util.NewError(util.ErrDuplicateEntry, fmt.Sprintf("username '%s' already exists", account.Username))
		}
		return fmt.Errorf("failed to create account '%s': %w", account.Username, err)
	}
	return nil
}

// GetAccountByID retrieves an account by its ID.
func (r *AccountRepository) GetAccountByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Account, error) {
	var account domain.Account
	query := q.Rebind(`SELECT ` + accountColumns + ` FROM users WHERE id = ?`)
	if err := q.GetContext(ctx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NewError(util.ErrAccountNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get account by ID %s: %w", id, err)
	}
	return &account, nil
}

// GetAccountByUsername retrieves an account by its exact username.
func (r *AccountRepository) GetAccountByUsername(ctx context.Context, q repository.DBExecutor, username string) (*domain.Account, error) {
	var account domain.Account
	query := q.Rebind(`SELECT ` + accountColumns + ` FROM users WHERE username = ?`)
	if err := q.GetContext(ctx, &account, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.NewError(util.ErrAccountNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to get account by username '%s': %w", username, err)
	}
	return &account, nil
}

// ListAccounts returns accounts ordered by username.
func (r *AccountRepository) ListAccounts(ctx context.Context, q repository.DBExecutor, search string) ([]domain.Account, error) {
	accounts := []domain.Account{}
	query := `SELECT ` + accountColumns + ` FROM users`
	var args []interface{}
	if search != "" {
		query += ` WHERE LOWER(username) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(search))+"%")
	}
	query += ` ORDER BY username`

	if err := q.SelectContext(ctx, &accounts, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Debit subtracts amount from the account. The guard in the WHERE clause
// makes the check and the write one statement.
func (r *AccountRepository) Debit(ctx context.Context, q repository.DBExecutor, accountID string, amount int64) error {
	query := q.Rebind(`UPDATE users SET balance = balance - ? WHERE id = ? AND balance >= ?`)
	result, err := q.ExecContext(ctx, query, amount, accountID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit account %s: %w", accountID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after debiting account %s: %w", accountID, err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetAccountByID(ctx, q, accountID); err != nil {
			return err
		}
		return util.NewError(util.ErrInsufficientBalance, "Insufficient balance")
	}
	return nil
}

// Credit adds amount to the account.
func (r *AccountRepository) Credit(ctx context.Context, q repository.DBExecutor, accountID string, amount int64) error {
	query := q.Rebind(`UPDATE users SET balance = balance + ? WHERE id = ?`)
	result, err := q.ExecContext(ctx, query, amount, accountID)
	if err != nil {
		return fmt.Errorf("failed to credit account %s: %w", accountID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after crediting account %s: %w", accountID, err)
	}
	if rowsAffected == 0 {
		return util.NewError(util.ErrAccountNotFound, "User not found")
	}
	return nil
}

// DeleteAll removes every account.
func (r *AccountRepository) DeleteAll(ctx context.Context, q repository.DBExecutor) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE")
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
