// internal/domain/account.go
package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// StartingBalance is the balance every provisioned account begins with.
const StartingBalance int64 = 200000

// Account represents a named balance holder in the ledger.
type Account struct {
	ID        string    `db:"id" json:"id"`                 // UUID
	Username  string    `db:"username" json:"username"`     // Unique, case-sensitive
	Balance   int64     `db:"balance" json:"balance"`       // µPatrons, never negative
	CreatedAt time.Time `db:"created_at" json:"created_at"` // Timestamp of creation
}

// NewAccount creates a new Account instance with a fresh identifier.
func NewAccount(username string, balance int64) *Account {
	return &Account{
		ID:        uuid.NewString(),
		Username:  username,
		Balance:   balance,
		CreatedAt: time.Now().UTC(),
	}
}

// RankLeaderboard orders accounts by balance descending. Ties keep their
// listing order. top <= 0 returns every account.
func RankLeaderboard(accounts []Account, top int) []Account {
	ranked := make([]Account, len(accounts))
	copy(ranked, accounts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Balance > ranked[j].Balance
	})
	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}
	return ranked
}

// TotalBalance sums every account balance.
func TotalBalance(accounts []Account) int64 {
	var total int64
	for _, a := range accounts {
		total += a.Balance
	}
	return total
}
