// internal/seed/seed.go
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"micropatrons/internal/domain"
	"micropatrons/internal/repository"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is a ledger population: a set of accounts and the transfers
// applied between them.
type Fixture struct {
	StartingBalance int64      `yaml:"starting_balance"`
	Users           []string   `yaml:"users"`
	Transfers       []Transfer `yaml:"transfers"`
}

// Transfer is one seeded movement of µPatrons.
type Transfer struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Amount int64  `yaml:"amount"`
}

// Result summarises an applied fixture.
type Result struct {
	Users     int
	Transfers int
}

// Default returns the built-in fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// Load reads and validates a YAML fixture.
func Load(r io.Reader) (*Fixture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if f.StartingBalance == 0 {
		f.StartingBalance = domain.StartingBalance
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the fixture is self-consistent. Balances are not
// simulated here; the store's debit guard rejects overdrafts on Apply.
func (f *Fixture) Validate() error {
	if f.StartingBalance < 0 {
		return fmt.Errorf("fixture: starting_balance must not be negative")
	}
	known := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if u == "" {
			return fmt.Errorf("fixture: empty username")
		}
		if known[u] {
			return fmt.Errorf("fixture: duplicate username %q", u)
		}
		known[u] = true
	}
	for i, t := range f.Transfers {
		switch {
		case !known[t.From]:
			return fmt.Errorf("fixture: transfer %d: unknown sender %q", i, t.From)
		case !known[t.To]:
			return fmt.Errorf("fixture: transfer %d: unknown receiver %q", i, t.To)
		case t.From == t.To:
			return fmt.Errorf("fixture: transfer %d: sender and receiver are both %q", i, t.From)
		case t.Amount <= 0:
			return fmt.Errorf("fixture: transfer %d: amount must be positive", i)
		}
	}
	return nil
}

// Apply creates every account and replays every transfer in one unit of
// work. It fails, leaving the store untouched, if any username exists.
func Apply(ctx context.Context, store repository.Store, f *Fixture) (*Result, error) {
	err := store.RunAtomic(ctx, func(tx repository.Tx) error {
		ids := make(map[string]string, len(f.Users))
		for _, username := range f.Users {
			account := domain.NewAccount(username, f.StartingBalance)
			if err := tx.CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("seed: failed to create %q: %w", username, err)
			}
			ids[username] = account.ID
		}
		for _, t := range f.Transfers {
			if err := tx.Debit(ctx, ids[t.From], t.Amount); err != nil {
				return fmt.Errorf("seed: %s -> %s: %w", t.From, t.To, err)
			}
			if err := tx.Credit(ctx, ids[t.To], t.Amount); err != nil {
				return fmt.Errorf("seed: %s -> %s: %w", t.From, t.To, err)
			}
			if err := tx.CreateActivity(ctx, domain.NewActivity(ids[t.From], ids[t.To], t.Amount)); err != nil {
				return fmt.Errorf("seed: %s -> %s: %w", t.From, t.To, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Ledger seeded", "users", len(f.Users), "transfers", len(f.Transfers))
	return &Result{Users: len(f.Users), Transfers: len(f.Transfers)}, nil
}

// Reseed wipes the store and applies f.
func Reseed(ctx context.Context, store repository.Store, f *Fixture) (*Result, error) {
	if err := store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("seed: failed to reset store: %w", err)
	}
	return Apply(ctx, store, f)
}

// ApplyIfEmpty seeds only a store without accounts. It reports whether the
// fixture was applied.
func ApplyIfEmpty(ctx context.Context, store repository.Store, f *Fixture) (bool, error) {
	accounts, err := store.ListAccounts(ctx, "")
	if err != nil {
		return false, fmt.Errorf("seed: failed to inspect store: %w", err)
	}
	if len(accounts) > 0 {
		return false, nil
	}
	if _, err := Apply(ctx, store, f); err != nil {
		return false, err
	}
	return true, nil
}
