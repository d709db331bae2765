// internal/service/ledger_service_test.go
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"micropatrons/internal/domain"
	"micropatrons/internal/repository"
	"micropatrons/internal/repository/memory"
	"micropatrons/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// MockObserver is a mock implementation of TransferObserver.
type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) ObserveTransfer(err error, amount int64, elapsed time.Duration) {
	m.Called(err, amount, elapsed)
}

// failingStore wraps a Store and injects an error into one step of every
// unit of work.
type failingStore struct {
	repository.Store
	failActivity bool
	failCommit   bool
}

func (f *failingStore) RunAtomic(ctx context.Context, work func(tx repository.Tx) error) error {
	return f.Store.RunAtomic(ctx, func(tx repository.Tx) error {
		if err := work(&failingTx{Tx: tx, failActivity: f.failActivity}); err != nil {
			return err
		}
		if f.failCommit {
			return errors.New("disk I/O error")
		}
		return nil
	})
}

type failingTx struct {
	repository.Tx
	failActivity bool
}

func (f *failingTx) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	if f.failActivity {
		return errors.New("database is locked")
	}
	return f.Tx.CreateActivity(ctx, activity)
}

func newStore(t *testing.T, balances map[string]int64) *memory.Store {
	t.Helper()
	store := memory.New()
	err := store.RunAtomic(context.Background(), func(tx repository.Tx) error {
		for name, balance := range balances {
			if err := tx.CreateAccount(context.Background(), domain.NewAccount(name, balance)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return store
}

func balanceOf(t *testing.T, store repository.Reader, username string) int64 {
	t.Helper()
	account, err := store.GetAccountByUsername(context.Background(), username)
	require.NoError(t, err)
	return account.Balance
}

func total(t *testing.T, store repository.Reader) int64 {
	t.Helper()
	accounts, err := store.ListAccounts(context.Background(), "")
	require.NoError(t, err)
	return domain.TotalBalance(accounts)
}

func TestLedgerService_Transfer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store := newStore(t, map[string]int64{"alice": 200000, "bob": 200000})
		svc := NewLedgerService(store, WithLogger(quietLogger))

		result, err := svc.Transfer(ctx, "alice", "bob", decimal.NewFromInt(1000))
		require.NoError(t, err)
		assert.Equal(t, int64(199000), result.Sender.Balance)
		assert.Equal(t, int64(201000), result.Receiver.Balance)
		assert.Equal(t, "Successfully transferred 1000 micropatrons from alice to bob", result.Message)
		assert.Equal(t, result.Sender.ID, result.Activity.FromUserID)
		assert.Equal(t, result.Receiver.ID, result.Activity.ToUserID)
		assert.Equal(t, int64(1000), result.Activity.Amount)

		feed, err := svc.ListActivity(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, "alice", feed[0].FromUsername)
		assert.Equal(t, "bob", feed[0].ToUsername)
		assert.Equal(t, int64(400000), total(t, store))
	})

	t.Run("Validation", func(t *testing.T) {
		tests := []struct {
			name     string
			sender   string
			receiver string
			amount   decimal.Decimal
			kind     error
			message  string
		}{
			{"zero amount", "alice", "bob", decimal.Zero, util.ErrInvalidInput, "Sender, receiver, and amount are required"},
			{"missing sender", "", "bob", decimal.NewFromInt(5), util.ErrInvalidInput, "Sender, receiver, and amount are required"},
			{"missing receiver", "alice", "", decimal.NewFromInt(5), util.ErrInvalidInput, "Sender, receiver, and amount are required"},
			{"negative", "alice", "bob", decimal.NewFromInt(-5), util.ErrInvalidInput, "Amount must be greater than 0"},
			{"fractional", "alice", "bob", decimal.RequireFromString("1.5"), util.ErrInvalidInput, "Amount must be a whole number"},
			{"overflow", "alice", "bob", decimal.RequireFromString("9223372036854775808"), util.ErrInvalidInput, "Amount is too large"},
			{"self transfer", "alice", "alice", decimal.NewFromInt(5), util.ErrSelfTransfer, "Cannot transfer to yourself"},
			{"unknown sender", "mallory", "bob", decimal.NewFromInt(5), util.ErrAccountNotFound, "Sender not found"},
			{"unknown receiver", "alice", "mallory", decimal.NewFromInt(5), util.ErrAccountNotFound, "Receiver not found"},
			{"insufficient", "alice", "bob", decimal.NewFromInt(1001), util.ErrInsufficientBalance, "Insufficient balance"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				store := newStore(t, map[string]int64{"alice": 1000, "bob": 0})
				svc := NewLedgerService(store, WithLogger(quietLogger))

				result, err := svc.Transfer(ctx, tc.sender, tc.receiver, tc.amount)
				assert.Nil(t, result)
				require.Error(t, err)
				assert.True(t, util.IsError(err, tc.kind), "got %v", err)
				assert.Equal(t, tc.message, util.Message(err))

				assert.Equal(t, int64(1000), balanceOf(t, store, "alice"))
				assert.Equal(t, int64(0), balanceOf(t, store, "bob"))
				feed, err := store.ListActivity(ctx, 10, 0)
				require.NoError(t, err)
				assert.Empty(t, feed)
			})
		}
	})

	t.Run("Balance Edge", func(t *testing.T) {
		store := newStore(t, map[string]int64{"alice": 500, "bob": 0})
		svc := NewLedgerService(store, WithLogger(quietLogger))

		_, err := svc.Transfer(ctx, "alice", "bob", decimal.NewFromInt(501))
		assert.True(t, util.IsError(err, util.ErrInsufficientBalance))

		result, err := svc.Transfer(ctx, "alice", "bob", decimal.NewFromInt(500))
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Sender.Balance)
		assert.Equal(t, int64(500), result.Receiver.Balance)
	})

	t.Run("Rollback On Activity Failure", func(t *testing.T) {
		inner := newStore(t, map[string]int64{"alice": 1000, "bob": 0})
		svc := NewLedgerService(&failingStore{Store: inner, failActivity: true}, WithLogger(quietLogger))

		_, err := svc.Transfer(ctx, "alice", "bob", decimal.NewFromInt(100))
		require.Error(t, err)
		assert.True(t, util.IsError(err, util.ErrInfrastructure))
		assert.False(t, util.IsValidation(err))

		assert.Equal(t, int64(1000), balanceOf(t, inner, "alice"))
		assert.Equal(t, int64(0), balanceOf(t, inner, "bob"))
	})

	t.Run("Rollback On Commit Failure", func(t *testing.T) {
		inner := newStore(t, map[string]int64{"alice": 1000, "bob": 0})
		svc := NewLedgerService(&failingStore{Store: inner, failCommit: true}, WithLogger(quietLogger))

		_, err := svc.Transfer(ctx, "alice", "bob", decimal.NewFromInt(100))
		assert.True(t, util.IsError(err, util.ErrInfrastructure))

		assert.Equal(t, int64(1000), balanceOf(t, inner, "alice"))
		feed, err := inner.ListActivity(ctx, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, feed)
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		store := newStore(t, map[string]int64{"alice": 1000, "bob": 0})
		svc := NewLedgerService(store, WithLogger(quietLogger))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svc.Transfer(cancelled, "alice", "bob", decimal.NewFromInt(100))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int64(1000), balanceOf(t, store, "alice"))
	})

	t.Run("Observer", func(t *testing.T) {
		store := newStore(t, map[string]int64{"alice": 1000, "bob": 0})
		observer := new(MockObserver)
		observer.On("ObserveTransfer", nil, int64(100), mock.AnythingOfType("time.Duration")).Return().Once()
		observer.On("ObserveTransfer", mock.Anything, int64(0), mock.AnythingOfType("time.Duration")).Return().Once()
		svc := NewLedgerService(store, WithLogger(quietLogger), WithObserver(observer))

		_, err := svc.Transfer(ctx, "alice", "bob", decimal.NewFromInt(100))
		require.NoError(t, err)
		_, err = svc.Transfer(ctx, "alice", "alice", decimal.NewFromInt(100))
		require.Error(t, err)

		observer.AssertExpectations(t)
	})
}

func TestLedgerService_ConcurrentTransfers(t *testing.T) {
	ctx := context.Background()

	t.Run("Overdraw Race", func(t *testing.T) {
		store := newStore(t, map[string]int64{"alice": 1000, "bob": 0, "carol": 0})
		svc := NewLedgerService(store, WithLogger(quietLogger))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, to := range []string{"bob", "carol"} {
			wg.Add(1)
			go func(i int, to string) {
				defer wg.Done()
				_, errs[i] = svc.Transfer(ctx, "alice", to, decimal.NewFromInt(600))
			}(i, to)
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				failures++
				assert.True(t, util.IsError(err, util.ErrInsufficientBalance))
			}
		}
		assert.Equal(t, 1, failures)
		assert.Equal(t, int64(400), balanceOf(t, store, "alice"))
		assert.Equal(t, int64(1000), total(t, store))
	})

	t.Run("Conservation", func(t *testing.T) {
		names := []string{"a", "b", "c", "d"}
		balances := map[string]int64{}
		for _, n := range names {
			balances[n] = 1000
		}
		store := newStore(t, balances)
		svc := NewLedgerService(store, WithLogger(quietLogger))

		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				from, to := names[i%4], names[(i+1)%4]
				_, _ = svc.Transfer(ctx, from, to, decimal.NewFromInt(int64(50+i*7)))
			}(i)
		}
		wg.Wait()

		accounts, err := store.ListAccounts(ctx, "")
		require.NoError(t, err)
		for _, a := range accounts {
			assert.GreaterOrEqual(t, a.Balance, int64(0))
		}
		assert.Equal(t, int64(4000), domain.TotalBalance(accounts))
	})
}

func TestLedgerService_ReportPenalty(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, map[string]int64{"ben": 200000, "hatake": 200000})
	svc := NewLedgerService(store, WithLogger(quietLogger))

	result, err := svc.ReportPenalty(ctx, "ben", "hatake")
	require.NoError(t, err)
	assert.Equal(t, "OpSec issue reported: ben paid the 20,000 µPatron penalty to hatake", result.Message)
	assert.Equal(t, int64(180000), result.Sender.Balance)
	assert.Equal(t, int64(220000), result.Receiver.Balance)

	_, err = svc.ReportPenalty(ctx, "ben", "ben")
	assert.True(t, util.IsError(err, util.ErrSelfTransfer))
}

func TestLedgerService_Reads(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	store := newStore(t, map[string]int64{"alice": 1000, "bob": 1000, "carl": 50000, "dana": 500})
	svc := NewLedgerService(store, WithLogger(quietLogger), WithClock(func() time.Time { return now }))

	_, err := svc.Transfer(ctx, "alice", "bob", decimal.NewFromInt(300))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = svc.ReportPenalty(ctx, "carl", "dana")
		require.NoError(t, err)
	}

	t.Run("GetAccount", func(t *testing.T) {
		account, err := svc.GetAccount(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(700), account.Balance)

		_, err = svc.GetAccount(ctx, "nobody")
		assert.True(t, util.IsError(err, util.ErrAccountNotFound))
		assert.Equal(t, "User not found", util.Message(err))
	})

	t.Run("ListAccounts", func(t *testing.T) {
		accounts, err := svc.ListAccounts(ctx, "AL")
		require.NoError(t, err)
		names := []string{}
		for _, a := range accounts {
			names = append(names, a.Username)
		}
		assert.Equal(t, []string{"alice"}, names)
	})

	t.Run("Leaderboard", func(t *testing.T) {
		board, err := svc.Leaderboard(ctx, 2)
		require.NoError(t, err)
		require.Len(t, board, 2)
		assert.Equal(t, "dana", board[0].Username)
		assert.Equal(t, int64(40500), board[0].Balance)
		assert.Equal(t, "carl", board[1].Username)
		assert.Equal(t, int64(10000), board[1].Balance)
	})

	t.Run("Account Activity", func(t *testing.T) {
		feed, err := svc.ListAccountActivity(ctx, "alice", 0, 0)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, domain.DirectionSent, feed[0].Type)

		feed, err = svc.ListAccountActivity(ctx, "bob", 0, 0)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, domain.DirectionReceived, feed[0].Type)

		_, err = svc.ListAccountActivity(ctx, "nobody", 0, 0)
		assert.True(t, util.IsError(err, util.ErrAccountNotFound))
	})

	t.Run("VictimStats", func(t *testing.T) {
		stats, err := svc.VictimStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.VictimStat{{Username: "carl", VictimCount: 2, TotalLost: 40000}}, stats)
	})

	t.Run("ActivityStats", func(t *testing.T) {
		stats, err := svc.ActivityStats(ctx, 3)
		require.NoError(t, err)
		require.Len(t, stats, 3)
		assert.Equal(t, "2026-03-08", stats[0].Date)
		assert.Equal(t, domain.DailyStat{Date: "2026-03-10", Transfers: 3, Volume: 40300}, stats[2])

		_, err = svc.ActivityStats(ctx, 0)
		assert.True(t, util.IsError(err, util.ErrInvalidInput))
		_, err = svc.ActivityStats(ctx, MaxStatsDays+1)
		assert.True(t, util.IsError(err, util.ErrInvalidInput))
	})

	t.Run("Idempotent Reads", func(t *testing.T) {
		first, err := svc.ListActivity(ctx, 50, 0)
		require.NoError(t, err)
		second, err := svc.ListActivity(ctx, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, first, 3)

		page, err := svc.ListActivity(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, first[1].ID, page[0].ID)
	})
}
