// internal/service/ledger_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"micropatrons/internal/domain"
	"micropatrons/internal/repository"
	"micropatrons/internal/util"

	"github.com/shopspring/decimal"
)

// Paging and window bounds for the read helpers.
const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 500
	DefaultStatsDays     = 7
	MaxStatsDays         = 365
)

var maxUnits = decimal.NewFromInt(math.MaxInt64)

// LedgerService defines the business operations of the ledger.
type LedgerService interface {
	Transfer(ctx context.Context, sender, receiver string, amount decimal.Decimal) (*TransferResult, error)
	ReportPenalty(ctx context.Context, victim, attacker string) (*TransferResult, error)
	GetAccount(ctx context.Context, username string) (*domain.Account, error)
	ListAccounts(ctx context.Context, search string) ([]domain.Account, error)
	Leaderboard(ctx context.Context, top int) ([]domain.Account, error)
	ListActivity(ctx context.Context, limit, offset int) ([]domain.ActivityView, error)
	ListAccountActivity(ctx context.Context, username string, limit, offset int) ([]domain.ActivityView, error)
	VictimStats(ctx context.Context) ([]domain.VictimStat, error)
	ActivityStats(ctx context.Context, days int) ([]domain.DailyStat, error)
}

// TransferResult is the committed outcome of a transfer.
type TransferResult struct {
	Sender   domain.Account
	Receiver domain.Account
	Activity domain.Activity
	Message  string
}

// TransferObserver receives one call per transfer attempt.
type TransferObserver interface {
	ObserveTransfer(err error, amount int64, elapsed time.Duration)
}

// Option customises the ledger service.
type Option func(*ledgerService)

// WithObserver reports transfer outcomes to o.
func WithObserver(o TransferObserver) Option {
	return func(s *ledgerService) { s.observer = o }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *ledgerService) { s.logger = l }
}

// WithClock replaces time.Now for activity stamps and stats windows.
func WithClock(now func() time.Time) Option {
	return func(s *ledgerService) { s.now = now }
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	store    repository.Store
	observer TransferObserver
	logger   *slog.Logger
	now      func() time.Time
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(store repository.Store, opts ...Option) LedgerService {
	s := &ledgerService{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transfer moves amount µPatrons from sender to receiver as one unit.
func (s *ledgerService) Transfer(ctx context.Context, sender, receiver string, amount decimal.Decimal) (*TransferResult, error) {
	start := time.Now()
	result, units, err := s.transfer(ctx, sender, receiver, amount)
	if s.observer != nil {
		s.observer.ObserveTransfer(err, units, time.Since(start))
	}

	if err != nil {
		level := slog.LevelWarn
		if util.IsError(err, util.ErrInfrastructure) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "transfer rejected",
			"sender", sender, "receiver", receiver, "amount", amount.String(), "error", err)
		return nil, err
	}

	result.Message = fmt.Sprintf("Successfully transferred %d micropatrons from %s to %s", units, sender, receiver)
	s.logger.Info("transfer completed",
		"activity_id", result.Activity.ID,
		"sender", sender,
		"receiver", receiver,
		"amount", units,
		"sender_balance", result.Sender.Balance)
	return result, nil
}

func (s *ledgerService) transfer(ctx context.Context, sender, receiver string, amount decimal.Decimal) (*TransferResult, int64, error) {
	units, err := validateTransfer(sender, receiver, amount)
	if err != nil {
		return nil, 0, err
	}

	var result *TransferResult
	err = s.store.RunAtomic(ctx, func(tx repository.Tx) error {
		from, err := tx.GetAccountByUsername(ctx, sender)
		if err != nil {
			return notFoundAs(err, "Sender not found")
		}
		to, err := tx.GetAccountByUsername(ctx, receiver)
		if err != nil {
			return notFoundAs(err, "Receiver not found")
		}
		if from.Balance < units {
			return util.NewError(util.ErrInsufficientBalance, "Insufficient balance")
		}

		if err := tx.Debit(ctx, from.ID, units); err != nil {
			return fmt.Errorf("transfer: failed to debit sender: %w", err)
		}
		if err := tx.Credit(ctx, to.ID, units); err != nil {
			return fmt.Errorf("transfer: failed to credit receiver: %w", err)
		}

		activity := domain.NewActivity(from.ID, to.ID, units)
		activity.Timestamp = s.now().UTC()
		if err := tx.CreateActivity(ctx, activity); err != nil {
			return fmt.Errorf("transfer: failed to record activity: %w", err)
		}

		updatedFrom, err := tx.GetAccountByID(ctx, from.ID)
		if err != nil {
			return fmt.Errorf("transfer: failed to re-fetch sender: %w", err)
		}
		updatedTo, err := tx.GetAccountByID(ctx, to.ID)
		if err != nil {
			return fmt.Errorf("transfer: failed to re-fetch receiver: %w", err)
		}

		result = &TransferResult{Sender: *updatedFrom, Receiver: *updatedTo, Activity: *activity}
		return nil
	})
	if err != nil {
		return nil, units, util.Infrastructure("transfer failed", err)
	}
	return result, units, nil
}

// validateTransfer applies the request-shape checks, in order, and returns
// the amount as whole µPatrons.
func validateTransfer(sender, receiver string, amount decimal.Decimal) (int64, error) {
	if sender == "" || receiver == "" || amount.IsZero() {
		return 0, util.NewError(util.ErrInvalidInput, "Sender, receiver, and amount are required")
	}
	if !amount.IsPositive() {
		return 0, util.NewError(util.ErrInvalidInput, "Amount must be greater than 0")
	}
	if !amount.IsInteger() {
		return 0, util.NewError(util.ErrInvalidInput, "Amount must be a whole number")
	}
	if amount.GreaterThan(maxUnits) {
		return 0, util.NewError(util.ErrInvalidInput, "Amount is too large")
	}
	if sender == receiver {
		return 0, util.NewError(util.ErrSelfTransfer, "Cannot transfer to yourself")
	}
	return amount.IntPart(), nil
}

func notFoundAs(err error, message string) error {
	if util.IsError(err, util.ErrAccountNotFound) {
		return util.NewError(util.ErrAccountNotFound, message)
	}
	return err
}

// ReportPenalty charges victim the fixed OpSec penalty in favour of attacker.
func (s *ledgerService) ReportPenalty(ctx context.Context, victim, attacker string) (*TransferResult, error) {
	result, err := s.Transfer(ctx, victim, attacker, decimal.NewFromInt(domain.PenaltyAmount))
	if err != nil {
		return nil, err
	}
	result.Message = fmt.Sprintf("OpSec issue reported: %s paid the %s µPatron penalty to %s",
		victim, domain.FormatNumber(domain.PenaltyAmount), attacker)
	return result, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	account, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		return nil, util.Infrastructure("get account", err)
	}
	return account, nil
}

func (s *ledgerService) ListAccounts(ctx context.Context, search string) ([]domain.Account, error) {
	accounts, err := s.store.ListAccounts(ctx, search)
	if err != nil {
		return nil, util.Infrastructure("list accounts", err)
	}
	return accounts, nil
}

// Leaderboard ranks every account by balance. top <= 0 means all.
func (s *ledgerService) Leaderboard(ctx context.Context, top int) ([]domain.Account, error) {
	accounts, err := s.ListAccounts(ctx, "")
	if err != nil {
		return nil, err
	}
	return domain.RankLeaderboard(accounts, top), nil
}

func (s *ledgerService) ListActivity(ctx context.Context, limit, offset int) ([]domain.ActivityView, error) {
	limit, offset = normalizePage(limit, offset)
	views, err := s.store.ListActivity(ctx, limit, offset)
	if err != nil {
		return nil, util.Infrastructure("list activity", err)
	}
	return views, nil
}

// ListAccountActivity returns the feed of one account, each row tagged as
// sent or received. Unknown accounts are reported as not found.
func (s *ledgerService) ListAccountActivity(ctx context.Context, username string, limit, offset int) ([]domain.ActivityView, error) {
	if _, err := s.GetAccount(ctx, username); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	views, err := s.store.ListActivityForAccount(ctx, username, limit, offset)
	if err != nil {
		return nil, util.Infrastructure("list account activity", err)
	}
	return views, nil
}

func (s *ledgerService) VictimStats(ctx context.Context) ([]domain.VictimStat, error) {
	records, err := s.store.ListActivityByAmount(ctx, domain.PenaltyAmount)
	if err != nil {
		return nil, util.Infrastructure("victim stats", err)
	}
	return domain.AggregateVictims(records, domain.PenaltyAmount), nil
}

// ActivityStats returns one point per calendar day (UTC) for the trailing
// window of days, today included.
func (s *ledgerService) ActivityStats(ctx context.Context, days int) ([]domain.DailyStat, error) {
	if days < 1 || days > MaxStatsDays {
		return nil, util.NewError(util.ErrInvalidInput, fmt.Sprintf("days must be between 1 and %d", MaxStatsDays))
	}
	now := s.now()
	records, err := s.store.ListActivitySince(ctx, domain.WindowStart(now, days))
	if err != nil {
		return nil, util.Infrastructure("activity stats", err)
	}
	return domain.AggregateDaily(records, now, days), nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
