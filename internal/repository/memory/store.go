// internal/repository/memory/store.go
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"micropatrons/internal/domain"
	"micropatrons/internal/repository"
	"micropatrons/internal/util"
)

// Store is an in-process implementation of repository.Store. Units of work
// hold the writer lock for their whole duration and stage their writes,
// which are applied only when the work succeeds.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account // by ID
	byName   map[string]string         // username -> ID
	activity []domain.Activity         // insertion order
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		accounts: make(map[string]domain.Account),
		byName:   make(map[string]string),
	}
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return nil, util.NewError(util.ErrAccountNotFound, "User not found")
	}
	account := s.accounts[id]
	return &account, nil
}

func (s *Store) ListAccounts(ctx context.Context, search string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(search)
	accounts := []domain.Account{}
	for _, a := range s.accounts {
		if needle == "" || strings.Contains(strings.ToLower(a.Username), needle) {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Username < accounts[j].Username
	})
	return accounts, nil
}

func (s *Store) ListActivity(ctx context.Context, limit, offset int) ([]domain.ActivityView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(s.views(func(domain.Activity) bool { return true }), limit, offset), nil
}

func (s *Store) ListActivityForAccount(ctx context.Context, username string, limit, offset int) ([]domain.ActivityView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return []domain.ActivityView{}, nil
	}
	views := page(s.views(func(a domain.Activity) bool {
		return a.FromUserID == id || a.ToUserID == id
	}), limit, offset)
	for i := range views {
		views[i].Tag(username)
	}
	return views, nil
}

func (s *Store) ListActivityByAmount(ctx context.Context, amount int64) ([]domain.ActivityView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views(func(a domain.Activity) bool { return a.Amount == amount }), nil
}

func (s *Store) ListActivitySince(ctx context.Context, since time.Time) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := []domain.Activity{}
	for _, a := range s.activity {
		if !a.Timestamp.Before(since) {
			records = append(records, a)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

// RunAtomic serialises units of work. Readers never see staged writes.
func (s *Store) RunAtomic(ctx context.Context, work func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		accounts: make(map[string]domain.Account),
		byName:   make(map[string]string),
	}
	if err := work(tx); err != nil {
		return err
	}

	for id, a := range tx.accounts {
		s.accounts[id] = a
	}
	for name, id := range tx.byName {
		s.byName[name] = id
	}
	s.activity = append(s.activity, tx.activity...)
	return nil
}

// Reset wipes all state.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]domain.Account)
	s.byName = make(map[string]string)
	s.activity = nil
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// views joins matching records with usernames, newest first.
func (s *Store) views(match func(domain.Activity) bool) []domain.ActivityView {
	views := []domain.ActivityView{}
	for i := len(s.activity) - 1; i >= 0; i-- {
		a := s.activity[i]
		if !match(a) {
			continue
		}
		views = append(views, domain.ActivityView{
			Activity:     a,
			FromUsername: s.accounts[a.FromUserID].Username,
			ToUsername:   s.accounts[a.ToUserID].Username,
		})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Timestamp.After(views[j].Timestamp)
	})
	return views
}

func page(views []domain.ActivityView, limit, offset int) []domain.ActivityView {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(views) {
		return []domain.ActivityView{}
	}
	views = views[offset:]
	if limit >= 0 && limit < len(views) {
		views = views[:limit]
	}
	return views
}

// memTx stages writes on top of the committed state. The owning Store's
// writer lock is held for the lifetime of a memTx.
type memTx struct {
	store    *Store
	accounts map[string]domain.Account
	byName   map[string]string
	activity []domain.Activity
}

func (t *memTx) lookup(id string) (domain.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a, true
	}
	a, ok := t.store.accounts[id]
	return a, ok
}

func (t *memTx) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	id, ok := t.byName[username]
	if !ok {
		id, ok = t.store.byName[username]
	}
	if !ok {
		return nil, util.NewError(util.ErrAccountNotFound, "User not found")
	}
	return t.GetAccountByID(ctx, id)
}

func (t *memTx) GetAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	a, ok := t.lookup(id)
	if !ok {
		return nil, util.NewError(util.ErrAccountNotFound, "User not found")
	}
	return &a, nil
}

func (t *memTx) Debit(ctx context.Context, accountID string, amount int64) error {
	a, ok := t.lookup(accountID)
	if !ok {
		return util.NewError(util.ErrAccountNotFound, "User not found")
	}
	if a.Balance < amount {
		return util.NewError(util.ErrInsufficientBalance, "Insufficient balance")
	}
	a.Balance -= amount
	t.accounts[accountID] = a
	return nil
}

func (t *memTx) Credit(ctx context.Context, accountID string, amount int64) error {
	a, ok := t.lookup(accountID)
	if !ok {
		return util.NewError(util.ErrAccountNotFound, "User not found")
	}
	a.Balance += amount
	t.accounts[accountID] = a
	return nil
}

func (t *memTx) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	if _, ok := t.lookup(activity.FromUserID); !ok {
		return util.NewError(util.ErrAccountNotFound, "User not found")
	}
	if _, ok := t.lookup(activity.ToUserID); !ok {
		return util.NewError(util.ErrAccountNotFound, "User not found")
	}
	t.activity = append(t.activity, *activity)
	return nil
}

func (t *memTx) CreateAccount(ctx context.Context, account *domain.Account) error {
	if _, taken := t.byName[account.Username]; taken {
		return util.NewError(util.ErrDuplicateEntry, "username '"+account.Username+"' already exists")
	}
	if _, taken := t.store.byName[account.Username]; taken {
		return util.NewError(util.ErrDuplicateEntry, "username '"+account.Username+"' already exists")
	}
	t.accounts[account.ID] = *account
	t.byName[account.Username] = account.ID
	return nil
}
