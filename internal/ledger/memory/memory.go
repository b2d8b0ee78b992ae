// Package memory is an in-process ledger used for development and tests.
package memory

import (
	"context"
	"sync"

	"smartbudget/internal/core"
	"smartbudget/internal/ledger"
)

type account struct {
	id   int64
	hash string
}

type book struct {
	income   core.Income
	expenses core.Expenses
	profile  *core.Profile
}

type Store struct {
	mu     sync.RWMutex
	users  map[string]account
	books  map[int64]*book
	nextID int64
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users: map[string]account{},
		books: map[int64]*book{},
	}
}

// CreateUser registers a user and returns its id.
func (s *Store) CreateUser(_ context.Context, username, password string) (int64, error) {
	username = ledger.NormalizeUsername(username)
	if username == "" {
		return 0, ledger.ErrInvalidCredentials
	}
	hash, err := ledger.HashPassword(password)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return 0, ledger.ErrDuplicateUser
	}
	s.nextID++
	s.users[username] = account{id: s.nextID, hash: hash}
	return s.nextID, nil
}

func (s *Store) ValidateLogin(_ context.Context, username, password string) (int64, error) {
	s.mu.RLock()
	acc, ok := s.users[ledger.NormalizeUsername(username)]
	s.mu.RUnlock()
	if !ok || !ledger.CheckPassword(acc.hash, password) {
		return 0, ledger.ErrInvalidCredentials
	}
	return acc.id, nil
}

func (s *Store) Budget(_ context.Context, userID int64) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := core.Budget{
		Income:   core.Income{},
		Expenses: core.Expenses{},
		Profile:  core.DefaultProfile(),
	}
	b, ok := s.books[userID]
	if !ok {
		return out, nil
	}
	if b.income != nil {
		out.Income = b.income.Clone()
	}
	if b.expenses != nil {
		out.Expenses = b.expenses.Clone()
	}
	if b.profile != nil {
		out.Profile = *b.profile
	}
	return out, nil
}

func (s *Store) Income(_ context.Context, userID int64) (core.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.books[userID]; ok {
		return b.income.Clone(), nil
	}
	return core.Income{}, nil
}

func (s *Store) Expenses(_ context.Context, userID int64) (core.Expenses, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.books[userID]; ok {
		return b.expenses.Clone(), nil
	}
	return core.Expenses{}, nil
}

func (s *Store) Profile(_ context.Context, userID int64) (core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.books[userID]; ok && b.profile != nil {
		return *b.profile, nil
	}
	return core.DefaultProfile(), nil
}

func (s *Store) ReplaceIncome(_ context.Context, userID int64, in core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book(userID).income = in.Clone()
	return nil
}

func (s *Store) ReplaceExpenses(_ context.Context, userID int64, ex core.Expenses) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book(userID).expenses = ex.Clone()
	return nil
}

func (s *Store) ReplaceBudget(_ context.Context, userID int64, in core.Income, ex core.Expenses, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.book(userID)
	b.income = in.Clone()
	b.expenses = ex.Clone()
	b.profile = &p
	return nil
}

func (s *Store) UpsertProfile(_ context.Context, userID int64, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book(userID).profile = &p
	return nil
}

func (s *Store) HasSetup(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[userID]
	return ok && (len(b.income) > 0 || len(b.expenses) > 0), nil
}

func (s *Store) Close() error { return nil }

// book returns the user's ledger, creating it. Callers hold the write lock.
func (s *Store) book(userID int64) *book {
	b, ok := s.books[userID]
	if !ok {
		b = &book{income: core.Income{}, expenses: core.Expenses{}}
		s.books[userID] = b
	}
	return b
}
