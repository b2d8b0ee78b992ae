package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
	"smartbudget/internal/ledger"
	applog "smartbudget/internal/log"
)

// ErrInvalidBudget wraps every validation failure of a save.
var ErrInvalidBudget = errors.New("invalid budget")

// Publisher announces that a user's budget changed.
type Publisher interface {
	PublishBudgetUpdated(ctx context.Context, userID int64) error
}

// BudgetService orchestrates the ledger store, the budget engine and event publishing.
type BudgetService struct {
	store     ledger.LedgerStore
	publisher Publisher
	locks     *userLocks
}

// NewBudgetService wires a store and an optional publisher; pass a nil
// interface, not a typed nil, to disable publishing.
func NewBudgetService(store ledger.LedgerStore, publisher Publisher) *BudgetService {
	return &BudgetService{
		store:     store,
		publisher: publisher,
		locks:     newUserLocks(),
	}
}

// Snapshot loads a consistent view of the user's budget.
func (s *BudgetService) Snapshot(ctx context.Context, userID int64) (core.Budget, error) {
	b, err := s.store.Budget(ctx, userID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("load budget: %w", err)
	}
	return b, nil
}

// Dashboard is everything the main screen shows for one user.
type Dashboard struct {
	Budget core.Budget
	Filter core.Filter
	// Visible is the filtered expense view; Other is always part of it.
	Visible        core.Expenses
	Essentials     core.Expenses
	Lifestyle      core.Expenses
	Savings        core.Expenses
	Other          core.Expenses
	Totals         core.Totals
	VisibleExpense decimal.Decimal
	Tips           []core.Tip
}

// SetUp reports whether the user has recorded anything yet.
func (d Dashboard) SetUp() bool { return d.Budget.IsSetUp() }

func (s *BudgetService) Dashboard(ctx context.Context, userID int64, filter core.Filter) (Dashboard, error) {
	b, err := s.Snapshot(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	visible := filter.Apply(b.Expenses)
	ess, life, sav, other := core.SplitExpenses(b.Expenses)
	return Dashboard{
		Budget:         b,
		Filter:         filter,
		Visible:        visible,
		Essentials:     ess,
		Lifestyle:      life,
		Savings:        sav,
		Other:          other,
		Totals:         b.Totals(),
		VisibleExpense: visible.Total(),
		Tips:           core.Advise(b.Profile, b.Income, b.Expenses),
	}, nil
}

// SaveBudget replaces the user's income and expenses wholesale, and the
// profile too when one is given. Concurrent saves for a user are serialised.
func (s *BudgetService) SaveBudget(ctx context.Context, userID int64, in core.Income, ex core.Expenses, profile *core.Profile) error {
	if err := core.ValidateIncome(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBudget, err)
	}
	if err := core.ValidateExpenses(ex); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBudget, err)
	}
	if profile != nil {
		if err := profile.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidBudget, err)
		}
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	var p core.Profile
	if profile != nil {
		p = *profile
	} else {
		current, err := s.store.Profile(ctx, userID)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		p = current
	}

	if err := s.store.ReplaceBudget(ctx, userID, in, ex, p); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogBudgetSaved(ctx, userID, len(in), len(ex))

	s.publish(ctx, userID)
	return nil
}

func (s *BudgetService) Profile(ctx context.Context, userID int64) (core.Profile, error) {
	p, err := s.store.Profile(ctx, userID)
	if err != nil {
		return core.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (s *BudgetService) UpdateProfile(ctx context.Context, userID int64, p core.Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBudget, err)
	}
	unlock := s.locks.lock(userID)
	defer unlock()
	if err := s.store.UpsertProfile(ctx, userID, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	s.publish(ctx, userID)
	return nil
}

func (s *BudgetService) HasSetup(ctx context.Context, userID int64) (bool, error) {
	ok, err := s.store.HasSetup(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check setup: %w", err)
	}
	return ok, nil
}

// publish never fails the caller; the budget is already saved.
func (s *BudgetService) publish(ctx context.Context, userID int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping budget update event", "user_id", userID)
		return
	}
	if err := s.publisher.PublishBudgetUpdated(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget update", "user_id", userID, "error", err)
	}
}
