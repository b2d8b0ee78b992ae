// Package wizard models the guided budget setup as a finite state machine.
//
// Every transition returns a new State; a State is never mutated after it is
// handed out, so a caller may keep earlier snapshots (for a "back" button or
// an undo) without copying.
package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
)

// Step is one page of the setup flow.
type Step int

const (
	StepCounts Step = iota
	StepAmounts
	StepEssentials
	StepLifestyle
	StepProfile
	StepReview
)

const (
	MinIncomeStreams      = 1
	MaxIncomeStreams      = 10
	DefaultSavingsPercent = 10
	defaultIncomeName     = "Income"
)

var (
	ErrIncomeRequired  = errors.New("please set at least one income above R0")
	ErrIncomeCount     = fmt.Errorf("number of income sources must be between %d and %d", MinIncomeStreams, MaxIncomeStreams)
	ErrIncomeIndex     = errors.New("income index out of range")
	ErrUnknownCategory = errors.New("category does not belong to this step")
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrDependents      = core.ErrInvalidDependents
	ErrSavingsPercent  = core.ErrInvalidPercent
	ErrNotReviewed     = errors.New("setup can only be completed from the review step")
)

var stepNames = [...]string{"counts", "amounts", "essentials", "lifestyle", "profile", "review"}

func (s Step) String() string {
	if s < StepCounts || s > StepReview {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// IncomeStream is one named income slider.
type IncomeStream struct {
	Name   string
	Amount decimal.Decimal
}

// State is an immutable snapshot of everything collected so far.
type State struct {
	step           Step
	incomes        []IncomeStream
	essentials     map[string]decimal.Decimal
	lifestyle      map[string]decimal.Decimal
	dependents     int
	savingsPercent decimal.Decimal
}

// New returns the first step with one income stream and a 10% savings target.
func New() State {
	s := State{
		step:           StepCounts,
		essentials:     zeroed(core.EssentialCategories()),
		lifestyle:      zeroed(core.LifestyleCategories()),
		savingsPercent: decimal.NewFromInt(DefaultSavingsPercent),
	}
	s.incomes = resizeIncomes(nil, MinIncomeStreams)
	return s
}

// FromBudget seeds a wizard with a previously saved budget so it can be adjusted.
func FromBudget(b core.Budget) State {
	s := New()
	if n := len(b.Income); n > 0 {
		names := sortedKeys(b.Income)
		if n > MaxIncomeStreams {
			names = names[:MaxIncomeStreams]
		}
		s.incomes = make([]IncomeStream, len(names))
		for i, name := range names {
			s.incomes[i] = IncomeStream{Name: name, Amount: b.Income[name]}
		}
	}
	for cat := range s.essentials {
		s.essentials[cat] = b.Expenses.Get(cat)
	}
	for cat := range s.lifestyle {
		s.lifestyle[cat] = b.Expenses.Get(cat)
	}
	s.dependents = b.Profile.Dependents
	s.savingsPercent = b.Profile.SavingsPercent
	return s
}

func (s State) Step() Step                      { return s.step }
func (s State) Dependents() int                 { return s.dependents }
func (s State) SavingsPercent() decimal.Decimal { return s.savingsPercent }
func (s State) IncomeCount() int                { return len(s.incomes) }

// Incomes returns a copy of the income streams.
func (s State) Incomes() []IncomeStream {
	return append([]IncomeStream(nil), s.incomes...)
}

func (s State) clone() State {
	c := s
	c.incomes = append([]IncomeStream(nil), s.incomes...)
	c.essentials = copyMap(s.essentials)
	c.lifestyle = copyMap(s.lifestyle)
	return c
}

// SetIncomeCount resizes the income list, keeping existing streams.
func (s State) SetIncomeCount(n int) (State, error) {
	if n < MinIncomeStreams || n > MaxIncomeStreams {
		return s, ErrIncomeCount
	}
	c := s.clone()
	c.incomes = resizeIncomes(c.incomes, n)
	return c, nil
}

// SetIncome names and values the i-th income stream.
func (s State) SetIncome(i int, name string, amount decimal.Decimal) (State, error) {
	if i < 0 || i >= len(s.incomes) {
		return s, ErrIncomeIndex
	}
	if amount.IsNegative() {
		return s, ErrNegativeAmount
	}
	c := s.clone()
	c.incomes[i] = IncomeStream{Name: name, Amount: amount}
	return c, nil
}

// SetEssential sets the amount of one essentials category.
func (s State) SetEssential(category string, amount decimal.Decimal) (State, error) {
	return s.setCategory(s.essentials, category, amount, func(c *State) map[string]decimal.Decimal { return c.essentials })
}

// SetLifestyle sets the amount of one lifestyle category.
func (s State) SetLifestyle(category string, amount decimal.Decimal) (State, error) {
	return s.setCategory(s.lifestyle, category, amount, func(c *State) map[string]decimal.Decimal { return c.lifestyle })
}

func (s State) setCategory(current map[string]decimal.Decimal, category string, amount decimal.Decimal, target func(*State) map[string]decimal.Decimal) (State, error) {
	if _, ok := current[category]; !ok {
		return s, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if amount.IsNegative() {
		return s, ErrNegativeAmount
	}
	c := s.clone()
	target(&c)[category] = amount
	return c, nil
}

// SetProfile sets household size and the savings target, within the limits
// core.Profile enforces on save.
func (s State) SetProfile(dependents int, savingsPercent decimal.Decimal) (State, error) {
	p := core.Profile{Dependents: dependents, SavingsPercent: savingsPercent}
	if err := p.Validate(); err != nil {
		return s, err
	}
	c := s.clone()
	c.dependents = dependents
	c.savingsPercent = savingsPercent
	return c, nil
}

// Validate checks the current step's inputs.
func (s State) Validate() error {
	if s.step == StepAmounts {
		for _, in := range s.incomes {
			if in.Amount.IsPositive() {
				return nil
			}
		}
		return ErrIncomeRequired
	}
	return nil
}

// Next validates the current step and moves forward. Review is terminal.
func (s State) Next() (State, error) {
	if err := s.Validate(); err != nil {
		return s, err
	}
	if s.step == StepReview {
		return s, nil
	}
	c := s.clone()
	c.step++
	return c, nil
}

// Back moves one step backwards; it is a no-op on the first step.
func (s State) Back() State {
	if s.step == StepCounts {
		return s
	}
	c := s.clone()
	c.step--
	return c
}

// Complete returns the plan to save. It is only allowed from the review step.
func (s State) Complete() (Plan, error) {
	if s.step != StepReview {
		return Plan{}, ErrNotReviewed
	}
	return s.Plan(), nil
}

func (s State) collectIncome() core.Income {
	out := core.Income{}
	for _, in := range s.incomes {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = defaultIncomeName
		}
		// Later streams with the same name win, like any keyed save.
		out[name] = in.Amount
	}
	return out
}

func resizeIncomes(in []IncomeStream, n int) []IncomeStream {
	out := make([]IncomeStream, n)
	copy(out, in)
	for i := len(in); i < n; i++ {
		out[i] = IncomeStream{Name: fmt.Sprintf("Income %d", i+1), Amount: decimal.Zero}
	}
	return out
}

func zeroed(cats []string) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(cats))
	for _, c := range cats {
		m[c] = decimal.Zero
	}
	return m
}

func copyMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

