package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	// Income maps an income stream name to its monthly amount.
	Income map[string]decimal.Decimal

	// Expenses maps an expense category to its monthly amount.
	Expenses map[string]decimal.Decimal

	// Profile holds the per-user preferences that tune the recommendation thresholds.
	Profile struct {
		Dependents     int
		SavingsPercent decimal.Decimal
	}

	// Budget is the complete current picture for one user.
	Budget struct {
		Income   Income
		Expenses Expenses
		Profile  Profile
	}
)

const (
	maxNameLength = 100
	// MaxDependents is the largest household a profile may declare.
	MaxDependents = 50
)

var (
	ErrEmptyName         = errors.New("empty name")
	ErrNameTooLong       = errors.New("name too long (max 100 characters)")
	ErrNegativeAmount    = errors.New("negative amount")
	ErrInvalidDependents = errors.New("dependents must be between 0 and 50")
	ErrInvalidPercent    = errors.New("savings percent must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// MaxSavingsPercent is the highest savings target a profile may hold.
var MaxSavingsPercent = hundred

// DefaultProfile is the profile of a user who never set one.
func DefaultProfile() Profile {
	return Profile{Dependents: 0, SavingsPercent: decimal.Zero}
}

// Total sums every income stream.
func (in Income) Total() decimal.Decimal {
	return sum(in)
}

// Total sums every expense category.
func (ex Expenses) Total() decimal.Decimal {
	return sum(ex)
}

// Clone returns an independent copy.
func (in Income) Clone() Income {
	return Income(cloneAmounts(in))
}

// Clone returns an independent copy.
func (ex Expenses) Clone() Expenses {
	return Expenses(cloneAmounts(ex))
}

// Get returns the amount for a category, zero when absent.
func (ex Expenses) Get(category string) decimal.Decimal {
	if v, ok := ex[category]; ok {
		return v
	}
	return decimal.Zero
}

// IsSetUp reports whether the user recorded at least one income or expense.
func (b Budget) IsSetUp() bool {
	return len(b.Income) > 0 || len(b.Expenses) > 0
}

func (p Profile) Validate() error {
	if p.Dependents < 0 || p.Dependents > MaxDependents {
		return ErrInvalidDependents
	}
	if p.SavingsPercent.IsNegative() || p.SavingsPercent.GreaterThan(MaxSavingsPercent) {
		return ErrInvalidPercent
	}
	return nil
}

// ValidateIncome checks names and amounts before a save. The engine never calls it.
func ValidateIncome(in Income) error {
	return validateAmounts(in, "income stream")
}

// ValidateExpenses checks categories and amounts before a save.
func ValidateExpenses(ex Expenses) error {
	return validateAmounts(ex, "expense category")
}

func validateAmounts[M ~map[string]decimal.Decimal](m M, kind string) error {
	for name, amt := range m {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return fmt.Errorf("%s: %w", kind, ErrEmptyName)
		}
		if len(trimmed) > maxNameLength {
			return fmt.Errorf("%s %q: %w", kind, trimmed, ErrNameTooLong)
		}
		if amt.IsNegative() {
			return fmt.Errorf("%s %q: %w", kind, trimmed, ErrNegativeAmount)
		}
	}
	return nil
}

func sum[M ~map[string]decimal.Decimal](m M) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

func cloneAmounts[M ~map[string]decimal.Decimal](m M) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
