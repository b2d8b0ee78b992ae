package wizard

import (
	"sort"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
)

// Plan is the budget a finished wizard would save.
type Plan struct {
	Income   core.Income
	Expenses core.Expenses
	Profile  core.Profile
}

// Review holds the figures shown on the last step before saving.
type Review struct {
	TotalIncome      decimal.Decimal `json:"total_income"`
	SavingsAmount    decimal.Decimal `json:"savings_amount"`
	EstimatedExpense decimal.Decimal `json:"estimated_expense"`
	EstimatedBalance decimal.Decimal `json:"estimated_balance"`
}

// Plan builds the budget from the state as it stands, whatever the step.
func (s State) Plan() Plan {
	income := s.collectIncome()
	expenses := core.Expenses{}
	for cat, amt := range s.essentials {
		expenses[cat] = amt
	}
	for cat, amt := range s.lifestyle {
		expenses[cat] = amt
	}
	if savings := savingsAmount(income.Total(), s.savingsPercent); savings.IsPositive() {
		expenses[core.CategorySavings] = savings
	}
	return Plan{
		Income:   income,
		Expenses: expenses,
		Profile: core.Profile{
			Dependents:     s.dependents,
			SavingsPercent: s.savingsPercent,
		},
	}
}

// Review summarises the plan. Savings are counted as an expense.
func (p Plan) Review() Review {
	t := core.Aggregate(p.Income, p.Expenses)
	return Review{
		TotalIncome:      t.Income,
		SavingsAmount:    p.Expenses.Get(core.CategorySavings),
		EstimatedExpense: t.Expense,
		EstimatedBalance: t.Balance,
	}
}

// Budget converts the plan into the shape the ledger stores.
func (p Plan) Budget() core.Budget {
	return core.Budget{Income: p.Income, Expenses: p.Expenses, Profile: p.Profile}
}

func savingsAmount(totalIncome, pct decimal.Decimal) decimal.Decimal {
	return totalIncome.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
