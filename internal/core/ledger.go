package core

import "github.com/shopspring/decimal"

// Totals is the aggregate view of a user's ledger.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// Aggregate sums income and expenses. Balance is exactly Income - Expense; no
// rounding happens here.
func Aggregate(in Income, ex Expenses) Totals {
	ti := in.Total()
	te := ex.Total()
	return Totals{
		Income:  ti,
		Expense: te,
		Balance: ti.Sub(te),
	}
}

// Totals aggregates the budget's full (unfiltered) ledger.
func (b Budget) Totals() Totals {
	return Aggregate(b.Income, b.Expenses)
}
