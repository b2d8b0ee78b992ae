package http

import (
	"strings"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(result)
}

// amountsJSON renders amounts as fixed two-decimal strings.
func amountsJSON[M ~map[string]decimal.Decimal](m M) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.StringFixed(2)
	}
	return out
}

func amountJSON(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type totalsJSON struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

func toTotalsJSON(t core.Totals) totalsJSON {
	return totalsJSON{
		Income:  amountJSON(t.Income),
		Expense: amountJSON(t.Expense),
		Balance: amountJSON(t.Balance),
	}
}

type profileJSON struct {
	Dependents     int    `json:"dependents"`
	SavingsPercent string `json:"savings_percent"`
}

func toProfileJSON(p core.Profile) profileJSON {
	return profileJSON{
		Dependents:     p.Dependents,
		SavingsPercent: p.SavingsPercent.String(),
	}
}
