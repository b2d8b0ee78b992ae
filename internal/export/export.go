// Package export renders a user's budget as CSV, a plain-text report, or
// spreadsheet rows.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
)

const (
	IncomeHeading   = "— Income —"
	ExpensesHeading = "— Expenses (Filtered) —"
	ReportTitle     = "BUDGET REPORT"
	bullet          = "• "
)

// Rows returns the export table: a header, the income section, a blank row
// and the filtered expenses. Entries are sorted by name.
func Rows(b core.Budget, filter core.Filter) [][]string {
	visible := filter.Apply(b.Expenses)
	rows := make([][]string, 0, len(b.Income)+len(visible)+4)
	rows = append(rows, []string{"Category", "Amount"})
	rows = append(rows, []string{IncomeHeading, ""})
	for _, name := range sortedNames(b.Income) {
		rows = append(rows, []string{name, b.Income[name].StringFixed(2)})
	}
	rows = append(rows, []string{"", ""})
	rows = append(rows, []string{ExpensesHeading, ""})
	for _, cat := range sortedNames(visible) {
		rows = append(rows, []string{cat, visible[cat].StringFixed(2)})
	}
	return rows
}

// WriteCSV writes Rows as CSV.
func WriteCSV(w io.Writer, b core.Budget, filter core.Filter) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(b, filter)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Report renders the plain-text budget report with recommendations.
func Report(b core.Budget, filter core.Filter) string {
	visible := filter.Apply(b.Expenses)

	var sb strings.Builder
	sb.WriteString(ReportTitle + "\n\n" + IncomeHeading + "\n")
	for _, name := range sortedNames(b.Income) {
		fmt.Fprintf(&sb, "%s: %s\n", name, core.FormatRand(b.Income[name]))
	}
	sb.WriteString("\n" + ExpensesHeading + "\n")
	for _, cat := range sortedNames(visible) {
		fmt.Fprintf(&sb, "%s: %s\n", cat, core.FormatRand(visible[cat]))
	}

	if shares := Breakdown(visible); len(shares) > 0 {
		sb.WriteString("\nBreakdown:\n")
		for _, s := range shares {
			fmt.Fprintf(&sb, "%s: %s%%\n", s.Category, s.Percent.StringFixed(1))
		}
	}

	totals := b.Totals()
	fmt.Fprintf(&sb, "\nTotal income: %s\nTotal expenses: %s\nBalance: %s\n",
		core.FormatRand(totals.Income), core.FormatRand(totals.Expense), core.FormatRand(totals.Balance))

	sb.WriteString("\nRecommendations:\n")
	for _, r := range b.Recommendations() {
		sb.WriteString(bullet + r + "\n")
	}
	return sb.String()
}

// Share is one slice of the expense breakdown.
type Share struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Percent  decimal.Decimal `json:"percent"`
}

// Breakdown returns each positive expense with its share of the positive
// total, largest first. It is empty when nothing was spent.
func Breakdown(ex core.Expenses) []Share {
	total := decimal.Zero
	for _, v := range ex {
		if v.IsPositive() {
			total = total.Add(v)
		}
	}
	if !total.IsPositive() {
		return nil
	}
	hundred := decimal.NewFromInt(100)
	out := make([]Share, 0, len(ex))
	for cat, v := range ex {
		if !v.IsPositive() {
			continue
		}
		out = append(out, Share{Category: cat, Amount: v, Percent: v.Mul(hundred).DivRound(total, 2)})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func sortedNames[M ~map[string]decimal.Decimal](m M) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
