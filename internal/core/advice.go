package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Rule identifies which recommendation rule produced a tip.
type Rule string

const (
	RuleHousing       Rule = "housing"
	RuleGroceries     Rule = "groceries"
	RuleTransport     Rule = "transport"
	RuleEntertainment Rule = "entertainment"
	RuleSavings       Rule = "savings"
	RuleOverspending  Rule = "overspending"
	RuleSurplus       Rule = "surplus"
	RuleBalanced      Rule = "balanced"
)

// Tip is one piece of advice.
type Tip struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

const (
	msgHousing       = "Housing exceeds 30% of income. Consider downsizing or negotiating."
	msgGroceries     = "Groceries look high; try weekly planning and bulk buys."
	msgTransport     = "Transport is high; consider carpooling or optimizing trips."
	msgEntertainment = "Entertainment over 10%; audit your subscriptions."
	msgSavings       = "Try saving at least %d%% of income monthly."
	msgOverspending  = "You're overspending. Reduce non-essentials first."
	msgSurplus       = "You can still allocate %s to savings or debt repayment."
	msgBalanced      = "Your budget looks balanced. Keep tracking monthly to stay on target."
)

var (
	housingLimit        = decimal.RequireFromString("0.30")
	groceriesBase       = decimal.RequireFromString("0.15")
	groceriesPerPerson  = decimal.RequireFromString("0.03")
	transportLimit      = decimal.RequireFromString("0.15")
	entertainmentLimit  = decimal.RequireFromString("0.10")
	minimumSavingsRatio = decimal.RequireFromString("0.10")
	minimumSavingsPct   = int64(10)
)

// ratios are category amounts relative to the effective income.
type ratios struct {
	rent, groceries, transport, entertainment, savings decimal.Decimal
}

// EffectiveIncome is total income floored to 1 when it is zero, so ratios
// never divide by zero. With no income every tracked expense of 1 or more
// reads as at least 100% of income.
func EffectiveIncome(in Income) decimal.Decimal {
	total := in.Total()
	if total.IsPositive() {
		return total
	}
	return decimal.NewFromInt(1)
}

// GroceriesThreshold is the groceries ratio limit for a household; it never
// decreases as dependents grow.
func GroceriesThreshold(dependents int) decimal.Decimal {
	return groceriesBase.Add(groceriesPerPerson.Mul(decimal.NewFromInt(int64(dependents))))
}

// SavingsTarget returns the minimum savings ratio and the whole percent quoted
// to the user.
func SavingsTarget(p Profile) (decimal.Decimal, int64) {
	ratio := decimal.Max(minimumSavingsRatio, p.SavingsPercent.Div(hundred))
	pct := p.SavingsPercent.Truncate(0).IntPart()
	if pct < minimumSavingsPct {
		pct = minimumSavingsPct
	}
	return ratio, pct
}

func computeRatios(in Income, ex Expenses) ratios {
	base := EffectiveIncome(in)
	ratio := func(cat string) decimal.Decimal {
		return ex.Get(cat).Div(base)
	}
	return ratios{
		rent:          ratio(CategoryRent),
		groceries:     ratio(CategoryGroceries),
		transport:     ratio(CategoryTransport),
		entertainment: ratio(CategoryEntertainment),
		savings:       ratio(CategorySavings),
	}
}

// Advise evaluates the recommendation rules in a fixed order and returns one
// tip per rule that fired. The result is never empty.
func Advise(p Profile, in Income, ex Expenses) []Tip {
	r := computeRatios(in, ex)
	var tips []Tip
	add := func(rule Rule, msg string) {
		tips = append(tips, Tip{Rule: rule, Message: msg})
	}

	if r.rent.GreaterThan(housingLimit) {
		add(RuleHousing, msgHousing)
	}
	if r.groceries.GreaterThan(GroceriesThreshold(p.Dependents)) {
		add(RuleGroceries, msgGroceries)
	}
	if r.transport.GreaterThan(transportLimit) {
		add(RuleTransport, msgTransport)
	}
	if r.entertainment.GreaterThan(entertainmentLimit) {
		add(RuleEntertainment, msgEntertainment)
	}
	if target, pct := SavingsTarget(p); r.savings.LessThan(target) {
		add(RuleSavings, fmt.Sprintf(msgSavings, pct))
	}

	// The balance uses real income, not the floored denominator.
	balance := Aggregate(in, ex).Balance
	switch {
	case balance.IsNegative():
		add(RuleOverspending, msgOverspending)
	case balance.IsPositive():
		add(RuleSurplus, fmt.Sprintf(msgSurplus, FormatPlain(balance)))
	}

	if len(tips) == 0 {
		add(RuleBalanced, msgBalanced)
	}
	return tips
}

// Recommend returns the advisory messages for a user's budget in rule order.
func Recommend(p Profile, in Income, ex Expenses) []string {
	tips := Advise(p, in, ex)
	out := make([]string, len(tips))
	for i, t := range tips {
		out[i] = t.Message
	}
	return out
}

// Recommendations is Recommend applied to a whole budget.
func (b Budget) Recommendations() []string {
	return Recommend(b.Profile, b.Income, b.Expenses)
}
