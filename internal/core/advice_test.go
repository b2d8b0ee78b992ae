package core

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rules(tips []Tip) []Rule {
	out := make([]Rule, len(tips))
	for i, t := range tips {
		out[i] = t.Rule
	}
	return out
}

func TestAdvise_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		profile  Profile
		income   Income
		expenses Expenses
		want     []string
	}{
		{
			name:     "rent heavy with surplus",
			profile:  Profile{Dependents: 0, SavingsPercent: d("10")},
			income:   Income{"Salary": d("10000")},
			expenses: Expenses{CategoryRent: d("3500"), CategoryGroceries: d("1200")},
			want: []string{
				msgHousing,
				"Try saving at least 10% of income monthly.",
				"You can still allocate R5300.00 to savings or debt repayment.",
			},
		},
		{
			name:     "no income with untracked expense",
			profile:  DefaultProfile(),
			income:   Income{},
			expenses: Expenses{CategoryDiningOut: d("500")},
			want: []string{
				"Try saving at least 10% of income monthly.",
				msgOverspending,
			},
		},
		{
			name:     "income only",
			profile:  DefaultProfile(),
			income:   Income{"A": d("5000")},
			expenses: Expenses{},
			want: []string{
				"Try saving at least 10% of income monthly.",
				"You can still allocate R5000.00 to savings or debt repayment.",
			},
		},
		{
			name:     "savings target met",
			profile:  DefaultProfile(),
			income:   Income{"A": d("1000")},
			expenses: Expenses{CategorySavings: d("150")},
			want:     []string{"You can still allocate R850.00 to savings or debt repayment."},
		},
		{
			name:     "exactly balanced and saving",
			profile:  DefaultProfile(),
			income:   Income{"A": d("1000")},
			expenses: Expenses{CategorySavings: d("200"), "Other": d("800")},
			want:     []string{msgBalanced},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommend(tt.profile, tt.income, tt.expenses)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Recommend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdvise_RuleOrder(t *testing.T) {
	income := Income{"Job": d("1000")}
	expenses := Expenses{
		CategoryRent:          d("400"),
		CategoryGroceries:     d("200"),
		CategoryTransport:     d("200"),
		CategoryEntertainment: d("150"),
	}
	got := rules(Advise(DefaultProfile(), income, expenses))
	want := []Rule{RuleHousing, RuleGroceries, RuleTransport, RuleEntertainment, RuleSavings, RuleSurplus}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rules = %v, want %v", got, want)
	}
}

func TestAdvise_GroceriesScaleWithDependents(t *testing.T) {
	income := Income{"Job": d("1000")}
	expenses := Expenses{CategoryGroceries: d("200"), CategorySavings: d("100"), "Rest": d("700")}

	alone := rules(Advise(Profile{Dependents: 0}, income, expenses))
	if len(alone) == 0 || alone[0] != RuleGroceries {
		t.Fatalf("expected groceries tip without dependents, got %v", alone)
	}

	family := rules(Advise(Profile{Dependents: 2}, income, expenses))
	if !reflect.DeepEqual(family, []Rule{RuleBalanced}) {
		t.Fatalf("expected balanced with 2 dependents (threshold 0.21), got %v", family)
	}
}

func TestGroceriesThreshold_Monotonic(t *testing.T) {
	prev := GroceriesThreshold(0)
	for n := 1; n <= 20; n++ {
		cur := GroceriesThreshold(n)
		if cur.LessThan(prev) {
			t.Fatalf("threshold decreased at %d dependents: %s < %s", n, cur, prev)
		}
		prev = cur
	}
}

func TestSavingsTarget(t *testing.T) {
	tests := []struct {
		pct       string
		wantRatio string
		wantPct   int64
	}{
		{"0", "0.1", 10},
		{"5", "0.1", 10},
		{"10", "0.1", 10},
		{"25.9", "0.259", 25},
		{"50", "0.5", 50},
	}
	for _, tt := range tests {
		t.Run(tt.pct, func(t *testing.T) {
			ratio, pct := SavingsTarget(Profile{SavingsPercent: d(tt.pct)})
			if !ratio.Equal(d(tt.wantRatio)) || pct != tt.wantPct {
				t.Errorf("SavingsTarget(%s) = (%s, %d), want (%s, %d)", tt.pct, ratio, pct, tt.wantRatio, tt.wantPct)
			}
		})
	}
}

func TestAdvise_HigherSavingsTargetQuoted(t *testing.T) {
	income := Income{"Job": d("1000")}
	expenses := Expenses{CategorySavings: d("150"), "Rest": d("850")}
	got := Recommend(Profile{SavingsPercent: d("20")}, income, expenses)
	want := []string{"Try saving at least 20% of income monthly."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestAdvise_ZeroIncomeSafety(t *testing.T) {
	cases := []Expenses{
		{CategoryRent: d("0.01")},
		{CategoryGroceries: d("1"), CategoryEntertainment: d("1")},
		{"Anything": d("42")},
		{CategorySavings: d("10")},
	}
	for i, ex := range cases {
		got := Recommend(DefaultProfile(), Income{}, ex)
		if len(got) == 0 {
			t.Fatalf("case %d: empty recommendations", i)
		}
		last := got[len(got)-1]
		if last != msgOverspending && last != msgBalanced {
			t.Fatalf("case %d: expected overspending or balanced last, got %q", i, got)
		}
	}
}

func TestAdvise_ZeroIncomeTrackedExpenseAlwaysHigh(t *testing.T) {
	got := rules(Advise(DefaultProfile(), nil, Expenses{CategoryRent: d("1")}))
	if got[0] != RuleHousing {
		t.Fatalf("expected housing tip against floored income, got %v", got)
	}
}

func TestAdvise_FallbackExclusive(t *testing.T) {
	inputs := []struct {
		in Income
		ex Expenses
		p  Profile
	}{
		{Income{"A": d("1000")}, Expenses{CategorySavings: d("100"), "X": d("900")}, DefaultProfile()},
		{Income{"A": d("1000")}, Expenses{CategorySavings: d("100")}, DefaultProfile()},
		{Income{}, Expenses{}, DefaultProfile()},
		{Income{"A": d("1000")}, Expenses{CategoryRent: d("2000")}, Profile{Dependents: 3, SavingsPercent: d("30")}},
	}
	for i, tc := range inputs {
		tips := Advise(tc.p, tc.in, tc.ex)
		balanced := 0
		for _, tip := range tips {
			if tip.Rule == RuleBalanced {
				balanced++
			}
		}
		if balanced == 1 && len(tips) != 1 {
			t.Fatalf("case %d: balanced tip mixed with others: %v", i, tips)
		}
		if balanced == 0 && len(tips) == 0 {
			t.Fatalf("case %d: no tips at all", i)
		}
	}
}

func TestAdvise_NegativeAmountsDoNotPanic(t *testing.T) {
	got := Recommend(DefaultProfile(), Income{"A": d("-100")}, Expenses{CategoryRent: d("-50")})
	if len(got) == 0 {
		t.Fatal("expected recommendations")
	}
	if !strings.Contains(strings.Join(got, " "), "overspending") {
		t.Fatalf("expected overspending for negative balance, got %q", got)
	}
}

func TestBudgetRecommendations(t *testing.T) {
	b := Budget{Income: Income{"A": d("5000")}, Profile: DefaultProfile()}
	if got := b.Recommendations(); len(got) != 2 {
		t.Fatalf("expected 2 recommendations, got %q", got)
	}
}
