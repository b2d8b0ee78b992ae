package core

import (
	"testing"
)

func TestGroupOf(t *testing.T) {
	tests := []struct {
		category string
		want     CategoryGroup
	}{
		{CategoryGroceries, Essentials},
		{CategoryRent, Essentials},
		{CategoryUtilities, Essentials},
		{CategoryTransport, Essentials},
		{CategoryEducation, Essentials},
		{CategoryEntertainment, Lifestyle},
		{CategoryDiningOut, Lifestyle},
		{CategoryShopping, Lifestyle},
		{CategorySavings, Savings},
		{"groceries", Other},
		{"Pets", Other},
		{"", Other},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			if got := GroupOf(tt.category); got != tt.want {
				t.Errorf("GroupOf(%q) = %v, want %v", tt.category, got, tt.want)
			}
		})
	}
}

func TestSplitExpenses_Partition(t *testing.T) {
	in := Expenses{
		CategoryRent:          d("3500"),
		CategoryGroceries:     d("1200"),
		CategoryDiningOut:     d("300"),
		CategorySavings:       d("1000"),
		"Pets":                d("250"),
		"Gym":                 d("199.99"),
		CategoryEntertainment: d("0"),
	}
	ess, life, sav, other := SplitExpenses(in)

	if len(ess) != 2 || len(life) != 2 || len(sav) != 1 || len(other) != 2 {
		t.Fatalf("unexpected sizes: ess=%d life=%d sav=%d other=%d", len(ess), len(life), len(sav), len(other))
	}

	seen := map[string]int{}
	for _, group := range []Expenses{ess, life, sav, other} {
		for k, v := range group {
			seen[k]++
			if !v.Equal(in[k]) {
				t.Errorf("amount changed for %q: %s != %s", k, v, in[k])
			}
		}
	}
	if len(seen) != len(in) {
		t.Fatalf("union has %d keys, input has %d", len(seen), len(in))
	}
	for k, n := range seen {
		if n != 1 {
			t.Errorf("key %q appears in %d groups", k, n)
		}
	}
}

func TestSplitExpenses_Empty(t *testing.T) {
	ess, life, sav, other := SplitExpenses(nil)
	if len(ess)+len(life)+len(sav)+len(other) != 0 {
		t.Fatal("expected empty groups")
	}
	if ess == nil || other == nil {
		t.Fatal("groups should be non-nil maps")
	}
}

func TestFilterApply(t *testing.T) {
	in := Expenses{
		CategoryRent:      d("100"),
		CategoryDiningOut: d("50"),
		CategorySavings:   d("20"),
		"Pets":            d("5"),
	}
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", ShowAll(), []string{CategoryRent, CategoryDiningOut, CategorySavings, "Pets"}},
		{"none keeps other", Filter{}, []string{"Pets"}},
		{"essentials only", Filter{Essentials: true}, []string{CategoryRent, "Pets"}},
		{"lifestyle and savings", Filter{Lifestyle: true, Savings: true}, []string{CategoryDiningOut, CategorySavings, "Pets"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d: %v", len(got), len(tt.want), got)
			}
			for _, k := range tt.want {
				if _, ok := got[k]; !ok {
					t.Errorf("missing %q", k)
				}
			}
		})
	}
}

func TestCategoryListsAreCopies(t *testing.T) {
	ess := EssentialCategories()
	ess[0] = "mutated"
	if EssentialCategories()[0] != CategoryGroceries {
		t.Fatal("EssentialCategories exposed internal slice")
	}
	if len(LifestyleCategories()) != 3 {
		t.Fatal("expected 3 lifestyle categories")
	}
}

func TestParseCategoryGroup(t *testing.T) {
	for _, g := range []CategoryGroup{Essentials, Lifestyle, Savings, Other} {
		got, ok := ParseCategoryGroup(g.String())
		if !ok || got != g {
			t.Errorf("ParseCategoryGroup(%q) = %v, %v", g.String(), got, ok)
		}
	}
	if _, ok := ParseCategoryGroup("luxury"); ok {
		t.Error("expected unknown group to fail")
	}
}
