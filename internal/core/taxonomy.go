package core

import "strings"

// CategoryGroup is the semantic group of an expense category.
type CategoryGroup int

const (
	Other CategoryGroup = iota
	Essentials
	Lifestyle
	Savings
)

// Tracked category names.
const (
	CategoryGroceries     = "Groceries"
	CategoryRent          = "Rent/Mortgage"
	CategoryUtilities     = "Utilities (Electric/Water)"
	CategoryTransport     = "Transportation (Fuel+Maint+Insur+Instal.)"
	CategoryEducation     = "Education/Tuition"
	CategoryEntertainment = "Entertainment & Subscriptions"
	CategoryDiningOut     = "Dining Out"
	CategoryShopping      = "Shopping/Leisure"
	CategorySavings       = "Savings/Investments"
)

var (
	essentialCategories = []string{
		CategoryGroceries,
		CategoryRent,
		CategoryUtilities,
		CategoryTransport,
		CategoryEducation,
	}
	lifestyleCategories = []string{
		CategoryEntertainment,
		CategoryDiningOut,
		CategoryShopping,
	}

	categoryGroups = func() map[string]CategoryGroup {
		m := make(map[string]CategoryGroup, len(essentialCategories)+len(lifestyleCategories)+1)
		for _, c := range essentialCategories {
			m[c] = Essentials
		}
		for _, c := range lifestyleCategories {
			m[c] = Lifestyle
		}
		m[CategorySavings] = Savings
		return m
	}()
)

func (g CategoryGroup) String() string {
	switch g {
	case Essentials:
		return "essentials"
	case Lifestyle:
		return "lifestyle"
	case Savings:
		return "savings"
	default:
		return "other"
	}
}

// ParseCategoryGroup is the inverse of String. Unknown names yield Other, false.
func ParseCategoryGroup(s string) (CategoryGroup, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "essentials":
		return Essentials, true
	case "lifestyle":
		return Lifestyle, true
	case "savings":
		return Savings, true
	case "other":
		return Other, true
	}
	return Other, false
}

// GroupOf classifies a category name. Names are matched exactly.
func GroupOf(category string) CategoryGroup {
	return categoryGroups[category]
}

// EssentialCategories returns the essentials in presentation order.
func EssentialCategories() []string {
	return append([]string(nil), essentialCategories...)
}

// LifestyleCategories returns the lifestyle categories in presentation order.
func LifestyleCategories() []string {
	return append([]string(nil), lifestyleCategories...)
}

// SplitExpenses partitions expenses by group. The four results are disjoint and
// their union is the input; amounts are not touched.
func SplitExpenses(ex Expenses) (essentials, lifestyle, savings, other Expenses) {
	essentials, lifestyle, savings, other = Expenses{}, Expenses{}, Expenses{}, Expenses{}
	for cat, amt := range ex {
		switch GroupOf(cat) {
		case Essentials:
			essentials[cat] = amt
		case Lifestyle:
			lifestyle[cat] = amt
		case Savings:
			savings[cat] = amt
		default:
			other[cat] = amt
		}
	}
	return essentials, lifestyle, savings, other
}

// Filter selects which groups a dashboard view shows. Other is always shown.
type Filter struct {
	Essentials bool
	Lifestyle  bool
	Savings    bool
}

// ShowAll is the default dashboard filter.
func ShowAll() Filter {
	return Filter{Essentials: true, Lifestyle: true, Savings: true}
}

// Apply returns the expenses visible under the filter.
func (f Filter) Apply(ex Expenses) Expenses {
	ess, life, sav, other := SplitExpenses(ex)
	out := Expenses{}
	merge := func(src Expenses) {
		for k, v := range src {
			out[k] = v
		}
	}
	if f.Essentials {
		merge(ess)
	}
	if f.Lifestyle {
		merge(life)
	}
	if f.Savings {
		merge(sav)
	}
	merge(other)
	return out
}
