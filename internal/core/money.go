// Package core provides money parsing and formatting utilities.
//
// Amounts are carried as decimal.Decimal end to end so that totals and the
// balance stay exact to the stored precision. Rounding only happens when a
// value is parsed from user input or rendered for display.
package core

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every rendered amount.
const CurrencySymbol = "R"

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts user input into a non-negative amount with at most two
// fraction digits.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an optional
// leading currency symbol and thousands separators (spaces, underscores, or
// commas when a dot is also present). Extra fraction digits are rounded half-up.
//
// Examples:
//
//	ParseAmount("12.34")      -> 12.34
//	ParseAmount("12,34")      -> 12.34
//	ParseAmount("R 1 500")    -> 1500
//	ParseAmount("R1,500.50")  -> 1500.5
//	ParseAmount("12.345")     -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, CurrencySymbol)
	s = strings.TrimPrefix(s, strings.ToLower(CurrencySymbol))
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '_' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// FormatRand renders an amount for display, e.g. "R10,000.00" or "-R500.00".
func FormatRand(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	if n, err := strconv.ParseInt(intPart, 10, 64); err == nil {
		intPart = humanize.Comma(n)
	}
	return sign + CurrencySymbol + intPart + "." + frac
}

// FormatPlain renders an amount with two decimals and no grouping, e.g. "R5300.00".
func FormatPlain(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + CurrencySymbol + d.Abs().StringFixed(2)
	}
	return CurrencySymbol + d.StringFixed(2)
}
