// This file implements utilities for parsing and validating request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
)

const maxBodyBytes = 1 << 20

var (
	ErrMalformedBody = errors.New("malformed JSON body")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrDuplicateName = errors.New("duplicate name")
)

// maxAmountExponent bounds the expansion of exponent-form JSON numbers.
const maxAmountExponent = 64

// AmountInput accepts an amount as a JSON string ("1 500,50", "R1,500.50")
// or a bare JSON number.
type AmountInput string

func (a *AmountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number")
	}
	// Exponent forms like 1.5E2 are valid JSON numbers; expand them to plain
	// decimals before ParseAmount sees them.
	d, err := decimal.NewFromString(n.String())
	if err != nil || d.Exponent() > maxAmountExponent || d.Exponent() < -maxAmountExponent {
		return fmt.Errorf("amount %s is out of range", n.String())
	}
	*a = AmountInput(d.String())
	return nil
}

// Decimal parses the amount with core.ParseAmount.
func (a AmountInput) Decimal() (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

// decodeJSON reads exactly one JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", ErrMalformedBody)
	}
	return nil
}

// parseAmounts cleans names and parses amounts of an income or expense map.
// kind names the map in error messages.
func parseAmounts(kind string, raw map[string]AmountInput) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(raw))
	for name, amt := range raw {
		clean := sanitizeInput(name)
		if clean == "" {
			return nil, fmt.Errorf("%s: name cannot be empty", kind)
		}
		if _, dup := out[clean]; dup {
			return nil, fmt.Errorf("%s %q: %w", kind, clean, ErrDuplicateName)
		}
		d, err := amt.Decimal()
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, clean, err)
		}
		out[clean] = d
	}
	return out, nil
}

// ParseFilter reads the essentials, lifestyle and savings toggles of a
// dashboard query. A missing toggle means shown.
func ParseFilter(query url.Values) (core.Filter, error) {
	f := core.ShowAll()
	for _, p := range []struct {
		key string
		dst *bool
	}{
		{"essentials", &f.Essentials},
		{"lifestyle", &f.Lifestyle},
		{"savings", &f.Savings},
	} {
		v := strings.TrimSpace(query.Get(p.key))
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return core.Filter{}, fmt.Errorf("invalid %s filter %q: must be true or false", p.key, v)
		}
		*p.dst = b
	}
	return f, nil
}

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
