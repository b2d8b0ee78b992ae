package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"smartbudget/internal/core"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromEnv(context.Background(), "  ", "Budget")
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background(), "sheet-id", "Budget")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestNewFromEnv_UnreadableFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+"/missing.json")

	if _, err := NewFromEnv(context.Background(), "sheet-id", "Budget"); err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		prefix string
		id     int64
		want   string
	}{
		{"Budget", 7, "Budget 7"},
		{" Budget ", 7, "Budget 7"},
		{"", 12, "12"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.prefix, tt.id); got != tt.want {
			t.Errorf("SheetName(%q, %d) = %q, want %q", tt.prefix, tt.id, got, tt.want)
		}
	}
	c := &Client{prefix: "Budget"}
	if c.SheetName(3) != "Budget 3" {
		t.Errorf("Client.SheetName = %q", c.SheetName(3))
	}
}

func TestExportBudget_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if err := c.ExportBudget(context.Background(), 1, core.Budget{}); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestValues(t *testing.T) {
	b := core.Budget{
		Income:   core.Income{"Salary": decimal.NewFromInt(1000)},
		Expenses: core.Expenses{core.CategoryRent: decimal.NewFromInt(500)},
	}
	vals := Values(b)
	if vals[0][0] != "Category" || vals[0][1] != "Amount" {
		t.Fatalf("header = %v", vals[0])
	}
	var sawRent, sawRecs bool
	for i, row := range vals {
		if row[0] == core.CategoryRent && row[1] == "500.00" {
			sawRent = true
		}
		if row[0] == "Recommendations" {
			sawRecs = true
			if i == len(vals)-1 {
				t.Fatal("no recommendations after heading")
			}
		}
	}
	if !sawRent || !sawRecs {
		t.Fatalf("values = %v", vals)
	}
}
