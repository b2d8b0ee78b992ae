// Package sheets mirrors budget reports into a Google spreadsheet, one tab per user.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"smartbudget/internal/core"
	"smartbudget/internal/export"
)

var ErrMissingCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
}

// NewFromEnv creates a client for spreadsheetID authenticated with a service account.
func NewFromEnv(ctx context.Context, spreadsheetID, prefix string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, prefix: prefix}, nil
}

func credentialsFromEnv() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, ErrMissingCredentials
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// SheetName is the tab a user's report is written to.
func (c *Client) SheetName(userID int64) string {
	return SheetName(c.prefix, userID)
}

func SheetName(prefix string, userID int64) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return fmt.Sprintf("%d", userID)
	}
	return fmt.Sprintf("%s %d", prefix, userID)
}

// ExportBudget replaces the content of the user's tab with the current report.
func (c *Client) ExportBudget(ctx context.Context, userID int64, b core.Budget) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet := c.SheetName(userID)
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	rng := fmt.Sprintf("'%s'!A:B", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", sheet, err)
	}

	vr := &gsheet.ValueRange{Values: Values(b)}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("'%s'!A1", sheet), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update sheet %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Budget exported to Google Sheets",
		"user_id", userID,
		"sheet", sheet,
		"rows", len(vr.Values))
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, name string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return nil
		}
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	return nil
}

// Values renders the export table followed by the recommendations.
// Every budget category is exported; the sheet is not a filtered view.
func Values(b core.Budget) [][]interface{} {
	rows := export.Rows(b, core.ShowAll())
	out := make([][]interface{}, 0, len(rows)+8)
	for _, r := range rows {
		out = append(out, []interface{}{r[0], r[1]})
	}
	out = append(out, []interface{}{"", ""}, []interface{}{"Recommendations", ""})
	for _, rec := range b.Recommendations() {
		out = append(out, []interface{}{rec, ""})
	}
	return out
}
