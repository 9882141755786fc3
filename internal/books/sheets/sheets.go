// Package sheets mirrors recorded expenses into a Google Sheets worksheet.
// The mirror is append only and plays no part in reports, it exists so a
// household can eyeball its books in a spreadsheet.
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

	"housetab/internal/core"
)

const defaultSheetName = "Expenses"

// headerRow is written once to row 1 of the mirror sheet.
var headerRow = []any{"ID", "Date", "Household", "Category", "Amount", "Payer", "Split With", "Notes"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// LoadCredentials resolves service account credentials from an inline JSON
// blob or a file path, preferring the inline blob.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inlineJSON) != "":
		return []byte(inlineJSON), nil
	case strings.TrimSpace(file) != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

func NewClient(ctx context.Context, spreadsheetID, sheetName string, credentialsJSON []byte) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = defaultSheetName
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// EnsureHeader writes the column header when row 1 is still empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A1:H1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheetName, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{headerRow}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Mirror sheet header written", "sheet", c.sheetName)
	return nil
}

// Append mirrors one expense into the next free row and returns the written
// range.
func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// Find the next empty row from the sheet dimensions
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.sheetName, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:H%d", c.sheetName, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{expenseRow(e)}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// expenseRow lays an expense out over columns A:H.
func expenseRow(e core.Expense) []any {
	return []any{
		e.ID,
		e.Date.String(),
		e.Household,
		e.Category,
		e.Amount.String(),
		e.Payer,
		e.SplitWith,
		e.Notes,
	}
}
