// Package export pushes transaction data to Google Sheets for people who
// want their history in a spreadsheet.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"bilancio/internal/core"
)

// SheetsExporter appends transaction rows to one sheet of a spreadsheet.
type SheetsExporter struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// Config selects the target spreadsheet and the service account credentials.
// Exactly one of CredentialsFile or CredentialsJSON must be set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// NewSheetsExporter builds a Sheets client from service account credentials.
func NewSheetsExporter(ctx context.Context, cfg Config) (*SheetsExporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	if cfg.SheetName == "" {
		return nil, fmt.Errorf("sheet name is required")
	}

	credentials := []byte(cfg.CredentialsJSON)
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentials = data
	}
	if len(credentials) == 0 {
		return nil, fmt.Errorf("no Google credentials configured")
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credentials))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsExporter{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
	}, nil
}

// ExportTransactions appends one row per transaction to the configured sheet
// and returns the number of rows written.
func (e *SheetsExporter) ExportTransactions(ctx context.Context, transactions []core.Transaction, categories []core.Category) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	categoryNames := make(map[int64]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	rows := make([][]interface{}, 0, len(transactions))
	for _, t := range transactions {
		categoryName := ""
		if t.CategoryID != nil {
			categoryName = categoryNames[*t.CategoryID]
		}
		rows = append(rows, []interface{}{
			t.Date.String(),
			t.Description,
			string(t.Type),
			t.Amount.String(),
			categoryName,
		})
	}

	valueRange := &sheets.ValueRange{Values: rows}
	writeRange := fmt.Sprintf("%s!A:E", e.sheetName)

	resp, err := e.service.Spreadsheets.Values.
		Append(e.spreadsheetID, writeRange, valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("append to sheet: %w", err)
	}

	written := 0
	if resp.Updates != nil {
		written = int(resp.Updates.UpdatedRows)
	}

	slog.InfoContext(ctx, "Exported transactions to Google Sheets",
		"rows", written,
		"spreadsheet_id", e.spreadsheetID,
		"sheet", e.sheetName)
	return written, nil
}
