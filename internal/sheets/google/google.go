// Package google reads the transactions spreadsheet directly with the
// Sheets API. It is read-only: options and entries come from the sheet,
// submissions still go through the finance service.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"finform/internal/core"
	ports "finform/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab holding one transaction per row.
const DefaultSheetName = "Transactions"

var (
	_ ports.OptionSource = (*Client)(nil)
	_ ports.EntryLister  = (*Client)(nil)
	_ ports.Pinger       = (*Client)(nil)
)

// Config locates the spreadsheet and its credentials.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client reads rows from one tab of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// New creates a client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = DefaultSheetName
	}
	creds, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", id, "sheet", name)
	return NewWithService(svc, id, name), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// loadCredentials prefers inline JSON, then the file, then
// GOOGLE_APPLICATION_CREDENTIALS.
func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// RawOptions returns the values found in each categorical column, keyed by
// source key. Cleanup is left to the option loader.
func (c *Client) RawOptions(ctx context.Context) (map[string][]string, error) {
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return columnOptions(values), nil
}

// ListEntries returns every data row keyed by header.
func (c *Client) ListEntries(ctx context.Context) ([]core.EntryRow, error) {
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return rowsFromValues(values), nil
}

// Ping checks the spreadsheet can be opened.
func (c *Client) Ping(ctx context.Context) error {
	if c.svc == nil {
		return ports.ErrNotConfigured
	}
	if _, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do(); err != nil {
		return fmt.Errorf("open spreadsheet: %w", err)
	}
	return nil
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	if c.svc == nil {
		return nil, ports.ErrNotConfigured
	}
	rng := quoteSheet(c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// quoteSheet turns a tab name into an A1 range covering the whole tab.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
