package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"dreams/internal/core"
	applog "dreams/internal/log"
	ports "dreams/internal/sheets"
)

const lastColumn = "L"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *applog.Logger
}

// Ensure interface conformance
var (
	_ ports.DreamRowWriter = (*Client)(nil)
	_ ports.HeaderWriter   = (*Client)(nil)
)

// Config selects the target sheet and the service account used to write it.
// CredentialsJSON wins over CredentialsFile; with neither set,
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with service account credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	creds, err := loadCredentials(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions creates a client from explicit API options, such as a custom
// endpoint and HTTP client.
func NewWithOptions(ctx context.Context, cfg Config, logger *applog.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Dreams"
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		logger:        logger.WithComponent(applog.ComponentSheets),
	}, nil
}

func loadCredentials(ctx context.Context, cfg Config, logger *applog.Logger) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		if logger != nil {
			logger.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		}
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendDream adds a row describing the current state of a dream.
func (c *Client) AppendDream(ctx context.Context, event string, r core.DreamRecord, at time.Time) (string, error) {
	return c.append(ctx, ports.DreamRow(event, r, at))
}

// AppendTombstone adds a row marking a dream as deleted.
func (c *Client) AppendTombstone(ctx context.Context, t ports.Tombstone, at time.Time) (string, error) {
	return c.append(ctx, ports.TombstoneRow(t, at))
}

func (c *Client) append(ctx context.Context, row []any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:%s", c.quotedSheet(), lastColumn)
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", classify(fmt.Errorf("append to %s: %w", c.sheetName, err))
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Row appended", "range", ref)
	return ref, nil
}

// EnsureHeader writes the column titles when the first row of the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A1:%s1", c.quotedSheet(), lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("read %s: %w", rng, err))
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{ports.Header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return classify(fmt.Errorf("write header %s: %w", rng, err))
	}
	c.logger.InfoContext(ctx, "Export sheet header written", "sheet", c.sheetName)
	return nil
}

// quotedSheet quotes the sheet name for A1 notation.
func (c *Client) quotedSheet() string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'"
}

// classify marks client errors other than throttling as permanent.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		permanent := gerr.Code >= 400 && gerr.Code < 500 &&
			gerr.Code != http.StatusTooManyRequests && gerr.Code != http.StatusRequestTimeout
		return &ports.ExportError{Permanent: permanent, Err: err}
	}
	return &ports.ExportError{Err: err}
}
