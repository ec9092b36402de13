package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"profitcalc/internal/export"
	ports "profitcalc/internal/sheets"
)

const (
	defaultTabPrefix = "Calc"
	maxTitleLength   = 100
	clearRange       = "A:Z"
)

var _ ports.ReportWriter = (*Client)(nil)

// Config selects the spreadsheet and the credentials used to write it:
// a service account, or an OAuth client plus a user token when either
// OAuthClient field is set.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	TabPrefix       string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

// Client writes each owner's export table to its own tab.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabPrefix     string

	mu        sync.Mutex
	knownTabs map[string]bool
}

// NewFromEnv builds a Config from GOOGLE_SPREADSHEET_ID,
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE (falling back to
// GOOGLE_APPLICATION_CREDENTIALS), GOOGLE_SHEET_TAB_PREFIX and the
// GOOGLE_OAUTH_CLIENT_* / GOOGLE_OAUTH_TOKEN_* pairs.
func NewFromEnv(ctx context.Context) (*Client, error) {
	cfg := Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
		TabPrefix:       strings.TrimSpace(os.Getenv("GOOGLE_SHEET_TAB_PREFIX")),
		OAuthClientJSON: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")),
		OAuthClientFile: strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")),
		OAuthTokenJSON:  strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_JSON")),
		OAuthTokenFile:  strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")),
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
		cfg.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return New(ctx, cfg)
}

// New creates a client authenticated with the configured credentials.
// Extra options are appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var auth []goption.ClientOption
	if cfg.usesOAuth() {
		opt, err := oauthOption(ctx, cfg)
		if err != nil {
			return nil, err
		}
		auth = []goption.ClientOption{opt}
	} else {
		credentials, err := loadCredentials(cfg)
		if err != nil {
			return nil, err
		}
		auth = []goption.ClientOption{
			goption.WithCredentialsJSON(credentials),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	all := append(auth, opts...)
	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID, "oauth", cfg.usesOAuth())
	return newClient(svc, cfg), nil
}

// NewWithService wraps an existing service. Used by tests.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	return newClient(svc, cfg)
}

func newClient(svc *gsheet.Service, cfg Config) *Client {
	prefix := cfg.TabPrefix
	if prefix == "" {
		prefix = defaultTabPrefix
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		tabPrefix:     prefix,
		knownTabs:     make(map[string]bool),
	}
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case cfg.CredentialsJSON != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteTable replaces the owner's tab with t, creating the tab if needed.
func (c *Client) WriteTable(ctx context.Context, owner string, t export.Table) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	title := sheetTitle(c.tabPrefix, owner)
	if err := c.ensureTab(ctx, title); err != nil {
		return err
	}

	rng := quoteTitle(title) + "!" + clearRange
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		c.forgetTab(title)
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	target := quoteTitle(title) + "!A1"
	vr := &gsheet.ValueRange{Values: toValues(t)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", target, err)
	}
	return nil
}

func (c *Client) ensureTab(ctx context.Context, title string) error {
	c.mu.Lock()
	known := c.knownTabs[title]
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			c.rememberTab(title)
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	slog.InfoContext(ctx, "Created report tab", "sheet", title)
	c.rememberTab(title)
	return nil
}

func (c *Client) rememberTab(title string) {
	c.mu.Lock()
	c.knownTabs[title] = true
	c.mu.Unlock()
}

func (c *Client) forgetTab(title string) {
	c.mu.Lock()
	delete(c.knownTabs, title)
	c.mu.Unlock()
}

// sheetTitle builds a tab name from prefix and owner. Characters Sheets
// rejects in titles are replaced and the result is capped in length.
func sheetTitle(prefix, owner string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', '/', '\\', ':', '\'':
			return '_'
		}
		return r
	}, owner)
	title := prefix + " " + clean
	for utf8.RuneCountInString(title) > maxTitleLength {
		_, size := utf8.DecodeLastRuneInString(title)
		title = title[:len(title)-size]
	}
	return title
}

// quoteTitle wraps a tab title for use in A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toValues(t export.Table) [][]any {
	out := make([][]any, len(t))
	for i, row := range t {
		vals := make([]any, len(row))
		for j, c := range row {
			if c.IsNumber {
				vals[j] = c.Number
			} else {
				vals[j] = c.Text
			}
		}
		out[i] = vals
	}
	return out
}
