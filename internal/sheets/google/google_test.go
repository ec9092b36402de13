package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"profitcalc/internal/export"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := loadCredentials(Config{CredentialsFile: path})
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("file credentials: %q, %v", got, err)
	}

	got, err = loadCredentials(Config{CredentialsJSON: "inline", CredentialsFile: path})
	if err != nil || string(got) != "inline" {
		t.Fatalf("inline JSON should win: %q, %v", got, err)
	}

	if _, err := loadCredentials(Config{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatalf("expected error for unreadable file")
	}
}

func TestSheetTitle(t *testing.T) {
	tests := []struct {
		prefix, owner, want string
	}{
		{"Calc", "alice", "Calc alice"},
		{"Calc", "a/b:c[d]?*", "Calc a_b_c_d___"},
		{"Calc", "o'neil", "Calc o_neil"},
	}
	for _, tt := range tests {
		if got := sheetTitle(tt.prefix, tt.owner); got != tt.want {
			t.Errorf("sheetTitle(%q, %q) = %q, want %q", tt.prefix, tt.owner, got, tt.want)
		}
	}

	long := sheetTitle("Calc", strings.Repeat("é", 300))
	if n := len([]rune(long)); n != maxTitleLength {
		t.Errorf("long title has %d runes, want %d", n, maxTitleLength)
	}
}

func TestToValues(t *testing.T) {
	table := export.Table{
		{export.Text("Royalty"), export.Num(10), export.Num(1000)},
		nil,
		{export.Text("Labor"), {}, export.Num(3466.4)},
	}
	got := toValues(table)
	if len(got) != 3 || len(got[1]) != 0 {
		t.Fatalf("unexpected shape: %v", got)
	}
	if got[0][1] != 10.0 || got[2][1] != "" || got[2][2] != 3466.4 {
		t.Fatalf("unexpected values: %v", got)
	}
}

// fakeSheets records the calls WriteTable makes against the Sheets REST API.
type fakeSheets struct {
	mu      sync.Mutex
	tabs    []string
	added   []string
	cleared []string
	updated map[string][][]any
	gets    int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/v4/spreadsheets/sheet-id"):
		f.gets++
		var sheets []map[string]any
		for _, title := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id", "sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.added = append(f.added, rq.AddSheet.Properties.Title)
				f.tabs = append(f.tabs, rq.AddSheet.Properties.Title)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.cleared = append(f.cleared, rangeFromPath(path, ":clear"))
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		var vr gsheet.ValueRange
		json.Unmarshal(body, &vr)
		f.updated[rangeFromPath(path, "")] = vr.Values
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	default:
		http.Error(w, `{"error":{"code":404,"message":"unexpected call"}}`, http.StatusNotFound)
	}
}

func rangeFromPath(path, suffix string) string {
	i := strings.Index(path, "/values/")
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(path[i+len("/values/"):], suffix)
}

func newFakeClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithHTTPClient(srv.Client()),
		goption.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, Config{SpreadsheetID: "sheet-id"})
}

func TestWriteTableCreatesTabAndReplacesValues(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Sheet1"}, updated: map[string][][]any{}}
	c := newFakeClient(t, fake)

	table := export.Table{
		{export.Text("Client Name"), export.Text("Acme")},
		{export.Text("Contract Billing"), export.Num(10000)},
	}
	ctx := context.Background()
	if err := c.WriteTable(ctx, "alice", table); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if err := c.WriteTable(ctx, "alice", table); err != nil {
		t.Fatalf("second WriteTable: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()

	if len(fake.added) != 1 || fake.added[0] != "Calc alice" {
		t.Fatalf("added tabs = %v", fake.added)
	}
	if fake.gets != 1 {
		t.Fatalf("spreadsheet read %d times, want 1 (tab cached)", fake.gets)
	}
	if len(fake.cleared) != 2 || fake.cleared[0] != "'Calc alice'!A:Z" {
		t.Fatalf("cleared ranges = %v", fake.cleared)
	}
	vals, ok := fake.updated["'Calc alice'!A1"]
	if !ok || len(vals) != 2 || vals[0][1] != "Acme" || vals[1][1] != 10000.0 {
		t.Fatalf("updated values = %v", fake.updated)
	}
}

func TestWriteTableUninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "x", knownTabs: map[string]bool{}}
	if err := c.WriteTable(context.Background(), "alice", nil); err == nil {
		t.Fatalf("expected error without service")
	}
}
