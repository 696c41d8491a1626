package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finsight/internal/core"
	"finsight/internal/sheets"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Finsight", 2025, "2025 Finsight"},
		{"Dashboard", 2024, "2024 Dashboard"},
		{"", 2023, ""},
		{"Test Sheet", 2022, "2022 Test Sheet"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("2025 Bob's"); got != "'2025 Bob''s'" {
		t.Errorf("quoteSheet() = %q", got)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "", nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv(EnvOAuthTokenFile, "")

	_, err := New(context.Background(), "sheet-id", "", nil)
	if err == nil || !strings.Contains(err.Error(), "missing credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExport_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.Export(context.Background(), sheets.Report{}); err == nil {
		t.Fatal("expected error for uninitialized service")
	}
}

type sheetsFake struct {
	mu       sync.Mutex
	header   bool
	requests []string
	appended [][]any
}

func (f *sheetsFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		if f.header {
			io.WriteString(w, `{"range":"A1:H1","values":[["Exported At"]]}`)
			return
		}
		io.WriteString(w, `{"range":"A1:H1"}`)
	case r.Method == http.MethodPut:
		f.header = true
		io.WriteString(w, `{"updatedRows":1}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		f.appended = append(f.appended, vr.Values...)
		io.WriteString(w, `{"updates":{"updatedRange":"'2025 Finsight'!A2:H7"}}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *sheetsFake) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "", nil)
}

func TestExport(t *testing.T) {
	fake := &sheetsFake{}
	c := newTestClient(t, fake)

	report := sheets.Report{
		Username:    "abc",
		GeneratedAt: time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC),
		Summary:     core.Summary{TotalIncome: core.FromUnits(100)},
		Categories:  []core.CategoryAggregate{{Category: "Food", Total: core.FromUnits(40), Percentage: 100}},
	}

	ref, err := c.Export(context.Background(), report)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ref != "'2025 Finsight'!A2:H7" {
		t.Errorf("Export() ref = %q", ref)
	}
	if len(fake.appended) != 5 {
		t.Fatalf("expected 5 appended rows, got %d", len(fake.appended))
	}
	if !fake.header {
		t.Error("header should be written on first export")
	}

	if _, err := c.Export(context.Background(), report); err != nil {
		t.Fatalf("second Export() error = %v", err)
	}
	puts := 0
	for _, r := range fake.requests {
		if strings.HasPrefix(r, http.MethodPut) {
			puts++
		}
	}
	if puts != 1 {
		t.Errorf("header should be written once, got %d writes", puts)
	}
}
