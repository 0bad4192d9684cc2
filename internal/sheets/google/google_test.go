package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/recap"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
)

// fakeSheets serves the two Values endpoints the client uses.
type fakeSheets struct {
	mu       sync.Mutex
	existing [][]any
	appended [][]any
	ranges   []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		f.ranges = append(f.ranges, r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.existing})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		f.ranges = append(f.ranges, r.URL.Path)
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, body.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-id",
			"updates":       map[string]any{"updatedRange": "'2024 Recap'!A1:G3", "updatedRows": len(body.Values)},
		})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := newWithOptions(context.Background(), Config{SpreadsheetID: "sheet-id", SheetName: "Recap"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func marchRecap() recap.Result {
	res, _ := recap.NewAggregator(recap.DefaultFormat()).Aggregate(recap.Request{
		UserID: "alice",
		Period: recap.Day,
		Start:  core.NewDate(2024, 3, 1),
		End:    core.NewDate(2024, 3, 15),
		Transactions: []core.Transaction{
			{ID: 1, Amount: decimal.NewFromInt(10), Date: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)},
			{ID: 2, Amount: decimal.NewFromInt(5), Date: time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)},
		},
	})
	return res
}

func TestAppendRecap_WritesHeaderOnEmptySheet(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)

	ref, err := c.AppendRecap(context.Background(), "alice", marchRecap())
	if err != nil {
		t.Fatal(err)
	}
	if ref != "'2024 Recap'!A1:G3" {
		t.Errorf("ref = %q", ref)
	}
	if len(f.appended) != 3 {
		t.Fatalf("appended %d rows, want header + 2", len(f.appended))
	}
	if f.appended[0][0] != "User" || f.appended[2][2] != "2024-03-06" {
		t.Errorf("unexpected rows %v", f.appended)
	}
	if !strings.Contains(f.ranges[0], "2024 Recap") {
		t.Errorf("sheet name not year-prefixed: %v", f.ranges)
	}
}

func TestAppendRecap_SkipsHeaderWhenPresent(t *testing.T) {
	f := &fakeSheets{existing: [][]any{{"User"}}}
	c := newTestClient(t, f)

	if _, err := c.AppendRecap(context.Background(), "alice", marchRecap()); err != nil {
		t.Fatal(err)
	}
	if len(f.appended) != 2 || f.appended[0][0] != "alice" {
		t.Errorf("unexpected rows %v", f.appended)
	}
}

func TestAppendRecap_EmptyRecapIsNoop(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)

	empty := recap.Result{Status: "success", StartDate: core.NewDate(2024, 3, 1), Data: []recap.Bucket{}}
	if _, err := c.AppendRecap(context.Background(), "alice", empty); err != nil {
		t.Fatal(err)
	}
	if len(f.ranges) != 0 {
		t.Errorf("empty recap should not call the API, got %v", f.ranges)
	}
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Config{SpreadsheetID: "id"}); err == nil || !strings.Contains(err.Error(), "missing service account") {
		t.Errorf("expected missing credentials error, got %v", err)
	}
	if _, err := New(ctx, Config{SpreadsheetID: "id", ServiceAccountFile: filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Error("expected error for unreadable credentials file")
	}
	if _, err := newWithOptions(ctx, Config{}, goption.WithoutAuthentication()); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("expected missing spreadsheet error, got %v", err)
	}
}

func TestLoadCredentials_PrefersInline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := loadCredentials(context.Background(), Config{ServiceAccountJSON: `{"from":"env"}`, ServiceAccountFile: path})
	if err != nil || string(got) != `{"from":"env"}` {
		t.Errorf("loadCredentials() = %s, %v", got, err)
	}
	got, err = loadCredentials(context.Background(), Config{ServiceAccountFile: path})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Errorf("loadCredentials() = %s, %v", got, err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Recap", 2024, "2024 Recap"},
		{"2023 Recap", 2024, "2023 Recap"},
		{"  Recap ", 2025, "2025 Recap"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestQuoteSheet(t *testing.T) {
	if got := quoteSheet("2024 Recap"); got != "'2024 Recap'" {
		t.Errorf("quoteSheet() = %q", got)
	}
	if got := quoteSheet("Recap"); got != "Recap" {
		t.Errorf("quoteSheet() = %q", got)
	}
}
