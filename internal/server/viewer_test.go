package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeSummary struct {
	table [][]string
	err   error
	reads int
}

func (f *fakeSummary) ReadAll(ctx context.Context, tab string) ([][]string, error) {
	f.reads++
	return f.table, f.err
}

var summaryTable = [][]string{
	{"닉네임", "현재 팬 수", "이번달 팬수"},
	{"StarKnight", "120,000,000", "5,000,000"},
	{"Moon", "90000000", "12000000"},
	{"starlet", "1000", "oops"},
}

func newTestViewer(src *fakeSummary) *Viewer {
	gin.SetMode(gin.TestMode)
	return NewViewer(src, "1.메인_요약", 10_000_000, 10*time.Minute, quietLogger())
}

func get(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s: decode %q: %v", path, rec.Body.String(), err)
	}
	return rec.Code, body
}

func TestMemberLookup(t *testing.T) {
	router := newTestViewer(&fakeSummary{table: summaryTable}).Router()

	code, body := get(t, router, "/api/members?q=STAR")
	if code != http.StatusOK {
		t.Fatalf("code = %d body %v", code, body)
	}
	if body["nickname"] != "StarKnight" || body["current_display"] != "120,000,000" || body["month_display"] != "+5,000,000" {
		t.Fatalf("body = %v", body)
	}
	progress := body["progress"].(map[string]any)
	if progress["percent"] != 50.0 || progress["done"] != false || progress["shortfall"] != 5_000_000.0 {
		t.Fatalf("progress = %v", progress)
	}

	code, body = get(t, router, "/api/members?q=moon")
	if code != http.StatusOK || body["progress"].(map[string]any)["done"] != true {
		t.Fatalf("moon: %d %v", code, body)
	}

	tests := []struct {
		path string
		code int
	}{
		{"/api/members", http.StatusBadRequest},
		{"/api/members?q=nobody", http.StatusNotFound},
		{"/health", http.StatusOK},
	}
	for _, tt := range tests {
		if code, body := get(t, router, tt.path); code != tt.code {
			t.Errorf("%s: code = %d body %v", tt.path, code, body)
		}
	}
}

func TestRanking(t *testing.T) {
	router := newTestViewer(&fakeSummary{table: summaryTable}).Router()

	tests := []struct {
		path  string
		first string
		items int
	}{
		{"/api/ranking", "Moon", 3},
		{"/api/ranking?by=month", "Moon", 3},
		{"/api/ranking?by=total", "StarKnight", 3},
		{"/api/ranking?by=total&limit=1", "StarKnight", 1},
	}
	for _, tt := range tests {
		code, body := get(t, router, tt.path)
		if code != http.StatusOK {
			t.Fatalf("%s: code = %d", tt.path, code)
		}
		items := body["items"].([]any)
		if len(items) != tt.items || items[0].(map[string]any)["nickname"] != tt.first {
			t.Errorf("%s: items = %v", tt.path, items)
		}
	}

	if code, _ := get(t, router, "/api/ranking?by=year"); code != http.StatusBadRequest {
		t.Fatalf("bad by: code = %d", code)
	}
}

func TestSummaryCache(t *testing.T) {
	src := &fakeSummary{table: summaryTable}
	v := newTestViewer(src)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }
	router := v.Router()

	get(t, router, "/api/ranking")
	get(t, router, "/api/members?q=moon")
	if src.reads != 1 {
		t.Fatalf("reads = %d, want 1", src.reads)
	}
	now = now.Add(11 * time.Minute)
	get(t, router, "/api/ranking")
	if src.reads != 2 {
		t.Fatalf("reads after ttl = %d, want 2", src.reads)
	}
}

func TestSummaryUnavailable(t *testing.T) {
	src := &fakeSummary{err: errors.New("sheet offline")}
	router := newTestViewer(src).Router()

	if code, body := get(t, router, "/api/ranking"); code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d body %v", code, body)
	}
	src.err, src.table = nil, summaryTable
	if code, _ := get(t, router, "/api/ranking"); code != http.StatusOK {
		t.Fatalf("failed read was cached: code = %d", code)
	}

	empty := newTestViewer(&fakeSummary{table: [][]string{{"닉네임"}}}).Router()
	if code, _ := get(t, empty, "/api/members?q=a"); code != http.StatusServiceUnavailable {
		t.Fatalf("empty summary: code = %d", code)
	}
}
