package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/loglens/loglens/internal/alerts"
	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/store"
	"github.com/loglens/loglens/pkg/types"
)

// newTestHandler builds a Handler over a fresh SQLite store with no change
// publisher and no webhook notifier.
func newTestHandler(t *testing.T) (*Handler, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	rec := ingest.New(st, nil)
	eval := alerts.NewEvaluator(st, st, "", nil)
	return New(st, rec, eval, nil), st
}

// do performs a request against the handler and decodes the JSON reply into
// a generic map.
func do(t *testing.T, h http.Handler, method, target string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w.Code, out
}

func TestCreateAndListLogs(t *testing.T) {
	h, _ := newTestHandler(t)

	code, resp := do(t, h, http.MethodPost, "/api/logs", map[string]any{
		"endpoint":         "/cart",
		"http_method":      "POST",
		"status_code":      200,
		"response_time_ms": 250,
	})
	if code != http.StatusCreated {
		t.Fatalf("POST /api/logs: got %d, want 201", code)
	}
	if resp["success"] != true {
		t.Errorf("success flag: got %v", resp["success"])
	}
	data := resp["data"].(map[string]any)
	if data["id"].(float64) != 1 {
		t.Errorf("assigned id: got %v, want 1", data["id"])
	}
	if data["timestamp"] == nil {
		t.Error("missing timestamp stamp on ingest")
	}

	code, resp = do(t, h, http.MethodGet, "/api/logs", nil)
	if code != http.StatusOK {
		t.Fatalf("GET /api/logs: got %d", code)
	}
	if resp["count"].(float64) != 1 {
		t.Errorf("count: got %v, want 1", resp["count"])
	}
}

func TestListLogsByEndpoint(t *testing.T) {
	h, st := newTestHandler(t)
	now := time.Now().UTC()
	for _, ep := range []string{"cart", "checkout", "cart"} {
		if _, err := st.InsertRaw(&types.RawLogRecord{Timestamp: now, Endpoint: ep, StatusCode: 200}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	code, resp := do(t, h, http.MethodGet, "/api/logs/endpoint/cart", nil)
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if resp["count"].(float64) != 2 {
		t.Errorf("count: got %v, want 2", resp["count"])
	}
}

func TestLogsByDateRange_BadDate(t *testing.T) {
	h, _ := newTestHandler(t)

	code, resp := do(t, h, http.MethodGet, "/api/logs/daterange?startDate=notadate&endDate=2024-05-10", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", code)
	}
	if resp["success"] != false {
		t.Errorf("success flag: got %v, want false", resp["success"])
	}
}

func TestLogsLastHour_WindowFilter(t *testing.T) {
	h, st := newTestHandler(t)
	now := time.Now().UTC()

	// Inside the 30-minute window, including one from yesterday at the same
	// clock time minus 10 minutes. The 2-hour-old record is outside.
	in := []time.Time{now.Add(-5 * time.Minute), now.Add(-24*time.Hour - 10*time.Minute)}
	out := []time.Time{now.Add(-2 * time.Hour)}
	for _, ts := range append(in, out...) {
		if _, err := st.InsertRaw(&types.RawLogRecord{Timestamp: ts, Endpoint: "/cart", StatusCode: 200}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	code, resp := do(t, h, http.MethodGet, "/api/logs/lasthour?window=30", nil)
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if resp["count"].(float64) != 2 {
		t.Errorf("windowed count: got %v, want 2", resp["count"])
	}
	if resp["nowUTC"] == nil || resp["nowUTC"] == "" {
		t.Error("missing nowUTC reference stamp")
	}
}

func TestParsedLogs_Pagination(t *testing.T) {
	h, st := newTestHandler(t)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		rec := &types.DerivedRecord{Timestamp: now.Add(time.Duration(-i) * time.Minute), StatusCode: 200}
		if _, err := st.InsertDerived(rec); err != nil {
			t.Fatalf("insert derived: %v", err)
		}
	}

	code, resp := do(t, h, http.MethodGet, "/api/parsed-logs?page=2&limit=2", nil)
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if resp["count"].(float64) != 2 {
		t.Errorf("count: got %v, want 2", resp["count"])
	}
	if resp["total"].(float64) != 5 {
		t.Errorf("total: got %v, want 5", resp["total"])
	}
	if resp["pages"].(float64) != 3 {
		t.Errorf("pages: got %v, want 3", resp["pages"])
	}
	if resp["currentPage"].(float64) != 2 {
		t.Errorf("currentPage: got %v, want 2", resp["currentPage"])
	}
}

func TestErrorThreshold_Gating(t *testing.T) {
	h, st := newTestHandler(t)
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		rec := &types.DerivedRecord{Timestamp: now.Add(-time.Minute), StatusCode: 500}
		if _, err := st.InsertDerived(rec); err != nil {
			t.Fatalf("insert derived: %v", err)
		}
	}

	// errorCount == threshold: gate stays closed.
	code, resp := do(t, h, http.MethodGet, "/api/parsed-logs/error-threshold?window=60&threshold=3", nil)
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if resp["errorCount"].(float64) != 3 {
		t.Errorf("errorCount: got %v, want 3", resp["errorCount"])
	}
	if resp["reportedErrorCount"].(float64) != 0 {
		t.Errorf("reportedErrorCount at equality: got %v, want 0", resp["reportedErrorCount"])
	}

	// errorCount > threshold: gate opens.
	_, resp = do(t, h, http.MethodGet, "/api/parsed-logs/error-threshold?window=60&threshold=2", nil)
	if resp["reportedErrorCount"].(float64) != 3 {
		t.Errorf("reportedErrorCount above threshold: got %v, want 3", resp["reportedErrorCount"])
	}
}

func TestThreshold_SetAndGet(t *testing.T) {
	h, _ := newTestHandler(t)

	// Non-numeric value is rejected.
	code, resp := do(t, h, http.MethodPost, "/api/parsed-logs/threshold", map[string]any{
		"name": "error_threshold", "value": "lots",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("bad value status: got %d, want 400", code)
	}
	if resp["error"] != "value must be a number" {
		t.Errorf("error message: got %v", resp["error"])
	}

	code, _ = do(t, h, http.MethodPost, "/api/parsed-logs/threshold", map[string]any{"value": 42})
	if code != http.StatusOK {
		t.Fatalf("set status: got %d", code)
	}

	_, resp = do(t, h, http.MethodGet, "/api/parsed-logs/threshold", nil)
	data := resp["data"].(map[string]any)
	if data["name"] != "error_threshold" {
		t.Errorf("name: got %v", data["name"])
	}
	if data["value"].(float64) != 42 {
		t.Errorf("value: got %v, want 42", data["value"])
	}
}

func TestThreshold_GetMissingReturnsNull(t *testing.T) {
	h, _ := newTestHandler(t)

	code, resp := do(t, h, http.MethodGet, "/api/parsed-logs/threshold?name=latency_threshold", nil)
	if code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", code)
	}
	data := resp["data"].(map[string]any)
	if data["name"] != "latency_threshold" {
		t.Errorf("name: got %v", data["name"])
	}
	if data["value"] != nil {
		t.Errorf("value for unset threshold: got %v, want null", data["value"])
	}
}

func TestCheckSQLInjection(t *testing.T) {
	h, _ := newTestHandler(t)

	code, _ := do(t, h, http.MethodGet, "/api/parsed-logs/check-sql-injection", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("missing query status: got %d, want 400", code)
	}

	_, resp := do(t, h, http.MethodGet,
		"/api/parsed-logs/check-sql-injection?query="+"%27%20or%20%271%27%3D%271", nil)
	if resp["hasSqlInjection"] != true {
		t.Errorf("hasSqlInjection for tautology payload: got %v", resp["hasSqlInjection"])
	}

	_, resp = do(t, h, http.MethodGet, "/api/parsed-logs/check-sql-injection?query=hello", nil)
	if resp["hasSqlInjection"] != false {
		t.Errorf("hasSqlInjection for benign input: got %v", resp["hasSqlInjection"])
	}
}

func TestCartSimulator(t *testing.T) {
	h, st := newTestHandler(t)

	code, resp := do(t, h, http.MethodPost, "/api/cart/fast", nil)
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if resp["success"] != true {
		t.Errorf("success flag: got %v", resp["success"])
	}
	rt := resp["responseTime"].(float64)
	if rt < 0 || rt > 99 {
		t.Errorf("fast tier responseTime: got %v, want 0..99", rt)
	}

	recs, err := st.ListRaw()
	if err != nil {
		t.Fatalf("list raw: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("persisted records: got %d, want 1", len(recs))
	}
	if recs[0].Endpoint != "/cart" || recs[0].ServiceName != "fast" {
		t.Errorf("persisted record: %+v", recs[0])
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)

	code, resp := do(t, h, http.MethodGet, "/api/health", nil)
	if code != http.StatusOK {
		t.Fatalf("status: got %d", code)
	}
	if resp["status"] != "ok" || resp["storage"] != "ok" {
		t.Errorf("health body: %v", resp)
	}
	if resp["watcher"] != "disabled" {
		t.Errorf("watcher state with no watcher wired: got %v", resp["watcher"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/logs", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/logs: got %d, want 405", w.Code)
	}
}
