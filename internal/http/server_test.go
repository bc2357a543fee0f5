package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"khata/internal/services"
	"khata/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "khata.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	svc := services.NewReceiptService(repo, nil)
	srv := NewServer(":0", svc)
	t.Cleanup(func() {
		srv.cacheManager.Stop()
		srv.rateLimiter.stop()
		svc.Close()
	})
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set("X-Owner", owner)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestMissingOwnerHeader(t *testing.T) {
	srv := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/receipts"},
		{http.MethodPost, "/expenses"},
		{http.MethodGet, "/api/summary"},
		{http.MethodGet, "/api/analysis"},
		{http.MethodPost, "/settings/budget"},
		{http.MethodPost, "/clear"},
	}
	for _, p := range paths {
		rec := doRequest(t, srv, p.method, p.path, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s without X-Owner = %d, want 400", p.method, p.path, rec.Code)
		}
	}
}

func TestProcessReceiptEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/receipts", "a@b.c", map[string]string{
		"text":     "Spice Villa Restaurant\nGrand Total: 2450",
		"filename": "bill.jpg",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /receipts = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	record := body["record"].(map[string]any)
	if record["amount"].(float64) != 2450 {
		t.Errorf("amount = %v, want 2450", record["amount"])
	}
	if record["category"].(string) != "Food" {
		t.Errorf("category = %v, want Food", record["category"])
	}
	assessment := body["assessment"].(map[string]any)
	if assessment["verdict"].(string) != "Unwanted" {
		t.Errorf("verdict = %v, want Unwanted for eating out", assessment["verdict"])
	}
	if body["amount_detected"] != true {
		t.Error("amount_detected should be true")
	}
}

func TestProcessReceiptEmptyText(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/receipts", "a@b.c", map[string]string{"text": "  "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty text = %d, want 422", rec.Code)
	}
}

func TestAddExpenseEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/expenses", "a@b.c", map[string]any{
		"amount":      640,
		"category":    "bills",
		"merchant":    "City Power",
		"occurred_at": "2025-06-05T10:00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /expenses = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	record := body["record"].(map[string]any)
	if record["category"].(string) != "Bills" {
		t.Errorf("category = %v, want Bills", record["category"])
	}
	if record["occurred_at"].(string) != "2025-06-05 10:00" {
		t.Errorf("occurred_at = %v, want parsed timestamp", record["occurred_at"])
	}

	rec = doRequest(t, srv, http.MethodPost, "/expenses", "a@b.c", map[string]any{"amount": 0})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero amount = %d, want 422", rec.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/settings/budget", "a@b.c", map[string]any{
		"monthly_budget": 10000,
	})
	doRequest(t, srv, http.MethodPost, "/expenses", "a@b.c", map[string]any{
		"amount":   500,
		"category": "Food",
	})

	rec := doRequest(t, srv, http.MethodGet, "/api/summary", "a@b.c", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/summary = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["total_spend"].(float64) != 500 {
		t.Errorf("total_spend = %v, want 500", body["total_spend"])
	}
	budget := body["budget"].(map[string]any)
	if budget["percent_used"].(float64) != 5 {
		t.Errorf("percent_used = %v, want 5", budget["percent_used"])
	}

	// The cached summary must not survive a new write.
	doRequest(t, srv, http.MethodPost, "/expenses", "a@b.c", map[string]any{
		"amount":   300,
		"category": "Travel",
	})
	rec = doRequest(t, srv, http.MethodGet, "/api/summary", "a@b.c", nil)
	body = decodeBody(t, rec)
	if body["total_spend"].(float64) != 800 {
		t.Errorf("total_spend after write = %v, want 800 (cache invalidated)", body["total_spend"])
	}
}

func TestCategoryBreakdownEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// Entries months apart; the breakdown is all-time, unlike the summary.
	entries := []map[string]any{
		{"amount": 300, "category": "Food", "occurred_at": "2024-12-25T09:00"},
		{"amount": 500, "category": "Shopping", "occurred_at": "2025-06-10T09:00"},
		{"amount": 100, "category": "Food", "occurred_at": "2025-06-02T09:00"},
	}
	for _, e := range entries {
		doRequest(t, srv, http.MethodPost, "/expenses", "a@b.c", e)
	}

	rec := doRequest(t, srv, http.MethodGet, "/expenses/summary", "a@b.c", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /expenses/summary = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)

	categories := body["categories"].([]any)
	totals := body["totals"].([]any)
	if len(categories) != 2 || len(totals) != 2 {
		t.Fatalf("breakdown = %v / %v, want two parallel entries", categories, totals)
	}
	if categories[0].(string) != "Shopping" || totals[0].(float64) != 500 {
		t.Errorf("first entry = %v %v, want Shopping 500", categories[0], totals[0])
	}
	if categories[1].(string) != "Food" || totals[1].(float64) != 400 {
		t.Errorf("second entry = %v %v, want Food 400 across months", categories[1], totals[1])
	}

	rec = doRequest(t, srv, http.MethodGet, "/expenses/summary", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("GET /expenses/summary without X-Owner = %d, want 400", rec.Code)
	}
}

func TestCacheInvalidationIsScopedToOwner(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	doRequest(t, srv, http.MethodPost, "/expenses", "bob2", map[string]any{
		"amount": 100, "category": "Misc",
	})
	rec := doRequest(t, srv, http.MethodGet, "/api/summary", "bob2", nil)
	if got := decodeBody(t, rec)["total_spend"].(float64); got != 100 {
		t.Fatalf("total_spend = %v, want 100", got)
	}

	// Write behind the cache so a stale hit is observable.
	if _, err := srv.svc.AddManual(ctx, "bob2", services.ManualEntry{Amount: 50, Category: "Misc"}); err != nil {
		t.Fatalf("AddManual: %v", err)
	}

	// A write by "bob" must not touch "bob2" cache entries.
	doRequest(t, srv, http.MethodPost, "/expenses", "bob", map[string]any{
		"amount": 10, "category": "Misc",
	})

	rec = doRequest(t, srv, http.MethodGet, "/api/summary", "bob2", nil)
	if got := decodeBody(t, rec)["total_spend"].(float64); got != 100 {
		t.Errorf("total_spend = %v, want the cached 100 for bob2", got)
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/expenses", "a@b.c", map[string]any{
		"amount":      900,
		"category":    "Shopping",
		"occurred_at": "2025-06-10T12:00",
	})

	rec := doRequest(t, srv, http.MethodGet, "/api/analysis?start=2025-06-01&end=2025-07-01", "a@b.c", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/analysis = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)

	byCategory := body["by_category"].([]any)
	if len(byCategory) != 1 {
		t.Fatalf("by_category = %v, want one bucket", byCategory)
	}
	bucket := byCategory[0].(map[string]any)
	if bucket["category"].(string) != "Shopping" || bucket["total"].(float64) != 900 {
		t.Errorf("bucket = %v, want Shopping 900", bucket)
	}

	if _, ok := body["insights"].([]any); !ok {
		t.Error("insights must be a JSON array even when empty")
	}
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/settings/budget", "a@b.c", map[string]any{
		"monthly_budget": -5,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative budget = %d, want 422", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/settings/budget", "a@b.c", map[string]any{
		"monthly_budget": 20000,
		"savings_goal":   5000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /settings/budget = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["monthly_budget"].(float64) != 20000 {
		t.Errorf("monthly_budget = %v, want 20000", body["monthly_budget"])
	}

	rec = doRequest(t, srv, http.MethodPost, "/settings/caps", "a@b.c", map[string]any{
		"caps": map[string]float64{"Shopping": 3000},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /settings/caps = %d, want 200", rec.Code)
	}
	body = decodeBody(t, rec)
	caps := body["category_caps"].(map[string]any)
	if caps["Shopping"].(float64) != 3000 {
		t.Errorf("caps = %v, want Shopping 3000", caps)
	}

	rec = doRequest(t, srv, http.MethodPost, "/settings/caps", "a@b.c", map[string]any{
		"caps": map[string]float64{"Gadgets": 100},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown category cap = %d, want 422", rec.Code)
	}
}

func TestDeleteLastEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/expenses/delete-last", "a@b.c", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete-last with no records = %d, want 404", rec.Code)
	}

	doRequest(t, srv, http.MethodPost, "/expenses", "a@b.c", map[string]any{
		"amount":   100,
		"category": "Misc",
	})

	rec = doRequest(t, srv, http.MethodPost, "/expenses/delete-last", "a@b.c", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete-last = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	deleted := body["deleted"].(map[string]any)
	if deleted["amount"].(float64) != 100 {
		t.Errorf("deleted record = %v, want the inserted one", deleted)
	}
}

func TestClearEndpoint(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		doRequest(t, srv, http.MethodPost, "/expenses", "a@b.c", map[string]any{
			"amount":   100,
			"category": "Misc",
		})
	}

	rec := doRequest(t, srv, http.MethodPost, "/clear", "a@b.c", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /clear = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["deleted"].(float64) != 3 {
		t.Errorf("deleted = %v, want 3", body["deleted"])
	}
}

func TestTaxTipsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/tips/tax", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /tips/tax = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	tips := body["tips"].([]any)
	if len(tips) != 10 {
		t.Errorf("got %d tax tips, want 10", len(tips))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/receipts", "a@b.c", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /receipts = %d, want 405", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodPost, "/api/summary", "a@b.c", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/summary = %d, want 405", rec.Code)
	}
}
