package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"parishledger/internal/batch"
	"parishledger/internal/core"
)

type fakeStore struct {
	budgets    []core.Budget
	members    []core.Member
	categories []core.Category
	inserted   [][]core.Transaction
	insertErr  error
}

func (f *fakeStore) ActiveBudgets(ctx context.Context, tenant string) ([]core.Budget, error) {
	return f.budgets, nil
}

func (f *fakeStore) Members(ctx context.Context, tenant string) ([]core.Member, error) {
	return f.members, nil
}

func (f *fakeStore) Categories(ctx context.Context, tenant string, kind core.Kind) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeStore) InsertTransactionBatch(ctx context.Context, records []core.Transaction) ([]core.Transaction, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, records)
	return records, nil
}

func newFakeStore() *fakeStore {
	year := time.Now().UTC().Year()
	return &fakeStore{
		budgets: []core.Budget{{
			ID:          "b1",
			Name:        "Facilities",
			Allocation:  decimal.NewFromInt(1000),
			ActiveFrom:  core.NewDate(year, 1, 1),
			ActiveUntil: core.NewDate(year, 12, 31),
		}},
		members: []core.Member{
			{ID: "m1", DisplayName: "Anna", EnvelopeCode: "001"},
		},
		categories: []core.Category{
			{ID: "c-exp", Name: "Maintenance", Kind: core.KindExpense},
			{ID: "c-inc", Name: "Offering", Kind: core.KindIncome},
		},
	}
}

func newTestServer(store *fakeStore) *Server {
	engine := batch.NewService(store, store, nil, "$", time.Minute)
	return NewServer("127.0.0.1:0", engine, batch.NewRegistry(), nil, "")
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	r.Header.Set(headerTenant, "parish-a")
	r.Header.Set(headerActor, "anna")
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, r)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(newFakeStore())
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestMissingIdentity(t *testing.T) {
	s := newTestServer(newFakeStore())
	r := httptest.NewRequest(http.MethodGet, "/api/batches/expense", nil)
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp errorResponse
	decodeResponse(t, w, &resp)
	if resp.Type != "missing_identity" {
		t.Errorf("type = %q", resp.Type)
	}
}

func TestUnknownKind(t *testing.T) {
	s := newTestServer(newFakeStore())
	w := doRequest(s, http.MethodGet, "/api/batches/transfer", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestImportCSV(t *testing.T) {
	s := newTestServer(newFakeStore())
	csv := "date,amount,category,budget\n2025-02-12,100.50,c-exp,b1\n2025-02-13,19.99,c-exp,b1"

	w := doRequest(s, http.MethodPost, "/api/batches/expense/import", csv)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Kind       string `json:"kind"`
		Rows       []any  `json:"rows"`
		Aggregates struct {
			OverallTotal string `json:"overallTotal"`
		} `json:"aggregates"`
	}
	decodeResponse(t, w, &resp)
	if resp.Kind != "expense" || len(resp.Rows) != 2 {
		t.Errorf("kind = %q, rows = %d", resp.Kind, len(resp.Rows))
	}
	if resp.Aggregates.OverallTotal != "120.49" {
		t.Errorf("overallTotal = %q, want 120.49", resp.Aggregates.OverallTotal)
	}
}

func TestImportStructuralError(t *testing.T) {
	s := newTestServer(newFakeStore())
	csv := "amount,category,budget\n100,c-exp,b1"

	w := doRequest(s, http.MethodPost, "/api/batches/expense/import", csv)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp errorResponse
	decodeResponse(t, w, &resp)
	if resp.Type != "structural_import_error" || !strings.Contains(resp.Error, "date") {
		t.Errorf("resp = %+v", resp)
	}
}

func TestImportRowError(t *testing.T) {
	s := newTestServer(newFakeStore())
	csv := "date,amount,category,budget\n2025-02-12,abc,c-exp,b1"

	w := doRequest(s, http.MethodPost, "/api/batches/expense/import", csv)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp errorResponse
	decodeResponse(t, w, &resp)
	if resp.Type != "row_format_error" {
		t.Errorf("type = %q", resp.Type)
	}
}

func TestRowEditingFlow(t *testing.T) {
	s := newTestServer(newFakeStore())

	w := doRequest(s, http.MethodPost, "/api/batches/expense/rows", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("add row status = %d", w.Code)
	}
	var added struct {
		Index int `json:"index"`
	}
	decodeResponse(t, w, &added)
	if added.Index != 1 {
		t.Errorf("index = %d, want 1", added.Index)
	}

	patch := `{"amount":"42.50","categoryRef":"c-exp","counterpartyRef":"b1","date":"2025-02-12"}`
	w = doRequest(s, http.MethodPatch, "/api/batches/expense/rows/1", patch)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}
	var updated struct {
		Aggregates struct {
			OverallTotal string `json:"overallTotal"`
		} `json:"aggregates"`
	}
	decodeResponse(t, w, &updated)
	if updated.Aggregates.OverallTotal != "42.50" {
		t.Errorf("overallTotal = %q, want 42.50", updated.Aggregates.OverallTotal)
	}

	w = doRequest(s, http.MethodDelete, "/api/batches/expense/rows/0", "")
	if w.Code != http.StatusOK {
		t.Fatalf("remove status = %d", w.Code)
	}

	w = doRequest(s, http.MethodDelete, "/api/batches/expense/rows/9", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("out of range status = %d, want 404", w.Code)
	}
	var resp errorResponse
	decodeResponse(t, w, &resp)
	if resp.Type != "row_not_found" {
		t.Errorf("type = %q", resp.Type)
	}
}

func TestSubmitFlow(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)

	csv := "date,amount,category,budget\n2025-02-12,100.50,c-exp,b1"
	if w := doRequest(s, http.MethodPost, "/api/batches/expense/import", csv); w.Code != http.StatusOK {
		t.Fatalf("import status = %d", w.Code)
	}

	w := doRequest(s, http.MethodPost, "/api/batches/expense/submit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d: %s", w.Code, w.Body.String())
	}
	var result struct {
		BatchID  string `json:"batchId"`
		RowCount int    `json:"rowCount"`
	}
	decodeResponse(t, w, &result)
	if result.BatchID == "" || result.RowCount != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(store.inserted) != 1 || len(store.inserted[0]) != 1 {
		t.Fatalf("inserted batches = %v", store.inserted)
	}

	// After a successful submit the session is back to one empty row.
	w = doRequest(s, http.MethodGet, "/api/batches/expense", "")
	var state struct {
		Rows []any `json:"rows"`
	}
	decodeResponse(t, w, &state)
	if len(state.Rows) != 1 {
		t.Errorf("rows after submit = %d, want 1", len(state.Rows))
	}
}

func TestSubmitCapacityError(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)

	csv := "date,amount,category,budget\n2025-02-12,5000,c-exp,b1"
	if w := doRequest(s, http.MethodPost, "/api/batches/expense/import", csv); w.Code != http.StatusOK {
		t.Fatalf("import status = %d", w.Code)
	}

	w := doRequest(s, http.MethodPost, "/api/batches/expense/submit", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}
	var resp errorResponse
	decodeResponse(t, w, &resp)
	if resp.Type != "capacity_error" {
		t.Errorf("type = %q", resp.Type)
	}
	if len(store.inserted) != 0 {
		t.Error("rejected batch was inserted")
	}

	// The drafts survive the failed submit.
	w = doRequest(s, http.MethodGet, "/api/batches/expense", "")
	var state struct {
		Rows []any `json:"rows"`
	}
	decodeResponse(t, w, &state)
	if len(state.Rows) != 1 {
		t.Errorf("rows = %d, want the rejected draft intact", len(state.Rows))
	}
}

func TestSubmitResolutionErrorPayload(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)

	csv := "date,amount,category,budget\n2025-02-12,10,c-exp,nope\n2025-02-13,10,bad-cat,b1"
	if w := doRequest(s, http.MethodPost, "/api/batches/expense/import", csv); w.Code != http.StatusOK {
		t.Fatalf("import status = %d", w.Code)
	}

	w := doRequest(s, http.MethodPost, "/api/batches/expense/submit", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp errorResponse
	decodeResponse(t, w, &resp)
	if resp.Type != "resolution_error" || len(resp.Rows) != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSubmitEmptySession(t *testing.T) {
	s := newTestServer(newFakeStore())
	w := doRequest(s, http.MethodPost, "/api/batches/income/submit", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var resp errorResponse
	decodeResponse(t, w, &resp)
	if resp.Type != "empty_batch" {
		t.Errorf("type = %q", resp.Type)
	}
}

func TestSheetImportUnconfigured(t *testing.T) {
	s := newTestServer(newFakeStore())
	w := doRequest(s, http.MethodPost, "/api/batches/expense/import?source=sheet", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp errorResponse
	decodeResponse(t, w, &resp)
	if resp.Type != "no_sheet_source" {
		t.Errorf("type = %q", resp.Type)
	}
}

func TestBudgetUsage(t *testing.T) {
	s := newTestServer(newFakeStore())
	w := doRequest(s, http.MethodGet, "/api/budgets/usage", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Budgets []struct {
			ID        string `json:"id"`
			Remaining string `json:"remaining"`
		} `json:"budgets"`
	}
	decodeResponse(t, w, &resp)
	if len(resp.Budgets) != 1 || resp.Budgets[0].ID != "b1" {
		t.Fatalf("budgets = %+v", resp.Budgets)
	}
	if resp.Budgets[0].Remaining != "1000" {
		t.Errorf("remaining = %q, want 1000", resp.Budgets[0].Remaining)
	}
}
