package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"household/internal/cache"
	"household/internal/core"
	"household/internal/log"
	"household/internal/metrics"
	"household/internal/services"
	"household/internal/sheets/xlsx"
	"household/internal/storage/memory"
)

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	store := memory.New()
	v := core.NewValidator()
	m := metrics.New()

	familyCache := cache.NewLRUCache[core.FamilyProfile](cache.Config{Name: "family", MaxSize: 10, TTL: time.Minute, Observer: m})
	families := services.NewFamilyService(store, v, familyCache, logger)
	deps := Deps{
		Families:     families,
		Transactions: services.NewTransactionService(store, v, nil, logger),
		Analysis:     services.NewAnalysisService(store, m, logger),
		Importer: services.NewImporter(xlsx.Opener{}, store, v,
			services.WithImportLogger(logger),
			services.WithImportMetrics(m),
			services.WithCommitHook(families.InvalidateCache)),
		Logger:  logger,
		Metrics: m,
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv := NewServer(":0", deps)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}

	down := newTestEnv(t, func(d *Deps) {
		d.Readiness = func(context.Context) error { return errors.New("db down") }
	})
	if rr := down.do(t, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
}

func TestMemberContributionEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/analysis/member-contribution",
		`{"transactions":[{"memberId":"A","amount":30},{"memberId":"B","amount":70}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got core.MemberContribution
	decodeBody(t, rr, &got)
	if got.TotalExpenses != 100 || got.HighestSpender.MemberID != "B" || got.MemberPercentages[0].Percentage != "30.00" {
		t.Errorf("result = %+v", got)
	}

	for _, body := range []string{`{}`, `{"transactions":[]}`, `{"transactions":"x"}`, `not json`} {
		rr := env.do(t, http.MethodPost, "/api/analysis/member-contribution", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: status=%d, want 400", body, rr.Code)
		}
		var msg map[string]string
		decodeBody(t, rr, &msg)
		if msg["message"] == "" {
			t.Errorf("body %s: missing message", body)
		}
	}
}

func TestSavingsOptimizationEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, http.MethodPost, "/api/analysis/savings-optimization",
		`{"familyIncome":250000,"savings":50000,"totalExpenses":100000,"dependents":2,"monthlyExpenses":20000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got core.SavingsOptimization
	decodeBody(t, rr, &got)
	if got.SuggestedSavingPercentage != 25 || got.IdealExpenseToIncomeRatio != "40.00%" || got.SpendingStatus != core.Underspending {
		t.Errorf("result = %+v", got)
	}

	rr = env.do(t, http.MethodPost, "/api/analysis/savings-optimization", `{"familyIncome":0,"savings":1,"totalExpenses":1,"dependents":0,"monthlyExpenses":1}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("zero income status=%d, want 400", rr.Code)
	}
}

func TestAddTransactionEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"familyId":"F1","memberId":"M1","category":"Groceries","amount":"42.50","transactionDate":"2024-01-15"}`

	tests := []struct {
		path    string
		message string
	}{
		{"/api/analysis/add-transaction", msgTransactionSaved},
		{"/api/transactions", msgTransactionAdded},
	}
	for _, tt := range tests {
		rr := env.do(t, http.MethodPost, tt.path, body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("%s status=%d body=%s", tt.path, rr.Code, rr.Body.String())
		}
		var got transactionCreated
		decodeBody(t, rr, &got)
		if got.Message != tt.message || got.Transaction.ID == "" || got.Transaction.Amount != 42.5 {
			t.Errorf("%s response = %+v", tt.path, got)
		}
	}

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	rr := env.do(t, http.MethodPost, "/api/transactions",
		`{"familyId":"F1","memberId":"M1","category":"Groceries","amount":1,"transactionDate":"`+future+`"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("future date status=%d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/families/F1/transactions", "")
	var txs []core.Transaction
	decodeBody(t, rr, &txs)
	if len(txs) != 2 {
		t.Fatalf("stored %d transactions, want 2", len(txs))
	}

	rr = env.do(t, http.MethodGet, "/api/families/F1/member-contribution", "")
	var contribution core.MemberContribution
	decodeBody(t, rr, &contribution)
	if rr.Code != http.StatusOK || contribution.TotalExpenses != 85 {
		t.Errorf("family contribution status=%d result=%+v", rr.Code, contribution)
	}

	if rr := env.do(t, http.MethodGet, "/api/families/NOPE/member-contribution", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("empty family contribution status=%d, want 400", rr.Code)
	}
}

func TestFamilyEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"familyId":"F1","income":5000,"savings":1000,"monthlyExpenses":2000,"loanPayments":0,"creditCardSpending":100,"dependents":2,"financialGoalsMet":40}`

	rr := env.do(t, http.MethodPost, "/api/families", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created familyCreated
	decodeBody(t, rr, &created)
	if created.Message != msgFamilyCreated || created.Family.FamilyID != "F1" {
		t.Errorf("created = %+v", created)
	}

	if rr := env.do(t, http.MethodPost, "/api/families", body); rr.Code != http.StatusConflict {
		t.Errorf("duplicate status=%d, want 409", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/api/families", `{"familyId":"F2","income":5000}`); rr.Code != http.StatusBadRequest {
		t.Errorf("incomplete status=%d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/families/F1", "")
	var f core.FamilyProfile
	decodeBody(t, rr, &f)
	if rr.Code != http.StatusOK || f.Income != 5000 {
		t.Errorf("get status=%d family=%+v", rr.Code, f)
	}
	if rr := env.do(t, http.MethodGet, "/api/families/F9", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing status=%d, want 404", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/families", "")
	var all []core.FamilyProfile
	decodeBody(t, rr, &all)
	if len(all) != 1 {
		t.Errorf("list = %+v", all)
	}
}

func workbookUpload(t *testing.T, rows [][]any) (*bytes.Buffer, string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	xlsxBuf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(uploadField, "families.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(xlsxBuf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func headerRow() []any {
	cols := services.RequiredColumns()
	row := make([]any, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

func TestImportEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := workbookUpload(t, [][]any{
		headerRow(),
		{"F1", "M1", "2024-01-15", "Groceries", 50, 5000, 1000, 2000, 100, 200, 2, 50},
		{"F1", "M2", "2024-01-16", "Rent", 1200, 5000, 1000, 2000, 100, 200, 2, 50},
		{"F2", "M1", "2024-01-17", "Education", 80, 3000, 0, 1000, 0, 0, 0, 10},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var res services.ImportResult
	decodeBody(t, rr, &res)
	if res.Families != 2 || res.Transactions != 3 || res.Source != "families.xlsx" {
		t.Errorf("result = %+v", res)
	}

	families, _ := env.store.ListFamilies(context.Background())
	if len(families) != 2 {
		t.Errorf("stored %d families, want 2", len(families))
	}
}

func TestImportEndpointRejects(t *testing.T) {
	env := newTestEnv(t, nil)

	missingCols, ct := workbookUpload(t, [][]any{{"Family ID", "Member ID"}, {"F1", "M1"}})
	req := httptest.NewRequest(http.MethodPost, "/api/import", missingCols)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "missing required columns") {
		t.Errorf("schema mismatch status=%d body=%s", rr.Code, rr.Body.String())
	}

	if rr := env.do(t, http.MethodPost, "/api/import", `{}`); rr.Code != http.StatusBadRequest {
		t.Errorf("no upload status=%d, want 400", rr.Code)
	}
}

func TestRateLimitAppliesToPost(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.RateLimitPerMinute = 2 })
	body := `{"transactions":[{"memberId":"A","amount":1}]}`

	for i := 0; i < 2; i++ {
		if rr := env.do(t, http.MethodPost, "/api/analysis/member-contribution", body); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := env.do(t, http.MethodPost, "/api/analysis/member-contribution", body)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("status=%d, want 429 with Retry-After", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("GET limited too: status=%d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/families", "")

	rr := env.do(t, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `route="GET /api/families"`) {
		t.Errorf("metrics missing route label:\n%s", rr.Body.String())
	}
}
