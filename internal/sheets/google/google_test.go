package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"household/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc)
}

func TestClient_OpenAndReadSheet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			if got := r.URL.Query().Get("valueRenderOption"); got != "UNFORMATTED_VALUE" {
				t.Errorf("valueRenderOption = %q", got)
			}
			_, _ = w.Write([]byte(`{"range":"Data!A1:C3","values":[["Family ID","Amount","Transaction Date"],["FAM001",42.5,45306],["FAM002",100000]]}`))
		case strings.HasSuffix(r.URL.Path, "/v4/spreadsheets/sheet-123"):
			_, _ = w.Write([]byte(`{"sheets":[{"properties":{"title":"Data"}},{"properties":{"title":"Notes"}}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	wb, err := c.Open(context.Background(), "sheet-123")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()

	names := wb.SheetNames()
	if len(names) != 2 || names[0] != "Data" {
		t.Fatalf("SheetNames = %v", names)
	}

	sheet, err := wb.Sheet(context.Background(), "Data")
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(sheet.Rows))
	}
	if got := sheet.Rows[0].Get("Transaction Date"); got != "45306" {
		t.Errorf("date cell = %q", got)
	}
	if got := sheet.Rows[1].Get("Amount"); got != "100000" {
		t.Errorf("amount cell = %q", got)
	}

	if _, err := wb.Sheet(context.Background(), "Missing"); err == nil {
		t.Error("expected error for unknown worksheet")
	}
}

func TestClient_OpenNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`))
	})

	_, err := c.Open(context.Background(), "nope")
	var nf *core.FileNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected FileNotFoundError, got %v", err)
	}
	if nf.Path != "nope" {
		t.Errorf("Path = %q", nf.Path)
	}
}

func TestClient_OpenServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Open(context.Background(), "sheet-123")
	if err == nil {
		t.Fatal("expected error")
	}
	var nf *core.FileNotFoundError
	if errors.As(err, &nf) {
		t.Fatal("server errors must not be reported as missing files")
	}
}

func TestClient_NilService(t *testing.T) {
	if _, err := (&Client{}).Open(context.Background(), "x"); err == nil {
		t.Fatal("expected error for uninitialized client")
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	for _, key := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(key, "")
	}

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_UnreadableFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/creds.json")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}
