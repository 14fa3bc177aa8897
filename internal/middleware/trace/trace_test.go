package trace

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"household/internal/log"
	"household/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RequestIDAndRoute(t *testing.T) {
	m := metrics.New()
	tm := NewMiddleware(nil, log.New(log.Config{Output: io.Discard}), m)

	var seenID string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/families/{familyId}", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		if log.FromContext(r.Context()).Component() == "unknown" {
			t.Error("request logger missing from context")
		}
		w.WriteHeader(http.StatusTeapot)
	})
	h := tm.Middleware(RecordRoute(mux))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/families/F1", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
	if seenID == "" || rr.Header().Get(HeaderRequestID) != seenID {
		t.Errorf("request ID header %q, handler saw %q", rr.Header().Get(HeaderRequestID), seenID)
	}

	const want = `
# HELP household_http_requests_total HTTP requests by route and status code.
# TYPE household_http_requests_total counter
household_http_requests_total{method="GET",route="GET /api/families/{familyId}",status="418"} 1
`
	if err := testutil.GatherAndCompare(m.Registry, strings.NewReader(want), "household_http_requests_total"); err != nil {
		t.Error(err)
	}
}

func TestMiddleware_UpstreamRequestID(t *testing.T) {
	tm := NewMiddleware(nil, log.New(log.Config{Output: io.Discard}), nil)
	h := tm.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"valid", "abc-123", true},
		{"injection attempt", "bad id\nwith newline", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			got := rr.Header().Get(HeaderRequestID)
			if tt.keep && got != tt.incoming {
				t.Errorf("got %q, want %q", got, tt.incoming)
			}
			if !tt.keep && !strings.HasPrefix(got, "req_") {
				t.Errorf("got %q, want generated ID", got)
			}
		})
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b {
		t.Error("IDs should differ")
	}
	if len(a) != len("req_")+16 {
		t.Errorf("unexpected ID %q", a)
	}
}
