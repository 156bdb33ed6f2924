package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking/pkg/logging"
)

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)

	handler := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false}`))
	})))

	req := httptest.NewRequest(http.MethodPut, "/api/sessions/abc/time", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID response header")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "WARN" {
		t.Fatalf("expected WARN for a 4xx, got %v", entry["level"])
	}
	if entry["status"] != float64(http.StatusConflict) {
		t.Fatalf("expected status 409, got %v", entry["status"])
	}
	if entry["request_id"] != rec.Header().Get("X-Request-ID") {
		t.Fatalf("expected logged request id to match header")
	}
	if entry["path"] != "/api/sessions/abc/time" {
		t.Fatalf("unexpected path %v", entry["path"])
	}
}

func TestRequestLoggerKeepsIncomingID(t *testing.T) {
	handler := RequestLogger(logging.NewWithWriter("error", &bytes.Buffer{}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected incoming request id to be echoed, got %q", got)
	}
}
