package gatewayhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRoutesByPrefix(t *testing.T) {
	admin := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handled-By", "admin")
		w.WriteHeader(http.StatusOK)
	})
	data := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handled-By", "data")
		w.WriteHeader(http.StatusOK)
	})
	handler := New(admin, data)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proxy/jobs", nil))
	if rec.Header().Get("X-Handled-By") != "admin" {
		t.Fatalf("expected admin handler, got %q", rec.Header().Get("X-Handled-By"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/s3/photos/cat.png", nil))
	if rec.Header().Get("X-Handled-By") != "data" {
		t.Fatalf("expected data handler, got %q", rec.Header().Get("X-Handled-By"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
