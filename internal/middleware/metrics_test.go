package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type recordedRequest struct {
	method string
	route  string
	status int
}

type mockHTTPRecorder struct {
	mu      sync.Mutex
	records []recordedRequest
}

func (m *mockHTTPRecorder) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recordedRequest{method: method, route: route, status: status})
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	rec := &mockHTTPRecorder{}

	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(rec))
	r.Get("/api/plants/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/plants/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if len(rec.records) != 2 {
		t.Fatalf("recorded %d requests, want 2", len(rec.records))
	}
	want := recordedRequest{method: "GET", route: "/api/plants/{id}", status: http.StatusNotFound}
	if rec.records[0] != want {
		t.Errorf("record = %+v, want %+v", rec.records[0], want)
	}
	if rec.records[1].route != unmatchedRoute {
		t.Errorf("unmatched route label = %q, want %q", rec.records[1].route, unmatchedRoute)
	}
}
