package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newRouter(checkers ...Checker) http.Handler {
	agg := NewAggregator(AggregatorConfig{})
	for _, c := range checkers {
		agg.Register(c)
	}
	r := chi.NewRouter()
	RegisterHandlers(r, agg)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	rec := get(t, newRouter(fixed("x", Unhealthy("down", nil))), "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("/healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		wantCode int
		wantBody string
	}{
		{"healthy", Healthy(""), http.StatusOK, "OK"},
		{"degraded", Degraded(""), http.StatusOK, "DEGRADED"},
		{"unhealthy", Unhealthy("", errors.New("x")), http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newRouter(fixed("store", tt.result)), "/readyz")
			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("/readyz = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestDetailed(t *testing.T) {
	h := newRouter(
		fixed("store", Healthy("writable")),
		fixed("exec:node", Unhealthy("node not found", ErrExecutableMissing)),
	)
	rec := get(t, h, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/health code = %d, want 503", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding /health: %v", err)
	}
	if resp.Status != "unhealthy" || len(resp.Checks) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if resp.Checks["exec:node"].Error == "" {
		t.Error("failed check should carry its error")
	}
}

func TestSingleCheck(t *testing.T) {
	h := newRouter(fixed("store", Healthy("writable")))

	rec := get(t, h, "/health/store")
	if rec.Code != http.StatusOK {
		t.Errorf("/health/store code = %d", rec.Code)
	}
	var c CheckResponse
	_ = json.NewDecoder(rec.Body).Decode(&c)
	if c.Status != "healthy" || c.Message != "writable" {
		t.Errorf("check = %+v", c)
	}

	if rec := get(t, h, "/health/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("/health/unknown code = %d, want 404", rec.Code)
	}
}
