package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newBackendServer(t *testing.T, name string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"backend": name,
			"path":    r.URL.Path,
			"query":   r.URL.RawQuery,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouterForwardsToService(t *testing.T) {
	backend := newBackendServer(t, "stock-1", nil)
	router := NewRouter(map[string][]string{
		"stock": {backend.URL},
	}, time.Second, time.Second, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/1?verbose=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Backend string `json:"backend"`
		Path    string `json:"path"`
		Query   string `json:"query"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Path != "/stock/1" {
		t.Fatalf("expected path /stock/1 at backend, got %q", resp.Path)
	}
	if resp.Query != "verbose=1" {
		t.Fatalf("expected query preserved, got %q", resp.Query)
	}
}

func TestRouterRoundRobin(t *testing.T) {
	var hits1, hits2 atomic.Int64
	b1 := newBackendServer(t, "products-1", &hits1)
	b2 := newBackendServer(t, "products-2", &hits2)

	router := NewRouter(map[string][]string{
		"products": {b1.URL, b2.URL},
	}, time.Second, time.Second, nil)

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products/list", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	if hits1.Load() != 3 || hits2.Load() != 3 {
		t.Fatalf("expected even split, got %d and %d", hits1.Load(), hits2.Load())
	}
}

func TestRouterForwardsBodyAndHeaders(t *testing.T) {
	var gotBody, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotHeader = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)

	router := NewRouter(map[string][]string{"orders": {srv.URL}}, time.Second, time.Second, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"customer_id":"cust-1"}`))
	req.Header.Set("Idempotency-Key", "tok-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 passed through, got %d", rec.Code)
	}
	if gotBody != `{"customer_id":"cust-1"}` {
		t.Fatalf("body not forwarded, got %q", gotBody)
	}
	if gotHeader != "tok-1" {
		t.Fatalf("headers not forwarded, got %q", gotHeader)
	}
}

func TestRouterStripsHopByHopHeaders(t *testing.T) {
	var gotKeepAlive, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKeepAlive = r.Header.Get("Keep-Alive")
		gotCustom = r.Header.Get("X-Session")
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("Connection", "X-Internal")
		w.Header().Set("X-Internal", "1")
		w.Header().Set("X-Backend", "stock-1")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	router := NewRouter(map[string][]string{"stock": {srv.URL}}, time.Second, time.Second, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/1", nil)
	req.Header.Set("Keep-Alive", "timeout=5")
	req.Header.Set("Connection", "X-Session")
	req.Header.Set("X-Session", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if gotKeepAlive != "" {
		t.Fatalf("Keep-Alive must not reach the backend, got %q", gotKeepAlive)
	}
	if gotCustom != "" {
		t.Fatalf("headers named by Connection must not reach the backend, got %q", gotCustom)
	}
	if got := rec.Header().Get("Keep-Alive"); got != "" {
		t.Fatalf("Keep-Alive must not reach the client, got %q", got)
	}
	if got := rec.Header().Get("X-Internal"); got != "" {
		t.Fatalf("headers named by Connection must not reach the client, got %q", got)
	}
	if got := rec.Header().Get("X-Backend"); got != "stock-1" {
		t.Fatalf("end-to-end headers must pass through, got %q", got)
	}
}

func TestRouterUnknownService(t *testing.T) {
	router := NewRouter(map[string][]string{}, time.Second, time.Second, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRouterUnreachableBackend(t *testing.T) {
	router := NewRouter(map[string][]string{
		"stock": {"http://127.0.0.1:1"},
	}, 200*time.Millisecond, time.Second, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected error message in body")
	}
}

func TestRouterAggregateHealth(t *testing.T) {
	healthy := newBackendServer(t, "stock-1", nil)
	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(unhealthy.Close)

	router := NewRouter(map[string][]string{
		"stock":  {healthy.URL},
		"orders": {unhealthy.URL, "http://127.0.0.1:1"},
	}, time.Second, 200*time.Millisecond, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Gateway  string              `json:"gateway"`
		Services map[string][]string `json:"services"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Gateway != "healthy" {
		t.Fatalf("unexpected gateway status %q", resp.Gateway)
	}
	if got := resp.Services["stock"]; len(got) != 1 || got[0] != "healthy" {
		t.Fatalf("unexpected stock states: %v", got)
	}
	if got := resp.Services["orders"]; len(got) != 2 || got[0] != "unhealthy" || got[1] != "unreachable" {
		t.Fatalf("unexpected orders states: %v", got)
	}
}

func TestRouterBarePrefix(t *testing.T) {
	router := NewRouter(map[string][]string{}, time.Second, time.Second, nil)

	for _, path := range []string{"/api/v1/", "/other", "/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("path %q: expected 404, got %d", path, rec.Code)
		}
	}
}
