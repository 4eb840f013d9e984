package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestRequestLoggerPassesThrough(t *testing.T) {
	handler := RequestLogger(zap.NewNop(), "test_route", http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte("short and stout"))
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brew", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestMetricsServerEndpoints(t *testing.T) {
	ms := NewMetricsServer("127.0.0.1:0", zap.NewNop())

	ts := httptest.NewServer(ms.server.Handler)
	defer ts.Close()

	for _, path := range []string{"/metrics", "/health", "/ready"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d", path, resp.StatusCode)
		}
	}
}

func TestMetricsServerReadyCheck(t *testing.T) {
	ms := NewMetricsServer("127.0.0.1:0", zap.NewNop())

	ready := false
	ms.SetReadyCheck(func() error {
		if !ready {
			return errors.New("not registered")
		}
		return nil
	})

	ts := httptest.NewServer(ms.server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before ready = %d, want 503", resp.StatusCode)
	}

	ready = true
	resp, err = http.Get(ts.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status once ready = %d, want 200", resp.StatusCode)
	}

	// Liveness stays up either way.
	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}
