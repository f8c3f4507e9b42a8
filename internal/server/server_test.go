package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func testServer(ready ReadinessChecker, registrars ...RouteRegistrar) *Server {
	return New(Config{Host: "127.0.0.1", Port: 0, RateLimitRPS: 1000, RateLimitBurst: 1000},
		zap.NewNop(), ready, nil, registrars...)
}

func TestHandleHealthz(t *testing.T) {
	s := testServer(nil)

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "alive" {
		t.Errorf("status = %q, want alive", body["status"])
	}
}

func TestHandleReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		s := testServer(func(context.Context) error { return nil })
		w := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("backend down", func(t *testing.T) {
		s := testServer(func(context.Context) error { return errors.New("backend unreachable") })
		w := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", w.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["error"] != "backend unreachable" {
			t.Errorf("error = %q", body["error"])
		}
	})

	t.Run("no checker", func(t *testing.T) {
		s := testServer(nil)
		w := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})
}

func TestHandleHealth_Version(t *testing.T) {
	s := testServer(nil)

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Service != "vigia" || resp.Status != "ok" {
		t.Errorf("service/status = %q/%q", resp.Service, resp.Status)
	}
	if resp.Version["version"] == "" {
		t.Error("version missing from response")
	}
}

type stubRegistrar struct{ registered bool }

func (s *stubRegistrar) RegisterRoutes(mux *http.ServeMux) {
	s.registered = true
	mux.HandleFunc("GET /api/v1/stub", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestNew_MountsRegistrars(t *testing.T) {
	reg := &stubRegistrar{}
	s := testServer(nil, reg)

	if !reg.registered {
		t.Fatal("registrar not invoked")
	}
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stub", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want registrar handler to serve", w.Code)
	}
}

func TestMiddlewareApplied(t *testing.T) {
	s := testServer(nil)

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request ID middleware not applied")
	}
	if w.Header().Get("X-Vigia-Version") == "" {
		t.Error("version middleware not applied")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers middleware not applied")
	}
}
