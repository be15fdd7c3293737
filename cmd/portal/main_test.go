package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, backend, portal := setupMetrics()
	if handler == nil || backend == nil || portal == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	backend.ObserveRequest("list_slots", "ok", 0.1)
	portal.ObserveThrottled()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"clinic_backend_requests_total", "clinic_portal_throttled_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s to be exported", name)
		}
	}
}

func TestNewServerServesHealth(t *testing.T) {
	cfg := &appconfig.Config{
		Port:               "9090",
		BackendBaseURL:     "http://127.0.0.1:0",
		BackendTimeout:     time.Second,
		RateLimitPerSecond: 1,
		RateLimitBurst:     1,
	}
	srv, limiter := newServer(cfg, logging.Discard())
	if limiter == nil {
		t.Fatalf("expected rate limiter when a rate is configured")
	}
	if srv.Addr != ":9090" {
		t.Fatalf("unexpected addr %s", srv.Addr)
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rr.Code)
	}
}
