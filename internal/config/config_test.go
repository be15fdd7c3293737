package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ENV", "LOG_LEVEL", "LOG_FORMAT", "BACKEND_BASE_URL", "BACKEND_TIMEOUT",
		"SESSION_STORE", "SESSION_KEY", "SESSION_TTL", "REDIS_ADDR", "PORT", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BackendBaseURL != DefaultBackendURL {
		t.Fatalf("expected default backend url, got %s", cfg.BackendBaseURL)
	}
	if cfg.BackendTimeout != 15*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.BackendTimeout)
	}
	if cfg.UsesRedisSessions() {
		t.Fatalf("expected memory sessions by default")
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected default session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "http://localhost:4000/")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("SESSION_STORE", " Redis ")
	t.Setenv("SESSION_KEY", "laptop")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("LOG_FORMAT", "TEXT")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	cfg := Load()
	if cfg.BackendBaseURL != "http://localhost:4000" {
		t.Fatalf("expected trimmed backend url, got %s", cfg.BackendBaseURL)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.BackendTimeout)
	}
	if !cfg.UsesRedisSessions() {
		t.Fatalf("expected redis sessions, got %q", cfg.SessionStore)
	}
	if cfg.SessionKey != "laptop" {
		t.Fatalf("expected session key override, got %s", cfg.SessionKey)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("expected text log format, got %s", cfg.LogFormat)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	cfg := Load()
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected fallback ttl, got %s", cfg.SessionTTL)
	}
}

func TestRateLimitSettings(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_SECOND", "")
	t.Setenv("RATE_LIMIT_BURST", "")
	cfg := Load()
	if cfg.RateLimitPerSecond != 10 || cfg.RateLimitBurst != 20 {
		t.Fatalf("unexpected default rate limit %v/%d", cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}

	t.Setenv("RATE_LIMIT_PER_SECOND", "0")
	t.Setenv("RATE_LIMIT_BURST", "many")
	cfg = Load()
	if cfg.RateLimitPerSecond != 0 {
		t.Fatalf("expected limiter disabled, got %v", cfg.RateLimitPerSecond)
	}
	if cfg.RateLimitBurst != 20 {
		t.Fatalf("expected fallback burst, got %d", cfg.RateLimitBurst)
	}
}
