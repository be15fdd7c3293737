package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

type harness struct {
	t   *testing.T
	cfg *appconfig.Config

	mu        sync.Mutex
	available map[string]bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, available: map[string]bool{"s1": true, "s2": false}}

	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("POST /doctor/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			write(w, map[string]any{"status": false, "message": "Invalid credentials"})
			return
		}
		write(w, map[string]any{"status": true, "token": "tok-doc", "userId": "doc-1"})
	})
	mux.HandleFunc("GET /appointment/doctor/slots", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-doc", r.Header.Get("Authorization"))
		h.mu.Lock()
		defer h.mu.Unlock()
		write(w, map[string]any{"slots": []map[string]any{
			{"_id": "s2", "startTime": "14:00", "endTime": "14:30", "isAvailable": h.available["s2"]},
			{"_id": "s1", "startTime": "09:00", "endTime": "09:30", "isAvailable": h.available["s1"]},
		}})
	})
	mux.HandleFunc("PATCH /appointment/slot/{id}/availability", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]bool
		_ = json.NewDecoder(r.Body).Decode(&body)
		h.mu.Lock()
		h.available[r.PathValue("id")] = body["available"]
		h.mu.Unlock()
		write(w, map[string]any{"status": true})
	})
	mux.HandleFunc("POST /patientauth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		write(w, map[string]any{"status": true})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	h.cfg = &appconfig.Config{
		BackendBaseURL: server.URL,
		BackendTimeout: 5 * time.Second,
		SessionStore:   "file",
		SessionFile:    filepath.Join(t.TempDir(), "session.json"),
		SessionKey:     "cli",
	}
	return h
}

func (h *harness) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), h.cfg, logging.Discard(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestUsage(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run()
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "reset-password")

	code, _, stderr = h.run("frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, _, stderr = h.run("login", "-role", "doctor")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "missing -email")

	code, _, _ = h.run("slots", "purge")
	assert.Equal(t, 2, code)
}

func TestNotLoggedIn(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("slots", "list", "-date", "2024-06-01")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "not logged in")
}

func TestDoctorSessionPersistsAcrossInvocations(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run("login", "-role", "doctor", "-email", "doc@example.com", "-password", "wrong")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "✗ Login failed. Please check your credentials.")

	code, stdout, stderr := h.run("login", "-role", "doctor", "-email", "doc@example.com", "-password", "secret")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "logged in as doctor doc-1")
	assert.Contains(t, stderr, "✓ Login successful!")

	code, stdout, _ = h.run("whoami")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "doc-1")

	code, stdout, _ = h.run("slots", "list", "-date", "2024-06-01")
	require.Equal(t, 0, code)
	assert.Less(t, strings.Index(stdout, "9:00 AM"), strings.Index(stdout, "2:00 PM"))
	assert.Contains(t, stdout, "unavailable")

	code, stdout, stderr = h.run("slots", "toggle", "-date", "2024-06-01", "-slot", "s2")
	require.Equal(t, 0, code, stderr)
	h.mu.Lock()
	assert.True(t, h.available["s2"])
	h.mu.Unlock()
	assert.NotContains(t, stdout, "unavailable")

	code, _, stderr = h.run("dashboard")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "for patient accounts")

	code, stdout, _ = h.run("logout")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "logged out")

	code, _, _ = h.run("whoami")
	assert.Equal(t, 1, code)
}

func TestForgotPassword(t *testing.T) {
	h := newHarness(t)
	code, stdout, stderr := h.run("forgot-password", "-email", "asha@example.com")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "OTP sent to your email!")
	assert.Contains(t, stdout, "reset-password -email asha@example.com")
}
