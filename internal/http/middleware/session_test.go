package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

func serveWithSession(t *testing.T, headers map[string]string) (*httptest.ResponseRecorder, *session.Session, error) {
	t.Helper()
	var (
		got    *session.Session
		gotErr error
	)
	h := BearerSession(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = SessionsFrom(r.Context()).Current(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/views/profile", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got, gotErr
}

func TestBearerSessionScopesRequest(t *testing.T) {
	rec, sess, err := serveWithSession(t, map[string]string{
		"Authorization": "Bearer opaque-token",
		HeaderUserID:    "doc-1",
		HeaderRole:      "doctor",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", sess.UserID)
	assert.Equal(t, clinicapi.RoleDoctor, sess.Role)
	assert.Equal(t, "opaque-token", sess.Token)
}

func TestBearerSessionAnonymous(t *testing.T) {
	rec, sess, err := serveWithSession(t, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, sess)
	assert.True(t, errors.Is(err, session.ErrNoSession))

	token, err := SessionsFrom(context.Background()).Token(context.Background())
	assert.Empty(t, token)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestBearerSessionRejectsIncompleteIdentity(t *testing.T) {
	cases := map[string]map[string]string{
		"basic auth":   {"Authorization": "Basic abc", HeaderUserID: "u", HeaderRole: "patient"},
		"unknown role": {"Authorization": "Bearer t", HeaderUserID: "u", HeaderRole: "nurse"},
		"no user id":   {"Authorization": "Bearer t", HeaderRole: "patient"},
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			rec, _, _ := serveWithSession(t, headers)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestRoutePattern(t *testing.T) {
	var pattern string
	r := chi.NewRouter()
	r.Get("/views/slots/{id}", func(w http.ResponseWriter, req *http.Request) {
		pattern = RoutePattern(req)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/views/slots/abc", nil))
	assert.Equal(t, "/views/slots/{id}", pattern)

	assert.Equal(t, "/raw", RoutePattern(httptest.NewRequest(http.MethodGet, "/raw", nil)))
}
