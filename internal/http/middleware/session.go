package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// Headers the portal reads the caller's identity from.
const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-Role"
)

type contextKey string

const sessionKey contextKey = "portalSession"

// BearerSession scopes each request to the caller's backend token. Requests
// without an Authorization header pass through anonymously; a bearer token
// with a missing user id, unknown role or expired exp claim is rejected.
func BearerSession(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				unauthorized(w, "malformed authorization header")
				return
			}
			role, ok := clinicapi.ParseRole(r.Header.Get(HeaderRole))
			if !ok {
				unauthorized(w, "missing or unknown role")
				return
			}
			svc, err := session.Fixed(strings.TrimSpace(token), strings.TrimSpace(r.Header.Get(HeaderUserID)), role)
			if err != nil {
				logger.Debug("rejected bearer session", "path", r.URL.Path, "error", err)
				unauthorized(w, "session expired or incomplete")
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Sessions resolves the logged-in user of a request.
type Sessions interface {
	Current(ctx context.Context) (*session.Session, error)
	Token(ctx context.Context) (string, error)
}

type anonymous struct{}

func (anonymous) Current(context.Context) (*session.Session, error) { return nil, session.ErrNoSession }
func (anonymous) Token(context.Context) (string, error)              { return "", session.ErrNoSession }

// SessionsFrom returns the request's session service, or one that always
// reports ErrNoSession for anonymous requests.
func SessionsFrom(ctx context.Context) Sessions {
	if svc, ok := ctx.Value(sessionKey).(*session.Service); ok && svc != nil {
		return svc
	}
	return anonymous{}
}

// RoutePattern returns the matched chi route, falling back to the raw path.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
