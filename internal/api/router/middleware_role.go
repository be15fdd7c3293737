package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	httpmiddleware "github.com/wolfman30/clinic-portal/internal/http/middleware"
	"github.com/wolfman30/clinic-portal/internal/session"
)

// requireRole admits only requests whose bearer session carries one of roles.
func requireRole(roles ...clinicapi.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := httpmiddleware.SessionsFrom(r.Context()).Current(r.Context())
			switch {
			case errors.Is(err, session.ErrNoSession):
				denied(w, http.StatusUnauthorized, "login required")
				return
			case err != nil:
				denied(w, http.StatusUnauthorized, err.Error())
				return
			case !slices.Contains(roles, sess.Role):
				denied(w, http.StatusForbidden, "not available to "+string(sess.Role)+"s")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denied(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg, "toasts": []any{}})
}
