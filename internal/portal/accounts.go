package portal

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-portal/internal/accounts"
	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/session"
)

// LoginView is what the front end stores after a successful login and
// echoes back as Authorization, X-User-Id and X-Role.
type LoginView struct {
	Token     string         `json:"token"`
	UserID    string         `json:"userId"`
	Role      clinicapi.Role `json:"role"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
	Home      string         `json:"home"`
}

// ResetView reports which step of the forgot-password screen to show.
type ResetView struct {
	Step  accounts.ResetStep `json:"step"`
	Email string             `json:"email,omitempty"`
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) accounts(s *scope) *accounts.Service {
	sessions := session.NewService(h.client, session.NewMemoryStore(), "portal", s.logger)
	return accounts.NewService(h.client, sessions, s.notifier, s.logger)
}

func roleParam(r *http.Request) (clinicapi.Role, error) {
	role, ok := clinicapi.ParseRole(chi.URLParam(r, "role"))
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q", errBadRequest, chi.URLParam(r, "role"))
	}
	return role, nil
}

// Login handles POST /auth/{role}/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	role, err := roleParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body credentials
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := h.accounts(s).Login(r.Context(), role, body.Email, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view := LoginView{Token: sess.Token, UserID: sess.UserID, Role: sess.Role, Home: accounts.Home(sess.Role)}
	if !sess.ExpiresAt.IsZero() {
		view.ExpiresAt = &sess.ExpiresAt
	}
	s.ok(w, http.StatusOK, view)
}

// Register handles POST /auth/{role}/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	role, err := roleParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var reg clinicapi.Registration
	if err := decode(r, &reg); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := h.accounts(s).Register(r.Context(), role, reg); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, map[string]string{"next": "/login"})
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	var body credentials
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	flow := h.accounts(s).NewPasswordReset()
	if err := flow.RequestOTP(r.Context(), body.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, ResetView{Step: flow.Step(), Email: flow.Email()})
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	var body credentials
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Email == "" {
		s.fail(w, r, errMissing("email"))
		return
	}
	flow := h.accounts(s).NewPasswordReset()
	flow.Resume(body.Email)
	if err := flow.Reset(r.Context(), body.OTP, body.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, ResetView{Step: flow.Step()})
}
