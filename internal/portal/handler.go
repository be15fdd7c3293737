// Package portal exposes the clinic screens over JSON so a browser front end
// can drive them. Each request builds fresh controllers scoped to the
// caller's bearer session, replays the screen state it needs, then runs the
// action. Toasts raised along the way are returned with the response.
package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/clinic-portal/internal/accounts"
	"github.com/wolfman30/clinic-portal/internal/appointments"
	"github.com/wolfman30/clinic-portal/internal/booking"
	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	httpmiddleware "github.com/wolfman30/clinic-portal/internal/http/middleware"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/profile"
	"github.com/wolfman30/clinic-portal/internal/requestgen"
	"github.com/wolfman30/clinic-portal/internal/slots"
	"github.com/wolfman30/clinic-portal/internal/timefmt"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var errBadRequest = errors.New("portal: bad request")

// Handler serves the /views and /auth endpoints.
type Handler struct {
	client  *clinicapi.Client
	logger  *logging.Logger
	metrics *metrics.BackendMetrics
	now     func() time.Time
}

// NewHandler creates a portal handler on top of an unauthenticated backend
// client. Each request attaches the caller's token to a copy of it.
func NewHandler(client *clinicapi.Client, logger *logging.Logger, m *metrics.BackendMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{client: client, logger: logger, metrics: m, now: time.Now}
}

// Envelope is the body of every portal response.
type Envelope struct {
	Data   any            `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
	Toasts []notify.Toast `json:"toasts"`
}

// scope is the per-request wiring shared by every controller.
type scope struct {
	sessions httpmiddleware.Sessions
	client   *clinicapi.Client
	toasts   *notify.Recorder
	notifier notify.Notifier
	logger   *logging.Logger
}

func (h *Handler) scope(r *http.Request) *scope {
	sessions := httpmiddleware.SessionsFrom(r.Context())
	toasts := &notify.Recorder{}
	return &scope{
		sessions: sessions,
		client:   h.client.WithTokens(sessions),
		toasts:   toasts,
		notifier: notify.Multi{toasts, notify.NewLogNotifier(h.logger, h.metrics)},
		logger:   h.logger,
	}
}

func (h *Handler) today() string {
	return timefmt.Today(h.now())
}

func (s *scope) ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data, Toasts: s.recorded()})
}

func (s *scope) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("portal request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("portal request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, Envelope{Error: err.Error(), Toasts: s.recorded()})
}

func (s *scope) recorded() []notify.Toast {
	if toasts := s.toasts.Toasts(); len(toasts) > 0 {
		return toasts
	}
	return []notify.Toast{}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func errMissing(field string) error {
	return fmt.Errorf("%w: %s is required", errBadRequest, field)
}

func query(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// statusFor maps controller and backend errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, slots.ErrUnknownSlot),
		errors.Is(err, booking.ErrUnknownSlot),
		errors.Is(err, appointments.ErrUnknownAppointment),
		errors.Is(err, profile.ErrUnknownField):
		return http.StatusNotFound
	case errors.Is(err, appointments.ErrPatientOnly),
		errors.Is(err, profile.ErrUnsupportedRole),
		errors.Is(err, accounts.ErrRoleNotRegistrable):
		return http.StatusForbidden
	case errors.Is(err, slots.ErrSlotBooked),
		errors.Is(err, requestgen.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, slots.ErrSlotTimesRequired),
		errors.Is(err, slots.ErrNotEditing),
		errors.Is(err, slots.ErrNoDate),
		errors.Is(err, appointments.ErrInvalidStatus),
		errors.Is(err, appointments.ErrNotEditing),
		errors.Is(err, appointments.ErrSlotRequired),
		errors.Is(err, appointments.ErrSlotNotOffered),
		errors.Is(err, booking.ErrSlotRequired),
		errors.Is(err, booking.ErrReasonRequired),
		errors.Is(err, profile.ErrInvalidValue),
		errors.Is(err, profile.ErrNotEditing),
		errors.Is(err, accounts.ErrInvalidForm):
		return http.StatusBadRequest
	}
	return clinicapi.StatusCode(err)
}

func nonNilSlots(list []clinicapi.Slot) []clinicapi.Slot {
	if list == nil {
		return []clinicapi.Slot{}
	}
	return list
}
