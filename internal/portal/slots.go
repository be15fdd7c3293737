package portal

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/slots"
)

// SlotsView is the doctor's slot screen for one date.
type SlotsView struct {
	Date            string           `json:"date"`
	Slots           []clinicapi.Slot `json:"slots"`
	NeedsGeneration bool             `json:"needsGeneration"`
}

type slotChange struct {
	Date      string `json:"date"`
	Available *bool  `json:"available,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// manager opens the doctor's slot screen on date, defaulting to today.
func (h *Handler) manager(r *http.Request, s *scope, date string) (*slots.Manager, error) {
	sess, err := s.sessions.Current(r.Context())
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(date) == "" {
		date = h.today()
	}
	m := slots.NewManager(s.client, sess.UserID, s.notifier, s.logger)
	if err := m.SelectDate(r.Context(), date); err != nil {
		return nil, err
	}
	return m, nil
}

func slotsView(m *slots.Manager) SlotsView {
	return SlotsView{Date: m.Date(), Slots: nonNilSlots(m.Slots()), NeedsGeneration: m.NeedsGeneration()}
}

// ListSlots handles GET /views/slots?date=.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	m, err := h.manager(r, s, query(r, "date"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, slotsView(m))
}

// GenerateSlots handles POST /views/slots/generate.
func (h *Handler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	var body slotChange
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := h.manager(r, s, body.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := m.Generate(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, slotsView(m))
}

// SetSlotAvailability handles PATCH /views/slots/{id}/availability.
func (h *Handler) SetSlotAvailability(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	var body slotChange
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.Available == nil {
		s.fail(w, r, errMissing("available"))
		return
	}
	m, err := h.manager(r, s, body.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := m.SetAvailability(r.Context(), chi.URLParam(r, "id"), *body.Available); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, slotsView(m))
}

// EditSlotTimings handles PATCH /views/slots/{id}/timings.
func (h *Handler) EditSlotTimings(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	var body slotChange
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := h.manager(r, s, body.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := m.StartEdit(chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := m.SetDraft(slots.Draft{StartTime: body.StartTime, EndTime: body.EndTime}); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := m.SaveEdit(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, slotsView(m))
}
