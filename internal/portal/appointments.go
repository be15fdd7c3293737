package portal

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-portal/internal/appointments"
	"github.com/wolfman30/clinic-portal/internal/clinicapi"
)

// AppointmentsView is the appointment list. Doctors also get the date
// grouping their screen renders.
type AppointmentsView struct {
	Count        int                      `json:"count"`
	Appointments []clinicapi.Appointment  `json:"appointments"`
	Groups       []appointments.DateGroup `json:"groups,omitempty"`
}

// RescheduleView is the patient's edit dialog.
type RescheduleView struct {
	Appointment  clinicapi.Appointment `json:"appointment"`
	Date         string                `json:"date"`
	Slots        []clinicapi.Slot      `json:"slots"`
	SelectedSlot string                `json:"selectedSlot,omitempty"`
}

type statusChange struct {
	Status clinicapi.AppointmentStatus `json:"status"`
}

type rescheduleRequest struct {
	Date           string                      `json:"date"`
	SlotID         string                      `json:"slotId"`
	Disease        *string                     `json:"disease,omitempty"`
	Status         clinicapi.AppointmentStatus `json:"status,omitempty"`
	AdditionalInfo *string                     `json:"additionalInfo,omitempty"`
}

func (h *Handler) loadList(r *http.Request, s *scope) (*appointments.List, error) {
	list := appointments.NewList(s.client, s.sessions, s.notifier, s.logger)
	if err := list.Load(r.Context()); err != nil {
		return nil, err
	}
	return list, nil
}

func (h *Handler) appointmentsView(r *http.Request, s *scope, list *appointments.List) AppointmentsView {
	view := AppointmentsView{Count: list.Count(), Appointments: list.Appointments()}
	if view.Appointments == nil {
		view.Appointments = []clinicapi.Appointment{}
	}
	if sess, err := s.sessions.Current(r.Context()); err == nil && sess.Role == clinicapi.RoleDoctor {
		view.Groups = list.Grouped()
	}
	return view
}

// ListAppointments handles GET /views/appointments.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	list, err := h.loadList(r, s)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, h.appointmentsView(r, s, list))
}

// SetAppointmentStatus handles PATCH /views/appointments/{id}/status.
func (h *Handler) SetAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	var body statusChange
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := h.loadList(r, s)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := list.SetStatus(r.Context(), chi.URLParam(r, "id"), body.Status); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, h.appointmentsView(r, s, list))
}

// DeleteAppointment handles DELETE /views/appointments/{id}.
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	list, err := h.loadList(r, s)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := list.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, h.appointmentsView(r, s, list))
}

func (h *Handler) openReschedule(r *http.Request, s *scope, date string) (*appointments.List, *appointments.Rescheduler, error) {
	list, err := h.loadList(r, s)
	if err != nil {
		return nil, nil, err
	}
	dialog, err := list.OpenReschedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, nil, err
	}
	if date != "" && date != dialog.Date() {
		if err := dialog.SelectDate(r.Context(), date); err != nil {
			return nil, nil, err
		}
	}
	return list, dialog, nil
}

// RescheduleSlots handles GET /views/appointments/{id}/reschedule-slots?date=.
func (h *Handler) RescheduleSlots(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	_, dialog, err := h.openReschedule(r, s, query(r, "date"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, RescheduleView{
		Appointment:  dialog.Appointment(),
		Date:         dialog.Date(),
		Slots:        nonNilSlots(dialog.Slots()),
		SelectedSlot: dialog.SelectedSlot(),
	})
}

// RescheduleAppointment handles PUT /views/appointments/{id}.
func (h *Handler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	var body rescheduleRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	list, dialog, err := h.openReschedule(r, s, body.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if body.SlotID != "" {
		if err := dialog.SelectSlot(body.SlotID); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if body.Disease != nil {
		dialog.SetDisease(*body.Disease)
	}
	if body.Status != "" {
		if err := dialog.SetStatus(body.Status); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if body.AdditionalInfo != nil {
		dialog.SetAdditionalInfo(*body.AdditionalInfo)
	}
	if err := dialog.Save(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	appt, _ := list.Get(chi.URLParam(r, "id"))
	s.ok(w, http.StatusOK, appt)
}
