package portal

import (
	"net/http"

	"github.com/wolfman30/clinic-portal/internal/booking"
	"github.com/wolfman30/clinic-portal/internal/clinicapi"
)

// BookingSlotsView lists the open slots of a doctor on one date.
type BookingSlotsView struct {
	DoctorID string           `json:"doctorId"`
	Date     string           `json:"date"`
	Slots    []clinicapi.Slot `json:"slots"`
}

type bookingRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
	SlotID   string `json:"slotId"`
	Disease  string `json:"disease"`
}

func (h *Handler) openForm(r *http.Request, s *scope, doctorID, date string) (*booking.Form, error) {
	if doctorID == "" {
		return nil, errMissing("doctorId")
	}
	if date == "" {
		return nil, errMissing("date")
	}
	form := booking.NewForm(s.client, s.sessions, doctorID, s.notifier, s.logger)
	if err := form.SelectDate(r.Context(), date); err != nil {
		return nil, err
	}
	return form, nil
}

// BookingSlots handles GET /views/booking/slots?doctorId=&date=.
func (h *Handler) BookingSlots(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	doctorID := query(r, "doctorId")
	form, err := h.openForm(r, s, doctorID, query(r, "date"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, BookingSlotsView{DoctorID: doctorID, Date: form.Date(), Slots: nonNilSlots(form.Slots())})
}

// Book handles POST /views/booking.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	s := h.scope(r)
	var body bookingRequest
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	form, err := h.openForm(r, s, body.DoctorID, body.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if body.SlotID != "" {
		if err := form.SelectSlot(body.SlotID); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	form.SetDisease(body.Disease)
	appt, err := form.Submit(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, appt)
}
