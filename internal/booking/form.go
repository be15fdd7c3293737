// Package booking implements the patient's "book appointment" form for one
// doctor: pick a date, pick one of its open slots, give a reason, submit.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/requestgen"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/internal/slots"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var (
	// ErrSlotRequired is returned when submitting without a slot.
	ErrSlotRequired = errors.New("booking: a time slot must be selected")
	// ErrReasonRequired is returned when submitting without a disease/reason.
	ErrReasonRequired = errors.New("booking: a reason for the visit is required")
	// ErrUnknownSlot is returned when selecting a slot that is not offered.
	ErrUnknownSlot = errors.New("booking: slot is not available on the selected date")
)

// Backend is the subset of the clinic API the form uses.
type Backend interface {
	ListSlots(ctx context.Context, q clinicapi.SlotQuery) ([]clinicapi.Slot, error)
	BookAppointment(ctx context.Context, req clinicapi.BookingRequest) (*clinicapi.Appointment, error)
}

// Sessions resolves the logged-in patient.
type Sessions interface {
	Current(ctx context.Context) (*session.Session, error)
}

// Form is the booking dialog for one doctor.
type Form struct {
	backend  Backend
	sessions Sessions
	doctorID string
	notifier notify.Notifier
	logger   *logging.Logger
	gens     requestgen.Tracker

	mu      sync.Mutex
	date    string
	open    []clinicapi.Slot
	slotID  string
	disease string
}

// NewForm creates a booking form for doctorID.
func NewForm(backend Backend, sessions Sessions, doctorID string, notifier notify.Notifier, logger *logging.Logger) *Form {
	if logger == nil {
		logger = logging.Default()
	}
	return &Form{
		backend:  backend,
		sessions: sessions,
		doctorID: doctorID,
		notifier: notify.OrDiscard(notifier),
		logger:   logger.With("doctor_id", doctorID),
	}
}

// SelectDate loads the doctor's open slots for date and clears the slot
// choice. An empty date just clears the list.
func (f *Form) SelectDate(ctx context.Context, date string) error {
	date = strings.TrimSpace(date)

	f.mu.Lock()
	f.date = date
	f.open = nil
	f.slotID = ""
	tok := f.gens.Begin("booking")
	f.mu.Unlock()

	if date == "" {
		return nil
	}

	list, err := f.backend.ListSlots(ctx, clinicapi.SlotQuery{DoctorID: f.doctorID, Date: date, ExcludeUnavailable: true})
	if err != nil {
		f.logger.Warn("failed to fetch open slots", "date", date, "error", err)
		f.notifier.Error("Failed to fetch slots")
		list = nil
	}
	slots.SortByStart(list)

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.gens.Current(tok) {
		return requestgen.ErrSuperseded
	}
	f.open = list
	return nil
}

// Date returns the selected date.
func (f *Form) Date() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.date
}

// Slots returns the open slots for the selected date.
func (f *Form) Slots() []clinicapi.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]clinicapi.Slot, len(f.open))
	copy(out, f.open)
	return out
}

// SelectSlot chooses one of the open slots.
func (f *Form) SelectSlot(slotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.open {
		if s.ID == slotID {
			f.slotID = slotID
			return nil
		}
	}
	return ErrUnknownSlot
}

// SetDisease sets the reason for the visit.
func (f *Form) SetDisease(disease string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disease = disease
}

// CanSubmit reports whether both a slot and a reason are filled in.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slotID != "" && strings.TrimSpace(f.disease) != ""
}

// Submit books the selected slot for the logged-in patient. The form is
// reset once the backend accepts the booking.
func (f *Form) Submit(ctx context.Context) (*clinicapi.Appointment, error) {
	f.mu.Lock()
	slotID, disease := f.slotID, strings.TrimSpace(f.disease)
	f.mu.Unlock()

	if slotID == "" {
		f.notifier.Error("Please select a time slot.")
		return nil, ErrSlotRequired
	}
	if disease == "" {
		return nil, ErrReasonRequired
	}

	sess, err := f.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	req := clinicapi.BookingRequest{
		Patient: sess.UserID,
		Doctor:  f.doctorID,
		SlotID:  slotID,
		Disease: disease,
	}
	appt, err := f.backend.BookAppointment(ctx, req)
	if err != nil {
		f.logger.Warn("failed to book appointment", "slot_id", slotID, "error", err)
		f.notifier.Error("Error creating appointment")
		return nil, fmt.Errorf("booking: submit: %w", err)
	}

	f.mu.Lock()
	f.date = ""
	f.open = nil
	f.slotID = ""
	f.disease = ""
	f.mu.Unlock()

	f.notifier.Success("Appointment created successfully")
	f.logger.Info("appointment booked", "slot_id", slotID, "patient_id", sess.UserID)
	return appt, nil
}
