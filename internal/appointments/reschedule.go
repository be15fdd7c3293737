package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/requestgen"
	"github.com/wolfman30/clinic-portal/internal/slots"
	"github.com/wolfman30/clinic-portal/internal/timefmt"
)

var (
	// ErrSlotRequired is returned when saving a reschedule without a slot.
	ErrSlotRequired = errors.New("appointments: a time slot must be selected")
	// ErrSlotNotOffered is returned when choosing a slot the dialog did not list.
	ErrSlotNotOffered = errors.New("appointments: slot is not selectable")
)

// Rescheduler is the patient's edit dialog for one appointment.
type Rescheduler struct {
	list     *List
	original clinicapi.Appointment
	gens     requestgen.Tracker

	mu        sync.Mutex
	date      string
	available []clinicapi.Slot
	slotID    string
	disease   string
	status    clinicapi.AppointmentStatus
	info      string
}

// OpenReschedule opens the edit dialog for a patient's appointment and loads
// the slots for its current date.
func (l *List) OpenReschedule(ctx context.Context, id string) (*Rescheduler, error) {
	sess, err := l.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	if sess.Role != clinicapi.RolePatient {
		return nil, ErrPatientOnly
	}
	appt, ok := l.Get(id)
	if !ok {
		return nil, ErrUnknownAppointment
	}
	r := &Rescheduler{
		list:     l,
		original: appt,
		disease:  appt.Disease,
		status:   appt.Status,
		info:     appt.AdditionalInfo,
	}
	if err := r.SelectDate(ctx, timefmt.DateKey(appt.AppointmentDate)); err != nil && !errors.Is(err, requestgen.ErrSuperseded) {
		return nil, err
	}
	return r, nil
}

// Appointment returns the appointment as it was when the dialog opened.
func (r *Rescheduler) Appointment() clinicapi.Appointment {
	return r.original
}

// SelectDate loads open slots for date. On the appointment's own date the
// slot it already holds is selectable and preselected even though the open
// slot query leaves it out; on any other date the selection is cleared.
func (r *Rescheduler) SelectDate(ctx context.Context, date string) error {
	date = timefmt.DateKey(strings.TrimSpace(date))
	sameDate := date == timefmt.DateKey(r.original.AppointmentDate)

	r.mu.Lock()
	r.date = date
	r.available = nil
	r.slotID = ""
	if sameDate {
		r.slotID = r.original.SlotID()
	}
	tok := r.gens.Begin("reschedule")
	r.mu.Unlock()

	doctorID := r.original.DoctorID()
	if date == "" || doctorID == "" {
		return nil
	}

	list, err := r.list.backend.ListSlots(ctx, clinicapi.SlotQuery{DoctorID: doctorID, Date: date, ExcludeUnavailable: true})
	if err != nil {
		r.list.logger.Warn("failed to fetch slots for reschedule", "appointment_id", r.original.ID, "date", date, "error", err)
		r.list.notifier.Error("Failed to fetch slots")
		list = nil
	}
	if sameDate && r.original.Slot != nil && r.original.Slot.ID != "" && !containsSlot(list, r.original.Slot.ID) {
		list = append(list, *r.original.Slot)
	}
	slots.SortByStart(list)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.gens.Current(tok) {
		return requestgen.ErrSuperseded
	}
	r.available = list
	return nil
}

// Date returns the selected date.
func (r *Rescheduler) Date() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.date
}

// Slots returns the selectable slots, sorted by start time.
func (r *Rescheduler) Slots() []clinicapi.Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]clinicapi.Slot, len(r.available))
	copy(out, r.available)
	return out
}

// SelectedSlot returns the chosen slot id, "" if none.
func (r *Rescheduler) SelectedSlot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotID
}

// SelectSlot chooses one of the selectable slots.
func (r *Rescheduler) SelectSlot(slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !containsSlot(r.available, slotID) {
		return fmt.Errorf("%w: %q on %s", ErrSlotNotOffered, slotID, r.date)
	}
	r.slotID = slotID
	return nil
}

func (r *Rescheduler) SetDisease(disease string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disease = disease
}

func (r *Rescheduler) SetStatus(status clinicapi.AppointmentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	return nil
}

func (r *Rescheduler) SetAdditionalInfo(info string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = info
}

// Update returns the payload Save would send.
func (r *Rescheduler) Update() clinicapi.AppointmentUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clinicapi.AppointmentUpdate{
		DoctorID:        r.original.DoctorID(),
		AppointmentDate: r.date,
		SlotID:          r.slotID,
		Disease:         r.disease,
		Status:          r.status,
		AdditionalInfo:  r.info,
	}
}

// Save sends the reschedule and, once accepted, merges it into the list.
func (r *Rescheduler) Save(ctx context.Context) error {
	update := r.Update()
	if update.SlotID == "" {
		r.list.notifier.Error("Please select a time slot.")
		return ErrSlotRequired
	}
	sess, err := r.list.sessions.Current(ctx)
	if err != nil {
		return err
	}
	if err := r.list.backend.UpdateAppointment(ctx, r.original.ID, update, sess.Role); err != nil {
		r.list.logger.Warn("failed to update appointment", "appointment_id", r.original.ID, "error", err)
		notify.Failure(r.list.notifier, err, "Failed to update appointment", "Error updating appointment")
		return fmt.Errorf("appointments: reschedule: %w", err)
	}

	var chosen *clinicapi.Slot
	r.mu.Lock()
	for i := range r.available {
		if r.available[i].ID == update.SlotID {
			s := r.available[i]
			chosen = &s
		}
	}
	r.mu.Unlock()

	r.list.applyUpdate(r.original.ID, update, chosen)
	r.list.notifier.Success("Appointment updated successfully")
	r.list.logger.Info("appointment rescheduled", "appointment_id", r.original.ID, "slot_id", update.SlotID, "date", update.AppointmentDate)
	return nil
}

func containsSlot(list []clinicapi.Slot, id string) bool {
	for _, s := range list {
		if s.ID == id {
			return true
		}
	}
	return false
}
