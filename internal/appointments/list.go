// Package appointments implements the role-scoped appointment screen: the
// list and its date grouping, inline status edits, deletion and the patient
// reschedule editor.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/internal/timefmt"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var (
	// ErrUnknownAppointment is returned for ids not in the loaded list.
	ErrUnknownAppointment = errors.New("appointments: appointment not in the current list")
	// ErrNotEditing is returned when no appointment status is being edited.
	ErrNotEditing = errors.New("appointments: no appointment is being edited")
	// ErrInvalidStatus is returned for statuses other than scheduled,
	// completed and canceled.
	ErrInvalidStatus = errors.New("appointments: invalid status")
	// ErrPatientOnly is returned when a doctor tries to reschedule.
	ErrPatientOnly = errors.New("appointments: only patients can reschedule")
)

// Backend is the subset of the clinic API the appointment screen uses.
type Backend interface {
	ListAppointments(ctx context.Context, role clinicapi.Role, userID string) ([]clinicapi.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, appointmentID string, status clinicapi.AppointmentStatus, role clinicapi.Role) error
	UpdateAppointment(ctx context.Context, appointmentID string, update clinicapi.AppointmentUpdate, role clinicapi.Role) error
	DeleteAppointment(ctx context.Context, appointmentID string) error
	ListSlots(ctx context.Context, q clinicapi.SlotQuery) ([]clinicapi.Slot, error)
}

// Sessions resolves the logged-in user.
type Sessions interface {
	Current(ctx context.Context) (*session.Session, error)
}

// List holds the appointment screen state. At most one appointment has its
// status in edit mode.
type List struct {
	backend  Backend
	sessions Sessions
	notifier notify.Notifier
	logger   *logging.Logger
	now      func() time.Time

	mu                   sync.Mutex
	appts                []clinicapi.Appointment
	editingAppointmentID string
	draftStatus          clinicapi.AppointmentStatus
}

// NewList creates an appointment screen for the session's user.
func NewList(backend Backend, sessions Sessions, notifier notify.Notifier, logger *logging.Logger) *List {
	if logger == nil {
		logger = logging.Default()
	}
	return &List{
		backend:  backend,
		sessions: sessions,
		notifier: notify.OrDiscard(notifier),
		logger:   logger,
		now:      time.Now,
	}
}

// Load fetches the user's appointments. A failed fetch leaves the list
// empty and is not reported as an error; a missing session is.
func (l *List) Load(ctx context.Context) error {
	sess, err := l.sessions.Current(ctx)
	if err != nil {
		return err
	}
	appts, err := l.backend.ListAppointments(ctx, sess.Role, sess.UserID)
	if err != nil {
		l.logger.Warn("failed to fetch appointments", "user_id", sess.UserID, "role", sess.Role, "error", err)
		appts = nil
	}

	l.mu.Lock()
	l.appts = appts
	l.editingAppointmentID = ""
	l.draftStatus = ""
	l.mu.Unlock()
	return nil
}

// Appointments returns a copy of the loaded list in backend order.
func (l *List) Appointments() []clinicapi.Appointment {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]clinicapi.Appointment, len(l.appts))
	copy(out, l.appts)
	return out
}

// Count is the total shown in the screen header.
func (l *List) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.appts)
}

// Grouped returns the list grouped by date relative to today (UTC).
func (l *List) Grouped() []DateGroup {
	return GroupByDate(l.Appointments(), timefmt.Today(l.now()))
}

// Get returns one appointment from the loaded list.
func (l *List) Get(id string) (clinicapi.Appointment, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return clinicapi.Appointment{}, false
	}
	return l.appts[i], true
}

// BeginStatusEdit puts an appointment's status into edit mode, replacing any
// other appointment being edited.
func (l *List) BeginStatusEdit(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return ErrUnknownAppointment
	}
	l.editingAppointmentID = id
	l.draftStatus = l.appts[i].Status
	return nil
}

// EditingStatus returns the appointment in edit mode and its draft status.
func (l *List) EditingStatus() (string, clinicapi.AppointmentStatus, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.editingAppointmentID, l.draftStatus, l.editingAppointmentID != ""
}

// SetDraftStatus changes the selected status of the appointment being edited.
func (l *List) SetDraftStatus(status clinicapi.AppointmentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.editingAppointmentID == "" {
		return ErrNotEditing
	}
	l.draftStatus = status
	return nil
}

// CancelStatusEdit leaves edit mode without saving.
func (l *List) CancelStatusEdit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.editingAppointmentID = ""
	l.draftStatus = ""
}

// SaveStatus sends the draft status. Edit mode ends either way; the local
// status changes only when the backend accepts it.
func (l *List) SaveStatus(ctx context.Context) error {
	l.mu.Lock()
	id, status := l.editingAppointmentID, l.draftStatus
	l.editingAppointmentID = ""
	l.draftStatus = ""
	l.mu.Unlock()

	if id == "" {
		return ErrNotEditing
	}
	sess, err := l.sessions.Current(ctx)
	if err != nil {
		return err
	}
	if err := l.backend.UpdateAppointmentStatus(ctx, id, status, sess.Role); err != nil {
		l.logger.Warn("failed to update appointment status", "appointment_id", id, "status", status, "error", err)
		notify.Failure(l.notifier, err, "Failed to update appointment status", "Error updating appointment status")
		return fmt.Errorf("appointments: update status: %w", err)
	}

	l.mu.Lock()
	if i := l.indexLocked(id); i >= 0 {
		l.appts[i].Status = status
	}
	l.mu.Unlock()

	l.notifier.Success("Appointment status updated successfully")
	l.logger.Info("appointment status updated", "appointment_id", id, "status", status)
	return nil
}

// SetStatus is BeginStatusEdit, SetDraftStatus and SaveStatus in one step.
func (l *List) SetStatus(ctx context.Context, id string, status clinicapi.AppointmentStatus) error {
	if err := l.BeginStatusEdit(id); err != nil {
		return err
	}
	if err := l.SetDraftStatus(status); err != nil {
		l.CancelStatusEdit()
		return err
	}
	return l.SaveStatus(ctx)
}

// Delete removes an appointment on the backend, then exactly that entry from
// the local list.
func (l *List) Delete(ctx context.Context, id string) error {
	if _, ok := l.Get(id); !ok {
		return ErrUnknownAppointment
	}
	if err := l.backend.DeleteAppointment(ctx, id); err != nil {
		l.logger.Warn("failed to delete appointment", "appointment_id", id, "error", err)
		notify.Failure(l.notifier, err, "Failed to delete appointment", "Error deleting appointment")
		return fmt.Errorf("appointments: delete: %w", err)
	}

	l.mu.Lock()
	kept := l.appts[:0:0]
	for _, a := range l.appts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	l.appts = kept
	if l.editingAppointmentID == id {
		l.editingAppointmentID = ""
		l.draftStatus = ""
	}
	l.mu.Unlock()

	l.notifier.Success("Appointment deleted successfully")
	l.logger.Info("appointment deleted", "appointment_id", id)
	return nil
}

func (l *List) indexLocked(id string) int {
	for i, a := range l.appts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (l *List) applyUpdate(id string, update clinicapi.AppointmentUpdate, slot *clinicapi.Slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return
	}
	a := &l.appts[i]
	a.AppointmentDate = update.AppointmentDate
	a.Disease = update.Disease
	a.Status = update.Status
	a.AdditionalInfo = update.AdditionalInfo
	if slot != nil {
		held := *slot
		a.Slot = &held
	}
}
