// Package slots implements the doctor's slot management screen: listing a
// day's slots, generating them, toggling availability and editing timings.
package slots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/requestgen"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var (
	// ErrSlotTimesRequired is returned when a timing edit is missing a time.
	ErrSlotTimesRequired = errors.New("slots: both start and end time are required")
	// ErrSlotBooked is returned when editing a slot that is not available.
	ErrSlotBooked = errors.New("slots: only unbooked slots can be edited")
	// ErrNotEditing is returned when there is no slot in edit mode.
	ErrNotEditing = errors.New("slots: no slot is being edited")
	// ErrUnknownSlot is returned for ids not in the current list.
	ErrUnknownSlot = errors.New("slots: slot not in the current list")
	// ErrNoDate is returned when an operation needs a selected date.
	ErrNoDate = errors.New("slots: no date selected")
)

const fetchKey = "slots"

// Backend is the subset of the clinic API the manager uses.
type Backend interface {
	ListSlots(ctx context.Context, q clinicapi.SlotQuery) ([]clinicapi.Slot, error)
	GenerateSlots(ctx context.Context, doctorID, date string) error
	SetSlotAvailability(ctx context.Context, slotID string, available bool) (*clinicapi.Slot, error)
	EditSlotTimings(ctx context.Context, slotID, startTime, endTime string) (*clinicapi.Slot, error)
}

// Draft holds the times typed into the slot being edited.
type Draft struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Manager is the state of one doctor's slot screen. Only one slot can be in
// edit mode at a time.
type Manager struct {
	backend  Backend
	doctorID string
	notifier notify.Notifier
	logger   *logging.Logger
	gens     requestgen.Tracker

	mu            sync.Mutex
	date          string
	slots         []clinicapi.Slot
	loaded        bool
	editingSlotID string
	draft         Draft
}

// NewManager creates a slot manager for doctorID.
func NewManager(backend Backend, doctorID string, notifier notify.Notifier, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		backend:  backend,
		doctorID: doctorID,
		notifier: notify.OrDiscard(notifier),
		logger:   logger.With("doctor_id", doctorID),
	}
}

// SelectDate switches the screen to date and loads its slots. The previous
// list is dropped immediately. If another SelectDate starts before this one's
// fetch returns, this result is discarded and requestgen.ErrSuperseded is
// returned. A failed fetch leaves the list empty.
func (m *Manager) SelectDate(ctx context.Context, date string) error {
	m.mu.Lock()
	m.date = strings.TrimSpace(date)
	m.slots = nil
	m.loaded = false
	m.editingSlotID = ""
	m.draft = Draft{}
	m.mu.Unlock()

	return m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.Lock()
	date := m.date
	tok := m.gens.Begin(fetchKey)
	m.mu.Unlock()

	if date == "" {
		return nil
	}

	list, err := m.backend.ListSlots(ctx, clinicapi.SlotQuery{DoctorID: m.doctorID, Date: date})
	if err != nil {
		m.logger.Warn("failed to fetch slots", "date", date, "error", err)
		list = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.gens.Current(tok) {
		m.logger.Debug("discarding superseded slot fetch", "date", date)
		return requestgen.ErrSuperseded
	}
	SortByStart(list)
	m.slots = list
	m.loaded = true
	return nil
}

// Date returns the selected date.
func (m *Manager) Date() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.date
}

// Slots returns a copy of the current list, sorted by start time.
func (m *Manager) Slots() []clinicapi.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]clinicapi.Slot, len(m.slots))
	copy(out, m.slots)
	return out
}

// NeedsGeneration reports whether the loaded day has no slots yet, which
// the screen shows as a "generate slots" prompt rather than an error.
func (m *Manager) NeedsGeneration() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded && len(m.slots) == 0
}

// Generate creates the day's slots on the backend and reloads the list.
func (m *Manager) Generate(ctx context.Context) error {
	date := m.Date()
	if date == "" || m.doctorID == "" {
		return ErrNoDate
	}
	if err := m.backend.GenerateSlots(ctx, m.doctorID, date); err != nil {
		m.logger.Error("failed to generate slots", "date", date, "error", err)
		m.notifier.Error("Error generating slots for the day.")
		return fmt.Errorf("slots: generate: %w", err)
	}
	m.notifier.Success("Slots generated for the day!")
	m.logger.Info("slots generated", "date", date)

	if err := m.refresh(ctx); err != nil && !errors.Is(err, requestgen.ErrSuperseded) {
		return err
	}
	return nil
}

// SetAvailability marks a slot bookable or not. The local copy is flipped
// once the backend accepts the change.
func (m *Manager) SetAvailability(ctx context.Context, slotID string, available bool) error {
	if _, ok := m.find(slotID); !ok {
		return ErrUnknownSlot
	}
	if _, err := m.backend.SetSlotAvailability(ctx, slotID, available); err != nil {
		m.logger.Warn("failed to update slot availability", "slot_id", slotID, "error", err)
		m.notifier.Error("Failed to update slot availability")
		return fmt.Errorf("slots: set availability: %w", err)
	}

	m.mu.Lock()
	for i := range m.slots {
		if m.slots[i].ID == slotID {
			m.slots[i].IsAvailable = available
		}
	}
	if !available && m.editingSlotID == slotID {
		m.editingSlotID = ""
		m.draft = Draft{}
	}
	m.mu.Unlock()

	if available {
		m.notifier.Success("Slot marked as available")
	} else {
		m.notifier.Success("Slot marked as unavailable")
	}
	return nil
}

// CanEdit reports whether a slot's timings may be edited.
func CanEdit(slot clinicapi.Slot) bool {
	return slot.IsAvailable
}

// StartEdit puts slotID into edit mode, seeding the draft with its current
// times. Any other slot being edited leaves edit mode.
func (m *Manager) StartEdit(slotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.findLocked(slotID)
	if !ok {
		return ErrUnknownSlot
	}
	if !CanEdit(slot) {
		return ErrSlotBooked
	}
	m.editingSlotID = slotID
	m.draft = Draft{StartTime: slot.StartTime, EndTime: slot.EndTime}
	return nil
}

// Editing returns the slot in edit mode and its draft.
func (m *Manager) Editing() (string, Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.editingSlotID, m.draft, m.editingSlotID != ""
}

// SetDraft replaces the draft times of the slot being edited.
func (m *Manager) SetDraft(d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editingSlotID == "" {
		return ErrNotEditing
	}
	m.draft = d
	return nil
}

// CancelEdit leaves edit mode without saving.
func (m *Manager) CancelEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editingSlotID = ""
	m.draft = Draft{}
}

// SaveEdit sends the draft times. On success the backend's times replace the
// local ones and edit mode ends; on failure nothing changes.
func (m *Manager) SaveEdit(ctx context.Context) error {
	m.mu.Lock()
	slotID, draft := m.editingSlotID, m.draft
	slot, found := m.findLocked(slotID)
	m.mu.Unlock()

	if slotID == "" {
		return ErrNotEditing
	}
	if strings.TrimSpace(draft.StartTime) == "" || strings.TrimSpace(draft.EndTime) == "" {
		m.notifier.Error("Both times are required")
		return ErrSlotTimesRequired
	}
	if found && !CanEdit(slot) {
		m.notifier.Error("Unable to update slot timings. Only unbooked slots can be edited.")
		return ErrSlotBooked
	}

	updated, err := m.backend.EditSlotTimings(ctx, slotID, draft.StartTime, draft.EndTime)
	if err != nil {
		m.logger.Warn("failed to edit slot timings", "slot_id", slotID, "error", err)
		m.notifier.Error("Unable to update slot timings. Only unbooked slots can be edited.")
		return fmt.Errorf("slots: edit timings: %w", err)
	}

	m.mu.Lock()
	for i := range m.slots {
		if m.slots[i].ID == slotID {
			m.slots[i].StartTime = updated.StartTime
			m.slots[i].EndTime = updated.EndTime
		}
	}
	SortByStart(m.slots)
	if m.editingSlotID == slotID {
		m.editingSlotID = ""
		m.draft = Draft{}
	}
	m.mu.Unlock()

	m.notifier.Success("Slot timings updated")
	return nil
}

func (m *Manager) find(slotID string) (clinicapi.Slot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(slotID)
}

func (m *Manager) findLocked(slotID string) (clinicapi.Slot, bool) {
	for _, s := range m.slots {
		if s.ID == slotID {
			return s, true
		}
	}
	return clinicapi.Slot{}, false
}

// SortByStart orders slots ascending by their zero-padded HH:MM start time,
// which is also chronological order.
func SortByStart(list []clinicapi.Slot) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartTime < list[j].StartTime
	})
}
