// Package profile implements the field-by-field profile editor shared by the
// doctor and patient dashboards.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var (
	// ErrUnknownField is returned for fields the role cannot edit.
	ErrUnknownField = errors.New("profile: field is not editable")
	// ErrNotEditing is returned by Save when no field is in edit mode.
	ErrNotEditing = errors.New("profile: no field is being edited")
	// ErrInvalidValue is returned when a value does not fit the field's input.
	ErrInvalidValue = errors.New("profile: invalid value")
	// ErrUnsupportedRole is returned for roles without a profile screen.
	ErrUnsupportedRole = errors.New("profile: role has no editable profile")
)

// Input is the kind of form control a field is edited with.
type Input string

const (
	InputText   Input = "text"
	InputEmail  Input = "email"
	InputDate   Input = "date"
	InputTel    Input = "tel"
	InputGender Input = "gender"
)

// Field describes one editable profile attribute.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Input Input  `json:"input"`
}

var validate = validator.New()

// rules mirror the constraints the browser's input types would apply.
var rules = map[Input]string{
	InputEmail:  "required,email",
	InputDate:   "required,datetime=2006-01-02",
	InputGender: "oneof=male female",
}

// DoctorFields are the attributes a doctor edits on their dashboard.
var DoctorFields = []Field{
	{Name: "firstName", Label: "First Name", Input: InputText},
	{Name: "lastName", Label: "Last Name", Input: InputText},
	{Name: "specialty", Label: "Specialty", Input: InputText},
	{Name: "clinicLocation", Label: "Clinic Location", Input: InputText},
	{Name: "contactNumber", Label: "Contact Number", Input: InputTel},
	{Name: "workingHours", Label: "Working Hours", Input: InputText},
}

// PatientFields are the attributes a patient edits on "My Appointments".
var PatientFields = []Field{
	{Name: "firstName", Label: "First Name", Input: InputText},
	{Name: "lastName", Label: "Last Name", Input: InputText},
	{Name: "email", Label: "Email", Input: InputEmail},
	{Name: "gender", Label: "Gender", Input: InputGender},
	{Name: "dateOfBirth", Label: "Date of Birth", Input: InputDate},
	{Name: "contactNumber", Label: "Contact Number", Input: InputTel},
}

// FieldsFor returns the editable fields for role.
func FieldsFor(role clinicapi.Role) []Field {
	switch role {
	case clinicapi.RoleDoctor:
		return DoctorFields
	case clinicapi.RolePatient:
		return PatientFields
	}
	return nil
}

// Backend is the subset of the clinic API the editor uses.
type Backend interface {
	GetProfileRecord(ctx context.Context, role clinicapi.Role, userID string) (map[string]any, error)
	PatchProfile(ctx context.Context, role clinicapi.Role, userID, field string, value any) error
}

// Sessions resolves the logged-in user.
type Sessions interface {
	Current(ctx context.Context) (*session.Session, error)
}

// Editor holds a cached copy of the user's profile. Exactly one field can be
// in edit mode at a time.
type Editor struct {
	backend  Backend
	sessions Sessions
	notifier notify.Notifier
	logger   *logging.Logger

	mu           sync.Mutex
	role         clinicapi.Role
	userID       string
	record       map[string]any
	editingField string
}

func NewEditor(backend Backend, sessions Sessions, notifier notify.Notifier, logger *logging.Logger) *Editor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Editor{
		backend:  backend,
		sessions: sessions,
		notifier: notify.OrDiscard(notifier),
		logger:   logger,
	}
}

// Load fetches the session user's profile. A failed fetch leaves the record
// nil; only a missing session or a role without a profile is an error.
func (e *Editor) Load(ctx context.Context) error {
	sess, err := e.sessions.Current(ctx)
	if err != nil {
		return err
	}
	if FieldsFor(sess.Role) == nil {
		return ErrUnsupportedRole
	}
	record, err := e.backend.GetProfileRecord(ctx, sess.Role, sess.UserID)
	if err != nil {
		e.logger.Warn("failed to fetch profile", "user_id", sess.UserID, "role", sess.Role, "error", err)
		record = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.role = sess.Role
	e.userID = sess.UserID
	e.record = record
	e.editingField = ""
	return nil
}

// Loaded reports whether a profile record is cached.
func (e *Editor) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record != nil
}

// Fields returns the editable fields for the loaded role.
func (e *Editor) Fields() []Field {
	e.mu.Lock()
	defer e.mu.Unlock()
	return FieldsFor(e.role)
}

// Record returns a shallow copy of the cached profile.
func (e *Editor) Record() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.record == nil {
		return nil
	}
	out := make(map[string]any, len(e.record))
	for k, v := range e.record {
		out[k] = v
	}
	return out
}

// Field returns the cached value of one attribute.
func (e *Editor) Field(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.record[name]
	return v, ok
}

// Begin puts field into edit mode, leaving any other field's edit.
func (e *Editor) Begin(field string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := lookup(e.role, field); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	e.editingField = field
	return nil
}

// Editing returns the field in edit mode.
func (e *Editor) Editing() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.editingField, e.editingField != ""
}

// Cancel leaves edit mode without saving.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editingField = ""
}

// Save sends value for the field in edit mode as {field: value, role}.
// Whatever the outcome the field returns to display mode; the cached value
// changes only when the backend accepts it.
func (e *Editor) Save(ctx context.Context, value string) error {
	e.mu.Lock()
	field, role, userID := e.editingField, e.role, e.userID
	e.editingField = ""
	e.mu.Unlock()

	if field == "" {
		return ErrNotEditing
	}
	def, _ := lookup(role, field)
	if err := validateValue(def, value); err != nil {
		e.notifier.Error(fmt.Sprintf("Error updating %s", field))
		return err
	}

	if err := e.backend.PatchProfile(ctx, role, userID, field, value); err != nil {
		e.logger.Warn("failed to update profile field", "user_id", userID, "field", field, "error", err)
		notify.Failure(e.notifier, err, fmt.Sprintf("Failed to update %s detail", role), fmt.Sprintf("Error updating %s", field))
		return fmt.Errorf("profile: update %s: %w", field, err)
	}

	e.mu.Lock()
	if e.record == nil {
		e.record = make(map[string]any)
	}
	e.record[field] = value
	e.mu.Unlock()

	e.notifier.Success(fmt.Sprintf("Successfully updated %s", field))
	e.logger.Info("profile field updated", "user_id", userID, "field", field)
	return nil
}

// Set is Begin followed by Save.
func (e *Editor) Set(ctx context.Context, field, value string) error {
	if err := e.Begin(field); err != nil {
		return err
	}
	return e.Save(ctx, value)
}

func lookup(role clinicapi.Role, name string) (Field, bool) {
	for _, f := range FieldsFor(role) {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func validateValue(f Field, value string) error {
	rule, ok := rules[f.Input]
	if !ok {
		return nil
	}
	if err := validate.Var(strings.TrimSpace(value), rule); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, f.Name, err)
	}
	return nil
}
