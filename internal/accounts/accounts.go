// Package accounts implements the anonymous screens: login, registration
// and the two-step forgot-password flow.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var (
	// ErrRoleNotRegistrable is returned when registering an admin.
	ErrRoleNotRegistrable = errors.New("accounts: only patients and doctors can register")
	// ErrInvalidForm wraps field validation failures.
	ErrInvalidForm = errors.New("accounts: invalid form")
)

var validate = validator.New()

// Backend is the subset of the clinic API the account screens use.
type Backend interface {
	Register(ctx context.Context, role clinicapi.Role, reg clinicapi.Registration) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

// Sessions starts a session from credentials.
type Sessions interface {
	Login(ctx context.Context, role clinicapi.Role, email, password string) (*session.Session, error)
}

// Service runs the account screens.
type Service struct {
	backend  Backend
	sessions Sessions
	notifier notify.Notifier
	logger   *logging.Logger
}

func NewService(backend Backend, sessions Sessions, notifier notify.Notifier, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		backend:  backend,
		sessions: sessions,
		notifier: notify.OrDiscard(notifier),
		logger:   logger,
	}
}

// Home is the screen a role lands on after login.
func Home(role clinicapi.Role) string {
	switch role {
	case clinicapi.RoleDoctor:
		return "/doctor-dashboard"
	case clinicapi.RoleAdmin:
		return "/admin-dashboard"
	default:
		return "/patient-dashboard"
	}
}

// Login authenticates and starts the session.
func (s *Service) Login(ctx context.Context, role clinicapi.Role, email, password string) (*session.Session, error) {
	if err := validate.Var(strings.TrimSpace(email), "required,email"); err != nil {
		return nil, fmt.Errorf("%w: email: %v", ErrInvalidForm, err)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidForm)
	}
	sess, err := s.sessions.Login(ctx, role, strings.TrimSpace(email), password)
	if err != nil {
		s.logger.Warn("login failed", "role", role, "error", err)
		notify.Failure(s.notifier, err, "Login failed. Please check your credentials.", "An error occurred while logging in. Please try again later.")
		return nil, err
	}
	s.notifier.Success("Login successful!")
	return sess, nil
}

// registrationRules lists the required inputs of each role's sign-up form.
var registrationRules = map[clinicapi.Role]map[string]string{
	clinicapi.RolePatient: {
		"dateOfBirth":        "required,datetime=2006-01-02",
		"gender":             "omitempty,oneof=male female other",
		"address.street":     "required",
		"address.city":       "required",
		"address.state":      "required",
		"address.postalCode": "required",
	},
	clinicapi.RoleDoctor: {
		"specialty":      "required",
		"clinicLocation": "required",
		"workingHours":   "required",
	},
}

func registrationValues(reg clinicapi.Registration) map[string]string {
	var addr clinicapi.Address
	if reg.Address != nil {
		addr = *reg.Address
	}
	return map[string]string{
		"firstName":          reg.FirstName,
		"lastName":           reg.LastName,
		"email":              reg.Email,
		"password":           reg.Password,
		"contactNumber":      reg.ContactNumber,
		"dateOfBirth":        reg.DateOfBirth,
		"gender":             reg.Gender,
		"address.street":     addr.Street,
		"address.city":       addr.City,
		"address.state":      addr.State,
		"address.postalCode": addr.PostalCode,
		"specialty":          reg.Specialty,
		"clinicLocation":     reg.ClinicLocation,
		"workingHours":       reg.WorkingHours,
	}
}

var commonRules = map[string]string{
	"firstName":     "required",
	"lastName":      "required",
	"email":         "required,email",
	"password":      "required",
	"contactNumber": "required",
}

// ValidateRegistration checks the fields the role's form marks required.
func ValidateRegistration(role clinicapi.Role, reg clinicapi.Registration) error {
	roleRules, ok := registrationRules[role]
	if !ok {
		return ErrRoleNotRegistrable
	}
	values := registrationValues(reg)
	var problems []string
	for _, rules := range []map[string]string{commonRules, roleRules} {
		for field, rule := range rules {
			if err := validate.Var(strings.TrimSpace(values[field]), rule); err != nil {
				problems = append(problems, field)
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrInvalidForm, strings.Join(problems, ", "))
	}
	return nil
}

// Register signs up a patient or a doctor.
func (s *Service) Register(ctx context.Context, role clinicapi.Role, reg clinicapi.Registration) error {
	if err := ValidateRegistration(role, reg); err != nil {
		return err
	}
	if role == clinicapi.RoleDoctor {
		reg.DateOfBirth, reg.Gender, reg.BloodGroup, reg.Address = "", "", "", nil
	} else {
		reg.Specialty, reg.ClinicLocation, reg.WorkingHours, reg.About = "", "", "", ""
	}
	if err := s.backend.Register(ctx, role, reg); err != nil {
		s.logger.Warn("registration failed", "role", role, "error", err)
		notify.Failure(s.notifier, err, "Registration failed. Please try again.", "An error occurred while registering. Please try again later.")
		return err
	}
	s.notifier.Success("Registration successful!")
	s.logger.Info("account registered", "role", role)
	return nil
}

