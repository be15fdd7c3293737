package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/notify"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

type fakeBackend struct {
	registered []clinicapi.Registration
	regErr     error
	otpEmails  []string
	otpErr     error
	resets     [][3]string
	resetErr   error
}

func (f *fakeBackend) Register(_ context.Context, _ clinicapi.Role, reg clinicapi.Registration) error {
	f.registered = append(f.registered, reg)
	return f.regErr
}

func (f *fakeBackend) ForgotPassword(_ context.Context, email string) error {
	f.otpEmails = append(f.otpEmails, email)
	return f.otpErr
}

func (f *fakeBackend) ResetPassword(_ context.Context, email, otp, pw string) error {
	f.resets = append(f.resets, [3]string{email, otp, pw})
	return f.resetErr
}

type fakeSessions struct {
	err error
}

func (f fakeSessions) Login(_ context.Context, role clinicapi.Role, email, _ string) (*session.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &session.Session{Token: "tok", UserID: "u-1", Role: role}, nil
}

func newService(b Backend, s Sessions) (*Service, *notify.Recorder) {
	rec := &notify.Recorder{}
	return NewService(b, s, rec, logging.Discard()), rec
}

func patientForm() clinicapi.Registration {
	return clinicapi.Registration{
		FirstName:     "Asha",
		LastName:      "Verma",
		Email:         "asha@example.com",
		Password:      "secret",
		ContactNumber: "9999999999",
		DateOfBirth:   "1990-04-12",
		Gender:        "female",
		Address:       &clinicapi.Address{Street: "1 MG Road", City: "Gurugram", State: "HR", PostalCode: "122001"},
		Specialty:     "ignored",
	}
}

func TestRegisterPatient(t *testing.T) {
	b := &fakeBackend{}
	svc, rec := newService(b, fakeSessions{})

	require.NoError(t, svc.Register(context.Background(), clinicapi.RolePatient, patientForm()))
	require.Len(t, b.registered, 1)
	assert.Empty(t, b.registered[0].Specialty, "doctor-only fields are dropped")
	last, _ := rec.Last()
	assert.Equal(t, "Registration successful!", last.Message)
}

func TestRegisterValidation(t *testing.T) {
	b := &fakeBackend{}
	svc, _ := newService(b, fakeSessions{})
	ctx := context.Background()

	assert.ErrorIs(t, svc.Register(ctx, clinicapi.RoleAdmin, patientForm()), ErrRoleNotRegistrable)

	bad := patientForm()
	bad.Email = "nope"
	bad.Address = nil
	err := svc.Register(ctx, clinicapi.RolePatient, bad)
	require.ErrorIs(t, err, ErrInvalidForm)
	assert.Contains(t, err.Error(), "address.city")
	assert.Contains(t, err.Error(), "email")

	doctor := clinicapi.Registration{FirstName: "M", LastName: "S", Email: "m@example.com", Password: "x", ContactNumber: "1"}
	err = svc.Register(ctx, clinicapi.RoleDoctor, doctor)
	require.ErrorIs(t, err, ErrInvalidForm)
	assert.Contains(t, err.Error(), "specialty")
	assert.Empty(t, b.registered)
}

func TestRegisterFailureMessages(t *testing.T) {
	b := &fakeBackend{regErr: &clinicapi.LogicalError{Op: "register"}}
	svc, rec := newService(b, fakeSessions{})
	assert.Error(t, svc.Register(context.Background(), clinicapi.RolePatient, patientForm()))
	last, _ := rec.Last()
	assert.Equal(t, "Registration failed. Please try again.", last.Message)

	b.regErr = &clinicapi.HTTPError{Op: "register", StatusCode: 500}
	assert.Error(t, svc.Register(context.Background(), clinicapi.RolePatient, patientForm()))
	last, _ = rec.Last()
	assert.Equal(t, "An error occurred while registering. Please try again later.", last.Message)
}

func TestLogin(t *testing.T) {
	svc, rec := newService(&fakeBackend{}, fakeSessions{})
	sess, err := svc.Login(context.Background(), clinicapi.RoleDoctor, " doc@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, clinicapi.RoleDoctor, sess.Role)
	assert.Equal(t, "/doctor-dashboard", Home(sess.Role))
	last, _ := rec.Last()
	assert.Equal(t, "Login successful!", last.Message)

	_, err = svc.Login(context.Background(), clinicapi.RolePatient, "bad", "pw")
	assert.ErrorIs(t, err, ErrInvalidForm)

	svc, rec = newService(&fakeBackend{}, fakeSessions{err: &clinicapi.LogicalError{Op: "login"}})
	_, err = svc.Login(context.Background(), clinicapi.RolePatient, "p@example.com", "pw")
	assert.Error(t, err)
	last, _ = rec.Last()
	assert.Equal(t, "Login failed. Please check your credentials.", last.Message)
}

func TestPasswordResetFlow(t *testing.T) {
	b := &fakeBackend{}
	svc, rec := newService(b, fakeSessions{})
	ctx := context.Background()
	flow := svc.NewPasswordReset()

	assert.Equal(t, StepRequestOTP, flow.Step())
	assert.ErrorIs(t, flow.Reset(ctx, "123456", "new"), ErrInvalidForm)

	require.NoError(t, flow.RequestOTP(ctx, "asha@example.com"))
	assert.Equal(t, StepResetPassword, flow.Step())
	last, _ := rec.Last()
	assert.Equal(t, "OTP sent to your email!", last.Message)

	require.NoError(t, flow.Reset(ctx, "123456", "new-secret"))
	assert.Equal(t, [][3]string{{"asha@example.com", "123456", "new-secret"}}, b.resets)
	assert.Equal(t, StepRequestOTP, flow.Step())
	assert.Empty(t, flow.Email())
	last, _ = rec.Last()
	assert.Equal(t, "Password reset successful! Please login.", last.Message)
}

func TestPasswordResetUsesBackendMessage(t *testing.T) {
	b := &fakeBackend{otpErr: &clinicapi.LogicalError{Op: "forgot_password", Message: "No account with that email"}}
	svc, rec := newService(b, fakeSessions{})
	flow := svc.NewPasswordReset()

	assert.Error(t, flow.RequestOTP(context.Background(), "x@example.com"))
	assert.Equal(t, StepRequestOTP, flow.Step())
	last, _ := rec.Last()
	assert.Equal(t, "No account with that email", last.Message)

	b.otpErr = &clinicapi.LogicalError{Op: "forgot_password"}
	assert.Error(t, flow.RequestOTP(context.Background(), "x@example.com"))
	last, _ = rec.Last()
	assert.Equal(t, "Failed to send OTP", last.Message)

	b.otpErr = &clinicapi.TransportError{Op: "forgot_password", Err: errors.New("dial")}
	assert.Error(t, flow.RequestOTP(context.Background(), "x@example.com"))
	last, _ = rec.Last()
	assert.Equal(t, "Error sending OTP. Try again later.", last.Message)
}

func TestResetOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/patientauth/forgot-password":
			_ = json.NewEncoder(w).Encode(map[string]any{"status": true})
		case "/patientauth/reset-password":
			_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invalid or expired OTP"})
		}
	}))
	defer server.Close()

	client := clinicapi.New(clinicapi.Config{BaseURL: server.URL, Logger: logging.Discard()})
	svc, rec := newService(client, fakeSessions{})
	flow := svc.NewPasswordReset()
	ctx := context.Background()

	require.NoError(t, flow.RequestOTP(ctx, "asha@example.com"))
	assert.Error(t, flow.Reset(ctx, "000000", "pw"))
	assert.Equal(t, StepResetPassword, flow.Step())
	last, _ := rec.Last()
	assert.Equal(t, "Invalid or expired OTP", last.Message)
}
