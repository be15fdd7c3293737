package accounts

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/notify"
)

// ResetStep is the visible step of the forgot-password screen.
type ResetStep int

const (
	StepRequestOTP ResetStep = iota + 1
	StepResetPassword
)

// PasswordReset is the two-step forgot-password flow: request an OTP by
// email, then submit the OTP with a new password.
type PasswordReset struct {
	svc *Service

	mu    sync.Mutex
	step  ResetStep
	email string
}

// NewPasswordReset starts the flow at the email step.
func (s *Service) NewPasswordReset() *PasswordReset {
	return &PasswordReset{svc: s, step: StepRequestOTP}
}

// Step returns the current step.
func (p *PasswordReset) Step() ResetStep {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.step
}

// Email returns the address the OTP was sent to.
func (p *PasswordReset) Email() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.email
}

// Resume jumps straight to the second step for an OTP already sent to email,
// as the CLI does between invocations.
func (p *PasswordReset) Resume(email string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.email = strings.TrimSpace(email)
	p.step = StepResetPassword
}

// RequestOTP asks the backend to email an OTP and moves to the second step.
func (p *PasswordReset) RequestOTP(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: email: %v", ErrInvalidForm, err)
	}
	if err := p.svc.backend.ForgotPassword(ctx, email); err != nil {
		p.svc.logger.Warn("otp request failed", "error", err)
		p.reportFailure(err, "Failed to send OTP", "Error sending OTP. Try again later.")
		return err
	}

	p.mu.Lock()
	p.email = email
	p.step = StepResetPassword
	p.mu.Unlock()

	p.svc.notifier.Success("OTP sent to your email!")
	return nil
}

// Reset submits the OTP and new password. On success the flow returns to
// the first step with everything cleared.
func (p *PasswordReset) Reset(ctx context.Context, otp, newPassword string) error {
	p.mu.Lock()
	step, email := p.step, p.email
	p.mu.Unlock()

	if step != StepResetPassword {
		return fmt.Errorf("%w: request an OTP first", ErrInvalidForm)
	}
	if strings.TrimSpace(otp) == "" || newPassword == "" {
		return fmt.Errorf("%w: otp and new password are required", ErrInvalidForm)
	}
	if err := p.svc.backend.ResetPassword(ctx, email, strings.TrimSpace(otp), newPassword); err != nil {
		p.svc.logger.Warn("password reset failed", "error", err)
		p.reportFailure(err, "Failed to reset password", "Error resetting password. Try again later.")
		return err
	}

	p.mu.Lock()
	p.step = StepRequestOTP
	p.email = ""
	p.mu.Unlock()

	p.svc.notifier.Success("Password reset successful! Please login.")
	return nil
}

// reportFailure prefers the backend's own message when it rejected the
// request.
func (p *PasswordReset) reportFailure(err error, rejected, failed string) {
	if msg := clinicapi.BackendMessage(err); msg != "" {
		rejected = msg
	}
	notify.Failure(p.svc.notifier, err, rejected, failed)
}
