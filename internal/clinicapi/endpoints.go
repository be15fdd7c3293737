package clinicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GetDoctor fetches a doctor profile.
func (c *Client) GetDoctor(ctx context.Context, doctorID string) (*Doctor, error) {
	var wrapped struct {
		Doctor *Doctor `json:"doctor"`
	}
	if err := c.do(ctx, call{op: "get_doctor", method: http.MethodGet, path: "/doctor/" + url.PathEscape(doctorID), auth: true, out: &wrapped}); err != nil {
		return nil, err
	}
	return wrapped.Doctor, nil
}

// GetPatient fetches a patient profile.
func (c *Client) GetPatient(ctx context.Context, patientID string) (*Patient, error) {
	var wrapped struct {
		Patient *Patient `json:"patient"`
	}
	if err := c.do(ctx, call{op: "get_patient", method: http.MethodGet, path: "/patient/" + url.PathEscape(patientID), auth: true, out: &wrapped}); err != nil {
		return nil, err
	}
	return wrapped.Patient, nil
}

// GetProfileRecord fetches a doctor or patient profile as a loose field map,
// which is what the field-by-field editor works on.
func (c *Client) GetProfileRecord(ctx context.Context, role Role, userID string) (map[string]any, error) {
	if role != RoleDoctor && role != RolePatient {
		return nil, fmt.Errorf("clinicapi: get_profile: %w: unsupported role %q", ErrInvalidQuery, role)
	}
	var wrapped map[string]json.RawMessage
	path := fmt.Sprintf("/%s/%s", role, url.PathEscape(userID))
	if err := c.do(ctx, call{op: "get_profile", method: http.MethodGet, path: path, auth: true, out: &wrapped}); err != nil {
		return nil, err
	}
	raw, ok := wrapped[string(role)]
	if !ok {
		return nil, nil
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("clinicapi: get_profile: decode %s: %w", role, err)
	}
	return record, nil
}

// PatchProfile updates a single profile field: body {field: value, role}.
func (c *Client) PatchProfile(ctx context.Context, role Role, userID, field string, value any) error {
	if role != RoleDoctor && role != RolePatient {
		return fmt.Errorf("clinicapi: patch_profile: %w: unsupported role %q", ErrInvalidQuery, role)
	}
	if strings.TrimSpace(field) == "" || field == "role" {
		return fmt.Errorf("clinicapi: patch_profile: %w: invalid field %q", ErrInvalidQuery, field)
	}
	body := map[string]any{field: value, "role": string(role)}
	path := fmt.Sprintf("/%s/%s", role, url.PathEscape(userID))
	return c.do(ctx, call{op: "patch_profile", method: http.MethodPatch, path: path, auth: true, body: body})
}

// ListDoctors returns every doctor in backend order.
func (c *Client) ListDoctors(ctx context.Context) ([]Doctor, error) {
	var wrapped struct {
		Doctors []Doctor `json:"doctors"`
	}
	if err := c.do(ctx, call{op: "list_doctors", method: http.MethodGet, path: "/doctor/all", auth: true, out: &wrapped}); err != nil {
		return nil, err
	}
	return wrapped.Doctors, nil
}

// ListAppointments returns the role-scoped appointment list for a user.
func (c *Client) ListAppointments(ctx context.Context, role Role, userID string) ([]Appointment, error) {
	if role != RoleDoctor && role != RolePatient {
		return nil, fmt.Errorf("clinicapi: list_appointments: %w: unsupported role %q", ErrInvalidQuery, role)
	}
	var wrapped struct {
		Appointment []Appointment `json:"appointment"`
	}
	path := fmt.Sprintf("/appointment/%s/%s", role, url.PathEscape(userID))
	if err := c.do(ctx, call{op: "list_appointments", method: http.MethodGet, path: path, auth: true, out: &wrapped}); err != nil {
		return nil, err
	}
	return wrapped.Appointment, nil
}

// ListSlots is the single slot query. Both DoctorID and Date are required.
func (c *Client) ListSlots(ctx context.Context, q SlotQuery) ([]Slot, error) {
	if strings.TrimSpace(q.DoctorID) == "" || strings.TrimSpace(q.Date) == "" {
		return nil, fmt.Errorf("clinicapi: list_slots: %w: doctorId and date are required", ErrInvalidQuery)
	}
	params := url.Values{}
	params.Set("doctorId", q.DoctorID)
	params.Set("date", q.Date)

	path := "/appointment/doctor/slots?"
	if q.ExcludeUnavailable {
		path = "/appointment/slots?"
	}
	var wrapped struct {
		Slots []Slot `json:"slots"`
	}
	if err := c.do(ctx, call{op: "list_slots", method: http.MethodGet, path: path + params.Encode(), auth: true, out: &wrapped}); err != nil {
		return nil, err
	}
	return wrapped.Slots, nil
}

// GenerateSlots asks the backend to create the day's slots for a doctor.
func (c *Client) GenerateSlots(ctx context.Context, doctorID, date string) error {
	if strings.TrimSpace(doctorID) == "" || strings.TrimSpace(date) == "" {
		return fmt.Errorf("clinicapi: generate_slots: %w: doctorId and date are required", ErrInvalidQuery)
	}
	path := fmt.Sprintf("/appointment/doctor/%s/generate-slots", url.PathEscape(doctorID))
	return c.do(ctx, call{op: "generate_slots", method: http.MethodPost, path: path, auth: true, body: map[string]string{"date": date}})
}

// SetSlotAvailability flips a slot's bookability. The returned slot is nil
// when the backend does not echo it.
func (c *Client) SetSlotAvailability(ctx context.Context, slotID string, available bool) (*Slot, error) {
	var wrapped struct {
		Slot *Slot `json:"slot"`
	}
	path := fmt.Sprintf("/appointment/slot/%s/availability", url.PathEscape(slotID))
	if err := c.do(ctx, call{op: "set_slot_availability", method: http.MethodPatch, path: path, auth: true, body: map[string]bool{"available": available}, out: &wrapped}); err != nil {
		return nil, err
	}
	return wrapped.Slot, nil
}

// EditSlotTimings changes a slot's start and end time. The backend refuses
// booked slots.
func (c *Client) EditSlotTimings(ctx context.Context, slotID, startTime, endTime string) (*Slot, error) {
	var wrapped struct {
		Slot *Slot `json:"slot"`
	}
	path := fmt.Sprintf("/appointment/slot/%s/timings", url.PathEscape(slotID))
	body := map[string]string{"startTime": startTime, "endTime": endTime}
	if err := c.do(ctx, call{op: "edit_slot_timings", method: http.MethodPatch, path: path, auth: true, body: body, out: &wrapped}); err != nil {
		return nil, err
	}
	if wrapped.Slot == nil {
		return nil, fmt.Errorf("clinicapi: edit_slot_timings: response missing slot")
	}
	return wrapped.Slot, nil
}

// BookAppointment reserves a slot for a patient. The returned appointment is
// nil when the backend does not echo it.
func (c *Client) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	var wrapped struct {
		Appointment *Appointment `json:"appointment"`
	}
	if err := c.do(ctx, call{op: "book_appointment", method: http.MethodPost, path: "/appointment/book", auth: true, body: req, out: &wrapped}); err != nil {
		return nil, err
	}
	return wrapped.Appointment, nil
}

// UpdateAppointmentStatus sets an appointment's status: body {status, role}.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, appointmentID string, status AppointmentStatus, role Role) error {
	body := map[string]string{"status": string(status), "role": string(role)}
	path := "/appointment/" + url.PathEscape(appointmentID)
	return c.do(ctx, call{op: "update_appointment_status", method: http.MethodPatch, path: path, auth: true, body: body})
}

// UpdateAppointment applies a reschedule: body {updatedData, role}.
func (c *Client) UpdateAppointment(ctx context.Context, appointmentID string, update AppointmentUpdate, role Role) error {
	body := struct {
		UpdatedData AppointmentUpdate `json:"updatedData"`
		Role        Role              `json:"role"`
	}{update, role}
	path := "/appointment/" + url.PathEscape(appointmentID)
	return c.do(ctx, call{op: "update_appointment", method: http.MethodPatch, path: path, auth: true, body: body})
}

// DeleteAppointment removes an appointment.
func (c *Client) DeleteAppointment(ctx context.Context, appointmentID string) error {
	path := "/appointment/" + url.PathEscape(appointmentID)
	return c.do(ctx, call{op: "delete_appointment", method: http.MethodDelete, path: path, auth: true})
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, role Role, email, password string) (*LoginResult, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("clinicapi: login: %w: unsupported role %q", ErrInvalidQuery, role)
	}
	body := map[string]string{"email": email, "password": password, "role": string(role)}
	var result LoginResult
	if err := c.do(ctx, call{op: "login", method: http.MethodPost, path: fmt.Sprintf("/%s/login", role), body: body, out: &result}); err != nil {
		return nil, err
	}
	if !result.Status || result.Token == "" {
		return nil, &LogicalError{Op: "login", Message: result.Message}
	}
	return &result, nil
}

// Register signs up a patient or a doctor.
func (c *Client) Register(ctx context.Context, role Role, reg Registration) error {
	if role != RoleDoctor && role != RolePatient {
		return fmt.Errorf("clinicapi: register: %w: unsupported role %q", ErrInvalidQuery, role)
	}
	var result envelope
	if err := c.do(ctx, call{op: "register", method: http.MethodPost, path: fmt.Sprintf("/%s/register", role), body: reg, out: &result}); err != nil {
		return err
	}
	if !result.accepted() {
		return &LogicalError{Op: "register", Message: result.Message}
	}
	return nil
}

// ForgotPassword requests a reset OTP by email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.passwordCall(ctx, "forgot_password", "/patientauth/forgot-password", map[string]string{"email": email})
}

// ResetPassword sets a new password using the emailed OTP.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	body := map[string]string{"email": email, "otp": otp, "newPassword": newPassword}
	return c.passwordCall(ctx, "reset_password", "/patientauth/reset-password", body)
}

func (c *Client) passwordCall(ctx context.Context, op, path string, body any) error {
	var result envelope
	if err := c.do(ctx, call{op: op, method: http.MethodPost, path: path, body: body, out: &result}); err != nil {
		return err
	}
	if !result.accepted() {
		return &LogicalError{Op: op, Message: result.Message}
	}
	return nil
}

// PublicBlogs lists blogs posted by doctors; no session needed.
func (c *Client) PublicBlogs(ctx context.Context) ([]Blog, error) {
	var wrapped struct {
		Blogs []Blog `json:"blogs"`
	}
	if err := c.do(ctx, call{op: "public_blogs", method: http.MethodGet, path: "/doctor/blogs/public", out: &wrapped}); err != nil {
		return nil, err
	}
	return wrapped.Blogs, nil
}
