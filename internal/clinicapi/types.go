// Package clinicapi contains the clinic backend REST client and its wire types.
package clinicapi

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Role determines which endpoints and views a session can reach.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalises user input into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// AppointmentStatus is the lifecycle state of an appointment. Any role may
// set any value; the client does not restrict transitions.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCanceled  AppointmentStatus = "canceled"
)

// Valid reports whether s is one of the three known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Address is a patient's postal address.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// Doctor is the backend's doctor profile.
type Doctor struct {
	ID             string `json:"_id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	ContactNumber  string `json:"contactNumber,omitempty"`
	Specialty      string `json:"specialty,omitempty"`
	ClinicLocation string `json:"clinicLocation,omitempty"`
	WorkingHours   string `json:"workingHours,omitempty"`
	About          string `json:"about,omitempty"`
	ProfileImage   string `json:"profileImage,omitempty"`
}

// FullName joins first and last name.
func (d Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Patient is the backend's patient profile.
type Patient struct {
	ID            string  `json:"_id"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Email         string  `json:"email"`
	ContactNumber string  `json:"contactNumber,omitempty"`
	Gender        string  `json:"gender,omitempty"`
	DateOfBirth   string  `json:"dateOfBirth,omitempty"`
	Address       Address `json:"address,omitempty"`
	BloodGroup    string  `json:"bloodGroup,omitempty"`
}

// PersonRef is a reference to a doctor or patient. The backend returns either
// a populated object or a bare id string depending on the endpoint.
type PersonRef struct {
	ID            string `json:"_id"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Email         string `json:"email,omitempty"`
	ContactNumber string `json:"contactNumber,omitempty"`
	Specialty     string `json:"specialty,omitempty"`
}

func (p *PersonRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.ID)
	}
	type plain PersonRef
	return json.Unmarshal(data, (*plain)(p))
}

// FullName joins first and last name.
func (p PersonRef) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Slot is a bookable interval owned by one doctor on one date. Times are
// zero-padded 24h wall-clock strings ("09:30").
type Slot struct {
	ID          string     `json:"_id"`
	Doctor      *PersonRef `json:"doctor,omitempty"`
	Date        string     `json:"date,omitempty"`
	StartTime   string     `json:"startTime"`
	EndTime     string     `json:"endTime"`
	IsAvailable bool       `json:"isAvailable"`
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.ID)
	}
	type plain Slot
	return json.Unmarshal(data, (*plain)(s))
}

// Appointment links one patient, one doctor and one slot.
type Appointment struct {
	ID              string            `json:"_id"`
	Doctor          *PersonRef        `json:"doctor,omitempty"`
	Patient         *PersonRef        `json:"patient,omitempty"`
	Slot            *Slot             `json:"slot,omitempty"`
	AppointmentDate string            `json:"appointmentDate"`
	Disease         string            `json:"disease"`
	Status          AppointmentStatus `json:"status"`
	AdditionalInfo  string            `json:"additionalInfo,omitempty"`
}

// DoctorID returns the referenced doctor's id, if any.
func (a Appointment) DoctorID() string {
	if a.Doctor == nil {
		return ""
	}
	return a.Doctor.ID
}

// SlotID returns the held slot's id, if any.
func (a Appointment) SlotID() string {
	if a.Slot == nil {
		return ""
	}
	return a.Slot.ID
}

// SlotQuery is the canonical slot listing query. DoctorID and Date are
// required; ExcludeUnavailable restricts the result to bookable slots.
type SlotQuery struct {
	DoctorID           string
	Date               string
	ExcludeUnavailable bool
}

// BookingRequest is the payload for booking a slot.
type BookingRequest struct {
	Patient string `json:"patient"`
	Doctor  string `json:"doctor"`
	SlotID  string `json:"slotId"`
	Disease string `json:"disease"`
}

// AppointmentUpdate carries a patient's reschedule edits.
type AppointmentUpdate struct {
	DoctorID        string            `json:"doctorId,omitempty"`
	AppointmentDate string            `json:"appointmentDate"`
	SlotID          string            `json:"slotId"`
	Disease         string            `json:"disease"`
	Status          AppointmentStatus `json:"status"`
	AdditionalInfo  string            `json:"additionalInfo,omitempty"`
}

// LoginResult is returned by the role login endpoints.
type LoginResult struct {
	Status  bool   `json:"status"`
	Token   string `json:"token"`
	UserID  string `json:"userId"`
	Message string `json:"message,omitempty"`
}

// Registration is the sign-up form. Doctor-only and patient-only fields are
// omitted from the payload when empty.
type Registration struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	ContactNumber  string   `json:"contactNumber,omitempty"`
	DateOfBirth    string   `json:"dateOfBirth,omitempty"`
	Gender         string   `json:"gender,omitempty"`
	Address        *Address `json:"address,omitempty"`
	BloodGroup     string   `json:"bloodGroup,omitempty"`
	Specialty      string   `json:"specialty,omitempty"`
	ClinicLocation string   `json:"clinicLocation,omitempty"`
	WorkingHours   string   `json:"workingHours,omitempty"`
	About          string   `json:"about,omitempty"`
}

// Blog is a public article posted by a doctor.
type Blog struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Image     string     `json:"image,omitempty"`
	Author    *PersonRef `json:"author,omitempty"`
	CreatedAt string     `json:"createdAt,omitempty"`
}
