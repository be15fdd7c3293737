package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wolfman30/clinic-portal/internal/appointments"
	"github.com/wolfman30/clinic-portal/internal/booking"
	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/content"
	"github.com/wolfman30/clinic-portal/internal/profile"
	"github.com/wolfman30/clinic-portal/internal/slots"
	"github.com/wolfman30/clinic-portal/internal/timefmt"
)

func newFlags(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("clinicctl "+name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parseFlags parses args and checks that every flag in required was given a
// non-empty value.
func parseFlags(a *app, fs *flag.FlagSet, args []string, required ...string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	for _, name := range required {
		if f := fs.Lookup(name); f == nil || strings.TrimSpace(f.Value.String()) == "" {
			fmt.Fprintf(a.errOut, "%s: missing -%s\n", fs.Name(), name)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func visited(fs *flag.FlagSet, name string) bool {
	seen := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			seen = true
		}
	})
	return seen
}

func subcommand(a *app, group string, args []string, names ...string) (string, []string, error) {
	if len(args) > 0 {
		for _, n := range names {
			if args[0] == n {
				return n, args[1:], nil
			}
		}
	}
	fmt.Fprintf(a.errOut, "usage: clinicctl %s %s [flags]\n", group, strings.Join(names, "|"))
	return "", nil, errUsage
}

func today() string {
	return timefmt.Today(time.Now())
}

func parseRole(a *app, raw string) (clinicapi.Role, error) {
	role, ok := clinicapi.ParseRole(raw)
	if !ok {
		fmt.Fprintf(a.errOut, "unknown role %q; use patient, doctor or admin\n", raw)
		return "", errUsage
	}
	return role, nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "login")
	role := fs.String("role", "patient", "patient, doctor or admin")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("CLINIC_PASSWORD"), "password (defaults to $CLINIC_PASSWORD)")
	if err := parseFlags(a, fs, args, "email", "password"); err != nil {
		return err
	}
	r, err := parseRole(a, *role)
	if err != nil {
		return err
	}
	sess, err := a.accounts().Login(ctx, r, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s %s\n", sess.Role, sess.UserID)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.sessions.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	sess, err := a.sessions.Current(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "user:    %s\nrole:    %s\nsince:   %s\n", sess.UserID, sess.Role, sess.IssuedAt.Format(time.RFC3339))
	if !sess.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "expires: %s\n", sess.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func cmdSlots(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand(a, "slots", args, "list", "generate", "toggle", "edit")
	if err != nil {
		return err
	}
	fs := newFlags(a, "slots "+sub)
	date := fs.String("date", today(), "YYYY-MM-DD")
	slotID := fs.String("slot", "", "slot id")
	start := fs.String("start", "", "new start time HH:MM")
	end := fs.String("end", "", "new end time HH:MM")
	var required []string
	switch sub {
	case "toggle":
		required = []string{"slot"}
	case "edit":
		required = []string{"slot", "start", "end"}
	}
	if err := parseFlags(a, fs, rest, required...); err != nil {
		return err
	}

	sess, err := a.requireRole(ctx, clinicapi.RoleDoctor)
	if err != nil {
		return err
	}
	m := slots.NewManager(a.client, sess.UserID, a.notifier, a.logger)
	if err := m.SelectDate(ctx, *date); err != nil {
		return err
	}

	switch sub {
	case "generate":
		if err := m.Generate(ctx); err != nil {
			return err
		}
	case "toggle":
		current, ok := findSlot(m.Slots(), *slotID)
		if !ok {
			return fmt.Errorf("no slot %s on %s", *slotID, m.Date())
		}
		if err := m.SetAvailability(ctx, *slotID, !current.IsAvailable); err != nil {
			return err
		}
	case "edit":
		if err := m.StartEdit(*slotID); err != nil {
			return err
		}
		if err := m.SetDraft(slots.Draft{StartTime: *start, EndTime: *end}); err != nil {
			return err
		}
		if err := m.SaveEdit(ctx); err != nil {
			return err
		}
	}

	printSlots(a.out, m.Slots(), true)
	if m.NeedsGeneration() {
		fmt.Fprintf(a.out, "no slots on %s; run: clinicctl slots generate -date %s\n", m.Date(), m.Date())
	}
	return nil
}

func findSlot(list []clinicapi.Slot, id string) (clinicapi.Slot, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return clinicapi.Slot{}, false
}

func cmdAppointments(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand(a, "appointments", args, "list", "status", "delete", "reschedule")
	if err != nil {
		return err
	}
	fs := newFlags(a, "appointments "+sub)
	id := fs.String("id", "", "appointment id")
	status := fs.String("status", "", "scheduled, completed or canceled")
	date := fs.String("date", "", "reschedule date YYYY-MM-DD")
	slotID := fs.String("slot", "", "reschedule slot id")
	disease := fs.String("disease", "", "reason for the visit")
	info := fs.String("info", "", "additional information")
	var required []string
	switch sub {
	case "status":
		required = []string{"id", "status"}
	case "delete", "reschedule":
		required = []string{"id"}
	}
	if err := parseFlags(a, fs, rest, required...); err != nil {
		return err
	}

	sess, err := a.requireRole(ctx, clinicapi.RoleDoctor, clinicapi.RolePatient)
	if err != nil {
		return err
	}
	list := appointments.NewList(a.client, a.sessions, a.notifier, a.logger)
	if err := list.Load(ctx); err != nil {
		return err
	}

	switch sub {
	case "status":
		if err := list.SetStatus(ctx, *id, clinicapi.AppointmentStatus(*status)); err != nil {
			return err
		}
	case "delete":
		if err := list.Delete(ctx, *id); err != nil {
			return err
		}
	case "reschedule":
		return reschedule(ctx, a, fs, list, *id, *date, *slotID, *disease, *status, *info)
	}

	if sess.Role == clinicapi.RoleDoctor {
		printGroups(a.out, list.Grouped())
	} else {
		printAppointments(a.out, list.Appointments(), today())
	}
	return nil
}

func reschedule(ctx context.Context, a *app, fs *flag.FlagSet, list *appointments.List, id, date, slotID, disease, status, info string) error {
	dialog, err := list.OpenReschedule(ctx, id)
	if err != nil {
		return err
	}
	if date != "" && date != dialog.Date() {
		if err := dialog.SelectDate(ctx, date); err != nil {
			return err
		}
	}
	if slotID == "" {
		fmt.Fprintf(a.out, "selectable slots on %s:\n", dialog.Date())
		printSlots(a.out, dialog.Slots(), false)
		if held := dialog.SelectedSlot(); held != "" {
			fmt.Fprintf(a.out, "currently held: %s\n", held)
		}
		fmt.Fprintln(a.out, "pick one with -slot")
		return nil
	}
	if err := dialog.SelectSlot(slotID); err != nil {
		return err
	}
	if visited(fs, "disease") {
		dialog.SetDisease(disease)
	}
	if visited(fs, "status") {
		if err := dialog.SetStatus(clinicapi.AppointmentStatus(status)); err != nil {
			return err
		}
	}
	if visited(fs, "info") {
		dialog.SetAdditionalInfo(info)
	}
	if err := dialog.Save(ctx); err != nil {
		return err
	}
	printAppointments(a.out, list.Appointments(), today())
	return nil
}

func cmdBook(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "book")
	doctorID := fs.String("doctor", "", "doctor id")
	date := fs.String("date", "", "YYYY-MM-DD")
	slotID := fs.String("slot", "", "slot id; omit to list open slots")
	reason := fs.String("reason", "", "reason for the visit")
	if err := parseFlags(a, fs, args, "doctor", "date"); err != nil {
		return err
	}
	if _, err := a.requireRole(ctx, clinicapi.RolePatient); err != nil {
		return err
	}

	form := booking.NewForm(a.client, a.sessions, *doctorID, a.notifier, a.logger)
	if err := form.SelectDate(ctx, *date); err != nil {
		return err
	}
	if *slotID == "" {
		fmt.Fprintf(a.out, "open slots on %s:\n", form.Date())
		printSlots(a.out, form.Slots(), false)
		return nil
	}
	if err := form.SelectSlot(*slotID); err != nil {
		return err
	}
	form.SetDisease(*reason)
	appt, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	if appt != nil && appt.ID != "" {
		fmt.Fprintf(a.out, "booked appointment %s\n", appt.ID)
	}
	return nil
}

func cmdProfile(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand(a, "profile", args, "show", "set")
	if err != nil {
		return err
	}
	fs := newFlags(a, "profile "+sub)
	field := fs.String("field", "", "field name, e.g. contactNumber")
	value := fs.String("value", "", "new value")
	var required []string
	if sub == "set" {
		required = []string{"field"}
	}
	if err := parseFlags(a, fs, rest, required...); err != nil {
		return err
	}

	editor := profile.NewEditor(a.client, a.sessions, a.notifier, a.logger)
	if err := editor.Load(ctx); err != nil {
		return err
	}
	if sub == "set" {
		if err := editor.Set(ctx, *field, *value); err != nil {
			return err
		}
	}
	if !editor.Loaded() {
		fmt.Fprintln(a.out, "profile could not be loaded")
		return nil
	}
	printProfile(a.out, editor.Fields(), editor.Record())
	return nil
}

func (a *app) content() *content.Service {
	return content.NewService(a.client, a.sessions, a.logger)
}

func cmdBlogs(ctx context.Context, a *app, _ []string) error {
	fmt.Fprintln(a.out, "Featured")
	printCards(a.out, content.FeaturedBlogs())
	fmt.Fprintln(a.out, "\nFrom our doctors")
	printCards(a.out, a.content().DoctorBlogs(ctx))
	return nil
}

func cmdDoctors(ctx context.Context, a *app, _ []string) error {
	doctors, err := a.content().Directory(ctx)
	if err != nil {
		return err
	}
	printDoctors(a.out, doctors)
	return nil
}

func cmdDashboard(ctx context.Context, a *app, _ []string) error {
	if _, err := a.requireRole(ctx, clinicapi.RolePatient); err != nil {
		return err
	}
	dash, err := a.content().PatientDashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "appointments: %d\n\n", dash.TotalAppointments)
	printDoctors(a.out, dash.Doctors)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "register")
	role := fs.String("role", "patient", "patient or doctor")
	var reg clinicapi.Registration
	var addr clinicapi.Address
	fs.StringVar(&reg.FirstName, "first", "", "first name")
	fs.StringVar(&reg.LastName, "last", "", "last name")
	fs.StringVar(&reg.Email, "email", "", "email")
	fs.StringVar(&reg.Password, "password", os.Getenv("CLINIC_PASSWORD"), "password (defaults to $CLINIC_PASSWORD)")
	fs.StringVar(&reg.ContactNumber, "phone", "", "contact number")
	fs.StringVar(&reg.DateOfBirth, "dob", "", "patient: date of birth YYYY-MM-DD")
	fs.StringVar(&reg.Gender, "gender", "", "patient: male, female or other")
	fs.StringVar(&reg.BloodGroup, "blood-group", "", "patient: blood group")
	fs.StringVar(&addr.Street, "street", "", "patient: street")
	fs.StringVar(&addr.City, "city", "", "patient: city")
	fs.StringVar(&addr.State, "state", "", "patient: state")
	fs.StringVar(&addr.PostalCode, "postal-code", "", "patient: postal code")
	fs.StringVar(&reg.Specialty, "specialty", "", "doctor: specialty")
	fs.StringVar(&reg.ClinicLocation, "clinic", "", "doctor: clinic location")
	fs.StringVar(&reg.WorkingHours, "hours", "", "doctor: working hours")
	fs.StringVar(&reg.About, "about", "", "doctor: about")
	if err := parseFlags(a, fs, args); err != nil {
		return err
	}
	r, err := parseRole(a, *role)
	if err != nil {
		return err
	}
	if addr != (clinicapi.Address{}) {
		reg.Address = &addr
	}
	if err := a.accounts().Register(ctx, r, reg); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered; log in with: clinicctl login -role %s -email %s\n", r, reg.Email)
	return nil
}

func cmdForgotPassword(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "forgot-password")
	email := fs.String("email", "", "account email")
	if err := parseFlags(a, fs, args, "email"); err != nil {
		return err
	}
	flow := a.accounts().NewPasswordReset()
	if err := flow.RequestOTP(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "then run: clinicctl reset-password -email %s -otp CODE -password NEW\n", flow.Email())
	return nil
}

func cmdResetPassword(ctx context.Context, a *app, args []string) error {
	fs := newFlags(a, "reset-password")
	email := fs.String("email", "", "account email")
	otp := fs.String("otp", "", "code from the email")
	password := fs.String("password", os.Getenv("CLINIC_PASSWORD"), "new password (defaults to $CLINIC_PASSWORD)")
	if err := parseFlags(a, fs, args, "email", "otp", "password"); err != nil {
		return err
	}
	flow := a.accounts().NewPasswordReset()
	flow.Resume(*email)
	return flow.Reset(ctx, *otp, *password)
}
