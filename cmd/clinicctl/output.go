package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/wolfman30/clinic-portal/internal/appointments"
	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/content"
	"github.com/wolfman30/clinic-portal/internal/profile"
	"github.com/wolfman30/clinic-portal/internal/timefmt"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func slotTime(s clinicapi.Slot) string {
	return timefmt.FormatTimeToAMPM(s.StartTime) + " - " + timefmt.FormatTimeToAMPM(s.EndTime)
}

func printSlots(w io.Writer, list []clinicapi.Slot, withStatus bool) {
	if len(list) == 0 {
		fmt.Fprintln(w, "(no slots)")
		return
	}
	tw := table(w)
	if withStatus {
		fmt.Fprintln(tw, "ID\tTIME\tSTATUS")
	} else {
		fmt.Fprintln(tw, "ID\tTIME")
	}
	for _, s := range list {
		if !withStatus {
			fmt.Fprintf(tw, "%s\t%s\n", s.ID, slotTime(s))
			continue
		}
		status := "available"
		if !s.IsAvailable {
			status = "unavailable"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, slotTime(s), status)
	}
	_ = tw.Flush()
}

func appointmentRow(tw io.Writer, a clinicapi.Appointment, date string) {
	when := ""
	if a.Slot != nil {
		when = slotTime(*a.Slot)
	}
	who := ""
	switch {
	case a.Patient != nil && a.Patient.FullName() != "":
		who = a.Patient.FullName()
	case a.Doctor != nil && a.Doctor.FullName() != "":
		who = "Dr. " + a.Doctor.FullName()
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, date, when, who, a.Disease, a.Status)
}

func printAppointments(w io.Writer, list []clinicapi.Appointment, today string) {
	if len(list) == 0 {
		fmt.Fprintln(w, "(no appointments)")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tWITH\tREASON\tSTATUS")
	for _, a := range list {
		appointmentRow(tw, a, timefmt.FormatDateDisplay(timefmt.DateKey(a.AppointmentDate), today))
	}
	_ = tw.Flush()
}

func printGroups(w io.Writer, groups []appointments.DateGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "(no appointments)")
		return
	}
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", g.Label, len(g.Appointments))
		tw := table(w)
		for _, a := range g.Appointments {
			appointmentRow(tw, a, g.Date)
		}
		_ = tw.Flush()
	}
}

func printProfile(w io.Writer, fields []profile.Field, record map[string]any) {
	tw := table(w)
	for _, f := range fields {
		v, ok := record[f.Name]
		if !ok || v == nil {
			v = "-"
		}
		fmt.Fprintf(tw, "%s\t%v\t(%s)\n", f.Label, v, f.Name)
	}
	_ = tw.Flush()
}

func printCards(w io.Writer, cards []content.Card) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "(nothing posted yet)")
		return
	}
	for _, c := range cards {
		fmt.Fprintf(w, "* %s\n  %s · %s\n", c.Title, c.Source, c.When)
		if c.Excerpt != "" {
			fmt.Fprintf(w, "  %s\n", c.Excerpt)
		}
		if c.URL != "" {
			fmt.Fprintf(w, "  %s\n", c.URL)
		}
	}
}

func printDoctors(w io.Writer, doctors []clinicapi.Doctor) {
	if len(doctors) == 0 {
		fmt.Fprintln(w, "(no doctors listed)")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tSPECIALTY\tCLINIC\tHOURS")
	for _, d := range doctors {
		fmt.Fprintf(tw, "%s\tDr. %s\t%s\t%s\t%s\n", d.ID, d.FullName(), d.Specialty, d.ClinicLocation, d.WorkingHours)
	}
	_ = tw.Flush()
}
