package appointments

import (
	"sort"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/internal/timefmt"
)

// DateGroup is one date heading of the doctor's appointment table.
type DateGroup struct {
	Date         string                  `json:"date"`
	Label        string                  `json:"label"`
	Today        bool                    `json:"today"`
	Appointments []clinicapi.Appointment `json:"appointments"`
}

// GroupByDate buckets appointments by appointment date. Today's group, if
// present, comes first; every other date follows in ascending order whether
// it is in the past or the future. Within a group the input order is kept.
func GroupByDate(appts []clinicapi.Appointment, today string) []DateGroup {
	index := make(map[string]int)
	var groups []DateGroup
	for _, a := range appts {
		key := timefmt.DateKey(a.AppointmentDate)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DateGroup{
				Date:  key,
				Label: timefmt.FormatDateDisplay(key, today),
				Today: key == today,
			})
		}
		groups[i].Appointments = append(groups[i].Appointments, a)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Today != groups[j].Today {
			return groups[i].Today
		}
		return dateBefore(groups[i].Date, groups[j].Date)
	})
	return groups
}

// dateBefore compares chronologically when both dates parse, lexically
// otherwise; unparseable dates sort after real ones.
func dateBefore(a, b string) bool {
	ta, okA := timefmt.ParseDate(a)
	tb, okB := timefmt.ParseDate(b)
	switch {
	case okA && okB:
		return ta.Before(tb)
	case okA != okB:
		return okA
	}
	return a < b
}
