// Package timefmt renders slot times and appointment dates for display.
package timefmt

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by the backend.
const DateLayout = "2006-01-02"

// FormatTimeToAMPM converts "HH:MM" to "H:MM AM/PM". Hour 0 is rendered as
// "0" (not "12"); minutes are copied verbatim. Empty input yields "".
func FormatTimeToAMPM(hhmm string) string {
	if hhmm == "" {
		return ""
	}
	hoursPart, minutes, _ := strings.Cut(hhmm, ":")
	hours := leadingInt(hoursPart)

	period := "AM"
	if hours >= 12 {
		period = "PM"
		if hours > 12 {
			hours -= 12
		}
	}
	return strconv.Itoa(hours) + ":" + minutes + " " + period
}

// leadingInt parses the leading decimal digits of s, ignoring the rest.
// Non-numeric input parses as 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// Today returns now's UTC calendar date as "YYYY-MM-DD".
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// ParseDate accepts "YYYY-MM-DD" or an RFC 3339 timestamp and returns the
// UTC calendar date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// DateKey normalises a backend date to "YYYY-MM-DD"; unparseable values are
// returned unchanged.
func DateKey(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format(DateLayout)
	}
	return s
}

// FormatDateDisplay renders an appointment group heading: "Today" for
// today's date, otherwise "Saturday, 1 Jun 2024".
func FormatDateDisplay(date, today string) string {
	if DateKey(date) == today {
		return "Today"
	}
	t, ok := ParseDate(date)
	if !ok {
		return date
	}
	return t.Format("Monday, 2 Jan 2006")
}

// FormatShortDate renders a blog date: "Today" or "Sat, 1 Jun 2024".
func FormatShortDate(date, today string) string {
	if DateKey(date) == today {
		return "Today"
	}
	t, ok := ParseDate(date)
	if !ok {
		return date
	}
	return t.Format("Mon, 2 Jan 2006")
}
