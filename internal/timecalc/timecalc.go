package timecalc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar day format accepted on the command line and
// embedded in free text.
const DateLayout = "2006-01-02"

// StampLayout is the wall-clock format used for display and storage.
const StampLayout = "2006-01-02 15:04:05"

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatDurationHHMMSS formats seconds as HH:MM:SS.
func FormatDurationHHMMSS(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := StartOfDay(t.AddDate(0, 0, -(wd - 1)))
	sunday := EndOfDay(monday.AddDate(0, 0, 6))
	return monday, sunday
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate parses a YYYY-MM-DD (or YYYY/MM/DD) calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, "2006/01/02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return StartOfDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

// ParseZoned parses an ISO 8601 date-time and returns it in local time. A
// value without an offset is wall-clock time in zone, an IANA name; an empty
// zone means local time. Fractional seconds of any precision are accepted.
func ParseZoned(value, zone string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.In(time.Local), nil
	}
	loc := time.Local
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown time zone %q", zone)
		}
		loc = l
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse date-time %q", value)
	}
	return t.In(time.Local), nil
}

var clockRe = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?(?::(\d{2}))?\s*(am|pm)?$`)

// ParseClock resolves a clock token such as "9", "09:30", "9am" or "11:15 pm"
// on the calendar day of date.
func ParseClock(date time.Time, token string) (time.Time, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return time.Time{}, fmt.Errorf("cannot parse time %q", token)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, sec := 0, 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	switch strings.ToLower(m[4]) {
	case "am":
		if hour < 1 || hour > 12 {
			return time.Time{}, fmt.Errorf("hour out of range in %q", token)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return time.Time{}, fmt.Errorf("hour out of range in %q", token)
		}
		if hour != 12 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("time out of range in %q", token)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, sec, 0, date.Location()), nil
}
