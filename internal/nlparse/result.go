// Package nlparse turns a single line of free text such as
// "yesterday worked on Acme from 09:00 to 11:00" into a structured time log.
package nlparse

import (
	"time"

	"github.com/Tiliavir/timescribe/internal/model"
)

// ErrorKind tags why a parse could not produce a usable interval.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	// DateUnresolved: no calendar day could be determined.
	DateUnresolved
	// TimeUnresolved: no start, end or duration signal at all.
	TimeUnresolved
	// DerivationFailed: signals were present but did not yield both endpoints.
	DerivationFailed
	// OrderingInvalid: end is not after start.
	OrderingInvalid
	// CrossMidnight: start and end fall on different calendar days.
	CrossMidnight
)

var kindMessages = map[ErrorKind]string{
	DateUnresolved:   `Unable to determine a date. Try adding "yesterday" or use --date=YYYY-MM-DD.`,
	TimeUnresolved:   `Unable to determine a time range or duration. Try "from 09:00 to 11:00" or "for 2h", or use --start/--end/--duration.`,
	DerivationFailed: "Unable to compute a start/end time from the provided text/options.",
	OrderingInvalid:  "End time must be after start time.",
	CrossMidnight:    "Cross-midnight ranges are not supported. Split into two logs.",
}

// Message returns the user facing explanation for k.
func (k ErrorKind) Message() string {
	return kindMessages[k]
}

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case DateUnresolved:
		return "date_unresolved"
	case TimeUnresolved:
		return "time_unresolved"
	case DerivationFailed:
		return "derivation_failed"
	case OrderingInvalid:
		return "ordering_invalid"
	case CrossMidnight:
		return "cross_midnight"
	}
	return "unknown"
}

// Overrides are explicit values that win over anything found in the text.
// Empty strings mean "not given".
type Overrides struct {
	Category *model.Category
	Date     string
	Start    string
	End      string
	Duration string
}

// Result is the outcome of a single parse. Terminal failures still carry
// every field that was computed before the failing step.
type Result struct {
	Err              ErrorKind
	Category         model.Category
	Date             *time.Time
	StartAt          *time.Time
	EndAt            *time.Time
	DurationSeconds  *int64
	GuessedStart     bool
	Description      string
	ProjectCandidate string
}

// OK reports whether the parse produced a complete interval.
func (r Result) OK() bool {
	return r.Err == KindNone
}
