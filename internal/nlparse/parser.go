package nlparse

import (
	"log/slog"
	"time"

	"github.com/Tiliavir/timescribe/internal/timecalc"
)

// defaultStartHour anchors duration-only logs that carry no time of day.
const defaultStartHour = 9

// Parse extracts a category, date, start/end and project hint from text.
// Overrides win over the heuristics field by field; now supplies the
// reference day for relative keywords and the default date.
func Parse(text string, now time.Time, o Overrides) Result {
	res := Result{Description: normalize(text)}

	if o.Category != nil {
		res.Category = *o.Category
	} else {
		res.Category = detectCategory(res.Description)
	}

	res.Date = detectDate(res.Description, now, o.Date)
	if res.Date == nil {
		return fail(res, DateUnresolved)
	}

	startToken := o.Start
	if startToken == "" {
		startToken = detectStart(res.Description)
	}
	endToken := o.End
	if endToken == "" {
		endToken = detectEnd(res.Description)
	}
	if o.Duration != "" {
		res.DurationSeconds = parseDurationOverride(o.Duration)
	} else {
		res.DurationSeconds = parseDuration(res.Description)
	}

	res.ProjectCandidate = guessProject(res.Description)

	if startToken == "" && endToken == "" && res.DurationSeconds == nil {
		return fail(res, TimeUnresolved)
	}

	start, end, guessed := derive(*res.Date, startToken, endToken, res.DurationSeconds)
	if start == nil || end == nil {
		return fail(res, DerivationFailed)
	}
	if !end.After(*start) {
		return fail(res, OrderingInvalid)
	}
	if !timecalc.SameDay(*start, *end) {
		return fail(res, CrossMidnight)
	}

	res.StartAt, res.EndAt, res.GuessedStart = start, end, guessed
	slog.Debug("parsed time log",
		"category", res.Category,
		"start", start.Format(timecalc.StampLayout),
		"end", end.Format(timecalc.StampLayout),
		"guessed_start", guessed,
		"project_candidate", res.ProjectCandidate)
	return res
}

// derive resolves the clock tokens on date and fills in whichever endpoint is
// missing from the duration.
func derive(date time.Time, startToken, endToken string, duration *int64) (*time.Time, *time.Time, bool) {
	start := resolveClock(date, startToken)
	end := resolveClock(date, endToken)
	if start != nil && end != nil {
		return start, end, false
	}
	if duration == nil {
		return start, end, false
	}
	d := time.Duration(*duration) * time.Second

	switch {
	case start == nil && end != nil:
		s := end.Add(-d)
		return &s, end, false
	case start != nil && end == nil:
		e := start.Add(d)
		return start, &e, false
	case start == nil && end == nil:
		s := time.Date(date.Year(), date.Month(), date.Day(), defaultStartHour, 0, 0, 0, date.Location())
		e := s.Add(d)
		return &s, &e, true
	}
	return start, end, false
}

func resolveClock(date time.Time, token string) *time.Time {
	if token == "" {
		return nil
	}
	t, err := timecalc.ParseClock(date, token)
	if err != nil {
		slog.Debug("ignoring unparsable time", "token", token, "error", err)
		return nil
	}
	return &t
}

// fail marks res as terminal. The date failure drops every time field and the
// project hint; later failures keep what was computed for diagnostics.
func fail(res Result, kind ErrorKind) Result {
	res.Err = kind
	res.StartAt, res.EndAt, res.GuessedStart = nil, nil, false
	if kind == DateUnresolved {
		res.Date = nil
		res.DurationSeconds = nil
		res.ProjectCandidate = ""
	}
	return res
}
