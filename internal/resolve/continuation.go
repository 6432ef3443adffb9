package resolve

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/nlparse"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

// Span is a candidate half-open interval [Start, End).
type Span struct {
	Start time.Time
	End   time.Time
}

// Seconds is the length of the span.
func (s Span) Seconds() int64 {
	return int64(s.End.Sub(s.Start).Seconds())
}

// DayStore finds the last interval of a calendar day.
type DayStore interface {
	LastOnDay(ctx context.Context, day time.Time) (*model.Interval, error)
}

// Continue returns the span for a successful parse. When the start was
// guessed from a bare duration and the day already has intervals, the span is
// moved to begin where the latest of them ends. The bool reports whether the
// span was moved.
func Continue(ctx context.Context, ds DayStore, parsed nlparse.Result) (Span, bool, error) {
	span := Span{Start: *parsed.StartAt, End: *parsed.EndAt}
	if !parsed.GuessedStart || parsed.DurationSeconds == nil {
		return span, false, nil
	}

	last, err := ds.LastOnDay(ctx, *parsed.Date)
	if err != nil {
		return span, false, err
	}
	if last == nil {
		return span, false, nil
	}

	start := last.EffectiveEnd()
	span = Span{Start: start, End: start.Add(time.Duration(*parsed.DurationSeconds) * time.Second)}
	slog.Debug("continuing after last interval",
		"after_id", last.ID,
		"start", span.Start.Format(timecalc.StampLayout),
		"end", span.End.Format(timecalc.StampLayout))
	return span, true, nil
}

// Validate rejects spans that cross midnight or reach into the future.
func Validate(span Span, now time.Time) error {
	if !timecalc.SameDay(span.Start, span.End) {
		return ErrCrossMidnight
	}
	if span.Start.After(now) || span.End.After(now) {
		return ErrFutureTime
	}
	return nil
}
