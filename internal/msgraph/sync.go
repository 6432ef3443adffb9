package msgraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/resolve"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

// Source is the provenance tag of imported events.
const Source = "outlook"

// SyncResult holds counters for a sync operation.
type SyncResult struct {
	Imported  int
	Skipped   int
	Updated   int
	Conflicts int
	Errors    int
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	DryRun bool
	// Carve lets imported events trim or split overlapping intervals.
	Carve bool
	// Project is the project name assigned to imported events; it is
	// created when missing.
	Project  string
	Timezone string
	// Now bounds the import: events ending after it are skipped.
	Now time.Time
	Out io.Writer
}

// Store is what a sync needs from the interval store.
type Store interface {
	resolve.ProjectStore
	ByExternalID(ctx context.Context, externalID string) (*model.Interval, error)
	Overlapping(ctx context.Context, start, end time.Time) ([]model.Interval, error)
	Update(ctx context.Context, iv model.Interval) error
}

// Committer commits new intervals without overlapping stored ones.
type Committer interface {
	Commit(ctx context.Context, c resolve.Candidate, opts resolve.Options) (resolve.Outcome, error)
}

// describe joins subject, body preview and location into a description.
func describe(event CalendarEvent) string {
	parts := []string{}
	for _, p := range []string{event.Subject, event.BodyPreview, event.Location.DisplayName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// skipReason names why an event is never imported, or returns "". Events
// nobody attends or that hold no time slot are left out.
func skipReason(event CalendarEvent) string {
	switch {
	case event.IsCancelled:
		return "cancelled"
	case event.IsAllDay:
		return "all-day"
	case event.Sensitivity == "private":
		return "private"
	case event.ShowAs == "free":
		return "shown as free"
	case event.Start.DateTime == "" || event.End.DateTime == "":
		return "no start or end"
	}
	return ""
}

// MapEvent converts a Graph CalendarEvent into a work candidate in local
// time, tagged with the outlook source and the event id.
func MapEvent(event CalendarEvent, timezone string, projectID *int64) (resolve.Candidate, error) {
	start, err := timecalc.ParseZoned(event.Start.DateTime, timezone)
	if err != nil {
		return resolve.Candidate{}, errors.Wrap(err, "parsing start time")
	}
	end, err := timecalc.ParseZoned(event.End.DateTime, timezone)
	if err != nil {
		return resolve.Candidate{}, errors.Wrap(err, "parsing end time")
	}
	if !end.After(start) {
		return resolve.Candidate{}, errors.New("event ends before it starts")
	}

	return resolve.Candidate{
		Span:        resolve.Span{Start: start, End: end},
		Category:    model.Work,
		Description: describe(event),
		ProjectID:   projectID,
		Source:      Source,
		ExternalID:  event.ID,
	}, nil
}

func unchanged(iv model.Interval, c resolve.Candidate) bool {
	return iv.EndedAt != nil &&
		iv.StartedAt.Equal(c.Start) &&
		iv.EndedAt.Equal(c.End) &&
		iv.Description == c.Description
}

// Syncer imports calendar events into the interval store.
type Syncer struct {
	Store  Store
	Commit Committer
}

// SyncEvents processes a slice of Graph events and persists them. New events
// are committed without prompting: overlaps are carved when opts.Carve is
// set and reported as conflicts otherwise. Events already imported are
// matched by external id and updated in place when they changed.
func (s Syncer) SyncEvents(ctx context.Context, events []CalendarEvent, opts SyncOptions) (SyncResult, error) {
	var result SyncResult
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	projectID, err := s.project(ctx, opts)
	if err != nil {
		return result, err
	}

	for _, event := range events {
		if reason := skipReason(event); reason != "" {
			slog.Debug("ignoring calendar event", "subject", event.Subject, "reason", reason)
			continue
		}

		c, err := MapEvent(event, opts.Timezone, projectID)
		if err != nil {
			fmt.Fprintf(out, "  ! Error mapping event %q: %v\n", event.Subject, err)
			result.Errors++
			continue
		}
		if err := resolve.Validate(c.Span, opts.Now); err != nil {
			fmt.Fprintf(out, "  – Skipped:  %s (%v)\n", event.Subject, err)
			result.Skipped++
			continue
		}
		dur := fmt.Sprintf(" (%s)", timecalc.FormatDuration(c.Seconds()))

		found, err := s.Store.ByExternalID(ctx, event.ID)
		if err != nil {
			fmt.Fprintf(out, "  ! Error loading %q: %v\n", event.Subject, err)
			result.Errors++
			continue
		}

		if found != nil {
			if unchanged(*found, c) {
				fmt.Fprintf(out, "  – Skipped:  %s (already exists)\n", event.Subject)
				result.Skipped++
				continue
			}
			if !opts.DryRun {
				if err := s.update(ctx, *found, c); err != nil {
					if errors.Is(err, resolve.ErrConflictUnresolved) {
						fmt.Fprintf(out, "  ! Conflict: %s overlaps existing intervals\n", event.Subject)
						result.Conflicts++
						continue
					}
					fmt.Fprintf(out, "  ! Error updating %q: %v\n", event.Subject, err)
					result.Errors++
					continue
				}
			}
			fmt.Fprintf(out, "  ↑ Updated:  %s%s\n", event.Subject, dur)
			result.Updated++
			continue
		}

		if !opts.DryRun {
			_, err := s.Commit.Commit(ctx, c, resolve.Options{Carve: opts.Carve})
			if errors.Is(err, resolve.ErrConflictUnresolved) {
				fmt.Fprintf(out, "  ! Conflict: %s overlaps existing intervals (use --carve)\n", event.Subject)
				result.Conflicts++
				continue
			}
			if err != nil {
				fmt.Fprintf(out, "  ! Error saving %q: %v\n", event.Subject, err)
				result.Errors++
				continue
			}
		}
		fmt.Fprintf(out, "  ✓ Imported: %s%s\n", event.Subject, dur)
		result.Imported++
	}

	slog.Debug("outlook sync finished",
		"imported", result.Imported, "updated", result.Updated,
		"skipped", result.Skipped, "conflicts", result.Conflicts, "errors", result.Errors)
	return result, nil
}

// project resolves the target project, creating it unless this is a dry run.
func (s Syncer) project(ctx context.Context, opts SyncOptions) (*int64, error) {
	if opts.Project == "" {
		return nil, nil
	}
	p, err := resolve.FindProject(ctx, s.Store, opts.Project, "")
	if err != nil {
		return nil, err
	}
	p, err = resolve.EnsureProject(ctx, s.Store, p, opts.Project, "", !opts.DryRun)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return &p.ID, nil
}

// update moves an imported interval to the event's new bounds. The new
// bounds may only overlap the interval itself.
func (s Syncer) update(ctx context.Context, iv model.Interval, c resolve.Candidate) error {
	conflicts, err := s.Store.Overlapping(ctx, c.Start, c.End)
	if err != nil {
		return err
	}
	for _, other := range conflicts {
		if other.ID != iv.ID {
			return resolve.ErrConflictUnresolved
		}
	}
	end := c.End
	iv.StartedAt = c.Start
	iv.EndedAt = &end
	iv.LastActivityAt = &end
	iv.Description = c.Description
	if c.ProjectID != nil {
		iv.ProjectID = c.ProjectID
	}
	return s.Store.Update(ctx, iv)
}
