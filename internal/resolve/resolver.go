package resolve

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/Tiliavir/timescribe/internal/model"
)

// IntervalStore is the interval collaborator used when committing.
type IntervalStore interface {
	Overlapping(ctx context.Context, start, end time.Time) ([]model.Interval, error)
	Insert(ctx context.Context, iv model.Interval) (int64, error)
	Carve(ctx context.Context, req model.CarveRequest) error
	FindCarved(ctx context.Context, start, end time.Time, category model.Category) (model.Interval, error)
	Update(ctx context.Context, iv model.Interval) error
}

// Confirmer asks a human whether conflicting intervals may be carved.
// It is the only place a commit blocks.
type Confirmer interface {
	ConfirmCarve(ctx context.Context, conflicts []model.Interval) (bool, error)
}

// Candidate is a validated interval waiting to be committed.
type Candidate struct {
	Span
	Category    model.Category
	Description string
	ProjectID   *int64
	Source      string
	ExternalID  string
}

// Options carries the conflict directives of an invocation.
type Options struct {
	// Carve allows trimming or splitting overlapping intervals.
	Carve bool
	// ForceOverwrite carves without asking.
	ForceOverwrite bool
	// Interactive is set when a human can answer the confirmation.
	Interactive bool
}

// Outcome describes a successful commit.
type Outcome struct {
	ID        int64
	Carved    bool
	Conflicts []model.Interval
}

// Resolver commits candidates while keeping stored intervals disjoint.
type Resolver struct {
	Store   IntervalStore
	Confirm Confirmer
	// OnConflict, when set, sees the conflicting intervals before any
	// decision is taken.
	OnConflict func(conflicts []model.Interval)
}

type state int

const (
	stateCheck state = iota
	stateNeedsDecision
	stateInsert
	stateCarve
)

// Commit writes c. Without conflicts it is a plain insert. With conflicts it
// carves when a directive allows it or the user agrees, fails with
// ErrConflictUnresolved when nobody can decide and with ErrCancelled when the
// user declines. Nothing is written on failure.
func (r Resolver) Commit(ctx context.Context, c Candidate, opts Options) (Outcome, error) {
	var out Outcome
	st := stateCheck
	for {
		switch st {
		case stateCheck:
			conflicts, err := r.Store.Overlapping(ctx, c.Start, c.End)
			if err != nil {
				return out, err
			}
			out.Conflicts = conflicts
			if len(conflicts) > 0 && r.OnConflict != nil {
				r.OnConflict(conflicts)
			}
			switch {
			case len(conflicts) == 0:
				st = stateInsert
			case opts.Carve || opts.ForceOverwrite:
				st = stateCarve
			case !opts.Interactive || r.Confirm == nil:
				return out, ErrConflictUnresolved
			default:
				st = stateNeedsDecision
			}

		case stateNeedsDecision:
			ok, err := r.Confirm.ConfirmCarve(ctx, out.Conflicts)
			if err != nil {
				return out, errors.Wrap(err, "reading confirmation")
			}
			if !ok {
				return out, ErrCancelled
			}
			st = stateCarve

		case stateInsert:
			end := c.End
			id, err := r.Store.Insert(ctx, model.Interval{
				Category:       c.Category,
				ProjectID:      c.ProjectID,
				StartedAt:      c.Start,
				EndedAt:        &end,
				LastActivityAt: &end,
				Description:    c.Description,
				Source:         c.Source,
				ExternalID:     c.ExternalID,
			})
			if err != nil {
				return out, err
			}
			out.ID = id
			slog.Debug("inserted interval", "id", id)
			return out, nil

		case stateCarve:
			id, err := r.carve(ctx, c)
			if err != nil {
				return out, err
			}
			out.ID, out.Carved = id, true
			slog.Debug("carved interval", "id", id, "conflicts", len(out.Conflicts))
			return out, nil
		}
	}
}

// carve delegates to the store's carving primitive, which does not know
// about provenance, then finds the new row and stamps it.
func (r Resolver) carve(ctx context.Context, c Candidate) (int64, error) {
	err := r.Store.Carve(ctx, model.CarveRequest{
		Start:       c.Start,
		End:         c.End,
		Category:    c.Category,
		Description: c.Description,
		ProjectID:   c.ProjectID,
	})
	if err != nil {
		return 0, err
	}
	iv, err := r.Store.FindCarved(ctx, c.Start, c.End, c.Category)
	if err != nil {
		return 0, errors.Wrap(err, "locating carved interval")
	}
	iv.Source = c.Source
	iv.ExternalID = c.ExternalID
	if err := r.Store.Update(ctx, iv); err != nil {
		return 0, err
	}
	return iv.ID, nil
}
