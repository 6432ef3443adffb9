package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/Tiliavir/timescribe/internal/model"
)

// Carve writes the closed interval described by req and trims, splits or
// removes every stored interval it overlaps, all in one transaction.
// Afterwards no stored interval intersects [req.Start, req.End) except the new
// one. Open intervals are never removed; one that lies inside the range is
// moved to start at req.End. The new row is written without a source.
func (s *Store) Carve(ctx context.Context, req model.CarveRequest) error {
	if !req.End.After(req.Start) {
		return errors.New("carve: end must be after start")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "storage error starting carve")
	}
	defer tx.Rollback()

	overlaps, err := s.overlapping(ctx, tx, req.Start, req.End)
	if err != nil {
		return err
	}

	for _, o := range overlaps {
		oEnd := o.EffectiveEnd()
		switch {
		case o.Open() && !o.StartedAt.Before(req.Start) && !oEnd.After(req.End):
			// A running timer inside the range keeps running from its end.
			end := req.End
			o.StartedAt = end
			o.LastActivityAt = &end
			if err := s.update(ctx, tx, o); err != nil {
				return err
			}
			slog.Debug("carve moved running interval", "id", o.ID)

		case !o.StartedAt.Before(req.Start) && !oEnd.After(req.End):
			// Fully covered.
			if _, err := tx.ExecContext(ctx, `DELETE FROM intervals WHERE id = ?`, o.ID); err != nil {
				return errors.Wrapf(err, "storage error removing interval %d", o.ID)
			}
			slog.Debug("carve removed interval", "id", o.ID)

		case o.StartedAt.Before(req.Start) && oEnd.After(req.End):
			tail := o
			tail.ID = 0
			tail.StartedAt = req.End
			tail.ExternalID = ""
			if _, err := s.insert(ctx, tx, tail); err != nil {
				return err
			}
			if err := s.update(ctx, tx, closedAt(o, req.Start)); err != nil {
				return err
			}
			slog.Debug("carve split interval", "id", o.ID)

		case o.StartedAt.Before(req.Start):
			if err := s.update(ctx, tx, closedAt(o, req.Start)); err != nil {
				return err
			}
			slog.Debug("carve trimmed interval end", "id", o.ID)

		default:
			o.StartedAt = req.End
			if err := s.update(ctx, tx, o); err != nil {
				return err
			}
			slog.Debug("carve trimmed interval start", "id", o.ID)
		}
	}

	end := req.End
	if _, err := s.insert(ctx, tx, model.Interval{
		Category:       req.Category,
		ProjectID:      req.ProjectID,
		StartedAt:      req.Start,
		EndedAt:        &end,
		LastActivityAt: &end,
		Description:    req.Description,
	}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "storage error committing carve")
}

// closedAt returns iv ending at t.
func closedAt(iv model.Interval, t time.Time) model.Interval {
	end := t
	iv.EndedAt = &end
	iv.LastActivityAt = &end
	return iv
}
