package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/Tiliavir/timescribe/internal/model"
)

// effectiveEnd mirrors model.Interval.EffectiveEnd in SQL.
const effectiveEnd = `COALESCE(i.ended_at, i.last_activity_at, i.started_at)`

const intervalSelect = `SELECT i.id, i.category, i.project_id, COALESCE(p.name, ''), i.started_at,
	i.ended_at, i.last_activity_at, i.description, i.source, COALESCE(i.external_id, '')
	FROM intervals i LEFT JOIN projects p ON p.id = i.project_id`

func (s *Store) scanInterval(scan func(dest ...any) error) (model.Interval, error) {
	var (
		iv        model.Interval
		category  string
		projectID sql.NullInt64
		started   string
		ended     sql.NullString
		activity  sql.NullString
	)
	if err := scan(&iv.ID, &category, &projectID, &iv.ProjectName, &started,
		&ended, &activity, &iv.Description, &iv.Source, &iv.ExternalID); err != nil {
		return iv, err
	}
	iv.Category = model.Category(category)
	if projectID.Valid {
		id := projectID.Int64
		iv.ProjectID = &id
	}
	var err error
	if iv.StartedAt, err = s.parseStamp(started); err != nil {
		return iv, err
	}
	if iv.EndedAt, err = s.parseNullStamp(ended); err != nil {
		return iv, err
	}
	iv.LastActivityAt, err = s.parseNullStamp(activity)
	return iv, err
}

func (s *Store) queryIntervals(ctx context.Context, q querier, query string, args ...any) ([]model.Interval, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "storage error querying intervals")
	}
	defer rows.Close()
	var out []model.Interval
	for rows.Next() {
		iv, err := s.scanInterval(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "storage error scanning interval")
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (s *Store) queryInterval(ctx context.Context, query string, args ...any) (*model.Interval, error) {
	iv, err := s.scanInterval(s.db.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage error loading interval")
	}
	return &iv, nil
}

// Insert stores iv and returns its new id.
func (s *Store) Insert(ctx context.Context, iv model.Interval) (int64, error) {
	return s.insert(ctx, s.db, iv)
}

func (s *Store) insert(ctx context.Context, q querier, iv model.Interval) (int64, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO intervals(category, project_id, started_at, ended_at,
		last_activity_at, description, source, external_id, created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		string(iv.Category), iv.ProjectID, s.stamp(iv.StartedAt), s.nullStamp(iv.EndedAt),
		s.nullStamp(iv.LastActivityAt), iv.Description, iv.Source, nullable(iv.ExternalID), s.stamp(s.now()))
	if err != nil {
		return 0, errors.Wrap(err, "storage error inserting interval")
	}
	return res.LastInsertId()
}

// Update replaces the stored row with the same id.
func (s *Store) Update(ctx context.Context, iv model.Interval) error {
	return s.update(ctx, s.db, iv)
}

func (s *Store) update(ctx context.Context, q querier, iv model.Interval) error {
	res, err := q.ExecContext(ctx, `UPDATE intervals SET category=?, project_id=?, started_at=?, ended_at=?,
		last_activity_at=?, description=?, source=?, external_id=? WHERE id=?`,
		string(iv.Category), iv.ProjectID, s.stamp(iv.StartedAt), s.nullStamp(iv.EndedAt),
		s.nullStamp(iv.LastActivityAt), iv.Description, iv.Source, nullable(iv.ExternalID), iv.ID)
	if err != nil {
		return errors.Wrapf(err, "storage error updating interval %d", iv.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads a single interval by id.
func (s *Store) Get(ctx context.Context, id int64) (model.Interval, error) {
	iv, err := s.queryInterval(ctx, intervalSelect+` WHERE i.id = ?`, id)
	if err != nil {
		return model.Interval{}, err
	}
	if iv == nil {
		return model.Interval{}, ErrNotFound
	}
	return *iv, nil
}

// Count returns the number of stored intervals.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM intervals`).Scan(&n)
	return n, errors.Wrap(err, "storage error counting intervals")
}

// Overlapping returns every interval whose effective range intersects the
// half-open range [start, end), ordered by start. Touching intervals are not
// returned.
func (s *Store) Overlapping(ctx context.Context, start, end time.Time) ([]model.Interval, error) {
	return s.overlapping(ctx, s.db, start, end)
}

func (s *Store) overlapping(ctx context.Context, q querier, start, end time.Time) ([]model.Interval, error) {
	return s.queryIntervals(ctx, q,
		intervalSelect+` WHERE i.started_at < ? AND `+effectiveEnd+` > ? ORDER BY i.started_at, i.id`,
		s.stamp(end), s.stamp(start))
}

// LastOnDay returns the interval started on day's calendar day that ends
// last, or nil when the day is empty. Ties go to the most recently stored row.
func (s *Store) LastOnDay(ctx context.Context, day time.Time) (*model.Interval, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, day.Location())
	return s.queryInterval(ctx,
		intervalSelect+` WHERE i.started_at >= ? AND i.started_at <= ? ORDER BY `+effectiveEnd+` DESC, i.id DESC LIMIT 1`,
		s.stamp(from), s.stamp(to))
}

// Range returns intervals started within [from, to], ordered by start.
func (s *Store) Range(ctx context.Context, from, to time.Time) ([]model.Interval, error) {
	return s.queryIntervals(ctx, s.db,
		intervalSelect+` WHERE i.started_at >= ? AND i.started_at <= ? ORDER BY i.started_at, i.id`,
		s.stamp(from), s.stamp(to))
}

// Active returns the most recently started open interval, or nil.
func (s *Store) Active(ctx context.Context) (*model.Interval, error) {
	return s.queryInterval(ctx,
		intervalSelect+` WHERE i.ended_at IS NULL ORDER BY i.started_at DESC, i.id DESC LIMIT 1`)
}

// ByExternalID returns the interval imported under externalID, or nil.
func (s *Store) ByExternalID(ctx context.Context, externalID string) (*model.Interval, error) {
	return s.queryInterval(ctx,
		intervalSelect+` WHERE i.external_id = ? ORDER BY i.id DESC LIMIT 1`, externalID)
}

// FindCarved returns the newest interval with exactly the given bounds and
// category. It identifies the row written by Carve.
func (s *Store) FindCarved(ctx context.Context, start, end time.Time, category model.Category) (model.Interval, error) {
	iv, err := s.queryInterval(ctx,
		intervalSelect+` WHERE i.started_at = ? AND i.ended_at = ? AND i.category = ? ORDER BY i.id DESC LIMIT 1`,
		s.stamp(start), s.stamp(end), string(category))
	if err != nil {
		return model.Interval{}, err
	}
	if iv == nil {
		return model.Interval{}, ErrNotFound
	}
	return *iv, nil
}

// DeleteInterval removes the interval id.
func (s *Store) DeleteInterval(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM intervals WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "storage error removing interval %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
