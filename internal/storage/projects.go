package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/Tiliavir/timescribe/internal/model"
)

const projectColumns = `id, name, created_at, deleted_at`

func (s *Store) scanProject(scan func(dest ...any) error) (model.Project, error) {
	var (
		p         model.Project
		created   string
		deletedAt sql.NullString
	)
	if err := scan(&p.ID, &p.Name, &created, &deletedAt); err != nil {
		return p, err
	}
	var err error
	if p.CreatedAt, err = s.parseStamp(created); err != nil {
		return p, err
	}
	p.DeletedAt, err = s.parseNullStamp(deletedAt)
	return p, err
}

// FindProjectByName returns the project whose name matches exactly,
// including soft-deleted ones. The most recently created wins on duplicates.
func (s *Store) FindProjectByName(ctx context.Context, name string) (model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE name = ? ORDER BY id DESC LIMIT 1`, name)
	p, err := s.scanProject(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, errors.Wrapf(err, "storage error loading project %q", name)
}

// ListProjects returns every project, including soft-deleted ones.
func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "storage error listing projects")
	}
	defer rows.Close()
	var out []model.Project
	for rows.Next() {
		p, err := s.scanProject(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "storage error scanning project")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateProject inserts a new project named name.
func (s *Store) CreateProject(ctx context.Context, name string) (model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Project{}, errors.New("project name must not be empty")
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects(name, created_at) VALUES (?, ?)`, name, s.stamp(now))
	if err != nil {
		return model.Project{}, errors.Wrapf(err, "storage error creating project %q", name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Project{}, errors.Wrap(err, "storage error reading project id")
	}
	return model.Project{ID: id, Name: name, CreatedAt: now}, nil
}

// DeleteProject soft-deletes a project; it stays resolvable by name.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, s.stamp(s.now()), id)
	if err != nil {
		return errors.Wrapf(err, "storage error deleting project %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
