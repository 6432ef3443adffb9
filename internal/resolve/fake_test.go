package resolve_test

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/storage"
)

// memStore is an in-memory stand-in for storage.Store.
type memStore struct {
	nextID    int64
	intervals []model.Interval
	projects  []model.Project
	inserts   int
	carves    int
}

func (m *memStore) add(iv model.Interval) int64 {
	m.nextID++
	iv.ID = m.nextID
	m.intervals = append(m.intervals, iv)
	return iv.ID
}

func (m *memStore) Overlapping(_ context.Context, start, end time.Time) ([]model.Interval, error) {
	var out []model.Interval
	for _, iv := range m.intervals {
		if iv.Overlaps(start, end) {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (m *memStore) Insert(_ context.Context, iv model.Interval) (int64, error) {
	m.inserts++
	return m.add(iv), nil
}

// Carve drops every overlapping interval; enough for the resolver's contract.
func (m *memStore) Carve(_ context.Context, req model.CarveRequest) error {
	m.carves++
	kept := m.intervals[:0]
	for _, iv := range m.intervals {
		if !iv.Overlaps(req.Start, req.End) {
			kept = append(kept, iv)
		}
	}
	m.intervals = kept
	end := req.End
	m.add(model.Interval{
		Category:       req.Category,
		ProjectID:      req.ProjectID,
		StartedAt:      req.Start,
		EndedAt:        &end,
		LastActivityAt: &end,
		Description:    req.Description,
	})
	return nil
}

func (m *memStore) FindCarved(_ context.Context, start, end time.Time, category model.Category) (model.Interval, error) {
	for i := len(m.intervals) - 1; i >= 0; i-- {
		iv := m.intervals[i]
		if iv.StartedAt.Equal(start) && iv.EndedAt != nil && iv.EndedAt.Equal(end) && iv.Category == category {
			return iv, nil
		}
	}
	return model.Interval{}, storage.ErrNotFound
}

func (m *memStore) Update(_ context.Context, iv model.Interval) error {
	for i := range m.intervals {
		if m.intervals[i].ID == iv.ID {
			m.intervals[i] = iv
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) LastOnDay(_ context.Context, day time.Time) (*model.Interval, error) {
	var last *model.Interval
	for i := range m.intervals {
		iv := m.intervals[i]
		y, mo, d := iv.StartedAt.Date()
		dy, dmo, dd := day.Date()
		if y != dy || mo != dmo || d != dd {
			continue
		}
		if last == nil || !iv.EffectiveEnd().Before(last.EffectiveEnd()) {
			last = &m.intervals[i]
		}
	}
	return last, nil
}

func (m *memStore) FindProjectByName(_ context.Context, name string) (model.Project, error) {
	for _, p := range m.projects {
		if p.Name == name {
			return p, nil
		}
	}
	return model.Project{}, storage.ErrNotFound
}

func (m *memStore) ListProjects(context.Context) ([]model.Project, error) {
	return m.projects, nil
}

func (m *memStore) CreateProject(_ context.Context, name string) (model.Project, error) {
	p := model.Project{ID: int64(len(m.projects) + 1), Name: strings.TrimSpace(name)}
	m.projects = append(m.projects, p)
	return p, nil
}

// scriptedConfirmer answers every confirmation with answer.
type scriptedConfirmer struct {
	answer bool
	err    error
	calls  int
	seen   []model.Interval
}

func (c *scriptedConfirmer) ConfirmCarve(_ context.Context, conflicts []model.Interval) (bool, error) {
	c.calls++
	c.seen = conflicts
	return c.answer, c.err
}
