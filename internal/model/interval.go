package model

import "time"

// Category classifies a logged interval.
type Category string

const (
	Work  Category = "work"
	Break Category = "break"
)

// ParseCategory maps a user supplied value to a Category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case Work, Break:
		return Category(s), true
	}
	return "", false
}

// Interval is a single stored work or break interval.
// A nil EndedAt means the interval is still open; LastActivityAt is then the
// most recent heartbeat.
type Interval struct {
	ID             int64      `json:"id"`
	Category       Category   `json:"category"`
	ProjectID      *int64     `json:"project_id"`
	ProjectName    string     `json:"project,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	Description    string     `json:"description"`
	Source         string     `json:"source"`
	ExternalID     string     `json:"external_id,omitempty"`
}

// EffectiveEnd returns EndedAt, falling back to LastActivityAt and then StartedAt.
func (i Interval) EffectiveEnd() time.Time {
	if i.EndedAt != nil {
		return *i.EndedAt
	}
	if i.LastActivityAt != nil {
		return *i.LastActivityAt
	}
	return i.StartedAt
}

// Open reports whether the interval has not been closed yet.
func (i Interval) Open() bool {
	return i.EndedAt == nil
}

// Seconds is the length of the interval up to its effective end.
func (i Interval) Seconds() int64 {
	return int64(i.EffectiveEnd().Sub(i.StartedAt).Seconds())
}

// Overlaps reports whether the interval intersects the half-open range [start, end).
// Touching ranges do not overlap.
func (i Interval) Overlaps(start, end time.Time) bool {
	return i.StartedAt.Before(end) && start.Before(i.EffectiveEnd())
}

// Project is a named bucket intervals can refer to. Deleted projects stay
// resolvable by name.
type Project struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// CarveRequest describes a closed interval to be written over whatever it overlaps.
type CarveRequest struct {
	Start       time.Time
	End         time.Time
	Category    Category
	Description string
	ProjectID   *int64
}
