package resolve

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/storage"
)

// ProjectStore is the project lookup/create collaborator.
type ProjectStore interface {
	FindProjectByName(ctx context.Context, name string) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	CreateProject(ctx context.Context, name string) (model.Project, error)
}

// FindProject resolves the project for a log. An explicit name must match
// exactly. Without one, the longest stored name contained in text wins
// (case-insensitive). Soft-deleted projects take part in both lookups.
// A nil project means nothing matched.
func FindProject(ctx context.Context, ps ProjectStore, explicit, text string) (*model.Project, error) {
	if explicit != "" {
		p, err := ps.FindProjectByName(ctx, explicit)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &p, nil
	}

	projects, err := ps.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	haystack := strings.ToLower(text)
	var best *model.Project
	for i := range projects {
		needle := strings.ToLower(projects[i].Name)
		if needle == "" || !strings.Contains(haystack, needle) {
			continue
		}
		if best == nil || utf8.RuneCountInString(projects[i].Name) > utf8.RuneCountInString(best.Name) {
			best = &projects[i]
		}
	}
	return best, nil
}

// EnsureProject creates a missing project when create is set, named after
// the explicit option or else the parser's candidate. found is returned
// unchanged when it is already set or nothing can be created.
func EnsureProject(ctx context.Context, ps ProjectStore, found *model.Project, explicit, candidate string, create bool) (*model.Project, error) {
	if found != nil || !create {
		return found, nil
	}
	name := explicit
	if name == "" {
		name = candidate
	}
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	p, err := ps.CreateProject(ctx, name)
	if err != nil {
		return nil, err
	}
	slog.Debug("created project", "id", p.ID, "name", p.Name)
	return &p, nil
}
