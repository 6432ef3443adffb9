package resolve

import (
	"strconv"
	"strings"

	"github.com/Tiliavir/timescribe/internal/model"
)

const (
	rowTimeLayout     = "2006-01-02 15:04"
	maxDescriptionLen = 50
)

// ConflictHeader names the columns of ConflictRow.
var ConflictHeader = []string{"ID", "Type", "Project", "Start", "End", "Source", "Description"}

// ConflictRow renders a conflicting interval for display.
func ConflictRow(iv model.Interval) []string {
	return []string{
		strconv.FormatInt(iv.ID, 10),
		string(iv.Category),
		orDash(iv.ProjectName),
		iv.StartedAt.Format(rowTimeLayout),
		iv.EffectiveEnd().Format(rowTimeLayout),
		orDash(iv.Source),
		orDash(Truncate(strings.TrimSpace(iv.Description))),
	}
}

// Truncate shortens s to at most 50 runes, ending in "..." when cut.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxDescriptionLen {
		return s
	}
	return string(r[:maxDescriptionLen-3]) + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
