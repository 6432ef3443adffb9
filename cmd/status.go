package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current timer status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	now := nowFunc()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	active, err := store.Active(ctx)
	if err != nil {
		return err
	}

	if active != nil {
		elapsed := int64(now.Sub(active.StartedAt).Seconds())
		fmt.Fprintln(out, "Running:")
		fmt.Fprintf(out, "  Project: %s\n", orNone(active.ProjectName))
		fmt.Fprintf(out, "  Type: %s\n", active.Category)
		if active.Description != "" {
			fmt.Fprintf(out, "  Note: %s\n", active.Description)
		}
		fmt.Fprintf(out, "  Since: %s\n", active.StartedAt.Format("15:04"))
		fmt.Fprintf(out, "  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(elapsed))
	} else {
		fmt.Fprintln(out, "No active timer.")
	}

	intervals, err := store.Range(ctx, timecalc.StartOfDay(now), timecalc.EndOfDay(now))
	if err != nil {
		return err
	}
	if active != nil && active.StartedAt.Before(timecalc.StartOfDay(now)) {
		intervals = append(intervals, *active)
	}
	printToday(out, totalsByCategory(intervals, now))
	return nil
}

func printToday(out io.Writer, totals map[model.Category]int64) {
	fmt.Fprintf(out, "Today: %s logged", timecalc.FormatDuration(totals[model.Work]))
	if totals[model.Break] > 0 {
		fmt.Fprint(out, styleDim.Render(fmt.Sprintf(" (breaks: %s)", timecalc.FormatDuration(totals[model.Break]))))
	}
	fmt.Fprintln(out, ".")
}

// totalsByCategory sums interval lengths per category. Open intervals count
// from the start of now's day at the earliest up to now.
func totalsByCategory(intervals []model.Interval, now time.Time) map[model.Category]int64 {
	totals := map[model.Category]int64{}
	for _, iv := range intervals {
		if iv.Open() && now.After(iv.EffectiveEnd()) {
			from := iv.StartedAt
			if day := timecalc.StartOfDay(now); from.Before(day) {
				from = day
			}
			totals[iv.Category] += int64(now.Sub(from).Seconds())
			continue
		}
		totals[iv.Category] += iv.Seconds()
	}
	return totals
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
