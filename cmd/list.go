package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

var (
	listToday bool
	listWeek  bool
	listDate  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List time intervals",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listToday, "today", false, "Show today's intervals (default)")
	listCmd.Flags().BoolVar(&listWeek, "week", false, "Show this week's intervals")
	listCmd.Flags().StringVar(&listDate, "date", "", "Show a specific day (YYYY-MM-DD)")
}

func runList(cmd *cobra.Command, args []string) error {
	from, to, err := period(nowFunc(), listWeek, listDate)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	intervals, err := store.Range(cmd.Context(), from, to)
	if err != nil {
		return err
	}

	printList(cmd.OutOrStdout(), intervals, false)
	return nil
}

// period returns the day of date, the ISO week around now when week is set,
// or today.
func period(now time.Time, week bool, date string) (time.Time, time.Time, error) {
	switch {
	case date != "":
		d, err := timecalc.ParseDate(date, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(err, "invalid --date value %q", date)
		}
		return timecalc.StartOfDay(d), timecalc.EndOfDay(d), nil
	case week:
		from, to := timecalc.WeekRange(now)
		return from, to, nil
	default:
		return timecalc.StartOfDay(now), timecalc.EndOfDay(now), nil
	}
}

// printList renders intervals as a table, or as Markdown when markdown is set.
func printList(w io.Writer, intervals []model.Interval, markdown bool) {
	if len(intervals) == 0 {
		fmt.Fprintln(w, "No intervals found.")
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Date", "Start", "End", "Duration", "Type", "Project", "Source", "Description"})
	var total int64
	for _, iv := range intervals {
		end := "ongoing"
		if iv.EndedAt != nil {
			end = iv.EndedAt.Format("15:04")
		}
		if iv.Category == model.Work {
			total += iv.Seconds()
		}
		tw.AppendRow(table.Row{
			iv.StartedAt.Format(timecalc.DateLayout),
			iv.StartedAt.Format("15:04"),
			end,
			timecalc.FormatDuration(iv.Seconds()),
			string(iv.Category),
			orNone(iv.ProjectName),
			iv.Source,
			firstLine(iv.Description),
		})
	}
	tw.AppendFooter(table.Row{"", "", "Work", timecalc.FormatDuration(total)})
	if markdown {
		tw.RenderMarkdown()
		return
	}
	tw.Render()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
