package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

var (
	reportWeek   bool
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show aggregated time report",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportWeek, "week", false, "Report for this week (default)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

// projectTotal is one line of a report.
type projectTotal struct {
	Project         string `json:"project"`
	DurationMinutes int64  `json:"duration_minutes"`
	seconds         int64
}

// weekReport aggregates a week of intervals.
type weekReport struct {
	Week         string         `json:"week"`
	Projects     []projectTotal `json:"projects"`
	TotalMinutes int64          `json:"total_minutes"`
	BreakMinutes int64          `json:"break_minutes"`
	totalSeconds int64
	breakSeconds int64
}

func runReport(cmd *cobra.Command, args []string) error {
	now := nowFunc()
	from, to := timecalc.WeekRange(now)

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	intervals, err := store.Range(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), buildReport(timecalc.ISOWeekLabel(now), intervals), reportFormat)
}

// buildReport sums work per project, sorted by name. Breaks are totalled
// separately.
func buildReport(label string, intervals []model.Interval) weekReport {
	r := weekReport{Week: label, Projects: []projectTotal{}}
	byProject := map[string]int64{}
	for _, iv := range intervals {
		sec := iv.Seconds()
		if iv.Category == model.Break {
			r.breakSeconds += sec
			continue
		}
		byProject[orNone(iv.ProjectName)] += sec
		r.totalSeconds += sec
	}
	for name, sec := range byProject {
		r.Projects = append(r.Projects, projectTotal{Project: name, DurationMinutes: sec / 60, seconds: sec})
	}
	sort.Slice(r.Projects, func(i, j int) bool { return r.Projects[i].Project < r.Projects[j].Project })
	r.TotalMinutes = r.totalSeconds / 60
	r.BreakMinutes = r.breakSeconds / 60
	return r
}

func writeReport(w io.Writer, r weekReport, format string) error {
	switch format {
	case "csv":
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"project", "duration_minutes"})
		for _, p := range r.Projects {
			_ = cw.Write([]string{p.Project, strconv.FormatInt(p.DurationMinutes, 10)})
		}
		cw.Flush()
		return cw.Error()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "md":
		fmt.Fprintf(w, "Week %s\n", r.Week)
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.AppendHeader(table.Row{"Project", "Duration"})
		for _, p := range r.Projects {
			tw.AppendRow(table.Row{p.Project, timecalc.FormatDuration(p.seconds)})
		}
		tw.AppendFooter(table.Row{"Total", timecalc.FormatDuration(r.totalSeconds)})
		tw.Render()
		if r.breakSeconds > 0 {
			fmt.Fprintf(w, "Breaks: %s\n", timecalc.FormatDuration(r.breakSeconds))
		}
		return nil
	default:
		return errors.Errorf("unknown --format %q (use md, csv or json)", format)
	}
}
