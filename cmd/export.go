package cmd

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

var (
	exportFormat string
	exportToday  bool
	exportDate   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export time intervals to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md")
	exportCmd.Flags().BoolVar(&exportToday, "today", false, "Export today instead of this week")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Export a specific day (YYYY-MM-DD)")
}

// exportRow is the serialized form of an interval.
type exportRow struct {
	ID              int64   `json:"id"`
	Date            string  `json:"date"`
	Type            string  `json:"type"`
	Project         string  `json:"project,omitempty"`
	Description     string  `json:"description,omitempty"`
	Start           string  `json:"start"`
	End             *string `json:"end"`
	DurationMinutes int64   `json:"duration_minutes"`
	Source          string  `json:"source,omitempty"`
	ExternalID      string  `json:"external_id,omitempty"`
}

func runExport(cmd *cobra.Command, args []string) error {
	from, to, err := period(nowFunc(), !exportToday, exportDate)
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
	return writeExport(cmd.OutOrStdout(), intervals, exportFormat)
}

func toExportRow(iv model.Interval) exportRow {
	row := exportRow{
		ID:              iv.ID,
		Date:            iv.StartedAt.Format(timecalc.DateLayout),
		Type:            string(iv.Category),
		Project:         iv.ProjectName,
		Description:     iv.Description,
		Start:           iv.StartedAt.Format(time.RFC3339),
		DurationMinutes: iv.Seconds() / 60,
		Source:          iv.Source,
		ExternalID:      iv.ExternalID,
	}
	if iv.EndedAt != nil {
		end := iv.EndedAt.Format(time.RFC3339)
		row.End = &end
	}
	return row
}

func writeExport(w io.Writer, intervals []model.Interval, format string) error {
	switch format {
	case "json":
		rows := make([]exportRow, 0, len(intervals))
		for _, iv := range intervals {
			rows = append(rows, toExportRow(iv))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "md":
		printList(w, intervals, true)
		return nil
	case "csv":
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"date", "type", "project", "description", "start", "end", "duration_minutes", "source"})
		for _, iv := range intervals {
			r := toExportRow(iv)
			end := ""
			if r.End != nil {
				end = *r.End
			}
			_ = cw.Write([]string{r.Date, r.Type, r.Project, r.Description, r.Start, end,
				strconv.FormatInt(r.DurationMinutes, 10), r.Source})
		}
		cw.Flush()
		return cw.Error()
	default:
		return errors.Errorf("unknown --format %q (use csv, json or md)", format)
	}
}
