package cmd

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timescribe/internal/msgraph"
	"github.com/Tiliavir/timescribe/internal/resolve"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

var (
	outlookSyncFrom    string
	outlookSyncTo      string
	outlookSyncDate    string
	outlookSyncToday   bool
	outlookSyncDryRun  bool
	outlookSyncCarve   bool
	outlookSyncProject string
	outlookSyncTZ      string
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar integration",
}

var outlookSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import Outlook calendar events as work intervals",
	Args:  cobra.NoArgs,
	RunE:  runOutlookSync,
}

func init() {
	outlookSyncCmd.Flags().StringVar(&outlookSyncFrom, "from", "", "Start date (YYYY-MM-DD); required when --to is specified")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTo, "to", "", "End date (YYYY-MM-DD); defaults to today")
	outlookSyncCmd.Flags().StringVar(&outlookSyncDate, "date", "", "Sync a specific date (YYYY-MM-DD)")
	outlookSyncCmd.Flags().BoolVar(&outlookSyncToday, "today", false, "Sync only today (default)")
	outlookSyncCmd.Flags().BoolVar(&outlookSyncDryRun, "dry-run", false, "Print planned operations without writing")
	outlookSyncCmd.Flags().BoolVar(&outlookSyncCarve, "carve", false, "Trim or split existing intervals that overlap imported events")
	outlookSyncCmd.Flags().StringVar(&outlookSyncProject, "project", "", "Project for imported events (default from config outlook.default_project)")
	outlookSyncCmd.Flags().StringVar(&outlookSyncTZ, "timezone", "", "IANA timezone for event times (default from config outlook.timezone)")
	outlookCmd.AddCommand(outlookSyncCmd)
}

// syncRange turns the date flags into the day range to import.
func syncRange(now time.Time, date, fromFlag, toFlag string) (time.Time, time.Time, error) {
	loc := now.Location()
	switch {
	case date != "":
		d, err := timecalc.ParseDate(date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(err, "invalid --date value %q", date)
		}
		return timecalc.StartOfDay(d), timecalc.EndOfDay(d), nil

	case fromFlag != "" || toFlag != "":
		if fromFlag == "" {
			return time.Time{}, time.Time{}, errors.New("--from is required when --to is specified")
		}
		from, err := timecalc.ParseDate(fromFlag, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(err, "invalid --from value %q", fromFlag)
		}
		to := now
		if toFlag != "" {
			if to, err = timecalc.ParseDate(toFlag, loc); err != nil {
				return time.Time{}, time.Time{}, errors.Wrapf(err, "invalid --to value %q", toFlag)
			}
		}
		if to.Before(from) {
			return time.Time{}, time.Time{}, errors.New("--to must not be before --from")
		}
		return timecalc.StartOfDay(from), timecalc.EndOfDay(to), nil

	default:
		return timecalc.StartOfDay(now), timecalc.EndOfDay(now), nil
	}
}

func runOutlookSync(cmd *cobra.Command, args []string) error {
	now := nowFunc()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	from, to, err := syncRange(now, outlookSyncDate, outlookSyncFrom, outlookSyncTo)
	if err != nil {
		return err
	}

	project := outlookSyncProject
	if project == "" {
		project = cfg.Outlook.DefaultProject
	}
	timezone := outlookSyncTZ
	if timezone == "" {
		timezone = cfg.Outlook.Timezone
	}

	dryTag := ""
	if outlookSyncDryRun {
		dryTag = " [dry-run]"
	}
	fmt.Fprintf(out, "Syncing Outlook events (%s → %s)%s...\n\n",
		from.Format(timecalc.DateLayout), to.Format(timecalc.DateLayout), dryTag)

	cache := msgraph.NewTokenCache(cfg.DataDir)
	auth := msgraph.NewAuthenticator(cfg.Outlook.TenantID, cfg.Outlook.ClientID, cache, out)
	tok, err := auth.Token(ctx)
	if err != nil {
		return errors.Wrap(err, "authentication failed")
	}
	client := msgraph.NewClient(ctx, cache, tok, auth.Config)

	events, err := client.GetCalendarView(ctx, from, to, timezone)
	if err != nil {
		return errors.Wrap(err, "failed to fetch calendar events")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	syncer := msgraph.Syncer{Store: store, Commit: resolve.Resolver{Store: store}}
	result, err := syncer.SyncEvents(ctx, events, msgraph.SyncOptions{
		DryRun:   outlookSyncDryRun,
		Carve:    outlookSyncCarve,
		Project:  project,
		Timezone: timezone,
		Now:      now,
		Out:      out,
	})
	if err != nil {
		return errors.Wrap(err, "sync error")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  %d imported\n", result.Imported)
	fmt.Fprintf(out, "  %d skipped\n", result.Skipped)
	fmt.Fprintf(out, "  %d updated\n", result.Updated)
	if result.Conflicts > 0 {
		printWarn(out, fmt.Sprintf("  %d conflicts (re-run with --carve to overwrite)", result.Conflicts))
	}
	if result.Errors > 0 {
		return errors.Errorf("%d events could not be imported", result.Errors)
	}
	return nil
}
