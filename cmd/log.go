package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/nlparse"
	"github.com/Tiliavir/timescribe/internal/resolve"
	"github.com/Tiliavir/timescribe/internal/storage"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

var errInvalidType = errors.New(`Invalid --type. Use "work" or "break".`)

// logOptions are the flags of the log command.
type logOptions struct {
	project        string
	category       string
	date           string
	start          string
	end            string
	duration       string
	source         string
	createProject  bool
	carve          bool
	forceOverwrite bool
	dryRun         bool
	noInput        bool
}

var logOpts logOptions

var logCmd = &cobra.Command{
	Use:   "log <text>",
	Short: "Log a work or break interval from natural language",
	Example: `  timescribe log "yesterday worked on Acme from 09:00 to 11:00"
  timescribe log "lunch break 45m" --date 2026-02-20
  timescribe log "1h30m code review" --project Acme --create-project`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

func init() {
	f := logCmd.Flags()
	f.StringVar(&logOpts.project, "project", "", "Project name (preferred when unsure)")
	f.StringVar(&logOpts.category, "type", "", "work|break (overrides detection)")
	f.StringVar(&logOpts.date, "date", "", "Date override (YYYY-MM-DD)")
	f.StringVar(&logOpts.start, "start", "", "Start time override (e.g. 09:00, 9am)")
	f.StringVar(&logOpts.end, "end", "", "End time override (e.g. 11:30)")
	f.StringVar(&logOpts.duration, "duration", "", "Duration override (e.g. 2h, 90m, 1h30m)")
	f.StringVar(&logOpts.source, "source", "", "Provenance tag stored with the interval (default from config log.source)")
	f.BoolVar(&logOpts.createProject, "create-project", false, "Create the project if it does not exist")
	f.BoolVar(&logOpts.carve, "carve", false, "Allow trimming/splitting existing intervals if overlapping")
	f.BoolVar(&logOpts.forceOverwrite, "force-overwrite", false, "Overwrite overlaps without asking")
	f.BoolVar(&logOpts.dryRun, "dry-run", false, "Print parsed result without writing")
	f.BoolVarP(&logOpts.noInput, "no-input", "n", false, "Never prompt; fail on unresolved overlaps")
}

// logEnv carries the collaborators of one log invocation.
type logEnv struct {
	store       *storage.Store
	now         time.Time
	in          io.Reader
	out         io.Writer
	interactive bool
}

func runLog(cmd *cobra.Command, args []string) error {
	o := logOpts
	store, err := openLogStore(cfg.DBPath, o.dryRun)
	if err != nil {
		return err
	}
	defer store.Close()

	if o.source == "" {
		o.source = cfg.Log.Source
	}
	env := logEnv{
		store:       store,
		now:         nowFunc(),
		in:          cmd.InOrStdin(),
		out:         cmd.OutOrStdout(),
		interactive: !o.noInput && isTerminal(cmd.InOrStdin()),
	}
	return logTime(cmd.Context(), env, args[0], o)
}

// openLogStore opens the database read-only for dry runs.
func openLogStore(path string, dryRun bool) (*storage.Store, error) {
	if dryRun {
		return storage.OpenReadOnly(path)
	}
	return storage.Open(path)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// parseError reports a text that could not be turned into an interval.
type parseError struct {
	kind nlparse.ErrorKind
}

func (e parseError) Error() string { return e.kind.Message() }

// logTime parses text, resolves the interval and commits it.
func logTime(ctx context.Context, env logEnv, text string, o logOptions) error {
	var overrides nlparse.Overrides
	if o.category != "" {
		c, ok := model.ParseCategory(o.category)
		if !ok {
			return errInvalidType
		}
		overrides.Category = &c
	}
	overrides.Date = o.date
	overrides.Start = o.start
	overrides.End = o.end
	overrides.Duration = o.duration

	parsed := nlparse.Parse(text, env.now, overrides)
	if !parsed.OK() {
		return parseError{kind: parsed.Err}
	}

	span, moved, err := resolve.Continue(ctx, env.store, parsed)
	if err != nil {
		return err
	}
	if moved {
		slog.Debug("continuing after the day's last interval", "start", span.Start.Format(timecalc.StampLayout))
	}
	if err := resolve.Validate(span, env.now); err != nil {
		return err
	}

	project, err := resolve.FindProject(ctx, env.store, o.project, text)
	if err != nil {
		return err
	}

	if o.dryRun {
		printParsed(env.out, parsed.Category, projectLabel(project, o, parsed.ProjectCandidate), span, o.source)
		return nil
	}

	project, err = resolve.EnsureProject(ctx, env.store, project, o.project, parsed.ProjectCandidate, o.createProject)
	if err != nil {
		return err
	}
	var projectID *int64
	if project != nil {
		projectID = &project.ID
	}

	outcome, err := newResolver(env.store, env.in, env.out).Commit(ctx, resolve.Candidate{
		Span:        span,
		Category:    parsed.Category,
		Description: parsed.Description,
		ProjectID:   projectID,
		Source:      o.source,
	}, resolve.Options{
		Carve:          o.carve,
		ForceOverwrite: o.forceOverwrite,
		Interactive:    env.interactive,
	})
	if errors.Is(err, resolve.ErrCancelled) {
		printInfo(env.out, "Canceled. No changes were made.")
		return err
	}
	if err != nil {
		return err
	}

	slog.Debug("logged interval", "id", outcome.ID, "carved", outcome.Carved)
	printInfo(env.out, "Logged time successfully.")
	return nil
}

// newResolver returns a resolver that shows conflicts on out and asks on in.
func newResolver(store *storage.Store, in io.Reader, out io.Writer) resolve.Resolver {
	return resolve.Resolver{
		Store:   store,
		Confirm: newPromptConfirmer(in, out),
		OnConflict: func(conflicts []model.Interval) {
			printWarn(out, "Overlapping intervals found:")
			renderConflicts(out, conflicts)
		},
	}
}

// projectLabel names the project a dry run would use.
func projectLabel(p *model.Project, o logOptions, candidate string) string {
	if p != nil {
		return p.Name
	}
	if o.createProject {
		name := o.project
		if name == "" {
			name = candidate
		}
		if name != "" {
			return name + " (new)"
		}
	}
	return "(none)"
}

func printParsed(w io.Writer, category model.Category, project string, span resolve.Span, source string) {
	fmt.Fprintln(w, "Parsed:")
	fmt.Fprintf(w, "  Type: %s\n", category)
	fmt.Fprintf(w, "  Project: %s\n", project)
	fmt.Fprintf(w, "  Start: %s\n", span.Start.Format(timecalc.StampLayout))
	fmt.Fprintf(w, "  End: %s\n", span.End.Format(timecalc.StampLayout))
	fmt.Fprintf(w, "  Source: %s\n", source)
}

// describeError turns a command error into the message shown to the user.
func describeError(err error) string {
	switch {
	case errors.Is(err, resolve.ErrCrossMidnight):
		return "Cross-midnight ranges are not supported. Split into two logs."
	case errors.Is(err, resolve.ErrFutureTime):
		return "Start and end must be in the past."
	case errors.Is(err, resolve.ErrConflictUnresolved):
		return "Time range overlaps existing intervals. Re-run with --carve or --force-overwrite."
	default:
		return err.Error()
	}
}
