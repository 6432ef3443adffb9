package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timescribe/internal/model"
	"github.com/Tiliavir/timescribe/internal/resolve"
	"github.com/Tiliavir/timescribe/internal/storage"
	"github.com/Tiliavir/timescribe/internal/timecalc"
)

// timerSource tags intervals recorded with start/stop.
const timerSource = "timer"

var (
	startNote     string
	startCategory string
	startFlags    timerFlags
)

var startCmd = &cobra.Command{
	Use:   "start <project>",
	Short: "Start a timer",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&startNote, "note", "", "Description of the work")
	startCmd.Flags().StringVar(&startCategory, "type", "work", "work|break")
	addTimerFlags(startCmd, &startFlags)
}

// timerFlags decide what happens when a stopped timer overlaps stored
// intervals.
type timerFlags struct {
	carve          bool
	forceOverwrite bool
	noInput        bool
}

func addTimerFlags(cmd *cobra.Command, f *timerFlags) {
	cmd.Flags().BoolVar(&f.carve, "carve", false, "Allow trimming/splitting existing intervals the timer overlaps")
	cmd.Flags().BoolVar(&f.forceOverwrite, "force-overwrite", false, "Overwrite overlaps without asking")
	cmd.Flags().BoolVarP(&f.noInput, "no-input", "n", false, "Never prompt; fail on unresolved overlaps")
}

// timerEnv carries the collaborators of a start or stop invocation.
type timerEnv struct {
	store *storage.Store
	in    io.Reader
	out   io.Writer
	opts  resolve.Options
}

func newTimerEnv(cmd *cobra.Command, store *storage.Store, f timerFlags) timerEnv {
	return timerEnv{
		store: store,
		in:    cmd.InOrStdin(),
		out:   cmd.OutOrStdout(),
		opts: resolve.Options{
			Carve:          f.carve,
			ForceOverwrite: f.forceOverwrite,
			Interactive:    !f.noInput && isTerminal(cmd.InOrStdin()),
		},
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	category, ok := model.ParseCategory(startCategory)
	if !ok {
		return errInvalidType
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	env := newTimerEnv(cmd, store, startFlags)
	iv, err := startTimer(cmd.Context(), env, args[0], category, startNote, nowFunc())
	if errors.Is(err, resolve.ErrCancelled) {
		printInfo(env.out, "Canceled. The running timer was kept.")
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(env.out, "Started timer for project %q at %s\n", iv.ProjectName, iv.StartedAt.Format("15:04:05"))
	return nil
}

// startTimer stops a running timer, then stores a new open interval for
// project, creating the project when needed. The open interval's heartbeat
// is its start, so it takes no room until it is stopped.
func startTimer(ctx context.Context, env timerEnv, project string, category model.Category, note string, now time.Time) (model.Interval, error) {
	active, err := env.store.Active(ctx)
	if err != nil {
		return model.Interval{}, err
	}
	if active != nil {
		printWarn(env.out, fmt.Sprintf("Auto-stopping active timer for project %q", active.ProjectName))
		if err := stopInterval(ctx, env, *active, now); err != nil {
			return model.Interval{}, err
		}
	}

	p, err := resolve.FindProject(ctx, env.store, project, "")
	if err != nil {
		return model.Interval{}, err
	}
	p, err = resolve.EnsureProject(ctx, env.store, p, project, "", true)
	if err != nil {
		return model.Interval{}, err
	}

	iv := model.Interval{
		Category:       category,
		StartedAt:      now,
		LastActivityAt: &now,
		Description:    note,
		Source:         timerSource,
	}
	if p != nil {
		iv.ProjectID = &p.ID
		iv.ProjectName = p.Name
	}
	iv.ID, err = env.store.Insert(ctx, iv)
	if err != nil {
		return model.Interval{}, err
	}
	slog.Debug("timer started", "id", iv.ID, "project", iv.ProjectName)
	return iv, nil
}

// stopInterval ends the running interval iv at stopTime. Every calendar day
// it covered is committed through the resolver like a logged interval and
// the open row is removed afterwards. When a later day cannot be committed
// the timer keeps running from the start of that day.
func stopInterval(ctx context.Context, env timerEnv, iv model.Interval, stopTime time.Time) error {
	r := newResolver(env.store, env.in, env.out)
	for _, span := range daySpans(iv.StartedAt, stopTime) {
		outcome, err := r.Commit(ctx, resolve.Candidate{
			Span:        span,
			Category:    iv.Category,
			Description: iv.Description,
			ProjectID:   iv.ProjectID,
			Source:      iv.Source,
		}, env.opts)
		if err != nil {
			if span.Start.After(iv.StartedAt) {
				rest := iv
				rest.StartedAt = span.Start
				rest.LastActivityAt = &span.Start
				if uerr := env.store.Update(ctx, rest); uerr != nil {
					return uerr
				}
			}
			return err
		}
		slog.Debug("committed timer segment", "timer", iv.ID, "id", outcome.ID, "day", span.Start.Format(timecalc.DateLayout))
	}
	return env.store.DeleteInterval(ctx, iv.ID)
}

// daySpans cuts [start, end) at every midnight. A day's span ends at
// 23:59:59; empty spans are dropped.
func daySpans(start, end time.Time) []resolve.Span {
	var spans []resolve.Span
	for from := start; from.Before(end); from = timecalc.StartOfDay(from).AddDate(0, 0, 1) {
		to := end
		if !timecalc.SameDay(from, end) {
			to = timecalc.EndOfDay(from)
		}
		if to.After(from) {
			spans = append(spans, resolve.Span{Start: from, End: to})
		}
	}
	return spans
}
