package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timescribe/internal/resolve"
)

var (
	stopNote  string
	stopFlags timerFlags
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopNote, "note", "", "Append a note to the interval description")
	addTimerFlags(stopCmd, &stopFlags)
}

func runStop(cmd *cobra.Command, args []string) error {
	now := nowFunc()
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	active, err := store.Active(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		return errors.New("No active timer to stop.")
	}

	if stopNote != "" {
		if active.Description != "" {
			active.Description += "\n"
		}
		active.Description += stopNote
		if err := store.Update(ctx, *active); err != nil {
			return err
		}
	}

	env := newTimerEnv(cmd, store, stopFlags)
	err = stopInterval(ctx, env, *active, now)
	if errors.Is(err, resolve.ErrCancelled) {
		printInfo(env.out, "Canceled. The timer is still running.")
		return err
	}
	if err != nil {
		return err
	}

	elapsed := int64(now.Sub(active.StartedAt).Seconds())
	fmt.Fprintf(env.out, "Stopped timer for project %q. Elapsed: %s\n",
		active.ProjectName, formatElapsed(elapsed))
	return nil
}

func formatElapsed(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
