package cmd

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/timescribe/internal/config"
	"github.com/Tiliavir/timescribe/internal/resolve"
	"github.com/Tiliavir/timescribe/internal/storage"
)

var (
	cfgFile string
	verbose bool

	v   = config.New()
	cfg config.Config

	// nowFunc is the clock used by every command.
	nowFunc = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "timescribe",
	Short: "timescribe – log work and breaks in plain language",
	Long: `timescribe is a single-binary command-line time tracker.
Time is logged from natural language ("yesterday worked on Acme from 9 to 11")
or with a running timer, and stored in a SQLite database in ~/.timescribe/.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// A declined confirmation has already been reported.
		if !errors.Is(err, resolve.ErrCancelled) {
			printError(rootCmd.ErrOrStderr(), describeError(err))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.timescribe/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database file (default <data_dir>/timescribe.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	_ = v.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(outlookCmd)
}

// setup loads the configuration and installs the diagnostic logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, created, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	level := parseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	if created {
		printInfo(cmd.ErrOrStderr(), "Created default config at "+v.ConfigFileUsed())
	}
	slog.Debug("configuration loaded", "file", v.ConfigFileUsed(), "db", cfg.DBPath)
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the configured database.
func openStore() (*storage.Store, error) {
	return storage.Open(cfg.DBPath)
}
