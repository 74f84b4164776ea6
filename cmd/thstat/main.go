// Package main provides the CLI entrypoint for thstat.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stmobo/thstat-sub001/internal/config"
	"github.com/stmobo/thstat-sub001/internal/logging"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/stats"
	"github.com/stmobo/thstat-sub001/internal/store"
)

const (
	defaultInitDelayMs    = 1000
	defaultMinAttemptSecs = 2.0
	defaultCurveWindow    = 10
	defaultWeakTop        = 5
	defaultWeakMinAttempt = 3
	defaultExportFormat   = "json"
)

var logLevel string

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "thstat",
		Short:         "Touhou run and spell card statistics tracker",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newTrackCmd())
	rootCmd.AddCommand(newLocationsCmd())
	rootCmd.AddCommand(newGamesCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadConfig reads the config file and applies its [log] section.
func loadConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	return fileCfg, nil
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	return logging.New(w, level), nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

// loadTracker builds a tracker primed with the persisted tracking ranges and
// every stored attempt, so live history includes past sessions.
func loadTracker(ctx context.Context, src stats.Source) (*stats.Tracker, error) {
	stored, err := src.TrackingRanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracking ranges: %w", err)
	}
	ranges, err := stats.ResolveRanges(stored)
	if err != nil {
		return nil, err
	}
	tracker := stats.NewTracker()
	for _, r := range ranges {
		if err := tracker.SetTrackingRange(r.Low, r.High); err != nil {
			return nil, err
		}
	}
	runs, err := src.ListRuns(ctx, model.StatsConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	records, err := src.ListAttemptsForRuns(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	for _, rec := range records {
		tracker.Record(rec.Key, rec.Attempt)
	}
	return tracker, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# thstat configuration
# Uncomment a value to enable it. CLI flags override config values.

[watch]
# init-delay-ms = %d      # Time a game must stay in play before a session starts
# realtime = false         # Replay traces at their recorded pace
# serve = "127.0.0.1:7700" # Serve live events over WebSocket
# no-store = false         # Do not persist finished runs
# export = false           # Write finished runs to the export directory

[stats]
# game = "th07"            # Default game filter
# min-attempt-secs = %.1f  # Attempts shorter than this are not counted
# curve-window = %d        # Moving average window
# weak-top = %d            # Number of weak challenges to list

[log]
# level = "info"           # debug, info, warn or error
`,
		defaultInitDelayMs,
		defaultMinAttemptSecs,
		defaultCurveWindow,
		defaultWeakTop,
	)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
