package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stmobo/thstat-sub001/internal/config"
	"github.com/stmobo/thstat-sub001/internal/export"
	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/notify"
	"github.com/stmobo/thstat-sub001/internal/sim"
	"github.com/stmobo/thstat-sub001/internal/stats"
	"github.com/stmobo/thstat-sub001/internal/trace"
	"github.com/stmobo/thstat-sub001/internal/tui"
	"github.com/stmobo/thstat-sub001/internal/watch"
)

var (
	watchInitDelayMs   int
	watchRealtime      bool
	watchServe         string
	watchNoStore       bool
	watchNoTUI         bool
	watchSimulate      string
	watchSimRuns       int
	watchSeed          int64
	watchExport        bool
	watchExportDir     string
	watchExportFormat  string
	watchMinAttemptSec float64
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [TRACE...]",
		Short: "Track runs from recorded or simulated game traces",
		Long: "Watch replays game traces through the run tracker, one game per trace,\n" +
			"recording every finished run and its spell card attempts.",
		RunE: runWatchCmd,
	}
	cmd.Flags().IntVar(&watchInitDelayMs, "init-delay-ms", defaultInitDelayMs, "time a game must stay in play before a session starts")
	cmd.Flags().BoolVar(&watchRealtime, "realtime", false, "replay traces at their recorded pace")
	cmd.Flags().StringVar(&watchServe, "serve", "", "serve live events over WebSocket on this address")
	cmd.Flags().BoolVar(&watchNoStore, "no-store", false, "do not persist finished runs")
	cmd.Flags().BoolVar(&watchNoTUI, "no-tui", false, "log progress instead of showing the live view")
	cmd.Flags().StringVar(&watchSimulate, "simulate", "", "comma separated games to simulate instead of reading traces")
	cmd.Flags().IntVar(&watchSimRuns, "sim-runs", 3, "runs per simulated game")
	cmd.Flags().Int64Var(&watchSeed, "seed", 0, "simulation seed (0 picks one)")
	cmd.Flags().BoolVar(&watchExport, "export", false, "also write each finished run to the export directory")
	cmd.Flags().StringVar(&watchExportDir, "export-dir", "", "export directory (implies --export)")
	cmd.Flags().StringVar(&watchExportFormat, "export-format", defaultExportFormat, "export file format (json, yaml)")
	cmd.Flags().Float64Var(&watchMinAttemptSec, "min-attempt", defaultMinAttemptSecs, "shortest attempt (seconds) counted in the live history")
	return cmd
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "init-delay-ms", &watchInitDelayMs, fileCfg.Watch.InitDelayMs)
	applyBoolConfig(cmd, "realtime", &watchRealtime, fileCfg.Watch.Realtime)
	applyStringConfig(cmd, "serve", &watchServe, fileCfg.Watch.Serve)
	applyBoolConfig(cmd, "no-store", &watchNoStore, fileCfg.Watch.NoStore)
	applyBoolConfig(cmd, "export", &watchExport, fileCfg.Watch.Export)
	applyFloatConfig(cmd, "min-attempt", &watchMinAttemptSec, fileCfg.Stats.MinAttemptSecs)

	if watchInitDelayMs < 0 {
		return fmt.Errorf("--init-delay-ms must be >= 0")
	}
	if watchMinAttemptSec < 0 {
		return fmt.Errorf("--min-attempt must be >= 0")
	}
	format, err := export.ParseFormat(watchExportFormat)
	if err != nil {
		return err
	}
	exportDir := watchExportDir
	if exportDir == "" && watchExport {
		exportDir = config.DefaultExportDir()
	}

	sources, err := watchSources(args, watchSimulate, watchRealtime)
	if err != nil {
		return err
	}

	useTUI := !watchNoTUI && stats.IsTerminal(os.Stdout)
	logger, closeLog, err := watchLogger(useTUI)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := watch.Config{
		InitDelay:    time.Duration(watchInitDelayMs) * time.Millisecond,
		MinAttempt:   time.Duration(watchMinAttemptSec * float64(time.Second)),
		ExportDir:    exportDir,
		ExportFormat: format,
		Logger:       logger,
	}
	if watchInitDelayMs == 0 {
		// The watcher treats zero as unset.
		cfg.InitDelay = time.Nanosecond
	}

	if watchNoStore {
		cfg.Tracker = stats.NewTracker()
	} else {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		tracker, err := loadTracker(ctx, st)
		if err != nil {
			return err
		}
		cfg.Tracker = tracker
		cfg.Store = st
	}

	observers := watch.MultiObserver{}
	var hub *notify.Hub
	serveErr := make(chan error, 1)
	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	if watchServe != "" {
		hub = notify.NewHub(logger)
		observers = append(observers, hub)
		go func() {
			serveErr <- hub.Serve(serveCtx, watchServe)
		}()
	}

	var results []watch.RunResult
	if useTUI {
		results, err = watchWithTUI(ctx, sources, cfg, observers)
	} else {
		cfg.Observer = append(observers, progressObserver(logger))
		results, err = watch.RunAll(ctx, sources, cfg)
	}

	stopServe()
	if hub != nil {
		if serr := <-serveErr; serr != nil {
			err = errors.Join(err, serr)
		}
	}
	printResults(results)
	return err
}

// watchWithTUI runs the watchers behind the live view. Quitting the view
// cancels the watchers, which still persist any interrupted session.
func watchWithTUI(ctx context.Context, sources []watch.Source, cfg watch.Config, observers watch.MultiObserver) ([]watch.RunResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := tui.NewModel(cfg.Tracker, cfg.MinAttempt, cancel)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	cfg.Observer = append(observers, tui.Observer(program.Send))

	type outcome struct {
		results []watch.RunResult
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := watch.RunAll(ctx, sources, cfg)
		program.Send(tui.DoneMsg{Err: err})
		done <- outcome{results: results, err: err}
	}()

	_, runErr := program.Run()
	cancel()
	out := <-done
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) && !errors.Is(runErr, context.Canceled) {
		return out.results, errors.Join(out.err, fmt.Errorf("failed to run TUI: %w", runErr))
	}
	return out.results, out.err
}

// watchLogger logs to stderr, or to the log file while the live view owns
// the terminal.
func watchLogger(useTUI bool) (*slog.Logger, func(), error) {
	if !useTUI {
		logger, err := newLogger(os.Stderr)
		return logger, func() {}, err
	}
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger, err := newLogger(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return logger, func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of the log file.
			_ = cerr
		}
	}, nil
}

// watchSources loads trace files, or simulates sessions for the listed games.
func watchSources(paths []string, simulate string, realtime bool) ([]watch.Source, error) {
	if simulate != "" && len(paths) > 0 {
		return nil, fmt.Errorf("pass trace files or --simulate, not both")
	}
	var sources []watch.Source
	if simulate != "" {
		games, err := parseGameList(simulate)
		if err != nil {
			return nil, err
		}
		for i, p := range games {
			opts := sim.Options{Runs: watchSimRuns}
			if watchSeed != 0 {
				opts.Seed = watchSeed + int64(i)
			}
			sources = append(sources, watch.Source{
				Name:     "sim:" + string(p.ID()),
				Ticks:    sim.Generate(p, opts),
				Realtime: realtime,
			})
		}
		return sources, nil
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no traces given (pass trace files or --simulate)")
	}
	for _, path := range paths {
		ticks, err := trace.Load(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, watch.Source{
			Name:     filepath.Base(path),
			Ticks:    ticks,
			Realtime: realtime,
		})
	}
	return sources, nil
}

// parseGameList resolves a comma separated list of game identifiers.
func parseGameList(value string) ([]game.Profile, error) {
	seen := map[string]bool{}
	var out []game.Profile
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := game.Lookup(part)
		if err != nil {
			return nil, err
		}
		if seen[string(p.ID())] {
			continue
		}
		seen[string(p.ID())] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no games given")
	}
	return out, nil
}

func progressObserver(logger *slog.Logger) watch.Observer {
	return watch.ObserverFunc(func(ev watch.Event) {
		switch ev.Kind {
		case watch.EventRunFinished:
			if ev.Run != nil {
				logger.Info("run finished", "game", ev.Game, "run", ev.Run.Run.ID,
					"cleared", ev.Run.Run.Cleared, "attempts", len(ev.Run.Attempts))
			}
		case watch.EventError:
			logger.Warn("watch error", "game", ev.Game, "source", ev.Source, "err", ev.Error)
		}
	})
}

func printResults(results []watch.RunResult) {
	if len(results) == 0 {
		logErrln("No runs finished.")
		return
	}
	for _, r := range results {
		captured := 0
		for _, a := range r.Attempts {
			if a.Attempt.Success {
				captured++
			}
		}
		outcome := "failed"
		if r.Run.Cleared {
			outcome = "cleared"
		}
		line := fmt.Sprintf("%s %s %s %s %s: %s, %d/%d captured",
			shortID(r.Run.ID), r.Run.Game, r.Run.Mode, r.Run.Shot, r.Run.Difficulty, outcome, captured, len(r.Attempts))
		if r.Path != "" {
			line += " -> " + r.Path
		}
		logErrln(line)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
