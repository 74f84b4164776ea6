package main

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/stats"
	"github.com/stmobo/thstat-sub001/internal/statsui"
)

const curveHeight = 10

var (
	statsGame        string
	statsShot        string
	statsDifficulty  string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsMinAttempt  float64
	statsWeakTop     int
	statsTUI         bool
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show capture statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsGame, "game", "", "game filter")
	cmd.Flags().StringVar(&statsShot, "shot", "", "shot type filter (requires --game)")
	cmd.Flags().StringVar(&statsDifficulty, "difficulty", "", "difficulty filter (requires --game)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().Float64Var(&statsMinAttempt, "min-attempt", defaultMinAttemptSecs, "shortest attempt (seconds) that counts")
	cmd.Flags().IntVar(&statsWeakTop, "weak-top", defaultWeakTop, "number of weak challenges to list")
	cmd.Flags().BoolVar(&statsTUI, "tui", false, "browse stats interactively")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "game", &statsGame, fileCfg.Stats.Game)
	applyFloatConfig(cmd, "min-attempt", &statsMinAttempt, fileCfg.Stats.MinAttemptSecs)
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)
	applyIntConfig(cmd, "weak-top", &statsWeakTop, fileCfg.Stats.WeakTop)

	cfg, err := buildStatsConfig(statsGame, statsShot, statsDifficulty, statsSince, statsLast, statsCurveWindow, statsMinAttempt, statsWeakTop)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if statsTUI {
		program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	return renderReport(out, report, cfg, stats.IsTerminal(out))
}

// buildStatsConfig validates the stats filters.
func buildStatsConfig(gameID, shot, difficulty, since string, last, window int, minAttemptSecs float64, weakTop int) (model.StatsConfig, error) {
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if window <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	if minAttemptSecs < 0 {
		return model.StatsConfig{}, fmt.Errorf("--min-attempt must be >= 0")
	}
	if weakTop < 0 {
		return model.StatsConfig{}, fmt.Errorf("--weak-top must be >= 0")
	}
	cfg := model.StatsConfig{
		Last:        last,
		CurveWindow: window,
		MinAttempt:  time.Duration(minAttemptSecs * float64(time.Second)),
		WeakTop:     weakTop,
	}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	if gameID == "" {
		if shot != "" || difficulty != "" {
			return model.StatsConfig{}, fmt.Errorf("--shot and --difficulty require --game")
		}
		return cfg, nil
	}
	p, err := game.Lookup(gameID)
	if err != nil {
		return model.StatsConfig{}, err
	}
	cfg.Game = p.ID()
	if shot != "" {
		if cfg.Shot, err = game.ParseShot(p, shot); err != nil {
			return model.StatsConfig{}, err
		}
	}
	if difficulty != "" {
		if cfg.Difficulty, err = game.ParseDifficulty(p, difficulty); err != nil {
			return model.StatsConfig{}, err
		}
	}
	return cfg, nil
}

func renderReport(w io.Writer, report stats.Report, cfg model.StatsConfig, useColor bool) error {
	if err := stats.RenderSummary(w, report.Runs, report.Challenges); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(report.Runs) == 0 {
		return nil
	}
	if err := stats.RenderChallengeTable(w, report.Challenges, stats.Describe); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderCurves(w, report.Runs, report.Records, cfg.MinAttempt, cfg.CurveWindow, 0, curveHeight, useColor); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	weak := stats.WeakestChallenges(report.Window, cfg.WeakTop, defaultWeakMinAttempt)
	if cfg.WeakTop == 0 || len(weak) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\nPractice next (last %d runs)\n", cfg.CurveWindow); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderChallengeTable(w, weak, stats.Describe); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
