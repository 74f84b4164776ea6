package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/stmobo/thstat-sub001/internal/export"
	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/sim"
	"github.com/stmobo/thstat-sub001/internal/store"
	"github.com/stmobo/thstat-sub001/internal/trace"
)

var (
	runsGame string
	runsLast int

	exportFormat string
	exportOut    string

	simGame       string
	simRuns       int
	simSeed       int64
	simMode       string
	simShot       string
	simDifficulty string
	simStage      int
	simSkill      float64
	simOut        string
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
	cmd.Flags().StringVar(&runsGame, "game", "", "game filter")
	cmd.Flags().IntVar(&runsLast, "last", 20, "limit to last N runs (0 for all)")
	return cmd
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	if runsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	cfg := model.StatsConfig{Last: runsLast}
	if runsGame != "" {
		p, err := game.Lookup(runsGame)
		if err != nil {
			return err
		}
		cfg.Game = p.ID()
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	runs, err := st.ListRuns(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return err
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		outcome := "failed"
		if r.Cleared {
			outcome = "cleared"
		}
		rows = append(rows, []string{
			shortID(r.ID),
			string(r.Game),
			string(r.Mode),
			string(r.Shot),
			string(r.Difficulty),
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.EndedAt.Sub(r.StartedAt).Round(time.Second).String(),
			outcome,
			strconv.Itoa(r.Attempts),
		})
	}
	headers := []string{"ID", "Game", "Mode", "Shot", "Diff", "Ended", "Length", "Result", "Att"}
	return writeTable(cmd.OutOrStdout(), headers, rows)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export RUN_ID",
		Short: "Export a recorded run",
		Long:  "Export writes a stored run with its attempts. RUN_ID may be a unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", defaultExportFormat, "output format (json, yaml)")
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	summary, body, err := st.GetRun(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrAmbiguous) {
			return err
		}
		return fmt.Errorf("failed to load run: %w", err)
	}
	if err := export.Verify(body, summary.Digest); err != nil {
		return fmt.Errorf("stored run %s is corrupt: %w", shortID(summary.ID), err)
	}
	doc, err := export.Decode(body)
	if err != nil {
		return err
	}
	data, err := export.Encode(doc, format)
	if err != nil {
		return err
	}
	if exportOut == "" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if format == export.FormatJSON {
			_, err = fmt.Fprintln(cmd.OutOrStdout())
		}
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	logErrf("Wrote %s\n", exportOut)
	return nil
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a simulated game trace",
		Args:  cobra.NoArgs,
		RunE:  runSimulateCmd,
	}
	cmd.Flags().StringVar(&simGame, "game", "", "game identifier")
	cmd.Flags().IntVar(&simRuns, "runs", 3, "number of runs")
	cmd.Flags().Int64Var(&simSeed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().StringVar(&simMode, "mode", string(model.ModeFull), "run mode (full, stage_practice, spell_practice)")
	cmd.Flags().StringVar(&simShot, "shot", "", "shot type (default: first of the game)")
	cmd.Flags().StringVar(&simDifficulty, "difficulty", string(model.DifficultyNormal), "difficulty")
	cmd.Flags().IntVar(&simStage, "stage", 0, "practiced stage in stage practice (0 picks one)")
	cmd.Flags().Float64Var(&simSkill, "skill", 0.7, "chance of clearing a section cleanly (0-1)")
	cmd.Flags().StringVarP(&simOut, "out", "o", "", "output trace file")
	for _, name := range []string{"game", "out"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func runSimulateCmd(_ *cobra.Command, _ []string) error {
	p, err := game.Lookup(simGame)
	if err != nil {
		return err
	}
	opts, err := simOptions(p)
	if err != nil {
		return err
	}
	ticks := sim.Generate(p, opts)
	if err := trace.Save(simOut, ticks); err != nil {
		return err
	}
	logErrf("Wrote %d readings to %s\n", len(ticks), simOut)
	return nil
}

func simOptions(p game.Profile) (sim.Options, error) {
	if simRuns <= 0 {
		return sim.Options{}, fmt.Errorf("--runs must be > 0")
	}
	if simSkill <= 0 || simSkill > 1 {
		return sim.Options{}, fmt.Errorf("--skill must be in (0, 1]")
	}
	if simStage < 0 || simStage > 255 {
		return sim.Options{}, fmt.Errorf("--stage must be between 0 and 255")
	}
	mode, err := model.ParseRunMode(simMode)
	if err != nil {
		return sim.Options{}, err
	}
	opts := sim.Options{
		Seed:  simSeed,
		Runs:  simRuns,
		Mode:  mode,
		Stage: uint8(simStage),
		Skill: simSkill,
	}
	if simShot != "" {
		if opts.Shot, err = game.ParseShot(p, simShot); err != nil {
			return sim.Options{}, err
		}
	}
	if opts.Difficulty, err = game.ParseDifficulty(p, simDifficulty); err != nil {
		return sim.Options{}, err
	}
	if simStage != 0 {
		found := false
		for _, s := range p.Catalog().Stages() {
			if s == uint8(simStage) {
				found = true
			}
		}
		if !found {
			return sim.Options{}, fmt.Errorf("%s has no stage %d", p.ID(), simStage)
		}
	}
	return opts, nil
}
