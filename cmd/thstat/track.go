package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/stats"
	"github.com/stmobo/thstat-sub001/internal/store"
)

var (
	trackGame     string
	locationsGame string
)

var tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var tableCellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Limit statistics to a range of locations",
	}
	start := &cobra.Command{
		Use:   "start LOW HIGH",
		Short: "Track only the groups LOW..HIGH (see: thstat locations)",
		Args:  cobra.ExactArgs(2),
		RunE:  runTrackStartCmd,
	}
	start.Flags().StringVar(&trackGame, "game", "", "game identifier")
	if err := start.MarkFlagRequired("game"); err != nil {
		panic(err)
	}
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Track every location again",
		Args:  cobra.NoArgs,
		RunE:  runTrackStopCmd,
	}
	stop.Flags().StringVar(&trackGame, "game", "", "game identifier (default: all games)")
	show := &cobra.Command{
		Use:   "show",
		Short: "Show tracking ranges",
		Args:  cobra.NoArgs,
		RunE:  runTrackShowCmd,
	}
	cmd.AddCommand(start, stop, show)
	return cmd
}

func runTrackStartCmd(cmd *cobra.Command, args []string) error {
	p, err := game.Lookup(trackGame)
	if err != nil {
		return err
	}
	low, high, err := parseGroupRange(p, args[0], args[1])
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	if err := st.SetTrackingRange(context.Background(), p.ID(), low.Index, high.Index); err != nil {
		return fmt.Errorf("failed to save tracking range: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Tracking %s: %s .. %s\n", p.ID(), p.Catalog().Describe(low), p.Catalog().Describe(high))
	return err
}

// parseGroupRange resolves two group identifiers to location bounds.
func parseGroupRange(p game.Profile, lowArg, highArg string) (model.Location, model.Location, error) {
	low, err := strconv.Atoi(strings.TrimSpace(lowArg))
	if err != nil {
		return model.Location{}, model.Location{}, fmt.Errorf("invalid group %q: %w", lowArg, err)
	}
	high, err := strconv.Atoi(strings.TrimSpace(highArg))
	if err != nil {
		return model.Location{}, model.Location{}, fmt.Errorf("invalid group %q: %w", highArg, err)
	}
	return p.Catalog().Range(low, high)
}

func runTrackStopCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	ctx := context.Background()

	var games []model.GameID
	if trackGame != "" {
		p, err := game.Lookup(trackGame)
		if err != nil {
			return err
		}
		games = []model.GameID{p.ID()}
	} else {
		ranges, err := st.TrackingRanges(ctx)
		if err != nil {
			return fmt.Errorf("failed to load tracking ranges: %w", err)
		}
		for id := range ranges {
			games = append(games, id)
		}
	}
	for _, id := range games {
		if err := st.ClearTrackingRange(ctx, id); err != nil {
			return fmt.Errorf("failed to clear tracking range: %w", err)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Tracking all of %s\n", id); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runTrackShowCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	stored, err := st.TrackingRanges(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load tracking ranges: %w", err)
	}
	return renderRanges(cmd.OutOrStdout(), stored)
}

func renderRanges(w io.Writer, stored map[model.GameID]store.IndexRange) error {
	ranges, err := stats.ResolveRanges(stored)
	if err != nil {
		return err
	}
	if len(ranges) == 0 {
		_, err := fmt.Fprintln(w, "Tracking every location.")
		return err
	}
	ids := make([]string, 0, len(ranges))
	for id := range ranges {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := ranges[model.GameID(id)]
		if _, err := fmt.Fprintf(w, "%s: %s .. %s\n", id, stats.Describe(r.Low), stats.Describe(r.High)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newLocationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List location groups of a game",
		Args:  cobra.NoArgs,
		RunE:  runLocationsCmd,
	}
	cmd.Flags().StringVar(&locationsGame, "game", "", "game identifier")
	if err := cmd.MarkFlagRequired("game"); err != nil {
		panic(err)
	}
	return cmd
}

func runLocationsCmd(cmd *cobra.Command, _ []string) error {
	p, err := game.Lookup(locationsGame)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(p.Catalog().Groups()))
	for _, g := range p.Catalog().Groups() {
		indices := strconv.Itoa(int(g.Min().Index))
		if g.Max().Index != g.Min().Index {
			indices = fmt.Sprintf("%d-%d", g.Min().Index, g.Max().Index)
		}
		rows = append(rows, []string{strconv.Itoa(g.Index), g.StageName, g.Name, indices})
	}
	return writeTable(cmd.OutOrStdout(), []string{"Group", "Stage", "Section", "Locations"}, rows)
}

func newGamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List supported games",
		Args:  cobra.NoArgs,
		RunE:  runGamesCmd,
	}
}

func runGamesCmd(cmd *cobra.Command, _ []string) error {
	var rows [][]string
	for _, p := range game.All() {
		shots := make([]string, 0, len(p.ShotTypes()))
		for _, s := range p.ShotTypes() {
			shots = append(shots, string(s))
		}
		difficulties := make([]string, 0, len(p.Difficulties()))
		for _, d := range p.Difficulties() {
			difficulties = append(difficulties, string(d))
		}
		rows = append(rows, []string{string(p.ID()), p.Name(), strings.Join(shots, " "), strings.Join(difficulties, " ")})
	}
	return writeTable(cmd.OutOrStdout(), []string{"Game", "Title", "Shots", "Difficulties"}, rows)
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
