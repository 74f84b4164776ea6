package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/store"
)

// Source is the persisted data a report is built from.
type Source interface {
	ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunSummary, error)
	ListAttemptsForRuns(ctx context.Context, runIDs []string) ([]model.AttemptRecord, error)
	TrackingRanges(ctx context.Context) (map[model.GameID]store.IndexRange, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Runs       []model.RunSummary
	Records    []model.AttemptRecord
	Challenges []ChallengeSummary
	Window     []ChallengeSummary
	Ranges     map[model.GameID]Range
}

// BuildReport loads runs and attempts matching cfg and aggregates them by
// challenge. Window covers the last cfg.CurveWindow runs.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig) (Report, error) {
	runs, err := src.ListRuns(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list runs: %w", err)
	}
	records, err := src.ListAttemptsForRuns(ctx, runIDs(runs))
	if err != nil {
		return Report{}, fmt.Errorf("failed to list attempts: %w", err)
	}
	stored, err := src.TrackingRanges(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load tracking ranges: %w", err)
	}
	ranges, err := ResolveRanges(stored)
	if err != nil {
		return Report{}, err
	}

	windowRuns := map[string]bool{}
	for _, id := range runIDs(lastRuns(runs, cfg.CurveWindow)) {
		windowRuns[id] = true
	}
	all, window := NewTracker(), NewTracker()
	for _, tr := range []*Tracker{all, window} {
		for _, r := range ranges {
			if err := tr.SetTrackingRange(r.Low, r.High); err != nil {
				return Report{}, err
			}
		}
	}
	for _, rec := range records {
		all.Record(rec.Key, rec.Attempt)
		if windowRuns[rec.RunID] {
			window.Record(rec.Key, rec.Attempt)
		}
	}

	games := gamesOf(records)
	return Report{
		Runs:       runs,
		Records:    records,
		Challenges: queryGames(all, games, cfg.MinAttempt),
		Window:     queryGames(window, games, cfg.MinAttempt),
		Ranges:     ranges,
	}, nil
}

// ResolveRanges converts stored catalog indices into location ranges.
func ResolveRanges(stored map[model.GameID]store.IndexRange) (map[model.GameID]Range, error) {
	out := make(map[model.GameID]Range, len(stored))
	for id, r := range stored {
		p, err := game.Lookup(string(id))
		if err != nil {
			return nil, err
		}
		low, err := p.Catalog().Lookup(r.Low)
		if err != nil {
			return nil, err
		}
		high, err := p.Catalog().Lookup(r.High)
		if err != nil {
			return nil, err
		}
		out[id] = Range{Low: low, High: high}
	}
	return out, nil
}

// Describe renders a location using its game catalog when known.
func Describe(loc model.Location) string {
	p, err := game.Lookup(string(loc.Game))
	if err != nil {
		return loc.String()
	}
	return p.Catalog().Describe(loc)
}

func queryGames(tr *Tracker, games []model.GameID, minAttempt time.Duration) []ChallengeSummary {
	var out []ChallengeSummary
	for _, g := range games {
		out = append(out, tr.Query(g, nil, minAttempt)...)
	}
	return out
}

func gamesOf(records []model.AttemptRecord) []model.GameID {
	seen := map[model.GameID]bool{}
	var games []model.GameID
	for _, rec := range records {
		if g := rec.Key.Game(); !seen[g] {
			seen[g] = true
			games = append(games, g)
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i] < games[j] })
	return games
}

func runIDs(runs []model.RunSummary) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

func lastRuns(runs []model.RunSummary, window int) []model.RunSummary {
	if window <= 0 || len(runs) <= window {
		return runs
	}
	return runs[len(runs)-window:]
}
