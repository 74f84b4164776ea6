package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/store"
)

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "thstat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	locs := game.TH07.Catalog().Locations()
	for i := 0; i < 3; i++ {
		ended := epoch.Add(time.Duration(i) * time.Hour)
		run := model.Run{
			ID:         "run-" + string(rune('a'+i)),
			Game:       model.GameTH07,
			Shot:       "ReimuA",
			Difficulty: model.DifficultyHard,
			Mode:       model.ModeFull,
			Start:      model.RunPoint{Time: model.GameTime{Timestamp: ended.Add(-time.Minute)}},
			End:        model.RunPoint{Time: model.GameTime{Timestamp: ended}},
		}
		attempts := []model.KeyedAttempt{
			{Key: model.ChallengeKey{Shot: run.Shot, Difficulty: run.Difficulty, Location: locs[0]}, Attempt: attempt(0, 5, true)},
			{Key: model.ChallengeKey{Shot: run.Shot, Difficulty: run.Difficulty, Location: locs[1]}, Attempt: attempt(5, 5, i == 2)},
			{Key: model.ChallengeKey{Shot: run.Shot, Difficulty: run.Difficulty, Location: locs[2]}, Attempt: attempt(10, 1, false)},
		}
		if err := st.InsertRun(ctx, run, []byte(`{}`), "d", attempts); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}

	cfg := model.StatsConfig{
		Game:        model.GameTH07,
		Last:        2,
		CurveWindow: 1,
		MinAttempt:  2 * time.Second,
	}
	report, err := BuildReport(ctx, st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Runs) != 2 || report.Runs[0].ID != "run-b" || report.Runs[1].ID != "run-c" {
		t.Fatalf("unexpected runs %+v", report.Runs)
	}
	if len(report.Records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(report.Records))
	}
	if len(report.Challenges) != 3 {
		t.Fatalf("expected 3 challenges, got %d", len(report.Challenges))
	}
	second := report.Challenges[1]
	if second.Attempts != 2 || second.Successes != 1 {
		t.Fatalf("unexpected second challenge %+v", second)
	}
	if short := report.Challenges[2]; short.Attempts != 0 || short.Skipped != 2 {
		t.Fatalf("short attempts should be skipped: %+v", short)
	}
	if w := report.Window[1]; w.Attempts != 1 || w.Successes != 1 {
		t.Fatalf("window should only hold the last run: %+v", w)
	}

	if err := st.SetTrackingRange(ctx, model.GameTH07, locs[1].Index, locs[2].Index); err != nil {
		t.Fatalf("set range: %v", err)
	}
	report, err = BuildReport(ctx, st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Challenges) != 2 || report.Challenges[0].Key.Location != locs[1] {
		t.Fatalf("tracking range should drop the first location: %+v", report.Challenges)
	}
	if r := report.Ranges[model.GameTH07]; r.Low != locs[1] || r.High != locs[2] {
		t.Fatalf("unexpected resolved range %+v", r)
	}
}

func TestDescribeUnknownGame(t *testing.T) {
	l := model.Location{Game: "th99", Stage: 2, Kind: model.KindStart}
	if got := Describe(l); got != l.String() {
		t.Fatalf("expected fallback description, got %q", got)
	}
}
