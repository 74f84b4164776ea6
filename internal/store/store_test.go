package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "thstat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func testRun(id string, game model.GameID, shot model.ShotType, endedAt time.Time) model.Run {
	return model.Run{
		ID:         id,
		Game:       game,
		Shot:       shot,
		Difficulty: model.DifficultyLunatic,
		Mode:       model.ModeFull,
		Start:      model.RunPoint{Time: model.GameTime{Timestamp: endedAt.Add(-time.Minute)}},
		End:        model.RunPoint{Time: model.GameTime{Timestamp: endedAt, RealTime: time.Minute, GameTime: time.Minute}},
		Cleared:    true,
	}
}

func testAttempt(run model.Run, index uint32, success bool) model.KeyedAttempt {
	start := run.Start.Time.Timestamp
	return model.KeyedAttempt{
		Key: model.ChallengeKey{
			Shot:       run.Shot,
			Difficulty: run.Difficulty,
			Location:   model.Location{Game: run.Game, Index: index, Stage: 1, Kind: model.KindBossSpell, Spell: index},
		},
		Attempt: model.Attempt{
			Start:   model.GameTime{Timestamp: start, RealTime: time.Second, GameTime: time.Second},
			End:     model.GameTime{Timestamp: start.Add(5 * time.Second), RealTime: 6 * time.Second, GameTime: 5500 * time.Millisecond},
			Success: success,
		},
	}
}

func TestInsertAndListRuns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	runs := []model.Run{
		testRun("run-a", model.GameTH07, "ReimuA", base),
		testRun("run-b", model.GameTH07, "SakuyaB", base.Add(time.Hour)),
		testRun("run-c", model.GameTH08, "Reimu", base.Add(2*time.Hour)),
	}
	for _, run := range runs {
		attempts := []model.KeyedAttempt{testAttempt(run, 10, true), testAttempt(run, 11, false)}
		if err := st.InsertRun(ctx, run, []byte(`{}`), "digest-"+run.ID, attempts); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}

	all, err := st.ListRuns(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(all) != 3 || all[0].ID != "run-a" || all[2].ID != "run-c" {
		t.Fatalf("unexpected runs %+v", all)
	}
	if all[0].Attempts != 2 || all[0].Digest != "digest-run-a" || !all[0].Cleared {
		t.Fatalf("unexpected summary %+v", all[0])
	}

	th07, err := st.ListRuns(ctx, model.StatsConfig{Game: model.GameTH07, Last: 1})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(th07) != 1 || th07[0].ID != "run-b" {
		t.Fatalf("expected the last th07 run, got %+v", th07)
	}

	since := base.Add(90 * time.Minute)
	recent, err := st.ListRuns(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "run-c" {
		t.Fatalf("unexpected runs since %v: %+v", since, recent)
	}
}

func TestListAttemptsForRuns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	run := testRun("run-a", model.GameTH07, "ReimuA", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	want := []model.KeyedAttempt{testAttempt(run, 10, true), testAttempt(run, 11, false)}
	if err := st.InsertRun(ctx, run, []byte(`{}`), "d", want); err != nil {
		t.Fatalf("insert run: %v", err)
	}

	got, err := st.ListAttemptsForRuns(ctx, []string{"run-a", "missing"})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(got))
	}
	for i, rec := range got {
		if rec.RunID != "run-a" {
			t.Fatalf("unexpected run id %q", rec.RunID)
		}
		if rec.Key != want[i].Key {
			t.Fatalf("attempt %d key mismatch: %+v vs %+v", i, rec.Key, want[i].Key)
		}
		if rec.Attempt.Success != want[i].Attempt.Success || rec.Attempt.Duration() != want[i].Attempt.Duration() {
			t.Fatalf("attempt %d mismatch: %+v", i, rec.Attempt)
		}
		if !rec.Attempt.Start.Timestamp.Equal(want[i].Attempt.Start.Timestamp) {
			t.Fatalf("attempt %d timestamp mismatch", i)
		}
	}

	if got, err := st.ListAttemptsForRuns(ctx, nil); err != nil || got != nil {
		t.Fatalf("expected no attempts for no runs, got %v %v", got, err)
	}
}

func TestInsertRunDuplicateRollsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	run := testRun("run-a", model.GameTH07, "ReimuA", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if err := st.InsertRun(ctx, run, []byte(`{}`), "d", []model.KeyedAttempt{testAttempt(run, 1, true)}); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if err := st.InsertRun(ctx, run, []byte(`{}`), "d", []model.KeyedAttempt{testAttempt(run, 2, true)}); err == nil {
		t.Fatalf("expected duplicate run id to fail")
	}
	got, err := st.ListAttemptsForRuns(ctx, []string{"run-a"})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("failed insert must not leave attempts, got %d", len(got))
	}
}

func TestGetRunByPrefix(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"abc123", "abd456"} {
		if err := st.InsertRun(ctx, testRun(id, model.GameTH07, "ReimuA", base), []byte(`{"id":"`+id+`"}`), "d", nil); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}

	run, body, err := st.GetRun(ctx, "abc")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.ID != "abc123" || string(body) != `{"id":"abc123"}` {
		t.Fatalf("unexpected run %+v body %s", run, body)
	}
	if _, _, err := st.GetRun(ctx, "ab"); !errors.Is(err, ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
	if _, _, err := st.GetRun(ctx, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrackingRanges(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.SetTrackingRange(ctx, model.GameTH07, 3, 9); err != nil {
		t.Fatalf("set range: %v", err)
	}
	if err := st.SetTrackingRange(ctx, model.GameTH07, 4, 12); err != nil {
		t.Fatalf("update range: %v", err)
	}
	if err := st.SetTrackingRange(ctx, model.GameTH08, 1, 2); err != nil {
		t.Fatalf("set range: %v", err)
	}
	ranges, err := st.TrackingRanges(ctx)
	if err != nil {
		t.Fatalf("list ranges: %v", err)
	}
	if ranges[model.GameTH07] != (IndexRange{Low: 4, High: 12}) || len(ranges) != 2 {
		t.Fatalf("unexpected ranges %+v", ranges)
	}
	if err := st.ClearTrackingRange(ctx, model.GameTH07); err != nil {
		t.Fatalf("clear range: %v", err)
	}
	ranges, err = st.TrackingRanges(ctx)
	if err != nil {
		t.Fatalf("list ranges: %v", err)
	}
	if _, ok := ranges[model.GameTH07]; ok {
		t.Fatalf("th07 range should be cleared")
	}
}
