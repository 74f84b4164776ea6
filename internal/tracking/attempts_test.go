package tracking

import (
	"errors"
	"testing"
	"time"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
)

type captureSink struct {
	attempts []model.KeyedAttempt
	runs     []model.Run
}

func (s *captureSink) RecordAll(attempts []model.KeyedAttempt) {
	s.attempts = append(s.attempts, attempts...)
}

func (s *captureSink) RecordRun(run model.Run) {
	s.runs = append(s.runs, run)
}

func th07Locations(t *testing.T) (first, second, spell model.Location) {
	t.Helper()
	locs := game.TH07.Catalog().Locations()
	first, second = locs[0], locs[1]
	for _, loc := range locs {
		if loc.Kind == model.KindBossSpell {
			return first, second, loc
		}
	}
	t.Fatalf("no boss spell in catalog")
	return
}

func newTestAttemptRecorder(fc *fakeClock, opts ...Option) *AttemptRecorder {
	return NewAttemptRecorder(game.TH07, "ReimuA", model.DifficultyNormal, NewClock(fc.now), opts...)
}

// hold feeds loc every 50ms for ms milliseconds.
func hold(fc *fakeClock, ms int, update func()) {
	for elapsed := 0; elapsed < ms; elapsed += 50 {
		update()
		fc.advance(50)
	}
	update()
}

func TestAttemptSingleLocationCleared(t *testing.T) {
	fc := newFakeClock()
	l1, _, _ := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	defer rec.Close()

	hold(fc, 1000, func() { rec.UpdateLocation(l1) })
	attempts, err := rec.Finish(true)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	got := attempts[0]
	want := model.ChallengeKey{Shot: "ReimuA", Difficulty: model.DifficultyNormal, Location: l1}
	if got.Key != want {
		t.Fatalf("unexpected key %+v", got.Key)
	}
	if !got.Attempt.Success {
		t.Fatalf("expected success")
	}
	if got.Attempt.Duration() != 250*time.Millisecond {
		t.Fatalf("attempt should open once the location is stable, got %v", got.Attempt.Duration())
	}
}

func TestAttemptMissesFailDespiteClear(t *testing.T) {
	fc := newFakeClock()
	l1, _, _ := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	defer rec.Close()

	rec.Begin(l1)
	fc.advance(100)
	rec.PushEvent(model.Miss)
	rec.PushEvent(model.Miss)
	attempts, err := rec.Finish(true)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Attempt.Success {
		t.Fatalf("expected one failed attempt, got %+v", attempts)
	}
}

func TestAttemptFinishNotClearedFails(t *testing.T) {
	fc := newFakeClock()
	l1, _, _ := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	rec.Begin(l1)
	rec.PushEvent(model.Pause)
	attempts, _ := rec.Finish(false)
	if len(attempts) != 1 || attempts[0].Attempt.Success {
		t.Fatalf("expected failed attempt, got %+v", attempts)
	}
	if _, err := rec.Finish(true); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
}

func TestAttemptMarkFailedIdempotent(t *testing.T) {
	fc := newFakeClock()
	l1, l2, _ := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	defer rec.Close()

	rec.Begin(l1)
	rec.MarkFailed()
	rec.MarkFailed()
	if _, success, ok := rec.Current(); !ok || success {
		t.Fatalf("expected failed open attempt")
	}
	rec.PushEvent(model.Unpause)
	if _, success, _ := rec.Current(); success {
		t.Fatalf("non-failing events must not restore success")
	}

	hold(fc, 800, func() { rec.UpdateLocation(l2) })
	loc, success, ok := rec.Current()
	if !ok || loc != l2 || !success {
		t.Fatalf("new attempt should start successful at l2, got %v %v %v", loc, success, ok)
	}
	done := rec.Completed()
	if len(done) != 1 || done[0].Attempt.Success {
		t.Fatalf("expected first attempt closed as failed, got %+v", done)
	}
}

func TestAttemptFlickerDoesNotSplit(t *testing.T) {
	fc := newFakeClock()
	l1, l2, _ := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	defer rec.Close()

	rec.Begin(l1)
	for i := 0; i < 20; i++ {
		loc := l1
		if i%3 == 0 {
			loc = l2
		}
		if rec.UpdateLocation(loc) {
			t.Fatalf("flicker produced a boundary at step %d", i)
		}
		fc.advance(100)
	}
	if len(rec.Completed()) != 0 {
		t.Fatalf("no attempts should be closed")
	}
}

func TestAttemptEncounterCompletionRestarts(t *testing.T) {
	fc := newFakeClock()
	_, _, spellLoc := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	defer rec.Close()

	rec.Begin(spellLoc)
	active := &model.Encounter{ID: spellLoc.Spell, Captured: true}
	rec.UpdateEncounter(active)
	fc.advance(3000)
	if !rec.UpdateEncounter(nil) {
		t.Fatalf("finishing the location's spell should close the attempt")
	}
	done := rec.Completed()
	if len(done) != 1 || !done[0].Attempt.Success {
		t.Fatalf("expected captured attempt, got %+v", done)
	}
	if done[0].Attempt.Duration() != 3*time.Second {
		t.Fatalf("unexpected duration %v", done[0].Attempt.Duration())
	}
	if loc, success, ok := rec.Current(); !ok || loc != spellLoc || !success {
		t.Fatalf("a fresh attempt should be open at the spell location")
	}
	fc.advance(500)
	rec.UpdateEncounter(active)
	fc.advance(2000)
	if !rec.UpdateEncounter(nil) {
		t.Fatalf("finishing the retried spell should close the attempt")
	}
	done = rec.Completed()
	if len(done) != 2 || done[1].Attempt.Duration() != 2500*time.Millisecond {
		t.Fatalf("the retry should run from the restart, got %+v", done)
	}
}

func TestAttemptSpellEndWithLocationChangeAddsNoCapture(t *testing.T) {
	fc := newFakeClock()
	_, next, spellLoc := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	defer rec.Close()

	rec.Begin(spellLoc)
	rec.UpdateEncounter(&model.Encounter{ID: spellLoc.Spell, Captured: true})
	fc.advance(3000)
	rec.PushEvent(model.Miss)
	fc.advance(1250)
	// The spell ends on the same tick the location moves on.
	hold(fc, 1000, func() {
		rec.UpdateLocation(next)
		rec.UpdateEncounter(nil)
	})
	attempts, err := rec.Finish(true)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected the spell and the next location, got %+v", attempts)
	}
	spell := attempts[0]
	if spell.Key.Location != spellLoc || spell.Attempt.Success || spell.Attempt.Duration() != 4250*time.Millisecond {
		t.Fatalf("unexpected spell attempt %+v", spell)
	}
	if attempts[1].Key.Location != next {
		t.Fatalf("second attempt should be at the next location, got %+v", attempts[1])
	}
	for _, a := range attempts {
		if a.Key.Location == spellLoc && a.Attempt.Success {
			t.Fatalf("the ended spell must not gain a captured attempt: %+v", attempts)
		}
	}
}

func TestAttemptFinishDropsUnstartedRetry(t *testing.T) {
	fc := newFakeClock()
	_, _, spellLoc := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	defer rec.Close()

	rec.Begin(spellLoc)
	rec.UpdateEncounter(&model.Encounter{ID: spellLoc.Spell, Captured: true})
	fc.advance(2000)
	rec.UpdateEncounter(nil)
	fc.advance(100)
	attempts, err := rec.Finish(true)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if len(attempts) != 1 || !attempts[0].Attempt.Success {
		t.Fatalf("expected only the captured spell, got %+v", attempts)
	}
}

func TestAttemptEncounterUncapturedFails(t *testing.T) {
	fc := newFakeClock()
	_, _, spellLoc := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	defer rec.Close()

	rec.Begin(spellLoc)
	rec.UpdateEncounter(&model.Encounter{ID: spellLoc.Spell, Captured: true})
	rec.UpdateEncounter(&model.Encounter{ID: spellLoc.Spell, Captured: false})
	if _, success, _ := rec.Current(); success {
		t.Fatalf("losing capture should fail the attempt")
	}
	rec.UpdateEncounter(nil)
	done := rec.Completed()
	if len(done) != 1 || done[0].Attempt.Success {
		t.Fatalf("expected failed attempt, got %+v", done)
	}
}

func TestAttemptEncounterMismatchIgnored(t *testing.T) {
	fc := newFakeClock()
	l1, _, _ := th07Locations(t)
	rec := newTestAttemptRecorder(fc)
	defer rec.Close()

	rec.Begin(l1)
	rec.UpdateEncounter(&model.Encounter{ID: 99, Captured: true})
	if rec.UpdateEncounter(nil) {
		t.Fatalf("an encounter unrelated to the location must not close the attempt")
	}
	if len(rec.Completed()) != 0 {
		t.Fatalf("expected no closed attempts")
	}
}

func TestAttemptUntrackedLocationExits(t *testing.T) {
	fc := newFakeClock()
	rec := NewAttemptRecorder(game.TH10, "MarisaB", model.DifficultyHard, NewClock(fc.now))
	defer rec.Close()

	var spellLoc, section model.Location
	for _, loc := range game.TH10.Catalog().Locations() {
		if loc.Kind == model.KindBossSpell && spellLoc.Spell == 0 {
			spellLoc = loc
		}
		if loc.Kind == model.KindBossNonspell {
			section = loc
		}
	}
	hold(fc, 800, func() { rec.UpdateLocation(spellLoc) })
	if !rec.UpdateLocation(section) {
		t.Fatalf("leaving a spell for an untracked section should close the attempt")
	}
	if _, _, ok := rec.Current(); ok {
		t.Fatalf("no attempt should be open at an untracked section")
	}
	attempts, _ := rec.Finish(true)
	if len(attempts) != 1 || attempts[0].Key.Location != spellLoc {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
}

func TestAttemptCloseFinalizesAsFailed(t *testing.T) {
	fc := newFakeClock()
	l1, _, _ := th07Locations(t)
	sink := &captureSink{}
	func() {
		rec := newTestAttemptRecorder(fc, WithAttemptSink(sink))
		defer rec.Close()
		rec.Begin(l1)
		fc.advance(500)
	}()
	if len(sink.attempts) != 1 {
		t.Fatalf("expected close to deliver 1 attempt, got %d", len(sink.attempts))
	}
	if sink.attempts[0].Attempt.Success {
		t.Fatalf("abandoned attempt should be failed")
	}
}

func TestAttemptCloseAfterFinishIsNoop(t *testing.T) {
	fc := newFakeClock()
	l1, _, _ := th07Locations(t)
	sink := &captureSink{}
	rec := newTestAttemptRecorder(fc, WithAttemptSink(sink))
	rec.Begin(l1)
	if _, err := rec.Finish(true); err != nil {
		t.Fatalf("finish: %v", err)
	}
	rec.Close()
	if len(sink.attempts) != 1 || !sink.attempts[0].Attempt.Success {
		t.Fatalf("close after finish must not record again: %+v", sink.attempts)
	}
}
