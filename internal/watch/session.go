package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/trace"
	"github.com/stmobo/thstat-sub001/internal/tracking"
)

// session is one play, from the first stable in-game reading to game over.
type session struct {
	w          *Watcher
	ctx        context.Context
	log        *slog.Logger
	mode       model.RunMode
	shot       model.ShotType
	difficulty model.Difficulty
	stage      uint8

	clock    *tracking.Clock
	detector *tracking.Detector
	attempts *tracking.AttemptRecorder
	run      *tracking.RunRecorder

	location  *model.Location
	encounter *model.Encounter
	state     model.Snapshot
	closed    []model.KeyedAttempt
	recorded  bool
	// reported is how many closed attempts updated events have carried.
	reported  int
}

func newSession(ctx context.Context, w *Watcher, tick trace.Tick) (*session, error) {
	p := w.profile
	shot, err := game.ParseShot(p, string(tick.Shot))
	if err != nil {
		return nil, err
	}
	difficulty, err := game.ParseDifficulty(p, string(tick.Difficulty))
	if err != nil {
		return nil, err
	}
	mode := tick.Mode
	if mode == "" {
		mode = model.ModeFull
	}
	if _, err := model.ParseRunMode(string(mode)); err != nil {
		return nil, err
	}
	loc, err := p.Catalog().Lookup(*tick.Location)
	if err != nil {
		return nil, err
	}

	s := &session{
		w:          w,
		ctx:        ctx,
		log:        w.log.With("mode", mode, "shot", shot, "difficulty", difficulty),
		mode:       mode,
		shot:       shot,
		difficulty: difficulty,
		stage:      loc.Stage,
		clock:      tracking.NewClock(w.now),
		location:   &loc,
		encounter:  tick.Encounter,
		state:      tick.Snapshot(),
	}
	s.clock.SetPaused(tick.Paused)
	s.detector = tracking.NewDetector(p.Features(), s.state, tick.Paused)
	opts := []tracking.Option{tracking.WithDwell(w.cfg.Dwell), tracking.WithLogger(w.log)}
	s.attempts = tracking.NewAttemptRecorder(p, shot, difficulty, s.clock, append(opts, tracking.WithAttemptSink(s))...)
	s.run = tracking.NewRunRecorder(p, mode, shot, difficulty, loc, s.state, s.clock, append(opts, tracking.WithRunSink(s))...)
	s.attempts.Begin(loc)
	s.attempts.UpdateEncounter(tick.Encounter)
	return s, nil
}

// step feeds one in-game reading to both recorders.
func (s *session) step(tick trace.Tick) {
	p := s.w.profile
	s.clock.SetPaused(tick.Paused)
	s.state = tick.Snapshot()

	for _, ev := range s.detector.Detect(s.state, tick.Paused) {
		s.attempts.PushEvent(ev)
		s.run.PushEvent(ev)
	}
	for _, name := range tick.Events {
		ev, err := p.Event(name)
		if err != nil {
			s.log.Warn("ignoring unknown game event", "event", name)
			continue
		}
		s.attempts.PushEvent(ev)
		s.run.PushEvent(ev)
	}
	s.run.SetState(s.state)

	if tick.Location != nil {
		loc, err := p.Catalog().Lookup(*tick.Location)
		switch {
		case err != nil:
			s.w.fail(fmt.Errorf("bad location reading: %w", err))
		case s.mode == model.ModeStagePractice && loc.Stage != s.stage:
			s.w.fail(fmt.Errorf("location %s is outside practiced stage %d", p.Catalog().Describe(loc), s.stage))
		default:
			s.location = &loc
			s.attempts.UpdateLocation(loc)
			s.run.UpdateLocation(loc)
		}
	}
	s.encounter = tick.Encounter
	s.attempts.UpdateEncounter(tick.Encounter)
}

func (s *session) finish(cleared bool) {
	if _, err := s.attempts.Finish(cleared); err != nil {
		s.log.Error("failed to finish attempts", "err", err)
	}
	if _, err := s.run.Finish(cleared); err != nil {
		s.log.Error("failed to finish run", "err", err)
	}
}

// abandon finalizes a session that never saw game over.
func (s *session) abandon() {
	s.attempts.Close()
	s.run.Close()
}

// RecordAll keeps the session's attempts and forwards them to the tracker.
func (s *session) RecordAll(attempts []model.KeyedAttempt) {
	s.closed = attempts
	if s.w.cfg.Tracker != nil {
		s.w.cfg.Tracker.RecordAll(attempts)
	}
}

// RecordRun persists the finished run.
func (s *session) RecordRun(run model.Run) {
	if s.recorded {
		return
	}
	s.recorded = true
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.w.persist(ctx, run, s.closed)
}

func (s *session) status() Status {
	st := Status{
		Mode:       s.mode,
		Shot:       s.shot,
		Difficulty: s.difficulty,
		Encounter:  s.encounter,
		Paused:     s.clock.Paused(),
		State:      s.state,
	}
	now := s.clock.Now()
	st.RealTime, st.GameTime = now.RealTime, now.GameTime
	if s.location != nil {
		loc := *s.location
		st.Location = &loc
		st.LocationName = s.w.profile.Catalog().Describe(loc)
	}
	_, st.AttemptSuccess, st.AttemptOpen = s.attempts.Current()
	for _, a := range s.attempts.Completed() {
		switch {
		case a.Attempt.Duration() < s.w.cfg.MinAttempt:
			st.Skipped++
		case a.Attempt.Success:
			st.Attempts++
			st.Captures++
		default:
			st.Attempts++
		}
	}
	return st
}

// unreported returns the attempts closed since the last call.
func (s *session) unreported() []model.KeyedAttempt {
	done := s.attempts.Completed()
	if s.reported >= len(done) {
		return nil
	}
	out := done[s.reported:]
	s.reported = len(done)
	return out
}
