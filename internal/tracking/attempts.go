package tracking

import (
	"log/slog"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
)

type openAttempt struct {
	loc     model.Location
	start   model.GameTime
	success bool
	// idle marks an attempt restarted by its spell ending. It is dropped
	// on close unless the spell became active again.
	idle    bool
}

// AttemptRecorder turns location and encounter transitions of one session
// into closed attempts.
type AttemptRecorder struct {
	profile    game.Profile
	shot       model.ShotType
	difficulty model.Difficulty
	clock      *Clock
	debouncer  *Debouncer
	encounters EncounterTracker
	open       *openAttempt
	done       []model.KeyedAttempt
	finished   bool
	sink       AttemptSink
	log        *slog.Logger
}

// NewAttemptRecorder creates a recorder. Callers must defer Close right
// after construction.
func NewAttemptRecorder(profile game.Profile, shot model.ShotType, difficulty model.Difficulty, clock *Clock, opts ...Option) *AttemptRecorder {
	o := buildOptions(opts)
	return &AttemptRecorder{
		profile:    profile,
		shot:       shot,
		difficulty: difficulty,
		clock:      clock,
		debouncer:  NewDebouncer(o.dwell),
		sink:       o.attemptSink,
		log:        o.logger.With("game", profile.ID(), "shot", shot, "difficulty", difficulty),
	}
}

// Begin treats loc as already stable and opens an attempt there at once.
// It is used for the location a session starts at.
func (r *AttemptRecorder) Begin(loc model.Location) {
	if r.finished {
		return
	}
	if !r.profile.Tracks(loc) {
		return
	}
	now := r.clock.Now()
	r.debouncer = NewSeededDebouncer(loc, now.Timestamp, r.debouncer.dwell)
	r.closeOpen(now)
	r.open = &openAttempt{loc: loc, start: now, success: true}
}

// UpdateLocation feeds a location reading and reports whether an attempt
// boundary occurred.
func (r *AttemptRecorder) UpdateLocation(loc model.Location) bool {
	if r.finished {
		return false
	}
	if !r.profile.Tracks(loc) {
		return r.ExitLocation()
	}
	now := r.clock.Now()
	if !r.debouncer.Update(loc, now.Timestamp) {
		return false
	}
	r.closeOpen(now)
	r.open = &openAttempt{loc: loc, start: now, success: true}
	r.log.Debug("attempt opened", "location", loc.String())
	return true
}

// UpdateEncounter feeds the active encounter. When the encounter that just
// ended is the challenge of the current stable location, the attempt is
// closed and a new one opened there. That new attempt only counts once the
// spell is active again; a location change first discards it.
func (r *AttemptRecorder) UpdateEncounter(active *model.Encounter) bool {
	if r.finished {
		return false
	}
	tr := r.encounters.Update(active)
	if r.open == nil {
		return false
	}
	spell, ok := r.profile.Challenge(r.open.loc)
	if !ok {
		return false
	}
	if active != nil && active.ID == spell {
		r.open.idle = false
	}
	if tr.CaptureLost && active != nil && active.ID == spell {
		r.open.success = false
		return false
	}
	if !tr.Ended || tr.Finished.ID != spell {
		return false
	}
	stable, ok := r.debouncer.Current()
	if !ok || stable != r.open.loc {
		return false
	}
	if !tr.Finished.Captured {
		r.open.success = false
	}
	now := r.clock.Now()
	r.closeOpen(now)
	r.open = &openAttempt{loc: stable, start: now, success: true, idle: true}
	return true
}

// PushEvent applies an event to the open attempt.
func (r *AttemptRecorder) PushEvent(ev model.Event) {
	if ev.FailsSegment() {
		r.MarkFailed()
	}
}

// MarkFailed fails the open attempt. Only opening a new attempt resets it.
func (r *AttemptRecorder) MarkFailed() {
	if r.open != nil {
		r.open.success = false
	}
}

// ExitLocation closes the open attempt and forgets the stable location.
// It reports whether an attempt was closed.
func (r *AttemptRecorder) ExitLocation() bool {
	if r.finished {
		return false
	}
	r.debouncer.Reset()
	if r.open == nil {
		return false
	}
	r.closeOpen(r.clock.Now())
	return true
}

// Current returns the open attempt's location and success flag.
func (r *AttemptRecorder) Current() (model.Location, bool, bool) {
	if r.open == nil {
		return model.Location{}, false, false
	}
	return r.open.loc, r.open.success, true
}

// Completed returns the attempts closed so far.
func (r *AttemptRecorder) Completed() []model.KeyedAttempt {
	return append([]model.KeyedAttempt(nil), r.done...)
}

// Finish closes the open attempt and returns every attempt of the session.
// The open attempt fails unless cleared is set. Finish may be called once.
func (r *AttemptRecorder) Finish(cleared bool) ([]model.KeyedAttempt, error) {
	if r.finished {
		return nil, ErrAlreadyFinished
	}
	if r.open != nil && !cleared {
		r.open.success = false
	}
	r.closeOpen(r.clock.Now())
	r.finished = true
	out := r.done
	r.done = nil
	if r.sink != nil {
		r.sink.RecordAll(out)
	}
	r.log.Debug("attempts finished", "cleared", cleared, "attempts", len(out))
	return out, nil
}

// Close finishes the session as failed if Finish was never called.
func (r *AttemptRecorder) Close() {
	if r.finished {
		return
	}
	r.log.Warn("attempt recorder closed without finish; recording as failed")
	if _, err := r.Finish(false); err != nil {
		r.log.Error("failed to finalize attempts", "err", err)
	}
}

func (r *AttemptRecorder) closeOpen(now model.GameTime) {
	if r.open == nil {
		return
	}
	if r.open.idle {
		r.log.Debug("dropping attempt at finished spell", "location", r.open.loc.String())
		r.open = nil
		return
	}
	r.done = append(r.done, model.KeyedAttempt{
		Key: model.ChallengeKey{
			Shot:       r.shot,
			Difficulty: r.difficulty,
			Location:   r.open.loc,
		},
		Attempt: model.Attempt{
			Start:   r.open.start,
			End:     now,
			Success: r.open.success,
		},
	})
	r.open = nil
}
