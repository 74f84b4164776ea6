package tracking

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
)

// RunRecorder builds the stage, segment and event hierarchy of one session.
type RunRecorder struct {
	profile    game.Profile
	mode       model.RunMode
	shot       model.ShotType
	difficulty model.Difficulty
	clock      *Clock
	debouncer  *Debouncer

	start    model.RunPoint
	state    model.Snapshot
	cur      model.StageSegment
	stages   []model.RunStage
	practice *model.RunStage
	spell    *model.StageSegment

	finished bool
	sink     RunSink
	log      *slog.Logger
}

// NewRunRecorder opens a run at loc. The mode fixes how segments are
// assembled and cannot change afterwards. Callers must defer Close right
// after construction.
func NewRunRecorder(profile game.Profile, mode model.RunMode, shot model.ShotType, difficulty model.Difficulty, loc model.Location, state model.Snapshot, clock *Clock, opts ...Option) *RunRecorder {
	o := buildOptions(opts)
	now := clock.Now()
	r := &RunRecorder{
		profile:    profile,
		mode:       mode,
		shot:       shot,
		difficulty: difficulty,
		clock:      clock,
		debouncer:  NewSeededDebouncer(loc, now.Timestamp, o.dwell),
		start:      model.RunPoint{Time: now, State: state},
		state:      state,
		cur:        model.NewStageSegment(loc, now, state),
		sink:       o.runSink,
		log:        o.logger.With("game", profile.ID(), "mode", mode),
	}
	if mode == model.ModeStagePractice {
		stage := model.NewRunStage(loc.Stage, now)
		r.practice = &stage
	}
	return r
}

// Mode returns the run mode.
func (r *RunRecorder) Mode() model.RunMode {
	return r.mode
}

// SetState records the latest player state, used for new segments and the
// run end point.
func (r *RunRecorder) SetState(state model.Snapshot) {
	r.state = state
}

// UpdateLocation feeds a location reading and reports whether a new segment
// was opened.
func (r *RunRecorder) UpdateLocation(loc model.Location) bool {
	if r.finished {
		return false
	}
	now := r.clock.Now()
	if !r.debouncer.Update(loc, now.Timestamp) {
		return false
	}
	r.fold(r.cur)
	r.cur = model.NewStageSegment(loc, now, r.state)
	return true
}

// PushEvent records an event in the open segment at the current time.
func (r *RunRecorder) PushEvent(ev model.Event) {
	r.PushEventAt(r.clock.Now(), ev)
}

// PushEventAt records an event observed at an earlier time.
func (r *RunRecorder) PushEventAt(at model.GameTime, ev model.Event) {
	if r.finished {
		return
	}
	r.cur.PushEvent(at, ev)
}

// MarkFailed fails the open segment.
func (r *RunRecorder) MarkFailed() {
	if r.finished {
		return
	}
	r.cur.MarkFailed()
}

// Current returns the open segment.
func (r *RunRecorder) Current() model.StageSegment {
	return r.cur
}

// Finish closes the open segment and returns the run. The open segment
// fails unless cleared is set. Finish may be called once.
func (r *RunRecorder) Finish(cleared bool) (model.Run, error) {
	if r.finished {
		return model.Run{}, ErrAlreadyFinished
	}
	if !cleared {
		r.cur.MarkFailed()
	}
	r.fold(r.cur)
	r.finished = true

	run := model.Run{
		ID:         uuid.NewString(),
		Game:       r.profile.ID(),
		Shot:       r.shot,
		Difficulty: r.difficulty,
		Mode:       r.mode,
		Start:      r.start,
		End:        model.RunPoint{Time: r.clock.Now(), State: r.state},
		Cleared:    cleared,
	}
	switch r.mode {
	case model.ModeStagePractice:
		run.Practice = r.practice
	case model.ModeSpellPractice:
		run.Spell = r.spell
	default:
		run.Stages = r.stages
	}
	if r.sink != nil {
		r.sink.RecordRun(run)
	}
	r.log.Debug("run finished", "run", run.ID, "cleared", cleared)
	return run, nil
}

// Close finishes the run as failed if Finish was never called.
func (r *RunRecorder) Close() {
	if r.finished {
		return
	}
	r.log.Warn("run recorder closed without finish; recording as failed")
	if _, err := r.Finish(false); err != nil {
		r.log.Error("failed to finalize run", "err", err)
	}
}

func (r *RunRecorder) fold(seg model.StageSegment) {
	switch r.mode {
	case model.ModeStagePractice:
		r.practice.PushSegment(seg)
	case model.ModeSpellPractice:
		r.spell = &seg
	default:
		if n := len(r.stages); n > 0 && r.stages[n-1].Stage == seg.Location.Stage {
			r.stages[n-1].PushSegment(seg)
			return
		}
		stage := model.NewRunStage(seg.Location.Stage, seg.Start)
		stage.PushSegment(seg)
		r.stages = append(r.stages, stage)
	}
}
