// Package watch drives the tracking engine from a stream of game readings:
// it detects the game lifecycle, runs one session per play and hands
// finished work to statistics, storage and observers.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stmobo/thstat-sub001/internal/export"
	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/logging"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/stats"
	"github.com/stmobo/thstat-sub001/internal/trace"
	"github.com/stmobo/thstat-sub001/internal/tracking"
)

// DefaultInitDelay is how long a game must stay in play before a session
// starts.
const DefaultInitDelay = time.Second

const updateInterval = time.Second

// RunStore persists finished runs.
type RunStore interface {
	InsertRun(ctx context.Context, run model.Run, body []byte, digest string, attempts []model.KeyedAttempt) error
}

// Config wires a Watcher to its collaborators. Every field is optional.
type Config struct {
	InitDelay    time.Duration
	Dwell        time.Duration
	// MinAttempt is the shortest attempt counted in live status.
	MinAttempt   time.Duration
	Tracker      *stats.Tracker
	Store        RunStore
	ExportDir    string
	ExportFormat export.Format
	Observer     Observer
	Logger       *slog.Logger
	// Now supplies the wall time a trace starts at. Defaults to time.Now.
	Now func() time.Time
}

// Watcher follows one game. It is not safe for concurrent use.
type Watcher struct {
	cfg     Config
	profile game.Profile
	source  string
	log     *slog.Logger

	base       time.Time
	offset     time.Duration
	phase      Phase
	initSince  time.Duration
	session    *session
	lastUpdate time.Duration
	lastKey    statusKey
	results    []RunResult
	errs       []error
}

// New returns a Watcher for profile reading from the named source.
func New(profile game.Profile, source string, cfg Config) *Watcher {
	if cfg.InitDelay <= 0 {
		cfg.InitDelay = DefaultInitDelay
	}
	if cfg.Dwell <= 0 {
		cfg.Dwell = tracking.MinDwell
	}
	if cfg.ExportFormat == "" {
		cfg.ExportFormat = export.FormatJSON
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := logging.OrDiscard(cfg.Logger).With("game", profile.ID(), "source", source)
	return &Watcher{
		cfg:     cfg,
		profile: profile,
		source:  source,
		log:     log,
		base:    cfg.Now(),
		phase:   PhaseWaiting,
	}
}

// Phase returns the current lifecycle phase.
func (w *Watcher) Phase() Phase {
	return w.phase
}

// Results returns the runs finished so far.
func (w *Watcher) Results() []RunResult {
	return append([]RunResult(nil), w.results...)
}

// Attach announces the watcher to observers.
func (w *Watcher) Attach() {
	w.log.Info("attached")
	w.emit(Event{Kind: EventAttached, Status: &Status{Phase: w.phase}})
}

// Step advances the watcher by one reading.
func (w *Watcher) Step(ctx context.Context, tick trace.Tick) error {
	if tick.Game != "" && tick.Game != w.profile.ID() {
		return fmt.Errorf("tick for %s fed to %s watcher", tick.Game, w.profile.ID())
	}
	w.offset = tick.Offset()

	switch w.phase {
	case PhaseWaiting:
		if tick.State == trace.StateInGame {
			w.phase = PhaseInitializing
			w.initSince = w.offset
			w.log.Debug("game started, waiting for init delay")
		}
	case PhaseInitializing:
		switch {
		case tick.State != trace.StateInGame:
			w.phase = PhaseWaiting
		case w.offset-w.initSince >= w.cfg.InitDelay && tick.Location != nil:
			w.begin(ctx, tick)
		}
	case PhaseRejected:
		if tick.State == trace.StateMenu {
			w.phase = PhaseWaiting
		}
	case PhaseActive:
		switch tick.State {
		case trace.StateMenu:
			w.log.Warn("returned to menu without game over; recording as failed")
			w.end(ctx, false)
		case trace.StateGameOver:
			w.session.step(tick)
			w.end(ctx, tick.Cleared)
		default:
			w.session.step(tick)
		}
	}
	w.maybeUpdate(false)
	return nil
}

// Close finalizes an unfinished session as failed and announces the
// detach. It returns the errors met while persisting runs.
func (w *Watcher) Close(ctx context.Context) error {
	if w.session != nil {
		w.log.Warn("detached during a session; recording as failed")
		w.session.ctx = ctx
		w.session.abandon()
		w.session = nil
		w.phase = PhaseWaiting
	}
	w.log.Info("detached", "runs", len(w.results))
	w.emit(Event{Kind: EventDetached, Status: &Status{Phase: w.phase}})
	return errors.Join(w.errs...)
}

func (w *Watcher) begin(ctx context.Context, tick trace.Tick) {
	s, err := newSession(ctx, w, tick)
	if err != nil {
		w.phase = PhaseRejected
		w.fail(fmt.Errorf("failed to start session: %w", err))
		return
	}
	w.session = s
	w.phase = PhaseActive
	w.log.Info("session started", "mode", s.mode, "shot", s.shot, "difficulty", s.difficulty)
	w.maybeUpdate(true)
}

func (w *Watcher) end(ctx context.Context, cleared bool) {
	w.session.ctx = ctx
	w.session.finish(cleared)
	w.session = nil
	w.phase = PhaseWaiting
	w.maybeUpdate(true)
}

// persist stores, exports and announces a finished run.
func (w *Watcher) persist(ctx context.Context, run model.Run, attempts []model.KeyedAttempt) {
	doc := export.NewDocument(run, attempts)
	body, digest, err := export.Canonical(doc)
	if err != nil {
		w.fail(err)
		return
	}
	result := RunResult{Run: run, Attempts: attempts, Digest: digest}
	if w.cfg.Store != nil {
		if err := w.cfg.Store.InsertRun(ctx, run, body, digest, attempts); err != nil {
			w.fail(fmt.Errorf("failed to store run: %w", err))
		}
	}
	if w.cfg.ExportDir != "" {
		path, err := export.WriteFile(w.cfg.ExportDir, doc, w.cfg.ExportFormat)
		if err != nil {
			w.fail(err)
		} else {
			result.Path = path
		}
	}
	w.results = append(w.results, result)
	w.log.Info("run finished", "run", run.ID, "cleared", run.Cleared, "attempts", len(attempts))
	w.emit(Event{Kind: EventRunFinished, Run: &result})
}

func (w *Watcher) fail(err error) {
	w.errs = append(w.errs, err)
	w.log.Error("watch error", "err", err)
	w.emit(Event{Kind: EventError, Error: err.Error()})
}

func (w *Watcher) now() time.Time {
	return w.base.Add(w.offset)
}

func (w *Watcher) emit(ev Event) {
	if w.cfg.Observer == nil {
		return
	}
	ev.Game = w.profile.ID()
	ev.Source = w.source
	ev.Time = w.now()
	w.cfg.Observer.Observe(ev)
}

// Status returns the live state.
func (w *Watcher) Status() Status {
	if w.session == nil {
		return Status{Phase: w.phase}
	}
	st := w.session.status()
	st.Phase = w.phase
	return st
}

type statusKey struct {
	phase    Phase
	location uint32
	open     bool
	success  bool
	paused   bool
	enc      uint32
	state    model.Snapshot
	attempts int
}

func (w *Watcher) maybeUpdate(force bool) {
	st := w.Status()
	key := statusKey{
		phase:    st.Phase,
		open:     st.AttemptOpen,
		success:  st.AttemptSuccess,
		paused:   st.Paused,
		state:    st.State,
		attempts: st.Attempts + st.Skipped,
	}
	if st.Location != nil {
		key.location = st.Location.Index + 1
	}
	if st.Encounter != nil {
		key.enc = st.Encounter.ID
	}
	if !force && key == w.lastKey && w.offset-w.lastUpdate < updateInterval {
		return
	}
	w.lastKey = key
	w.lastUpdate = w.offset
	if w.session != nil {
		st.New = w.session.unreported()
	}
	w.emit(Event{Kind: EventUpdated, Status: &st})
}
