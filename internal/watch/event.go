package watch

import (
	"sync"
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"
)

// EventKind names a notification sent to observers.
type EventKind string

// Observer event kinds.
const (
	EventAttached    EventKind = "attached"
	EventUpdated     EventKind = "updated"
	EventRunFinished EventKind = "run_finished"
	EventDetached    EventKind = "detached"
	EventError       EventKind = "error"
)

// Phase is the lifecycle phase of a watched game.
type Phase string

// Watcher phases.
const (
	PhaseWaiting      Phase = "waiting"
	PhaseInitializing Phase = "initializing"
	PhaseActive       Phase = "active"
	PhaseRejected     Phase = "rejected"
)

// Status is the live state of a watched game.
type Status struct {
	Phase          Phase            `json:"phase"`
	Mode           model.RunMode    `json:"mode,omitempty"`
	Shot           model.ShotType   `json:"shot,omitempty"`
	Difficulty     model.Difficulty `json:"difficulty,omitempty"`
	Location       *model.Location  `json:"location,omitempty"`
	LocationName   string           `json:"location_name,omitempty"`
	AttemptOpen    bool             `json:"attempt_open"`
	AttemptSuccess bool             `json:"attempt_success"`
	Encounter      *model.Encounter `json:"encounter,omitempty"`
	Paused         bool             `json:"paused"`
	RealTime       time.Duration    `json:"real_time"`
	GameTime       time.Duration    `json:"game_time"`
	State          model.Snapshot   `json:"state"`

	// Attempts and Captures count closed attempts of the session that
	// last at least Config.MinAttempt. Shorter ones are Skipped.
	Attempts int `json:"attempts"`
	Captures int `json:"captures"`
	Skipped  int `json:"skipped"`

	// New holds the attempts closed since the previous updated event.
	New []model.KeyedAttempt `json:"new,omitempty"`
}

// RunResult is a finished and persisted run.
type RunResult struct {
	Run      model.Run            `json:"run"`
	Attempts []model.KeyedAttempt `json:"attempts"`
	Digest   string               `json:"digest"`
	Path     string               `json:"path,omitempty"`
}

// Event is a notification about a watched game.
type Event struct {
	Kind   EventKind    `json:"kind"`
	Game   model.GameID `json:"game"`
	Source string       `json:"source"`
	Time   time.Time    `json:"time"`
	Status *Status      `json:"status,omitempty"`
	Run    *RunResult   `json:"run,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Observer receives watcher events. Implementations must not block and must
// be safe for concurrent use when several games are watched.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f.
func (f ObserverFunc) Observe(ev Event) {
	f(ev)
}

// MultiObserver fans events out to several observers.
type MultiObserver []Observer

// Observe forwards ev to every non-nil observer.
func (m MultiObserver) Observe(ev Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(ev)
		}
	}
}

// Recorder is an Observer that keeps every event, for tests and summaries.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Observe stores ev.
func (r *Recorder) Observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns the stored events, optionally filtered by kind.
func (r *Recorder) Events(kinds ...EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(kinds) == 0 {
		return append([]Event(nil), r.events...)
	}
	var out []Event
	for _, ev := range r.events {
		for _, k := range kinds {
			if ev.Kind == k {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}
