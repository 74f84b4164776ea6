package model

import (
	"fmt"
	"sort"
	"strings"
)

// EventKind is the discriminant of an Event. Declaration order is the
// ordering used when events share a timestamp.
type EventKind uint8

// Event kinds.
const (
	EventMiss EventKind = iota
	EventBomb
	EventPause
	EventUnpause
	EventContinue
	EventGameSpecific
)

var eventKindNames = [...]string{
	EventMiss:         "miss",
	EventBomb:         "bomb",
	EventPause:        "pause",
	EventUnpause:      "unpause",
	EventContinue:     "continue",
	EventGameSpecific: "game_specific",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	if int(k) >= len(eventKindNames) {
		return nil, fmt.Errorf("unknown event kind %d", uint8(k))
	}
	return []byte(eventKindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range eventKindNames {
		if n == name {
			*k = EventKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", name)
}

// Event is a discrete occurrence during play. Detail names a game-specific
// event; Fails carries the game's verdict on whether it fails the segment.
type Event struct {
	Kind   EventKind `json:"kind" yaml:"kind"`
	Detail string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	Fails  bool      `json:"fails,omitempty" yaml:"fails,omitempty"`
}

// Convenience constructors.
var (
	Miss     = Event{Kind: EventMiss}
	Bomb     = Event{Kind: EventBomb}
	Pause    = Event{Kind: EventPause}
	Unpause  = Event{Kind: EventUnpause}
	Continue = Event{Kind: EventContinue}
)

// GameSpecific builds a game-specific event.
func GameSpecific(detail string, fails bool) Event {
	return Event{Kind: EventGameSpecific, Detail: detail, Fails: fails}
}

// FailsSegment reports whether the event fails the segment it lands in.
func (e Event) FailsSegment() bool {
	switch e.Kind {
	case EventMiss, EventBomb, EventContinue:
		return true
	case EventGameSpecific:
		return e.Fails
	default:
		return false
	}
}

// Compare orders by kind; game-specific events compare by detail.
func (e Event) Compare(other Event) int {
	switch {
	case e.Kind < other.Kind:
		return -1
	case e.Kind > other.Kind:
		return 1
	case e.Kind == EventGameSpecific:
		return strings.Compare(e.Detail, other.Detail)
	default:
		return 0
	}
}

func (e Event) String() string {
	if e.Kind == EventGameSpecific {
		return e.Detail
	}
	return e.Kind.String()
}

// SegmentEvent is an event with the time it was observed.
type SegmentEvent struct {
	Time  GameTime `json:"time" yaml:"time"`
	Event Event    `json:"event" yaml:"event"`
}

// Compare orders by time, then by event.
func (s SegmentEvent) Compare(other SegmentEvent) int {
	if c := s.Time.Compare(other.Time); c != 0 {
		return c
	}
	return s.Event.Compare(other.Event)
}

// Snapshot is the player state captured when a segment or run opens or closes.
type Snapshot struct {
	Lives     int `json:"lives" yaml:"lives"`
	Bombs     int `json:"bombs" yaml:"bombs"`
	Power     int `json:"power" yaml:"power"`
	Continues int `json:"continues" yaml:"continues"`
	Misses    int `json:"misses" yaml:"misses"`
	BombsUsed int `json:"bombs_used" yaml:"bombs_used"`
}

// StageSegment is one contiguous stay at a location.
type StageSegment struct {
	Location   Location       `json:"location" yaml:"location"`
	Start      GameTime       `json:"start" yaml:"start"`
	StartState Snapshot       `json:"start_state" yaml:"start_state"`
	Success    bool           `json:"success" yaml:"success"`
	Events     []SegmentEvent `json:"events" yaml:"events"`
}

// NewStageSegment opens a segment that has not failed yet.
func NewStageSegment(loc Location, start GameTime, state Snapshot) StageSegment {
	return StageSegment{
		Location:   loc,
		Start:      start,
		StartState: state,
		Success:    true,
		Events:     []SegmentEvent{},
	}
}

// PushEvent inserts an event keeping Events sorted.
func (s *StageSegment) PushEvent(at GameTime, ev Event) {
	item := SegmentEvent{Time: at, Event: ev}
	idx := sort.Search(len(s.Events), func(i int) bool {
		return s.Events[i].Compare(item) > 0
	})
	s.Events = append(s.Events, SegmentEvent{})
	copy(s.Events[idx+1:], s.Events[idx:])
	s.Events[idx] = item
	if ev.FailsSegment() {
		s.Success = false
	}
}

// MarkFailed fails the segment permanently.
func (s *StageSegment) MarkFailed() {
	s.Success = false
}

// RunStage groups the segments played in one stage.
type RunStage struct {
	Stage    uint8          `json:"stage" yaml:"stage"`
	Start    GameTime       `json:"start" yaml:"start"`
	Segments []StageSegment `json:"segments" yaml:"segments"`
}

// NewRunStage creates an empty stage record.
func NewRunStage(stage uint8, start GameTime) RunStage {
	return RunStage{Stage: stage, Start: start, Segments: []StageSegment{}}
}

// PushSegment inserts a closed segment ordered by open time. It panics when
// the segment belongs to a different stage.
func (r *RunStage) PushSegment(seg StageSegment) {
	if seg.Location.Stage != r.Stage {
		panic(fmt.Sprintf("segment at %s pushed into stage %d", seg.Location, r.Stage))
	}
	idx := sort.Search(len(r.Segments), func(i int) bool {
		return r.Segments[i].Start.Compare(seg.Start) > 0
	})
	r.Segments = append(r.Segments, StageSegment{})
	copy(r.Segments[idx+1:], r.Segments[idx:])
	r.Segments[idx] = seg
}

// RunMode is the kind of session a run records.
type RunMode string

// Run modes.
const (
	ModeFull          RunMode = "full"
	ModeStagePractice RunMode = "stage_practice"
	ModeSpellPractice RunMode = "spell_practice"
)

// ParseRunMode validates a mode name.
func ParseRunMode(value string) (RunMode, error) {
	switch RunMode(value) {
	case ModeFull, ModeStagePractice, ModeSpellPractice:
		return RunMode(value), nil
	default:
		return "", fmt.Errorf("unknown run mode %q", value)
	}
}

// RunPoint is the time and player state at a run boundary.
type RunPoint struct {
	Time  GameTime `json:"time" yaml:"time"`
	State Snapshot `json:"state" yaml:"state"`
}

// Run is the finished recording of a play session. Exactly one of Stages,
// Practice or Spell is populated, selected by Mode.
type Run struct {
	ID         string        `json:"id" yaml:"id"`
	Game       GameID        `json:"game" yaml:"game"`
	Shot       ShotType      `json:"shot" yaml:"shot"`
	Difficulty Difficulty    `json:"difficulty" yaml:"difficulty"`
	Mode       RunMode       `json:"mode" yaml:"mode"`
	Start      RunPoint      `json:"start" yaml:"start"`
	End        RunPoint      `json:"end" yaml:"end"`
	Cleared    bool          `json:"cleared" yaml:"cleared"`
	Stages     []RunStage    `json:"stages,omitempty" yaml:"stages,omitempty"`
	Practice   *RunStage     `json:"practice,omitempty" yaml:"practice,omitempty"`
	Spell      *StageSegment `json:"spell,omitempty" yaml:"spell,omitempty"`
}

// Segments returns every segment of the run in order.
func (r Run) Segments() []StageSegment {
	switch r.Mode {
	case ModeStagePractice:
		if r.Practice == nil {
			return nil
		}
		return r.Practice.Segments
	case ModeSpellPractice:
		if r.Spell == nil {
			return nil
		}
		return []StageSegment{*r.Spell}
	default:
		var out []StageSegment
		for _, st := range r.Stages {
			out = append(out, st.Segments...)
		}
		return out
	}
}
