package tracking

import (
	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
)

// Detector derives events from consecutive player snapshots according to
// the features a game exposes.
type Detector struct {
	features game.Features
	prev     model.Snapshot
	paused   bool
}

// NewDetector starts detection from an initial snapshot.
func NewDetector(features game.Features, initial model.Snapshot, paused bool) *Detector {
	return &Detector{features: features, prev: initial, paused: paused}
}

// Detect compares s with the previous snapshot and returns the events
// between them.
func (d *Detector) Detect(s model.Snapshot, paused bool) []model.Event {
	var events []model.Event
	missed := false

	switch d.features.Lives {
	case game.LivesStock:
		if s.Lives < d.prev.Lives {
			events = append(events, model.Miss)
			missed = true
		}
	case game.LivesTotalMisses:
		for i := d.prev.Misses; i < s.Misses; i++ {
			events = append(events, model.Miss)
			missed = true
		}
	}

	switch d.features.Bombs {
	case game.BombsStock:
		if s.Bombs < d.prev.Bombs {
			events = append(events, model.Bomb)
		}
	case game.BombsTotalUsed:
		for i := d.prev.BombsUsed; i < s.BombsUsed; i++ {
			events = append(events, model.Bomb)
		}
	case game.BombsPower:
		if s.Power < d.prev.Power && !missed {
			events = append(events, model.Bomb)
		}
	}

	if d.features.Continues && s.Continues > d.prev.Continues {
		events = append(events, model.Continue)
	}

	if d.features.Pause && paused != d.paused {
		if paused {
			events = append(events, model.Pause)
		} else {
			events = append(events, model.Unpause)
		}
	}

	d.prev = s
	d.paused = paused
	return events
}
