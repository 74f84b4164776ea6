package tracking

import "github.com/stmobo/thstat-sub001/internal/model"

// EncounterTransition is the result of one EncounterTracker update.
type EncounterTransition struct {
	// Finished is the encounter that just ended, valid when Ended is set.
	Finished model.Encounter
	Ended    bool
	// CaptureLost is set when the active encounter stays the same but can
	// no longer be captured.
	CaptureLost bool
}

// EncounterTracker detects the end of spell card encounters.
type EncounterTracker struct {
	prev    model.Encounter
	hasPrev bool
}

// Update compares the active encounter with the previous tick's.
func (t *EncounterTracker) Update(active *model.Encounter) EncounterTransition {
	var tr EncounterTransition
	switch {
	case t.hasPrev && active == nil:
		tr = EncounterTransition{Finished: t.prev, Ended: true}
	case t.hasPrev && active.ID != t.prev.ID:
		tr = EncounterTransition{Finished: t.prev, Ended: true}
	case t.hasPrev && t.prev.Captured && !active.Captured:
		tr = EncounterTransition{CaptureLost: true}
	}
	if active == nil {
		t.prev, t.hasPrev = model.Encounter{}, false
	} else {
		t.prev, t.hasPrev = *active, true
	}
	return tr
}

// Active returns the encounter seen on the last update.
func (t *EncounterTracker) Active() (model.Encounter, bool) {
	return t.prev, t.hasPrev
}
