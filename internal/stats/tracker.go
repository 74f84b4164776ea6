package stats

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"
)

// ErrInvalidRange is returned when range bounds belong to different games.
var ErrInvalidRange = errors.New("invalid tracking range")

// Range is an inclusive span of locations of one game.
type Range struct {
	Low  model.Location
	High model.Location
}

// Contains reports whether loc lies within the range.
func (r Range) Contains(loc model.Location) bool {
	return loc.Game == r.Low.Game && loc.Compare(r.Low) >= 0 && loc.Compare(r.High) <= 0
}

// Tracker aggregates attempts by challenge. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	attempts map[model.ChallengeKey][]model.Attempt
	ranges   map[model.GameID]Range
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		attempts: map[model.ChallengeKey][]model.Attempt{},
		ranges:   map[model.GameID]Range{},
	}
}

// SetTrackingRange restricts iteration for the bounds' game to [low, high].
// The bounds may be given in either order.
func (t *Tracker) SetTrackingRange(low, high model.Location) error {
	if low.Game != high.Game {
		return fmt.Errorf("%w: bounds from %s and %s", ErrInvalidRange, low.Game, high.Game)
	}
	if low.Compare(high) > 0 {
		low, high = high, low
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ranges[low.Game] = Range{Low: low, High: high}
	return nil
}

// ClearTrackingRange removes the restriction for a game.
func (t *Tracker) ClearTrackingRange(game model.GameID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.ranges, game)
}

// TrackingRange returns the active range for a game.
func (t *Tracker) TrackingRange(game model.GameID) (Range, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.ranges[game]
	return r, ok
}

// Record appends an attempt to its challenge.
func (t *Tracker) Record(key model.ChallengeKey, attempt model.Attempt) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[key] = append(t.attempts[key], attempt)
}

// RecordAll appends a batch of attempts under one lock.
func (t *Tracker) RecordAll(attempts []model.KeyedAttempt) {
	if len(attempts) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ka := range attempts {
		t.attempts[ka.Key] = append(t.attempts[ka.Key], ka.Attempt)
	}
}

// Iter yields each challenge of a game with its attempts, ordered by key.
// When a tracking range is set only challenges inside it are yielded. The
// yielded slices are copies taken when iteration starts.
func (t *Tracker) Iter(game model.GameID) iter.Seq2[model.ChallengeKey, []model.Attempt] {
	return func(yield func(model.ChallengeKey, []model.Attempt) bool) {
		for _, e := range t.snapshot(game, nil) {
			if !yield(e.key, e.attempts) {
				return
			}
		}
	}
}

// Query returns per-challenge summaries for a game, optionally limited to a
// single key.
func (t *Tracker) Query(game model.GameID, key *model.ChallengeKey, minAttempt time.Duration) []ChallengeSummary {
	entries := t.snapshot(game, key)
	out := make([]ChallengeSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, Summarize(e.key, e.attempts, minAttempt))
	}
	return out
}

type entry struct {
	key      model.ChallengeKey
	attempts []model.Attempt
}

func (t *Tracker) snapshot(game model.GameID, only *model.ChallengeKey) []entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rng, limited := t.ranges[game]
	out := make([]entry, 0, len(t.attempts))
	for key, attempts := range t.attempts {
		if key.Game() != game {
			continue
		}
		if only != nil && key != *only {
			continue
		}
		if limited && !rng.Contains(key.Location) {
			continue
		}
		out = append(out, entry{key: key, attempts: append([]model.Attempt(nil), attempts...)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].key.Compare(out[j].key) < 0
	})
	return out
}
