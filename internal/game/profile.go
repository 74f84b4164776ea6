// Package game describes the supported games: their location catalogs,
// loadouts, tracked player features and game-specific events.
package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stmobo/thstat-sub001/internal/model"
)

// LivesTracking selects how misses are detected.
type LivesTracking uint8

// Lives tracking modes.
const (
	LivesNone LivesTracking = iota
	LivesStock
	LivesTotalMisses
)

// BombsTracking selects how bombs are detected.
type BombsTracking uint8

// Bomb tracking modes.
const (
	BombsNone BombsTracking = iota
	BombsStock
	BombsTotalUsed
	BombsPower
)

// Features lists the player state a game exposes for event detection.
type Features struct {
	Lives     LivesTracking
	Bombs     BombsTracking
	Continues bool
	Pause     bool
}

// Profile supplies everything the tracking engine needs to know about a game.
type Profile interface {
	ID() model.GameID
	Name() string
	Catalog() *Catalog
	ShotTypes() []model.ShotType
	Difficulties() []model.Difficulty
	Features() Features
	// Tracks reports whether attempts are recorded at loc.
	Tracks(loc model.Location) bool
	// Compare orders two locations of this game.
	Compare(a, b model.Location) int
	// Challenge extracts the spell card identity of loc.
	Challenge(loc model.Location) (uint32, bool)
	// Event classifies a game-specific signal.
	Event(name string) (model.Event, error)
	// Variant maps a difficulty to the spell card variant played at it.
	Variant(d model.Difficulty) int
}

type profile struct {
	id           model.GameID
	name         string
	catalog      *Catalog
	shots        []model.ShotType
	difficulties []model.Difficulty
	features     Features
	spellsOnly   bool
	events       map[string]bool
}

func (p *profile) ID() model.GameID                 { return p.id }
func (p *profile) Name() string                     { return p.name }
func (p *profile) Catalog() *Catalog                { return p.catalog }
func (p *profile) Features() Features               { return p.features }
func (p *profile) ShotTypes() []model.ShotType      { return append([]model.ShotType(nil), p.shots...) }
func (p *profile) Difficulties() []model.Difficulty { return append([]model.Difficulty(nil), p.difficulties...) }

func (p *profile) Tracks(loc model.Location) bool {
	if loc.Game != p.id {
		return false
	}
	if p.spellsOnly {
		return loc.Kind.IsSpell()
	}
	return true
}

func (p *profile) Compare(a, b model.Location) int {
	return a.Compare(b)
}

func (p *profile) Challenge(loc model.Location) (uint32, bool) {
	return loc.Challenge()
}

func (p *profile) Event(name string) (model.Event, error) {
	fails, ok := p.events[name]
	if !ok {
		return model.Event{}, fmt.Errorf("%s has no event %q", p.id, name)
	}
	return model.GameSpecific(name, fails), nil
}

func (p *profile) Variant(d model.Difficulty) int {
	switch d {
	case model.DifficultyNormal:
		return 1
	case model.DifficultyHard:
		return 2
	case model.DifficultyLunatic:
		return 3
	default:
		return 0
	}
}

var registry = map[model.GameID]Profile{}

func register(p Profile) Profile {
	registry[p.ID()] = p
	return p
}

// Lookup returns the profile for a game identifier.
func Lookup(id string) (Profile, error) {
	p, ok := registry[model.GameID(strings.ToLower(strings.TrimSpace(id)))]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownGame, id, strings.Join(gameIDs(), ", "))
	}
	return p, nil
}

// All returns every supported profile ordered by identifier.
func All() []Profile {
	out := make([]Profile, 0, len(registry))
	for _, id := range gameIDs() {
		out = append(out, registry[model.GameID(id)])
	}
	return out
}

func gameIDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	return ids
}

// ParseShot validates a shot type name for the profile.
func ParseShot(p Profile, value string) (model.ShotType, error) {
	for _, s := range p.ShotTypes() {
		if strings.EqualFold(string(s), value) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown %s shot type %q", p.ID(), value)
}

// ParseDifficulty validates a difficulty name for the profile.
func ParseDifficulty(p Profile, value string) (model.Difficulty, error) {
	for _, d := range p.Difficulties() {
		if strings.EqualFold(string(d), value) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown %s difficulty %q", p.ID(), value)
}
