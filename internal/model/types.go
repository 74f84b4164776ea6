// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// GameID identifies a supported game.
type GameID string

// Supported games.
const (
	GameTH07 GameID = "th07"
	GameTH08 GameID = "th08"
	GameTH10 GameID = "th10"
)

// Difficulty is a game difficulty level.
type Difficulty string

// Difficulty levels shared by all supported games.
const (
	DifficultyEasy     Difficulty = "Easy"
	DifficultyNormal   Difficulty = "Normal"
	DifficultyHard     Difficulty = "Hard"
	DifficultyLunatic  Difficulty = "Lunatic"
	DifficultyExtra    Difficulty = "Extra"
	DifficultyPhantasm Difficulty = "Phantasm"
)

// ShotType names a loadout (character plus weapon type).
type ShotType string

// LocationKind classifies a section of a stage.
type LocationKind string

// Location kinds in stage order.
const (
	KindStart           LocationKind = "start"
	KindFirstHalf       LocationKind = "first_half"
	KindMidbossNonspell LocationKind = "midboss_nonspell"
	KindMidbossSpell    LocationKind = "midboss_spell"
	KindSecondHalf      LocationKind = "second_half"
	KindPreBoss         LocationKind = "pre_boss"
	KindBossNonspell    LocationKind = "boss_nonspell"
	KindBossSpell       LocationKind = "boss_spell"
)

// IsSpell reports whether the kind is a spell card section.
func (k LocationKind) IsSpell() bool {
	return k == KindMidbossSpell || k == KindBossSpell
}

// Location identifies a place within a game. Values are ordered by Index,
// which the game catalog assigns in play order.
type Location struct {
	Game  GameID       `json:"game" yaml:"game"`
	Index uint32       `json:"index" yaml:"index"`
	Stage uint8        `json:"stage" yaml:"stage"`
	Kind  LocationKind `json:"kind" yaml:"kind"`
	Seq   uint32       `json:"seq" yaml:"seq"`
	Spell uint32       `json:"spell,omitempty" yaml:"spell,omitempty"`
}

// Compare orders locations by catalog index.
func (l Location) Compare(other Location) int {
	switch {
	case l.Index < other.Index:
		return -1
	case l.Index > other.Index:
		return 1
	default:
		return 0
	}
}

// Challenge returns the spell card identity of the location, if any.
func (l Location) Challenge() (uint32, bool) {
	if l.Spell == 0 {
		return 0, false
	}
	return l.Spell, true
}

func (l Location) String() string {
	switch l.Kind {
	case KindStart:
		return fmt.Sprintf("Stage %d Start", l.Stage)
	case KindPreBoss:
		return fmt.Sprintf("Stage %d Pre-Boss", l.Stage)
	case KindMidbossSpell, KindBossSpell:
		return fmt.Sprintf("Stage %d %s %d (#%d)", l.Stage, kindLabel(l.Kind), l.Seq+1, l.Spell)
	default:
		return fmt.Sprintf("Stage %d %s %d", l.Stage, kindLabel(l.Kind), l.Seq+1)
	}
}

func kindLabel(k LocationKind) string {
	switch k {
	case KindFirstHalf:
		return "First Half"
	case KindMidbossNonspell:
		return "Midboss Nonspell"
	case KindMidbossSpell:
		return "Midboss Spell"
	case KindSecondHalf:
		return "Second Half"
	case KindBossNonspell:
		return "Boss Nonspell"
	case KindBossSpell:
		return "Boss Spell"
	default:
		return string(k)
	}
}

// Encounter is the spell card currently active in a state snapshot.
type Encounter struct {
	ID       uint32 `json:"id" yaml:"id"`
	Captured bool   `json:"captured" yaml:"captured"`
}

// GameTime is a timestamp captured by a game clock.
type GameTime struct {
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	RealTime  time.Duration `json:"real_time" yaml:"real_time"`
	GameTime  time.Duration `json:"game_time" yaml:"game_time"`
}

// Compare orders by active game time, then real time.
func (t GameTime) Compare(other GameTime) int {
	switch {
	case t.GameTime < other.GameTime:
		return -1
	case t.GameTime > other.GameTime:
		return 1
	case t.RealTime < other.RealTime:
		return -1
	case t.RealTime > other.RealTime:
		return 1
	default:
		return 0
	}
}

// GameDurationSince returns the active game time elapsed since earlier.
func (t GameTime) GameDurationSince(earlier GameTime) time.Duration {
	return t.GameTime - earlier.GameTime
}

// Attempt is one closed interval spent at a location.
type Attempt struct {
	Start   GameTime `json:"start" yaml:"start"`
	End     GameTime `json:"end" yaml:"end"`
	Success bool     `json:"success" yaml:"success"`
}

// Duration returns the in-game length of the attempt.
func (a Attempt) Duration() time.Duration {
	return a.End.GameDurationSince(a.Start)
}

// ChallengeKey groups attempts for statistics.
type ChallengeKey struct {
	Shot       ShotType   `json:"shot" yaml:"shot"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	Location   Location   `json:"location" yaml:"location"`
}

// Game returns the game the key belongs to.
func (k ChallengeKey) Game() GameID {
	return k.Location.Game
}

// Compare orders keys by location, then shot, then difficulty.
func (k ChallengeKey) Compare(other ChallengeKey) int {
	if c := k.Location.Compare(other.Location); c != 0 {
		return c
	}
	switch {
	case k.Shot < other.Shot:
		return -1
	case k.Shot > other.Shot:
		return 1
	case k.Difficulty < other.Difficulty:
		return -1
	case k.Difficulty > other.Difficulty:
		return 1
	default:
		return 0
	}
}

// KeyedAttempt pairs an attempt with its challenge.
type KeyedAttempt struct {
	Key     ChallengeKey `json:"key" yaml:"key"`
	Attempt Attempt      `json:"attempt" yaml:"attempt"`
}

// AttemptRecord is a stored attempt with its run context.
type AttemptRecord struct {
	KeyedAttempt
	RunID   string
	EndedAt time.Time
}

// RunSummary describes a stored run.
type RunSummary struct {
	ID         string
	Game       GameID
	Shot       ShotType
	Difficulty Difficulty
	Mode       RunMode
	StartedAt  time.Time
	EndedAt    time.Time
	Cleared    bool
	Digest     string
	Attempts   int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Game        GameID
	Shot        ShotType
	Difficulty  Difficulty
	Since       *time.Time
	Last        int
	CurveWindow int
	MinAttempt  time.Duration
	WeakTop     int
}
