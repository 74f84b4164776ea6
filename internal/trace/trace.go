// Package trace defines the JSON Lines tick format that feeds the tracking
// engine, with readers, writers and a paced replay source.
package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"
)

// State is the lifecycle state of the game process.
type State string

// Game states.
const (
	StateMenu     State = "menu"
	StateLoading  State = "loading"
	StateInGame   State = "in_game"
	StateGameOver State = "game_over"
)

// Tick is one reading of the game state.
type Tick struct {
	TMs        int64            `json:"t_ms"`
	Game       model.GameID     `json:"game,omitempty"`
	State      State            `json:"state"`
	Mode       model.RunMode    `json:"mode,omitempty"`
	Shot       model.ShotType   `json:"shot,omitempty"`
	Difficulty model.Difficulty `json:"difficulty,omitempty"`
	Paused     bool             `json:"paused,omitempty"`
	Location   *uint32          `json:"location,omitempty"`
	Encounter  *model.Encounter `json:"encounter,omitempty"`
	Lives      int              `json:"lives"`
	Bombs      int              `json:"bombs"`
	Power      int              `json:"power"`
	Continues  int              `json:"continues"`
	Misses     int              `json:"misses"`
	BombsUsed  int              `json:"bombs_used"`
	Events     []string         `json:"events,omitempty"`
	Cleared    bool             `json:"cleared,omitempty"`
}

// Offset returns the tick time relative to the start of the trace.
func (t Tick) Offset() time.Duration {
	return time.Duration(t.TMs) * time.Millisecond
}

// Snapshot extracts the player state.
func (t Tick) Snapshot() model.Snapshot {
	return model.Snapshot{
		Lives:     t.Lives,
		Bombs:     t.Bombs,
		Power:     t.Power,
		Continues: t.Continues,
		Misses:    t.Misses,
		BombsUsed: t.BombsUsed,
	}
}

// Loc returns a pointer to index, for building ticks.
func Loc(index uint32) *uint32 {
	return &index
}

// Read parses ticks from r. Blank lines and lines starting with '#' are
// skipped. Tick times must not decrease and every tick must name the same game.
func Read(r io.Reader) ([]Tick, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var (
		ticks []Tick
		game  model.GameID
		line  int
	)
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var tick Tick
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&tick); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line, err)
		}
		if tick.Game == "" {
			tick.Game = game
		}
		switch {
		case game == "":
			game = tick.Game
		case tick.Game != game:
			return nil, fmt.Errorf("trace line %d: game %s in a %s trace", line, tick.Game, game)
		}
		if n := len(ticks); n > 0 && tick.TMs < ticks[n-1].TMs {
			return nil, fmt.Errorf("trace line %d: time %d ms before previous tick", line, tick.TMs)
		}
		ticks = append(ticks, tick)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	if len(ticks) == 0 {
		return nil, fmt.Errorf("trace is empty")
	}
	if game == "" {
		return nil, fmt.Errorf("trace does not name a game")
	}
	return ticks, nil
}

// Load reads a trace file.
func Load(path string) ([]Tick, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only trace.
			_ = cerr
		}
	}()
	ticks, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ticks, nil
}

// Writer encodes ticks one per line.
type Writer struct {
	enc *json.Encoder
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write appends one tick.
func (w *Writer) Write(t Tick) error {
	if err := w.enc.Encode(t); err != nil {
		return fmt.Errorf("failed to write tick: %w", err)
	}
	return nil
}

// Save writes ticks to path, replacing any existing file.
func Save(path string, ticks []Tick) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	buf := bufio.NewWriter(file)
	w := NewWriter(buf)
	for _, t := range ticks {
		if err := w.Write(t); err != nil {
			return err
		}
	}
	return buf.Flush()
}
