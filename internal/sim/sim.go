// Package sim synthesises tick traces of plausible play sessions.
package sim

import (
	"math/rand"
	"strings"
	"time"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/trace"
)

// Options controls the generated sessions.
type Options struct {
	// Seed makes generation reproducible. Zero seeds from the current time.
	Seed       int64
	Runs       int
	Mode       model.RunMode
	Shot       model.ShotType
	Difficulty model.Difficulty
	// Stage is the practiced stage in stage practice; zero picks one.
	Stage uint8
	// Tick is the spacing between readings.
	Tick time.Duration
	// Skill is the chance of getting through a section cleanly.
	Skill float64
}

// Defaults fills unset options for profile p.
func (o Options) Defaults(p game.Profile) Options {
	if o.Runs <= 0 {
		o.Runs = 1
	}
	if o.Mode == "" {
		o.Mode = model.ModeFull
	}
	if o.Shot == "" {
		o.Shot = p.ShotTypes()[0]
	}
	if o.Difficulty == "" {
		o.Difficulty = model.DifficultyNormal
	}
	if o.Tick <= 0 {
		o.Tick = 100 * time.Millisecond
	}
	if o.Skill <= 0 || o.Skill > 1 {
		o.Skill = 0.7
	}
	return o
}

type player struct {
	lives, bombs, power       int
	continues, misses, bombed int
}

// Simulator produces ticks for one game.
type Simulator struct {
	rnd     *rand.Rand
	profile game.Profile
	opts    Options
	now     time.Duration
	ticks   []trace.Tick
	state   player
	borders bool
}

// New returns a Simulator for profile p.
func New(p game.Profile, opts Options) *Simulator {
	opts = opts.Defaults(p)
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	_, err := p.Event("border_start")
	return &Simulator{
		rnd:     rand.New(rand.NewSource(seed)),
		profile: p,
		opts:    opts,
		borders: err == nil,
	}
}

// Generate returns the ticks of every requested run, back to back.
func (s *Simulator) Generate() []trace.Tick {
	s.ticks = nil
	s.now = 0
	for i := 0; i < s.opts.Runs; i++ {
		s.run()
	}
	return s.ticks
}

// Generate is a convenience wrapper around New(p, opts).Generate().
func Generate(p game.Profile, opts Options) []trace.Tick {
	return New(p, opts).Generate()
}

func (s *Simulator) run() {
	s.idle(trace.StateMenu, 500*time.Millisecond)
	s.idle(trace.StateLoading, 300*time.Millisecond)

	s.state = player{lives: 2, bombs: 3, power: 128}
	if s.profile.Features().Bombs == game.BombsPower {
		s.state.power = 400
	}
	route := s.route()
	cleared := true
	for i, loc := range route {
		var next *model.Location
		if i+1 < len(route) {
			next = &route[i+1]
		}
		alive, clean := s.section(loc, next)
		if !alive {
			cleared = false
			break
		}
		if s.opts.Mode == model.ModeSpellPractice && !clean {
			cleared = false
		}
	}
	s.emit(trace.StateGameOver, nil, nil, false, nil)
	s.ticks[len(s.ticks)-1].Cleared = cleared
	s.idle(trace.StateMenu, 500*time.Millisecond)
}

// section plays one location. It reports whether the player survived and
// whether the section was played without a miss or bomb.
func (s *Simulator) section(loc model.Location, next *model.Location) (alive, clean bool) {
	dwell := 2*time.Second + time.Duration(s.rnd.Int63n(int64(4*time.Second)))
	var enc *model.Encounter
	if spell, ok := loc.Challenge(); ok {
		enc = &model.Encounter{ID: spell, Captured: true}
		dwell += 2 * time.Second
	}
	steps := max(4, int(dwell/s.opts.Tick))
	incidentAt := -1
	if s.rnd.Float64() > s.opts.Skill {
		incidentAt = 1 + s.rnd.Intn(steps-1)
	}
	pauseAt := -1
	if s.rnd.Float64() < 0.1 {
		pauseAt = s.rnd.Intn(steps)
	}
	pauseSteps := int(time.Second / s.opts.Tick)
	borderAt := -1
	if s.borders && s.rnd.Float64() < 0.3 {
		borderAt = s.rnd.Intn(steps / 2)
	}
	borderEnd := borderAt + steps/4

	index := loc.Index
	clean = true
	for step := 0; step < steps; step++ {
		var events []string
		if step == borderAt {
			events = append(events, "border_start")
		}
		if step == incidentAt {
			clean = false
			if enc != nil {
				enc.Captured = false
			}
			if s.rnd.Intn(2) == 0 || s.state.bombs == 0 {
				s.miss()
			} else {
				s.bomb()
			}
			if borderAt >= 0 && step > borderAt && step <= borderEnd {
				events = append(events, "border_break")
				borderAt = -1
			}
		}
		if borderAt >= 0 && step == borderEnd {
			events = append(events, "border_end")
		}
		if s.state.lives < 0 && !s.continueGame() {
			s.emit(trace.StateInGame, &index, enc, false, events)
			return false, false
		}
		paused := pauseAt >= 0 && step >= pauseAt && step < pauseAt+pauseSteps
		if next != nil && step == steps-2 && s.rnd.Float64() < 0.2 {
			flicker := next.Index
			s.emit(trace.StateInGame, &flicker, enc, paused, events)
			continue
		}
		s.emit(trace.StateInGame, &index, enc, paused, events)
	}
	if enc != nil {
		s.emit(trace.StateInGame, &index, nil, false, nil)
	}
	return true, clean
}

func (s *Simulator) miss() {
	s.state.lives--
	s.state.misses++
	s.state.power = max(0, s.state.power-50)
}

func (s *Simulator) bomb() {
	s.state.bombs--
	s.state.bombed++
	if s.profile.Features().Bombs == game.BombsPower {
		s.state.power = max(0, s.state.power-100)
	}
}

func (s *Simulator) continueGame() bool {
	if s.opts.Mode != model.ModeFull || s.rnd.Intn(2) == 0 {
		return false
	}
	s.state.continues++
	s.state.lives = 2
	s.state.bombs = 3
	return true
}

func (s *Simulator) idle(state trace.State, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += s.opts.Tick {
		s.emit(state, nil, nil, false, nil)
	}
}

func (s *Simulator) emit(state trace.State, loc *uint32, enc *model.Encounter, paused bool, events []string) {
	tick := trace.Tick{
		TMs:       s.now.Milliseconds(),
		Game:      s.profile.ID(),
		State:     state,
		Paused:    paused,
		Lives:     s.state.lives,
		Bombs:     s.state.bombs,
		Power:     s.state.power,
		Continues: s.state.continues,
		Misses:    s.state.misses,
		BombsUsed: s.state.bombed,
		Events:    events,
	}
	if state == trace.StateInGame || state == trace.StateGameOver {
		tick.Mode = s.opts.Mode
		tick.Shot = s.opts.Shot
		tick.Difficulty = s.opts.Difficulty
	}
	if loc != nil {
		tick.Location = trace.Loc(*loc)
	}
	if enc != nil {
		e := *enc
		tick.Encounter = &e
	}
	s.ticks = append(s.ticks, tick)
	s.now += s.opts.Tick
}

// route lists the locations a run visits.
func (s *Simulator) route() []model.Location {
	c := s.profile.Catalog()
	variant := s.profile.Variant(s.opts.Difficulty)
	var stages []uint8
	switch {
	case s.opts.Difficulty == model.DifficultyExtra || s.opts.Difficulty == model.DifficultyPhantasm:
		for _, st := range c.Stages() {
			if c.StageName(st) == string(s.opts.Difficulty) {
				stages = []uint8{st}
			}
		}
	case s.opts.Mode == model.ModeFull:
		stages = s.mainStages()
	default:
		stages = []uint8{s.opts.Stage}
		if s.opts.Stage == 0 {
			main := s.mainStages()
			stages = []uint8{main[s.rnd.Intn(len(main))]}
		}
	}

	var route []model.Location
	for _, st := range stages {
		for _, g := range c.StageGroups(st) {
			route = append(route, g.ForVariant(variant))
		}
	}
	if s.opts.Mode == model.ModeSpellPractice {
		var spells []model.Location
		for _, loc := range route {
			if loc.Kind.IsSpell() {
				spells = append(spells, loc)
			}
		}
		if len(spells) > 0 {
			route = []model.Location{spells[s.rnd.Intn(len(spells))]}
		}
	}
	return route
}

// mainStages picks one stage out of every A/B alternative, skipping extra
// stages.
func (s *Simulator) mainStages() []uint8 {
	c := s.profile.Catalog()
	var (
		out     []uint8
		pending []uint8
		prefix  string
	)
	flush := func() {
		if len(pending) > 0 {
			out = append(out, pending[s.rnd.Intn(len(pending))])
			pending = nil
		}
	}
	for _, st := range c.Stages() {
		name := c.StageName(st)
		if name == string(model.DifficultyExtra) || name == string(model.DifficultyPhantasm) {
			continue
		}
		base := strings.TrimRight(name, "AB")
		if base != prefix {
			flush()
			prefix = base
		}
		pending = append(pending, st)
	}
	flush()
	return out
}
