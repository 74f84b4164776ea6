package game

import (
	"errors"
	"fmt"

	"github.com/stmobo/thstat-sub001/internal/model"
)

var (
	// ErrUnknownLocation is returned for location or group identifiers that
	// are not part of a game's catalog.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrUnknownGame is returned for unsupported game identifiers.
	ErrUnknownGame = errors.New("unknown game")
)

// stageDef describes the section layout of one stage. Spell slots list one
// variant per difficulty for main stages and a single variant for extra stages.
type stageDef struct {
	stage            uint8
	name             string
	firstHalf        int
	midbossNonspells int
	midbossSpells    int
	secondHalf       int
	preBoss          bool
	bossNonspells    int
	bossSpells       int
	variants         int
}

// Group is a named section of a stage. Spell groups span every difficulty
// variant of the same card slot.
type Group struct {
	Index     int
	Stage     uint8
	StageName string
	Name      string
	Locations []model.Location
}

// Min returns the first location of the group.
func (g Group) Min() model.Location {
	return g.Locations[0]
}

// Max returns the last location of the group.
func (g Group) Max() model.Location {
	return g.Locations[len(g.Locations)-1]
}

// ForVariant picks the location played at the given difficulty variant.
func (g Group) ForVariant(variant int) model.Location {
	if variant < 0 || variant >= len(g.Locations) {
		return g.Locations[0]
	}
	return g.Locations[variant]
}

// Catalog is the ordered list of locations of a game.
type Catalog struct {
	game       model.GameID
	locations  []model.Location
	groups     []Group
	stageNames map[uint8]string
	stages     []uint8
}

func buildCatalog(game model.GameID, defs []stageDef) *Catalog {
	c := &Catalog{game: game, stageNames: map[uint8]string{}}
	var spell uint32
	for _, def := range defs {
		c.stageNames[def.stage] = def.name
		c.stages = append(c.stages, def.stage)
		add := func(kind model.LocationKind, seq uint32, name string, spells int) {
			g := Group{Index: len(c.groups), Stage: def.stage, StageName: def.name, Name: name}
			if spells == 0 {
				g.Locations = append(g.Locations, c.push(def.stage, kind, seq, 0))
			}
			for v := 0; v < spells; v++ {
				spell++
				g.Locations = append(g.Locations, c.push(def.stage, kind, seq, spell))
			}
			c.groups = append(c.groups, g)
		}

		add(model.KindStart, 0, "Start", 0)
		for i := 0; i < def.firstHalf; i++ {
			add(model.KindFirstHalf, uint32(i), fmt.Sprintf("First Half %d", i+1), 0)
		}
		for i := 0; i < maxInt(def.midbossNonspells, def.midbossSpells); i++ {
			if i < def.midbossNonspells {
				add(model.KindMidbossNonspell, uint32(i), fmt.Sprintf("Midboss Nonspell %d", i+1), 0)
			}
			if i < def.midbossSpells {
				add(model.KindMidbossSpell, uint32(i), fmt.Sprintf("Midboss Spell %d", i+1), def.variants)
			}
		}
		for i := 0; i < def.secondHalf; i++ {
			add(model.KindSecondHalf, uint32(i), fmt.Sprintf("Second Half %d", i+1), 0)
		}
		if def.preBoss {
			add(model.KindPreBoss, 0, "Pre-Boss", 0)
		}
		for i := 0; i < maxInt(def.bossNonspells, def.bossSpells); i++ {
			if i < def.bossNonspells {
				add(model.KindBossNonspell, uint32(i), fmt.Sprintf("Boss Nonspell %d", i+1), 0)
			}
			if i < def.bossSpells {
				add(model.KindBossSpell, uint32(i), fmt.Sprintf("Boss Spell %d", i+1), def.variants)
			}
		}
	}
	return c
}

func (c *Catalog) push(stage uint8, kind model.LocationKind, seq, spell uint32) model.Location {
	loc := model.Location{
		Game:  c.game,
		Index: uint32(len(c.locations)),
		Stage: stage,
		Kind:  kind,
		Seq:   seq,
		Spell: spell,
	}
	c.locations = append(c.locations, loc)
	return loc
}

// Locations returns every location in play order.
func (c *Catalog) Locations() []model.Location {
	return append([]model.Location(nil), c.locations...)
}

// Lookup resolves a location by catalog index.
func (c *Catalog) Lookup(index uint32) (model.Location, error) {
	if int(index) >= len(c.locations) {
		return model.Location{}, fmt.Errorf("%w: %s location %d", ErrUnknownLocation, c.game, index)
	}
	return c.locations[index], nil
}

// Groups returns the named location groups in play order.
func (c *Catalog) Groups() []Group {
	return append([]Group(nil), c.groups...)
}

// Group resolves a group by index.
func (c *Catalog) Group(index int) (Group, error) {
	if index < 0 || index >= len(c.groups) {
		return Group{}, fmt.Errorf("%w: %s group %d (valid: 0-%d)", ErrUnknownLocation, c.game, index, len(c.groups)-1)
	}
	return c.groups[index], nil
}

// GroupOf returns the group containing loc.
func (c *Catalog) GroupOf(loc model.Location) (Group, bool) {
	for _, g := range c.groups {
		if loc.Index >= g.Min().Index && loc.Index <= g.Max().Index {
			return g, true
		}
	}
	return Group{}, false
}

// Range resolves two group identifiers to the location bounds they span,
// normalized so the first bound is not after the second.
func (c *Catalog) Range(low, high int) (model.Location, model.Location, error) {
	lo, err := c.Group(low)
	if err != nil {
		return model.Location{}, model.Location{}, err
	}
	hi, err := c.Group(high)
	if err != nil {
		return model.Location{}, model.Location{}, err
	}
	if lo.Index > hi.Index {
		lo, hi = hi, lo
	}
	return lo.Min(), hi.Max(), nil
}

// Stages returns stage identifiers in play order.
func (c *Catalog) Stages() []uint8 {
	return append([]uint8(nil), c.stages...)
}

// StageName returns the display name of a stage.
func (c *Catalog) StageName(stage uint8) string {
	if name, ok := c.stageNames[stage]; ok {
		return name
	}
	return fmt.Sprintf("Stage %d", stage)
}

// StageGroups returns the groups of one stage.
func (c *Catalog) StageGroups(stage uint8) []Group {
	var out []Group
	for _, g := range c.groups {
		if g.Stage == stage {
			out = append(out, g)
		}
	}
	return out
}

// Describe renders a location with its stage and group name.
func (c *Catalog) Describe(loc model.Location) string {
	g, ok := c.GroupOf(loc)
	if !ok {
		return loc.String()
	}
	if loc.Spell != 0 {
		return fmt.Sprintf("%s %s (#%d)", g.StageName, g.Name, loc.Spell)
	}
	return g.StageName + " " + g.Name
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
