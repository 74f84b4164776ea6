package game

import "github.com/stmobo/thstat-sub001/internal/model"

var mainDifficulties = []model.Difficulty{
	model.DifficultyEasy,
	model.DifficultyNormal,
	model.DifficultyHard,
	model.DifficultyLunatic,
}

// TH07 is Perfect Cherry Blossom. It reports cumulative miss and bomb
// counters and a cherry border that fails a segment when it breaks early.
var TH07 = register(&profile{
	id:   model.GameTH07,
	name: "Perfect Cherry Blossom",
	catalog: buildCatalog(model.GameTH07, []stageDef{
		{stage: 1, name: "Stage 1", firstHalf: 2, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 2, bossSpells: 2, variants: 4},
		{stage: 2, name: "Stage 2", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 2, bossSpells: 3, variants: 4},
		{stage: 3, name: "Stage 3", firstHalf: 2, midbossNonspells: 2, midbossSpells: 1, secondHalf: 1, bossNonspells: 3, bossSpells: 3, variants: 4},
		{stage: 4, name: "Stage 4", firstHalf: 1, midbossNonspells: 1, secondHalf: 1, preBoss: true, bossNonspells: 3, bossSpells: 3, variants: 4},
		{stage: 5, name: "Stage 5", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 3, bossSpells: 3, variants: 4},
		{stage: 6, name: "Stage 6", firstHalf: 1, midbossNonspells: 1, midbossSpells: 2, bossNonspells: 4, bossSpells: 5, variants: 4},
		{stage: 7, name: "Extra", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 5, bossSpells: 10, variants: 1},
		{stage: 8, name: "Phantasm", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 5, bossSpells: 10, variants: 1},
	}),
	shots: []model.ShotType{"ReimuA", "ReimuB", "MarisaA", "MarisaB", "SakuyaA", "SakuyaB"},
	difficulties: append(append([]model.Difficulty(nil), mainDifficulties...),
		model.DifficultyExtra, model.DifficultyPhantasm),
	features: Features{Lives: LivesTotalMisses, Bombs: BombsTotalUsed, Continues: true, Pause: true},
	events: map[string]bool{
		"border_start": false,
		"border_end":   false,
		"border_break": true,
	},
})

// TH08 is Imperishable Night. Stages 4 and 6 come in A and B variants.
var TH08 = register(&profile{
	id:   model.GameTH08,
	name: "Imperishable Night",
	catalog: buildCatalog(model.GameTH08, []stageDef{
		{stage: 1, name: "Stage 1", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 2, bossSpells: 2, variants: 4},
		{stage: 2, name: "Stage 2", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 2, bossSpells: 3, variants: 4},
		{stage: 3, name: "Stage 3", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 3, bossSpells: 4, variants: 4},
		{stage: 4, name: "Stage 4A", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 3, bossSpells: 4, variants: 4},
		{stage: 5, name: "Stage 4B", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 3, bossSpells: 4, variants: 4},
		{stage: 6, name: "Stage 5", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 3, bossSpells: 4, variants: 4},
		{stage: 7, name: "Stage 6A", firstHalf: 1, midbossNonspells: 1, secondHalf: 1, bossNonspells: 4, bossSpells: 5, variants: 4},
		{stage: 8, name: "Stage 6B", firstHalf: 1, midbossNonspells: 1, secondHalf: 1, bossNonspells: 4, bossSpells: 6, variants: 4},
		{stage: 9, name: "Extra", firstHalf: 1, midbossNonspells: 1, midbossSpells: 2, secondHalf: 1, bossNonspells: 5, bossSpells: 10, variants: 1},
	}),
	shots: []model.ShotType{
		"BarrierTeam", "MagicTeam", "ScarletTeam", "GhostTeam",
		"Reimu", "Yukari", "Marisa", "Alice", "Sakuya", "Remilia", "Youmu", "Yuyuko",
	},
	difficulties: append(append([]model.Difficulty(nil), mainDifficulties...), model.DifficultyExtra),
	features:     Features{Lives: LivesStock, Bombs: BombsStock, Continues: true, Pause: true},
	events:       map[string]bool{},
})

// TH10 is Mountain of Faith. Bombs spend power, and only spell cards are
// tracked as attempts.
var TH10 = register(&profile{
	id:   model.GameTH10,
	name: "Mountain of Faith",
	catalog: buildCatalog(model.GameTH10, []stageDef{
		{stage: 1, name: "Stage 1", firstHalf: 1, midbossNonspells: 1, secondHalf: 1, bossNonspells: 2, bossSpells: 2, variants: 4},
		{stage: 2, name: "Stage 2", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 2, bossSpells: 2, variants: 4},
		{stage: 3, name: "Stage 3", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 3, bossSpells: 3, variants: 4},
		{stage: 4, name: "Stage 4", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 3, bossSpells: 3, variants: 4},
		{stage: 5, name: "Stage 5", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, secondHalf: 1, bossNonspells: 3, bossSpells: 3, variants: 4},
		{stage: 6, name: "Stage 6", firstHalf: 1, midbossNonspells: 1, midbossSpells: 1, bossNonspells: 4, bossSpells: 5, variants: 4},
		{stage: 7, name: "Extra", firstHalf: 1, midbossNonspells: 1, midbossSpells: 2, secondHalf: 1, bossNonspells: 5, bossSpells: 10, variants: 1},
	}),
	shots:        []model.ShotType{"ReimuA", "ReimuB", "ReimuC", "MarisaA", "MarisaB", "MarisaC"},
	difficulties: append(append([]model.Difficulty(nil), mainDifficulties...), model.DifficultyExtra),
	features:     Features{Lives: LivesStock, Bombs: BombsPower, Continues: true, Pause: true},
	spellsOnly:   true,
	events:       map[string]bool{},
})
