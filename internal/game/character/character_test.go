package character_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

func warrior() *character.Class {
	return &character.Class{
		ID: "warrior", Name: "Warrior", Kind: character.KindPlayer, Role: character.RoleWarrior,
		Stats:  character.Stats{Constitution: 12, Strength: 16, Dexterity: 10, Intelligence: 8},
		Growth: character.Growth{Constitution: 0.09, Strength: 0.10, Dexterity: 0.05, Intelligence: 0.03},
	}
}

func goblin() *character.Class {
	return &character.Class{
		ID: "goblin", Name: "Goblin", Kind: character.KindMonster, Role: "goblin",
		Stats:  character.Stats{Constitution: 8, Strength: 6, Dexterity: 8, Intelligence: 4},
		Growth: character.Growth{Constitution: 0.05, Strength: 0.04, Dexterity: 0.04, Intelligence: 0.03},
	}
}

func newBuilder(t testing.TB, logger *zap.Logger) *character.Builder {
	t.Helper()
	reg := ability.NewDefaultRegistry()
	require.NoError(t, reg.Register(&ability.Def{
		ID: "critical_strike", Kind: ability.KindPassive, Passive: ability.PassiveCritBonus, BonusPerLevel: 0.05, MaxLevel: 5,
	}))
	require.NoError(t, reg.Register(&ability.Def{
		ID: "meteor", Kind: ability.KindActive, Category: ability.CategoryAttack, EnergyCost: 10_000,
	}))
	return character.NewBuilder(reg, ability.Env{
		Src:     dice.NewSeededSource(1),
		Effects: effect.NewDefaultRegistry(),
		Logger:  logger,
	})
}

func TestBuild_DerivedStats(t *testing.T) {
	b := newBuilder(t, zap.NewNop())

	w, err := b.Build("Brom", character.SideAlly, warrior(), 1)
	require.NoError(t, err)
	assert.Equal(t, 125, w.MaxHP())
	assert.Equal(t, 144, w.MaxEnergy())
	assert.Equal(t, 16, w.Attack())
	assert.Equal(t, 7, w.Defense())
	assert.Equal(t, w.MaxHP(), w.HP())
	assert.Equal(t, w.MaxEnergy(), w.Energy())
	assert.True(t, w.IsAlive())
	assert.NotEqual(t, w.ID().String(), "")

	g, err := b.Build("Goblin", character.SideEnemy, goblin(), 1)
	require.NoError(t, err)
	assert.Equal(t, 85, g.MaxHP())
	assert.Equal(t, 4, g.Attack())
	assert.Equal(t, 4, g.Defense())
}

func TestBuild_GrantsAttackAndRest(t *testing.T) {
	b := newBuilder(t, zap.NewNop())
	c, err := b.Build("Brom", character.SideAlly, warrior(), 1)
	require.NoError(t, err)
	states := c.Abilities().States()
	require.Len(t, states, 2)
	assert.Equal(t, "attack", states[0].Def.ID)
	assert.Equal(t, "rest", states[1].Def.ID)
}

func TestBuild_MissingRegistrationWarnsAndSkips(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := newBuilder(t, zap.New(core))
	cls := warrior()
	cls.Abilities = []character.AbilityGrant{
		{Ability: "summon_dragon", Level: 1},
		{Ability: "critical_strike", Level: 5},
		{Ability: "meteor", Level: 1},
	}

	c, err := b.Build("Brom", character.SideAlly, cls, 1)
	require.NoError(t, err)
	_, ok := c.Abilities().Get("summon_dragon")
	assert.False(t, ok)
	_, ok = c.Abilities().Get("meteor")
	assert.False(t, ok)
	assert.InDelta(t, 0.25, c.CritBonus(), 1e-9)
	assert.Equal(t, 1, logs.FilterMessage("character: missing ability registration").Len())
	assert.Equal(t, 1, logs.FilterMessage("character: ability costs more than max energy").Len())
}

func TestBuild_RejectsBadInput(t *testing.T) {
	b := newBuilder(t, zap.NewNop())
	_, err := b.Build("", character.SideAlly, warrior(), 1)
	assert.Error(t, err)
	_, err = b.Build("x", character.SideAlly, nil, 1)
	assert.Error(t, err)
	_, err = b.Build("x", character.SideAlly, warrior(), 0)
	assert.Error(t, err)
	_, err = b.Build("x", "neutral", warrior(), 1)
	assert.Error(t, err)
}

func TestEffectPenaltiesLowerDerivedStats(t *testing.T) {
	b := newBuilder(t, zap.NewNop())
	c, err := b.Build("Brom", character.SideAlly, warrior(), 1)
	require.NoError(t, err)

	reg := effect.NewDefaultRegistry()
	require.NoError(t, reg.Register(&effect.Def{
		ID: "weaken", Name: "Weaken", Kind: effect.KindSimple, Duration: 2, AttackPenalty: 5, DefensePenalty: 50,
	}))
	inst, err := reg.New("weaken")
	require.NoError(t, err)
	_, ok := c.Effects().Add(inst, c)
	require.True(t, ok)

	assert.Equal(t, 11, c.Attack())
	assert.Zero(t, c.Defense())
}

func TestHPAndEnergyBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := newBuilder(t, zap.NewNop())
		c, err := b.Build("Brom", character.SideAlly, warrior(), rapid.IntRange(1, 10).Draw(rt, "level"))
		require.NoError(rt, err)
		ops := rapid.SliceOf(rapid.IntRange(-50, 200)).Draw(rt, "ops")
		for i, n := range ops {
			switch i % 4 {
			case 0:
				c.TakeDamage(n)
			case 1:
				c.Heal(n)
			case 2:
				c.SpendEnergy(n)
			case 3:
				c.RestoreEnergy(n)
			}
			if c.HP() < 0 || c.HP() > c.MaxHP() || c.Energy() < 0 || c.Energy() > c.MaxEnergy() {
				rt.Fatalf("bounds violated: hp=%d/%d energy=%d/%d", c.HP(), c.MaxHP(), c.Energy(), c.MaxEnergy())
			}
		}
	})
}

func TestHeal_DeadCharacterStaysDead(t *testing.T) {
	b := newBuilder(t, zap.NewNop())
	c, err := b.Build("Brom", character.SideAlly, warrior(), 1)
	require.NoError(t, err)
	assert.Equal(t, 125, c.TakeDamage(500))
	assert.False(t, c.IsAlive())
	assert.Zero(t, c.Heal(50))
	assert.False(t, c.IsAlive())
}

func TestExpToNext(t *testing.T) {
	assert.Equal(t, 20, character.ExpToNext(1))
	assert.Equal(t, 56, character.ExpToNext(2))
	assert.Equal(t, 103, character.ExpToNext(3))
}

func TestAddExp_CascadingLevelUps(t *testing.T) {
	b := newBuilder(t, zap.NewNop())
	c, err := b.Build("Brom", character.SideAlly, warrior(), 1)
	require.NoError(t, err)
	c.TakeDamage(100)
	c.SpendEnergy(100)

	assert.Equal(t, []int{2, 3}, c.AddExp(80))
	assert.Equal(t, 3, c.Level())
	assert.Equal(t, 4, c.Exp())
	assert.Equal(t, character.Stats{Constitution: 14, Strength: 19, Dexterity: 11, Intelligence: 8}, c.Stats())
	assert.Equal(t, 155, c.MaxHP())
	assert.Equal(t, c.MaxHP(), c.HP())
	assert.Equal(t, c.MaxEnergy(), c.Energy())
}

func TestAddExp_ExpStaysBelowThreshold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := newBuilder(t, zap.NewNop())
		c, err := b.Build("Brom", character.SideAlly, warrior(), 1)
		require.NoError(rt, err)
		for _, n := range rapid.SliceOfN(rapid.IntRange(0, 500), 1, 10).Draw(rt, "exp") {
			before := c.Level()
			reached := c.AddExp(n)
			if c.Exp() < 0 || c.Exp() >= c.ExpToNext() {
				rt.Fatalf("exp %d outside [0, %d)", c.Exp(), c.ExpToNext())
			}
			if c.Level() != before+len(reached) {
				rt.Fatalf("level %d, expected %d", c.Level(), before+len(reached))
			}
		}
	})
}

func TestAddExp_MonstersIgnoreExperience(t *testing.T) {
	b := newBuilder(t, zap.NewNop())
	g, err := b.Build("Goblin", character.SideEnemy, goblin(), 1)
	require.NoError(t, err)
	assert.Nil(t, g.AddExp(1000))
	assert.Equal(t, 1, g.Level())
}

func TestBuild_LevelScalesStats(t *testing.T) {
	b := newBuilder(t, zap.NewNop())
	g, err := b.Build("Goblin", character.SideEnemy, goblin(), 5)
	require.NoError(t, err)
	// con 8 * 1.2 = 9, str 6 * 1.16 = 6
	assert.Equal(t, 9, g.Constitution())
	assert.Equal(t, 6, g.Strength())
	assert.Equal(t, 9*10+25, g.MaxHP())
}

func TestRestoreEnergyPercent(t *testing.T) {
	b := newBuilder(t, zap.NewNop())
	c, err := b.Build("Brom", character.SideAlly, warrior(), 1)
	require.NoError(t, err)
	c.SpendEnergy(c.MaxEnergy())
	assert.Equal(t, 43, c.RestoreEnergyPercent(30))
}

func TestEndBattle_ClearsEffectsAndCooldowns(t *testing.T) {
	b := newBuilder(t, zap.NewNop())
	c, err := b.Build("Brom", character.SideAlly, warrior(), 1)
	require.NoError(t, err)
	inst, err := effect.NewDefaultRegistry().New("poison")
	require.NoError(t, err)
	c.Effects().Add(inst, c)
	st, _ := c.Abilities().Get("attack")
	st.Cooldown = 2

	res := c.EndBattle()
	assert.Len(t, res, 1)
	assert.Zero(t, c.Effects().Len())
	assert.Zero(t, st.Cooldown)
}

func TestParseRoster(t *testing.T) {
	specs, err := character.ParseRoster("warrior:Brom, healer:Mira,goblin:3,Orc")
	require.NoError(t, err)
	assert.Equal(t, []character.Spec{
		{Class: "warrior", Name: "Brom", Count: 1},
		{Class: "healer", Name: "Mira", Count: 1},
		{Class: "goblin", Count: 3},
		{Class: "orc", Count: 1},
	}, specs)

	_, err = character.ParseRoster("")
	assert.Error(t, err)
	_, err = character.ParseRoster("goblin:0")
	assert.Error(t, err)
	_, err = character.ParseRoster(":Brom")
	assert.Error(t, err)
}

func TestBuildRoster(t *testing.T) {
	reg := character.NewRegistry()
	require.NoError(t, reg.Register(warrior()))
	require.NoError(t, reg.Register(goblin()))
	b := newBuilder(t, zap.NewNop())

	specs, err := character.ParseRoster("goblin:2,warrior:Brom")
	require.NoError(t, err)
	cs, err := b.BuildRoster(reg, specs, character.SideAlly, 2)
	require.NoError(t, err)
	require.Len(t, cs, 3)
	assert.Equal(t, "Goblin 1", cs[0].Name())
	assert.Equal(t, "Goblin 2", cs[1].Name())
	assert.Equal(t, "Brom", cs[2].Name())
	assert.NotEqual(t, cs[0].ID(), cs[1].ID())

	_, err = b.BuildRoster(reg, []character.Spec{{Class: "dragon", Count: 1}}, character.SideEnemy, 1)
	assert.True(t, errors.Is(err, character.ErrUnknownClass))
}

func TestBuildRoster_NamesEnemiesFromSeed(t *testing.T) {
	reg := character.NewRegistry()
	require.NoError(t, reg.Register(warrior()))
	require.NoError(t, reg.Register(goblin()))
	specs, err := character.ParseRoster("goblin:3,warrior:Brom,goblin")
	require.NoError(t, err)

	names := func() []string {
		cs, err := newBuilder(t, zap.NewNop()).BuildRoster(reg, specs, character.SideEnemy, 1)
		require.NoError(t, err)
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.Name()
		}
		return out
	}
	first := names()
	require.Len(t, first, 5)
	assert.Equal(t, first, names())
	assert.Equal(t, "Brom", first[3])

	seen := map[string]bool{}
	for i, n := range first {
		assert.False(t, seen[n], "duplicate name %q", n)
		seen[n] = true
		if i != 3 {
			assert.Contains(t, n, "Goblin")
			assert.NotEqual(t, "Goblin", n)
		}
	}
}

// fixedSrc always draws the first list entry and never rolls a title.
type fixedSrc struct{}

func (fixedSrc) Intn(int) int     { return 0 }
func (fixedSrc) Float64() float64 { return 0.99 }

func TestNamer_NumbersAfterRepeatedCollisions(t *testing.T) {
	n := character.NewNamer(fixedSrc{})
	assert.Equal(t, "Filthy Goblin", n.Name("Goblin"))
	assert.Equal(t, "Filthy Goblin 2", n.Name("Goblin"))
	assert.Equal(t, "Filthy Goblin 3", n.Name("Goblin"))
	assert.Equal(t, "Filthy Orc", n.Name("Orc"))
}

func TestNamer_Unique_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := character.NewNamer(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")))
		count := rapid.IntRange(1, 200).Draw(rt, "count")
		seen := make(map[string]bool, count)
		for range count {
			name := n.Name("Orc")
			assert.False(rt, seen[name], "duplicate name %q", name)
			assert.Contains(rt, name, " Orc")
			seen[name] = true
		}
	})
}

func TestClassValidate(t *testing.T) {
	bad := []*character.Class{
		{Name: "x", Kind: character.KindPlayer, Stats: warrior().Stats},
		{ID: "x", Kind: character.KindPlayer, Stats: warrior().Stats},
		{ID: "x", Name: "x", Kind: "npc", Stats: warrior().Stats},
		{ID: "x", Name: "x", Kind: character.KindPlayer},
		{ID: "x", Name: "x", Kind: character.KindPlayer, Stats: warrior().Stats, Growth: character.Growth{Strength: -1}},
		{ID: "x", Name: "x", Kind: character.KindPlayer, Stats: warrior().Stats, Abilities: []character.AbilityGrant{{Ability: "heal"}}},
	}
	for _, c := range bad {
		assert.Error(t, c.Validate())
	}
	assert.NoError(t, warrior().Validate())
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rogue.yaml"), []byte(`
id: rogue
name: Rogue
kind: player
role: rogue
stats: {constitution: 7, strength: 6, dexterity: 18, intelligence: 10}
growth: {constitution: 0.07, strength: 0.05, dexterity: 0.08, intelligence: 0.06}
abilities:
  - {ability: backstab, level: 1}
  - {ability: critical_strike, level: 5}
`), 0o644))

	reg, err := character.LoadDirectory(dir)
	require.NoError(t, err)
	c, err := reg.Get("Rogue")
	require.NoError(t, err)
	assert.Equal(t, character.RoleRogue, c.Role)
	assert.Len(t, c.Abilities, 2)
	assert.Equal(t, []string{"rogue"}, reg.IDs())
}

func TestLoadDirectory_RejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`
id: bad
name: Bad
kind: player
stats: {constitution: 1, strength: 1, dexterity: 1, intelligence: 1}
charisma: 18
`), 0o644))
	_, err := character.LoadDirectory(dir)
	assert.Error(t, err)
}
