package combat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// fixedSource never crits or dodges: every probability draw returns f and
// every index draw returns 0.
type fixedSource struct{ f float64 }

func (s fixedSource) Intn(int) int     { return 0 }
func (s fixedSource) Float64() float64 { return s.f }

var (
	warriorClass = &character.Class{
		ID: "warrior", Name: "Warrior", Kind: character.KindPlayer, Role: character.RoleWarrior,
		Stats:  character.Stats{Constitution: 12, Strength: 16, Dexterity: 10, Intelligence: 8},
		Growth: character.Growth{Constitution: 0.09, Strength: 0.10, Dexterity: 0.05, Intelligence: 0.03},
	}
	healerClass = &character.Class{
		ID: "healer", Name: "Healer", Kind: character.KindPlayer, Role: character.RoleHealer, CanHeal: true,
		Stats:     character.Stats{Constitution: 10, Strength: 5, Dexterity: 12, Intelligence: 16},
		Growth:    character.Growth{Constitution: 0.08, Strength: 0.04, Dexterity: 0.08, Intelligence: 0.09},
		Abilities: []character.AbilityGrant{{Ability: "heal", Level: 1}, {Ability: "mass_heal", Level: 1}},
	}
	orcClass = &character.Class{
		ID: "orc", Name: "Orc", Kind: character.KindMonster, Role: "orc",
		Stats:  character.Stats{Constitution: 14, Strength: 16, Dexterity: 6, Intelligence: 5},
		Growth: character.Growth{Constitution: 0.09, Strength: 0.10, Dexterity: 0.03, Intelligence: 0.02},
	}
	tankClass = &character.Class{
		ID: "tank", Name: "Tank", Kind: character.KindPlayer, Role: character.RoleTank,
		Stats:  character.Stats{Constitution: 15, Strength: 14, Dexterity: 5, Intelligence: 6},
		Growth: character.Growth{Constitution: 0.10, Strength: 0.09, Dexterity: 0.03, Intelligence: 0.02},
	}
)

func newBuilder(t testing.TB, src dice.Source) *character.Builder {
	t.Helper()
	reg := ability.NewDefaultRegistry()
	require.NoError(t, reg.Register(&ability.Def{
		ID: "heal", Name: "Heal", Kind: ability.KindActive, Category: ability.CategoryHeal, Cooldown: 2, EnergyCost: 15, Amount: "1d11+19",
	}))
	require.NoError(t, reg.Register(&ability.Def{
		ID: "mass_heal", Name: "Mass Heal", Kind: ability.KindActive, Category: ability.CategoryHeal, Cooldown: 4, EnergyCost: 30,
		Amount: "20", Split: true, Spread: 3, Target: ability.TargetAll, CritScale: 0.7, CritMultiplier: 1.8,
	}))
	return character.NewBuilder(reg, ability.Env{Src: src, Effects: effect.NewDefaultRegistry(), Logger: zap.NewNop()})
}

func build(t testing.TB, b *character.Builder, name string, side character.Side, cls *character.Class, level int) *character.Character {
	t.Helper()
	c, err := b.Build(name, side, cls, level)
	require.NoError(t, err)
	return c
}

type transcript struct{ lines []string }

func (tr *transcript) narrator() combat.Narrator {
	return combat.NarrationFunc(func(l string) { tr.lines = append(tr.lines, l) })
}

func TestScenarioA_LossWithinOneRound(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	ally := build(t, b, "Brom", character.SideAlly, warriorClass, 1)
	enemy := build(t, b, "Orc", character.SideEnemy, orcClass, 5)
	ally.TakeDamage(ally.MaxHP() - 1)

	var tr transcript
	battle, err := combat.NewBattle([]*character.Character{ally}, []*character.Character{enemy}, src, tr.narrator(), zap.NewNop(), 30)
	require.NoError(t, err)
	res, err := battle.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, combat.OutcomeLoss, res.Outcome)
	assert.Equal(t, 1, res.Rounds)
	assert.Equal(t, combat.StateLoss, battle.State())
	assert.False(t, ally.IsAlive())
	assert.Len(t, res.Actions, 2)
}

func TestScenarioB_WinShortCircuitsRemainingAllies(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	a1 := build(t, b, "Brom", character.SideAlly, warriorClass, 1)
	a2 := build(t, b, "Vera", character.SideAlly, warriorClass, 1)
	enemy := build(t, b, "Orc", character.SideEnemy, orcClass, 1)
	enemy.TakeDamage(enemy.MaxHP() - 1)

	battle, err := combat.NewBattle([]*character.Character{a1, a2}, []*character.Character{enemy}, src, combat.NarrationFunc(func(string) {}), zap.NewNop(), 30)
	require.NoError(t, err)
	res, err := battle.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, combat.OutcomeWin, res.Outcome)
	assert.Equal(t, 1, res.Rounds)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "Brom", res.Actions[0].Actor)
	assert.Equal(t, a2.MaxEnergy(), a2.Energy())
}

func TestScenarioC_DrawAtRoundCap(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	ally := build(t, b, "Brom", character.SideAlly, tankClass, 10)
	enemy := build(t, b, "Gorm", character.SideEnemy, tankClass, 10)

	var tr transcript
	battle, err := combat.NewBattle([]*character.Character{ally}, []*character.Character{enemy}, src, tr.narrator(), zap.NewNop(), 3)
	require.NoError(t, err)
	res, err := battle.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, combat.OutcomeDraw, res.Outcome)
	assert.Equal(t, 3, res.Rounds)
	assert.True(t, ally.IsAlive())
	assert.True(t, enemy.IsAlive())
	assert.Contains(t, tr.lines, "--- Round 3 ---")
	assert.NotContains(t, tr.lines, "--- Round 4 ---")
}

func TestRun_TickKillResolvesImmediately(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	ally := build(t, b, "Brom", character.SideAlly, warriorClass, 1)
	enemy := build(t, b, "Orc", character.SideEnemy, orcClass, 1)
	enemy.TakeDamage(enemy.MaxHP() - 2)
	poison, err := effect.NewDefaultRegistry().New("poison")
	require.NoError(t, err)
	enemy.Effects().Add(poison, enemy)

	battle, err := combat.NewBattle([]*character.Character{ally}, []*character.Character{enemy}, src, combat.NarrationFunc(func(string) {}), zap.NewNop(), 30)
	require.NoError(t, err)
	res, err := battle.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, combat.OutcomeWin, res.Outcome)
	assert.Empty(t, res.Actions)
	require.NotEmpty(t, res.Ticks)
	assert.Equal(t, "poison", res.Ticks[0].Effect)
	assert.Zero(t, enemy.Effects().Len())
}

func TestRun_SkipTurnEffect(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	ally := build(t, b, "Brom", character.SideAlly, tankClass, 10)
	enemy := build(t, b, "Gorm", character.SideEnemy, tankClass, 10)
	reg := effect.NewDefaultRegistry()
	require.NoError(t, reg.Register(&effect.Def{ID: "stun", Name: "Stun", Kind: effect.KindSimple, Duration: 2, SkipTurn: true}))
	stun, err := reg.New("stun")
	require.NoError(t, err)
	ally.Effects().Add(stun, ally)

	var tr transcript
	battle, err := combat.NewBattle([]*character.Character{ally}, []*character.Character{enemy}, src, tr.narrator(), zap.NewNop(), 1)
	require.NoError(t, err)
	res, err := battle.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, tr.lines, "Brom cannot act this turn!")
	for _, a := range res.Actions {
		assert.NotEqual(t, "Brom", a.Actor)
	}
}

func TestRun_ResetsCharactersAtEnd(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	ally := build(t, b, "Brom", character.SideAlly, tankClass, 10)
	enemy := build(t, b, "Gorm", character.SideEnemy, tankClass, 10)
	burn, err := effect.NewDefaultRegistry().NewWith("burn", 10, 1)
	require.NoError(t, err)
	enemy.Effects().Add(burn, enemy)

	battle, err := combat.NewBattle([]*character.Character{ally}, []*character.Character{enemy}, src, combat.NarrationFunc(func(string) {}), zap.NewNop(), 2)
	require.NoError(t, err)
	_, err = battle.Run(context.Background())
	require.NoError(t, err)

	for _, c := range []*character.Character{ally, enemy} {
		assert.Zero(t, c.Effects().Len())
		for _, st := range c.Abilities().States() {
			assert.Zero(t, st.Cooldown)
		}
	}
}

func TestRun_CancelledBetweenRounds(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	ally := build(t, b, "Brom", character.SideAlly, tankClass, 10)
	enemy := build(t, b, "Gorm", character.SideEnemy, tankClass, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	battle, err := combat.NewBattle([]*character.Character{ally}, []*character.Character{enemy}, src, combat.NarrationFunc(func(string) {}), zap.NewNop(), 30)
	require.NoError(t, err)
	res, err := battle.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, res.Rounds)
	assert.False(t, battle.Terminal())
}

func TestRun_LogsTransitionsAndOutcome(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	ally := build(t, b, "Brom", character.SideAlly, warriorClass, 1)
	enemy := build(t, b, "Orc", character.SideEnemy, orcClass, 1)
	enemy.TakeDamage(enemy.MaxHP() - 1)

	battle, err := combat.NewBattle([]*character.Character{ally}, []*character.Character{enemy}, src, combat.NarrationFunc(func(string) {}), zap.New(core), 30)
	require.NoError(t, err)
	_, err = battle.Run(context.Background())
	require.NoError(t, err)

	// setup -> round_start -> ally_turn -> win
	assert.Equal(t, 3, logs.FilterMessage("combat: transition").Len())
	finished := logs.FilterMessage("combat: battle finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, "win", finished[0].ContextMap()["outcome"])
}

func TestNewBattle_RejectsEmptySide(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	ally := build(t, b, "Brom", character.SideAlly, warriorClass, 1)
	_, err := combat.NewBattle([]*character.Character{ally}, nil, src, combat.NarrationFunc(func(string) {}), zap.NewNop(), 30)
	assert.Error(t, err)
}

func TestRun_SeededBattleTerminates(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		src := dice.NewSeededSource(seed)
		b := newBuilder(t, src)
		allies := []*character.Character{
			build(t, b, "Brom", character.SideAlly, warriorClass, 2),
			build(t, b, "Mira", character.SideAlly, healerClass, 2),
		}
		enemies := []*character.Character{
			build(t, b, "Orc 1", character.SideEnemy, orcClass, 1),
			build(t, b, "Orc 2", character.SideEnemy, orcClass, 1),
		}
		battle, err := combat.NewBattle(allies, enemies, src, combat.NarrationFunc(func(string) {}), zap.NewNop(), 30)
		require.NoError(t, err)
		res, err := battle.Run(context.Background())
		require.NoError(t, err)
		assert.Contains(t, []combat.Outcome{combat.OutcomeWin, combat.OutcomeLoss, combat.OutcomeDraw}, res.Outcome)
		assert.LessOrEqual(t, res.Rounds, 30)
	}
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRun_RecordsBattleSpan(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	a1 := build(t, b, "Brom", character.SideAlly, warriorClass, 1)
	enemy := build(t, b, "Orc", character.SideEnemy, orcClass, 1)
	enemy.TakeDamage(enemy.MaxHP() - 1)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	battle, err := combat.NewBattle([]*character.Character{a1}, []*character.Character{enemy}, src, combat.NarrationFunc(func(string) {}), zap.NewNop(), 30)
	require.NoError(t, err)
	battle.SetTracer(tp.Tracer("combat_test"))

	_, err = battle.Run(context.Background())
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "combat.battle", span.Name())
	outcome, ok := spanAttr(span, "outcome")
	require.True(t, ok)
	assert.Equal(t, "win", outcome.AsString())

	var events []string
	for _, e := range span.Events() {
		events = append(events, e.Name)
	}
	assert.Equal(t, []string{"round", "action"}, events)
}

func TestRun_CancelledSpanRecordsError(t *testing.T) {
	src := fixedSource{0.99}
	b := newBuilder(t, src)
	ally := build(t, b, "Brom", character.SideAlly, tankClass, 1)
	enemy := build(t, b, "Gorm", character.SideEnemy, tankClass, 1)

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	battle, err := combat.NewBattle([]*character.Character{ally}, []*character.Character{enemy}, src, combat.NarrationFunc(func(string) {}), zap.NewNop(), 30)
	require.NoError(t, err)
	battle.SetTracer(tp.Tracer("combat_test"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = battle.Run(ctx)
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
