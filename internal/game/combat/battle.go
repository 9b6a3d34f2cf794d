// Package combat runs a battle between two sides as a round-based state
// machine and chooses each character's action with a scoring heuristic.
package combat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/looplab/fsm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// DefaultMaxRounds is the round cap used when none is configured.
const DefaultMaxRounds = 30

// Battle states.
const (
	StateSetup      = "setup"
	StateRoundStart = "round_start"
	StateAllyTurn   = "ally_turn"
	StateEnemyTurn  = "enemy_turn"
	StateRoundEnd   = "round_end"
	StateWin        = "win"
	StateLoss       = "loss"
	StateDraw       = "draw"
)

// Battle events.
const (
	EventStart      = "start"
	EventAlliesAct  = "allies_act"
	EventEnemiesAct = "enemies_act"
	EventEndRound   = "end_round"
	EventNextRound  = "next_round"
	EventWin        = "win"
	EventLose       = "lose"
	EventDraw       = "draw"
)

// Outcome is the terminal result of a battle.
type Outcome string

const (
	OutcomeWin  Outcome = StateWin
	OutcomeLoss Outcome = StateLoss
	OutcomeDraw Outcome = StateDraw
)

// Narrator receives battle narration one line at a time.
type Narrator interface {
	Narrate(line string)
}

// NarrationFunc adapts a function to Narrator.
type NarrationFunc func(line string)

// Narrate calls f(line).
func (f NarrationFunc) Narrate(line string) { f(line) }

// Result summarises a finished battle.
type Result struct {
	Outcome Outcome
	Rounds  int
	Actions []ability.Result
	Ticks   []effect.Result
}

// Battle drives one fight between allies and enemies to a terminal state.
//
// It is not safe for concurrent use.
type Battle struct {
	allies    []*character.Character
	enemies   []*character.Character
	src       dice.Source
	narrator  Narrator
	logger    *zap.Logger
	maxRounds int
	tracer    trace.Tracer

	machine *fsm.FSM
	span    trace.Span
	round   int
	result  Result
}

// NewBattle creates a Battle in the setup state. maxRounds <= 0 selects
// DefaultMaxRounds.
//
// Precondition: src, narrator and logger must be non-nil.
// Postcondition: returns an error when either side is empty.
func NewBattle(allies, enemies []*character.Character, src dice.Source, narrator Narrator, logger *zap.Logger, maxRounds int) (*Battle, error) {
	if len(allies) == 0 || len(enemies) == 0 {
		return nil, errors.New("combat: both sides need at least one character")
	}
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	b := &Battle{
		allies:    allies,
		enemies:   enemies,
		src:       src,
		narrator:  narrator,
		logger:    logger,
		maxRounds: maxRounds,
		tracer:    noop.NewTracerProvider().Tracer(""),
	}
	fighting := []string{StateRoundStart, StateAllyTurn, StateEnemyTurn}
	b.machine = fsm.NewFSM(
		StateSetup,
		fsm.Events{
			{Name: EventStart, Src: []string{StateSetup}, Dst: StateRoundStart},
			{Name: EventAlliesAct, Src: []string{StateRoundStart}, Dst: StateAllyTurn},
			{Name: EventEnemiesAct, Src: []string{StateAllyTurn}, Dst: StateEnemyTurn},
			{Name: EventEndRound, Src: []string{StateEnemyTurn}, Dst: StateRoundEnd},
			{Name: EventNextRound, Src: []string{StateRoundEnd}, Dst: StateRoundStart},
			{Name: EventWin, Src: fighting, Dst: StateWin},
			{Name: EventLose, Src: fighting, Dst: StateLoss},
			{Name: EventDraw, Src: []string{StateRoundEnd}, Dst: StateDraw},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				b.logger.Debug("combat: transition",
					zap.String("event", e.Event),
					zap.String("from", e.Src),
					zap.String("to", e.Dst),
					zap.Int("round", b.round),
				)
			},
		},
	)
	return b, nil
}

// State returns the current state name.
func (b *Battle) State() string { return b.machine.Current() }

// SetTracer makes Run record one span per battle, with an event for every
// round and action. Without it spans go to a no-op tracer.
func (b *Battle) SetTracer(t trace.Tracer) { b.tracer = t }

// Terminal reports whether the battle has finished.
func (b *Battle) Terminal() bool {
	return b.machine.Is(StateWin) || b.machine.Is(StateLoss) || b.machine.Is(StateDraw)
}

// Run drives the battle to a terminal state. ctx is checked only at the start
// of each round; a cancelled battle still resets every character and returns
// the partial Result with ctx's error.
//
// Postcondition: on a nil error Result.Outcome is win, loss or draw, and every
// character has zero cooldowns and no active effects.
func (b *Battle) Run(ctx context.Context) (Result, error) {
	ctx, b.span = b.tracer.Start(ctx, "combat.battle", trace.WithAttributes(
		attribute.StringSlice("allies", names(b.allies)),
		attribute.StringSlice("enemies", names(b.enemies)),
		attribute.Int("max_rounds", b.maxRounds),
	))
	defer b.span.End()

	// transitions are synchronous; cancellation is only honoured between rounds
	fctx := context.WithoutCancel(ctx)
	for !b.Terminal() {
		var next string
		switch b.machine.Current() {
		case StateSetup:
			next = b.setup()
		case StateRoundStart:
			if err := ctx.Err(); err != nil {
				b.finish()
				return b.result, b.fail(fmt.Errorf("combat: interrupted before round %d: %w", b.round, err))
			}
			b.span.AddEvent("round", trace.WithAttributes(attribute.Int("round", b.round)))
			next = b.roundStart()
		case StateAllyTurn:
			next = b.turn(b.allies, b.enemies, EventWin, EventEnemiesAct)
		case StateEnemyTurn:
			next = b.turn(b.enemies, b.allies, EventLose, EventEndRound)
		case StateRoundEnd:
			next = b.roundEnd()
		}
		if err := b.machine.Event(fctx, next); err != nil {
			return b.result, b.fail(fmt.Errorf("combat: event %q in state %q: %w", next, b.machine.Current(), err))
		}
	}
	b.result.Outcome = Outcome(b.machine.Current())
	b.finish()
	b.announce()
	b.span.SetAttributes(
		attribute.String("outcome", string(b.result.Outcome)),
		attribute.Int("rounds", b.result.Rounds),
		attribute.Int("actions", len(b.result.Actions)),
	)
	return b.result, nil
}

func (b *Battle) fail(err error) error {
	b.span.RecordError(err)
	b.span.SetStatus(codes.Error, err.Error())
	return err
}

func (b *Battle) setup() string {
	b.round = 1
	b.logger.Info("combat: battle starting",
		zap.Strings("allies", names(b.allies)),
		zap.Strings("enemies", names(b.enemies)),
		zap.Int("max_rounds", b.maxRounds),
	)
	b.narrate(fmt.Sprintf("%s face %s!", strings.Join(names(b.allies), ", "), strings.Join(names(b.enemies), ", ")))
	return EventStart
}

func (b *Battle) roundStart() string {
	b.result.Rounds = b.round
	b.narrate(fmt.Sprintf("--- Round %d ---", b.round))
	for _, c := range b.everyone() {
		if !c.IsAlive() {
			continue
		}
		for _, r := range c.Effects().Tick(c) {
			b.result.Ticks = append(b.result.Ticks, r)
			b.narrate(r.Message)
		}
		if !c.IsAlive() {
			b.narrate(fmt.Sprintf("%s succumbs to their wounds!", c.Name()))
			c.Effects().Clear(c)
		}
	}
	switch {
	case allDead(b.allies):
		return EventLose
	case allDead(b.enemies):
		return EventWin
	}
	return EventAlliesAct
}

// turn lets every living member of side act in roster order. It returns
// winEvent as soon as every opponent is dead.
func (b *Battle) turn(side, opponents []*character.Character, winEvent, nextEvent string) string {
	for _, c := range side {
		if !c.IsAlive() {
			continue
		}
		if effect.SkipsTurn(c.Effects()) {
			b.narrate(fmt.Sprintf("%s cannot act this turn!", c.Name()))
			continue
		}
		d, ok := Decide(b.src, c, side, opponents)
		if !ok {
			b.narrate(fmt.Sprintf("%s hesitates.", c.Name()))
			continue
		}
		res := c.Abilities().Use(d.Ability, c, actors(side), actors(opponents), actors(d.Targets))
		b.result.Actions = append(b.result.Actions, res)
		b.span.AddEvent("action", trace.WithAttributes(
			attribute.String("actor", res.Actor),
			attribute.String("ability", res.Ability),
			attribute.Bool("success", res.Success),
			attribute.Int("damage", res.Damage),
			attribute.Int("healed", res.Healed),
		))
		for _, m := range res.Messages {
			b.narrate(m)
		}
		clearDead(opponents)
		if allDead(opponents) {
			return winEvent
		}
	}
	return nextEvent
}

func (b *Battle) roundEnd() string {
	for _, c := range b.everyone() {
		c.Abilities().TickCooldowns()
	}
	b.round++
	if b.round > b.maxRounds {
		return EventDraw
	}
	return EventNextRound
}

// finish resets every character for the next battle.
func (b *Battle) finish() {
	for _, c := range b.everyone() {
		c.EndBattle()
	}
}

func (b *Battle) announce() {
	switch b.result.Outcome {
	case OutcomeWin:
		b.narrate("Victory! All enemies have been defeated.")
	case OutcomeLoss:
		b.narrate("Defeat... the whole party has fallen.")
	case OutcomeDraw:
		b.narrate(fmt.Sprintf("Both sides withdraw after %d rounds.", b.result.Rounds))
	}
	b.logger.Info("combat: battle finished",
		zap.String("outcome", string(b.result.Outcome)),
		zap.Int("rounds", b.result.Rounds),
		zap.Int("actions", len(b.result.Actions)),
	)
}

func (b *Battle) narrate(line string) {
	if line != "" {
		b.narrator.Narrate(line)
	}
}

func (b *Battle) everyone() []*character.Character {
	out := make([]*character.Character, 0, len(b.allies)+len(b.enemies))
	out = append(out, b.allies...)
	return append(out, b.enemies...)
}

// clearDead strips effects from characters killed this action; a dead
// character keeps nothing ticking.
func clearDead(cs []*character.Character) {
	for _, c := range cs {
		if !c.IsAlive() && c.Effects().Len() > 0 {
			c.Effects().Clear(c)
		}
	}
}

func allDead(cs []*character.Character) bool {
	for _, c := range cs {
		if c.IsAlive() {
			return false
		}
	}
	return true
}

func names(cs []*character.Character) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name()
	}
	return out
}
