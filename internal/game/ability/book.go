package ability

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/mechanics"
)

// State is one character's progress in one ability.
//
// Invariant: Level in [0, Def.MaxLevel]; Cooldown >= 0.
type State struct {
	Def      *Def
	Level    int
	Cooldown int
}

// Available reports whether the ability has been learned.
func (s *State) Available() bool { return s.Level > 0 }

// Ready reports whether an active ability is learned and off cooldown.
func (s *State) Ready() bool { return s.Available() && s.Cooldown == 0 }

// Book is the ordered set of abilities one character knows.
//
// It is not safe for concurrent use.
type Book struct {
	env    Env
	order  []string
	states map[string]*State
}

// NewBook creates an empty Book executing against env.
//
// Precondition: env.Src, env.Effects and env.Logger must be non-nil.
func NewBook(env Env) *Book {
	return &Book{env: env, states: make(map[string]*State)}
}

// Grant unlocks id at level, or sets the level of an ability already in the
// book. Levels are clamped to [0, Def.MaxLevel].
//
// Postcondition: returns a wrapped ErrUnknownAbility and leaves the book unchanged
// when id is not in reg.
func (b *Book) Grant(reg *Registry, id string, level int) error {
	def, ok := reg.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAbility, id)
	}
	level = max(0, min(level, def.MaxLevel))
	if st, ok := b.states[id]; ok {
		st.Def, st.Level = def, level
		return nil
	}
	b.states[id] = &State{Def: def, Level: level}
	b.order = append(b.order, id)
	return nil
}

// Get returns the state for id.
func (b *Book) Get(id string) (*State, bool) {
	st, ok := b.states[id]
	return st, ok
}

// States returns every ability in grant order.
func (b *Book) States() []*State {
	out := make([]*State, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.states[id])
	}
	return out
}

// Usable returns the ids of active abilities of category cat that would pass
// the gate right now, in grant order.
func (b *Book) Usable(cat Category, actor Actor, allies, enemies []Actor) []string {
	var out []string
	for _, id := range b.order {
		st := b.states[id]
		if st.Def.IsPassive() || st.Def.Category != cat {
			continue
		}
		if b.Check(id, actor, allies, enemies, nil) == nil {
			out = append(out, id)
		}
	}
	return out
}

// TickCooldowns decrements every positive cooldown by one.
func (b *Book) TickCooldowns() {
	for _, st := range b.states {
		if st.Cooldown > 0 {
			st.Cooldown--
		}
	}
}

// ResetCooldowns zeroes every cooldown.
func (b *Book) ResetCooldowns() {
	for _, st := range b.states {
		st.Cooldown = 0
	}
}

// CritBonus sums the crit chance granted by learned crit passives.
func (b *Book) CritBonus() float64 {
	var bonus float64
	for _, id := range b.order {
		st := b.states[id]
		if st.Def.IsPassive() && st.Def.Passive == PassiveCritBonus && st.Available() {
			bonus += st.Def.BonusPerLevel * float64(st.Level)
		}
	}
	return bonus
}

// OnHitChance is the trigger chance of an on-hit passive at level.
func OnHitChance(def *Def, level int) float64 {
	if level <= 0 {
		return 0
	}
	return math.Min(def.BaseChance+def.ChancePerLevel*float64(level-1), def.MaxChance)
}

// OnHit rolls every learned on-hit passive against target and attaches the
// linked effects that trigger.
func (b *Book) OnHit(attacker, target Actor) mechanics.HitEffects {
	var out mechanics.HitEffects
	for _, id := range b.order {
		st := b.states[id]
		if !st.Def.IsPassive() || st.Def.Passive != PassiveOnHitEffect || !st.Available() {
			continue
		}
		if !target.IsAlive() || !dice.Chance(b.env.Src, OnHitChance(st.Def, st.Level)) {
			continue
		}
		if name, ok := b.attach(target, st.Def.Effect, st.Def.EffectDuration, st.Def.EffectDamage); ok {
			out.Effects = append(out.Effects, st.Def.Effect)
			out.Messages = append(out.Messages,
				fmt.Sprintf("%s's %s afflicts %s with %s!", attacker.Name(), st.Def.Name, target.Name(), name))
		}
	}
	return out
}

// attach adds an effect instance to target and returns the effect's display name.
func (b *Book) attach(target Actor, key string, duration, magnitude int) (string, bool) {
	inst, err := b.env.Effects.NewWith(key, duration, magnitude)
	if err != nil {
		b.env.Logger.Warn("ability: effect not registered", zap.String("effect", key), zap.Error(err))
		return "", false
	}
	if _, ok := target.Effects().Add(inst, target); !ok {
		return "", false
	}
	return inst.Def.Name, true
}

// Check runs the full usability gate for id without mutating anything: learned,
// off cooldown, affordable, built-in condition, Lua condition hook, then target
// resolution.
//
// Postcondition: nil, or an error matching one of ErrUnknownAbility, ErrPassive,
// ErrGate or ErrNoTarget.
func (b *Book) Check(id string, actor Actor, allies, enemies, explicit []Actor) error {
	st, ok := b.states[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAbility, id)
	}
	if st.Def.IsPassive() {
		return ErrPassive
	}
	switch {
	case !st.Available():
		return gateError(ErrLocked)
	case st.Cooldown > 0:
		return gateError(ErrCooldown)
	case actor.Energy() < st.Def.EnergyCost:
		return gateError(ErrEnergy)
	}
	if !b.conditionMet(st.Def, actor, allies, enemies) {
		return gateError(ErrCondition)
	}
	if len(b.targets(st.Def, actor, allies, enemies, explicit, false)) == 0 {
		return ErrNoTarget
	}
	return nil
}

// CanUse reports whether Use would execute id.
func (b *Book) CanUse(id string, actor Actor, allies, enemies []Actor) bool {
	return b.Check(id, actor, allies, enemies, nil) == nil
}

func (b *Book) conditionMet(def *Def, actor Actor, allies, enemies []Actor) bool {
	switch def.Condition {
	case ConditionEnergyBelowMax:
		if actor.Energy() >= actor.MaxEnergy() {
			return false
		}
	case ConditionHasLivingTarget:
		if len(living(enemies)) == 0 {
			return false
		}
	}
	if def.ConditionHook == "" || b.env.Scripts == nil {
		return true
	}
	ret, err := b.env.Scripts.CallHook(def.ConditionHook,
		lua.LString(actor.Name()),
		lua.LNumber(actor.HP()),
		lua.LNumber(actor.MaxHP()),
		lua.LNumber(actor.Energy()),
		lua.LNumber(actor.MaxEnergy()),
		lua.LNumber(len(living(allies))),
		lua.LNumber(len(living(enemies))),
	)
	if err != nil {
		b.env.Logger.Warn("ability: condition hook failed",
			zap.String("ability", def.ID), zap.String("hook", def.ConditionHook), zap.Error(err))
		return true
	}
	return ret != lua.LFalse
}

// Use gates and executes the active ability id. allies must include actor.
// explicit, when non-empty, names the preferred targets of a single-target
// ability.
//
// A failed gate returns an unsuccessful Result and mutates nothing. Otherwise
// energy is spent, the cooldown is set, and the ability resolves against its
// targets.
func (b *Book) Use(id string, actor Actor, allies, enemies, explicit []Actor) Result {
	name := id
	var cat Category
	if st, ok := b.states[id]; ok {
		name, cat = st.Def.Name, st.Def.Category
	}
	if err := b.Check(id, actor, allies, enemies, explicit); err != nil {
		return failure(actor.Name(), name, cat, err)
	}
	st := b.states[id]
	targets := b.targets(st.Def, actor, allies, enemies, explicit, true)
	actor.SpendEnergy(st.Def.EnergyCost)
	st.Cooldown = st.Def.Cooldown
	res := b.execute(st, actor, targets)
	b.env.Logger.Debug("ability used",
		zap.String("actor", actor.Name()),
		zap.String("ability", id),
		zap.Int("targets", len(targets)),
		zap.Int("damage", res.Damage),
		zap.Int("healed", res.Healed),
	)
	return res
}
