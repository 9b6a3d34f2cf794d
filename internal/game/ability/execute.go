package ability

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/mechanics"
)

// targets resolves the living targets of def. Rest always targets the actor.
// Heals draw from allies and attacks from enemies. When sample is false a
// random-mode ability returns its whole candidate pool without drawing from
// the source, so the gate never consumes randomness.
func (b *Book) targets(def *Def, actor Actor, allies, enemies, explicit []Actor, sample bool) []Actor {
	if def.Category == CategoryRest {
		if actor.IsAlive() {
			return []Actor{actor}
		}
		return nil
	}
	pool := living(enemies)
	if def.Category == CategoryHeal {
		pool = living(allies)
	}
	if len(pool) == 0 {
		return nil
	}
	switch def.Target {
	case TargetAll:
		return pool
	case TargetRandom:
		if !sample || def.TargetCount >= len(pool) {
			return pool
		}
		idx := dice.Sample(b.env.Src, len(pool), def.TargetCount)
		out := make([]Actor, len(idx))
		for i, j := range idx {
			out[i] = pool[j]
		}
		return out
	}
	for _, t := range explicit {
		if t.IsAlive() && contains(pool, t) {
			return []Actor{t}
		}
	}
	if def.Category == CategoryHeal {
		return []Actor{lowestRatio(pool)}
	}
	return pool[:1]
}

func contains(as []Actor, t Actor) bool {
	for _, a := range as {
		if a == t {
			return true
		}
	}
	return false
}

func lowestRatio(as []Actor) Actor {
	best := as[0]
	for _, a := range as[1:] {
		if hpRatio(a) < hpRatio(best) {
			best = a
		}
	}
	return best
}

func scalingStat(s Scaling, a Actor) int {
	switch s {
	case ScaleStrength:
		return a.Strength()
	case ScaleDexterity:
		return a.Dexterity()
	case ScaleIntelligence:
		return a.Intelligence()
	case ScaleAttack:
		return a.Attack()
	}
	return 0
}

// baseAmount is scaling_stat*damage_scale plus one roll of the amount expression.
func (b *Book) baseAmount(def *Def, actor Actor) float64 {
	base := float64(scalingStat(def.Scaling, actor)) * def.DamageScale
	if expr, ok := def.AmountExpr(); ok {
		base += float64(dice.Eval(b.env.Src, expr).Total())
	}
	return base
}

func (b *Book) execute(st *State, actor Actor, targets []Actor) Result {
	res := Result{
		Ability:  st.Def.Name,
		Actor:    actor.Name(),
		Category: st.Def.Category,
		Success:  true,
	}
	switch st.Def.Category {
	case CategoryRest:
		b.rest(st.Def, actor, &res)
	case CategoryHeal:
		b.heal(st.Def, actor, targets, &res)
	default:
		b.attack(st.Def, actor, targets, &res)
	}
	return res
}

func (b *Book) rest(def *Def, actor Actor, res *Result) {
	n := int(math.Round(b.baseAmount(def, actor)))
	res.EnergyRestored = actor.RestoreEnergy(n)
	res.Targets = []TargetOutcome{{Target: actor.Name()}}
	res.Messages = append(res.Messages,
		fmt.Sprintf("%s rests and recovers %d energy.", actor.Name(), res.EnergyRestored))
}

func (b *Book) heal(def *Def, actor Actor, targets []Actor, res *Result) {
	base := b.baseAmount(def, actor)
	if def.Split {
		base = math.Max(1, math.Floor(base/float64(len(targets))))
	}
	if def.Spread > 0 {
		base = math.Max(1, base+float64(dice.Between(b.env.Src, -def.Spread, def.Spread)))
	}
	strike := mechanics.Strike{
		Base:           base,
		Variance:       def.Variance,
		CritMultiplier: def.CritMultiplier,
		CritScale:      def.CritScale,
	}
	for _, t := range targets {
		out := mechanics.Resolve(b.env.Src, strike, actor, t)
		healed := t.Heal(out.Amount)
		to := TargetOutcome{Target: t.Name(), Healed: healed, Critical: out.Critical}
		res.Healed += healed
		res.Critical = res.Critical || out.Critical
		msg := fmt.Sprintf("%s heals %s for %d hp.", actor.Name(), t.Name(), healed)
		if out.Critical {
			msg = fmt.Sprintf("%s heals %s for %d hp! Critical!", actor.Name(), t.Name(), healed)
		}
		res.Messages = append(res.Messages, msg)
		to.EffectsApplied = b.rollEffects(def, actor, t, res)
		res.Targets = append(res.Targets, to)
	}
}

func (b *Book) attack(def *Def, actor Actor, targets []Actor, res *Result) {
	base := b.baseAmount(def, actor)
	for _, target := range targets {
		strike := mechanics.Strike{
			Base:           base,
			Offensive:      true,
			Variance:       def.Variance,
			CritMultiplier: def.CritMultiplier,
			CritScale:      def.CritScale,
		}
		// on-hit passives fire after damage lands so a killing blow attaches nothing
		var pending bool
		strike.OnHit = func(int) mechanics.HitEffects {
			pending = true
			return mechanics.HitEffects{}
		}
		out := mechanics.Resolve(b.env.Src, strike, actor, target)
		to := TargetOutcome{Target: target.Name(), Blocked: out.Blocked, Critical: out.Critical, Dodged: out.Dodged}
		if out.Dodged {
			res.Messages = append(res.Messages, out.Messages...)
			res.Targets = append(res.Targets, to)
			continue
		}
		to.Damage = target.TakeDamage(out.Amount)
		res.Damage += to.Damage
		res.Critical = res.Critical || out.Critical
		res.Messages = append(res.Messages, attackMessage(actor, def, target, to))
		if pending {
			hit := b.OnHit(actor, target)
			res.Messages = append(res.Messages, hit.Messages...)
			to.EffectsApplied = append(to.EffectsApplied, hit.Effects...)
		}
		to.EffectsApplied = append(to.EffectsApplied, b.rollEffects(def, actor, target, res)...)
		if !target.IsAlive() {
			res.Messages = append(res.Messages, fmt.Sprintf("%s has been defeated!", target.Name()))
		}
		res.Targets = append(res.Targets, to)
	}
}

func attackMessage(actor Actor, def *Def, target Actor, to TargetOutcome) string {
	verb := "attacks"
	if def.ID != "attack" {
		verb = "uses " + def.Name + " on"
	}
	msg := fmt.Sprintf("%s %s %s for %d damage", actor.Name(), verb, target.Name(), to.Damage)
	if to.Blocked > 0 {
		msg += fmt.Sprintf(" (%d blocked)", to.Blocked)
	}
	if to.Critical {
		return msg + ". Critical hit!"
	}
	return msg + "."
}

// rollEffects rolls each of def's effect chances against a living target.
func (b *Book) rollEffects(def *Def, actor, target Actor, res *Result) []string {
	var applied []string
	for _, ec := range def.Effects {
		if !target.IsAlive() || !dice.Chance(b.env.Src, ec.Chance) {
			continue
		}
		if name, ok := b.attach(target, ec.Effect, 0, 0); ok {
			applied = append(applied, ec.Effect)
			res.Messages = append(res.Messages,
				fmt.Sprintf("%s's %s inflicts %s on %s.", actor.Name(), def.Name, name, target.Name()))
		}
	}
	return applied
}
