// Package mechanics implements the stateless combat formulas: dodge, critical
// hits, damage variance, armor mitigation, and the fixed-order Resolve step
// that combines them.
//
// Every stochastic function takes its dice.Source explicitly. Resolve draws in
// a fixed order (crit, variance, dodge) so seeded battles replay exactly.
package mechanics

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

const (
	BaseDodge       = 0.05
	MaxDodge        = 0.30
	DodgePerDex     = 0.005
	BaseCrit        = 0.05
	MaxCrit         = 0.50
	CritPerDex      = 0.01
	DexThreshold    = 10
	DefaultVariance = 0.10
	DefaultCritMult = 2.0

	// ArmorCenter is the armor value at which mitigation reaches the curve's
	// inflection point (one half).
	ArmorCenter    = 50.0
	ArmorSteepness = 0.03
	MaxMitigation  = 0.85
)

// Combatant is the subset of character state the formulas read.
type Combatant interface {
	Name() string
	Dexterity() int
	// Defense is the armor value used for mitigation.
	Defense() int
}

// Attacker is a Combatant that may carry a critical-strike passive.
type Attacker interface {
	Combatant
	// CritBonus is the additive crit chance granted by passives.
	CritBonus() float64
}

// HitEffects is what an on-hit trigger reports back to Resolve.
type HitEffects struct {
	Messages []string
	Effects  []string // effect type keys attached to the target
}

// Strike describes one damage or heal resolution against one target.
type Strike struct {
	// Base is the pre-variance amount.
	Base float64
	// Offensive strikes can be dodged and are mitigated by armor.
	Offensive bool
	// Variance is the fractional spread applied to Base.
	Variance float64
	// CritMultiplier defaults to DefaultCritMult when zero.
	CritMultiplier float64
	// CritScale scales the attacker's crit chance; zero means 1.
	CritScale float64
	// OnHit fires after a strike lands for a positive amount.
	OnHit func(amount int) HitEffects
}

// Outcome is the result of resolving one Strike.
type Outcome struct {
	Amount         int
	Blocked        int
	Critical       bool
	Dodged         bool
	Messages       []string
	EffectsApplied []string
}

// DodgeChance returns the target's chance to dodge an offensive strike.
//
// Postcondition: result in [BaseDodge, MaxDodge]; non-decreasing in dexterity.
func DodgeChance(target Combatant) float64 {
	bonus := math.Max(0, float64(target.Dexterity()-DexThreshold)*DodgePerDex)
	return math.Min(MaxDodge, BaseDodge+bonus)
}

// CritChance returns the attacker's chance to land a critical strike,
// including any passive bonus.
//
// Postcondition: result in [BaseCrit, MaxCrit]; non-decreasing in dexterity and passive bonus.
func CritChance(attacker Attacker) float64 {
	bonus := math.Max(0, float64(attacker.Dexterity()-DexThreshold)*CritPerDex)
	passive := math.Max(0, attacker.CritBonus())
	return math.Min(MaxCrit, BaseCrit+bonus+passive)
}

// DamageVariance draws uniformly from [base*(1-variance), base*(1+variance)].
func DamageVariance(src dice.Source, base, variance float64) float64 {
	return dice.Uniform(src, base*(1-variance), base*(1+variance))
}

// MitigationFraction returns the share of damage absorbed by armor.
// The curve is logistic, centred at ArmorCenter and capped at MaxMitigation.
//
// Postcondition: 0 for armor <= 0; otherwise in (0, MaxMitigation].
func MitigationFraction(armor int) float64 {
	if armor <= 0 {
		return 0
	}
	f := 1 / (1 + math.Exp(-ArmorSteepness*(float64(armor)-ArmorCenter)))
	return math.Min(MaxMitigation, f)
}

// Mitigate returns damage reduced by the armor's mitigation fraction, without
// rounding. armor <= 0 leaves damage unchanged.
func Mitigate(damage float64, armor int) float64 {
	return damage * (1 - MitigationFraction(armor))
}

// ArmorMitigation is Mitigate for whole-number damage. The mitigated amount is
// rounded to the nearest integer and kept within [1, damage-1], so armor
// always stops at least one point of a multi-point hit.
//
// Postcondition: armor <= 0 or damage <= 0 returns (damage, 0) unchanged.
// Otherwise final in [1, damage-1] when damage > 1, and final+blocked == damage.
func ArmorMitigation(damage, armor int) (final, blocked int) {
	if armor <= 0 || damage <= 0 {
		return damage, 0
	}
	final = max(1, int(math.Round(Mitigate(float64(damage), armor))))
	if damage > 1 {
		final = min(final, damage-1)
	}
	return final, damage - final
}

// roundNonZero rounds x to the nearest integer but never rounds a positive
// amount down to zero.
func roundNonZero(x float64) int {
	if x <= 0 {
		return 0
	}
	n := int(math.Round(x))
	if n < 1 {
		n = 1
	}
	return n
}

// Resolve applies the combat formulas to one strike in a fixed order:
// crit roll, variance (doubled on crit), dodge roll for offensive strikes,
// armor mitigation, rounding with a floor of one, then the on-hit trigger.
// Rounding happens once, after mitigation; Blocked is the rounded raw amount
// less the final one.
//
// Precondition: src, attacker and target must be non-nil.
// Postcondition: Dodged implies Amount == 0; a positive pre-rounding amount yields Amount >= 1.
func Resolve(src dice.Source, s Strike, attacker Attacker, target Combatant) Outcome {
	critScale := s.CritScale
	if critScale == 0 {
		critScale = 1
	}
	var out Outcome
	out.Critical = dice.Chance(src, CritChance(attacker)*critScale)

	raw := DamageVariance(src, s.Base, s.Variance)
	if out.Critical {
		mult := s.CritMultiplier
		if mult == 0 {
			mult = DefaultCritMult
		}
		raw *= mult
	}

	if s.Offensive && dice.Chance(src, DodgeChance(target)) {
		out.Critical = false
		out.Dodged = true
		out.Messages = append(out.Messages,
			fmt.Sprintf("%s attacks %s, but %s dodges!", attacker.Name(), target.Name(), target.Name()))
		return out
	}

	mitigated := raw
	if s.Offensive {
		mitigated = Mitigate(raw, target.Defense())
	}
	out.Amount = roundNonZero(mitigated)
	out.Blocked = max(0, roundNonZero(raw)-out.Amount)

	if out.Amount > 0 && s.OnHit != nil {
		hit := s.OnHit(out.Amount)
		out.Messages = append(out.Messages, hit.Messages...)
		out.EffectsApplied = append(out.EffectsApplied, hit.Effects...)
	}
	return out
}
