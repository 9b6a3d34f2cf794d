package effect

import (
	"fmt"
	"math"
)

// Target is the character an effect is attached to. Effects change hp only
// through these methods.
type Target interface {
	Name() string
	IsAlive() bool
	// TakeDamage applies n damage and returns the amount actually lost.
	TakeDamage(n int) int
	// Heal restores up to n hp and returns the amount actually restored.
	Heal(n int) int
}

// Event labels what happened to an effect instance.
type Event string

const (
	EventApplied Event = "applied"
	EventMerged  Event = "merged"
	EventTicked  Event = "ticked"
	EventExpired Event = "expired"
	EventCleared Event = "cleared"
)

// Result describes one effect hook firing. It is a value object for
// narration and statistics; the engine never branches on it.
type Result struct {
	Effect    string
	Target    string
	Event     Event
	Damage    int
	Healed    int
	Stacks    int
	Remaining int
	Message   string
}

// Instance is one effect attached to one character.
//
// Invariant: Stacks in [0, Def.MaxStacks] for stackable effects, Stacks == 1 otherwise;
// Remaining >= 0 or Remaining == Permanent.
type Instance struct {
	Def          *Def
	Remaining    int
	BaseDuration int
	Magnitude    int
	Stacks       int
}

func newInstance(def *Def, duration, magnitude int) *Instance {
	if duration == 0 {
		duration = def.Duration
	}
	if magnitude == 0 {
		magnitude = def.TickDamage
		if magnitude == 0 {
			magnitude = def.TickHeal
		}
	}
	return &Instance{
		Def:          def,
		Remaining:    duration,
		BaseDuration: duration,
		Magnitude:    magnitude,
		Stacks:       1,
	}
}

// ID returns the effect type key.
func (i *Instance) ID() string { return i.Def.ID }

// Permanent reports whether the instance never expires by ticking.
func (i *Instance) Permanent() bool { return i.Remaining == Permanent }

// Expired reports whether the instance has run out of rounds.
func (i *Instance) Expired() bool { return i.Remaining == 0 }

// StackMultiplier returns 1 + (stacks-1)*0.5 for stackable effects and 1 otherwise.
func (i *Instance) StackMultiplier() float64 {
	if !i.Def.Stackable() || i.Stacks <= 1 {
		return 1
	}
	return 1 + float64(i.Stacks-1)*0.5
}

// TotalValue scales base by the stack multiplier, rounded to the nearest integer.
func (i *Instance) TotalValue(base int) int {
	return int(math.Round(float64(base) * i.StackMultiplier()))
}

// AddStack adds n stacks up to the cap and refreshes the remaining duration.
// A stack added at the cap changes nothing but the duration.
//
// Postcondition: Stacks <= Def.MaxStacks; Remaining == BaseDuration.
func (i *Instance) AddStack(n int) {
	if !i.Def.Stackable() {
		return
	}
	if n > 0 {
		i.Stacks += n
		if i.Stacks > i.Def.MaxStacks {
			i.Stacks = i.Def.MaxStacks
		}
	}
	i.Remaining = i.BaseDuration
}

func (i *Instance) result(t Target, ev Event) Result {
	return Result{
		Effect:    i.Def.ID,
		Target:    t.Name(),
		Event:     ev,
		Stacks:    i.Stacks,
		Remaining: i.Remaining,
	}
}

// apply fires once when the instance is first attached.
func (i *Instance) apply(t Target) Result {
	r := i.result(t, EventApplied)
	r.Message = fmt.Sprintf("%s is afflicted by %s.", t.Name(), i.Def.Name)
	return r
}

// update fires once per tick while the instance is active.
func (i *Instance) update(t Target) Result {
	r := i.result(t, EventTicked)
	if i.Def.TickDamage > 0 {
		r.Damage = t.TakeDamage(i.TotalValue(i.Magnitude))
		r.Message = fmt.Sprintf("%s takes %d damage from %s (x%d).", t.Name(), r.Damage, i.Def.Name, i.Stacks)
	}
	if i.Def.TickHeal > 0 {
		r.Healed = t.Heal(i.TotalValue(i.Magnitude))
		r.Message = fmt.Sprintf("%s recovers %d hp from %s.", t.Name(), r.Healed, i.Def.Name)
	}
	if r.Message == "" {
		r.Message = fmt.Sprintf("%s is still under %s.", t.Name(), i.Def.Name)
	}
	return r
}

// remove fires on expiry or when the set is cleared.
func (i *Instance) remove(t Target, ev Event) Result {
	r := i.result(t, ev)
	r.Message = fmt.Sprintf("%s wears off %s.", i.Def.Name, t.Name())
	return r
}
