package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// HP ratio thresholds used by the battlefield analysis.
const (
	NeedsHealingBelow = 0.9
	CriticalBelow     = 0.5
	WeakBelow         = 0.3
	StrongAbove       = 0.7
)

// Action is the broad kind of move the heuristic chooses between.
type Action int

const (
	ActionNone Action = iota
	ActionHeal
	ActionAttack
	ActionRest
)

func (a Action) String() string {
	switch a {
	case ActionHeal:
		return "heal"
	case ActionAttack:
		return "attack"
	case ActionRest:
		return "rest"
	}
	return "none"
}

// Snapshot captures the battlefield as one character sees it at decision time.
//
// Ally health is only tracked for characters that can heal; for everyone
// else AvgAllyHP is 1.
type Snapshot struct {
	Healer       bool
	AliveAllies  int
	AliveEnemies int
	AvgAllyHP    float64
	AvgEnemyHP   float64
	NeedHealing  []*character.Character
	Critical     []*character.Character
	Weak         []*character.Character
	Strong       []*character.Character
	EnergyRatio  float64
}

// Analyze builds a Snapshot for actor.
//
// Precondition: allies includes actor.
func Analyze(actor *character.Character, allies, enemies []*character.Character) Snapshot {
	s := Snapshot{Healer: actor.CanHeal(), AvgAllyHP: 1, AvgEnemyHP: 1, EnergyRatio: actor.EnergyRatio()}

	var sum float64
	for _, a := range allies {
		if !a.IsAlive() {
			continue
		}
		s.AliveAllies++
		if !s.Healer {
			continue
		}
		r := a.HPRatio()
		sum += r
		if r < NeedsHealingBelow {
			s.NeedHealing = append(s.NeedHealing, a)
		}
		if r < CriticalBelow {
			s.Critical = append(s.Critical, a)
		}
	}
	if s.Healer && s.AliveAllies > 0 {
		s.AvgAllyHP = sum / float64(s.AliveAllies)
	}

	sum = 0
	for _, e := range enemies {
		if !e.IsAlive() {
			continue
		}
		s.AliveEnemies++
		r := e.HPRatio()
		sum += r
		switch {
		case r < WeakBelow:
			s.Weak = append(s.Weak, e)
		case r > StrongAbove:
			s.Strong = append(s.Strong, e)
		}
	}
	if s.AliveEnemies > 0 {
		s.AvgEnemyHP = sum / float64(s.AliveEnemies)
	}
	return s
}

// Scores holds the priority of each action; zero means "do not consider".
type Scores struct {
	Heal   float64
	Attack float64
	Rest   float64
}

// Scores rates heal, attack and rest for the snapshot.
func (s Snapshot) Scores() Scores {
	var sc Scores
	if s.Healer {
		switch {
		case len(s.Critical) > 0:
			sc.Heal = 90
		case len(s.NeedHealing) > 1:
			sc.Heal = 70
		}
	}

	switch {
	case s.AvgEnemyHP < WeakBelow && len(s.Weak) > 0:
		sc.Attack = 80
	case s.AvgAllyHP > StrongAbove:
		sc.Attack = 60
	case !s.Healer:
		sc.Attack = 50 + (1-s.AvgEnemyHP)*30
	default:
		sc.Attack = 30 + (1-s.AvgEnemyHP)*20
	}

	switch {
	case s.EnergyRatio < 0.2:
		if s.AvgAllyHP > CriticalBelow && len(s.Critical) == 0 {
			sc.Rest = 70
		} else {
			sc.Rest = 40
		}
	case s.EnergyRatio < 0.5:
		sc.Rest = 20
	}
	return sc
}

// Best returns the highest positive score, preferring heal, then attack, then
// rest on ties. ActionNone means every score is zero.
func (sc Scores) Best() Action {
	best, top := ActionNone, 0.0
	for _, c := range []struct {
		a Action
		v float64
	}{{ActionHeal, sc.Heal}, {ActionAttack, sc.Attack}, {ActionRest, sc.Rest}} {
		if c.v > top {
			best, top = c.a, c.v
		}
	}
	return best
}

// Decision is the ability a character will use and its preferred targets.
type Decision struct {
	Action  Action
	Ability string
	Targets []*character.Character
}

// Decide picks an ability and targets for actor. ok is false when nothing in
// actor's book is usable.
//
// Precondition: allies includes actor.
func Decide(src dice.Source, actor *character.Character, allies, enemies []*character.Character) (d Decision, ok bool) {
	snap := Analyze(actor, allies, enemies)
	book := actor.Abilities()
	as, es := actors(allies), actors(enemies)
	usable := map[Action][]string{
		ActionHeal:   book.Usable(ability.CategoryHeal, actor, as, es),
		ActionAttack: book.Usable(ability.CategoryAttack, actor, as, es),
		ActionRest:   book.Usable(ability.CategoryRest, actor, as, es),
	}

	act := snap.Scores().Best()
	var id string
	switch {
	case act == ActionHeal && len(usable[ActionHeal]) > 0:
		id = snap.pickHeal(src, book, usable[ActionHeal])
	case act != ActionNone && len(usable[act]) > 0:
		id = pick(src, usable[act])
	default:
		nonRest := append(append([]string(nil), usable[ActionHeal]...), usable[ActionAttack]...)
		switch {
		case len(nonRest) > 0:
			id = pick(src, nonRest)
		case len(usable[ActionRest]) > 0:
			id = pick(src, usable[ActionRest])
		default:
			return Decision{}, false
		}
	}

	st, _ := book.Get(id)
	d = Decision{Ability: id, Action: categoryAction(st.Def.Category)}
	switch d.Action {
	case ActionHeal:
		d.Targets = []*character.Character{snap.healTarget(actor)}
	case ActionAttack:
		if len(snap.Weak) > 0 {
			d.Targets = []*character.Character{snap.Weak[src.Intn(len(snap.Weak))]}
		} else if alive := livingOf(enemies); len(alive) > 0 {
			d.Targets = []*character.Character{alive[src.Intn(len(alive))]}
		}
	}
	return d, true
}

// pickHeal prefers a single-target heal when an ally is critical and a mass
// heal when the party is broadly hurt.
func (s Snapshot) pickHeal(src dice.Source, book *ability.Book, ids []string) string {
	var single, mass []string
	for _, id := range ids {
		st, _ := book.Get(id)
		if st.Def.Target == ability.TargetAll {
			mass = append(mass, id)
		} else {
			single = append(single, id)
		}
	}
	switch {
	case len(s.Critical) > 0 && len(single) > 0:
		return pick(src, single)
	case s.AvgAllyHP < 0.6 && len(mass) > 0 && s.AliveAllies > 2:
		return pick(src, mass)
	}
	return pick(src, ids)
}

func (s Snapshot) healTarget(self *character.Character) *character.Character {
	for _, group := range [][]*character.Character{s.Critical, s.NeedHealing} {
		if len(group) == 0 {
			continue
		}
		best := group[0]
		for _, c := range group[1:] {
			if c.HPRatio() < best.HPRatio() {
				best = c
			}
		}
		return best
	}
	return self
}

func categoryAction(c ability.Category) Action {
	switch c {
	case ability.CategoryHeal:
		return ActionHeal
	case ability.CategoryRest:
		return ActionRest
	}
	return ActionAttack
}

func pick(src dice.Source, ids []string) string {
	return ids[src.Intn(len(ids))]
}

func livingOf(cs []*character.Character) []*character.Character {
	var out []*character.Character
	for _, c := range cs {
		if c.IsAlive() {
			out = append(out, c)
		}
	}
	return out
}

func actors(cs []*character.Character) []ability.Actor {
	out := make([]ability.Actor, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}
