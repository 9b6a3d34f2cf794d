// Package character defines battle participants: their classes, derived
// stats, hp and energy, and the ability book and effect set each one owns.
package character

import (
	"math"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// Side is the team a character fights for.
type Side string

const (
	SideAlly  Side = "ally"
	SideEnemy Side = "enemy"
)

// Character is one battle participant.
//
// Invariant: 0 <= hp <= MaxHP(); 0 <= energy <= MaxEnergy(); a character is alive iff hp > 0.
//
// It is not safe for concurrent use.
type Character struct {
	id     uuid.UUID
	name   string
	side   Side
	class  *Class
	level  int
	exp    int
	stats  Stats
	hp     int
	energy int

	book    *ability.Book
	effects *effect.Set
}

// ID returns the character's unique id.
func (c *Character) ID() uuid.UUID { return c.id }

func (c *Character) Name() string  { return c.name }
func (c *Character) Side() Side    { return c.side }
func (c *Character) Class() *Class { return c.class }
func (c *Character) Role() Role    { return c.class.Role }
func (c *Character) Level() int    { return c.level }
func (c *Character) Exp() int      { return c.exp }
func (c *Character) CanHeal() bool { return c.class.CanHeal }

// Stats returns the base stats at the current level.
func (c *Character) Stats() Stats { return c.stats }

func (c *Character) Constitution() int { return c.stats.Constitution }
func (c *Character) Strength() int     { return c.stats.Strength }
func (c *Character) Dexterity() int    { return c.stats.Dexterity }
func (c *Character) Intelligence() int { return c.stats.Intelligence }

// MaxHP is con*10 + level*5.
func (c *Character) MaxHP() int { return c.stats.Constitution*10 + c.level*5 }

// MaxEnergy is 50 + dex*7 + con*2.
func (c *Character) MaxEnergy() int { return 50 + c.stats.Dexterity*7 + c.stats.Constitution*2 }

// Attack is the role's primary stat times its attack multiplier, less any
// effect attack penalty, floored at zero.
func (c *Character) Attack() int {
	p := profileFor(c.class.Role)
	return max(0, int(float64(p.primary(c.stats))*p.attack)-effect.AttackPenalty(c.effects))
}

// Defense is constitution times the role's defense multiplier, less any
// effect defense penalty, floored at zero.
func (c *Character) Defense() int {
	p := profileFor(c.class.Role)
	return max(0, int(float64(c.stats.Constitution)*p.defense)-effect.DefensePenalty(c.effects))
}

func (c *Character) HP() int       { return c.hp }
func (c *Character) Energy() int   { return c.energy }
func (c *Character) IsAlive() bool { return c.hp > 0 }

// HPRatio is hp/max_hp in [0, 1].
func (c *Character) HPRatio() float64 {
	if m := c.MaxHP(); m > 0 {
		return float64(c.hp) / float64(m)
	}
	return 0
}

// EnergyRatio is energy/max_energy in [0, 1].
func (c *Character) EnergyRatio() float64 {
	if m := c.MaxEnergy(); m > 0 {
		return float64(c.energy) / float64(m)
	}
	return 0
}

// TakeDamage reduces hp by up to n and returns the hp actually lost.
func (c *Character) TakeDamage(n int) int {
	if n <= 0 || c.hp == 0 {
		return 0
	}
	n = min(n, c.hp)
	c.hp -= n
	return n
}

// Heal restores up to n hp to a living character and returns the amount restored.
func (c *Character) Heal(n int) int {
	if n <= 0 || !c.IsAlive() {
		return 0
	}
	n = min(n, c.MaxHP()-c.hp)
	c.hp += n
	return n
}

// SpendEnergy deducts n energy, or reports false and changes nothing.
func (c *Character) SpendEnergy(n int) bool {
	if n < 0 || n > c.energy {
		return false
	}
	c.energy -= n
	return true
}

// RestoreEnergy adds up to n energy and returns the amount restored.
func (c *Character) RestoreEnergy(n int) int {
	if n <= 0 {
		return 0
	}
	n = min(n, c.MaxEnergy()-c.energy)
	c.energy += n
	return n
}

// RestoreEnergyPercent restores pct percent of max energy, rounded down.
func (c *Character) RestoreEnergyPercent(pct int) int {
	return c.RestoreEnergy(c.MaxEnergy() * pct / 100)
}

// Abilities returns the character's ability book.
func (c *Character) Abilities() *ability.Book { return c.book }

// Effects returns the character's active effect set.
func (c *Character) Effects() *effect.Set { return c.effects }

// CritBonus is the crit chance granted by the character's passives.
func (c *Character) CritBonus() float64 { return c.book.CritBonus() }

// EndBattle resets every cooldown and clears every effect.
func (c *Character) EndBattle() []effect.Result {
	c.book.ResetCooldowns()
	return c.effects.Clear(c)
}

// ExpToNext is the experience needed to leave the current level: int(20 * level^1.5).
func ExpToNext(level int) int {
	return int(20 * math.Pow(float64(level), 1.5))
}

// ExpToNext returns the character's threshold for its current level.
func (c *Character) ExpToNext() int { return ExpToNext(c.level) }

// AddExp adds experience to a player character and applies every level-up it
// pays for. Each level-up subtracts its threshold, regrows the base stats and
// fully restores hp and energy. Monsters ignore experience.
//
// Postcondition: returns the levels reached, in order; 0 <= Exp() < ExpToNext().
func (c *Character) AddExp(n int) []int {
	if c.class.Kind != KindPlayer || n <= 0 {
		return nil
	}
	c.exp += n
	var reached []int
	for c.exp >= c.ExpToNext() {
		c.exp -= c.ExpToNext()
		c.setLevel(c.level + 1)
		reached = append(reached, c.level)
	}
	return reached
}

func (c *Character) setLevel(level int) {
	c.level = level
	c.stats = c.class.Growth.Scale(c.class.Stats, level)
	c.hp = c.MaxHP()
	c.energy = c.MaxEnergy()
}
