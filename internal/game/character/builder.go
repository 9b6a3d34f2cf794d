package character

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// Builder constructs characters against a shared ability registry and
// execution environment.
type Builder struct {
	abilities *ability.Registry
	env       ability.Env
	logger    *zap.Logger
}

// NewBuilder creates a Builder.
//
// Precondition: abilities must be non-nil and env must satisfy ability.NewBook.
func NewBuilder(abilities *ability.Registry, env ability.Env) *Builder {
	return &Builder{abilities: abilities, env: env, logger: env.Logger}
}

// Build creates a character of class at level on side with full hp and energy.
// Every character learns attack and rest at level 1 before the class grants.
// A grant naming an unregistered ability, or one whose energy cost exceeds the
// character's max energy, is logged at warn level and skipped.
//
// Precondition: name must be non-empty; class must be non-nil; level >= 1.
// Postcondition: Returns a living Character, or a non-nil error.
func (b *Builder) Build(name string, side Side, class *Class, level int) (*Character, error) {
	if name == "" {
		return nil, errors.New("character name must not be empty")
	}
	if class == nil {
		return nil, errors.New("class must not be nil")
	}
	if level < 1 {
		return nil, fmt.Errorf("character %q: level must be >= 1, got %d", name, level)
	}
	if side != SideAlly && side != SideEnemy {
		return nil, fmt.Errorf("character %q: unknown side %q", name, side)
	}

	c := &Character{
		id:      uuid.New(),
		name:    name,
		side:    side,
		class:   class,
		book:    ability.NewBook(b.env),
		effects: effect.NewSet(),
	}
	c.setLevel(level)

	grants := append([]AbilityGrant{{Ability: "attack", Level: 1}, {Ability: "rest", Level: 1}}, class.Abilities...)
	for _, g := range grants {
		b.grant(c, g)
	}
	return c, nil
}

func (b *Builder) grant(c *Character, g AbilityGrant) {
	def, ok := b.abilities.Get(g.Ability)
	if ok && !def.IsPassive() && def.EnergyCost > c.MaxEnergy() {
		b.logger.Warn("character: ability costs more than max energy",
			zap.String("character", c.name),
			zap.String("ability", g.Ability),
			zap.Int("energy_cost", def.EnergyCost),
			zap.Int("max_energy", c.MaxEnergy()),
		)
		return
	}
	if err := c.book.Grant(b.abilities, g.Ability, g.Level); err != nil {
		b.logger.Warn("character: missing ability registration",
			zap.String("character", c.name),
			zap.String("class", c.class.ID),
			zap.Error(err),
		)
	}
}

// Spec names one roster entry: a class or monster id and either a name or a count.
type Spec struct {
	Class string
	Name  string
	Count int
}

// ParseRoster parses a comma-separated roster such as "warrior:Brom,healer:Mira"
// or "goblin:2,orc". A numeric suffix is a count; any other suffix is a name;
// no suffix is a count of one.
func ParseRoster(s string) ([]Spec, error) {
	var out []Spec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cls, suffix, _ := strings.Cut(part, ":")
		sp := Spec{Class: strings.ToLower(strings.TrimSpace(cls)), Count: 1}
		if sp.Class == "" {
			return nil, fmt.Errorf("roster entry %q: missing class", part)
		}
		suffix = strings.TrimSpace(suffix)
		if suffix != "" {
			if n, err := strconv.Atoi(suffix); err == nil {
				if n < 1 {
					return nil, fmt.Errorf("roster entry %q: count must be >= 1", part)
				}
				sp.Count = n
			} else {
				sp.Name = suffix
			}
		}
		out = append(out, sp)
	}
	if len(out) == 0 {
		return nil, errors.New("roster must name at least one character")
	}
	return out, nil
}

// BuildRoster builds every entry of specs from reg at level. Unnamed enemies
// get generated names drawn from the builder's source, unique within the
// roster. Unnamed allies are named after the class, numbered when the count
// exceeds one.
func (b *Builder) BuildRoster(reg *Registry, specs []Spec, side Side, level int) ([]*Character, error) {
	var out []*Character
	namer := NewNamer(b.env.Src)
	for _, sp := range specs {
		class, err := reg.Get(sp.Class)
		if err != nil {
			return nil, err
		}
		for i := 1; i <= sp.Count; i++ {
			name := sp.Name
			switch {
			case name == "" && side == SideEnemy:
				name = namer.Name(class.Name)
			case name == "" && sp.Count > 1:
				name = fmt.Sprintf("%s %d", class.Name, i)
			case name == "":
				name = class.Name
			}
			c, err := b.Build(name, side, class, level)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}
