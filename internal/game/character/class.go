package character

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownClass is returned when a class or monster id is not registered.
var ErrUnknownClass = errors.New("character: unknown class")

// Kind separates player classes, which earn experience, from monsters.
type Kind string

const (
	KindPlayer  Kind = "player"
	KindMonster Kind = "monster"
)

// Role selects the primary stat and the attack and defense multipliers.
// Any role not listed here uses strength with the "other" multipliers.
type Role string

const (
	RoleTank    Role = "tank"
	RoleWarrior Role = "warrior"
	RoleRogue   Role = "rogue"
	RoleArcher  Role = "archer"
	RoleMage    Role = "mage"
	RoleHealer  Role = "healer"
)

type roleProfile struct {
	primary func(Stats) int
	attack  float64
	defense float64
}

func str(s Stats) int  { return s.Strength }
func dex(s Stats) int  { return s.Dexterity }
func intl(s Stats) int { return s.Intelligence }

var roleProfiles = map[Role]roleProfile{
	RoleTank:    {str, 0.8, 1.0},
	RoleWarrior: {str, 1.0, 0.66},
	RoleRogue:   {dex, 1.2, 0.375},
	RoleArcher:  {dex, 1.1, 0.44},
	RoleMage:    {intl, 1.3, 0.285},
	RoleHealer:  {intl, 0.6, 0.6},
}

var otherProfile = roleProfile{str, 0.8, 0.5}

func profileFor(r Role) roleProfile {
	if p, ok := roleProfiles[r]; ok {
		return p
	}
	return otherProfile
}

// Stats holds the four base stats.
type Stats struct {
	Constitution int `yaml:"constitution"`
	Strength     int `yaml:"strength"`
	Dexterity    int `yaml:"dexterity"`
	Intelligence int `yaml:"intelligence"`
}

// Growth holds the fractional per-level growth of each base stat.
type Growth struct {
	Constitution float64 `yaml:"constitution"`
	Strength     float64 `yaml:"strength"`
	Dexterity    float64 `yaml:"dexterity"`
	Intelligence float64 `yaml:"intelligence"`
}

// Scale returns base grown to level: int(stat * (1 + (level-1) * growth)).
func (g Growth) Scale(base Stats, level int) Stats {
	f := func(v int, rate float64) int {
		return int(float64(v) * (1 + float64(level-1)*rate))
	}
	return Stats{
		Constitution: f(base.Constitution, g.Constitution),
		Strength:     f(base.Strength, g.Strength),
		Dexterity:    f(base.Dexterity, g.Dexterity),
		Intelligence: f(base.Intelligence, g.Intelligence),
	}
}

// AbilityGrant unlocks an ability at a level when a character is built.
type AbilityGrant struct {
	Ability string `yaml:"ability"`
	Level   int    `yaml:"level"`
}

// Class is a player class or monster template loaded from YAML.
type Class struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Kind        Kind           `yaml:"kind"`
	Role        Role           `yaml:"role"`
	CanHeal     bool           `yaml:"can_heal"`
	Stats       Stats          `yaml:"stats"`
	Growth      Growth         `yaml:"growth"`
	Abilities   []AbilityGrant `yaml:"abilities"`
}

// Validate checks that the class satisfies basic invariants.
//
// Precondition: c must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, Kind is known, every
// base stat is >= 1, every growth rate is >= 0, and every grant names an
// ability at level >= 1.
func (c *Class) Validate() error {
	if c.ID == "" {
		return errors.New("class: id must not be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("class %q: name must not be empty", c.ID)
	}
	switch c.Kind {
	case KindPlayer, KindMonster:
	default:
		return fmt.Errorf("class %q: unknown kind %q", c.ID, c.Kind)
	}
	s := c.Stats
	if s.Constitution < 1 || s.Strength < 1 || s.Dexterity < 1 || s.Intelligence < 1 {
		return fmt.Errorf("class %q: base stats must be >= 1", c.ID)
	}
	g := c.Growth
	if g.Constitution < 0 || g.Strength < 0 || g.Dexterity < 0 || g.Intelligence < 0 {
		return fmt.Errorf("class %q: growth rates must be >= 0", c.ID)
	}
	for _, ag := range c.Abilities {
		if ag.Ability == "" || ag.Level < 1 {
			return fmt.Errorf("class %q: ability grants need an ability and level >= 1", c.ID)
		}
	}
	return nil
}

// Registry provides lookup of classes by id.
type Registry struct {
	classes map[string]*Class
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// Register validates c and adds it. The last registration of an id wins.
func (r *Registry) Register(c *Class) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.classes[c.ID] = c
	return nil
}

// Get returns the class for id, or a wrapped ErrUnknownClass.
func (r *Registry) Get(id string) (*Class, error) {
	c, ok := r.classes[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, id)
	}
	return c, nil
}

// IDs returns every registered id in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.classes))
	for id := range r.classes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadDirectory reads every *.yaml class in dir into a new Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a Registry of validated classes, or an error on the first
// parse or validation failure.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading class dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var c Class
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(&c); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}
