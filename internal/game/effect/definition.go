// Package effect implements timed status effects: their static definitions,
// the type registry abilities instantiate them through, and the ordered
// per-character Set that applies, merges, ticks and expires them.
package effect

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

// Permanent is the duration sentinel for effects that never expire on their own.
const Permanent = -1

// DefaultMaxStacks caps stackable effects that do not set max_stacks.
const DefaultMaxStacks = 5

// ErrUnknownEffect is returned when an effect type key is not registered.
var ErrUnknownEffect = errors.New("effect: unknown effect type")

// Kind selects the effect variant.
type Kind string

const (
	KindSimple    Kind = "simple"
	KindStackable Kind = "stackable"
)

// Def is the static definition of a status effect type, loaded from YAML or
// declared in Go for the built-in types.
type Def struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	Kind           Kind   `yaml:"kind"`
	Duration       int    `yaml:"duration"` // rounds; -1 = permanent
	MaxStacks      int    `yaml:"max_stacks"`
	TickDamage     int    `yaml:"tick_damage"`
	TickHeal       int    `yaml:"tick_heal"`
	AttackPenalty  int    `yaml:"attack_penalty"`
	DefensePenalty int    `yaml:"defense_penalty"`
	SkipTurn       bool   `yaml:"skip_turn"`
}

// Stackable reports whether instances of this type accumulate stacks.
func (d *Def) Stackable() bool { return d.Kind == KindStackable }

// Validate checks that the Def satisfies its invariants.
//
// Postcondition: returns nil iff all fields are valid.
func (d *Def) Validate() error {
	var errs []string
	if d.ID == "" {
		errs = append(errs, "id must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "name must not be empty")
	}
	if d.Kind != KindSimple && d.Kind != KindStackable {
		errs = append(errs, fmt.Sprintf("kind must be simple or stackable, got %q", d.Kind))
	}
	if d.Duration == 0 || d.Duration < Permanent {
		errs = append(errs, fmt.Sprintf("duration must be > 0 or -1, got %d", d.Duration))
	}
	if d.Stackable() && d.MaxStacks < 1 {
		errs = append(errs, "max_stacks must be >= 1 for stackable effects")
	}
	if d.TickDamage < 0 || d.TickHeal < 0 {
		errs = append(errs, "tick_damage and tick_heal must be >= 0")
	}
	if len(errs) > 0 {
		return fmt.Errorf("effect %q: %s", d.ID, strings.Join(errs, "; "))
	}
	return nil
}

// Poison is the built-in stacking damage-over-time effect.
func Poison() *Def {
	return &Def{ID: "poison", Name: "Poison", Kind: KindStackable, Duration: 3, MaxStacks: DefaultMaxStacks, TickDamage: 5}
}

// Burn is the built-in short stacking fire damage effect.
func Burn() *Def {
	return &Def{ID: "burn", Name: "Burn", Kind: KindStackable, Duration: 2, MaxStacks: DefaultMaxStacks, TickDamage: 3}
}

// Registry is the static lookup table from effect type key to definition.
// Abilities name the effects they inflict by key, so they never import the
// effect types themselves.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// NewDefaultRegistry returns a Registry holding the built-in effect types.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range []*Def{Poison(), Burn()} {
		// built-ins are valid by construction
		_ = r.Register(d)
	}
	return r
}

// Register validates def and adds it, replacing any definition with the same ID.
//
// Precondition: def must not be nil.
// Postcondition: Get(def.ID) returns def on success.
func (r *Registry) Register(def *Def) error {
	if def.Stackable() && def.MaxStacks == 0 {
		def.MaxStacks = DefaultMaxStacks
	}
	if err := def.Validate(); err != nil {
		return err
	}
	r.defs[def.ID] = def
	return nil
}

// Get returns the Def for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// IDs returns all registered type keys in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.defs))
	for id := range r.defs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// New instantiates the effect type id with its default duration and magnitude.
//
// Postcondition: returns ErrUnknownEffect (wrapped) when id is not registered.
func (r *Registry) New(id string) (*Instance, error) {
	return r.NewWith(id, 0, 0)
}

// NewWith instantiates id, overriding duration and magnitude when they are non-zero.
func (r *Registry) NewWith(id string, duration, magnitude int) (*Instance, error) {
	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, id)
	}
	return newInstance(def, duration, magnitude), nil
}

// LoadDirectory returns a Registry holding the built-in types plus every
// *.yaml definition in dir. A YAML definition may replace a built-in.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading effect dir %q: %w", dir, err)
	}
	reg := NewDefaultRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(&def); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}
