// Package ability implements active and passive abilities: shared
// definitions loaded from YAML, a per-character Book holding unlock levels
// and cooldowns, and the gate-then-execute path that resolves an ability
// against its targets.
package ability

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Kind separates abilities that are invoked from abilities that are consulted.
type Kind string

const (
	KindActive  Kind = "active"
	KindPassive Kind = "passive"
)

// Category is the closed set of active ability behaviours.
type Category string

const (
	CategoryAttack Category = "attack"
	CategoryHeal   Category = "heal"
	CategoryRest   Category = "rest"
)

// PassiveType is the closed set of passive ability behaviours.
type PassiveType string

const (
	PassiveCritBonus   PassiveType = "crit_bonus"
	PassiveOnHitEffect PassiveType = "on_hit_effect"
)

// Scaling names the actor stat an ability's base amount is multiplied from.
type Scaling string

const (
	ScaleAttack       Scaling = "attack"
	ScaleStrength     Scaling = "strength"
	ScaleDexterity    Scaling = "dexterity"
	ScaleIntelligence Scaling = "intelligence"
)

// TargetMode selects how many targets an ability resolves against.
type TargetMode string

const (
	TargetSingle TargetMode = "single"
	TargetAll    TargetMode = "all"
	TargetRandom TargetMode = "random"
)

// Condition is a built-in usability predicate evaluated after the
// cooldown and energy gates.
type Condition string

const (
	ConditionNone            Condition = ""
	ConditionEnergyBelowMax  Condition = "energy_below_max"
	ConditionHasLivingTarget Condition = "has_living_target"
)

// DefaultVariance is applied to attack and heal amounts when a definition sets none.
const DefaultVariance = 0.1

// ErrUnknownAbility is returned when an ability id is not registered.
var ErrUnknownAbility = errors.New("ability: unknown ability")

// EffectChance links an effect type key to the probability it is applied
// to each target a strike lands on.
type EffectChance struct {
	Effect string  `yaml:"effect"`
	Chance float64 `yaml:"chance"`
}

// Def is the shared, read-only definition of one ability.
type Def struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Kind        Kind   `yaml:"kind"`
	Description string `yaml:"description"`
	MaxLevel    int    `yaml:"max_level"`

	Category       Category       `yaml:"category"`
	Cooldown       int            `yaml:"cooldown"`
	EnergyCost     int            `yaml:"energy_cost"`
	DamageScale    float64        `yaml:"damage_scale"`
	Scaling        Scaling        `yaml:"scaling"`
	Amount         string         `yaml:"amount"`
	Spread         int            `yaml:"spread"`
	Variance       float64        `yaml:"variance"`
	CritMultiplier float64        `yaml:"crit_multiplier"`
	CritScale      float64        `yaml:"crit_scale"`
	Target         TargetMode     `yaml:"target"`
	TargetCount    int            `yaml:"target_count"`
	Split          bool           `yaml:"split"`
	Effects        []EffectChance `yaml:"effects"`
	Condition      Condition      `yaml:"condition"`
	ConditionHook  string         `yaml:"condition_hook"`

	Passive        PassiveType `yaml:"passive"`
	BonusPerLevel  float64     `yaml:"bonus_per_level"`
	BaseChance     float64     `yaml:"base_chance"`
	ChancePerLevel float64     `yaml:"chance_per_level"`
	MaxChance      float64     `yaml:"max_chance"`
	Effect         string      `yaml:"effect"`
	EffectDuration int         `yaml:"effect_duration"`
	EffectDamage   int         `yaml:"effect_damage"`

	amount dice.Expression
	hasAmt bool
}

// IsPassive reports whether the ability is consulted rather than invoked.
func (d *Def) IsPassive() bool { return d.Kind == KindPassive }

// AmountExpr returns the parsed amount expression and whether one is set.
func (d *Def) AmountExpr() (dice.Expression, bool) { return d.amount, d.hasAmt }

// Validate fills defaults and checks that the definition is internally consistent.
//
// Postcondition: on success MaxLevel >= 1, Name is set, and an active ability has a
// Target mode, a Variance, and a Scaling (attack category).
func (d *Def) Validate() error {
	if d.ID == "" {
		return errors.New("ability: id must not be empty")
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.MaxLevel == 0 {
		d.MaxLevel = 1
	}
	if d.MaxLevel < 0 {
		return fmt.Errorf("ability %q: max_level must be positive", d.ID)
	}
	switch d.Kind {
	case KindActive:
		return d.validateActive()
	case KindPassive:
		return d.validatePassive()
	default:
		return fmt.Errorf("ability %q: unknown kind %q", d.ID, d.Kind)
	}
}

func (d *Def) validateActive() error {
	var errs []string
	switch d.Category {
	case CategoryAttack:
		if d.Scaling == "" {
			d.Scaling = ScaleAttack
		}
	case CategoryHeal, CategoryRest:
	default:
		errs = append(errs, fmt.Sprintf("unknown category %q", d.Category))
	}
	switch d.Scaling {
	case "", ScaleAttack, ScaleStrength, ScaleDexterity, ScaleIntelligence:
	default:
		errs = append(errs, fmt.Sprintf("unknown scaling %q", d.Scaling))
	}
	if d.Target == "" {
		d.Target = TargetSingle
	}
	switch d.Target {
	case TargetSingle, TargetAll:
	case TargetRandom:
		if d.TargetCount < 1 {
			errs = append(errs, "random targeting requires target_count >= 1")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown target %q", d.Target))
	}
	switch d.Condition {
	case ConditionNone, ConditionEnergyBelowMax, ConditionHasLivingTarget:
	default:
		errs = append(errs, fmt.Sprintf("unknown condition %q", d.Condition))
	}
	if d.Cooldown < 0 {
		errs = append(errs, "cooldown must be >= 0")
	}
	if d.EnergyCost < 0 {
		errs = append(errs, "energy_cost must be >= 0")
	}
	if d.Spread < 0 {
		errs = append(errs, "spread must be >= 0")
	}
	if d.Variance < 0 || d.Variance >= 1 {
		errs = append(errs, "variance must be in [0, 1)")
	}
	if d.Variance == 0 {
		d.Variance = DefaultVariance
	}
	for _, ec := range d.Effects {
		if ec.Effect == "" {
			errs = append(errs, "effects entries need an effect key")
		}
		if ec.Chance < 0 || ec.Chance > 1 {
			errs = append(errs, fmt.Sprintf("effect %q chance must be in [0, 1]", ec.Effect))
		}
	}
	if d.Amount != "" {
		expr, err := dice.Parse(d.Amount)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			d.amount, d.hasAmt = expr, true
		}
	}
	if d.Category == CategoryRest && !d.hasAmt {
		errs = append(errs, "rest requires an amount")
	}
	if d.Category == CategoryHeal && !d.hasAmt && d.DamageScale == 0 {
		errs = append(errs, "heal requires an amount or a damage_scale")
	}
	if len(errs) > 0 {
		return fmt.Errorf("ability %q: %s", d.ID, strings.Join(errs, "; "))
	}
	return nil
}

func (d *Def) validatePassive() error {
	switch d.Passive {
	case PassiveCritBonus:
		if d.BonusPerLevel <= 0 {
			return fmt.Errorf("ability %q: crit_bonus requires bonus_per_level > 0", d.ID)
		}
	case PassiveOnHitEffect:
		if d.Effect == "" {
			return fmt.Errorf("ability %q: on_hit_effect requires an effect", d.ID)
		}
		if d.MaxChance == 0 {
			d.MaxChance = 1
		}
		if d.BaseChance < 0 || d.MaxChance > 1 || d.BaseChance > d.MaxChance {
			return fmt.Errorf("ability %q: chances must satisfy 0 <= base_chance <= max_chance <= 1", d.ID)
		}
	default:
		return fmt.Errorf("ability %q: unknown passive type %q", d.ID, d.Passive)
	}
	return nil
}

// Attack is the basic single-target attack every character knows.
func Attack() *Def {
	return &Def{
		ID: "attack", Name: "Attack", Kind: KindActive, Category: CategoryAttack,
		Description: "A plain weapon strike.",
		EnergyCost:  10, DamageScale: 1.0, Scaling: ScaleAttack, Target: TargetSingle,
	}
}

// Rest restores energy and is only usable while energy is below maximum.
func Rest() *Def {
	return &Def{
		ID: "rest", Name: "Rest", Kind: KindActive, Category: CategoryRest,
		Description: "Catch your breath and recover energy.",
		Amount:      "30", Condition: ConditionEnergyBelowMax,
	}
}

// Registry maps ability id to its shared definition.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// NewDefaultRegistry returns a Registry holding Attack and Rest.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range []*Def{Attack(), Rest()} {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Register validates def and adds it, replacing any definition with the same ID.
//
// Precondition: def must not be nil.
func (r *Registry) Register(def *Def) error {
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

// Remove drops id from the registry and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	_, ok := r.defs[id]
	delete(r.defs, id)
	return ok
}

// IDs returns all registered ability ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.defs))
	for id := range r.defs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadDirectory returns a Registry holding the built-in abilities plus every
// *.yaml definition in dir.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading ability dir %q: %w", dir, err)
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
