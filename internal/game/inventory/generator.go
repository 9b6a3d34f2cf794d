package inventory

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Rarity grades a generated item from Common to Legendary.
type Rarity int

const (
	Common Rarity = iota
	Uncommon
	Rare
	Epic
	Legendary
)

var rarityNames = [...]string{"Common", "Uncommon", "Rare", "Epic", "Legendary"}

func (r Rarity) String() string {
	if r < Common || r > Legendary {
		return fmt.Sprintf("Rarity(%d)", int(r))
	}
	return rarityNames[r]
}

// DefaultRarityWeights are the drop weights for Common through Legendary.
var DefaultRarityWeights = []float64{0.5, 0.3, 0.15, 0.04, 0.01}

// propertyCount is the number of properties rolled per rarity.
var propertyCount = [...]int{1, 1, 2, 3, 4}

var (
	uncommonPrefixes = []string{"Improved", "Sturdy", "Reinforced"}
	rarePrefixes     = []string{"Gleaming", "Mighty", "Legendary", "Ancient", "Divine", "Grand", "Eternal", "Sacred"}
)

// Item is one generated item instance.
type Item struct {
	InstanceID string
	DefID      string
	Name       string
	Kind       string
	Level      int
	Rarity     Rarity
	Value      int
	Properties map[string]int
}

func (i Item) String() string {
	return fmt.Sprintf("%s (lvl %d, %s %s)", i.Name, i.Level, i.Rarity, i.Kind)
}

// ScaledValue grows base with item level and rarity:
// base * (1 + (level-1)*0.2) * (1 + rarity*0.25), truncated, minimum 1.
func ScaledValue(base, level int, rarity Rarity) int {
	v := float64(base) * (1 + float64(level-1)*0.2) * (1 + float64(rarity)*0.25)
	return max(1, int(math.Floor(v)))
}

// Generator produces random items from a Registry.
//
// It is not safe for concurrent use.
type Generator struct {
	reg     *Registry
	src     dice.Source
	weights []float64
}

// NewGenerator creates a Generator. A nil or empty weights selects
// DefaultRarityWeights.
//
// Precondition: reg and src must be non-nil.
// Postcondition: returns an error when reg is empty or weights are malformed.
func NewGenerator(reg *Registry, src dice.Source, weights []float64) (*Generator, error) {
	if reg.Len() == 0 {
		return nil, errors.New("inventory: generator needs at least one item template")
	}
	if len(weights) == 0 {
		weights = DefaultRarityWeights
	}
	if len(weights) != len(rarityNames) {
		return nil, fmt.Errorf("inventory: need %d rarity weights, got %d", len(rarityNames), len(weights))
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("inventory: rarity weights must be >= 0, got %v", weights)
		}
		total += w
	}
	if total <= 0 {
		return nil, errors.New("inventory: at least one rarity weight must be positive")
	}
	return &Generator{reg: reg, src: src, weights: append([]float64(nil), weights...)}, nil
}

// Generate produces one item with a level drawn from [1, maxLevel].
//
// Postcondition: 1 <= Level <= max(1, maxLevel); Value >= 1.
func (g *Generator) Generate(maxLevel int) Item {
	return g.GenerateWithin(1, maxLevel)
}

// GenerateWithin produces one item with a level drawn from [minLevel, maxLevel].
// Draws happen in a fixed order: level, rarity, kind, template, name prefix,
// then properties.
func (g *Generator) GenerateWithin(minLevel, maxLevel int) Item {
	minLevel = max(1, minLevel)
	maxLevel = max(minLevel, maxLevel)
	level := dice.Between(g.src, minLevel, maxLevel)
	rarity := Rarity(max(0, dice.Weighted(g.src, g.weights)))

	kinds := g.reg.Kinds()
	defs := g.reg.OfKind(kinds[g.src.Intn(len(kinds))])
	def := defs[g.src.Intn(len(defs))]

	return Item{
		InstanceID: uuid.New().String(),
		DefID:      def.ID,
		Name:       g.name(def, rarity),
		Kind:       def.Kind,
		Level:      level,
		Rarity:     rarity,
		Value:      ScaledValue(def.BaseValue, level, rarity),
		Properties: g.properties(def, level, rarity),
	}
}

// GeneratePack produces n items with levels in [minLevel, maxLevel].
func (g *Generator) GeneratePack(n, minLevel, maxLevel int) []Item {
	out := make([]Item, 0, max(0, n))
	for range n {
		out = append(out, g.GenerateWithin(minLevel, maxLevel))
	}
	return out
}

func (g *Generator) name(def *ItemDef, r Rarity) string {
	switch {
	case r >= Rare:
		return rarePrefixes[g.src.Intn(len(rarePrefixes))] + " " + def.Name
	case r == Uncommon:
		return uncommonPrefixes[g.src.Intn(len(uncommonPrefixes))] + " " + def.Name
	}
	return def.Name
}

// properties rolls the rarity's share of def's property pool. Consumable
// potency scales with rarity; equipment rarity buys more properties instead,
// each valued as if Uncommon.
func (g *Generator) properties(def *ItemDef, level int, r Rarity) map[string]int {
	names := def.PropertyNames()
	out := make(map[string]int)
	valueRarity := Uncommon
	if !def.Equippable() {
		valueRarity = r
	}
	for _, i := range dice.Sample(g.src, len(names), propertyCount[r]) {
		out[names[i]] = ScaledValue(def.Properties[names[i]], level, valueRarity)
	}
	return out
}
