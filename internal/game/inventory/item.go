// Package inventory holds item templates, the weighted-rarity loot generator
// and the party's shared gold and item pool.
package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind constants for ItemDef.Kind.
const (
	KindConsumable = "consumable"
	KindWeapon     = "weapon"
	KindArmor      = "armor"
	KindAccessory  = "accessory"
)

// validKinds is the set of valid ItemDef kinds.
var validKinds = map[string]bool{
	KindConsumable: true,
	KindWeapon:     true,
	KindArmor:      true,
	KindAccessory:  true,
}

// ItemDef defines the static properties of an item template loaded from YAML.
// Properties maps each property a generated item may carry to its base value
// at level 1.
type ItemDef struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Kind        string         `yaml:"kind"`
	BaseValue   int            `yaml:"base_value"`
	Properties  map[string]int `yaml:"properties"`
}

// Equippable reports whether items of this template are worn rather than used.
func (d *ItemDef) Equippable() bool { return d.Kind != KindConsumable }

// PropertyNames returns the property keys in sorted order.
func (d *ItemDef) PropertyNames() []string {
	out := make([]string, 0, len(d.Properties))
	for k := range d.Properties {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks that the ItemDef satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *ItemDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if !validKinds[d.Kind] {
		errs = append(errs, fmt.Errorf("Kind must be one of consumable, weapon, armor, accessory; got %q", d.Kind))
	}
	if d.BaseValue < 0 {
		errs = append(errs, errors.New("BaseValue must be >= 0"))
	}
	for k, v := range d.Properties {
		if v < 0 {
			errs = append(errs, fmt.Errorf("property %q must be >= 0", k))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("item validation failed: %v", errs)
	}
	return nil
}

// LoadItems reads all *.yaml and *.yml files from dir, parses each as an
// ItemDef, validates it, and returns the collected slice in file order.
// Unknown YAML fields are rejected.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid ItemDefs or the first encountered error.
func LoadItems(dir string) ([]*ItemDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadItems: cannot read directory %q: %w", dir, err)
	}

	var items []*ItemDef
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadItems: cannot read file %q: %w", path, err)
		}
		var d ItemDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("LoadItems: cannot parse file %q: %w", path, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("LoadItems: invalid item in %q: %w", path, err)
		}
		items = append(items, &d)
	}
	return items, nil
}
