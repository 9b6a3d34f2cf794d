package inventory

import (
	"fmt"
	"sort"
)

// Registry holds all loaded item templates indexed by ID.
type Registry struct {
	items map[string]*ItemDef
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*ItemDef)}
}

// NewRegistryFrom registers every def in order.
//
// Postcondition: returns the first registration error, if any.
func NewRegistryFrom(defs []*ItemDef) (*Registry, error) {
	r := NewRegistry()
	for _, d := range defs {
		if err := r.RegisterItem(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// RegisterItem adds d to the registry.
//
// Precondition:  d must not be nil.
// Postcondition: Item(d.ID) returns (d, true); returns error if d.ID already registered.
func (r *Registry) RegisterItem(d *ItemDef) error {
	if _, exists := r.items[d.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterItem: item ID %q already registered", d.ID)
	}
	r.items[d.ID] = d
	return nil
}

// Item returns the ItemDef for the given id and whether it was found.
func (r *Registry) Item(id string) (*ItemDef, bool) {
	d, ok := r.items[id]
	return d, ok
}

// Len returns the number of registered templates.
func (r *Registry) Len() int { return len(r.items) }

// Kinds returns the kinds with at least one registered template, sorted.
func (r *Registry) Kinds() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range r.items {
		if !seen[d.Kind] {
			seen[d.Kind] = true
			out = append(out, d.Kind)
		}
	}
	sort.Strings(out)
	return out
}

// OfKind returns the templates of kind sorted by ID.
func (r *Registry) OfKind(kind string) []*ItemDef {
	var out []*ItemDef
	for _, d := range r.items {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
