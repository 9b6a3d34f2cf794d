package inventory

// Pool is the party's shared gold purse and item list.
//
// It is not safe for concurrent use.
type Pool struct {
	gold  int
	items []Item
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{}
}

// AddGold adds amount to the purse. Non-positive amounts are ignored.
//
// Postcondition: Gold() never decreases.
func (p *Pool) AddGold(amount int) {
	if amount > 0 {
		p.gold += amount
	}
}

// SpendGold removes amount from the purse if enough is held.
//
// Postcondition: on false, Gold() is unchanged.
func (p *Pool) SpendGold(amount int) bool {
	if amount <= 0 {
		return true
	}
	if p.gold < amount {
		return false
	}
	p.gold -= amount
	return true
}

// Gold returns the purse total.
func (p *Pool) Gold() int { return p.gold }

// AddItem appends item to the pool.
func (p *Pool) AddItem(item Item) {
	p.items = append(p.items, item)
}

// RemoveItem removes the item with instanceID.
//
// Postcondition: ok is false and the pool is unchanged when no item matches.
func (p *Pool) RemoveItem(instanceID string) (Item, bool) {
	for i, it := range p.items {
		if it.InstanceID == instanceID {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return it, true
		}
	}
	return Item{}, false
}

// Items returns a snapshot copy of the pooled items in insertion order.
func (p *Pool) Items() []Item {
	out := make([]Item, len(p.items))
	copy(out, p.items)
	return out
}

// Len returns the number of pooled items.
func (p *Pool) Len() int { return len(p.items) }

// Empty reports whether the pool holds neither gold nor items.
func (p *Pool) Empty() bool { return p.gold == 0 && len(p.items) == 0 }

// Clear empties the pool.
func (p *Pool) Clear() {
	p.gold = 0
	p.items = nil
}
