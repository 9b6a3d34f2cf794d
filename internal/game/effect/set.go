package effect

// Set is the ordered collection of effects active on one character. The
// slice order is the order effects were first applied and the order they tick.
//
// It is not safe for concurrent use; the owning character serialises access.
type Set struct {
	active []*Instance
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{}
}

// Add attaches inst to target. If an instance of the same type is already
// active the two merge: a stackable effect gains one stack and refreshes its
// duration, a simple effect keeps the longer remaining duration. Only a new
// instance fires its apply hook.
//
// Precondition: inst must not be nil.
// Postcondition: at most one instance per effect type; dead targets are left untouched
// and ok is false.
func (s *Set) Add(inst *Instance, target Target) (res Result, ok bool) {
	if !target.IsAlive() {
		return Result{}, false
	}
	if existing := s.Get(inst.ID()); existing != nil {
		if existing.Def.Stackable() {
			existing.AddStack(1)
		} else if existing.Remaining != Permanent &&
			(inst.Remaining == Permanent || inst.Remaining > existing.Remaining) {
			existing.Remaining = inst.Remaining
		}
		r := existing.result(target, EventMerged)
		r.Message = target.Name() + "'s " + existing.Def.Name + " intensifies."
		return r, true
	}
	s.active = append(s.active, inst)
	return inst.apply(target), true
}

// Tick advances every active instance by one round in order: finite durations
// decrement, then the instance's update hook fires. Instances that reach zero
// are then removed and fire their remove hook. Ticking stops early if target
// dies; the caller is expected to Clear a dead character.
//
// Postcondition: no expired instance remains in the set.
func (s *Set) Tick(target Target) []Result {
	var out []Result
	for _, inst := range s.active {
		if !target.IsAlive() {
			break
		}
		if inst.Remaining > 0 {
			inst.Remaining--
		}
		out = append(out, inst.update(target))
	}
	kept := s.active[:0]
	for _, inst := range s.active {
		if inst.Expired() {
			out = append(out, inst.remove(target, EventExpired))
			continue
		}
		kept = append(kept, inst)
	}
	for i := len(kept); i < len(s.active); i++ {
		s.active[i] = nil
	}
	s.active = kept
	return out
}

// Remove detaches the effect with the given type key, firing its remove hook.
func (s *Set) Remove(id string, target Target) (Result, bool) {
	for i, inst := range s.active {
		if inst.ID() == id {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return inst.remove(target, EventCleared), true
		}
	}
	return Result{}, false
}

// Clear removes every effect, firing each remove hook in order.
//
// Postcondition: Len() == 0.
func (s *Set) Clear(target Target) []Result {
	out := make([]Result, 0, len(s.active))
	for _, inst := range s.active {
		out = append(out, inst.remove(target, EventCleared))
	}
	s.active = nil
	return out
}

// Get returns the active instance of type id, or nil.
func (s *Set) Get(id string) *Instance {
	for _, inst := range s.active {
		if inst.ID() == id {
			return inst
		}
	}
	return nil
}

// Has reports whether an effect of type id is active.
func (s *Set) Has(id string) bool { return s.Get(id) != nil }

// Stacks returns the stack count of effect id, or 0 if not present.
func (s *Set) Stacks(id string) int {
	if inst := s.Get(id); inst != nil {
		return inst.Stacks
	}
	return 0
}

// Len returns the number of active effects.
func (s *Set) Len() int { return len(s.active) }

// All returns the active instances in tick order. The slice is a copy; the
// instances are shared and must not be modified by the caller.
func (s *Set) All() []*Instance {
	out := make([]*Instance, len(s.active))
	copy(out, s.active)
	return out
}
