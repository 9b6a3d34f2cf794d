package effect

// AttackPenalty returns the total attack reduction from active effects,
// multiplied by each effect's stack count.
//
// Postcondition: Returns >= 0.
func AttackPenalty(s *Set) int {
	total := 0
	for _, inst := range s.active {
		if inst.Def.AttackPenalty > 0 {
			total += inst.Def.AttackPenalty * inst.Stacks
		}
	}
	return total
}

// DefensePenalty returns the total defense reduction from active effects.
//
// Postcondition: Returns >= 0.
func DefensePenalty(s *Set) int {
	total := 0
	for _, inst := range s.active {
		if inst.Def.DefensePenalty > 0 {
			total += inst.Def.DefensePenalty * inst.Stacks
		}
	}
	return total
}

// SkipsTurn reports whether any active effect prevents its target from acting.
func SkipsTurn(s *Set) bool {
	for _, inst := range s.active {
		if inst.Def.SkipTurn {
			return true
		}
	}
	return false
}
