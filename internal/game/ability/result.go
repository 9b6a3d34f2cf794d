package ability

import (
	"errors"
	"fmt"
)

// Gate and targeting failures. A failed gate is reported as ErrGate wrapping
// exactly one of ErrLocked, ErrCooldown, ErrEnergy or ErrCondition.
var (
	ErrGate      = errors.New("ability: gate failed")
	ErrLocked    = errors.New("not learned")
	ErrCooldown  = errors.New("on cooldown")
	ErrEnergy    = errors.New("not enough energy")
	ErrCondition = errors.New("condition not met")
	ErrNoTarget  = errors.New("ability: no valid target")
	ErrPassive   = errors.New("ability: passive abilities cannot be used directly")
)

func gateError(reason error) error {
	return fmt.Errorf("%w: %w", ErrGate, reason)
}

// Reason returns a short human-readable cause for a failed Result.
func Reason(err error) string {
	for _, e := range []error{ErrLocked, ErrCooldown, ErrEnergy, ErrCondition} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoTarget):
		return "no target"
	case errors.Is(err, ErrPassive):
		return "passive"
	case errors.Is(err, ErrUnknownAbility):
		return "unknown ability"
	}
	return err.Error()
}

// TargetOutcome is what one ability use did to one target.
type TargetOutcome struct {
	Target         string
	Damage         int
	Healed         int
	Blocked        int
	Critical       bool
	Dodged         bool
	EffectsApplied []string
}

// Result is the immutable record of one ability use, successful or not.
// It exists for narration and statistics only.
type Result struct {
	Ability        string
	Actor          string
	Category       Category
	Success        bool
	Err            error
	Targets        []TargetOutcome
	Damage         int
	Healed         int
	EnergyRestored int
	Critical       bool
	Messages       []string
}

func failure(actor, name string, cat Category, err error) Result {
	return Result{
		Ability:  name,
		Actor:    actor,
		Category: cat,
		Err:      err,
		Messages: []string{fmt.Sprintf("%s tries %s but fails: %s", actor, name, Reason(err))},
	}
}
