package ability

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/mechanics"
)

// Actor is a character as the ability engine sees it. Every hp and energy
// change goes through these methods.
type Actor interface {
	mechanics.Attacker
	effect.Target

	Attack() int
	Strength() int
	Intelligence() int
	HP() int
	MaxHP() int
	Energy() int
	MaxEnergy() int
	// SpendEnergy deducts n energy. It reports false and changes nothing
	// when the actor has less than n.
	SpendEnergy(n int) bool
	// RestoreEnergy adds up to n energy and returns the amount restored.
	RestoreEnergy(n int) int
	Effects() *effect.Set
}

// ScriptCaller invokes a named Lua hook. *scripting.Manager satisfies it.
type ScriptCaller interface {
	CallHook(hook string, args ...lua.LValue) (lua.LValue, error)
}

// Env is the shared machinery a Book needs to execute abilities.
//
// Src, Effects and Logger are required; Scripts may be nil.
type Env struct {
	Src     dice.Source
	Effects *effect.Registry
	Scripts ScriptCaller
	Logger  *zap.Logger
}

func hpRatio(a Actor) float64 {
	if a.MaxHP() <= 0 {
		return 0
	}
	return float64(a.HP()) / float64(a.MaxHP())
}

func living(as []Actor) []Actor {
	out := make([]Actor, 0, len(as))
	for _, a := range as {
		if a.IsAlive() {
			out = append(out, a)
		}
	}
	return out
}
