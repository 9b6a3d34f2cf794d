// Package scripting provides a sandboxed GopherLua environment for content
// scripts such as ability condition hooks. It has no dependency on game
// domain packages; callers pass plain Lua values in and read Lua values out.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes a single hook
// call may execute when no limit is configured.
const DefaultInstructionLimit = 100_000

// budgetContext cancels itself once Done has been called limit times.
// GopherLua polls Done once per opcode, so this is an exact instruction cap.
type budgetContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining atomic.Int64
}

func (c *budgetContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

func newBudgetContext(limit int) (*budgetContext, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	c := &budgetContext{Context: base, cancel: cancel}
	c.remaining.Store(int64(limit))
	return c, cancel
}

// NewSandboxedState creates an LState with only the base, table, string and
// math libraries, with file and code loading globals removed, and with an
// opcode budget of instLimit (0 selects DefaultInstructionLimit).
//
// Postcondition: the caller owns the LState and must call cancel and L.Close when done.
func NewSandboxedState(instLimit int) (*lua.LState, context.CancelFunc) {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	ctx, cancel := newBudgetContext(instLimit)
	L.SetContext(ctx)
	return L, cancel
}
