package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Manager owns the sandboxed VM holding every loaded content script and
// dispatches named hooks into it.
//
// A battle is single-threaded, but the mutex keeps a reload from racing a
// hook call made by a long-lived caller.
type Manager struct {
	mu        sync.Mutex
	vm        *lua.LState
	cancel    func()
	instLimit int
	roller    *dice.Roller
	logger    *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{roller: roller, logger: logger}
}

// Load creates a fresh VM, registers the engine.* modules, then executes
// every *.lua file in scriptDir in lexicographic order. A previously loaded
// VM is replaced only when the new one loads cleanly.
//
// Precondition: scriptDir must be a readable directory.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	for _, path := range files {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	m.vm, m.cancel, m.instLimit = L, cancel, instLimit
	m.logger.Debug("scripting: scripts loaded", zap.String("dir", scriptDir), zap.Int("files", len(files)))
	return nil
}

// Close releases the VM. Calling CallHook afterwards returns LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.vm == nil {
		return
	}
	m.cancel()
	m.vm.Close()
	m.vm, m.cancel = nil, nil
}

// CallHook calls the Lua global function hook with args and returns its
// first result. A missing VM or an undefined hook returns (LNil, nil). Lua
// runtime errors, including an exhausted instruction budget, are logged at
// warn level and also return (LNil, nil) so one broken script cannot stop a
// battle.
//
// Each call gets a fresh instruction budget.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vm == nil {
		m.logger.Info("scripting: no scripts loaded", zap.String("hook", hook))
		return lua.LNil, nil
	}

	fn := m.vm.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	ctx, cancel := newBudgetContext(limitOrDefault(m.instLimit))
	defer cancel()
	m.vm.SetContext(ctx)

	if err := m.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	ret := m.vm.Get(-1)
	m.vm.Pop(1)
	return ret, nil
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultInstructionLimit
	}
	return n
}
