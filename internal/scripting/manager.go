package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// vm is one sandboxed LState plus the lock that serializes access to it.
type vm struct {
	mu     sync.Mutex
	L      *lua.LState
	cancel context.CancelFunc
}

// Manager owns one sandboxed LState per named script set and exposes hook
// dispatch. Script sets are typically one per policy domain.
//
// Manager is safe for concurrent use. Each LState is single-threaded; its
// own mutex serializes calls into the same VM while different VMs run
// concurrently.
type Manager struct {
	mu        sync.RWMutex
	vms       map[string]*vm
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager. Every CallHook runs with a fresh budget of
// instLimit opcodes; 0 uses DefaultInstructionLimit.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs loaded.
func NewManager(logger *zap.Logger, instLimit int) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:       make(map[string]*vm),
		instLimit: instLimit,
		logger:    logger,
	}
}

// LoadDir creates a sandboxed VM for name, installs the battle module,
// then executes every *.lua file in scriptDir in lexicographic order. A VM
// already registered under name is closed and replaced.
//
// Precondition: name must be non-empty; scriptDir must be a readable directory.
// Postcondition: VM is registered; returns error on Lua load failure.
func (m *Manager) LoadDir(name, scriptDir string) error {
	if name == "" {
		return fmt.Errorf("scripting: VM name must not be empty")
	}
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, name, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	L, cancel := NewSandboxedState(m.instLimit)
	m.RegisterModules(L, name)
	for _, path := range files {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, name, err)
		}
	}
	m.install(name, L, cancel)
	return nil
}

// LoadString is LoadDir for a single in-memory chunk.
func (m *Manager) LoadString(name, src string) error {
	if name == "" {
		return fmt.Errorf("scripting: VM name must not be empty")
	}
	L, cancel := NewSandboxedState(m.instLimit)
	m.RegisterModules(L, name)
	if err := L.DoString(src); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: loading chunk for %q: %w", name, err)
	}
	m.install(name, L, cancel)
	return nil
}

func (m *Manager) install(name string, L *lua.LState, cancel context.CancelFunc) {
	m.mu.Lock()
	old := m.vms[name]
	m.vms[name] = &vm{L: L, cancel: cancel}
	m.mu.Unlock()
	if old != nil {
		old.close()
	}
}

// Has reports whether a VM is registered under name.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[name]
	return ok
}

// CallHook calls the named Lua global function in name's VM with args
// converted by ToLua. Returns (LNil, nil) if the hook is not defined or no VM
// exists. Lua runtime errors, including an exhausted instruction budget, are
// logged at Warn level and never propagated.
//
// Precondition: args must be types accepted by ToLua.
// Postcondition: Returns the first return value of the hook, or LNil; returns
// an error only when an argument cannot be converted.
func (m *Manager) CallHook(name, hook string, args ...any) (lua.LValue, error) {
	m.mu.RLock()
	v := m.vms[name]
	m.mu.RUnlock()

	if v == nil {
		m.logger.Info("scripting: no VM",
			zap.String("vm", name),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	largs := make([]lua.LValue, 0, len(args))
	for i, a := range args {
		lv, err := ToLua(v.L, a)
		if err != nil {
			return lua.LNil, fmt.Errorf("scripting: hook %q arg %d: %w", hook, i, err)
		}
		largs = append(largs, lv)
	}

	if v.cancel != nil {
		v.cancel()
	}
	v.cancel = ResetInstructionLimit(v.L, m.instLimit)

	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, largs...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("vm", name),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM.
//
// Postcondition: Has reports false for every name.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.close()
	}
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
	v.L.Close()
}
