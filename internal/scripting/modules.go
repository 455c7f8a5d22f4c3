package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules installs the battle global every script can use:
//
//	battle.log.{debug,info,warn,error}(msg)  logs through the manager, tagged with the VM
//	battle.has_ready(unit, skill_id)          true when unit.ready_skills holds skill_id
//	battle.pct(cur, total)                    cur as a 0..100 percentage of total, 0 when total <= 0
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState, vmName string) {
	mod := L.NewTable()

	logTable := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, logf := range levels {
		logTable.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			logf(L.CheckString(1), zap.String("vm", vmName))
			return 0
		}))
	}
	mod.RawSetString("log", logTable)
	mod.RawSetString("has_ready", L.NewFunction(luaHasReady))
	mod.RawSetString("pct", L.NewFunction(luaPct))

	L.SetGlobal("battle", mod)
}

func luaHasReady(L *lua.LState) int {
	unit := L.CheckTable(1)
	id := L.CheckString(2)
	ready, ok := unit.RawGetString("ready_skills").(*lua.LTable)
	found := false
	if ok {
		ready.ForEach(func(_, v lua.LValue) {
			if s, ok := v.(lua.LString); ok && string(s) == id {
				found = true
			}
		})
	}
	L.Push(lua.LBool(found))
	return 1
}

func luaPct(L *lua.LState) int {
	cur := float64(L.CheckNumber(1))
	total := float64(L.CheckNumber(2))
	if total <= 0 {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(min(max(cur/total*100, 0), 100)))
	return 1
}
