package ai_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/idlequest/internal/game/ai"
	"github.com/cory-johannsen/idlequest/internal/scripting"
)

func TestRegistry_Register_And_PlannerFor(t *testing.T) {
	reg := ai.NewRegistry()
	caller := &mockScriptCaller{returnVal: nil}
	if err := reg.Register(wolfDomain(), caller, "wolf"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	planner, ok := reg.PlannerFor("wolf")
	if !ok || planner == nil {
		t.Fatal("expected planner for wolf")
	}
	if planner.Domain().ID != "wolf" {
		t.Fatalf("expected wolf domain, got %q", planner.Domain().ID)
	}
}

func TestRegistry_Register_CollisionError(t *testing.T) {
	reg := ai.NewRegistry()
	caller := &mockScriptCaller{}
	_ = reg.Register(wolfDomain(), caller, "wolf")
	if err := reg.Register(wolfDomain(), caller, "wolf"); err == nil {
		t.Fatal("expected collision error on second Register")
	}
}

func TestRegistry_PlannerFor_NotFound(t *testing.T) {
	reg := ai.NewRegistry()
	_, ok := reg.PlannerFor("missing")
	if ok {
		t.Fatal("expected not found")
	}
}

const wolfDomainYAML = `
domain:
  id: wolf
  tasks:
    - id: behave
  methods:
    - task: behave
      id: desperate
      precondition: low_hp
      subtasks: [guard]
    - task: behave
      id: engage
      subtasks: [claw]
  operators:
    - id: guard
      action: defend
    - id: claw
      action: attack
`

func writePolicyDir(t *testing.T, withScripts bool) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wolf.yaml"), []byte(wolfDomainYAML), 0644))
	if withScripts {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "wolf"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "wolf", "wolf.lua"), []byte(wolfScript), 0644))
	}
	return dir
}

func TestLoadRegistry_LoadsDomainAndScripts(t *testing.T) {
	mgr := scripting.NewManager(zaptest.NewLogger(t), 0)
	t.Cleanup(mgr.Close)

	reg, err := ai.LoadRegistry(writePolicyDir(t, true), mgr)
	require.NoError(t, err)
	assert.Equal(t, []string{"wolf"}, reg.DomainIDs())
	assert.True(t, mgr.Has("wolf"))

	planner, ok := reg.PlannerFor("wolf")
	require.True(t, ok)
	ws := wolfWorld()
	ws.Self.HP = 10
	actions, err := planner.Plan(ws)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "defend", actions[0].Action)

	ret, err := mgr.CallHook("wolf", "low_hp", map[string]any{"self": map[string]any{"hp_pct": 90.0}})
	require.NoError(t, err)
	assert.Equal(t, lua.LFalse, ret)
}

func TestLoadRegistry_MissingScriptsForPreconditions(t *testing.T) {
	mgr := scripting.NewManager(zaptest.NewLogger(t), 0)
	t.Cleanup(mgr.Close)

	_, err := ai.LoadRegistry(writePolicyDir(t, false), mgr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no script dir")
}

func TestLoadRegistry_BadDir(t *testing.T) {
	mgr := scripting.NewManager(zaptest.NewLogger(t), 0)
	t.Cleanup(mgr.Close)
	_, err := ai.LoadRegistry("/nonexistent/policies", mgr)
	assert.Error(t, err)
}
