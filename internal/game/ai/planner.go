package ai

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// RootTask is the task every plan starts from.
const RootTask = "behave"

// Plan bounds. A validated domain cannot recurse, so these only bind on
// hand-built domains.
const (
	MaxPlanDepth  = 16
	MaxPlanLength = 16
)

// ScriptCaller evaluates Lua preconditions.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the named VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(name, hook string, args ...any) (lua.LValue, error)
}

// PlannedAction is one primitive action produced by the planner, with the
// method whose decomposition emitted it.
type PlannedAction struct {
	Action string
	Skill  string
	Method string
}

// Planner decomposes an HTN domain into an ordered action plan for the
// enemy's current turn.
type Planner struct {
	domain *Domain
	caller ScriptCaller
	vmName string
}

// NewPlanner constructs a Planner whose preconditions run in the VM vmName.
//
// Precondition: domain and caller must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller, vmName string) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	if caller == nil {
		panic("ai.NewPlanner: caller must not be nil")
	}
	return &Planner{domain: domain, caller: caller, vmName: vmName}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// Plan decomposes RootTask against state. Each task takes the first method,
// in declaration order, whose precondition returns boolean true; a task with
// no applicable method contributes nothing. A Lua failure counts as false.
//
// Postcondition: returns a non-nil plan of at most MaxPlanLength actions.
func (p *Planner) Plan(state *WorldState) ([]PlannedAction, error) {
	if state == nil || state.Self == nil || state.Opponent == nil {
		return nil, fmt.Errorf("ai.Planner.Plan: state, state.Self, and state.Opponent must not be nil")
	}
	pl := planning{p: p, world: state.ToMap(), plan: []PlannedAction{}}
	pl.expand(RootTask, "", 0)
	return pl.plan, nil
}

type planning struct {
	p     *Planner
	world map[string]any
	plan  []PlannedAction
}

func (pl *planning) full() bool { return len(pl.plan) >= MaxPlanLength }

func (pl *planning) expand(task, via string, depth int) {
	if pl.full() {
		return
	}
	if op, ok := pl.p.domain.OperatorByID(task); ok {
		pl.plan = append(pl.plan, PlannedAction{Action: op.Action, Skill: op.Skill, Method: via})
		return
	}
	if depth >= MaxPlanDepth {
		return
	}
	m := pl.p.applicable(task, pl.world)
	if m == nil {
		return
	}
	for _, sub := range m.Subtasks {
		pl.expand(sub, m.ID, depth+1)
		if pl.full() {
			return
		}
	}
}

// applicable returns the first method for taskID whose precondition passes.
func (p *Planner) applicable(taskID string, world map[string]any) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if m.Precondition == "" {
			return m
		}
		if val, _ := p.caller.CallHook(p.vmName, m.Precondition, world); val == lua.LTrue {
			return m
		}
	}
	return nil
}
