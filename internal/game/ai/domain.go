// Package ai implements the Hierarchical Task Network (HTN) planner that drives
// scripted enemy behavior in battle.
//
// A domain decomposes the root task "behave" through ordered methods into
// operators. Method preconditions are Lua hooks evaluated against the acting
// enemy's world view; operators name battle actions.
package ai

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Task is an abstract goal that can be decomposed by methods.
type Task struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
}

// Method decomposes a task into an ordered list of subtasks or operator IDs.
// An empty Precondition always applies.
type Method struct {
	TaskID       string   `yaml:"task"`
	ID           string   `yaml:"id"`
	Precondition string   `yaml:"precondition"`
	Subtasks     []string `yaml:"subtasks"`
}

// Operator actions.
const (
	ActionAttack = "attack"
	ActionDefend = "defend"
	ActionSkill  = "skill"
)

// Operator is a primitive battle action. Skill is set iff Action is "skill".
type Operator struct {
	ID     string `yaml:"id"`
	Action string `yaml:"action"`
	Skill  string `yaml:"skill"`
}

// Domain is one enemy behavior loaded from YAML.
//
// Invariant: after Validate, IDs are unique per kind, every reference
// resolves, and no task can decompose back into itself.
type Domain struct {
	ID          string      `yaml:"id"`
	Description string      `yaml:"description"`
	Tasks       []*Task     `yaml:"tasks"`
	Methods     []*Method   `yaml:"methods"`
	Operators   []*Operator `yaml:"operators"`

	indexOnce sync.Once
	operators map[string]*Operator
	methods   map[string][]*Method
}

// Validate reports every violation in the domain, joined.
func (d *Domain) Validate() error {
	if d.ID == "" {
		return errors.New("ai.Domain: ID must not be empty")
	}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("ai.Domain %q: "+format, append([]any{d.ID}, args...)...))
	}

	taskIDs := make(map[string]bool, len(d.Tasks))
	for _, t := range d.Tasks {
		switch {
		case t.ID == "":
			fail("task has empty ID")
		case taskIDs[t.ID]:
			fail("duplicate task ID %q", t.ID)
		}
		taskIDs[t.ID] = true
	}
	if !taskIDs[RootTask] {
		fail("missing root task %q", RootTask)
	}

	opIDs := make(map[string]bool, len(d.Operators))
	for _, op := range d.Operators {
		if op.ID == "" {
			fail("operator has empty ID")
			continue
		}
		if opIDs[op.ID] {
			fail("duplicate operator ID %q", op.ID)
		}
		if taskIDs[op.ID] {
			fail("operator %q shadows a task", op.ID)
		}
		opIDs[op.ID] = true
		if err := op.validate(); err != nil {
			fail("operator %q: %v", op.ID, err)
		}
	}

	methodIDs := make(map[string]bool, len(d.Methods))
	for _, m := range d.Methods {
		if m.ID == "" || m.TaskID == "" {
			fail("method missing task or ID")
			continue
		}
		if methodIDs[m.ID] {
			fail("duplicate method ID %q", m.ID)
		}
		methodIDs[m.ID] = true
		if !taskIDs[m.TaskID] {
			fail("method %q: task %q is not declared", m.ID, m.TaskID)
		}
		if len(m.Subtasks) == 0 {
			fail("method %q: subtasks must not be empty", m.ID)
		}
		for _, sub := range m.Subtasks {
			if !taskIDs[sub] && !opIDs[sub] {
				fail("method %q: subtask %q is neither a task nor an operator", m.ID, sub)
			}
		}
	}

	if len(errs) == 0 {
		if cycle := d.findCycle(taskIDs); cycle != nil {
			fail("decomposition cycle %s", strings.Join(cycle, " -> "))
		}
	}
	return errors.Join(errs...)
}

func (op *Operator) validate() error {
	switch op.Action {
	case ActionAttack, ActionDefend:
		if op.Skill != "" {
			return fmt.Errorf("skill only allowed for action %q", ActionSkill)
		}
	case ActionSkill:
		if op.Skill == "" {
			return errors.New("skill must not be empty")
		}
	default:
		return fmt.Errorf("unknown action %q", op.Action)
	}
	return nil
}

// findCycle returns a task path that revisits its first task, or nil.
// Planning never changes the world view, so any such path loops forever.
func (d *Domain) findCycle(taskIDs map[string]bool) []string {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int, len(taskIDs))
	var path []string
	var visit func(task string) []string
	visit = func(task string) []string {
		state[task] = onPath
		path = append(path, task)
		for _, m := range d.MethodsForTask(task) {
			for _, sub := range m.Subtasks {
				if !taskIDs[sub] {
					continue
				}
				switch state[sub] {
				case onPath:
					for i, t := range path {
						if t == sub {
							return append(append([]string{}, path[i:]...), sub)
						}
					}
				case unvisited:
					if c := visit(sub); c != nil {
						return c
					}
				}
			}
		}
		path = path[:len(path)-1]
		state[task] = done
		return nil
	}

	ids := make([]string, 0, len(taskIDs))
	for id := range taskIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if state[id] == unvisited {
			if c := visit(id); c != nil {
				return c
			}
		}
	}
	return nil
}

func (d *Domain) index() {
	d.indexOnce.Do(func() {
		d.operators = make(map[string]*Operator, len(d.Operators))
		for _, op := range d.Operators {
			if _, dup := d.operators[op.ID]; !dup {
				d.operators[op.ID] = op
			}
		}
		d.methods = make(map[string][]*Method)
		for _, m := range d.Methods {
			d.methods[m.TaskID] = append(d.methods[m.TaskID], m)
		}
	})
}

// OperatorByID returns the operator with the given ID.
//
// The domain must not be modified after the first lookup.
func (d *Domain) OperatorByID(id string) (*Operator, bool) {
	d.index()
	op, ok := d.operators[id]
	return op, ok
}

// MethodsForTask returns the methods that decompose taskID, in declaration order.
func (d *Domain) MethodsForTask(taskID string) []*Method {
	d.index()
	return d.methods[taskID]
}

// SkillIDs returns the distinct skills referenced by skill operators, in
// declaration order.
func (d *Domain) SkillIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, op := range d.Operators {
		if op.Action == ActionSkill && !seen[op.Skill] {
			seen[op.Skill] = true
			out = append(out, op.Skill)
		}
	}
	return out
}

type domainFile struct {
	Domain *Domain `yaml:"domain"`
}

// LoadDomains parses and validates every *.yaml file in dir, in name order.
// A directory without domain files yields (nil, nil).
func LoadDomains(dir string) ([]*Domain, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadDomains: reading %q: %w", dir, err)
	}
	var domains []*Domain
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: reading %s: %w", e.Name(), err)
		}
		var f domainFile
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: parsing %s: %w", e.Name(), err)
		}
		if f.Domain == nil {
			return nil, fmt.Errorf("ai.LoadDomains: %s missing top-level 'domain' key", e.Name())
		}
		if err := f.Domain.Validate(); err != nil {
			return nil, fmt.Errorf("ai.LoadDomains: %s: %w", e.Name(), err)
		}
		domains = append(domains, f.Domain)
	}
	return domains, nil
}
