package ai

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ScriptLoader is a ScriptCaller that can also load a directory of scripts
// into a named VM. *scripting.Manager satisfies it.
type ScriptLoader interface {
	ScriptCaller
	LoadDir(name, dir string) error
}

// Registry indexes Planners by domain ID.
//
// Invariant: each domain ID is registered at most once.
type Registry struct {
	planners map[string]*Planner
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{planners: make(map[string]*Planner)}
}

// Register creates and stores a Planner for domain whose preconditions run in
// the VM vmName.
//
// Precondition: domain and caller must not be nil.
// Postcondition: returns error on domain ID collision.
func (r *Registry) Register(domain *Domain, caller ScriptCaller, vmName string) error {
	if _, exists := r.planners[domain.ID]; exists {
		return fmt.Errorf("ai.Registry: domain %q already registered", domain.ID)
	}
	r.planners[domain.ID] = NewPlanner(domain, caller, vmName)
	return nil
}

// PlannerFor returns the Planner for domainID, or false if not registered.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	p, ok := r.planners[domainID]
	return p, ok
}

// DomainIDs returns the registered domain IDs in sorted order.
func (r *Registry) DomainIDs() []string {
	out := make([]string, 0, len(r.planners))
	for id := range r.planners {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadRegistry loads every domain in dir and registers a planner for each. The
// Lua preconditions for domain "x" live in dir/x/*.lua and are loaded into a
// VM named "x"; a domain without a script directory may only use
// unconditional methods.
//
// Precondition: dir must be a readable directory; loader must not be nil.
// Postcondition: returns error if any domain fails to load or validate, or
// if a method names a precondition while its script directory is missing.
func LoadRegistry(dir string, loader ScriptLoader) (*Registry, error) {
	domains, err := LoadDomains(dir)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, d := range domains {
		scripts := filepath.Join(dir, d.ID)
		info, statErr := os.Stat(scripts)
		switch {
		case statErr == nil && info.IsDir():
			if err := loader.LoadDir(d.ID, scripts); err != nil {
				return nil, fmt.Errorf("ai.LoadRegistry: domain %q: %w", d.ID, err)
			}
		case needsScripts(d):
			return nil, fmt.Errorf("ai.LoadRegistry: domain %q has preconditions but no script dir %q", d.ID, scripts)
		}
		if err := r.Register(d, loader, d.ID); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func needsScripts(d *Domain) bool {
	for _, m := range d.Methods {
		if m.Precondition != "" {
			return true
		}
	}
	return false
}
