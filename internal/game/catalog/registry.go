package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Registry holds all loaded skills and consumable items indexed by ID.
// It is read-only after loading and safe for concurrent lookups.
type Registry struct {
	skills map[string]*Skill
	items  map[string]*Item
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		skills: make(map[string]*Skill),
		items:  make(map[string]*Item),
	}
}

// RegisterSkill validates s and adds it to the registry.
//
// Postcondition: Skill(s.ID) returns s; returns error if invalid or already registered.
func (r *Registry) RegisterSkill(s *Skill) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := r.skills[s.ID]; exists {
		return fmt.Errorf("catalog: skill ID %q already registered", s.ID)
	}
	r.skills[s.ID] = s
	return nil
}

// RegisterItem validates it and adds it to the registry.
func (r *Registry) RegisterItem(it *Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	if _, exists := r.items[it.ID]; exists {
		return fmt.Errorf("catalog: item ID %q already registered", it.ID)
	}
	r.items[it.ID] = it
	return nil
}

// Skill returns the skill for id and whether it was found.
func (r *Registry) Skill(id string) (*Skill, bool) {
	s, ok := r.skills[id]
	return s, ok
}

// Item returns the consumable item for id and whether it was found.
func (r *Registry) Item(id string) (*Item, bool) {
	it, ok := r.items[id]
	return it, ok
}

// Skills returns every skill sorted by ID.
func (r *Registry) Skills() []*Skill {
	out := make([]*Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Items returns every item sorted by ID.
func (r *Registry) Items() []*Item {
	out := make([]*Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type skillSpec struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Category    Category     `yaml:"category"`
	Cost        Cost         `yaml:"cost"`
	Cooldown    int          `yaml:"cooldown"`
	Target      Target       `yaml:"target"`
	Effects     []effectSpec `yaml:"effects"`
}

type itemSpec struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Cooldown    int          `yaml:"cooldown"`
	Effects     []effectSpec `yaml:"effects"`
}

type catalogFile struct {
	Skills []skillSpec `yaml:"skills"`
	Items  []itemSpec  `yaml:"items"`
}

func convertEffects(specs []effectSpec) ([]Effect, error) {
	out := make([]Effect, 0, len(specs))
	for i, spec := range specs {
		e, err := spec.toEffect()
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// LoadBytes parses one catalog document and registers its skills and items into r.
//
// Postcondition: on error, entries registered before the failing entry remain registered.
func (r *Registry) LoadBytes(data []byte) error {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}
	for _, spec := range f.Skills {
		effects, err := convertEffects(spec.Effects)
		if err != nil {
			return fmt.Errorf("skill %q: %w", spec.ID, err)
		}
		if err := r.RegisterSkill(&Skill{
			ID:          spec.ID,
			Name:        spec.Name,
			Description: spec.Description,
			Category:    spec.Category,
			Cost:        spec.Cost,
			Cooldown:    spec.Cooldown,
			Target:      spec.Target,
			Effects:     effects,
		}); err != nil {
			return err
		}
	}
	for _, spec := range f.Items {
		effects, err := convertEffects(spec.Effects)
		if err != nil {
			return fmt.Errorf("item %q: %w", spec.ID, err)
		}
		if err := r.RegisterItem(&Item{
			ID:          spec.ID,
			Name:        spec.Name,
			Description: spec.Description,
			Cooldown:    spec.Cooldown,
			Effects:     effects,
		}); err != nil {
			return err
		}
	}
	return nil
}

// LoadDirectory reads every *.yaml and *.yml file in dir in lexical order and
// returns a populated Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or the first parse/validation error.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		if err := reg.LoadBytes(data); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}
