// Package encounter provides the YAML-driven encounter generator and drop
// tables the battle engine consumes.
package encounter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/dice"
)

// Template defines a reusable enemy archetype loaded from YAML.
type Template struct {
	ID          string               `yaml:"id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	RankLabel   string               `yaml:"rank_label"`
	Kind        battle.EncounterKind `yaml:"kind"`
	// MinTier and MaxTier bound the player tiers the template is offered at.
	// MaxTier 0 means no upper bound.
	MinTier int `yaml:"min_tier"`
	MaxTier int `yaml:"max_tier"`
	// Weight is the relative pick weight among matching templates; 0 means 1.
	Weight int `yaml:"weight"`
	// HP is a dice expression such as "3d20+120" rolled once per encounter.
	HP      string   `yaml:"hp"`
	Mana    int      `yaml:"mana"`
	Attack  int      `yaml:"attack"`
	Defense int      `yaml:"defense"`
	Spirit  int      `yaml:"spirit"`
	Speed   int      `yaml:"speed"`
	Skills  []string `yaml:"skills"`
	Actions int      `yaml:"actions"`

	hp dice.Expression
}

// Validate checks that the template satisfies basic invariants and parses its
// HP expression.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, Kind is known, the
// tier range is sane, HP parses with a minimum of at least 1, and no stat is negative.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("encounter template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("encounter template %q: name must not be empty", t.ID)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("encounter template %q: kind %q is not one of normal, elite, boss", t.ID, t.Kind)
	}
	if t.MinTier < 1 {
		return fmt.Errorf("encounter template %q: min_tier must be >= 1", t.ID)
	}
	if t.MaxTier != 0 && t.MaxTier < t.MinTier {
		return fmt.Errorf("encounter template %q: max_tier (%d) must be >= min_tier (%d)", t.ID, t.MaxTier, t.MinTier)
	}
	if t.Weight < 0 {
		return fmt.Errorf("encounter template %q: weight must be >= 0", t.ID)
	}
	expr, err := dice.Parse(t.HP)
	if err != nil {
		return fmt.Errorf("encounter template %q: hp: %w", t.ID, err)
	}
	if expr.Min() < 1 {
		return fmt.Errorf("encounter template %q: hp %q can roll below 1", t.ID, t.HP)
	}
	if t.Mana < 0 || t.Attack < 0 || t.Defense < 0 || t.Spirit < 0 || t.Speed < 0 {
		return fmt.Errorf("encounter template %q: stats must not be negative", t.ID)
	}
	if t.Actions < 0 {
		return fmt.Errorf("encounter template %q: actions must be >= 0", t.ID)
	}
	t.hp = expr
	return nil
}

// Offered reports whether the template is available to a player at tier.
func (t *Template) Offered(kind battle.EncounterKind, tier int) bool {
	if t.Kind != kind || tier < t.MinTier {
		return false
	}
	return t.MaxTier == 0 || tier <= t.MaxTier
}

func (t *Template) weight() int {
	if t.Weight == 0 {
		return 1
	}
	return t.Weight
}

// LoadTemplateFromBytes parses a single encounter template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or
// validate failure. Duplicate ids are rejected.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading encounter dir %q: %w", dir, err)
	}

	var templates []*Template
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		if prev, ok := seen[tmpl.ID]; ok {
			return nil, fmt.Errorf("loading %q: template id %q already defined in %q", path, tmpl.ID, prev)
		}
		seen[tmpl.ID] = path
		templates = append(templates, tmpl)
	}
	return templates, nil
}
