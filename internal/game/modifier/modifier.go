// Package modifier models timed stat modifiers (buffs and debuffs) applied to
// combat units.
package modifier

import (
	"errors"
	"fmt"
)

// Kind names the stat a modifier adjusts.
type Kind string

const (
	KindAttack  Kind = "attack"
	KindDefense Kind = "defense"
	KindSpirit  Kind = "spirit"
	KindSpeed   Kind = "speed"
)

// Valid reports whether k is a known stat kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAttack, KindDefense, KindSpirit, KindSpeed:
		return true
	}
	return false
}

// Mode selects how Magnitude is applied to the base stat.
type Mode string

const (
	// ModeFlat adds Magnitude to the base stat.
	ModeFlat Mode = "flat"
	// ModePercent adds Magnitude percent of the base stat.
	ModePercent Mode = "percent"
)

// Template is the catalog form of a modifier, loaded from YAML as part of a
// skill or item effect.
type Template struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Kind      Kind   `yaml:"kind"`
	Mode      Mode   `yaml:"mode"`
	Magnitude int    `yaml:"magnitude"`
	Duration  int    `yaml:"duration"`
	// Unique templates refresh an existing instance with the same ID instead of stacking.
	Unique bool `yaml:"unique"`
}

// Validate checks the template invariants.
//
// Postcondition: Returns nil if the template can be instantiated, or an error
// naming every violation.
func (t Template) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if !t.Kind.Valid() {
		errs = append(errs, fmt.Errorf("kind %q is not one of attack, defense, spirit, speed", t.Kind))
	}
	if t.Mode != ModeFlat && t.Mode != ModePercent {
		errs = append(errs, fmt.Errorf("mode %q is not one of flat, percent", t.Mode))
	}
	if t.Magnitude == 0 {
		errs = append(errs, errors.New("magnitude must not be zero"))
	}
	if t.Duration < 1 {
		errs = append(errs, fmt.Errorf("duration must be >= 1, got %d", t.Duration))
	}
	if len(errs) > 0 {
		return fmt.Errorf("modifier %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

// Instantiate returns an active Modifier for the template, attributed to source.
func (t Template) Instantiate(source string) Modifier {
	return Modifier{
		ID:        t.ID,
		Name:      t.Name,
		Source:    source,
		Kind:      t.Kind,
		Mode:      t.Mode,
		Magnitude: t.Magnitude,
		Remaining: t.Duration,
		Unique:    t.Unique,
	}
}

// Modifier is one active stat modifier on a unit.
type Modifier struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Source    string `json:"source,omitempty"`
	Kind      Kind   `json:"kind"`
	Mode      Mode   `json:"mode"`
	Magnitude int    `json:"magnitude"`
	Remaining int    `json:"remaining"`
	Unique    bool   `json:"unique,omitempty"`
}

// IsBuff reports whether the modifier raises its stat.
func (m Modifier) IsBuff() bool { return m.Magnitude > 0 }

// Label returns the display name, falling back to the ID.
func (m Modifier) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
