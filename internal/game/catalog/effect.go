package catalog

import (
	"fmt"

	"github.com/cory-johannsen/idlequest/internal/game/modifier"
)

// DamageKind selects the attacking stat and the mitigating stat of a damage effect.
type DamageKind string

const (
	// Physical damage scales with attack and is mitigated by defense.
	Physical DamageKind = "physical"
	// Magical damage scales with spirit and is mitigated by the target's spirit.
	Magical DamageKind = "magical"
)

// Effect is one entry of a skill's or item's ordered effect list.
// The concrete type is one of Damage, ApplyModifier, Heal, or RestoreMana.
type Effect interface {
	effectType() string
}

// Damage deals base + multiplier*stat damage to the enemy.
type Damage struct {
	Base           int
	Multiplier     float64
	Kind           DamageKind
	CritChance     float64
	CritMultiplier float64
}

// ApplyModifier applies the modifier template to the resolved target.
type ApplyModifier struct {
	Modifier modifier.Template
}

// Heal restores Amount plus Percent of max HP to the resolved target.
type Heal struct {
	Amount  int
	Percent int
}

// RestoreMana restores Amount mana to the resolved target.
type RestoreMana struct {
	Amount int
}

func (Damage) effectType() string        { return "damage" }
func (ApplyModifier) effectType() string { return "modifier" }
func (Heal) effectType() string          { return "heal" }
func (RestoreMana) effectType() string   { return "restore_mana" }

// effectSpec is the YAML form of an Effect. Type selects which fields apply.
type effectSpec struct {
	Type           string             `yaml:"type"`
	Base           int                `yaml:"base"`
	Multiplier     float64            `yaml:"multiplier"`
	DamageKind     DamageKind         `yaml:"damage_kind"`
	CritChance     float64            `yaml:"crit_chance"`
	CritMultiplier float64            `yaml:"crit_multiplier"`
	Modifier       *modifier.Template `yaml:"modifier"`
	Amount         int                `yaml:"amount"`
	Percent        int                `yaml:"percent"`
}

func (s effectSpec) toEffect() (Effect, error) {
	switch s.Type {
	case "damage":
		kind := s.DamageKind
		if kind == "" {
			kind = Physical
		}
		critMult := s.CritMultiplier
		if critMult == 0 {
			critMult = 1
		}
		return Damage{Base: s.Base, Multiplier: s.Multiplier, Kind: kind, CritChance: s.CritChance, CritMultiplier: critMult}, nil
	case "modifier":
		if s.Modifier == nil {
			return nil, fmt.Errorf("modifier effect requires a modifier block")
		}
		return ApplyModifier{Modifier: *s.Modifier}, nil
	case "heal":
		return Heal{Amount: s.Amount, Percent: s.Percent}, nil
	case "restore_mana":
		return RestoreMana{Amount: s.Amount}, nil
	default:
		return nil, fmt.Errorf("unknown effect type %q", s.Type)
	}
}

func validateEffect(e Effect) error {
	switch v := e.(type) {
	case Damage:
		if v.Kind != Physical && v.Kind != Magical {
			return fmt.Errorf("damage_kind %q is not one of physical, magical", v.Kind)
		}
		if v.Base < 0 || v.Multiplier < 0 {
			return fmt.Errorf("damage base and multiplier must be >= 0")
		}
		if v.Base == 0 && v.Multiplier == 0 {
			return fmt.Errorf("damage effect has zero base and multiplier")
		}
		if v.CritChance < 0 || v.CritChance > 1 {
			return fmt.Errorf("crit_chance must be in [0, 1], got %v", v.CritChance)
		}
		if v.CritMultiplier < 1 {
			return fmt.Errorf("crit_multiplier must be >= 1, got %v", v.CritMultiplier)
		}
	case ApplyModifier:
		return v.Modifier.Validate()
	case Heal:
		if v.Amount < 0 || v.Percent < 0 || v.Amount+v.Percent == 0 {
			return fmt.Errorf("heal effect must restore a positive amount")
		}
	case RestoreMana:
		if v.Amount <= 0 {
			return fmt.Errorf("restore_mana amount must be > 0")
		}
	}
	return nil
}
