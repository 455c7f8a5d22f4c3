// Package catalog holds the static skill and consumable item definitions the
// battle engine resolves actions against.
package catalog

import (
	"errors"
	"fmt"
)

// Category classifies a skill.
type Category string

const (
	CategoryAttack  Category = "attack"
	CategoryDefense Category = "defense"
	CategoryBuff    Category = "buff"
	CategorySupport Category = "support"
)

// Target selects who a skill's effects resolve against.
type Target string

const (
	TargetSelf  Target = "self"
	TargetEnemy Target = "enemy"
)

// Cost is the resource price of a skill.
type Cost struct {
	Mana int `yaml:"mana"`
}

// Skill is an immutable catalog entry.
type Skill struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Cost        Cost
	Cooldown    int
	Target      Target
	Effects     []Effect
}

// Damage returns the skill's first damage effect.
func (s *Skill) Damage() (Damage, bool) {
	for _, e := range s.Effects {
		if d, ok := e.(Damage); ok {
			return d, true
		}
	}
	return Damage{}, false
}

// Validate checks that the skill does something and is internally consistent.
//
// Postcondition: returns nil iff the skill can be resolved by the engine.
func (s *Skill) Validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	switch s.Category {
	case CategoryAttack, CategoryDefense, CategoryBuff, CategorySupport:
	default:
		errs = append(errs, fmt.Errorf("category %q is not one of attack, defense, buff, support", s.Category))
	}
	if s.Target != TargetSelf && s.Target != TargetEnemy {
		errs = append(errs, fmt.Errorf("target %q is not one of self, enemy", s.Target))
	}
	if s.Cost.Mana < 0 {
		errs = append(errs, fmt.Errorf("cost.mana must be >= 0, got %d", s.Cost.Mana))
	}
	if s.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown must be >= 0, got %d", s.Cooldown))
	}
	if len(s.Effects) == 0 {
		errs = append(errs, errors.New("skill has no effects"))
	}
	for i, e := range s.Effects {
		if _, ok := e.(Damage); ok {
			if s.Category != CategoryAttack {
				errs = append(errs, fmt.Errorf("effect %d: damage is only allowed on attack skills", i))
			}
			if s.Target != TargetEnemy {
				errs = append(errs, fmt.Errorf("effect %d: damage must target the enemy", i))
			}
		}
		if err := validateEffect(e); err != nil {
			errs = append(errs, fmt.Errorf("effect %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("skill %q: %w", s.ID, errors.Join(errs...))
	}
	return nil
}

// Item is a consumable catalog entry.
type Item struct {
	ID          string
	Name        string
	Description string
	// Cooldown is the item-type reuse cooldown in rounds.
	Cooldown int
	Effects  []Effect
}

// Validate checks that the item has at least one consumable effect and no damage.
func (it *Item) Validate() error {
	var errs []error
	if it.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if it.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown must be >= 0, got %d", it.Cooldown))
	}
	if len(it.Effects) == 0 {
		errs = append(errs, errors.New("item has no consumable effect"))
	}
	for i, e := range it.Effects {
		if _, ok := e.(Damage); ok {
			errs = append(errs, fmt.Errorf("effect %d: items cannot deal damage", i))
			continue
		}
		if err := validateEffect(e); err != nil {
			errs = append(errs, fmt.Errorf("effect %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("item %q: %w", it.ID, errors.Join(errs...))
	}
	return nil
}
