package battle

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/idlequest/internal/game/modifier"
)

// Unit is one side's combatant inside a battle.
//
// Invariant: 0 <= HP <= MaxHP and 0 <= Mana <= MaxMana.
// Invariant: Cooldowns holds only entries > 0; an absent skill is ready.
type Unit struct {
	Side      Side           `json:"side"`
	Name      string         `json:"name"`
	RankLabel string         `json:"rank_label,omitempty"`
	HP        int            `json:"hp"`
	MaxHP     int            `json:"max_hp"`
	Mana      int            `json:"mana"`
	MaxMana   int            `json:"max_mana"`
	Attack    int            `json:"attack"`
	Defense   int            `json:"defense"`
	Spirit    int            `json:"spirit"`
	Speed     int            `json:"speed"`
	Skills    []string       `json:"skills"`
	Cooldowns map[string]int `json:"cooldowns"`
	Modifiers modifier.Set   `json:"modifiers,omitempty"`
}

// Effective returns the stat of the given kind after modifiers.
func (u *Unit) Effective(kind modifier.Kind) int {
	switch kind {
	case modifier.KindAttack:
		return u.Modifiers.Effective(kind, u.Attack)
	case modifier.KindDefense:
		return u.Modifiers.Effective(kind, u.Defense)
	case modifier.KindSpirit:
		return u.Modifiers.Effective(kind, u.Spirit)
	case modifier.KindSpeed:
		return u.Modifiers.Effective(kind, u.Speed)
	}
	return 0
}

// Buffs returns the unit's positive modifiers.
func (u *Unit) Buffs() []modifier.Modifier { return u.Modifiers.Buffs() }

// Debuffs returns the unit's negative modifiers.
func (u *Unit) Debuffs() []modifier.Modifier { return u.Modifiers.Debuffs() }

// Alive reports whether the unit can still act.
func (u *Unit) Alive() bool { return u.HP > 0 }

// HasSkill reports whether id is in the unit's skill list.
func (u *Unit) HasSkill(id string) bool {
	for _, s := range u.Skills {
		if s == id {
			return true
		}
	}
	return false
}

// applyDamage reduces HP by dmg, floored at 0, and returns the HP actually lost.
func (u *Unit) applyDamage(dmg int) int {
	if dmg < 0 {
		dmg = 0
	}
	if dmg > u.HP {
		dmg = u.HP
	}
	u.HP -= dmg
	return dmg
}

// heal raises HP by n, capped at MaxHP, and returns the HP actually restored.
func (u *Unit) heal(n int) int {
	if n < 0 {
		n = 0
	}
	if u.HP+n > u.MaxHP {
		n = u.MaxHP - u.HP
	}
	u.HP += n
	return n
}

// restoreMana raises Mana by n, capped at MaxMana, and returns the mana actually restored.
func (u *Unit) restoreMana(n int) int {
	if n < 0 {
		n = 0
	}
	if u.Mana+n > u.MaxMana {
		n = u.MaxMana - u.Mana
	}
	u.Mana += n
	return n
}

func (u *Unit) clone() *Unit {
	if u == nil {
		return nil
	}
	c := *u
	c.Skills = slices.Clone(u.Skills)
	c.Cooldowns = cloneCounts(u.Cooldowns)
	c.Modifiers = u.Modifiers.Clone()
	return &c
}

// Companion is the player's active pet. It acts only when the player spends an
// action on a CompanionSkill.
type Companion struct {
	Name   string   `json:"name"`
	Attack int      `json:"attack"`
	Spirit int      `json:"spirit"`
	Skills []string `json:"skills"`
}

// HasSkill reports whether id is one of the companion's skills.
func (c *Companion) HasSkill(id string) bool {
	for _, s := range c.Skills {
		if s == id {
			return true
		}
	}
	return false
}

// InventoryItem is a consumable stack in the battle's working inventory.
type InventoryItem struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// CompanionProfile is the persistent companion data supplied at initialization.
type CompanionProfile struct {
	Name   string   `json:"name"`
	Attack int      `json:"attack"`
	Spirit int      `json:"spirit"`
	Skills []string `json:"skills"`
	// Cooldowns carries cooldowns persisted from a previous battle.
	Cooldowns map[string]int `json:"cooldowns,omitempty"`
}

// PlayerProfile is the persistent player snapshot a battle starts from.
type PlayerProfile struct {
	Name           string            `json:"name"`
	RankLabel      string            `json:"rank_label,omitempty"`
	Tier           int               `json:"tier"`
	HP             int               `json:"hp"`
	MaxHP          int               `json:"max_hp"`
	Mana           int               `json:"mana"`
	MaxMana        int               `json:"max_mana"`
	Attack         int               `json:"attack"`
	Defense        int               `json:"defense"`
	Spirit         int               `json:"spirit"`
	Speed          int               `json:"speed"`
	EquippedSkills []string          `json:"equipped_skills"`
	GearSkills     []string          `json:"gear_skills,omitempty"`
	Inventory      []InventoryItem   `json:"inventory,omitempty"`
	Companion      *CompanionProfile `json:"companion,omitempty"`
}

// Power returns the snapshot the encounter generator scales enemies against.
func (p PlayerProfile) Power() PowerSnapshot {
	return PowerSnapshot{
		Tier:    p.Tier,
		MaxHP:   p.MaxHP,
		Attack:  p.Attack,
		Defense: p.Defense,
		Spirit:  p.Spirit,
		Speed:   p.Speed,
	}
}

// Validate checks the profile can start a battle.
func (p PlayerProfile) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("player name must not be empty")
	case p.MaxHP < 1:
		return fmt.Errorf("player max_hp must be >= 1, got %d", p.MaxHP)
	case p.HP < 1:
		return fmt.Errorf("player hp must be >= 1, got %d", p.HP)
	case p.HP > p.MaxHP:
		return fmt.Errorf("player hp %d exceeds max_hp %d", p.HP, p.MaxHP)
	case p.MaxMana < 0 || p.Mana < 0:
		return fmt.Errorf("player mana must not be negative")
	case p.Mana > p.MaxMana:
		return fmt.Errorf("player mana %d exceeds max_mana %d", p.Mana, p.MaxMana)
	case p.Attack < 0 || p.Defense < 0 || p.Spirit < 0 || p.Speed < 0:
		return fmt.Errorf("player stats must not be negative")
	}
	return nil
}

// PowerSnapshot is the player power summary handed to the encounter generator.
type PowerSnapshot struct {
	Tier    int
	MaxHP   int
	Attack  int
	Defense int
	Spirit  int
	Speed   int
}

// EnemyDescriptor is the encounter generator's output.
type EnemyDescriptor struct {
	Name      string   `json:"name"`
	RankLabel string   `json:"rank_label,omitempty"`
	HP        int      `json:"hp"`
	Mana      int      `json:"mana"`
	Attack    int      `json:"attack"`
	Defense   int      `json:"defense"`
	Spirit    int      `json:"spirit"`
	Speed     int      `json:"speed"`
	Skills    []string `json:"skills,omitempty"`
	// Actions is the enemy's actions per turn; values below 1 mean 1.
	Actions int `json:"actions,omitempty"`
}

// Validate checks the descriptor describes a usable enemy.
func (d EnemyDescriptor) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("enemy name must not be empty")
	case d.HP < 1:
		return fmt.Errorf("enemy hp must be >= 1, got %d", d.HP)
	case d.Mana < 0 || d.Attack < 0 || d.Defense < 0 || d.Spirit < 0 || d.Speed < 0:
		return fmt.Errorf("enemy %q has negative stats", d.Name)
	}
	return nil
}

// EncounterGenerator produces the enemy for a battle. Implementations must be
// deterministic given the random source.
type EncounterGenerator interface {
	Generate(power PowerSnapshot, req EncounterRequest, src Source) (EnemyDescriptor, error)
}
