package ai

import (
	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/modifier"
)

// UnitView captures one combatant's planning-relevant state.
type UnitView struct {
	Name    string
	HP      int
	MaxHP   int
	Mana    int
	MaxMana int
	Attack  int
	Defense int
	Spirit  int
	Speed   int
	// ReadySkills lists skills off cooldown and affordable, in skill-list order.
	ReadySkills []string
	Buffs       int
	Debuffs     int
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP == 0.
func (u *UnitView) HPPercent() float64 {
	if u.MaxHP <= 0 {
		return 0
	}
	return float64(u.HP) / float64(u.MaxHP) * 100
}

// ManaPercent returns current mana as a percentage of MaxMana; 0 if MaxMana == 0.
func (u *UnitView) ManaPercent() float64 {
	if u.MaxMana <= 0 {
		return 0
	}
	return float64(u.Mana) / float64(u.MaxMana) * 100
}

// CanUse reports whether skillID is in ReadySkills.
func (u *UnitView) CanUse(skillID string) bool {
	for _, id := range u.ReadySkills {
		if id == skillID {
			return true
		}
	}
	return false
}

// WorldState is the snapshot passed to the HTN planner for the acting enemy.
//
// Invariant: Self and Opponent must not be nil.
type WorldState struct {
	Round            int
	Kind             string
	RiskTier         int
	ActionsRemaining int
	Self             *UnitView
	Opponent         *UnitView
}

// BuildWorldState constructs a WorldState from s with the enemy as Self.
//
// Precondition: s, s.Player, s.Enemy, and cat must not be nil.
// Postcondition: s is not modified.
func BuildWorldState(s *battle.State, cat battle.Catalog) *WorldState {
	return &WorldState{
		Round:            s.Round,
		Kind:             string(s.Encounter.Kind),
		RiskTier:         s.Encounter.RiskTier,
		ActionsRemaining: s.EnemyActionsRemaining,
		Self:             viewOf(s.Enemy, cat),
		Opponent:         viewOf(s.Player, cat),
	}
}

func viewOf(u *battle.Unit, cat battle.Catalog) *UnitView {
	v := &UnitView{
		Name:    u.Name,
		HP:      u.HP,
		MaxHP:   u.MaxHP,
		Mana:    u.Mana,
		MaxMana: u.MaxMana,
		Attack:  u.Effective(modifier.KindAttack),
		Defense: u.Effective(modifier.KindDefense),
		Spirit:  u.Effective(modifier.KindSpirit),
		Speed:   u.Effective(modifier.KindSpeed),
		Buffs:   len(u.Buffs()),
		Debuffs: len(u.Debuffs()),
	}
	for _, id := range u.Skills {
		if u.Cooldowns[id] > 0 {
			continue
		}
		sk, ok := cat.Skill(id)
		if !ok || sk.Cost.Mana > u.Mana {
			continue
		}
		v.ReadySkills = append(v.ReadySkills, id)
	}
	return v
}

// ToMap flattens ws into the table handed to Lua preconditions.
//
// Postcondition: every value is a type accepted by scripting.ToLua.
func (ws *WorldState) ToMap() map[string]any {
	return map[string]any{
		"round":             ws.Round,
		"kind":              ws.Kind,
		"risk_tier":         ws.RiskTier,
		"actions_remaining": ws.ActionsRemaining,
		"self":              ws.Self.toMap(),
		"opponent":          ws.Opponent.toMap(),
	}
}

func (u *UnitView) toMap() map[string]any {
	ready := u.ReadySkills
	if ready == nil {
		ready = []string{}
	}
	return map[string]any{
		"name":         u.Name,
		"hp":           u.HP,
		"max_hp":       u.MaxHP,
		"hp_pct":       u.HPPercent(),
		"mana":         u.Mana,
		"max_mana":     u.MaxMana,
		"mana_pct":     u.ManaPercent(),
		"attack":       u.Attack,
		"defense":      u.Defense,
		"spirit":       u.Spirit,
		"speed":        u.Speed,
		"ready_skills": ready,
		"buffs":        u.Buffs,
		"debuffs":      u.Debuffs,
	}
}
