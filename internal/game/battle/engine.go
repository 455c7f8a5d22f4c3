package battle

import (
	"fmt"
)

// Engine resolves battles against a fixed catalog, tuning, and enemy policy.
// It holds no per-battle state and is safe for concurrent use.
type Engine struct {
	catalog Catalog
	tuning  Tuning
	policy  Policy
}

// NewEngine creates an Engine. A nil policy selects GreedyPolicy.
//
// Precondition: cat must be non-nil.
func NewEngine(cat Catalog, tuning Tuning, policy Policy) *Engine {
	if policy == nil {
		policy = GreedyPolicy{Tuning: tuning}
	}
	return &Engine{catalog: cat, tuning: tuning, policy: policy}
}

// Tuning returns the engine's formula constants.
func (e *Engine) Tuning() Tuning { return e.tuning }

// Catalog returns the engine's skill and item catalog.
func (e *Engine) Catalog() Catalog { return e.catalog }

// Initialize builds the opening State for profile against an enemy produced by gen.
// The player's equipped and gear skills are merged, deduplicated, and filtered
// to catalog entries; only catalog consumables are copied into the working inventory.
//
// Precondition: profile.Validate() == nil.
// Postcondition: Round == 1 and Turn == FirstActor; the faster unit acts first
// and ties go to the player. Returns an error matching ErrGenerationFailure when
// gen fails or yields an unusable enemy.
func (e *Engine) Initialize(profile PlayerProfile, req EncounterRequest, gen EncounterGenerator, src Source) (*State, error) {
	if err := profile.Validate(); err != nil {
		return nil, &Error{Kind: ErrInvalidActionForState, Detail: "invalid player profile", Err: err}
	}
	req = req.Normalized()

	desc, err := gen.Generate(profile.Power(), req, src)
	if err != nil {
		return nil, &Error{Kind: ErrGenerationFailure, Err: err}
	}
	if err := desc.Validate(); err != nil {
		return nil, &Error{Kind: ErrGenerationFailure, Err: err}
	}
	for _, id := range desc.Skills {
		if _, ok := e.catalog.Skill(id); !ok {
			return nil, &Error{Kind: ErrGenerationFailure, ID: id, Detail: "enemy skill not in catalog"}
		}
	}

	player := &Unit{
		Side:      SidePlayer,
		Name:      profile.Name,
		RankLabel: profile.RankLabel,
		HP:        profile.HP,
		MaxHP:     profile.MaxHP,
		Mana:      profile.Mana,
		MaxMana:   profile.MaxMana,
		Attack:    profile.Attack,
		Defense:   profile.Defense,
		Spirit:    profile.Spirit,
		Speed:     profile.Speed,
		Skills:    e.knownSkills(profile.EquippedSkills, profile.GearSkills),
		Cooldowns: map[string]int{},
	}
	enemy := &Unit{
		Side:      SideEnemy,
		Name:      desc.Name,
		RankLabel: desc.RankLabel,
		HP:        desc.HP,
		MaxHP:     desc.HP,
		Mana:      desc.Mana,
		MaxMana:   desc.Mana,
		Attack:    desc.Attack,
		Defense:   desc.Defense,
		Spirit:    desc.Spirit,
		Speed:     desc.Speed,
		Skills:    e.knownSkills(desc.Skills),
		Cooldowns: map[string]int{},
	}

	s := &State{
		Round:             1,
		Encounter:         req,
		Player:            player,
		Enemy:             enemy,
		Inventory:         e.consumables(profile.Inventory),
		ItemCooldowns:     map[string]int{},
		PetSkillCooldowns: map[string]int{},
		PlayerMaxActions:  e.tuning.PlayerMaxActions(player.Speed, enemy.Speed),
		EnemyMaxActions:   max(desc.Actions, 1),
		Outcome:           OutcomeOngoing,
		History:           []Event{},
	}
	if cp := profile.Companion; cp != nil {
		s.Companion = &Companion{
			Name:   cp.Name,
			Attack: cp.Attack,
			Spirit: cp.Spirit,
			Skills: e.knownSkills(cp.Skills),
		}
		s.PetSkillCooldowns = cloneCounts(cp.Cooldowns)
	}

	s.FirstActor = SidePlayer
	if enemy.Speed > player.Speed {
		s.FirstActor = SideEnemy
	}
	s.Turn = s.FirstActor
	if s.FirstActor == SidePlayer {
		s.PlayerActionsRemaining = s.PlayerMaxActions
		s.WaitingForPlayerAction = true
	} else {
		s.EnemyActionsRemaining = s.EnemyMaxActions
	}

	s.record(Event{
		Kind:       EventEncounter,
		Actor:      SideEnemy,
		ActorName:  enemy.Name,
		Target:     SidePlayer,
		TargetName: player.Name,
		Text:       fmt.Sprintf("%s confronts %s. %s moves first.", enemy.Name, player.Name, s.Unit(s.FirstActor).Name),
	})
	return s, nil
}

// knownSkills merges the id lists, dropping duplicates and ids missing from the catalog.
func (e *Engine) knownSkills(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, list := range lists {
		for _, id := range list {
			if seen[id] {
				continue
			}
			if _, ok := e.catalog.Skill(id); !ok {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// consumables copies catalog consumables with positive quantity, merging repeated ids.
func (e *Engine) consumables(items []InventoryItem) []InventoryItem {
	out := []InventoryItem{}
	index := make(map[string]int)
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if _, ok := e.catalog.Item(it.ItemID); !ok {
			continue
		}
		if i, ok := index[it.ItemID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ItemID] = len(out)
		out = append(out, it)
	}
	return out
}
