package battle

import "slices"

// State is a complete battle snapshot. Engine operations never mutate a State
// they are given; they return a new one.
//
// Invariant: exactly one side holds the turn; WaitingForPlayerAction implies
// Turn == SidePlayer, PlayerActionsRemaining > 0, and Outcome == OutcomeOngoing.
type State struct {
	Round     int              `json:"round"`
	Encounter EncounterRequest `json:"encounter"`
	Player    *Unit            `json:"player"`
	Enemy     *Unit            `json:"enemy"`
	Companion *Companion       `json:"companion,omitempty"`

	// FirstActor starts every round; the round advances when control returns to it.
	FirstActor             Side `json:"first_actor"`
	Turn                   Side `json:"turn"`
	WaitingForPlayerAction bool `json:"waiting_for_player_action"`
	PlayerActionsRemaining int  `json:"player_actions_remaining"`
	PlayerMaxActions       int  `json:"player_max_actions"`
	EnemyActionsRemaining  int  `json:"enemy_actions_remaining"`
	EnemyMaxActions        int  `json:"enemy_max_actions"`

	Inventory         []InventoryItem `json:"inventory"`
	ItemCooldowns     map[string]int  `json:"item_cooldowns"`
	PetSkillCooldowns map[string]int  `json:"pet_skill_cooldowns"`

	Outcome Outcome `json:"outcome"`
	History []Event `json:"history"`
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.Player = s.Player.clone()
	c.Enemy = s.Enemy.clone()
	if s.Companion != nil {
		comp := *s.Companion
		comp.Skills = slices.Clone(s.Companion.Skills)
		c.Companion = &comp
	}
	c.Inventory = slices.Clone(s.Inventory)
	c.ItemCooldowns = cloneCounts(s.ItemCooldowns)
	c.PetSkillCooldowns = cloneCounts(s.PetSkillCooldowns)
	c.History = slices.Clone(s.History)
	return &c
}

// Unit returns the unit for side.
func (s *State) Unit(side Side) *Unit {
	if side == SidePlayer {
		return s.Player
	}
	return s.Enemy
}

// ItemQuantity returns how many of itemID remain in the working inventory.
func (s *State) ItemQuantity(itemID string) int {
	for _, it := range s.Inventory {
		if it.ItemID == itemID {
			return it.Quantity
		}
	}
	return 0
}

// consumeItem removes one itemID from the inventory, dropping empty stacks.
func (s *State) consumeItem(itemID string) {
	for i := range s.Inventory {
		if s.Inventory[i].ItemID != itemID {
			continue
		}
		s.Inventory[i].Quantity--
		if s.Inventory[i].Quantity <= 0 {
			s.Inventory = append(s.Inventory[:i], s.Inventory[i+1:]...)
		}
		return
	}
}

// record stamps ev with the next sequence number and the current round and
// appends it to the history.
func (s *State) record(ev Event) {
	ev.Seq = len(s.History)
	ev.Round = s.Round
	s.History = append(s.History, ev)
}

// IsTerminal reports whether the battle has ended. A terminal state is stable:
// every further Resolve fails with ErrInvalidActionForState.
func IsTerminal(s *State) bool {
	return s.Outcome != OutcomeOngoing || !s.Player.Alive() || !s.Enemy.Alive()
}

// settle records the outcome once a unit has fallen.
func (s *State) settle() {
	if s.Outcome != OutcomeOngoing {
		s.WaitingForPlayerAction = false
		return
	}
	switch {
	case !s.Enemy.Alive():
		s.Outcome = OutcomeVictory
		s.record(Event{Kind: EventBattleEnded, Actor: SidePlayer, ActorName: s.Player.Name,
			Text: s.Enemy.Name + " is defeated."})
	case !s.Player.Alive():
		s.Outcome = OutcomeDefeat
		s.record(Event{Kind: EventBattleEnded, Actor: SideEnemy, ActorName: s.Enemy.Name,
			Text: s.Player.Name + " has fallen."})
	default:
		return
	}
	s.WaitingForPlayerAction = false
}

// tickCounts decrements every positive counter by one and drops those that
// reach zero. Skill, item, and companion cooldowns all decay through it.
func tickCounts(m map[string]int) {
	for id, n := range m {
		if n <= 1 {
			delete(m, id)
			continue
		}
		m[id] = n - 1
	}
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}
