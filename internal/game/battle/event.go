package battle

// EventKind classifies a history entry.
type EventKind string

const (
	EventEncounter         EventKind = "encounter"
	EventDamage            EventKind = "damage"
	EventSkillUsed         EventKind = "skill_used"
	EventItemUsed          EventKind = "item_used"
	EventHeal              EventKind = "heal"
	EventManaRestored      EventKind = "mana_restored"
	EventModifierApplied   EventKind = "modifier_applied"
	EventModifierExpired   EventKind = "modifier_expired"
	EventDefend            EventKind = "defend"
	EventFleeFailed        EventKind = "flee_failed"
	EventFled              EventKind = "fled"
	EventRoundStarted      EventKind = "round_started"
	EventDeadlockRecovered EventKind = "deadlock_recovered"
	EventBattleEnded       EventKind = "battle_ended"
)

// Event is one entry of the battle history, suitable for narrative display.
type Event struct {
	Seq        int        `json:"seq"`
	Round      int        `json:"round"`
	Kind       EventKind  `json:"kind"`
	Actor      Side       `json:"actor,omitempty"`
	ActorName  string     `json:"actor_name,omitempty"`
	Action     ActionKind `json:"action,omitempty"`
	Target     Side       `json:"target,omitempty"`
	TargetName string     `json:"target_name,omitempty"`
	// Amount is the numeric delta: damage dealt, HP or mana restored, mana spent,
	// or modifier magnitude.
	Amount int `json:"amount,omitempty"`
	// TargetHP is the target's HP after the event, for damage and heal events.
	TargetHP   int    `json:"target_hp,omitempty"`
	Crit       bool   `json:"crit,omitempty"`
	SkillID    string `json:"skill_id,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	ModifierID string `json:"modifier_id,omitempty"`
	Text       string `json:"text"`
}
