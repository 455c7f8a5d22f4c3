package battle

import "fmt"

// ActionKind names an Action variant.
type ActionKind string

const (
	ActionAttack         ActionKind = "attack"
	ActionSkill          ActionKind = "skill"
	ActionItem           ActionKind = "item"
	ActionDefend         ActionKind = "defend"
	ActionFlee           ActionKind = "flee"
	ActionCompanionSkill ActionKind = "companion_skill"
)

// Action is the closed set of moves a side may take.
// The concrete type is one of Attack, UseSkill, UseItem, Defend, Flee, or CompanionSkill.
type Action interface {
	Kind() ActionKind
	isAction()
}

// Attack is the basic physical attack.
type Attack struct{}

// UseSkill casts a skill from the actor's skill list.
type UseSkill struct{ SkillID string }

// UseItem consumes one consumable from the working inventory.
type UseItem struct{ ItemID string }

// Defend raises defense until the end of the opponent's next turn.
type Defend struct{}

// Flee attempts to escape the battle.
type Flee struct{}

// CompanionSkill commands the player's companion to use one of its skills.
type CompanionSkill struct{ SkillID string }

func (Attack) Kind() ActionKind         { return ActionAttack }
func (UseSkill) Kind() ActionKind       { return ActionSkill }
func (UseItem) Kind() ActionKind        { return ActionItem }
func (Defend) Kind() ActionKind         { return ActionDefend }
func (Flee) Kind() ActionKind           { return ActionFlee }
func (CompanionSkill) Kind() ActionKind { return ActionCompanionSkill }

func (Attack) isAction()         {}
func (UseSkill) isAction()       {}
func (UseItem) isAction()        {}
func (Defend) isAction()         {}
func (Flee) isAction()           {}
func (CompanionSkill) isAction() {}

// ParseAction builds an Action from its kind name and optional skill or item id.
//
// Postcondition: Returns an Action whose Kind() == kind, or an error for an
// unknown kind or a missing id.
func ParseAction(kind, id string) (Action, error) {
	needID := func(a Action) (Action, error) {
		if id == "" {
			return nil, fmt.Errorf("action %q requires an id", kind)
		}
		return a, nil
	}
	switch ActionKind(kind) {
	case ActionAttack:
		return Attack{}, nil
	case ActionDefend:
		return Defend{}, nil
	case ActionFlee:
		return Flee{}, nil
	case ActionSkill:
		return needID(UseSkill{SkillID: id})
	case ActionItem:
		return needID(UseItem{ItemID: id})
	case ActionCompanionSkill:
		return needID(CompanionSkill{SkillID: id})
	default:
		return nil, fmt.Errorf("unknown action %q", kind)
	}
}

// ActionID returns the skill or item id carried by a, or "".
func ActionID(a Action) string {
	switch v := a.(type) {
	case UseSkill:
		return v.SkillID
	case UseItem:
		return v.ItemID
	case CompanionSkill:
		return v.SkillID
	}
	return ""
}
