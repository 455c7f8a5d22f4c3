package battle

import (
	"fmt"

	"github.com/cory-johannsen/idlequest/internal/game/catalog"
	"github.com/cory-johannsen/idlequest/internal/game/dice"
	"github.com/cory-johannsen/idlequest/internal/game/modifier"
)

// defendModifierID identifies the modifier granted by Defend.
const defendModifierID = "defend"

// Resolve applies one player action and returns the next state plus the events
// it produced. It does not hand the turn over; call AdvanceIfTurnExhausted (or
// use Step) afterwards.
//
// Precondition: it is the player's turn and the battle is not terminal.
// Postcondition: on error the returned state is s itself and no random draw
// was consumed. On success PlayerActionsRemaining is one lower and s is unchanged.
func (e *Engine) Resolve(s *State, a Action, src Source) (*State, []Event, error) {
	if err := e.checkPlayerTurn(s); err != nil {
		return s, nil, err
	}
	if err := e.validate(s, SidePlayer, a); err != nil {
		return s, nil, err
	}
	next := s.Clone()
	start := len(next.History)
	e.resolvePlayer(next, a, src)
	return next, copyEvents(next.History[start:]), nil
}

func (e *Engine) checkPlayerTurn(s *State) error {
	switch {
	case IsTerminal(s):
		return newError(ErrInvalidActionForState, "", "battle is over")
	case s.Turn != SidePlayer || !s.WaitingForPlayerAction:
		return newError(ErrInvalidActionForState, "", "not the player's turn")
	case s.PlayerActionsRemaining <= 0:
		return newError(ErrInvalidActionForState, "", "no actions remaining this turn")
	}
	return nil
}

// resolvePlayer applies a validated player action to s in place.
func (e *Engine) resolvePlayer(s *State, a Action, src Source) {
	e.apply(s, SidePlayer, a, src)
	s.PlayerActionsRemaining--
	s.settle()
	if s.Outcome == OutcomeOngoing {
		s.WaitingForPlayerAction = s.PlayerActionsRemaining > 0
	}
}

// validate checks a against s for side without touching s or drawing randomness.
func (e *Engine) validate(s *State, side Side, a Action) error {
	actor := s.Unit(side)
	switch v := a.(type) {
	case Attack, Defend:
		return nil
	case Flee:
		if side != SidePlayer {
			return newError(ErrInvalidActionForState, "", "only the player may flee")
		}
		return nil
	case UseSkill:
		sk, ok := e.catalog.Skill(v.SkillID)
		if !ok || !actor.HasSkill(v.SkillID) {
			return newError(ErrSkillUnavailable, v.SkillID, "not in skill list")
		}
		if cd := actor.Cooldowns[v.SkillID]; cd > 0 {
			return newError(ErrSkillUnavailable, v.SkillID, fmt.Sprintf("on cooldown for %d more rounds", cd))
		}
		if actor.Mana < sk.Cost.Mana {
			return newError(ErrInsufficientResource, v.SkillID, fmt.Sprintf("needs %d mana, has %d", sk.Cost.Mana, actor.Mana))
		}
		return nil
	case UseItem:
		if side != SidePlayer {
			return newError(ErrInvalidActionForState, v.ItemID, "only the player carries items")
		}
		if _, ok := e.catalog.Item(v.ItemID); !ok {
			return newError(ErrItemUnavailable, v.ItemID, "not a consumable")
		}
		if s.ItemQuantity(v.ItemID) <= 0 {
			return newError(ErrItemUnavailable, v.ItemID, "none left")
		}
		if cd := s.ItemCooldowns[v.ItemID]; cd > 0 {
			return newError(ErrItemUnavailable, v.ItemID, fmt.Sprintf("on cooldown for %d more rounds", cd))
		}
		return nil
	case CompanionSkill:
		if side != SidePlayer || s.Companion == nil {
			return newError(ErrSkillUnavailable, v.SkillID, "no active companion")
		}
		if _, ok := e.catalog.Skill(v.SkillID); !ok || !s.Companion.HasSkill(v.SkillID) {
			return newError(ErrSkillUnavailable, v.SkillID, "companion does not know it")
		}
		if cd := s.PetSkillCooldowns[v.SkillID]; cd > 0 {
			return newError(ErrSkillUnavailable, v.SkillID, fmt.Sprintf("on cooldown for %d more rounds", cd))
		}
		return nil
	case nil:
		return newError(ErrInvalidActionForState, "", "no action given")
	default:
		return newError(ErrInvalidActionForState, "", fmt.Sprintf("unsupported action %T", a))
	}
}

// apply performs a validated action for side on s in place.
func (e *Engine) apply(s *State, side Side, a Action, src Source) {
	actor := s.Unit(side)
	opp := s.Unit(side.Opponent())

	switch v := a.(type) {
	case Attack:
		h := e.tuning.roll(e.tuning.attackBase(actor, opp), e.tuning.BaseCritChance, e.tuning.BaseCritMultiplier, src)
		e.strike(s, actor, opp, h)

	case Defend:
		duration := 2
		if side == s.FirstActor {
			duration = 1
		}
		bonus := e.tuning.DefendBonus(actor.Defense)
		actor.Modifiers.Apply(modifier.Modifier{
			ID:        defendModifierID,
			Name:      "Defending",
			Source:    string(ActionDefend),
			Kind:      modifier.KindDefense,
			Mode:      modifier.ModeFlat,
			Magnitude: bonus,
			Remaining: duration,
			Unique:    true,
		})
		s.record(Event{
			Kind: EventDefend, Actor: side, ActorName: actor.Name, Action: ActionDefend,
			Target: side, TargetName: actor.Name, Amount: bonus, ModifierID: defendModifierID,
			Text: fmt.Sprintf("%s takes a defensive stance.", actor.Name),
		})

	case Flee:
		chance := e.tuning.FleeChance(actor.Effective(modifier.KindSpeed), opp.Effective(modifier.KindSpeed))
		if dice.Chance(src, chance) {
			s.Outcome = OutcomeFled
			s.record(Event{
				Kind: EventFled, Actor: side, ActorName: actor.Name, Action: ActionFlee,
				Text: fmt.Sprintf("%s escapes from %s.", actor.Name, opp.Name),
			})
			return
		}
		s.record(Event{
			Kind: EventFleeFailed, Actor: side, ActorName: actor.Name, Action: ActionFlee,
			Text: fmt.Sprintf("%s fails to escape.", actor.Name),
		})

	case UseSkill:
		sk, _ := e.catalog.Skill(v.SkillID)
		actor.Mana -= sk.Cost.Mana
		if sk.Cooldown > 0 {
			actor.Cooldowns[sk.ID] = sk.Cooldown
		}
		s.record(Event{
			Kind: EventSkillUsed, Actor: side, ActorName: actor.Name, Action: ActionSkill,
			Amount: sk.Cost.Mana, SkillID: sk.ID,
			Text: fmt.Sprintf("%s uses %s.", actor.Name, skillName(sk)),
		})
		e.applyEffects(s, side, actor.Name, actor.Effective(modifier.KindAttack), actor.Effective(modifier.KindSpirit), ActionSkill, sk, src)

	case CompanionSkill:
		sk, _ := e.catalog.Skill(v.SkillID)
		if sk.Cooldown > 0 {
			s.PetSkillCooldowns[sk.ID] = sk.Cooldown
		}
		comp := s.Companion
		s.record(Event{
			Kind: EventSkillUsed, Actor: side, ActorName: comp.Name, Action: ActionCompanionSkill, SkillID: sk.ID,
			Text: fmt.Sprintf("%s's companion %s uses %s.", actor.Name, comp.Name, skillName(sk)),
		})
		e.applyEffects(s, side, comp.Name, comp.Attack, comp.Spirit, ActionCompanionSkill, sk, src)

	case UseItem:
		it, _ := e.catalog.Item(v.ItemID)
		s.consumeItem(it.ID)
		if it.Cooldown > 0 {
			s.ItemCooldowns[it.ID] = it.Cooldown
		}
		name := it.Name
		if name == "" {
			name = it.ID
		}
		s.record(Event{
			Kind: EventItemUsed, Actor: side, ActorName: actor.Name, Action: ActionItem, ItemID: it.ID,
			Text: fmt.Sprintf("%s uses %s.", actor.Name, name),
		})
		for _, eff := range it.Effects {
			e.applySupport(s, side, actor, actor.Name, ActionItem, it.ID, eff)
		}
	}
}

// applyEffects resolves sk's effect list in order. Damage always hits the
// opponent of side; other effects follow the skill's target. Resolution stops
// once a unit falls.
func (e *Engine) applyEffects(s *State, side Side, actorName string, attack, spirit int, kind ActionKind, sk *catalog.Skill, src Source) {
	actor := s.Unit(side)
	opp := s.Unit(side.Opponent())
	target := opp
	if sk.Target == catalog.TargetSelf {
		target = actor
	}
	for _, eff := range sk.Effects {
		if IsTerminal(s) {
			return
		}
		d, ok := eff.(catalog.Damage)
		if !ok {
			e.applySupport(s, side, target, actorName, kind, sk.ID, eff)
			continue
		}
		h := e.tuning.roll(e.tuning.skillBase(attack, spirit, opp, d), d.CritChance, d.CritMultiplier, src)
		dealt := opp.applyDamage(h.amount)
		s.record(Event{
			Kind: EventDamage, Actor: side, ActorName: actorName, Action: kind,
			Target: opp.Side, TargetName: opp.Name, Amount: dealt, TargetHP: opp.HP, Crit: h.crit, SkillID: sk.ID,
			Text: damageText(actorName, skillName(sk), opp.Name, dealt, h.crit),
		})
	}
}

// strike applies a basic attack hit and records it.
func (e *Engine) strike(s *State, actor, opp *Unit, h hit) {
	dealt := opp.applyDamage(h.amount)
	text := fmt.Sprintf("%s attacks %s for %d damage.", actor.Name, opp.Name, dealt)
	if h.crit {
		text = fmt.Sprintf("%s lands a critical blow on %s for %d damage!", actor.Name, opp.Name, dealt)
	}
	s.record(Event{
		Kind: EventDamage, Actor: actor.Side, ActorName: actor.Name, Action: ActionAttack,
		Target: opp.Side, TargetName: opp.Name, Amount: dealt, TargetHP: opp.HP, Crit: h.crit,
		Text: text,
	})
}

// applySupport resolves a non-damage effect against target.
func (e *Engine) applySupport(s *State, side Side, target *Unit, actorName string, kind ActionKind, sourceID string, eff catalog.Effect) {
	base := Event{Actor: side, ActorName: actorName, Action: kind, Target: target.Side, TargetName: target.Name}
	if kind == ActionItem {
		base.ItemID = sourceID
	} else {
		base.SkillID = sourceID
	}

	switch v := eff.(type) {
	case catalog.ApplyModifier:
		m := v.Modifier.Instantiate(sourceID)
		target.Modifiers.Apply(m)
		base.Kind = EventModifierApplied
		base.Amount = m.Magnitude
		base.ModifierID = m.ID
		verb := "weakened by"
		if m.IsBuff() {
			verb = "empowered by"
		}
		base.Text = fmt.Sprintf("%s is %s %s for %d rounds.", target.Name, verb, m.Label(), m.Remaining)
	case catalog.Heal:
		restored := target.heal(v.Amount + target.MaxHP*v.Percent/100)
		base.Kind = EventHeal
		base.Amount = restored
		base.TargetHP = target.HP
		base.Text = fmt.Sprintf("%s recovers %d HP.", target.Name, restored)
	case catalog.RestoreMana:
		restored := target.restoreMana(v.Amount)
		base.Kind = EventManaRestored
		base.Amount = restored
		base.Text = fmt.Sprintf("%s recovers %d mana.", target.Name, restored)
	default:
		return
	}
	s.record(base)
}

func damageText(actorName, skill, targetName string, dealt int, crit bool) string {
	if crit {
		return fmt.Sprintf("%s's %s critically hits %s for %d damage!", actorName, skill, targetName, dealt)
	}
	return fmt.Sprintf("%s's %s hits %s for %d damage.", actorName, skill, targetName, dealt)
}

func skillName(sk *catalog.Skill) string {
	if sk.Name != "" {
		return sk.Name
	}
	return sk.ID
}

func copyEvents(evs []Event) []Event {
	return append([]Event(nil), evs...)
}
