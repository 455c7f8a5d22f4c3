package battle

import "fmt"

// unbounded disables the resolution budget of advance.
const unbounded = -1

// AdvanceIfTurnExhausted hands control over once the side holding the turn has
// no actions left. When control reaches the enemy, its policy acts until the
// enemy's actions are spent. The round advances, and every cooldown and
// modifier decays, whenever control returns to the side that started the round.
//
// Postcondition: the returned state is terminal or waiting for a player action.
// A terminal s is returned unchanged.
func (e *Engine) AdvanceIfTurnExhausted(s *State, src Source) (*State, []Event) {
	if IsTerminal(s) {
		return s, nil
	}
	next := s.Clone()
	start := len(next.History)
	e.advance(next, src, unbounded)
	return next, copyEvents(next.History[start:])
}

// Step resolves a player action and then advances the scheduler. Incremental
// play and fast-forward both move a battle forward through this path.
//
// Postcondition: on error the returned state is s itself.
func (e *Engine) Step(s *State, a Action, src Source) (*State, []Event, error) {
	if err := e.checkPlayerTurn(s); err != nil {
		return s, nil, err
	}
	if err := e.validate(s, SidePlayer, a); err != nil {
		return s, nil, err
	}
	next := s.Clone()
	start := len(next.History)
	e.step(next, a, src, unbounded)
	return next, copyEvents(next.History[start:]), nil
}

// step is Step on an owned state. It returns the number of actions resolved.
func (e *Engine) step(s *State, a Action, src Source, budget int) int {
	e.resolvePlayer(s, a, src)
	if budget > 0 {
		budget--
	}
	return 1 + e.advance(s, src, budget)
}

// advance runs the scheduler in place until the player must act, the battle
// ends, or budget enemy actions have been resolved (budget < 0 is unbounded).
// It returns the number of enemy actions resolved.
func (e *Engine) advance(s *State, src Source, budget int) int {
	resolved := 0
	for !IsTerminal(s) {
		switch s.Turn {
		case SidePlayer:
			if s.PlayerActionsRemaining > 0 {
				s.WaitingForPlayerAction = true
				return resolved
			}
			e.passTurn(s, SideEnemy)
		case SideEnemy:
			if s.EnemyActionsRemaining <= 0 {
				e.passTurn(s, SidePlayer)
				continue
			}
			if budget >= 0 && resolved >= budget {
				return resolved
			}
			e.enemyAct(s, src)
			resolved++
		}
	}
	s.WaitingForPlayerAction = false
	return resolved
}

// enemyAct asks the policy for one action and resolves it. A choice that fails
// validation falls back to a basic attack.
func (e *Engine) enemyAct(s *State, src Source) {
	a := e.policy.Choose(s, e.catalog)
	if a == nil || e.validate(s, SideEnemy, a) != nil {
		a = Attack{}
	}
	e.apply(s, SideEnemy, a, src)
	s.EnemyActionsRemaining--
	s.settle()
}

// passTurn gives the turn to side, refilling its action budget.
func (e *Engine) passTurn(s *State, to Side) {
	if to == s.FirstActor {
		e.roundBoundary(s)
	}
	s.Turn = to
	if to == SideEnemy {
		s.EnemyActionsRemaining = s.EnemyMaxActions
		s.WaitingForPlayerAction = false
		return
	}
	s.PlayerActionsRemaining = s.PlayerMaxActions
	if s.PlayerActionsRemaining <= 0 {
		// Neither side could act again; hand the player a single action so the
		// battle keeps moving.
		s.PlayerActionsRemaining = 1
		s.record(Event{
			Kind: EventDeadlockRecovered, Actor: SidePlayer, ActorName: s.Player.Name,
			Text: fmt.Sprintf("%s regains the initiative.", s.Player.Name),
		})
	}
	s.WaitingForPlayerAction = true
}

// roundBoundary advances the round and decays every cooldown and modifier by one.
func (e *Engine) roundBoundary(s *State) {
	s.Round++
	s.record(Event{Kind: EventRoundStarted, Text: fmt.Sprintf("Round %d begins.", s.Round)})

	tickCounts(s.Player.Cooldowns)
	tickCounts(s.Enemy.Cooldowns)
	tickCounts(s.ItemCooldowns)
	tickCounts(s.PetSkillCooldowns)

	for _, u := range []*Unit{s.Player, s.Enemy} {
		for _, m := range u.Modifiers.Tick() {
			s.record(Event{
				Kind: EventModifierExpired, Target: u.Side, TargetName: u.Name, ModifierID: m.ID,
				Text: fmt.Sprintf("%s on %s wears off.", m.Label(), u.Name),
			})
		}
	}
}
