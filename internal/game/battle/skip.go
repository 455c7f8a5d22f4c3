package battle

import "fmt"

// SkipToResolution plays the battle to its end with the player always choosing
// a basic attack, resolving exactly as repeated Step(Attack) calls would.
//
// Postcondition: a terminal s is returned unchanged. Otherwise the returned
// state is terminal, or the error matches ErrRunawayBattle and the returned
// state is the valid state reached after MaxResolutions resolutions, from
// which play may continue step by step.
func (e *Engine) SkipToResolution(s *State, src Source) (*State, error) {
	if IsTerminal(s) {
		return s, nil
	}
	cur := s.Clone()
	limit := e.tuning.MaxResolutions
	resolved := 0
	for !IsTerminal(cur) {
		budget := limit - resolved
		if budget <= 0 {
			return cur, newError(ErrRunawayBattle, "", fmt.Sprintf("no outcome after %d resolutions", resolved))
		}
		if cur.Turn == SidePlayer && cur.WaitingForPlayerAction && cur.PlayerActionsRemaining > 0 {
			resolved += e.step(cur, Attack{}, src, budget)
			continue
		}
		resolved += e.advance(cur, src, budget)
	}
	return cur, nil
}
