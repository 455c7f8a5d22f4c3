package battle

import "github.com/cory-johannsen/idlequest/internal/game/modifier"

// Policy chooses the enemy's actions. Implementations must be deterministic
// and must not mutate the state they are given.
type Policy interface {
	Choose(s *State, cat Catalog) Action
}

// GreedyPolicy casts the ready, affordable damage skill with the highest
// expected damage against the player, and otherwise attacks. Ties go to the
// skill listed first.
type GreedyPolicy struct {
	Tuning Tuning
}

// Choose implements Policy.
func (p GreedyPolicy) Choose(s *State, cat Catalog) Action {
	enemy := s.Enemy
	attack := enemy.Effective(modifier.KindAttack)
	spirit := enemy.Effective(modifier.KindSpirit)

	var best Action = Attack{}
	bestDamage := 0.0
	found := false
	for _, id := range enemy.Skills {
		if enemy.Cooldowns[id] > 0 {
			continue
		}
		sk, ok := cat.Skill(id)
		if !ok || sk.Cost.Mana > enemy.Mana {
			continue
		}
		d, ok := sk.Damage()
		if !ok {
			continue
		}
		expected := p.Tuning.ExpectedDamage(attack, spirit, s.Player, d)
		if !found || expected > bestDamage {
			best, bestDamage, found = UseSkill{SkillID: id}, expected, true
		}
	}
	return best
}
