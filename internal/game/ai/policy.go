package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
)

// Policy is a battle.Policy backed by an HTN planner. The first planned action
// the enemy can currently perform is chosen; an empty or unusable plan defers
// to the fallback policy.
type Policy struct {
	planner  *Planner
	fallback battle.Policy
	logger   *zap.Logger
}

var _ battle.Policy = (*Policy)(nil)

// NewPolicy wraps planner as a battle.Policy.
//
// Precondition: planner, fallback, and logger must not be nil.
func NewPolicy(planner *Planner, fallback battle.Policy, logger *zap.Logger) *Policy {
	if planner == nil || fallback == nil || logger == nil {
		panic("ai.NewPolicy: planner, fallback, and logger must not be nil")
	}
	return &Policy{planner: planner, fallback: fallback, logger: logger}
}

// Choose implements battle.Policy.
func (p *Policy) Choose(s *battle.State, cat battle.Catalog) battle.Action {
	ws := BuildWorldState(s, cat)
	plan, err := p.planner.Plan(ws)
	if err != nil {
		p.logger.Warn("ai: planning failed", zap.String("domain", p.planner.domain.ID), zap.Error(err))
		return p.fallback.Choose(s, cat)
	}
	for _, pa := range plan {
		var a battle.Action
		switch pa.Action {
		case ActionAttack:
			a = battle.Attack{}
		case ActionDefend:
			a = battle.Defend{}
		case ActionSkill:
			if ws.Self.CanUse(pa.Skill) {
				a = battle.UseSkill{SkillID: pa.Skill}
			}
		}
		if a != nil {
			p.logger.Debug("ai: planned action",
				zap.String("domain", p.planner.domain.ID),
				zap.String("method", pa.Method),
				zap.String("action", string(a.Kind())),
				zap.String("id", battle.ActionID(a)),
			)
			return a
		}
	}
	p.logger.Debug("ai: no usable planned action",
		zap.String("domain", p.planner.domain.ID),
		zap.Int("round", s.Round),
	)
	return p.fallback.Choose(s, cat)
}
