package encounter

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/dice"
)

// ErrNoEncounterAvailable is returned when no template matches a request.
var ErrNoEncounterAvailable = errors.New("no encounter available")

const (
	// DefaultTierStep is the stat growth per player tier above 1.
	DefaultTierStep = 0.2
	// DefaultRiskStep is the stat growth per risk tier above 1.
	DefaultRiskStep = 0.25
)

// Generator picks and scales enemies from a fixed template set. It implements
// battle.EncounterGenerator and is safe for concurrent use.
type Generator struct {
	templates []*Template
	tierStep  float64
	riskStep  float64
	logger    *zap.Logger
}

// NewGenerator creates a Generator over templates.
//
// Precondition: every template has passed Validate; logger must be non-nil.
func NewGenerator(templates []*Template, logger *zap.Logger) *Generator {
	return &Generator{
		templates: templates,
		tierStep:  DefaultTierStep,
		riskStep:  DefaultRiskStep,
		logger:    logger,
	}
}

// CheckSkills verifies every template skill exists in cat.
func (g *Generator) CheckSkills(cat battle.Catalog) error {
	var errs []error
	for _, t := range g.templates {
		for _, id := range t.Skills {
			if _, ok := cat.Skill(id); !ok {
				errs = append(errs, fmt.Errorf("encounter template %q: unknown skill %q", t.ID, id))
			}
		}
	}
	return errors.Join(errs...)
}

// Generate returns an enemy for the player described by power.
//
// Postcondition: the descriptor's stats are the template's scaled by tier and
// risk. Returns an error wrapping ErrNoEncounterAvailable when no template of
// req.Kind is offered at the effective tier max(power.Tier, req.MinTier).
func (g *Generator) Generate(power battle.PowerSnapshot, req battle.EncounterRequest, src battle.Source) (battle.EnemyDescriptor, error) {
	req = req.Normalized()
	tier := max(power.Tier, req.MinTier, 1)

	var (
		candidates []*Template
		weights    []int
	)
	for _, t := range g.templates {
		if t.Offered(req.Kind, tier) {
			candidates = append(candidates, t)
			weights = append(weights, t.weight())
		}
	}
	if len(candidates) == 0 {
		return battle.EnemyDescriptor{}, fmt.Errorf("%w: kind %s at tier %d", ErrNoEncounterAvailable, req.Kind, tier)
	}
	tmpl := candidates[dice.Weighted(src, weights)]

	hp := dice.NewRoller(src, g.logger).Roll(tmpl.ID+".hp", tmpl.hp).Total()

	scale := (1 + g.tierStep*float64(tier-1)) * (1 + g.riskStep*float64(req.RiskTier-1))
	rank := tmpl.RankLabel
	if rank == "" {
		rank = fmt.Sprintf("Tier %d", tier)
	}
	desc := battle.EnemyDescriptor{
		Name:      tmpl.Name,
		RankLabel: rank,
		HP:        max(1, scaled(hp, scale)),
		Mana:      scaled(tmpl.Mana, scale),
		Attack:    scaled(tmpl.Attack, scale),
		Defense:   scaled(tmpl.Defense, scale),
		Spirit:    scaled(tmpl.Spirit, scale),
		// Speed is never scaled.
		Speed:     tmpl.Speed,
		Skills:    append([]string(nil), tmpl.Skills...),
		Actions:   max(tmpl.Actions, 1),
	}
	g.logger.Debug("encounter generated",
		zap.String("template", tmpl.ID),
		zap.String("kind", string(req.Kind)),
		zap.Int("tier", tier),
		zap.Int("risk_tier", req.RiskTier),
		zap.Int("hp", desc.HP),
	)
	return desc, nil
}

// scaled multiplies v by scale, rounding to the nearest integer.
func scaled(v int, scale float64) int {
	return int(math.Round(float64(v) * scale))
}

var _ battle.EncounterGenerator = (*Generator)(nil)
