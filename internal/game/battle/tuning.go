package battle

import (
	"math"

	"github.com/cory-johannsen/idlequest/internal/config"
	"github.com/cory-johannsen/idlequest/internal/game/catalog"
	"github.com/cory-johannsen/idlequest/internal/game/dice"
	"github.com/cory-johannsen/idlequest/internal/game/modifier"
)

// Tuning holds every formula constant of the engine.
type Tuning struct {
	// DefenseFactor scales the defender's defense before it is subtracted from physical power.
	DefenseFactor float64
	// SpiritResistFactor scales the defender's spirit before it is subtracted from magical power.
	SpiritResistFactor float64
	// VariancePercent spreads damage uniformly over [100-V, 100+V] percent.
	VariancePercent    int
	BaseCritChance     float64
	BaseCritMultiplier float64

	// BonusActionSpeedGap is the speed lead that grants one extra player action.
	BonusActionSpeedGap int
	MaxBonusActions     int
	// Defend raises defense by DefendPercent of the base stat, and by at least DefendFlat.
	DefendPercent int
	DefendFlat    int

	FleeBaseChance  float64
	FleeSpeedFactor float64
	FleeMinChance   float64
	FleeMaxChance   float64

	// MaxResolutions bounds a single fast-forward run.
	MaxResolutions int

	ExpPerPower      float64
	CurrencyPerPower float64
	RiskStep         float64
	KindMultipliers  map[EncounterKind]float64
}

// DefaultTuning returns the stock formula constants.
func DefaultTuning() Tuning {
	return Tuning{
		DefenseFactor:       0.5,
		SpiritResistFactor:  0.5,
		VariancePercent:     15,
		BaseCritChance:      0.05,
		BaseCritMultiplier:  1.5,
		BonusActionSpeedGap: 10,
		MaxBonusActions:     1,
		DefendPercent:       100,
		DefendFlat:          10,
		FleeBaseChance:      0.5,
		FleeSpeedFactor:     0.02,
		FleeMinChance:       0.1,
		FleeMaxChance:       0.9,
		MaxResolutions:      200,
		ExpPerPower:         1,
		CurrencyPerPower:    0.5,
		RiskStep:            0.5,
		KindMultipliers:     map[EncounterKind]float64{KindNormal: 1, KindElite: 2, KindBoss: 4},
	}
}

// TuningFromConfig converts the validated battle configuration section.
func TuningFromConfig(cfg config.BattleConfig) Tuning {
	kinds := make(map[EncounterKind]float64, len(cfg.KindMultipliers))
	for k, v := range cfg.KindMultipliers {
		kinds[EncounterKind(k)] = v
	}
	return Tuning{
		DefenseFactor:       cfg.DefenseFactor,
		SpiritResistFactor:  cfg.SpiritResistFactor,
		VariancePercent:     cfg.VariancePercent,
		BaseCritChance:      cfg.BaseCritChance,
		BaseCritMultiplier:  cfg.BaseCritMultiplier,
		BonusActionSpeedGap: cfg.BonusActionSpeedGap,
		MaxBonusActions:     cfg.MaxBonusActions,
		DefendPercent:       cfg.DefendPercent,
		DefendFlat:          cfg.DefendFlat,
		FleeBaseChance:      cfg.FleeBaseChance,
		FleeSpeedFactor:     cfg.FleeSpeedFactor,
		FleeMinChance:       cfg.FleeMinChance,
		FleeMaxChance:       cfg.FleeMaxChance,
		MaxResolutions:      cfg.MaxResolutions,
		ExpPerPower:         cfg.ExpPerPower,
		CurrencyPerPower:    cfg.CurrencyPerPower,
		RiskStep:            cfg.RiskStep,
		KindMultipliers:     kinds,
	}
}

// PlayerMaxActions returns the player's actions per turn for the given speeds.
//
// Postcondition: 1 <= result <= 1 + MaxBonusActions.
func (t Tuning) PlayerMaxActions(playerSpeed, enemySpeed int) int {
	bonus := 0
	if t.BonusActionSpeedGap > 0 && playerSpeed > enemySpeed {
		bonus = (playerSpeed - enemySpeed) / t.BonusActionSpeedGap
	}
	if bonus > t.MaxBonusActions {
		bonus = t.MaxBonusActions
	}
	return 1 + bonus
}

// FleeChance returns the probability in [FleeMinChance, FleeMaxChance] that a
// unit with speed escapes an opponent with oppSpeed.
func (t Tuning) FleeChance(speed, oppSpeed int) float64 {
	c := t.FleeBaseChance + float64(speed-oppSpeed)*t.FleeSpeedFactor
	return math.Min(t.FleeMaxChance, math.Max(t.FleeMinChance, c))
}

// mitigation returns how much of a hit's power the defender absorbs.
func (t Tuning) mitigation(kind catalog.DamageKind, def *Unit) float64 {
	if kind == catalog.Magical {
		return float64(def.Effective(modifier.KindSpirit)) * t.SpiritResistFactor
	}
	return float64(def.Effective(modifier.KindDefense)) * t.DefenseFactor
}

// skillBase returns the pre-variance damage of d from an attacker with the given
// attack and spirit against def.
//
// Postcondition: Returns >= 1.
func (t Tuning) skillBase(attack, spirit int, def *Unit, d catalog.Damage) int {
	stat := attack
	if d.Kind == catalog.Magical {
		stat = spirit
	}
	power := float64(d.Base) + d.Multiplier*float64(stat)
	return atLeastOne(math.Floor(power - t.mitigation(d.Kind, def)))
}

// attackBase returns the pre-variance damage of a basic attack.
//
// Postcondition: Returns >= 1.
func (t Tuning) attackBase(att, def *Unit) int {
	raw := float64(att.Effective(modifier.KindAttack)) - t.mitigation(catalog.Physical, def)
	return atLeastOne(math.Floor(raw))
}

// ExpectedDamage is the mean damage of d against def, with no variance and
// crits weighted by their chance. Enemy policies rank skills with it.
func (t Tuning) ExpectedDamage(attack, spirit int, def *Unit, d catalog.Damage) float64 {
	base := float64(t.skillBase(attack, spirit, def, d))
	return base * (1 + d.CritChance*(d.CritMultiplier-1))
}

// ExpectedAttackDamage is the mean damage of a basic attack from att against def.
func (t Tuning) ExpectedAttackDamage(att, def *Unit) float64 {
	base := float64(t.attackBase(att, def))
	return base * (1 + t.BaseCritChance*(t.BaseCritMultiplier-1))
}

// hit is the outcome of one damage roll.
type hit struct {
	amount int
	crit   bool
}

// roll applies variance and crit to base. It always consumes exactly two draws,
// variance first, so the random stream stays aligned regardless of outcome.
//
// Postcondition: hit.amount >= 1.
func (t Tuning) roll(base int, critChance, critMultiplier float64, src Source) hit {
	v := t.VariancePercent
	pct := 100 - v + src.Intn(2*v+1)
	amount := base * pct / 100
	crit := dice.Chance(src, critChance)
	if crit {
		amount = int(math.Floor(float64(amount) * critMultiplier))
	}
	if amount < 1 {
		amount = 1
	}
	return hit{amount: amount, crit: crit}
}

// DefendBonus is the flat defense a unit with base defense gains while defending.
//
// Postcondition: Returns >= DefendFlat.
func (t Tuning) DefendBonus(base int) int {
	return max(t.DefendFlat, base*t.DefendPercent/100)
}

func atLeastOne(f float64) int {
	if f < 1 {
		return 1
	}
	return int(f)
}
