// Package battle implements the turn-based battle engine: unit model, battle
// state, action resolution, the round scheduler, the enemy policy, reward
// calculation, and the fast-forward driver.
//
// The engine is a pure state transform. Every operation takes a *State and
// returns a new *State; the input is never mutated. All randomness is drawn
// from an injected Source, so equal inputs and equal random streams always
// produce equal results.
package battle

import "github.com/cory-johannsen/idlequest/internal/game/catalog"

// Source is the randomness provider for the battle engine.
// Using a local interface keeps the engine independent of any concrete
// generator; dice.Source values satisfy it.
type Source interface {
	// Intn returns a random int in [0, n). Precondition: n > 0.
	Intn(n int) int
}

// Catalog is the read-only skill and item lookup the engine resolves against.
// *catalog.Registry satisfies it.
type Catalog interface {
	Skill(id string) (*catalog.Skill, bool)
	Item(id string) (*catalog.Item, bool)
}

var _ Catalog = (*catalog.Registry)(nil)

// Side identifies one of the two combatants.
type Side string

const (
	SidePlayer Side = "player"
	SideEnemy  Side = "enemy"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SidePlayer {
		return SideEnemy
	}
	return SidePlayer
}

// Outcome is the battle result.
type Outcome string

const (
	OutcomeOngoing Outcome = "ongoing"
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeFled    Outcome = "fled"
)

// EncounterKind is the encounter type requested by the caller.
type EncounterKind string

const (
	KindNormal EncounterKind = "normal"
	KindElite  EncounterKind = "elite"
	KindBoss   EncounterKind = "boss"
)

// Valid reports whether k is a known encounter kind.
func (k EncounterKind) Valid() bool {
	switch k {
	case KindNormal, KindElite, KindBoss:
		return true
	}
	return false
}

// EncounterRequest describes the encounter to generate.
type EncounterRequest struct {
	Kind     EncounterKind `json:"kind"`
	RiskTier int           `json:"risk_tier"`
	// MinTier is a floor on the enemy tier; 0 means no hint.
	MinTier int `json:"min_tier,omitempty"`
}

// Normalized fills defaults: kind normal and risk tier 1.
func (r EncounterRequest) Normalized() EncounterRequest {
	if r.Kind == "" {
		r.Kind = KindNormal
	}
	if r.RiskTier < 1 {
		r.RiskTier = 1
	}
	if r.MinTier < 0 {
		r.MinTier = 0
	}
	return r
}
