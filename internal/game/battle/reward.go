package battle

import "math"

// Drop is one item stack awarded by a reward table.
type Drop struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// RewardTable rolls item drops for a finished encounter. Implementations must
// be deterministic given the random source.
type RewardTable interface {
	RollDrops(kind EncounterKind, riskTier int, victory bool, src Source) ([]Drop, error)
}

// Report is the reward summary of a terminal battle, ready to apply to the
// persistent profile.
type Report struct {
	Outcome        Outcome `json:"outcome"`
	Victory        bool    `json:"victory"`
	Rounds         int     `json:"rounds"`
	HPLoss         int     `json:"hp_loss"`
	FinalHP        int     `json:"final_hp"`
	FinalMana      int     `json:"final_mana"`
	ExpChange      int     `json:"exp_change"`
	CurrencyChange int     `json:"currency_change"`
	Drops          []Drop  `json:"drops"`
	// CompanionCooldowns holds only the companion skills still cooling down.
	CompanionCooldowns map[string]int `json:"companion_cooldowns"`
	// Inventory is the working inventory left after the battle.
	Inventory []InventoryItem `json:"inventory"`
}

// ComputeRewards maps a terminal state to profile deltas. Only a victory earns
// experience, currency, and drops; table is consulted only on victory and may
// be nil for no drops.
//
// Precondition: IsTerminal(s).
// Postcondition: HPLoss >= 0. Returns ErrInvalidActionForState for a
// non-terminal state and ErrGenerationFailure when the reward table fails.
func (e *Engine) ComputeRewards(s *State, original PlayerProfile, req EncounterRequest, table RewardTable, src Source) (Report, error) {
	if !IsTerminal(s) {
		return Report{}, newError(ErrInvalidActionForState, "", "battle is still in progress")
	}
	req = req.Normalized()
	victory := s.Outcome == OutcomeVictory || (s.Outcome == OutcomeOngoing && !s.Enemy.Alive())

	r := Report{
		Outcome:            s.Outcome,
		Victory:            victory,
		Rounds:             s.Round,
		HPLoss:             max(0, min(original.HP, original.MaxHP)-s.Player.HP),
		FinalHP:            s.Player.HP,
		FinalMana:          s.Player.Mana,
		Drops:              []Drop{},
		CompanionCooldowns: cloneCounts(s.PetSkillCooldowns),
		Inventory:          append([]InventoryItem{}, s.Inventory...),
	}

	if victory {
		scale := e.tuning.kindMultiplier(req.Kind) * (1 + e.tuning.RiskStep*float64(req.RiskTier-1))
		power := enemyPower(s.Enemy)
		r.ExpChange = int(math.Round(power * e.tuning.ExpPerPower * scale))
		r.CurrencyChange = int(math.Round(power * e.tuning.CurrencyPerPower * scale))
	}

	if victory && table != nil {
		drops, err := table.RollDrops(req.Kind, req.RiskTier, victory, src)
		if err != nil {
			return Report{}, &Error{Kind: ErrGenerationFailure, Detail: "rolling drops", Err: err}
		}
		r.Drops = append(r.Drops, drops...)
	}
	return r, nil
}

// enemyPower summarises how dangerous the defeated enemy was.
func enemyPower(u *Unit) float64 {
	return float64(u.MaxHP)/5 + 2*float64(u.Attack) + float64(u.Defense) + float64(u.Spirit)
}

func (t Tuning) kindMultiplier(kind EncounterKind) float64 {
	if m, ok := t.KindMultipliers[kind]; ok {
		return m
	}
	return 1
}
