package battle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/catalog"
	"github.com/cory-johannsen/idlequest/internal/game/modifier"
)

// funcSource answers every draw through f and counts the draws made.
type funcSource struct {
	f     func(n int) int
	draws int
}

func (s *funcSource) Intn(n int) int {
	s.draws++
	return s.f(n)
}

// midSource yields neutral rolls: no variance, no crit, and a flee only above 50%.
func midSource() *funcSource { return &funcSource{f: func(n int) int { return n / 2 }} }

// lowSource yields the lowest variance, always crits, and always escapes.
func lowSource() *funcSource { return &funcSource{f: func(int) int { return 0 }} }

// highSource yields the highest variance, never crits, and never escapes.
func highSource() *funcSource { return &funcSource{f: func(n int) int { return n - 1 }} }

type stubGenerator struct {
	desc  battle.EnemyDescriptor
	err   error
	calls int
	req   battle.EncounterRequest
}

func (g *stubGenerator) Generate(_ battle.PowerSnapshot, req battle.EncounterRequest, _ battle.Source) (battle.EnemyDescriptor, error) {
	g.calls++
	g.req = req
	return g.desc, g.err
}

type stubTable struct {
	drops   []battle.Drop
	err     error
	victory []bool
}

func (t *stubTable) RollDrops(_ battle.EncounterKind, _ int, victory bool, _ battle.Source) ([]battle.Drop, error) {
	t.victory = append(t.victory, victory)
	return t.drops, t.err
}

func damage(base int, mult float64, kind catalog.DamageKind) catalog.Damage {
	return catalog.Damage{Base: base, Multiplier: mult, Kind: kind, CritMultiplier: 1}
}

func newCatalog(t *testing.T) *catalog.Registry {
	t.Helper()
	reg := catalog.NewRegistry()
	skills := []*catalog.Skill{
		{ID: "slash", Name: "Slash", Category: catalog.CategoryAttack, Target: catalog.TargetEnemy, Cooldown: 1,
			Effects: []catalog.Effect{damage(10, 1, catalog.Physical)}},
		{ID: "heavy_blow", Name: "Heavy Blow", Category: catalog.CategoryAttack, Target: catalog.TargetEnemy,
			Cost: catalog.Cost{Mana: 10}, Cooldown: 2,
			Effects: []catalog.Effect{damage(40, 1.5, catalog.Physical)}},
		{ID: "fireball", Name: "Fireball", Category: catalog.CategoryAttack, Target: catalog.TargetEnemy,
			Cost: catalog.Cost{Mana: 50}, Cooldown: 2,
			Effects: []catalog.Effect{damage(20, 1, catalog.Magical)}},
		{ID: "war_cry", Name: "War Cry", Category: catalog.CategoryBuff, Target: catalog.TargetSelf, Cooldown: 3,
			Effects: []catalog.Effect{catalog.ApplyModifier{Modifier: modifier.Template{
				ID: "war_cry", Name: "War Cry", Kind: modifier.KindAttack, Mode: modifier.ModeFlat, Magnitude: 50, Duration: 3,
			}}}},
		{ID: "bite", Name: "Bite", Category: catalog.CategoryAttack, Target: catalog.TargetEnemy, Cooldown: 2,
			Effects: []catalog.Effect{damage(5, 0.5, catalog.Physical)}},
	}
	for _, s := range skills {
		require.NoError(t, reg.RegisterSkill(s))
	}
	require.NoError(t, reg.RegisterItem(&catalog.Item{
		ID: "potion", Name: "Potion", Cooldown: 2,
		Effects: []catalog.Effect{catalog.Heal{Amount: 100}},
	}))
	require.NoError(t, reg.RegisterItem(&catalog.Item{
		ID: "ether", Name: "Ether",
		Effects: []catalog.Effect{catalog.RestoreMana{Amount: 30}},
	}))
	return reg
}

func basePlayer() battle.PlayerProfile {
	return battle.PlayerProfile{
		Name:           "Lin",
		Tier:           1,
		HP:             500,
		MaxHP:          500,
		Mana:           100,
		MaxMana:        100,
		Attack:         50,
		Defense:        10,
		Spirit:         10,
		Speed:          20,
		EquippedSkills: []string{"slash", "heavy_blow", "war_cry", "fireball"},
		Inventory:      []battle.InventoryItem{{ItemID: "potion", Quantity: 2}},
	}
}

func baseEnemy() battle.EnemyDescriptor {
	return battle.EnemyDescriptor{
		Name:    "Bandit",
		HP:      200,
		Attack:  30,
		Defense: 5,
		Speed:   10,
	}
}

func newEngine(t *testing.T, tuning battle.Tuning) *battle.Engine {
	t.Helper()
	return battle.NewEngine(newCatalog(t), tuning, nil)
}

func start(t *testing.T, eng *battle.Engine, p battle.PlayerProfile, d battle.EnemyDescriptor) *battle.State {
	t.Helper()
	s, err := eng.Initialize(p, battle.EncounterRequest{Kind: battle.KindNormal, RiskTier: 1}, &stubGenerator{desc: d}, midSource())
	require.NoError(t, err)
	return s
}

// stepUntilTerminal plays Attack until the battle ends, failing the test on error.
func stepUntilTerminal(t *testing.T, eng *battle.Engine, s *battle.State, src battle.Source) *battle.State {
	t.Helper()
	if !s.WaitingForPlayerAction {
		s, _ = eng.AdvanceIfTurnExhausted(s, src)
	}
	for i := 0; !battle.IsTerminal(s); i++ {
		require.Less(t, i, 1000, "battle did not end")
		var err error
		s, _, err = eng.Step(s, battle.Attack{}, src)
		require.NoError(t, err)
	}
	return s
}

func eventsOf(s *battle.State, kind battle.EventKind) []battle.Event {
	var out []battle.Event
	for _, ev := range s.History {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}
