package ai_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/idlequest/internal/game/ai"
	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/catalog"
	"github.com/cory-johannsen/idlequest/internal/game/modifier"
)

// mockScriptCaller returns a fixed value per hook and records every call.
type mockScriptCaller struct {
	returnVal lua.LValue
	byHook    map[string]lua.LValue
	calls     []string
	lastArgs  []any
}

func (m *mockScriptCaller) CallHook(name, hook string, args ...any) (lua.LValue, error) {
	m.calls = append(m.calls, hook)
	m.lastArgs = args
	if v, ok := m.byHook[hook]; ok {
		return v, nil
	}
	if m.returnVal == nil {
		return lua.LNil, nil
	}
	return m.returnVal, nil
}

// wolfDomain defends when badly hurt, howls when unbuffed, and otherwise bites.
func wolfDomain() *ai.Domain {
	return &ai.Domain{
		ID: "wolf",
		Tasks: []*ai.Task{
			{ID: "behave"},
			{ID: "fight"},
		},
		Methods: []*ai.Method{
			{TaskID: "behave", ID: "desperate", Precondition: "low_hp", Subtasks: []string{"guard"}},
			{TaskID: "behave", ID: "engage", Subtasks: []string{"fight"}},
			{TaskID: "fight", ID: "rally", Precondition: "unbuffed", Subtasks: []string{"cast_howl", "use_bite"}},
			{TaskID: "fight", ID: "maul", Subtasks: []string{"use_bite", "claw"}},
		},
		Operators: []*ai.Operator{
			{ID: "guard", Action: "defend"},
			{ID: "cast_howl", Action: "skill", Skill: "howl"},
			{ID: "use_bite", Action: "skill", Skill: "bite"},
			{ID: "claw", Action: "attack"},
		},
	}
}

func wolfCatalog(t *testing.T) *catalog.Registry {
	t.Helper()
	reg := catalog.NewRegistry()
	require.NoError(t, reg.RegisterSkill(&catalog.Skill{
		ID: "bite", Name: "Bite", Category: catalog.CategoryAttack, Target: catalog.TargetEnemy, Cooldown: 2,
		Effects: []catalog.Effect{catalog.Damage{Base: 5, Multiplier: 0.5, Kind: catalog.Physical, CritMultiplier: 1}},
	}))
	require.NoError(t, reg.RegisterSkill(&catalog.Skill{
		ID: "howl", Name: "Howl", Category: catalog.CategoryBuff, Target: catalog.TargetSelf,
		Cost: catalog.Cost{Mana: 30}, Cooldown: 3,
		Effects: []catalog.Effect{catalog.ApplyModifier{Modifier: modifier.Template{
			ID: "howl", Name: "Howl", Kind: modifier.KindAttack, Mode: modifier.ModeFlat, Magnitude: 10, Duration: 3,
		}}},
	}))
	return reg
}

// enemyTurn is a mid-battle state where the wolf is about to act.
func enemyTurn() *battle.State {
	return &battle.State{
		Round:     2,
		Encounter: battle.EncounterRequest{Kind: battle.KindNormal, RiskTier: 1},
		Player: &battle.Unit{
			Side: battle.SidePlayer, Name: "Lin", HP: 500, MaxHP: 500, Mana: 100, MaxMana: 100,
			Attack: 50, Defense: 10, Spirit: 10, Speed: 20, Skills: []string{}, Cooldowns: map[string]int{},
		},
		Enemy: &battle.Unit{
			Side: battle.SideEnemy, Name: "Wolf", HP: 200, MaxHP: 200, Mana: 40, MaxMana: 40,
			Attack: 30, Defense: 5, Speed: 10, Skills: []string{"bite", "howl"}, Cooldowns: map[string]int{},
		},
		FirstActor:            battle.SidePlayer,
		Turn:                  battle.SideEnemy,
		PlayerMaxActions:      1,
		EnemyActionsRemaining: 1,
		EnemyMaxActions:       1,
		Inventory:             []battle.InventoryItem{},
		ItemCooldowns:         map[string]int{},
		PetSkillCooldowns:     map[string]int{},
		Outcome:               battle.OutcomeOngoing,
		History:               []battle.Event{},
	}
}
