package battle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/dice"
)

// Scenario: skipping an already finished battle returns it untouched.
func TestSkipToResolution_TerminalInput(t *testing.T) {
	eng := newEngine(t, battle.DefaultTuning())
	s := start(t, eng, basePlayer(), baseEnemy())
	s.Enemy.HP = 0
	require.True(t, battle.IsTerminal(s))
	snapshot := s.Clone()
	src := midSource()

	out, err := eng.SkipToResolution(s, src)
	require.NoError(t, err)
	assert.Same(t, s, out)
	assert.Equal(t, snapshot, s)
	assert.Zero(t, src.draws)
}

func TestSkipToResolution_PlaysToVictory(t *testing.T) {
	eng := newEngine(t, battle.DefaultTuning())
	s := start(t, eng, basePlayer(), baseEnemy())

	out, err := eng.SkipToResolution(s, midSource())
	require.NoError(t, err)
	assert.True(t, battle.IsTerminal(out))
	assert.Equal(t, battle.OutcomeVictory, out.Outcome)
	assert.Equal(t, 0, out.Enemy.HP)
	assert.Equal(t, 450, out.Player.HP)
	assert.Equal(t, 3, out.Round)
	assert.Equal(t, battle.OutcomeOngoing, s.Outcome, "input state must be untouched")
}

func TestSkipToResolution_MatchesStepByStep(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		eng := battle.NewEngine(newCatalog(t), battle.DefaultTuning(), nil)
		p := basePlayer()
		p.Speed = rapid.IntRange(0, 40).Draw(rt, "speed")
		d := baseEnemy()
		d.HP = rapid.IntRange(1, 400).Draw(rt, "enemyHP")
		d.Attack = rapid.IntRange(0, 120).Draw(rt, "enemyAttack")
		d.Actions = rapid.IntRange(1, 2).Draw(rt, "enemyActions")
		d.Skills = []string{"slash", "heavy_blow"}
		d.Mana = 20
		seed := rapid.Int64().Draw(rt, "seed")

		initial, err := eng.Initialize(p, battle.EncounterRequest{}, &stubGenerator{desc: d}, midSource())
		if err != nil {
			rt.Fatalf("initialize: %v", err)
		}

		fastSrc := dice.NewSeededSource(seed)
		fast, err := eng.SkipToResolution(initial, fastSrc)
		if err != nil {
			rt.Fatalf("skip: %v", err)
		}

		slowSrc := dice.NewSeededSource(seed)
		slow := initial
		if !slow.WaitingForPlayerAction {
			slow, _ = eng.AdvanceIfTurnExhausted(slow, slowSrc)
		}
		for i := 0; !battle.IsTerminal(slow); i++ {
			if i > 500 {
				rt.Fatalf("step-by-step play did not finish")
			}
			slow, _, err = eng.Step(slow, battle.Attack{}, slowSrc)
			if err != nil {
				rt.Fatalf("step: %v", err)
			}
		}

		assert.Equal(rt, slow, fast)
		if fastSrc.Position() != slowSrc.Position() {
			rt.Fatalf("fast-forward drew %d values, step-by-step drew %d", fastSrc.Position(), slowSrc.Position())
		}
	})
}

func TestSkipToResolution_Runaway(t *testing.T) {
	tuning := battle.DefaultTuning()
	tuning.MaxResolutions = 5
	eng := newEngine(t, tuning)
	s := evenMatch(t, eng)

	out, err := eng.SkipToResolution(s, midSource())
	require.Error(t, err)
	assert.ErrorIs(t, err, battle.ErrRunawayBattle)
	require.NotNil(t, out)
	assert.False(t, battle.IsTerminal(out))

	acted := 0
	for _, ev := range out.History {
		if ev.Kind == battle.EventDamage {
			acted++
		}
	}
	assert.Equal(t, 5, acted, "exactly the bound is resolved")

	// The state stays playable step by step.
	next, _ := eng.AdvanceIfTurnExhausted(out, midSource())
	require.True(t, next.WaitingForPlayerAction)
	_, _, err = eng.Step(next, battle.Attack{}, midSource())
	assert.NoError(t, err)
}
