package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlequest/internal/game/dice"
)

// fixedSrc always returns val, clamped to [0, n).
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

// TestRollResult_Total verifies Total() == sum(Dice) + Modifier.
func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
}

func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	assert.Panics(t, func() { _ = dice.RollResult{}.String() })
}

func TestRollResult_String_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.StringMatching(`[0-9]+d[0-9]+[+-][0-9]+`).Draw(rt, "expression")
		rolled := rapid.SliceOfN(rapid.IntRange(1, 20), 1, 10).Draw(rt, "dice")
		r := dice.RollResult{Expression: expr, Dice: rolled, Modifier: rapid.IntRange(-100, 100).Draw(rt, "modifier")}
		s := r.String()
		assert.True(rt, strings.HasPrefix(s, expr))
		assert.True(rt, strings.HasSuffix(s, fmt.Sprintf("= %d", r.Total())))
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		in    string
		count int
		sides int
		mod   int
	}{
		{"40", 0, 0, 40},
		{"d20", 1, 20, 0},
		{"2d6", 2, 6, 0},
		{"3d10+40", 3, 10, 40},
		{"4D8-2", 4, 8, -2},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			e, err := dice.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.count, e.Count)
			assert.Equal(t, tt.sides, e.Sides)
			assert.Equal(t, tt.mod, e.Modifier)
			assert.Equal(t, tt.in, e.Raw)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "0d6", "2d1", "2dx", "2d6+y"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected error for %q", in)
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("nope") })
}

func TestRoll_ConstantConsumesNoDraws(t *testing.T) {
	src := dice.NewSeededSource(7)
	r := dice.Roll(dice.MustParse("40"), src)
	assert.Equal(t, 40, r.Total())
	assert.Equal(t, int64(0), src.Position())
}

func TestRoll_WithinBounds_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 8).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-10, 50).Draw(rt, "mod")
		e := dice.MustParse(fmt.Sprintf("%dd%d%+d", count, sides, mod))
		r := dice.Roll(e, dice.NewSeededSource(rapid.Int64().Draw(rt, "seed")))
		if r.Total() < e.Min() || r.Total() > e.Max() {
			rt.Fatalf("total %d outside [%d, %d]", r.Total(), e.Min(), e.Max())
		}
		assert.Len(rt, r.Dice, count)
	})
}

func TestEntropySource_Intn_InRange(t *testing.T) {
	src := dice.NewEntropySource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 6)
	}
}

func TestEntropySource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewEntropySource().Intn(0) })
}

func TestNewSeed_PositiveAndOdd(t *testing.T) {
	for i := 0; i < 100; i++ {
		seed := dice.NewSeed(dice.NewEntropySource())
		assert.Greater(t, seed, int64(0))
		assert.Equal(t, int64(1), seed%2)
	}
}

func TestSeededSource_Deterministic(t *testing.T) {
	a := dice.NewSeededSource(99)
	b := dice.NewSeededSource(99)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Intn(100), b.Intn(100))
	}
	assert.Equal(t, int64(50), a.Position())
	assert.Equal(t, int64(99), a.Seed())
}

func TestSeededSource_Restore_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		skip := rapid.IntRange(0, 200).Draw(rt, "skip")
		orig := dice.NewSeededSource(seed)
		for i := 0; i < skip; i++ {
			orig.Intn(1000)
		}
		restored := dice.RestoreSeededSource(seed, orig.Position())
		for i := 0; i < 10; i++ {
			if a, b := orig.Intn(1000), restored.Intn(1000); a != b {
				rt.Fatalf("draw %d diverged after restore: %d != %d", i, a, b)
			}
		}
	})
}

func TestRoller_LogsLabelAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	roller := dice.NewRoller(fixedSrc{val: 2}, zap.New(core))

	r, err := roller.RollExpr("goblin.hp", "2d6+1")
	require.NoError(t, err)
	assert.Equal(t, 7, r.Total())

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "stat rolled", entry.Message)
	assert.Equal(t, "goblin.hp", entry.ContextMap()["stat"])
	assert.Equal(t, "2d6+1", entry.ContextMap()["expression"])
	assert.Equal(t, int64(7), entry.ContextMap()["total"])
}

func TestRoller_ParseError(t *testing.T) {
	roller := dice.NewRoller(fixedSrc{}, zap.NewNop())
	_, err := roller.RollExpr("goblin.hp", "bogus")
	assert.Error(t, err)
}

func TestChance(t *testing.T) {
	tests := []struct {
		name string
		draw int
		p    float64
		want bool
	}{
		{"certain", dice.ChanceScale - 1, 1, true},
		{"impossible", 0, 0, false},
		{"below threshold", 2499, 0.25, true},
		{"at threshold", 2500, 0.25, false},
		{"clamped above one", dice.ChanceScale - 1, 3, true},
		{"clamped below zero", 0, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dice.Chance(fixedSrc{val: tt.draw}, tt.p))
		})
	}
}

func TestChance_DrawsOnce(t *testing.T) {
	src := dice.NewSeededSource(3)
	dice.Chance(src, 0.5)
	assert.Equal(t, int64(1), src.Position())
}

func TestWeighted(t *testing.T) {
	weights := []int{1, 0, 3}
	assert.Equal(t, 0, dice.Weighted(fixedSrc{val: 0}, weights))
	assert.Equal(t, 2, dice.Weighted(fixedSrc{val: 1}, weights))
	assert.Equal(t, 2, dice.Weighted(fixedSrc{val: 3}, weights))
	assert.Panics(t, func() { dice.Weighted(fixedSrc{}, []int{0, 0}) })
}

func TestWeighted_NeverPicksZeroWeight_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		weights := rapid.SliceOfN(rapid.IntRange(0, 5), 1, 8).Draw(rt, "weights")
		weights[rapid.IntRange(0, len(weights)-1).Draw(rt, "positive")] = rapid.IntRange(1, 5).Draw(rt, "w")
		src := dice.NewSeededSource(rapid.Int64().Draw(rt, "seed"))
		i := dice.Weighted(src, weights)
		if weights[i] == 0 {
			rt.Fatalf("picked zero-weight index %d of %v", i, weights)
		}
	})
}
