package modifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlequest/internal/game/modifier"
)

func ironSkin() modifier.Template {
	return modifier.Template{ID: "iron_skin", Name: "Iron Skin", Kind: modifier.KindDefense, Mode: modifier.ModeFlat, Magnitude: 5, Duration: 3}
}

func focus() modifier.Template {
	return modifier.Template{ID: "focus", Kind: modifier.KindAttack, Mode: modifier.ModePercent, Magnitude: 20, Duration: 2, Unique: true}
}

func TestTemplate_Validate(t *testing.T) {
	require.NoError(t, ironSkin().Validate())

	bad := modifier.Template{Kind: "luck", Mode: "double", Duration: 0}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id must not be empty")
	assert.Contains(t, err.Error(), "kind")
	assert.Contains(t, err.Error(), "mode")
	assert.Contains(t, err.Error(), "magnitude")
	assert.Contains(t, err.Error(), "duration")
}

func TestTemplate_Instantiate(t *testing.T) {
	m := ironSkin().Instantiate("guard")
	assert.Equal(t, "iron_skin", m.ID)
	assert.Equal(t, "guard", m.Source)
	assert.Equal(t, 3, m.Remaining)
	assert.True(t, m.IsBuff())
	assert.Equal(t, "Iron Skin", m.Label())
}

func TestSet_Apply_Stacks(t *testing.T) {
	var s modifier.Set
	s.Apply(ironSkin().Instantiate("a"))
	s.Apply(ironSkin().Instantiate("b"))
	assert.Equal(t, 2, s.Count("iron_skin"))
	assert.Equal(t, 20, s.Effective(modifier.KindDefense, 10))
}

func TestSet_Apply_UniqueRefreshes(t *testing.T) {
	var s modifier.Set
	s.Apply(focus().Instantiate("a"))
	s.Tick()
	require.Equal(t, 1, s[0].Remaining)

	s.Apply(focus().Instantiate("b"))
	assert.Equal(t, 1, s.Count("focus"))
	assert.Equal(t, 2, s[0].Remaining)
}

func TestSet_Tick_ExpiresAfterDuration(t *testing.T) {
	var s modifier.Set
	s.Apply(ironSkin().Instantiate("a"))

	assert.Empty(t, s.Tick())
	assert.Empty(t, s.Tick())
	expired := s.Tick()
	require.Len(t, expired, 1)
	assert.Equal(t, "iron_skin", expired[0].ID)
	assert.Equal(t, 0, s.Count("iron_skin"))
	assert.Nil(t, s)
}

func TestSet_Tick_PreservesOrder(t *testing.T) {
	var s modifier.Set
	s.Apply(modifier.Template{ID: "a", Kind: modifier.KindAttack, Mode: modifier.ModeFlat, Magnitude: 1, Duration: 2}.Instantiate(""))
	s.Apply(modifier.Template{ID: "b", Kind: modifier.KindAttack, Mode: modifier.ModeFlat, Magnitude: 1, Duration: 1}.Instantiate(""))
	s.Apply(modifier.Template{ID: "c", Kind: modifier.KindAttack, Mode: modifier.ModeFlat, Magnitude: 1, Duration: 3}.Instantiate(""))
	s.Tick()
	require.Len(t, s, 2)
	assert.Equal(t, "a", s[0].ID)
	assert.Equal(t, "c", s[1].ID)
}

func TestSet_BuffsAndDebuffs(t *testing.T) {
	var s modifier.Set
	s.Apply(ironSkin().Instantiate(""))
	s.Apply(modifier.Template{ID: "weaken", Kind: modifier.KindAttack, Mode: modifier.ModeFlat, Magnitude: -3, Duration: 2}.Instantiate(""))
	assert.Len(t, s.Buffs(), 1)
	require.Len(t, s.Debuffs(), 1)
	assert.Equal(t, "weaken", s.Debuffs()[0].ID)
}

func TestSet_Effective_PercentAndFlat(t *testing.T) {
	var s modifier.Set
	s.Apply(focus().Instantiate(""))
	s.Apply(modifier.Template{ID: "sharpen", Kind: modifier.KindAttack, Mode: modifier.ModeFlat, Magnitude: 4, Duration: 2}.Instantiate(""))
	// 50 + 4 + 50*20/100
	assert.Equal(t, 64, s.Effective(modifier.KindAttack, 50))
	assert.Equal(t, 30, s.Effective(modifier.KindDefense, 30))
}

func TestSet_Effective_FloorsAtZero(t *testing.T) {
	var s modifier.Set
	s.Apply(modifier.Template{ID: "shatter", Kind: modifier.KindDefense, Mode: modifier.ModeFlat, Magnitude: -100, Duration: 1}.Instantiate(""))
	assert.Equal(t, 0, s.Effective(modifier.KindDefense, 10))
}

func TestSet_Clone_Independent(t *testing.T) {
	var s modifier.Set
	s.Apply(ironSkin().Instantiate(""))
	c := s.Clone()
	c.Tick()
	assert.Equal(t, 3, s[0].Remaining)
	assert.Nil(t, modifier.Set(nil).Clone())
}

// TestProperty_AdditiveStacking: two flat modifiers M1 and M2 of the same kind
// yield exactly base + M1 + M2.
func TestProperty_AdditiveStacking(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := rapid.IntRange(0, 500).Draw(rt, "base")
		m1 := rapid.IntRange(1, 100).Draw(rt, "m1")
		m2 := rapid.IntRange(1, 100).Draw(rt, "m2")
		var s modifier.Set
		s.Apply(modifier.Modifier{ID: "x", Kind: modifier.KindAttack, Mode: modifier.ModeFlat, Magnitude: m1, Remaining: 2})
		s.Apply(modifier.Modifier{ID: "y", Kind: modifier.KindAttack, Mode: modifier.ModeFlat, Magnitude: m2, Remaining: 3})
		assert.Equal(rt, base+m1+m2, s.Effective(modifier.KindAttack, base))
	})
}

// TestProperty_ExpiresAfterExactlyNTicks: a modifier of duration N survives
// N-1 ticks and is gone after the Nth.
func TestProperty_ExpiresAfterExactlyNTicks(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(rt, "duration")
		var s modifier.Set
		s.Apply(modifier.Modifier{ID: "m", Kind: modifier.KindSpeed, Mode: modifier.ModeFlat, Magnitude: 1, Remaining: n})
		for i := 1; i < n; i++ {
			if len(s.Tick()) != 0 || s.Count("m") != 1 {
				rt.Fatalf("expired early at tick %d of %d", i, n)
			}
		}
		if len(s.Tick()) != 1 || s.Count("m") != 0 {
			rt.Fatalf("did not expire at tick %d", n)
		}
	})
}
