package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/idlequest/internal/game/ai"
	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/catalog"
	"github.com/cory-johannsen/idlequest/internal/scripting"
)

// TestContent_PolicyDomainsLoad verifies every shipped policy domain loads with
// its scripts and references only catalog skills.
func TestContent_PolicyDomainsLoad(t *testing.T) {
	cat, err := catalog.LoadDirectory("../../../content/skills")
	require.NoError(t, err)
	mgr := scripting.NewManager(zaptest.NewLogger(t), 0)
	t.Cleanup(mgr.Close)

	reg, err := ai.LoadRegistry("../../../content/policies", mgr)
	require.NoError(t, err, "content/policies should load without error")
	require.NotEmpty(t, reg.DomainIDs())

	for _, id := range reg.DomainIDs() {
		p, _ := reg.PlannerFor(id)
		for _, sk := range p.Domain().SkillIDs() {
			_, ok := cat.Skill(sk)
			assert.True(t, ok, "domain %q uses unknown skill %q", id, sk)
		}
	}
}

func TestContent_CunningPolicy(t *testing.T) {
	cat, err := catalog.LoadDirectory("../../../content/skills")
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	mgr := scripting.NewManager(logger, 0)
	t.Cleanup(mgr.Close)
	reg, err := ai.LoadRegistry("../../../content/policies", mgr)
	require.NoError(t, err)
	planner, ok := reg.PlannerFor("cunning")
	require.True(t, ok)
	p := ai.NewPolicy(planner, battle.GreedyPolicy{Tuning: battle.DefaultTuning()}, logger)

	s := enemyTurn()
	s.Enemy.Skills = []string{"club_smash", "regenerate", "hex", "howl"}
	s.Enemy.Mana = 60
	s.Enemy.MaxMana = 60

	// fresh: curse the opponent first
	assert.Equal(t, battle.UseSkill{SkillID: "hex"}, p.Choose(s, cat))

	// hex spent: rally instead
	s.Enemy.Cooldowns["hex"] = 3
	assert.Equal(t, battle.UseSkill{SkillID: "howl"}, p.Choose(s, cat))

	// nothing to set up: hit hardest
	s.Enemy.Cooldowns["howl"] = 3
	assert.Equal(t, battle.UseSkill{SkillID: "club_smash"}, p.Choose(s, cat))

	// badly hurt: regenerate
	s.Enemy.HP = 30
	assert.Equal(t, battle.UseSkill{SkillID: "regenerate"}, p.Choose(s, cat))

	// nothing ready at all: basic attack
	s.Enemy.Cooldowns["regenerate"] = 2
	s.Enemy.Cooldowns["club_smash"] = 1
	assert.Equal(t, battle.Attack{}, p.Choose(s, cat))
}
