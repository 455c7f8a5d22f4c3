package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/catalog"
	"github.com/cory-johannsen/idlequest/internal/game/dice"
	"github.com/cory-johannsen/idlequest/internal/game/session"
)

type stubGenerator struct {
	desc battle.EnemyDescriptor
	err  error
}

func (g stubGenerator) Generate(battle.PowerSnapshot, battle.EncounterRequest, battle.Source) (battle.EnemyDescriptor, error) {
	return g.desc, g.err
}

type stubTable struct{ drops []battle.Drop }

func (t stubTable) RollDrops(_ battle.EncounterKind, _ int, victory bool, _ battle.Source) ([]battle.Drop, error) {
	if !victory {
		return nil, nil
	}
	return t.drops, nil
}

type memRecorder struct {
	mu      sync.Mutex
	records []session.Record
	err     error
}

func (r *memRecorder) RecordBattle(_ context.Context, rec session.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return r.err
}

func newCatalog(t testing.TB) *catalog.Registry {
	t.Helper()
	reg := catalog.NewRegistry()
	require.NoError(t, reg.RegisterSkill(&catalog.Skill{
		ID: "slash", Name: "Slash", Category: catalog.CategoryAttack, Target: catalog.TargetEnemy, Cooldown: 1,
		Effects: []catalog.Effect{catalog.Damage{Base: 10, Multiplier: 1, Kind: catalog.Physical, CritMultiplier: 1}},
	}))
	require.NoError(t, reg.RegisterItem(&catalog.Item{
		ID: "potion", Name: "Potion", Cooldown: 2,
		Effects: []catalog.Effect{catalog.Heal{Amount: 100}},
	}))
	return reg
}

func player() battle.PlayerProfile {
	return battle.PlayerProfile{
		Name: "Lin", Tier: 1, HP: 500, MaxHP: 500, Mana: 100, MaxMana: 100,
		Attack: 50, Defense: 10, Spirit: 10, Speed: 20,
		EquippedSkills: []string{"slash"},
		Inventory:      []battle.InventoryItem{{ItemID: "potion", Quantity: 1}},
	}
}

func bandit() battle.EnemyDescriptor {
	return battle.EnemyDescriptor{Name: "Bandit", HP: 200, Attack: 30, Defense: 5, Speed: 10}
}

type fixture struct {
	mgr      *session.Manager
	recorder *memRecorder
	logs     *observer.ObservedLogs
}

func newFixture(t testing.TB, tuning battle.Tuning, desc battle.EnemyDescriptor) fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	rec := &memRecorder{}
	eng := battle.NewEngine(newCatalog(t), tuning, nil)
	mgr := session.NewManager(eng, stubGenerator{desc: desc}, stubTable{drops: []battle.Drop{{ItemID: "potion", Quantity: 1}}},
		zap.New(core), session.Options{
			Recorder: rec,
			Seeds:    dice.NewSeededSource(99),
			Now:      func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		})
	return fixture{mgr: mgr, recorder: rec, logs: logs}
}

func request() battle.EncounterRequest {
	return battle.EncounterRequest{Kind: battle.KindNormal, RiskTier: 1}
}

func playOut(t *testing.T, mgr *session.Manager, id string) session.View {
	t.Helper()
	ctx := context.Background()
	v, err := mgr.Get(ctx, id)
	require.NoError(t, err)
	for i := 0; !battle.IsTerminal(v.State); i++ {
		require.Less(t, i, 1000, "battle did not end")
		v, _, err = mgr.Act(ctx, id, battle.Attack{})
		require.NoError(t, err)
	}
	return v
}

func TestManager_StartAndGet(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx := context.Background()

	v, err := f.mgr.Start(ctx, player(), battle.EncounterRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.NotZero(t, v.Seed)
	assert.Equal(t, battle.KindNormal, v.Request.Kind, "request is normalized")
	assert.True(t, v.State.WaitingForPlayerAction)
	assert.Equal(t, 1, f.mgr.Active())

	got, err := f.mgr.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Same(t, v.State, got.State)
	assert.Equal(t, 1, f.logs.FilterMessage("battle started").Len())
}

func TestManager_StartResolvesEnemyOpening(t *testing.T) {
	fast := bandit()
	fast.Speed = 40
	f := newFixture(t, battle.DefaultTuning(), fast)

	v, err := f.mgr.Start(context.Background(), player(), request())
	require.NoError(t, err)
	assert.Equal(t, battle.SideEnemy, v.State.FirstActor)
	assert.True(t, v.State.WaitingForPlayerAction)
	assert.Less(t, v.State.Player.HP, 500, "the enemy struck first")
}

func TestManager_StartGenerationFailure(t *testing.T) {
	core, _ := observer.New(zap.DebugLevel)
	eng := battle.NewEngine(newCatalog(t), battle.DefaultTuning(), nil)
	mgr := session.NewManager(eng, stubGenerator{err: errors.New("no templates")}, nil, zap.New(core), session.Options{})

	_, err := mgr.Start(context.Background(), player(), request())
	require.Error(t, err)
	assert.ErrorIs(t, err, battle.ErrGenerationFailure)
	assert.Zero(t, mgr.Active())
}

func TestManager_ActRejectedLeavesBattleUntouched(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)

	_, _, err = f.mgr.Act(ctx, v.ID, battle.UseItem{ItemID: "ether"})
	assert.ErrorIs(t, err, battle.ErrItemUnavailable)
	_, _, err = f.mgr.Act(ctx, v.ID, nil)
	assert.ErrorIs(t, err, battle.ErrInvalidActionForState)

	got, err := f.mgr.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Same(t, v.State, got.State)
}

func TestManager_ActUnknownBattle(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	_, _, err := f.mgr.Act(context.Background(), "missing", battle.Attack{})
	assert.ErrorIs(t, err, session.ErrUnknownBattle)
}

func TestManager_FinishExactlyOnce(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)

	final := playOut(t, f.mgr, v.ID)
	require.Equal(t, battle.OutcomeVictory, final.State.Outcome)

	report, err := f.mgr.Finish(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, report.Victory)
	assert.Positive(t, report.ExpChange)
	assert.Equal(t, []battle.Drop{{ItemID: "potion", Quantity: 1}}, report.Drops)

	_, err = f.mgr.Finish(ctx, v.ID)
	assert.ErrorIs(t, err, session.ErrUnknownBattle)
	_, err = f.mgr.Get(ctx, v.ID)
	assert.ErrorIs(t, err, session.ErrUnknownBattle)
	assert.Zero(t, f.mgr.Active())

	require.Len(t, f.recorder.records, 1)
	rec := f.recorder.records[0]
	assert.Equal(t, v.ID, rec.ID)
	assert.Equal(t, v.Seed, rec.Seed)
	assert.Positive(t, rec.Draws)
	assert.Equal(t, "Bandit", rec.EnemyName)
	assert.Equal(t, report, rec.Report)
	assert.Equal(t, final.State.History, rec.History)
}

func TestManager_FinishOngoingBattle(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)

	_, err = f.mgr.Finish(ctx, v.ID)
	assert.ErrorIs(t, err, battle.ErrInvalidActionForState)
	assert.Equal(t, 1, f.mgr.Active(), "battle stays live")
	assert.Empty(t, f.recorder.records)
}

func TestManager_FinishRecorderFailureStillReports(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	f.recorder.err = errors.New("db down")
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)
	playOut(t, f.mgr, v.ID)

	report, err := f.mgr.Finish(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, report.Victory)
	logged := f.logs.FilterMessage("recording battle failed").All()
	require.Len(t, logged, 1)
	assert.Equal(t, zapcore.ErrorLevel, logged[0].Level)
}

func TestManager_Skip(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)

	skipped, evs, err := f.mgr.Skip(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, battle.IsTerminal(skipped.State))
	assert.NotEmpty(t, evs)
	assert.Equal(t, skipped.State.History[len(skipped.State.History)-len(evs):], evs)

	_, err = f.mgr.Finish(ctx, v.ID)
	assert.NoError(t, err)
}

func TestManager_SkipRunawayKeepsBattlePlayable(t *testing.T) {
	tuning := battle.DefaultTuning()
	tuning.MaxResolutions = 2
	f := newFixture(t, tuning, bandit())
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)

	partial, _, err := f.mgr.Skip(ctx, v.ID)
	require.ErrorIs(t, err, battle.ErrRunawayBattle)
	assert.False(t, battle.IsTerminal(partial.State))
	assert.Equal(t, 1, f.logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("fast-forward hit its resolution bound").Len())

	got, err := f.mgr.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Same(t, partial.State, got.State)

	final := playOut(t, f.mgr, v.ID)
	assert.True(t, battle.IsTerminal(final.State))
}

func TestManager_Abandon(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)

	require.NoError(t, f.mgr.Abandon(ctx, v.ID))
	_, err = f.mgr.Get(ctx, v.ID)
	assert.ErrorIs(t, err, session.ErrUnknownBattle)
	assert.ErrorIs(t, f.mgr.Abandon(ctx, v.ID), session.ErrUnknownBattle)
	assert.Empty(t, f.recorder.records)
}

func TestManager_CancelledContext(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.mgr.Start(ctx, player(), request())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_Watch(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)

	events, cancel, err := f.mgr.Watch(ctx, v.ID)
	require.NoError(t, err)
	defer cancel()

	_, evs, err := f.mgr.Act(ctx, v.ID, battle.Attack{})
	require.NoError(t, err)
	assert.Equal(t, evs, <-events)

	playOut(t, f.mgr, v.ID)
	_, err = f.mgr.Finish(ctx, v.ID)
	require.NoError(t, err)
	for range events {
	}
	_, open := <-events
	assert.False(t, open, "feed closes when the battle finishes")
}

func TestManager_WatchCancel(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)

	events, cancel, err := f.mgr.Watch(ctx, v.ID)
	require.NoError(t, err)
	cancel()
	_, open := <-events
	assert.False(t, open)

	_, _, err = f.mgr.Act(ctx, v.ID, battle.Attack{})
	assert.NoError(t, err, "a cancelled watcher does not affect play")
}

func TestManager_ConcurrentActsAreSerialized(t *testing.T) {
	f := newFixture(t, battle.DefaultTuning(), bandit())
	ctx := context.Background()
	v, err := f.mgr.Start(ctx, player(), request())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = f.mgr.Act(ctx, v.ID, battle.Attack{})
		}()
	}
	wg.Wait()

	got, err := f.mgr.Get(ctx, v.ID)
	require.NoError(t, err)
	for i, ev := range got.State.History {
		assert.Equal(t, i, ev.Seq)
	}
}

func TestProperty_SameSeedSameBattle(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		run := func() *battle.State {
			eng := battle.NewEngine(newCatalog(t), battle.DefaultTuning(), nil)
			mgr := session.NewManager(eng, stubGenerator{desc: bandit()}, nil, zap.NewNop(),
				session.Options{Seeds: dice.NewSeededSource(seed)})
			v, err := mgr.Start(context.Background(), player(), request())
			if err != nil {
				rt.Fatalf("start: %v", err)
			}
			v, _, err = mgr.Skip(context.Background(), v.ID)
			if err != nil {
				rt.Fatalf("skip: %v", err)
			}
			return v.State
		}
		a, b := run(), run()
		if a.Outcome != b.Outcome || a.Round != b.Round || len(a.History) != len(b.History) {
			rt.Fatalf("divergent battles for seed %d", seed)
		}
	})
}
