package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/session"
	"github.com/cory-johannsen/idlequest/internal/storage/postgres"
	"github.com/cory-johannsen/idlequest/internal/testutil"
)

func sampleRecord(player string, finished time.Time) session.Record {
	return session.Record{
		ID:         uuid.NewString(),
		PlayerName: player,
		EnemyName:  "Dire Wolf",
		Request:    battle.EncounterRequest{Kind: battle.KindElite, RiskTier: 3},
		Seed:       9001,
		Draws:      17,
		Report: battle.Report{
			Outcome:        battle.OutcomeVictory,
			Victory:        true,
			Rounds:         4,
			HPLoss:         22,
			FinalHP:        78,
			FinalMana:      10,
			ExpChange:      120,
			CurrencyChange: 45,
			Drops:          []battle.Drop{{ItemID: "potion", Quantity: 1}},
		},
		History: []battle.Event{
			{Seq: 1, Round: 1, Kind: battle.EventEncounter, Text: "A Dire Wolf appears."},
			{Seq: 2, Round: 1, Kind: battle.EventDamage, Actor: battle.SidePlayer, Target: battle.SideEnemy, Amount: 12, TargetHP: 88, Text: "Hero hits Dire Wolf for 12."},
		},
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

func TestBattleRepository_RecordAndGet(t *testing.T) {
	repo := postgres.NewBattleRepository(testutil.NewPool(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	rec := sampleRecord("hero", now)
	require.NoError(t, repo.RecordBattle(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.PlayerName, got.PlayerName)
	assert.Equal(t, rec.Request, got.Request)
	assert.Equal(t, rec.Seed, got.Seed)
	assert.Equal(t, rec.Draws, got.Draws)
	assert.Equal(t, rec.Report.ExpChange, got.Report.ExpChange)
	assert.Equal(t, rec.Report.Drops, got.Report.Drops)
	assert.Equal(t, rec.History, got.History)
	assert.WithinDuration(t, rec.FinishedAt, got.FinishedAt, time.Millisecond)
}

func TestBattleRepository_DuplicateID(t *testing.T) {
	repo := postgres.NewBattleRepository(testutil.NewPool(t))
	ctx := context.Background()

	rec := sampleRecord("hero", time.Now().UTC())
	require.NoError(t, repo.RecordBattle(ctx, rec))
	err := repo.RecordBattle(ctx, rec)
	assert.ErrorIs(t, err, postgres.ErrBattleExists)
}

func TestBattleRepository_GetNotFound(t *testing.T) {
	repo := postgres.NewBattleRepository(testutil.NewPool(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, postgres.ErrBattleNotFound)

	_, err = repo.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, postgres.ErrBattleNotFound)
}

func TestBattleRepository_NilHistoryStoredEmpty(t *testing.T) {
	repo := postgres.NewBattleRepository(testutil.NewPool(t))
	ctx := context.Background()

	rec := sampleRecord("hero", time.Now().UTC())
	rec.History = nil
	require.NoError(t, repo.RecordBattle(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.History)
}

func TestBattleRepository_ListRecent(t *testing.T) {
	repo := postgres.NewBattleRepository(testutil.NewPool(t))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := sampleRecord("hero", base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, rec.ID)
		require.NoError(t, repo.RecordBattle(ctx, rec))
	}
	require.NoError(t, repo.RecordBattle(ctx, sampleRecord("rival", base)))

	got, err := repo.ListRecent(ctx, "hero", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)
	assert.Equal(t, battle.KindElite, got[0].Kind)
	assert.Equal(t, battle.OutcomeVictory, got[0].Outcome)

	none, err := repo.ListRecent(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBattleRepository_RejectsBadInput(t *testing.T) {
	// Validation happens before any query, so no database is needed.
	repo := postgres.NewBattleRepository(nil)
	ctx := context.Background()

	rec := sampleRecord("hero", time.Now())
	rec.ID = "battle-1"
	assert.Error(t, repo.RecordBattle(ctx, rec))

	_, err := repo.ListRecent(ctx, "hero", 0)
	assert.Error(t, err)
}
