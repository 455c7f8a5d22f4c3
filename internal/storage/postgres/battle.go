package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/session"
)

// ErrBattleNotFound is returned when a battle record lookup yields no results.
var ErrBattleNotFound = errors.New("battle record not found")

// ErrBattleExists is returned when a battle id is recorded twice.
var ErrBattleExists = errors.New("battle record already exists")

// BattleSummary is one row of a battle listing.
type BattleSummary struct {
	ID         string
	PlayerName string
	EnemyName  string
	Kind       battle.EncounterKind
	RiskTier   int
	Outcome    battle.Outcome
	Rounds     int
	FinishedAt time.Time
}

// BattleRepository persists finished battles as an audit and replay ledger.
type BattleRepository struct {
	db *pgxpool.Pool
}

var _ session.Recorder = (*BattleRepository)(nil)

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

// RecordBattle inserts a finished battle. Request, report, and history are
// stored as JSONB.
//
// Precondition: rec.ID must be a UUID.
// Postcondition: returns ErrBattleExists if rec.ID was already recorded.
func (r *BattleRepository) RecordBattle(ctx context.Context, rec session.Record) error {
	if _, err := uuid.Parse(rec.ID); err != nil {
		return fmt.Errorf("recording battle: id %q: %w", rec.ID, err)
	}
	history := rec.History
	if history == nil {
		history = []battle.Event{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO battle_records
		     (id, player_name, enemy_name, encounter_kind, risk_tier, outcome, rounds,
		      seed, draws, request, report, history, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.PlayerName, rec.EnemyName, string(rec.Request.Kind), rec.Request.RiskTier,
		string(rec.Report.Outcome), rec.Report.Rounds, rec.Seed, rec.Draws,
		rec.Request, rec.Report, history, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("recording battle %s: %w", rec.ID, ErrBattleExists)
		}
		return fmt.Errorf("recording battle %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the full record of a battle.
//
// Postcondition: returns ErrBattleNotFound if id was never recorded.
func (r *BattleRepository) Get(ctx context.Context, id string) (session.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return session.Record{}, fmt.Errorf("battle %q: %w", id, ErrBattleNotFound)
	}
	var rec session.Record
	err := r.db.QueryRow(ctx,
		`SELECT id, player_name, enemy_name, seed, draws, request, report, history, started_at, finished_at
		 FROM battle_records WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.PlayerName, &rec.EnemyName, &rec.Seed, &rec.Draws,
		&rec.Request, &rec.Report, &rec.History, &rec.StartedAt, &rec.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Record{}, fmt.Errorf("battle %s: %w", id, ErrBattleNotFound)
	}
	if err != nil {
		return session.Record{}, fmt.Errorf("loading battle %s: %w", id, err)
	}
	return rec, nil
}

// ListRecent returns up to limit of a player's battles, newest first.
//
// Precondition: limit > 0.
func (r *BattleRepository) ListRecent(ctx context.Context, playerName string, limit int) ([]BattleSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("listing battles: limit must be > 0, got %d", limit)
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, player_name, enemy_name, encounter_kind, risk_tier, outcome, rounds, finished_at
		 FROM battle_records
		 WHERE player_name = $1
		 ORDER BY finished_at DESC
		 LIMIT $2`, playerName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing battles for %q: %w", playerName, err)
	}
	defer rows.Close()

	out := []BattleSummary{}
	for rows.Next() {
		var s BattleSummary
		var kind, outcome string
		if err := rows.Scan(&s.ID, &s.PlayerName, &s.EnemyName, &kind, &s.RiskTier, &outcome, &s.Rounds, &s.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning battle row: %w", err)
		}
		s.Kind = battle.EncounterKind(kind)
		s.Outcome = battle.Outcome(outcome)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing battles for %q: %w", playerName, err)
	}
	return out, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
