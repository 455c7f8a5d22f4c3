package session

import (
	"context"
	"time"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
)

// Record is the audit entry written once per finished battle. Seed and Draws
// are enough to replay the battle against the same content and tuning.
type Record struct {
	ID         string                  `json:"id"`
	PlayerName string                  `json:"player_name"`
	EnemyName  string                  `json:"enemy_name"`
	Request    battle.EncounterRequest `json:"request"`
	Seed       int64                   `json:"seed"`
	Draws      int64                   `json:"draws"`
	Report     battle.Report           `json:"report"`
	History    []battle.Event          `json:"history"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
}

// Recorder persists finished battles.
type Recorder interface {
	RecordBattle(ctx context.Context, rec Record) error
}
