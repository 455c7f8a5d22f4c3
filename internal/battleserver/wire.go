package battleserver

import (
	"bytes"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
)

// StartBattleRequest is the StartBattle payload.
type StartBattleRequest struct {
	Player    battle.PlayerProfile    `json:"player"`
	Encounter battle.EncounterRequest `json:"encounter"`
}

// BattleRef names a live battle.
type BattleRef struct {
	BattleID string `json:"battle_id"`
}

// ActionRequest is the SubmitAction payload. ID is the skill or item id for
// actions that take one.
type ActionRequest struct {
	BattleID string `json:"battle_id"`
	Action   string `json:"action"`
	ID       string `json:"id,omitempty"`
}

// BattleView is the reply of every call that returns battle state. Seed is a
// decimal string so it survives the float64 numbers of google.protobuf.Struct.
type BattleView struct {
	BattleID  string                  `json:"battle_id"`
	Seed      string                  `json:"seed"`
	Encounter battle.EncounterRequest `json:"encounter"`
	State     *battle.State           `json:"state"`
	// Events holds only the events produced by this call.
	Events []battle.Event `json:"events"`
	// Error is set when a skip stopped at its resolution bound.
	Error string `json:"error,omitempty"`
}

// FinishResponse is the FinishBattle reply.
type FinishResponse struct {
	BattleID string        `json:"battle_id"`
	Report   battle.Report `json:"report"`
}

// EventBatch is one WatchBattle stream message.
type EventBatch struct {
	BattleID string         `json:"battle_id"`
	Events   []battle.Event `json:"events"`
}

// encode converts a JSON-tagged payload to a Struct.
func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return out, nil
}

// decode fills v from a Struct. Unknown fields are rejected.
func decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	return nil
}
