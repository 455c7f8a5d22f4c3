package encounter

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/dice"
)

// DropEntry is a single item entry in a drop table.
type DropEntry struct {
	ItemID string  `yaml:"item"`
	Chance float64 `yaml:"chance"`
	MinQty int     `yaml:"min_qty"`
	MaxQty int     `yaml:"max_qty"`
	// RiskBonus is added to Chance for every risk tier above 1.
	RiskBonus float64 `yaml:"risk_bonus"`
}

// Validate checks the entry invariants.
func (d DropEntry) Validate() error {
	if d.ItemID == "" {
		return fmt.Errorf("item id must not be empty")
	}
	if d.Chance <= 0 || d.Chance > 1.0 {
		return fmt.Errorf("item %q: chance must be in (0, 1.0], got %f", d.ItemID, d.Chance)
	}
	if d.MinQty < 1 {
		return fmt.Errorf("item %q: min_qty must be >= 1, got %d", d.ItemID, d.MinQty)
	}
	if d.MinQty > d.MaxQty {
		return fmt.Errorf("item %q: min_qty (%d) must be <= max_qty (%d)", d.ItemID, d.MinQty, d.MaxQty)
	}
	if d.RiskBonus < 0 {
		return fmt.Errorf("item %q: risk_bonus must be >= 0", d.ItemID)
	}
	return nil
}

// chanceAt returns the entry's drop chance at riskTier, capped at 1.
func (d DropEntry) chanceAt(riskTier int) float64 {
	return math.Min(1, d.Chance+d.RiskBonus*float64(max(riskTier, 1)-1))
}

// DropTables holds one drop table per encounter kind. It implements
// battle.RewardTable.
type DropTables struct {
	tables map[battle.EncounterKind][]DropEntry
}

type dropFile struct {
	Tables map[battle.EncounterKind][]DropEntry `yaml:"tables"`
}

// NewDropTables validates and wraps the given tables.
func NewDropTables(tables map[battle.EncounterKind][]DropEntry) (*DropTables, error) {
	for kind, entries := range tables {
		if !kind.Valid() {
			return nil, fmt.Errorf("drop tables: unknown encounter kind %q", kind)
		}
		for i, e := range entries {
			if err := e.Validate(); err != nil {
				return nil, fmt.Errorf("drop tables: %s[%d]: %w", kind, i, err)
			}
		}
	}
	return &DropTables{tables: tables}, nil
}

// LoadDropTablesFromBytes parses drop tables from raw YAML.
func LoadDropTablesFromBytes(data []byte) (*DropTables, error) {
	var f dropFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing drop tables YAML: %w", err)
	}
	return NewDropTables(f.Tables)
}

// LoadDropTables reads drop tables from the YAML file at path.
func LoadDropTables(path string) (*DropTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading drop tables %q: %w", path, err)
	}
	dt, err := LoadDropTablesFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return dt, nil
}

// Entries returns the table for kind.
func (dt *DropTables) Entries(kind battle.EncounterKind) []DropEntry {
	return dt.tables[kind]
}

// RollDrops rolls the table for kind. A lost or fled battle drops nothing and
// draws nothing from src.
//
// Postcondition: each returned quantity is in [MinQty, MaxQty] of its entry.
func (dt *DropTables) RollDrops(kind battle.EncounterKind, riskTier int, victory bool, src battle.Source) ([]battle.Drop, error) {
	if !victory {
		return nil, nil
	}
	var drops []battle.Drop
	for _, e := range dt.tables[kind] {
		if !dice.Chance(src, e.chanceAt(riskTier)) {
			continue
		}
		qty := e.MinQty
		if spread := e.MaxQty - e.MinQty; spread > 0 {
			qty += src.Intn(spread + 1)
		}
		drops = append(drops, battle.Drop{ItemID: e.ItemID, Quantity: qty})
	}
	return drops, nil
}

var _ battle.RewardTable = (*DropTables)(nil)
