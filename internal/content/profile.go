package content

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
)

type profileFile struct {
	Name           string   `yaml:"name"`
	RankLabel      string   `yaml:"rank_label"`
	Tier           int      `yaml:"tier"`
	HP             int      `yaml:"hp"`
	MaxHP          int      `yaml:"max_hp"`
	Mana           int      `yaml:"mana"`
	MaxMana        int      `yaml:"max_mana"`
	Attack         int      `yaml:"attack"`
	Defense        int      `yaml:"defense"`
	Spirit         int      `yaml:"spirit"`
	Speed          int      `yaml:"speed"`
	EquippedSkills []string `yaml:"equipped_skills"`
	GearSkills     []string `yaml:"gear_skills"`
	Inventory      []struct {
		Item     string `yaml:"item"`
		Quantity int    `yaml:"quantity"`
	} `yaml:"inventory"`
	Companion *struct {
		Name   string   `yaml:"name"`
		Attack int      `yaml:"attack"`
		Spirit int      `yaml:"spirit"`
		Skills []string `yaml:"skills"`
	} `yaml:"companion"`
}

// LoadProfileFromBytes parses and validates a player profile.
func LoadProfileFromBytes(data []byte) (battle.PlayerProfile, error) {
	var f profileFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return battle.PlayerProfile{}, fmt.Errorf("parsing profile: %w", err)
	}
	p := battle.PlayerProfile{
		Name:           f.Name,
		RankLabel:      f.RankLabel,
		Tier:           f.Tier,
		HP:             f.HP,
		MaxHP:          f.MaxHP,
		Mana:           f.Mana,
		MaxMana:        f.MaxMana,
		Attack:         f.Attack,
		Defense:        f.Defense,
		Spirit:         f.Spirit,
		Speed:          f.Speed,
		EquippedSkills: f.EquippedSkills,
		GearSkills:     f.GearSkills,
	}
	for _, inv := range f.Inventory {
		p.Inventory = append(p.Inventory, battle.InventoryItem{ItemID: inv.Item, Quantity: inv.Quantity})
	}
	if f.Companion != nil {
		p.Companion = &battle.CompanionProfile{
			Name:   f.Companion.Name,
			Attack: f.Companion.Attack,
			Spirit: f.Companion.Spirit,
			Skills: f.Companion.Skills,
		}
	}
	if err := p.Validate(); err != nil {
		return battle.PlayerProfile{}, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return p, nil
}

// LoadProfile reads a player profile YAML file.
func LoadProfile(path string) (battle.PlayerProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return battle.PlayerProfile{}, fmt.Errorf("reading profile %s: %w", path, err)
	}
	return LoadProfileFromBytes(data)
}
