// Package content loads every content file a battle needs and wires the
// engine's collaborators from it.
package content

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idlequest/internal/config"
	"github.com/cory-johannsen/idlequest/internal/game/ai"
	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/catalog"
	"github.com/cory-johannsen/idlequest/internal/game/dice"
	"github.com/cory-johannsen/idlequest/internal/game/encounter"
	"github.com/cory-johannsen/idlequest/internal/game/session"
	"github.com/cory-johannsen/idlequest/internal/scripting"
)

// Bundle is the loaded content.
type Bundle struct {
	Catalog   *catalog.Registry
	Generator *encounter.Generator
	Drops     *encounter.DropTables
	// Planner is nil when the greedy policy is selected.
	Planner *ai.Planner

	scripts *scripting.Manager
	logger  *zap.Logger
}

// Load reads the catalog, enemy templates, drop tables, and the configured
// enemy policy domain.
//
// Precondition: cfg has passed config validation; logger must be non-nil.
// Postcondition: every enemy skill and drop item resolves in the catalog, or
// a non-nil error is returned.
func Load(cfg config.ContentConfig, logger *zap.Logger) (*Bundle, error) {
	start := time.Now()

	cat, err := catalog.LoadDirectory(cfg.SkillsDir)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	logger.Info("catalog loaded",
		zap.Int("skills", len(cat.Skills())),
		zap.Int("items", len(cat.Items())),
	)

	templates, err := encounter.LoadTemplates(cfg.EncountersDir)
	if err != nil {
		return nil, fmt.Errorf("loading encounters: %w", err)
	}
	gen := encounter.NewGenerator(templates, logger)
	if err := gen.CheckSkills(cat); err != nil {
		return nil, fmt.Errorf("checking encounter skills: %w", err)
	}
	logger.Info("encounters loaded", zap.Int("templates", len(templates)))

	drops, err := encounter.LoadDropTables(cfg.DropsFile)
	if err != nil {
		return nil, fmt.Errorf("loading drop tables: %w", err)
	}
	if err := checkDrops(drops, cat); err != nil {
		return nil, err
	}

	b := &Bundle{Catalog: cat, Generator: gen, Drops: drops, logger: logger}
	if cfg.PolicyDomain != "" {
		if err := b.loadPolicy(cfg, logger); err != nil {
			b.Close()
			return nil, err
		}
	}

	logger.Info("content loaded",
		zap.String("policy", policyName(cfg.PolicyDomain)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b, nil
}

func (b *Bundle) loadPolicy(cfg config.ContentConfig, logger *zap.Logger) error {
	b.scripts = scripting.NewManager(logger, cfg.ScriptInstructionLimit)
	reg, err := ai.LoadRegistry(cfg.PolicyDir, b.scripts)
	if err != nil {
		return fmt.Errorf("loading policies: %w", err)
	}
	planner, ok := reg.PlannerFor(cfg.PolicyDomain)
	if !ok {
		return fmt.Errorf("policy domain %q not found in %s (have %v)", cfg.PolicyDomain, cfg.PolicyDir, reg.DomainIDs())
	}
	for _, id := range planner.Domain().SkillIDs() {
		if _, ok := b.Catalog.Skill(id); !ok {
			return fmt.Errorf("policy domain %q: skill %q not in catalog", cfg.PolicyDomain, id)
		}
	}
	b.Planner = planner
	return nil
}

func checkDrops(drops *encounter.DropTables, cat *catalog.Registry) error {
	for _, kind := range []battle.EncounterKind{battle.KindNormal, battle.KindElite, battle.KindBoss} {
		for _, e := range drops.Entries(kind) {
			if _, ok := cat.Item(e.ItemID); !ok {
				return fmt.Errorf("drop table %s: item %q not in catalog", kind, e.ItemID)
			}
		}
	}
	return nil
}

func policyName(domain string) string {
	if domain == "" {
		return "greedy"
	}
	return domain
}

// Policy returns the enemy policy for the given tuning: the scripted domain
// falling back to greedy, or greedy alone.
func (b *Bundle) Policy(tuning battle.Tuning) battle.Policy {
	greedy := battle.GreedyPolicy{Tuning: tuning}
	if b.Planner == nil {
		return greedy
	}
	return ai.NewPolicy(b.Planner, greedy, b.logger)
}

// Engine builds a battle engine over the bundle with the given tuning.
func (b *Bundle) Engine(cfg config.BattleConfig) *battle.Engine {
	tuning := battle.TuningFromConfig(cfg)
	return battle.NewEngine(b.Catalog, tuning, b.Policy(tuning))
}

// Sessions builds a session manager over the bundle. A non-zero cfg.Seed
// makes the sequence of battle seeds reproducible.
func (b *Bundle) Sessions(cfg config.BattleConfig, logger *zap.Logger, recorder session.Recorder) *session.Manager {
	opts := session.Options{Recorder: recorder}
	if cfg.Seed != 0 {
		opts.Seeds = dice.NewSeededSource(cfg.Seed)
	}
	return session.NewManager(b.Engine(cfg), b.Generator, b.Drops, logger, opts)
}

// Close releases the policy script VMs.
func (b *Bundle) Close() {
	if b.scripts != nil {
		b.scripts.Close()
	}
}
