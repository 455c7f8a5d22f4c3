// Package config provides Viper-based configuration loading for the battle services.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File appends logs to this path instead of stderr; empty means stderr.
	File string `mapstructure:"file"`
}

// BattleServerConfig holds the gRPC battle service settings.
type BattleServerConfig struct {
	// GRPCHost is the bind address for the battle gRPC service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the battle gRPC service.
	GRPCPort int `mapstructure:"grpc_port"`
	// RecordBattles enables persisting finished battles to PostgreSQL.
	RecordBattles bool `mapstructure:"record_battles"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (b BattleServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.GRPCHost, b.GRPCPort)
}

// ContentConfig locates the YAML and Lua content files.
type ContentConfig struct {
	// SkillsDir holds skill and consumable item catalog YAML files.
	SkillsDir string `mapstructure:"skills_dir"`
	// EncountersDir holds enemy template YAML files.
	EncountersDir string `mapstructure:"encounters_dir"`
	// DropsFile is the drop table YAML file.
	DropsFile string `mapstructure:"drops_file"`
	// PolicyDir holds enemy policy domain YAML files and their Lua preconditions.
	PolicyDir string `mapstructure:"policy_dir"`
	// PolicyDomain selects the enemy policy domain; empty selects the greedy policy.
	PolicyDomain string `mapstructure:"policy_domain"`
	// ScriptInstructionLimit bounds Lua opcodes per precondition call; 0 uses the default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// BattleConfig holds the tunable battle formula constants.
type BattleConfig struct {
	// Seed seeds every battle's random source; 0 draws a fresh seed per battle.
	Seed int64 `mapstructure:"seed"`

	DefenseFactor      float64 `mapstructure:"defense_factor"`
	SpiritResistFactor float64 `mapstructure:"spirit_resist_factor"`
	VariancePercent    int     `mapstructure:"variance_percent"`
	BaseCritChance     float64 `mapstructure:"base_crit_chance"`
	BaseCritMultiplier float64 `mapstructure:"base_crit_multiplier"`

	BonusActionSpeedGap int `mapstructure:"bonus_action_speed_gap"`
	MaxBonusActions     int `mapstructure:"max_bonus_actions"`
	DefendPercent       int `mapstructure:"defend_percent"`
	DefendFlat          int `mapstructure:"defend_flat"`

	FleeBaseChance  float64 `mapstructure:"flee_base_chance"`
	FleeSpeedFactor float64 `mapstructure:"flee_speed_factor"`
	FleeMinChance   float64 `mapstructure:"flee_min_chance"`
	FleeMaxChance   float64 `mapstructure:"flee_max_chance"`

	MaxResolutions int `mapstructure:"max_resolutions"`

	ExpPerPower      float64            `mapstructure:"exp_per_power"`
	CurrencyPerPower float64            `mapstructure:"currency_per_power"`
	RiskStep         float64            `mapstructure:"risk_step"`
	KindMultipliers  map[string]float64 `mapstructure:"kind_multipliers"`
}

// Config is the top-level application configuration.
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	BattleServer BattleServerConfig `mapstructure:"battleserver"`
	Content      ContentConfig      `mapstructure:"content"`
	Battle       BattleConfig       `mapstructure:"battle"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattleServer(c.BattleServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBattle(c.Battle); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateBattleServer(b BattleServerConfig) error {
	var errs []string
	if b.GRPCHost == "" {
		errs = append(errs, "battleserver.grpc_host must not be empty")
	}
	if b.GRPCPort < 1 || b.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("battleserver.grpc_port must be 1-65535, got %d", b.GRPCPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.SkillsDir == "" {
		errs = append(errs, "content.skills_dir must not be empty")
	}
	if c.EncountersDir == "" {
		errs = append(errs, "content.encounters_dir must not be empty")
	}
	if c.DropsFile == "" {
		errs = append(errs, "content.drops_file must not be empty")
	}
	if c.PolicyDomain != "" && c.PolicyDir == "" {
		errs = append(errs, "content.policy_dir must be set when content.policy_domain is set")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.DefenseFactor < 0 {
		errs = append(errs, "battle.defense_factor must be >= 0")
	}
	if b.SpiritResistFactor < 0 {
		errs = append(errs, "battle.spirit_resist_factor must be >= 0")
	}
	if b.VariancePercent < 0 || b.VariancePercent > 50 {
		errs = append(errs, fmt.Sprintf("battle.variance_percent must be 0-50, got %d", b.VariancePercent))
	}
	if b.BaseCritChance < 0 || b.BaseCritChance > 1 {
		errs = append(errs, fmt.Sprintf("battle.base_crit_chance must be in [0, 1], got %v", b.BaseCritChance))
	}
	if b.BaseCritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("battle.base_crit_multiplier must be >= 1, got %v", b.BaseCritMultiplier))
	}
	if b.BonusActionSpeedGap < 1 {
		errs = append(errs, fmt.Sprintf("battle.bonus_action_speed_gap must be >= 1, got %d", b.BonusActionSpeedGap))
	}
	if b.MaxBonusActions < 0 {
		errs = append(errs, fmt.Sprintf("battle.max_bonus_actions must be >= 0, got %d", b.MaxBonusActions))
	}
	if b.DefendPercent < 0 {
		errs = append(errs, fmt.Sprintf("battle.defend_percent must be >= 0, got %d", b.DefendPercent))
	}
	if b.DefendFlat < 1 {
		errs = append(errs, fmt.Sprintf("battle.defend_flat must be >= 1, got %d", b.DefendFlat))
	}
	if b.FleeMinChance < 0 || b.FleeMaxChance > 1 || b.FleeMinChance > b.FleeMaxChance {
		errs = append(errs, "battle.flee_min_chance and battle.flee_max_chance must satisfy 0 <= min <= max <= 1")
	}
	if b.MaxResolutions < 1 {
		errs = append(errs, fmt.Sprintf("battle.max_resolutions must be >= 1, got %d", b.MaxResolutions))
	}
	if b.ExpPerPower < 0 || b.CurrencyPerPower < 0 || b.RiskStep < 0 {
		errs = append(errs, "battle reward factors must not be negative")
	}
	for kind, mult := range b.KindMultipliers {
		if mult < 0 {
			errs = append(errs, fmt.Sprintf("battle.kind_multipliers[%s] must not be negative", kind))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("IDLEQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance populated only with default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "idlequest")
	v.SetDefault("database.password", "idlequest")
	v.SetDefault("database.name", "idlequest")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	v.SetDefault("battleserver.grpc_host", "127.0.0.1")
	v.SetDefault("battleserver.grpc_port", 50061)
	v.SetDefault("battleserver.record_battles", false)

	v.SetDefault("content.skills_dir", "content/skills")
	v.SetDefault("content.encounters_dir", "content/encounters")
	v.SetDefault("content.drops_file", "content/drops.yaml")
	v.SetDefault("content.policy_dir", "content/policies")
	v.SetDefault("content.policy_domain", "")
	v.SetDefault("content.script_instruction_limit", 0)

	v.SetDefault("battle.seed", 0)
	v.SetDefault("battle.defense_factor", 0.5)
	v.SetDefault("battle.spirit_resist_factor", 0.5)
	v.SetDefault("battle.variance_percent", 15)
	v.SetDefault("battle.base_crit_chance", 0.05)
	v.SetDefault("battle.base_crit_multiplier", 1.5)
	v.SetDefault("battle.bonus_action_speed_gap", 10)
	v.SetDefault("battle.max_bonus_actions", 1)
	v.SetDefault("battle.defend_percent", 100)
	v.SetDefault("battle.defend_flat", 10)
	v.SetDefault("battle.flee_base_chance", 0.5)
	v.SetDefault("battle.flee_speed_factor", 0.02)
	v.SetDefault("battle.flee_min_chance", 0.1)
	v.SetDefault("battle.flee_max_chance", 0.9)
	v.SetDefault("battle.max_resolutions", 200)
	v.SetDefault("battle.exp_per_power", 1.0)
	v.SetDefault("battle.currency_per_power", 0.5)
	v.SetDefault("battle.risk_step", 0.5)
	v.SetDefault("battle.kind_multipliers", map[string]float64{"normal": 1, "elite": 2, "boss": 4})
}
