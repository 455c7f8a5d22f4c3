// Package observability builds the zap loggers shared by the binaries.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/idlequest/internal/config"
)

// NewLogger creates a structured logger for one binary. Every entry carries
// a "component" field naming it.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger writing to cfg.File, or to
// stderr when cfg.File is empty, or a non-nil error.
func NewLogger(cfg config.LoggingConfig, component string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// Battle event logs are bursty; sampling would drop whole rounds.
	zapCfg.Sampling = nil
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.ErrorOutputPaths = []string{cfg.File}
	}
	zapCfg.InitialFields = map[string]any{"component": component}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// BattleLogger returns a child logger tagged with the battle id and the
// encounter it was started for.
func BattleLogger(logger *zap.Logger, battleID, encounterKind string, riskTier int) *zap.Logger {
	return logger.With(
		zap.String("battle_id", battleID),
		zap.String("encounter_kind", encounterKind),
		zap.Int("risk_tier", riskTier),
	)
}
