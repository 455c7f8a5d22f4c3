package observability

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/idlequest/internal/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: format}, "test")
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLogger_Rejects(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "trace", Format: "json"}, "test")
	assert.ErrorContains(t, err, "trace")

	_, err = NewLogger(config.LoggingConfig{Level: "info", Format: "xml"}, "test")
	assert.ErrorContains(t, err, "xml")
}

func TestNewLogger_LevelIsApplied(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json"}, "test")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNewLogger_WritesComponentToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battlesim.log")
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", File: path}, "battlesim")
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		logger.Info("round resolved", zap.Int("round", i))
	}
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 200, "no entries may be sampled away")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "battlesim", entry["component"])
	assert.Equal(t, "round resolved", entry["msg"])
}

func TestBattleLogger_AddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	BattleLogger(zap.New(core), "b-1", "elite", 3).Info("started")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "b-1", fields["battle_id"])
	assert.Equal(t, "elite", fields["encounter_kind"])
	assert.Equal(t, int64(3), fields["risk_tier"])
}
