package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.7, cfg.Classifier.ConfidenceThreshold, 0.001)
	assert.InDelta(t, 0.2, cfg.Classifier.ReinforceAlpha, 0.001)
	assert.InDelta(t, 10, cfg.Classifier.ReinforceRate, 0.001)
	assert.Equal(t, 3, cfg.Orchestrator.MaxAttempts)
	assert.Equal(t, 300, cfg.Orchestrator.DefaultTimeoutSecs)
	assert.Equal(t, 50, cfg.Orchestrator.MinAttemptFloorMS)
	assert.Equal(t, 200, cfg.Orchestrator.BackoffBaseMS)
	assert.Equal(t, 5000, cfg.Orchestrator.BackoffCapMS)
	assert.InDelta(t, 0.1, cfg.Orchestrator.BackoffJitter, 0.001)
	assert.Equal(t, 64, cfg.Tracker.ProgressBuffer)
	assert.Equal(t, 500, cfg.Tracker.GracePeriodMS)
	assert.Equal(t, 256, cfg.Inspector.CacheSize)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, "analysis-history.db", cfg.History.Path)
	assert.Equal(t, 10000, cfg.History.MaxRecords)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.InDelta(t, 0.5, cfg.Monitoring.DegradedRateThreshold, 0.001)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 1000, cfg.Monitoring.LookbackLimit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
history:
  driver: postgres
  database_url: postgres://localhost/analysis
orchestrator:
  max_attempts: 5
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.History.Driver)
	assert.Equal(t, "postgres://localhost/analysis", cfg.History.DatabaseURL)
	assert.Equal(t, 5, cfg.Orchestrator.MaxAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 300, cfg.Orchestrator.DefaultTimeoutSecs)
	assert.Equal(t, 256, cfg.Inspector.CacheSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
history:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ANALYSIS_HISTORY_DRIVER", "memory")
	t.Setenv("ANALYSIS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "memory", cfg.History.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("ANALYSIS_ORCHESTRATOR_MAX_ATTEMPTS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Orchestrator.MaxAttempts)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
