package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is t.Chdir from Go 1.24, reimplemented for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "catalog.db", cfg.Store.SQLitePath)
	assert.Equal(t, 0.40, cfg.Scorer.CoreBaseline)
	assert.Equal(t, 0.15, cfg.Scorer.FloorScore)
	assert.Equal(t, 0.65, cfg.Consensus.Threshold)
	assert.Equal(t, 0.10, cfg.Consensus.AmbiguityMargin)
	assert.Equal(t, 200, cfg.Engine.BatchSize)
	assert.Equal(t, 24, cfg.Engine.StaleAfterHours)
	assert.Equal(t, []string{"genre", "content_rating"}, cfg.Engine.Fields)
	assert.Equal(t, DefaultDecayBands, cfg.Scorer.Decay.Bands)
	assert.Equal(t, "reports", cfg.Audit.Dir)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_ConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile("config.yaml", []byte(`
store:
  driver: postgres
  database_url: postgres://localhost/catalog
consensus:
  threshold: 0.70
scorer:
  decay:
    bands:
      - up_to_days: 60
        penalty: 0
      - up_to_days: 120
        penalty: 0.10
`), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/catalog", cfg.Store.DatabaseURL)
	assert.Equal(t, 0.70, cfg.Consensus.Threshold)
	// Explicit bands replace the built-in schedule.
	require.Len(t, cfg.Scorer.Decay.Bands, 2)
	assert.Equal(t, 120, cfg.Scorer.Decay.Bands[1].UpToDays)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.10, cfg.Consensus.AmbiguityMargin)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CATALOG_STORE_DRIVER", "postgres")
	t.Setenv("CATALOG_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "whisper", Format: "json"}))
}
