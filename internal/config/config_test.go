package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 90, cfg.Run.HistoryLookbackDays)
	assert.Equal(t, 5, cfg.Run.MaxRetryAttempts)
	assert.Equal(t, 1, cfg.Concurrency.CategorizationParallelism)
	assert.InDelta(t, 0.6, cfg.Run.WeightAI, 0.001)
	assert.InDelta(t, 0.4, cfg.Run.WeightHistory, 0.001)
	assert.False(t, cfg.Run.ForceRecategorize)
}

func TestLoad_EnvOverride(t *testing.T) {
	resetViper()
	t.Chdir(t.TempDir())
	os.Setenv("DB_HOST", "db.internal")
	defer os.Unsetenv("DB_HOST")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestLoad_RejectsUnbalancedConfidenceWeights(t *testing.T) {
	resetViper()
	t.Chdir(t.TempDir())
	os.Setenv("CONFIDENCE_WEIGHT_AI", "0.9")
	os.Setenv("CONFIDENCE_WEIGHT_HISTORY", "0.4")
	defer os.Unsetenv("CONFIDENCE_WEIGHT_AI")
	defer os.Unsetenv("CONFIDENCE_WEIGHT_HISTORY")

	_, err := Load()
	require.Error(t, err)
}
