package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "gemini", config.AI.Provider)
	assert.Equal(t, 30*time.Second, config.Feedback.GenerationTimeout)
	assert.Equal(t, 10, config.Feedback.HistoryLimit)
	assert.Equal(t, 3, config.Stats.MaxAttempts)
	assert.Equal(t, 5*time.Minute, config.Stats.ReconcileInterval)
	assert.Equal(t, 5, config.Interview.DefaultQuestions)
	assert.Equal(t, 30*time.Second, config.Interview.GenerationTimeout)
	assert.Equal(t, 30*time.Second, config.Assistant.GenerationTimeout)
	assert.Equal(t, 20000, config.Assistant.MaxResumeLength)
	assert.Equal(t, 4000, config.Assistant.MaxMessageLength)
	assert.False(t, config.Database.Seed)
}

func TestLoadConfigEnvAndOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AI_PROVIDER", "openrouter")
	t.Setenv("STATS_MAX_ATTEMPTS", "7")
	t.Setenv("INTERVIEW_GENERATION_TIMEOUT", "12s")

	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feedback:
  generation_timeout: 45s
  history_limit: 25
stats:
  reconcile_interval: 0s
`), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, "openrouter", config.AI.Provider)
	assert.Equal(t, 7, config.Stats.MaxAttempts)
	assert.Equal(t, 12*time.Second, config.Interview.GenerationTimeout)
	assert.Equal(t, 45*time.Second, config.Feedback.GenerationTimeout)
	assert.Equal(t, 25, config.Feedback.HistoryLimit)
	assert.Zero(t, config.Stats.ReconcileInterval)
}

func TestLoadConfigBadOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feedback: [unclosed"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
