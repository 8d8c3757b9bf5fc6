package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kompakt-dev/kompakt/internal/filter"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "filter", cfg.Mode)
	assert.Equal(t, 200_000, cfg.Limits.MaxContextTokens)
	assert.Equal(t, filter.StrategyModerate, cfg.Filter.Strategy)
	assert.NotEmpty(t, cfg.DataDir)
	require.NoError(t, cfg.Validate())
}

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Limits, cfg.Limits)

	_, err = os.Stat(path)
	require.NoError(t, err, "the default config file must be created")

	// A second load round-trips the file it just wrote.
	reloaded, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestLoadOrCreate_AppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	content := `
mode = "assemble"

[limits]
max_context_tokens = 100000

[filter]
strategy = "aggressive"
min_conversations_to_keep = 3
max_conversations_to_keep = 6
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)

	assert.Equal(t, "assemble", cfg.Mode)
	assert.Equal(t, 100_000, cfg.Limits.MaxContextTokens)
	assert.Equal(t, filter.StrategyAggressive, cfg.Filter.Strategy)
	assert.Equal(t, 3, cfg.Filter.MinConversationsToKeep)

	// Unset keys keep their defaults.
	assert.Equal(t, Default().Assembly.MinCriticalTokens, cfg.Assembly.MinCriticalTokens)
	assert.Equal(t, Default().Counter.Model, cfg.Counter.Model)
}

func TestLoadOrCreate_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	content := `
[limits]
max_context_tokens = -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadOrCreate(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_context_tokens")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Filter.MaxConversationsToKeep = 1
	cfg.Filter.MinConversationsToKeep = 2
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Assembly.CriticalPct = 0.9
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "percentages")
}
