// Package config loads the optimizer configuration from a TOML file,
// creating it with defaults on first use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/kompakt-dev/kompakt/internal/assembly"
	"github.com/kompakt-dev/kompakt/internal/filter"
	"github.com/kompakt-dev/kompakt/internal/priority"
)

type CounterConfig struct {
	// Model selects the tokenizer table and, when UseNativeAPI is set,
	// the provider model to count against.
	Model        string `toml:"model"`
	UseNativeAPI bool   `toml:"use_native_api"`
	APIKeyEnv    string `toml:"api_key_env"`
}

type LimitsConfig struct {
	MaxContextTokens int `toml:"max_context_tokens"`
}

type Config struct {
	DataDir string `toml:"data_dir"`
	Mode    string `toml:"mode"`

	Counter  CounterConfig   `toml:"counter"`
	Limits   LimitsConfig    `toml:"limits"`
	Priority priority.Config `toml:"priority"`
	Assembly assembly.Config `toml:"assembly"`
	Filter   filter.Policy   `toml:"filter"`
}

func Default() Config {
	return Config{
		DataDir: defaultDataDir(),
		Mode:    "filter",
		Counter: CounterConfig{
			Model:     "gpt-4o",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		Limits: LimitsConfig{
			MaxContextTokens: 200_000,
		},
		Priority: priority.DefaultConfig(),
		Assembly: assembly.DefaultConfig(),
		Filter:   filter.DefaultPolicy(),
	}
}

// LoadOrCreate reads the config at path, writing the defaults there first
// if the file does not exist.
func LoadOrCreate(path string) (Config, error) {
	config := Default()

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return config, fmt.Errorf("stat config: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return config, fmt.Errorf("create config directory: %w", err)
		}

		data, err := toml.Marshal(config)
		if err != nil {
			return config, fmt.Errorf("marshal default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return config, fmt.Errorf("write default config: %w", err)
		}

		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Limits.MaxContextTokens <= 0 {
		return errors.New("limits.max_context_tokens must be positive")
	}

	if c.Filter.MinConversationsToKeep < 0 {
		return errors.New("filter.min_conversations_to_keep must not be negative")
	}
	if c.Filter.MaxConversationsToKeep < c.Filter.MinConversationsToKeep {
		return errors.New("filter.max_conversations_to_keep must be at least the minimum")
	}

	sum := c.Assembly.CriticalPct + c.Assembly.HighPct + c.Assembly.MediumPct +
		c.Assembly.LowPct + c.Assembly.MinimalPct + c.Assembly.EmergencyReservePct
	if sum > 1.0+1e-9 {
		return fmt.Errorf("assembly tier percentages sum to %.2f, must not exceed 1.0", sum)
	}

	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kompakt"
	}
	return filepath.Join(home, ".kompakt")
}
