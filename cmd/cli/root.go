package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kompakt-dev/kompakt/internal/config"
	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/session"
	"github.com/kompakt-dev/kompakt/internal/tokens"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kompakt",
		Short: "kompakt inspects and optimizes LLM conversation context",
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().String("model", "", "override the tokenizer model")
	rootCmd.PersistentFlags().Bool("estimate", false, "use the character estimate instead of a tokenizer")

	rootCmd.AddCommand(newNewCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newCountCmd())
	rootCmd.AddCommand(newOptimizeCmd())

	return rootCmd
}

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a session file under the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			service := &session.Service{BaseDir: cfg.DataDir}
			sessionID, _, err := service.Create()
			if err != nil {
				return err
			}

			printField("session", string(sessionID))
			printField("path", service.Path(sessionID))
			return nil
		},
	}
}

// resolveSession turns a CLI argument into a session file: a .jsonl path
// is used directly, anything else is treated as a session ID under the
// configured data directory.
func resolveSession(cfg config.Config, arg string) (*session.File, core.SessionID, error) {
	if strings.HasSuffix(arg, ".jsonl") {
		id := core.SessionID(strings.TrimSuffix(filepath.Base(arg), ".jsonl"))
		return session.NewFile(arg), id, nil
	}

	service := &session.Service{BaseDir: cfg.DataDir}
	file, err := service.Open(core.SessionID(arg))
	return file, core.SessionID(arg), err
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = filepath.Join(config.Default().DataDir, "config.toml")
	}

	return config.LoadOrCreate(configPath)
}

// buildCounter assembles the token counter from flags and config,
// probing the native API only when a key is actually present.
func buildCounter(cmd *cobra.Command, cfg config.Config) *tokens.Counter {
	if estimate, _ := cmd.Flags().GetBool("estimate"); estimate {
		return tokens.NewCounter(tokens.WithHeuristicOnly())
	}

	model := cfg.Counter.Model
	if override, _ := cmd.Flags().GetString("model"); override != "" {
		model = override
	}

	opts := []tokens.Option{tokens.WithModel(model)}

	if cfg.Counter.UseNativeAPI {
		if apiKey := os.Getenv(cfg.Counter.APIKeyEnv); apiKey != "" {
			client := anthropic.NewClient(option.WithAPIKey(apiKey))
			opts = append(opts, tokens.WithNativeClient(&client, model))
		}
	}

	return tokens.NewCounter(opts...)
}
