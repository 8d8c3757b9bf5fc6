package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kompakt-dev/kompakt/internal/core"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count <session>",
		Short: "Show the token breakdown of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			sessionFile, _, err := resolveSession(cfg, args[0])
			if err != nil {
				return err
			}

			messages, err := sessionFile.LoadAll()
			if err != nil {
				return err
			}

			counter := buildCounter(cmd, cfg)
			breakdown := counter.CountRequest(&core.ModelRequest{Contents: messages})

			fmt.Println(styleHeader.Render("token breakdown"))
			printField("strategy", string(counter.Strategy()))
			printField("conversation_history", fmt.Sprintf("%d", breakdown.ConversationHistory))
			printField("user_message", fmt.Sprintf("%d", breakdown.UserMessage))
			printField("total", fmt.Sprintf("%d", breakdown.Total))

			return nil
		},
	}
}
