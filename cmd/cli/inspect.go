package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kompakt-dev/kompakt/internal/analysis"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <session>",
		Short: "Report the structure of a conversation",
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

			analyzer := analysis.NewAnalyzer()
			structure := analyzer.AnalyzeStructure(messages)

			printStructure(structure)
			return nil
		},
	}
}

func printStructure(structure analysis.Structure) {
	fmt.Println(styleHeader.Render("conversation structure"))
	printField("messages", fmt.Sprintf("%d", structure.TotalMessages))

	types := make([]string, 0, len(structure.TypeCounts))
	for msgType := range structure.TypeCounts {
		types = append(types, string(msgType))
	}
	sort.Strings(types)
	for _, msgType := range types {
		printField("  "+msgType, fmt.Sprintf("%d", structure.TypeCounts[analysis.MessageType(msgType)]))
	}

	fmt.Println(styleHeader.Render("tool chains"))
	if len(structure.ToolChains) == 0 {
		fmt.Println(styleLabel.Render("  none"))
	}
	for _, chain := range structure.ToolChains {
		status := styleSuccess.Render("complete")
		if !chain.IsComplete {
			status = styleWarning.Render("incomplete")
		}
		line := fmt.Sprintf("  [%d..%d] %d tool result(s) %s", chain.StartIndex, chain.EndIndex, len(chain.ToolResults), status)
		if chain.HasErrors {
			line += " " + styleError.Render("errors")
		}
		fmt.Println(styleChain.Render(line))
	}

	fmt.Println(styleHeader.Render("segments"))
	for _, segment := range structure.Segments {
		marker := ""
		if segment.HasToolActivity {
			marker = " tools"
		}
		fmt.Printf("  [%d..%d] %s %d message(s)%s\n",
			segment.StartIndex, segment.EndIndex, segment.Type, len(segment.Messages), marker)
		if segment.Injection != nil {
			fmt.Printf("    %s task=%q files=%v\n",
				styleLabel.Render("injection:"), segment.Injection.Task, segment.Injection.Files)
		}
	}

	if structure.CurrentUserMessage != nil {
		printField("current user turn", fmt.Sprintf("index %d", structure.CurrentUserMessage.Index))
	}
}

func printField(label, value string) {
	fmt.Printf("%s %s\n", styleLabel.Render(label+":"), styleValue.Render(value))
}
