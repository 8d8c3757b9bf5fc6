package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kompakt-dev/kompakt/internal/assembly"
	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/filter"
	"github.com/kompakt-dev/kompakt/internal/oplog"
	"github.com/kompakt-dev/kompakt/internal/optimizer"
	"github.com/kompakt-dev/kompakt/internal/priority"
)

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize <session>",
		Short: "Run the context pipeline against a conversation",
		Args:  cobra.ExactArgs(1),
		RunE:  runOptimize,
	}

	cmd.Flags().Int("budget", 0, "token budget override (0 = derive from limits)")
	cmd.Flags().Int("tail-budget", 0, "pre-load only the newest messages fitting this many tokens")
	cmd.Flags().String("strategy", "", "filter strategy: conservative, moderate, aggressive")
	cmd.Flags().String("mode", "", "reduction mode: assemble or filter")
	cmd.Flags().String("query", "", "current user query for relevance scoring")

	return cmd
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sessionFile, sessionID, err := resolveSession(cfg, args[0])
	if err != nil {
		return err
	}

	counter := buildCounter(cmd, cfg)

	var messages []core.Message
	if tailBudget, _ := cmd.Flags().GetInt("tail-budget"); tailBudget > 0 {
		messages, err = sessionFile.LoadTail(tailBudget, counter.Count)
	} else {
		messages, err = sessionFile.LoadAll()
	}
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return fmt.Errorf("no messages in %s", args[0])
	}

	maxTokens := cfg.Limits.MaxContextTokens
	if budgetOverride, _ := cmd.Flags().GetInt("budget"); budgetOverride > 0 {
		// Treat the override as the whole window so small values force
		// real reductions.
		maxTokens = budgetOverride
	}

	opt := optimizer.New(counter, maxTokens)
	opt.Prioritizer = priority.NewPrioritizer(cfg.Priority)
	opt.Assembler = assembly.NewAssembler(counter, cfg.Assembly)

	policy := cfg.Filter
	if strategy, _ := cmd.Flags().GetString("strategy"); strategy != "" {
		policy.Strategy = filter.Strategy(strategy)
	}
	opt.Filter = filter.NewFilter(opt.Analyzer, counter, policy)

	mode := cfg.Mode
	if override, _ := cmd.Flags().GetString("mode"); override != "" {
		mode = override
	}
	if mode == string(optimizer.ModeAssemble) {
		opt.Mode = optimizer.ModeAssemble
	}

	query, _ := cmd.Flags().GetString("query")
	request := &core.ModelRequest{Contents: messages}
	report := opt.OptimizeRequest(request, query)

	logWriter := oplog.NewWriter(cfg.DataDir)
	previous, _ := logWriter.Read(sessionID)
	if err := logWriter.Write(sessionID, len(previous)+1, report); err != nil {
		slog.Warn("append optimization log failed", "session", sessionID, "error", err)
	}

	printReport(report)
	return nil
}

func printReport(report optimizer.Report) {
	fmt.Println(styleHeader.Render("optimization report"))
	printField("run", string(report.RunID))
	printField("mode", string(report.Mode))
	printField("strategy", report.Strategy)
	printField("budget", fmt.Sprintf("%d", report.Budget.Budget))
	printField("messages", fmt.Sprintf("%d -> %d", report.OriginalMessages, report.OptimizedMessages))
	printField("tokens_saved", fmt.Sprintf("%d", report.TokensSaved))

	if report.Assembly != nil {
		fmt.Println(styleHeader.Render("tiers"))
		for name, stats := range report.AssemblyTokens {
			fmt.Printf("  %s: %d/%d item(s), %d/%d tokens\n",
				name, stats.Selected, stats.Candidates, stats.TokensUsed, stats.Budget)
		}
	}

	if report.Filter != nil {
		printField("preserved_tool_chains", fmt.Sprintf("%d", report.Filter.PreservedToolChains))
		printField("preserved_injections", fmt.Sprintf("%d", report.Filter.PreservedInjections))
	}

	if !report.Applied {
		fmt.Println(styleSuccess.Render("conversation already fits; nothing removed"))
	}
}
