// Package optimizer runs the full context pipeline for one outgoing
// model request: budget computation, structure analysis, scoring, then
// either tiered assembly or strategy-based filtering, ending with the
// optimized history substituted back into the request.
package optimizer

import (
	"log/slog"
	"sort"
	"time"

	"github.com/kompakt-dev/kompakt/internal/analysis"
	"github.com/kompakt-dev/kompakt/internal/assembly"
	"github.com/kompakt-dev/kompakt/internal/budget"
	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/filter"
	"github.com/kompakt-dev/kompakt/internal/priority"
	"github.com/kompakt-dev/kompakt/internal/tokens"
)

// Mode selects the reduction path when the history exceeds its budget.
type Mode string

const (
	// ModeAssemble uses priority-tier budget allocation with partial
	// inclusion.
	ModeAssemble Mode = "assemble"

	// ModeFilter uses strategy-based whole-message dropping.
	ModeFilter Mode = "filter"
)

// Report is what one optimization pass leaves behind for observability.
// The core does not depend on anyone reading it.
type Report struct {
	RunID core.RunID `json:"run_id"`

	Budget   budget.Breakdown `json:"budget"`
	Snapshot budget.Snapshot  `json:"snapshot"`

	Mode              Mode   `json:"mode"`
	OriginalMessages  int    `json:"original_messages"`
	OptimizedMessages int    `json:"optimized_messages"`
	Applied           bool   `json:"applied"`
	Strategy          string `json:"strategy"`

	Assembly *assembly.Result `json:"-"`
	Filter   *filter.Result   `json:"-"`

	AssemblyTokens map[string]assembly.TierStats `json:"assembly_tiers,omitempty"`
	TokensSaved    int                           `json:"tokens_saved"`
}

// Optimizer owns one set of pipeline components. Separate conversations
// must use separate Optimizer instances when run concurrently.
type Optimizer struct {
	Counter     *tokens.Counter
	Budget      *budget.Manager
	Analyzer    *analysis.Analyzer
	Prioritizer *priority.Prioritizer
	Assembler   *assembly.Assembler
	Filter      *filter.Filter
	Mode        Mode
}

// New wires an optimizer with default components around the given
// counter and context limit.
func New(counter *tokens.Counter, maxContextTokens int) *Optimizer {
	analyzer := analysis.NewAnalyzer()
	return &Optimizer{
		Counter:     counter,
		Budget:      budget.NewManager(maxContextTokens),
		Analyzer:    analyzer,
		Prioritizer: priority.NewPrioritizer(priority.DefaultConfig()),
		Assembler:   assembly.NewAssembler(counter, assembly.DefaultConfig()),
		Filter:      filter.NewFilter(analyzer, counter, filter.DefaultPolicy()),
		Mode:        ModeFilter,
	}
}

// OptimizeRequest reduces the request's conversation history to fit the
// available budget and substitutes the result into request.Contents.
// The request's history is only replaced, never mutated in place.
func (o *Optimizer) OptimizeRequest(request *core.ModelRequest, userQuery string) Report {
	request.Contents = core.EnsureIDs(request.Contents)

	available, breakdown := o.Budget.AvailableBudget(request, o.Counter)

	report := Report{
		RunID:            core.NewRunID(),
		Budget:           breakdown,
		Snapshot:         o.Budget.TakeSnapshot(request, o.Counter),
		Mode:             o.Mode,
		OriginalMessages: len(request.Contents),
	}

	historyTokens := breakdown.ConversationHistory
	if historyTokens <= available {
		report.OptimizedMessages = len(request.Contents)
		report.Strategy = "none"
		return report
	}

	structure := o.Analyzer.AnalyzeStructure(request.Contents)

	switch o.Mode {
	case ModeAssemble:
		o.optimizeByAssembly(request, structure, userQuery, available, &report)
	default:
		o.optimizeByFilter(request, available, &report)
	}

	report.OptimizedMessages = len(request.Contents)
	report.TokensSaved = historyTokens - o.historyTokens(request.Contents)

	slog.Info("context optimized",
		"run", report.RunID,
		"mode", report.Mode,
		"strategy", report.Strategy,
		"budget", available,
		"messages_before", report.OriginalMessages,
		"messages_after", report.OptimizedMessages,
		"tokens_saved", report.TokensSaved,
	)

	return report
}

func (o *Optimizer) optimizeByAssembly(request *core.ModelRequest, structure analysis.Structure, userQuery string, available int, report *Report) {
	items := o.BuildItems(request.Contents, structure)
	scored := o.Prioritizer.Prioritize(items, priority.Context{
		UserQuery: userQuery,
		Now:       time.Now(),
	})

	result := o.Assembler.Assemble(scored, available)

	report.Assembly = &result
	report.AssemblyTokens = result.ByTier
	report.Strategy = result.Strategy
	report.Applied = len(result.Items) < len(request.Contents)

	request.Contents = messagesInOriginalOrder(result.Items)
}

func (o *Optimizer) optimizeByFilter(request *core.ModelRequest, available int, report *Report) {
	result := o.Filter.FilterConversation(request.Contents, available)

	report.Filter = &result
	report.Strategy = string(result.Strategy)
	report.Applied = result.FilteringApplied

	request.Contents = result.Filtered
}

// BuildItems converts the history into scoreable items, cross-referencing
// the structure analysis for the flags the scorers and tier classifier
// read.
func (o *Optimizer) BuildItems(messages []core.Message, structure analysis.Structure) []priority.Item {
	currentIndex := -1
	if structure.CurrentUserMessage != nil {
		currentIndex = structure.CurrentUserMessage.Index
	}

	hasRecentErrors := false
	if len(messages) > 0 {
		tail := messages[len(messages)-1:]
		if len(messages) >= 3 {
			tail = messages[len(messages)-3:]
		}
		for _, msg := range tail {
			if analysis.DetectToolError(msg.CombinedText()) {
				hasRecentErrors = true
				break
			}
		}
	}

	items := make([]priority.Item, 0, len(messages))
	for i, msg := range messages {
		msgType := o.Analyzer.ClassifyMessage(msg)
		labels := analysis.ErrorLabels(msg.CombinedText())

		item := priority.Item{
			Message:           msg,
			Index:             i,
			IsSystem:          msgType == analysis.TypeSystem,
			IsCurrentTurn:     currentIndex >= 0 && i >= currentIndex,
			InIncompleteChain: structure.InIncompleteChain(i),
			ToolCount:         len(msg.ToolCalls()) + len(msg.ToolResults()),
			MessageCount:      len(messages),
			ErrorLabels:       labels,
			ErrorCount:        len(labels),
			HasRecentErrors:   hasRecentErrors && len(labels) > 0,
			Timestamp:         msg.Timestamp,
		}
		items = append(items, item)
	}

	return items
}

func (o *Optimizer) historyTokens(messages []core.Message) int {
	total := 0
	for _, msg := range messages {
		total += o.Counter.Count(msg.CombinedText())
	}
	return total
}

// messagesInOriginalOrder restores conversation order after assembly,
// which groups items by tier. Order is what keeps tool calls adjacent to
// their responses in the outgoing request.
func messagesInOriginalOrder(items []priority.Item) []core.Message {
	ordered := make([]priority.Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Index < ordered[b].Index
	})

	messages := make([]core.Message, 0, len(ordered))
	for _, item := range ordered {
		messages = append(messages, item.Message)
	}
	return messages
}
