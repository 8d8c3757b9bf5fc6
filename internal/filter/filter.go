package filter

import (
	"github.com/kompakt-dev/kompakt/internal/analysis"
	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/tokens"
)

// Result is the output artifact of one filtering pass. Message identity
// is tracked by index and ID, never by content, so duplicate-content
// messages are attributed correctly.
type Result struct {
	Original []core.Message
	Filtered []core.Message
	Removed  []core.Message

	OriginalTokens int
	FilteredTokens int
	TokensSaved    int

	PreservedToolChains int
	PreservedInjections int

	Strategy         Strategy
	FilteringApplied bool
}

// Filter reduces conversations under a policy. The token counter is
// optional; without one, strategies that fit to a budget keep only their
// structural guarantees.
type Filter struct {
	analyzer *analysis.Analyzer
	counter  tokens.TextCounter
	policy   Policy
}

func NewFilter(analyzer *analysis.Analyzer, counter tokens.TextCounter, policy Policy) *Filter {
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer()
	}
	return &Filter{analyzer: analyzer, counter: counter, policy: policy}
}

func (f *Filter) Policy() Policy {
	return f.policy
}

func (f *Filter) SetPolicy(policy Policy) {
	f.policy = policy
}

// FilterConversation reduces messages to fit targetBudget using the
// filter's policy. A conversation already under budget is returned
// untouched.
func (f *Filter) FilterConversation(messages []core.Message, targetBudget int) Result {
	result := Result{
		Original: messages,
		Strategy: f.policy.Strategy,
	}

	if f.counter != nil {
		result.OriginalTokens = f.countMessages(messages)
		if result.OriginalTokens <= targetBudget {
			result.Filtered = messages
			result.FilteredTokens = result.OriginalTokens
			return result
		}
	}

	structure := f.analyzer.AnalyzeStructure(messages)
	mustPreserve := f.mustPreserveIndices(structure)
	ranked := f.rankSegments(structure)

	var keep map[int]bool
	switch f.policy.Strategy {
	case StrategyConservative:
		keep = f.filterConservative(ranked, mustPreserve)
	case StrategyAggressive:
		keep = f.filterAggressive(messages, ranked, mustPreserve, targetBudget)
	default:
		keep = f.filterModerate(messages, ranked, mustPreserve, targetBudget)
	}

	for i, msg := range messages {
		if keep[i] {
			result.Filtered = append(result.Filtered, msg)
		} else {
			result.Removed = append(result.Removed, msg)
		}
	}

	result.FilteringApplied = len(result.Removed) > 0
	if f.counter != nil {
		result.FilteredTokens = f.countMessages(result.Filtered)
		result.TokensSaved = result.OriginalTokens - result.FilteredTokens
	}

	for _, chain := range structure.ToolChains {
		if allKept(keep, chain.StartIndex, chain.EndIndex) {
			result.PreservedToolChains++
		}
	}
	for _, injection := range structure.ContextInjections {
		if keep[injection.Index] {
			result.PreservedInjections++
		}
	}

	return result
}

// mustPreserveIndices collects every index the policy shields from
// removal: system messages, context injections, full tool-chain spans,
// and the current turn with everything after it.
func (f *Filter) mustPreserveIndices(structure analysis.Structure) map[int]bool {
	preserve := make(map[int]bool)

	if f.policy.PreserveSystemMessages {
		for _, msg := range structure.SystemMessages {
			preserve[msg.Index] = true
		}
	}

	if f.policy.PreserveContextInjections {
		for _, msg := range structure.ContextInjections {
			preserve[msg.Index] = true
		}
	}

	if f.policy.PreserveToolChains {
		for _, chain := range structure.ToolChains {
			for i := chain.StartIndex; i <= chain.EndIndex; i++ {
				preserve[i] = true
			}
		}
	}

	if f.policy.PreserveCurrentTurn && structure.CurrentUserMessage != nil {
		for i := structure.CurrentUserMessage.Index; i < structure.TotalMessages; i++ {
			preserve[i] = true
		}
	}

	return preserve
}

func (f *Filter) countMessages(messages []core.Message) int {
	total := 0
	for _, msg := range messages {
		total += f.counter.Count(msg.CombinedText())
	}
	return total
}

func allKept(keep map[int]bool, start, end int) bool {
	for i := start; i <= end; i++ {
		if !keep[i] {
			return false
		}
	}
	return true
}
