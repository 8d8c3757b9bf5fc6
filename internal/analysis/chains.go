package analysis

import "github.com/kompakt-dev/kompakt/internal/core"

// ToolChain is one round of tool invocation: a user request, an assistant
// message issuing tool calls, the tool outputs, and (when complete) the
// assistant's follow-up reply.
type ToolChain struct {
	StartIndex         int
	EndIndex           int
	UserMessage        core.Message
	AssistantWithTools core.Message
	ToolResults        []core.Message
	FinalResponse      *core.Message
	IsComplete         bool
	HasErrors          bool
}

// Indices returns every message index the chain spans, in order.
func (tc ToolChain) Indices() []int {
	indices := make([]int, 0, tc.EndIndex-tc.StartIndex+1)
	for i := tc.StartIndex; i <= tc.EndIndex; i++ {
		indices = append(indices, i)
	}
	return indices
}

// IdentifyToolChains scans the history left to right for the pattern
// user, assistant-with-tool-call, tool results, optional final assistant
// reply. On a failed match the cursor advances by one position and the
// scan restarts there; overlapping possibilities are not re-examined.
func (a *Analyzer) IdentifyToolChains(messages []core.Message) []ToolChain {
	var chains []ToolChain

	cursor := 0
	for cursor < len(messages) {
		chain, next, ok := a.matchChain(messages, cursor)
		if !ok {
			cursor++
			continue
		}

		chains = append(chains, chain)
		cursor = next
	}

	return chains
}

func (a *Analyzer) matchChain(messages []core.Message, start int) (ToolChain, int, bool) {
	if messages[start].Role != core.RoleUser {
		return ToolChain{}, 0, false
	}

	assistantIndex := start + 1
	if assistantIndex >= len(messages) {
		return ToolChain{}, 0, false
	}

	assistant := messages[assistantIndex]
	if assistant.Role != core.RoleAssistant || !assistant.HasToolCall() {
		return ToolChain{}, 0, false
	}

	chain := ToolChain{
		StartIndex:         start,
		UserMessage:        messages[start],
		AssistantWithTools: assistant,
	}

	cursor := assistantIndex + 1
	lastResultIndex := assistantIndex
	for cursor < len(messages) && a.isToolResult(messages[cursor]) {
		result := messages[cursor]
		chain.ToolResults = append(chain.ToolResults, result)
		if toolResultHasError(result) {
			chain.HasErrors = true
		}
		lastResultIndex = cursor
		cursor++
	}

	if cursor < len(messages) && messages[cursor].Role == core.RoleAssistant && !messages[cursor].HasToolCall() {
		final := messages[cursor]
		chain.FinalResponse = &final
		chain.IsComplete = true
		chain.EndIndex = cursor
		return chain, cursor + 1, true
	}

	chain.IsComplete = false
	chain.EndIndex = lastResultIndex
	return chain, cursor, true
}

func toolResultHasError(msg core.Message) bool {
	for _, result := range msg.ToolResults() {
		if result.IsError {
			return true
		}
	}
	return DetectToolError(msg.CombinedText())
}
