package optimizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/tokens"
)

func testOptimizer(maxTokens int) *Optimizer {
	return New(tokens.NewCounter(tokens.WithHeuristicOnly()), maxTokens)
}

func testRequest(turns int) *core.ModelRequest {
	var contents []core.Message
	for i := 0; i < turns; i++ {
		contents = append(contents,
			core.Message{Role: core.RoleUser, Text: fmt.Sprintf("question %d %s", i, strings.Repeat("pad ", 30))},
			core.Message{Role: core.RoleAssistant, Text: fmt.Sprintf("answer %d %s", i, strings.Repeat("pad ", 30))},
		)
	}
	contents = append(contents, core.Message{Role: core.RoleUser, Text: "what is the current status?"})

	return &core.ModelRequest{
		SystemInstruction: "You are a helpful assistant.",
		Contents:          contents,
	}
}

func TestOptimizeRequest_UnderBudgetIsNoop(t *testing.T) {
	o := testOptimizer(200_000)
	request := testRequest(3)
	before := len(request.Contents)

	report := o.OptimizeRequest(request, "status")

	assert.Equal(t, "none", report.Strategy)
	assert.False(t, report.Applied)
	assert.Len(t, request.Contents, before)
	assert.Equal(t, before, report.OptimizedMessages)
	assert.Zero(t, report.TokensSaved)
}

func TestOptimizeRequest_AssignsMessageIDs(t *testing.T) {
	o := testOptimizer(200_000)
	request := testRequest(2)

	o.OptimizeRequest(request, "status")

	for i, msg := range request.Contents {
		assert.NotEmpty(t, msg.ID, "message %d", i)
	}
}

func TestOptimizeRequest_FilterMode(t *testing.T) {
	o := testOptimizer(600)
	require.Equal(t, ModeFilter, o.Mode)

	request := testRequest(10)
	before := len(request.Contents)

	report := o.OptimizeRequest(request, "status")

	require.True(t, report.Applied)
	require.NotNil(t, report.Filter)
	assert.Nil(t, report.Assembly)
	assert.Less(t, len(request.Contents), before)
	assert.Positive(t, report.TokensSaved)
	assert.Equal(t, len(request.Contents), report.OptimizedMessages)
	assert.Equal(t, before, report.OriginalMessages)
}

func TestOptimizeRequest_AssembleMode(t *testing.T) {
	o := testOptimizer(600)
	o.Mode = ModeAssemble

	request := testRequest(10)
	before := len(request.Contents)

	report := o.OptimizeRequest(request, "status")

	require.True(t, report.Applied)
	require.NotNil(t, report.Assembly)
	assert.Nil(t, report.Filter)
	assert.NotEmpty(t, report.AssemblyTokens)
	assert.Less(t, len(request.Contents), before)
}

func TestOptimizeRequest_AssembleRestoresConversationOrder(t *testing.T) {
	o := testOptimizer(600)
	o.Mode = ModeAssemble

	request := testRequest(10)
	o.OptimizeRequest(request, "status")

	// Assembly groups by tier internally; the substituted history must
	// come back in conversation order.
	positions := make([]int, 0, len(request.Contents))
	for _, msg := range request.Contents {
		text := msg.CombinedText()
		for i := 0; i < 10; i++ {
			if strings.HasPrefix(text, fmt.Sprintf("question %d ", i)) {
				positions = append(positions, i*2)
			} else if strings.HasPrefix(text, fmt.Sprintf("answer %d ", i)) {
				positions = append(positions, i*2+1)
			}
		}
	}
	for i := 1; i < len(positions); i++ {
		assert.Greater(t, positions[i], positions[i-1])
	}
}

func TestOptimizeRequest_KeepsCurrentTurn(t *testing.T) {
	for _, mode := range []Mode{ModeFilter, ModeAssemble} {
		o := testOptimizer(600)
		o.Mode = mode

		request := testRequest(10)
		o.OptimizeRequest(request, "status")

		require.NotEmpty(t, request.Contents, "mode %s", mode)
		last := request.Contents[len(request.Contents)-1]
		assert.Equal(t, "what is the current status?", last.Text, "mode %s", mode)
	}
}

func TestOptimizeRequest_ReportCarriesBudget(t *testing.T) {
	o := testOptimizer(600)
	request := testRequest(10)

	report := o.OptimizeRequest(request, "status")

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 600, report.Snapshot.ContextSize)
	assert.Positive(t, report.Budget.BaseTokens)
	assert.Positive(t, report.Budget.SafetyMargin)
	assert.Equal(t, report.OriginalMessages, report.Snapshot.HistoryMessages)
}

func TestBuildItems_Flags(t *testing.T) {
	o := testOptimizer(200_000)

	messages := core.EnsureIDs([]core.Message{
		{Role: core.RoleSystem, Text: "You are a careful assistant."},
		{Role: core.RoleUser, Text: "delete the temp files"},
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.ToolCallPart(core.ToolCall{ID: "call_rm", Name: "remove_files"}),
		}},
		{Role: core.RoleUser, Parts: []core.Part{
			core.ToolResultPart(core.ToolResult{CallID: "call_rm", Output: "Error: permission denied", IsError: true}),
		}},
		{Role: core.RoleUser, Text: "try again with sudo"},
	})

	structure := o.Analyzer.AnalyzeStructure(messages)
	items := o.BuildItems(messages, structure)

	require.Len(t, items, 5)

	assert.True(t, items[0].IsSystem)
	assert.False(t, items[1].IsSystem)

	// The chain has a tool error and no closing assistant message:
	// incomplete, so its span carries the flag.
	assert.True(t, items[1].InIncompleteChain)
	assert.True(t, items[2].InIncompleteChain)
	assert.True(t, items[3].InIncompleteChain)

	assert.Equal(t, 1, items[2].ToolCount)
	assert.Equal(t, 1, items[3].ToolCount)

	assert.NotEmpty(t, items[3].ErrorLabels)
	assert.True(t, items[3].HasRecentErrors, "the error sits in the last three messages")

	assert.True(t, items[4].IsCurrentTurn)
	assert.False(t, items[1].IsCurrentTurn)

	for i, item := range items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, len(messages), item.MessageCount)
	}
}
