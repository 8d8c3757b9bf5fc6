package budget

import (
	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/tokens"
)

// Snapshot captures the token state of a request at a point in time, for
// observability consumers. It is produced once per optimization pass.
type Snapshot struct {
	ContextSize     int            `json:"context_size"`
	SystemTokens    int            `json:"system_tokens"`
	ToolTokens      int            `json:"tool_tokens"`
	HistoryTokens   int            `json:"history_tokens"`
	TotalTokens     int            `json:"total_tokens"`
	RemainingTokens int            `json:"remaining_tokens"`
	HistoryMessages int            `json:"history_messages"`
	Messages        []MessageStats `json:"messages,omitempty"`
}

// MessageStats holds token count and role metadata for one history entry.
type MessageStats struct {
	ID     core.MessageID `json:"id,omitempty"`
	Role   core.Role      `json:"role"`
	Tokens int            `json:"tokens"`
}

// TakeSnapshot measures a request against the manager's context limit.
func (m *Manager) TakeSnapshot(request *core.ModelRequest, counter *tokens.Counter) Snapshot {
	breakdown := counter.CountRequest(request)

	snapshot := Snapshot{
		ContextSize:     m.MaxTokens,
		SystemTokens:    breakdown.SystemInstruction,
		ToolTokens:      breakdown.Tools,
		HistoryTokens:   breakdown.ConversationHistory,
		HistoryMessages: len(request.Contents),
	}

	snapshot.TotalTokens = snapshot.SystemTokens + snapshot.ToolTokens + snapshot.HistoryTokens
	snapshot.RemainingTokens = snapshot.ContextSize - snapshot.TotalTokens

	snapshot.Messages = make([]MessageStats, 0, len(request.Contents))
	for _, msg := range request.Contents {
		snapshot.Messages = append(snapshot.Messages, MessageStats{
			ID:     msg.ID,
			Role:   msg.Role,
			Tokens: counter.Count(msg.CombinedText()),
		})
	}

	return snapshot
}
