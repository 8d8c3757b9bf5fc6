package priority

import (
	"time"

	"github.com/kompakt-dev/kompakt/internal/core"
)

// Item is one scoreable piece of conversation content plus the metadata
// the scorers and the assembler's tier classification read. Items carry a
// copy of their message; the original history is never mutated.
type Item struct {
	Message core.Message
	Index   int

	IsSystem          bool
	IsCurrentTurn     bool
	InIncompleteChain bool

	ToolCount    int
	MessageCount int

	ErrorLabels     []string
	ErrorCount      int
	HasRecentErrors bool

	Timestamp time.Time

	// Tokens is the counted cost of the item's text, filled in by the
	// assembler before selection.
	Tokens int

	// Score is the composite priority attached by Prioritize.
	Score float64

	// Partial marks an item whose text was truncated to fit a budget.
	Partial        bool
	OriginalLength int
}

// HasToolActivity reports whether the item represents tool usage.
func (it Item) HasToolActivity() bool {
	return it.ToolCount > 0 || it.Message.HasToolCall() || it.Message.HasToolResult()
}

// Text returns the item's scoreable text.
func (it Item) Text() string {
	return it.Message.CombinedText()
}
