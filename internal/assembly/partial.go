package assembly

import (
	"strings"

	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/priority"
)

// minPartialBudget is the smallest remaining tier budget worth truncating
// into.
const minPartialBudget = 100

const truncationSuffix = "... [truncated]"

// tryPartialInclusion truncates an oversized item to fit the remaining
// tier budget. System and current-turn messages are all-or-nothing, and
// truncation is only worthwhile when the item is at least twice the
// remaining budget.
func (asm *Assembler) tryPartialInclusion(item priority.Item, remainingBudget int) (priority.Item, bool) {
	if item.IsSystem || item.IsCurrentTurn {
		return priority.Item{}, false
	}

	if item.Tokens < 2*remainingBudget {
		return priority.Item{}, false
	}

	return asm.createPartialItem(item, remainingBudget)
}

// createPartialItem cuts the item's text to fit remainingBudget. The
// truncated item's counted tokens never exceed the remaining budget: the
// character window starts with room for the suffix and shrinks until the
// count fits, or truncation is abandoned.
func (asm *Assembler) createPartialItem(item priority.Item, remainingBudget int) (priority.Item, bool) {
	text := item.Text()

	maxChars := remainingBudget*4 - len(truncationSuffix)
	if maxChars <= 0 || maxChars >= len(text) {
		return priority.Item{}, false
	}

	for maxChars > 0 {
		truncated := truncateAt(text, maxChars) + truncationSuffix

		tokens := asm.counter.Count(truncated)
		if tokens > remainingBudget {
			maxChars -= (tokens - remainingBudget) * 4
			continue
		}

		partial := item
		partial.Partial = true
		partial.OriginalLength = len(text)
		partial.Message = core.Message{
			ID:        item.Message.ID,
			Role:      item.Message.Role,
			Text:      truncated,
			Timestamp: item.Message.Timestamp,
		}
		partial.Tokens = tokens
		return partial, true
	}

	return priority.Item{}, false
}

// truncateAt cuts text near maxChars, preferring the nearest sentence
// boundary or newline when one falls in the back half of the window.
func truncateAt(text string, maxChars int) string {
	window := text[:maxChars]
	cut := maxChars

	boundary := strings.LastIndex(window, ". ")
	if newline := strings.LastIndex(window, "\n"); newline > boundary {
		boundary = newline
	}
	if boundary > maxChars/2 {
		cut = boundary
	}

	return text[:cut]
}
