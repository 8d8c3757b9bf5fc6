package tokens

import (
	"encoding/json"
	"strings"

	"github.com/kompakt-dev/kompakt/internal/core"
)

// Breakdown reports where the tokens of an outgoing request go. Total is
// the sum of the four component fields.
type Breakdown struct {
	SystemInstruction   int `json:"system_instruction"`
	Tools               int `json:"tools"`
	UserMessage         int `json:"user_message"`
	ConversationHistory int `json:"conversation_history"`
	Total               int `json:"total"`
}

// CountRequest walks an outgoing request and returns its token breakdown.
// The most recent user message that is not a context injection is counted
// separately as UserMessage (its tokens also appear in
// ConversationHistory). A nil request yields a zero breakdown.
func (c *Counter) CountRequest(request *core.ModelRequest) Breakdown {
	var breakdown Breakdown
	if request == nil {
		return breakdown
	}

	breakdown.SystemInstruction = c.Count(request.SystemInstruction)

	for _, tool := range request.Tools {
		breakdown.Tools += c.countToolDef(tool)
	}

	lastUserIndex := -1
	for i, msg := range request.Contents {
		text := msg.CombinedText()
		breakdown.ConversationHistory += c.Count(text)

		if msg.Role == core.RoleUser && !strings.HasPrefix(text, core.ContextInjectionMarker) {
			lastUserIndex = i
		}
	}

	if lastUserIndex >= 0 {
		breakdown.UserMessage = c.Count(request.Contents[lastUserIndex].CombinedText())
	}

	breakdown.Total = breakdown.SystemInstruction + breakdown.Tools +
		breakdown.UserMessage + breakdown.ConversationHistory

	return breakdown
}

func (c *Counter) countToolDef(tool core.ToolDef) int {
	data, err := json.Marshal(tool)
	if err != nil {
		return c.Count(tool.Name) + c.Count(tool.Description)
	}
	return c.Count(string(data))
}
