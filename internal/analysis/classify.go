// Package analysis structures a raw conversation history: it classifies
// messages, extracts tool-call chains, and partitions the sequence into
// logical segments. Everything here is a pure function of the message
// sequence.
package analysis

import (
	"strings"

	"github.com/kompakt-dev/kompakt/internal/core"
)

type MessageType string

const (
	TypeContextInjection MessageType = "context_injection"
	TypeSystem           MessageType = "system"
	TypeToolResult       MessageType = "tool_result"
	TypeUser             MessageType = "user"
	TypeAssistant        MessageType = "assistant"
	TypeUnknown          MessageType = "unknown"
)

// systemIndicators mark plain-text payloads that behave like system
// instructions even when the role says otherwise.
var systemIndicators = []string{
	"[system]",
	"system instruction:",
	"system prompt:",
}

// toolResultIndicators mark plain-text payloads carrying tool output
// without a structured tool-result part.
var toolResultIndicators = []string{
	"tool result:",
	"tool output:",
	"[tool_result]",
}

// Classified pairs a message with its position in the original sequence.
type Classified struct {
	Index   int
	Message core.Message
}

// Analyzer classifies and structures conversation histories. It is
// stateless; a single instance may be shared freely.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// ClassifyMessage determines the effective type of a single message.
// Precedence: context injection, system, tool result, then plain
// user/assistant, then unknown.
func (a *Analyzer) ClassifyMessage(msg core.Message) MessageType {
	text := msg.CombinedText()
	lowered := strings.ToLower(text)

	if (msg.Role == core.RoleUser || msg.Role == core.RoleSystem) &&
		strings.Contains(text, core.ContextInjectionMarker) {
		return TypeContextInjection
	}

	if msg.Role == core.RoleSystem || containsAny(lowered, systemIndicators) {
		return TypeSystem
	}

	if msg.Role == core.RoleTool || msg.HasToolResult() || msg.HasToolCall() ||
		containsAny(lowered, toolResultIndicators) {
		return TypeToolResult
	}

	switch msg.Role {
	case core.RoleUser:
		return TypeUser
	case core.RoleAssistant:
		return TypeAssistant
	default:
		return TypeUnknown
	}
}

// ClassifyMessageTypes buckets every message by type, preserving original
// order within each bucket.
func (a *Analyzer) ClassifyMessageTypes(messages []core.Message) map[MessageType][]Classified {
	buckets := make(map[MessageType][]Classified)

	for i, msg := range messages {
		msgType := a.ClassifyMessage(msg)
		buckets[msgType] = append(buckets[msgType], Classified{Index: i, Message: msg})
	}

	return buckets
}

// isToolResult is the predicate used during chain scanning: a message
// counts as tool output if its role or parts say so, or its text carries a
// tool-result indicator.
func (a *Analyzer) isToolResult(msg core.Message) bool {
	if msg.Role == core.RoleTool || msg.HasToolResult() {
		return true
	}
	return containsAny(strings.ToLower(msg.CombinedText()), toolResultIndicators)
}

func containsAny(text string, indicators []string) bool {
	for _, indicator := range indicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}
