package core

import (
	"sort"
	"strings"
)

// CombinedText renders every text-bearing piece of the message into a
// single string, in part order. Tool results contribute their output so
// that token counting and relevance scoring see what the model sees.
func (m Message) CombinedText() string {
	pieces := make([]string, 0, 1+len(m.Parts))

	if m.Text != "" {
		pieces = append(pieces, m.Text)
	}

	for _, part := range m.Parts {
		switch part.Kind {
		case PartText:
			if part.Text != "" {
				pieces = append(pieces, part.Text)
			}
		case PartToolCall:
			if part.ToolCall != nil {
				pieces = append(pieces, renderToolCall(*part.ToolCall))
			}
		case PartToolResult:
			if part.ToolResult != nil && part.ToolResult.Output != "" {
				pieces = append(pieces, part.ToolResult.Output)
			}
		}
	}

	return strings.Join(pieces, "\n")
}

// IsContextInjection reports whether the message is a system-authored
// context carrier disguised as a user or system turn.
func (m Message) IsContextInjection() bool {
	if m.Role != RoleUser && m.Role != RoleSystem {
		return false
	}
	return strings.Contains(m.CombinedText(), ContextInjectionMarker)
}

func renderToolCall(call ToolCall) string {
	var builder strings.Builder
	builder.WriteString(call.Name)
	builder.WriteString("(")

	keys := make([]string, 0, len(call.Arguments))
	for key := range call.Arguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for i, key := range keys {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(key)
	}

	builder.WriteString(")")
	return builder.String()
}
