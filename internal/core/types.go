package core

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContextInjectionMarker prefixes system-authored user turns that carry
// structured contextual data instead of an actual user utterance.
const ContextInjectionMarker = "SYSTEM CONTEXT (JSON):"

type PartKind string

const (
	PartText       PartKind = "text"
	PartToolCall   PartKind = "tool_call"
	PartToolResult PartKind = "tool_result"
)

// Part is one typed element of a message payload. Exactly one of the
// payload fields is set, selected by Kind.
type Part struct {
	Kind       PartKind    `json:"kind"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

func ToolCallPart(call ToolCall) Part {
	return Part{Kind: PartToolCall, ToolCall: &call}
}

func ToolResultPart(result ToolResult) Part {
	return Part{Kind: PartToolResult, ToolResult: &result}
}

// Message is one entry of a conversation history. Messages are immutable
// once created; the optimization pipeline only selects and copies them.
type Message struct {
	ID        MessageID `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Text      string    `json:"text,omitempty"`
	Parts     []Part    `json:"parts,omitempty"`
	Timestamp time.Time `json:"ts,omitzero"`
	Tokens    int       `json:"tokens,omitempty"`
}

type ToolCall struct {
	ID        ToolCallID     `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type ToolResult struct {
	CallID  ToolCallID `json:"call_id"`
	Name    string     `json:"name"`
	Output  string     `json:"output"`
	IsError bool       `json:"is_error,omitempty"`
}

type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ModelRequest is the outgoing request the pipeline optimizes. The
// conversation history in Contents is owned by the caller; an optimization
// pass reads it and writes back a replacement sequence.
type ModelRequest struct {
	SystemInstruction string
	Tools             []ToolDef
	Contents          []Message
}

// HasToolCall reports whether any part of the message carries a tool call.
func (m Message) HasToolCall() bool {
	for _, part := range m.Parts {
		if part.Kind == PartToolCall && part.ToolCall != nil {
			return true
		}
	}
	return false
}

// HasToolResult reports whether any part of the message carries a tool result.
func (m Message) HasToolResult() bool {
	for _, part := range m.Parts {
		if part.Kind == PartToolResult && part.ToolResult != nil {
			return true
		}
	}
	return false
}

// ToolCalls returns the tool calls carried by the message, in part order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, part := range m.Parts {
		if part.Kind == PartToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

// ToolResults returns the tool results carried by the message, in part order.
func (m Message) ToolResults() []ToolResult {
	var results []ToolResult
	for _, part := range m.Parts {
		if part.Kind == PartToolResult && part.ToolResult != nil {
			results = append(results, *part.ToolResult)
		}
	}
	return results
}
