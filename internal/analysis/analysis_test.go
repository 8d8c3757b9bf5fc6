package analysis

import (
	"testing"

	"github.com/kompakt-dev/kompakt/internal/core"
)

func userMsg(text string) core.Message {
	return core.Message{Role: core.RoleUser, Text: text}
}

func assistantMsg(text string) core.Message {
	return core.Message{Role: core.RoleAssistant, Text: text}
}

func assistantWithCall(name string, callID core.ToolCallID) core.Message {
	return core.Message{
		Role: core.RoleAssistant,
		Parts: []core.Part{
			core.ToolCallPart(core.ToolCall{ID: callID, Name: name}),
		},
	}
}

func toolResultMsg(callID core.ToolCallID, output string) core.Message {
	return core.Message{
		Role: core.RoleTool,
		Parts: []core.Part{
			core.ToolResultPart(core.ToolResult{CallID: callID, Name: "tool", Output: output}),
		},
	}
}

func TestClassifyMessage_Precedence(t *testing.T) {
	analyzer := NewAnalyzer()

	cases := []struct {
		name string
		msg  core.Message
		want MessageType
	}{
		{"injection beats system role", core.Message{Role: core.RoleSystem, Text: core.ContextInjectionMarker + " {}"}, TypeContextInjection},
		{"injection on user role", userMsg(core.ContextInjectionMarker + ` {"task":"x"}`), TypeContextInjection},
		{"system role", core.Message{Role: core.RoleSystem, Text: "You are an assistant."}, TypeSystem},
		{"system indicator in text", userMsg("[system] maintenance notice"), TypeSystem},
		{"tool role", toolResultMsg("call_1", "ok"), TypeToolResult},
		{"assistant with tool call", assistantWithCall("grep", "call_2"), TypeToolResult},
		{"tool indicator in text", assistantMsg("Tool result: 3 files found"), TypeToolResult},
		{"plain user", userMsg("hello"), TypeUser},
		{"plain assistant", assistantMsg("hi"), TypeAssistant},
		{"unknown role", core.Message{Role: core.Role("widget"), Text: "?"}, TypeUnknown},
	}

	for _, tc := range cases {
		if got := analyzer.ClassifyMessage(tc.msg); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestClassifyMessageTypes_PreservesOrder(t *testing.T) {
	analyzer := NewAnalyzer()

	messages := []core.Message{
		userMsg("first"),
		assistantMsg("reply"),
		userMsg("second"),
	}

	buckets := analyzer.ClassifyMessageTypes(messages)

	users := buckets[TypeUser]
	if len(users) != 2 {
		t.Fatalf("expected 2 user messages, got %d", len(users))
	}
	if users[0].Index != 0 || users[1].Index != 2 {
		t.Errorf("user indices = %d,%d, want 0,2", users[0].Index, users[1].Index)
	}
}

func TestIdentifyToolChains_Complete(t *testing.T) {
	analyzer := NewAnalyzer()

	messages := []core.Message{
		userMsg("list the files"),
		assistantWithCall("list_files", "call_1"),
		toolResultMsg("call_1", "main.go"),
		assistantMsg("there is one file"),
	}

	chains := analyzer.IdentifyToolChains(messages)

	if len(chains) != 1 {
		t.Fatalf("expected exactly one chain, got %d", len(chains))
	}

	chain := chains[0]
	if !chain.IsComplete {
		t.Error("chain with trailing assistant reply should be complete")
	}
	if chain.StartIndex != 0 || chain.EndIndex != 3 {
		t.Errorf("chain span = [%d..%d], want [0..3]", chain.StartIndex, chain.EndIndex)
	}
	if len(chain.ToolResults) != 1 {
		t.Errorf("tool results = %d, want 1", len(chain.ToolResults))
	}
	if chain.FinalResponse == nil {
		t.Error("complete chain should carry the final response")
	}
}

func TestIdentifyToolChains_Incomplete(t *testing.T) {
	analyzer := NewAnalyzer()

	messages := []core.Message{
		userMsg("list the files"),
		assistantWithCall("list_files", "call_1"),
		toolResultMsg("call_1", "main.go"),
	}

	chains := analyzer.IdentifyToolChains(messages)

	if len(chains) != 1 {
		t.Fatalf("expected exactly one chain, got %d", len(chains))
	}
	if chains[0].IsComplete {
		t.Error("chain without trailing assistant reply should be incomplete")
	}
	if chains[0].EndIndex != 2 {
		t.Errorf("incomplete chain end = %d, want last tool result index 2", chains[0].EndIndex)
	}
}

func TestIdentifyToolChains_NoChainWithoutToolCall(t *testing.T) {
	analyzer := NewAnalyzer()

	messages := []core.Message{
		userMsg("hello"),
		assistantMsg("hi there"),
		userMsg("how are you"),
		assistantMsg("fine"),
	}

	if chains := analyzer.IdentifyToolChains(messages); len(chains) != 0 {
		t.Errorf("plain conversation should have no chains, got %d", len(chains))
	}
}

func TestIdentifyToolChains_ErrorDetection(t *testing.T) {
	analyzer := NewAnalyzer()

	messages := []core.Message{
		userMsg("read the file"),
		assistantWithCall("read_file", "call_1"),
		toolResultMsg("call_1", "error: permission denied"),
		assistantMsg("that failed"),
	}

	chains := analyzer.IdentifyToolChains(messages)
	if len(chains) != 1 || !chains[0].HasErrors {
		t.Error("chain with failing tool result should be flagged")
	}
}

func TestSegmentConversation_Partition(t *testing.T) {
	analyzer := NewAnalyzer()

	messages := []core.Message{
		{Role: core.RoleSystem, Text: "You are a coding assistant."},
		userMsg(core.ContextInjectionMarker + ` {"task":"build"}`),
		userMsg("first question"),
		assistantMsg("first answer"),
		userMsg("second question"),
		assistantWithCall("grep", "call_1"),
		toolResultMsg("call_1", "match found"),
	}

	segments := analyzer.SegmentConversation(messages)

	// Partition: no gaps, no overlaps, full coverage.
	next := 0
	for _, segment := range segments {
		if segment.StartIndex != next {
			t.Fatalf("segment starts at %d, want %d", segment.StartIndex, next)
		}
		if len(segment.Messages) != segment.EndIndex-segment.StartIndex+1 {
			t.Fatalf("segment [%d..%d] holds %d messages", segment.StartIndex, segment.EndIndex, len(segment.Messages))
		}
		next = segment.EndIndex + 1
	}
	if next != len(messages) {
		t.Fatalf("segments cover up to %d, want %d", next, len(messages))
	}

	if segments[0].Type != SegmentSystem {
		t.Errorf("first segment type = %s, want system", segments[0].Type)
	}
	if segments[1].Type != SegmentContextInjection {
		t.Errorf("second segment type = %s, want context_injection", segments[1].Type)
	}
	if segments[1].Injection == nil || segments[1].Injection.Task != "build" {
		t.Errorf("injection payload not attached: %+v", segments[1].Injection)
	}

	last := segments[len(segments)-1]
	if !last.HasToolActivity {
		t.Error("segment with tool call and result should have tool activity")
	}
	if last.UserQuery != "second question" {
		t.Errorf("user query = %q", last.UserQuery)
	}
}

func TestAnalyzeStructure(t *testing.T) {
	analyzer := NewAnalyzer()

	messages := []core.Message{
		{Role: core.RoleSystem, Text: "You are a coding assistant."},
		userMsg("fix the bug"),
		assistantWithCall("read_file", "call_1"),
		toolResultMsg("call_1", "source code"),
	}

	structure := analyzer.AnalyzeStructure(messages)

	if structure.TotalMessages != 4 {
		t.Errorf("total = %d", structure.TotalMessages)
	}
	if len(structure.CurrentToolChains) != 1 {
		t.Fatalf("expected one incomplete chain, got %d", len(structure.CurrentToolChains))
	}
	if structure.CurrentUserMessage == nil || structure.CurrentUserMessage.Index != 1 {
		t.Error("current user message should be index 1")
	}
	if !structure.InIncompleteChain(2) || !structure.InIncompleteChain(3) {
		t.Error("chain members should report membership")
	}
	if structure.InIncompleteChain(0) {
		t.Error("system message is not in the chain")
	}
}

func TestAnalyzeStructure_CurrentUserSkipsInjection(t *testing.T) {
	analyzer := NewAnalyzer()

	messages := []core.Message{
		userMsg("the real question"),
		userMsg(core.ContextInjectionMarker + ` {"files":["a.go"]}`),
	}

	structure := analyzer.AnalyzeStructure(messages)

	if structure.CurrentUserMessage == nil || structure.CurrentUserMessage.Index != 0 {
		t.Error("context injection must not be the current user message")
	}
}

func TestSegmentConversation_MidConversationInjection(t *testing.T) {
	analyzer := NewAnalyzer()

	messages := []core.Message{
		userMsg("what changed?"),
		userMsg(core.ContextInjectionMarker + ` {"task":"review","files":["diff.go"]}`),
		assistantMsg("looking at the diff"),
	}

	segments := analyzer.SegmentConversation(messages)

	if len(segments) != 1 {
		t.Fatalf("expected one conversation segment, got %d", len(segments))
	}
	if segments[0].Injection == nil {
		t.Fatal("injection inside the segment should be attached")
	}
	if segments[0].Injection.Task != "review" || len(segments[0].Injection.Files) != 1 {
		t.Errorf("injection payload = %+v", segments[0].Injection)
	}
}

func TestParseInjection(t *testing.T) {
	text := core.ContextInjectionMarker + ` {"task":"refactor","files":["a.go","b.go"],"branch":"main"}`

	info := ParseInjection(text)

	if !info.Valid {
		t.Fatal("payload should parse")
	}
	if info.Task != "refactor" {
		t.Errorf("task = %q", info.Task)
	}
	if len(info.Files) != 2 || info.Files[0] != "a.go" {
		t.Errorf("files = %v", info.Files)
	}
	if len(info.Keys) != 3 {
		t.Errorf("keys = %v", info.Keys)
	}
}

func TestParseInjection_Malformed(t *testing.T) {
	if info := ParseInjection(core.ContextInjectionMarker + " {not json"); info.Valid {
		t.Error("malformed payload should not be valid")
	}
	if info := ParseInjection("no marker at all"); info.Valid {
		t.Error("missing marker should not be valid")
	}
}

func TestErrorLabels(t *testing.T) {
	labels := ErrorLabels("Traceback (most recent call last): operation timed out")
	if len(labels) != 2 {
		t.Fatalf("labels = %v", labels)
	}

	if got := ErrorLabels("all quiet"); got != nil {
		t.Errorf("clean text should have no labels, got %v", got)
	}
}
