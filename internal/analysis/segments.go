package analysis

import "github.com/kompakt-dev/kompakt/internal/core"

type SegmentType string

const (
	SegmentConversation     SegmentType = "conversation"
	SegmentSystem           SegmentType = "system"
	SegmentContextInjection SegmentType = "context_injection"
)

// Segment is a contiguous slice of the conversation. Segments partition
// the full index range with no gaps or overlaps; a new segment starts at
// every user message that is not a context injection.
type Segment struct {
	StartIndex      int
	EndIndex        int
	Messages        []core.Message
	HasToolActivity bool
	UserQuery       string
	Type            SegmentType

	// Injection holds the parsed payload of the first context injection
	// in the segment, when one parses.
	Injection *InjectionInfo
}

// Contains reports whether the segment spans the given message index.
func (s Segment) Contains(index int) bool {
	return index >= s.StartIndex && index <= s.EndIndex
}

// SegmentConversation partitions the history. Messages before the first
// real user message become standalone single-message segments typed by
// their classification; everything after is grouped into conversation
// segments anchored at user turns.
func (a *Analyzer) SegmentConversation(messages []core.Message) []Segment {
	var segments []Segment

	var open *Segment
	for i, msg := range messages {
		msgType := a.ClassifyMessage(msg)
		startsSegment := msgType == TypeUser

		if startsSegment {
			if open != nil {
				segments = append(segments, *open)
			}
			open = &Segment{
				StartIndex: i,
				EndIndex:   i,
				Messages:   []core.Message{msg},
				UserQuery:  msg.CombinedText(),
				Type:       SegmentConversation,
			}
			continue
		}

		if open != nil {
			open.Messages = append(open.Messages, msg)
			open.EndIndex = i
			if messageHasToolActivity(msgType, msg) {
				open.HasToolActivity = true
			}
			if msgType == TypeContextInjection && open.Injection == nil {
				open.Injection = parseInjectionInfo(msg)
			}
			continue
		}

		// Preamble before the first real user turn: standalone segments.
		segment := Segment{
			StartIndex: i,
			EndIndex:   i,
			Messages:   []core.Message{msg},
			Type:       SegmentSystem,
		}
		if msgType == TypeContextInjection {
			segment.Type = SegmentContextInjection
			segment.Injection = parseInjectionInfo(msg)
		}
		segments = append(segments, segment)
	}

	if open != nil {
		segments = append(segments, *open)
	}

	return segments
}

func messageHasToolActivity(msgType MessageType, msg core.Message) bool {
	return msgType == TypeToolResult || msg.HasToolCall()
}

func parseInjectionInfo(msg core.Message) *InjectionInfo {
	info := ParseInjection(msg.CombinedText())
	if !info.Valid {
		return nil
	}
	return &info
}
