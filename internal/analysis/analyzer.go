package analysis

import "github.com/kompakt-dev/kompakt/internal/core"

// Structure bundles everything the analyzer can derive from one history.
type Structure struct {
	TotalMessages int
	TypeCounts    map[MessageType]int
	ToolChains    []ToolChain
	Segments      []Segment

	// CurrentToolChains are the chains still awaiting a final assistant
	// reply; their messages must survive any reduction.
	CurrentToolChains []ToolChain

	// CompletedConversations are the segments typed as conversation.
	CompletedConversations []Segment

	// CurrentUserMessage is the most recent user turn that is not a
	// context injection, or nil if there is none.
	CurrentUserMessage *Classified

	SystemMessages    []Classified
	ContextInjections []Classified
}

// AnalyzeStructure runs classification, chain extraction, and
// segmentation over the history and cross-references the results.
func (a *Analyzer) AnalyzeStructure(messages []core.Message) Structure {
	buckets := a.ClassifyMessageTypes(messages)
	chains := a.IdentifyToolChains(messages)
	segments := a.SegmentConversation(messages)

	structure := Structure{
		TotalMessages:     len(messages),
		TypeCounts:        make(map[MessageType]int, len(buckets)),
		ToolChains:        chains,
		Segments:          segments,
		SystemMessages:    buckets[TypeSystem],
		ContextInjections: buckets[TypeContextInjection],
	}

	for msgType, bucket := range buckets {
		structure.TypeCounts[msgType] = len(bucket)
	}

	for _, chain := range chains {
		if !chain.IsComplete {
			structure.CurrentToolChains = append(structure.CurrentToolChains, chain)
		}
	}

	for _, segment := range segments {
		if segment.Type == SegmentConversation {
			structure.CompletedConversations = append(structure.CompletedConversations, segment)
		}
	}

	userMessages := buckets[TypeUser]
	for i := len(userMessages) - 1; i >= 0; i-- {
		candidate := userMessages[i]
		structure.CurrentUserMessage = &candidate
		break
	}

	return structure
}

// InIncompleteChain reports whether the message at index belongs to a
// tool chain that has not completed.
func (s Structure) InIncompleteChain(index int) bool {
	for _, chain := range s.CurrentToolChains {
		if index >= chain.StartIndex && index <= chain.EndIndex {
			return true
		}
	}
	return false
}
