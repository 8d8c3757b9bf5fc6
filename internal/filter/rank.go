package filter

import (
	"math"
	"sort"

	"github.com/kompakt-dev/kompakt/internal/analysis"
)

// rankedSegment attaches the filter's internal priority to a segment.
// This ranking is separate from the prioritizer's per-item score: it
// works at segment granularity and leans heavily on structural signals.
type rankedSegment struct {
	Segment  analysis.Segment
	Position int
	Priority float64
}

const (
	toolActivityBoost = 50.0
	toolErrorBoost    = 25.0
	errorPolicyBoost  = 20.0
	currentTurnBoost  = 75.0
	lengthBoostMax    = 10.0
)

// rankSegments scores every segment and returns them sorted by priority
// descending. More recent segments rank higher; tool activity, errors,
// and the current user turn add fixed boosts.
func (f *Filter) rankSegments(structure analysis.Structure) []rankedSegment {
	segments := structure.Segments
	total := len(segments)

	ranked := make([]rankedSegment, 0, total)
	for i, segment := range segments {
		score := float64(i+1) / float64(total) * 100

		if segment.HasToolActivity {
			score += toolActivityBoost
		}

		hasError := segmentHasToolError(segment)
		if hasError {
			score += toolErrorBoost
		}
		if hasError && f.policy.PreserveErrors {
			score += errorPolicyBoost
		}

		score += math.Min(float64(len(segment.Messages))/10, 1.0) * lengthBoostMax

		if structure.CurrentUserMessage != nil && segment.Contains(structure.CurrentUserMessage.Index) {
			score += currentTurnBoost
		}

		ranked = append(ranked, rankedSegment{Segment: segment, Position: i, Priority: score})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Priority > ranked[b].Priority
	})

	return ranked
}

func segmentHasToolError(segment analysis.Segment) bool {
	for _, msg := range segment.Messages {
		for _, result := range msg.ToolResults() {
			if result.IsError {
				return true
			}
		}
		if msg.HasToolResult() && analysis.DetectToolError(msg.CombinedText()) {
			return true
		}
	}
	return false
}
