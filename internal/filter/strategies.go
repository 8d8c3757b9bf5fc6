package filter

import (
	"sort"

	"github.com/kompakt-dev/kompakt/internal/core"
)

// filterConservative keeps all but the two lowest-priority segments,
// floored at the policy minimum. No token-level fitting.
func (f *Filter) filterConservative(ranked []rankedSegment, mustPreserve map[int]bool) map[int]bool {
	keepCount := len(ranked) - 2
	if keepCount < f.policy.MinConversationsToKeep {
		keepCount = f.policy.MinConversationsToKeep
	}

	return f.keepTopSegments(ranked, keepCount, mustPreserve)
}

// filterModerate starts from half the policy maximum and drops the
// lowest-priority droppable segment until under budget or at the floor.
// The floor is absolute: it wins over the budget.
func (f *Filter) filterModerate(messages []core.Message, ranked []rankedSegment, mustPreserve map[int]bool, targetBudget int) map[int]bool {
	keepCount := f.policy.MaxConversationsToKeep / 2
	if keepCount < f.policy.MinConversationsToKeep {
		keepCount = f.policy.MinConversationsToKeep
	}

	kept := topSegments(ranked, keepCount)
	keep := f.keepIndices(kept, mustPreserve)

	if f.counter == nil {
		return keep
	}

	for f.keptTokens(messages, keep) > targetBudget && len(kept) > f.policy.MinConversationsToKeep {
		dropPos := -1
		for i := len(kept) - 1; i >= 0; i-- {
			if !segmentContainsPreserved(kept[i], mustPreserve) {
				dropPos = i
				break
			}
		}
		if dropPos < 0 {
			break
		}

		kept = append(kept[:dropPos], kept[dropPos+1:]...)
		keep = f.keepIndices(kept, mustPreserve)
	}

	return keep
}

// filterAggressive keeps only the minimum segments, then removes
// individual unprotected messages from the middle of the remaining range,
// preserving the head and tail for continuity.
func (f *Filter) filterAggressive(messages []core.Message, ranked []rankedSegment, mustPreserve map[int]bool, targetBudget int) map[int]bool {
	kept := topSegments(ranked, f.policy.MinConversationsToKeep)
	keep := f.keepIndices(kept, mustPreserve)

	if f.counter == nil {
		return keep
	}

	for f.keptTokens(messages, keep) > targetBudget {
		removed := f.removeMiddleMessage(keep, mustPreserve)
		if !removed {
			break
		}
	}

	return keep
}

// removeMiddleMessage drops the kept, unprotected index closest to the
// middle of the kept range. Returns false when nothing is removable.
func (f *Filter) removeMiddleMessage(keep map[int]bool, mustPreserve map[int]bool) bool {
	indices := sortedIndices(keep)
	if len(indices) == 0 {
		return false
	}

	middle := float64(indices[0]+indices[len(indices)-1]) / 2

	best := -1
	bestDistance := 0.0
	for _, index := range indices {
		if mustPreserve[index] {
			continue
		}
		distance := middle - float64(index)
		if distance < 0 {
			distance = -distance
		}
		if best < 0 || distance < bestDistance {
			best = index
			bestDistance = distance
		}
	}

	if best < 0 {
		return false
	}

	delete(keep, best)
	return true
}

func (f *Filter) keepTopSegments(ranked []rankedSegment, count int, mustPreserve map[int]bool) map[int]bool {
	return f.keepIndices(topSegments(ranked, count), mustPreserve)
}

func (f *Filter) keepIndices(segments []rankedSegment, mustPreserve map[int]bool) map[int]bool {
	keep := make(map[int]bool)

	for _, ranked := range segments {
		for i := ranked.Segment.StartIndex; i <= ranked.Segment.EndIndex; i++ {
			keep[i] = true
		}
	}
	for index := range mustPreserve {
		keep[index] = true
	}

	return keep
}

func (f *Filter) keptTokens(messages []core.Message, keep map[int]bool) int {
	total := 0
	for i, msg := range messages {
		if keep[i] {
			total += f.counter.Count(msg.CombinedText())
		}
	}
	return total
}

func topSegments(ranked []rankedSegment, count int) []rankedSegment {
	if count < 0 {
		count = 0
	}
	if count > len(ranked) {
		count = len(ranked)
	}

	top := make([]rankedSegment, count)
	copy(top, ranked[:count])
	return top
}

func segmentContainsPreserved(ranked rankedSegment, mustPreserve map[int]bool) bool {
	for i := ranked.Segment.StartIndex; i <= ranked.Segment.EndIndex; i++ {
		if mustPreserve[i] {
			return true
		}
	}
	return false
}

func sortedIndices(keep map[int]bool) []int {
	indices := make([]int, 0, len(keep))
	for index := range keep {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices
}
