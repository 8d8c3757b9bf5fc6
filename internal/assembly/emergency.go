package assembly

import (
	"sort"

	"github.com/kompakt-dev/kompakt/internal/priority"
)

// emergencyFallbackCount is how many top-scored items survive when no
// item carries a critical signal.
const emergencyFallbackCount = 3

// CreateEmergencyContext bypasses tiered allocation: only critical-signal
// items are considered, or the top few by score when nothing qualifies,
// assembled against the entire budget.
func (asm *Assembler) CreateEmergencyContext(items []priority.Item, targetBudget int) Result {
	var critical []priority.Item
	for _, item := range items {
		item.Tokens = asm.itemTokens(item)
		if item.IsSystem || item.IsCurrentTurn || item.Score >= 0.9 {
			critical = append(critical, item)
		}
	}

	if len(critical) == 0 {
		ranked := make([]priority.Item, len(items))
		copy(ranked, items)
		sort.SliceStable(ranked, func(a, b int) bool {
			return ranked[a].Score > ranked[b].Score
		})

		if len(ranked) > emergencyFallbackCount {
			ranked = ranked[:emergencyFallbackCount]
		}
		for i := range ranked {
			ranked[i].Tokens = asm.itemTokens(ranked[i])
		}
		critical = ranked
	}

	selected, used := asm.assembleTier(critical, targetBudget)

	result := Result{
		Items:             selected,
		TokensUsed:        used,
		Strategy:          StrategyEmergency,
		EmergencyModeUsed: true,
		TruncationApplied: true,
		ByTier: map[string]TierStats{
			TierCritical.String(): {
				Candidates: len(critical),
				Selected:   len(selected),
				TokensUsed: used,
				Budget:     targetBudget,
			},
		},
	}

	if targetBudget > 0 {
		result.BudgetUtilization = float64(used) / float64(targetBudget)
	}

	for _, item := range selected {
		if item.IsSystem || item.IsCurrentTurn || item.InIncompleteChain {
			result.PreservedCriticalContent = true
		}
	}

	return result
}
