// Package assembly selects conversation content under a hard token
// budget. The budget is split across five priority tiers; each tier
// greedily takes its highest-scored items, with partial inclusion of
// oversized items where allowed.
package assembly

import "fmt"

type Tier int

const (
	TierCritical Tier = iota
	TierHigh
	TierMedium
	TierLow
	TierMinimal
)

var tierNames = map[Tier]string{
	TierCritical: "critical",
	TierHigh:     "high",
	TierMedium:   "medium",
	TierLow:      "low",
	TierMinimal:  "minimal",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// Tiers lists the tiers in assembly order, highest priority first.
var Tiers = []Tier{TierCritical, TierHigh, TierMedium, TierLow, TierMinimal}

// Allocation splits a total budget into per-tier quotas plus an emergency
// reserve. The sub-quotas never sum past Total.
type Allocation struct {
	Total             int `json:"total"`
	Critical          int `json:"critical"`
	High              int `json:"high"`
	Medium            int `json:"medium"`
	Low               int `json:"low"`
	Minimal           int `json:"minimal"`
	ReservedEmergency int `json:"reserved_emergency"`
}

// NewAllocation validates the sum invariant. A violation is a programming
// error in the caller's arithmetic, not a runtime data condition.
func NewAllocation(total, critical, high, medium, low, minimal, reserved int) (Allocation, error) {
	sum := critical + high + medium + low + minimal + reserved
	if sum > total {
		return Allocation{}, fmt.Errorf("allocation sum %d exceeds total budget %d", sum, total)
	}

	return Allocation{
		Total:             total,
		Critical:          critical,
		High:              high,
		Medium:            medium,
		Low:               low,
		Minimal:           minimal,
		ReservedEmergency: reserved,
	}, nil
}

// ForTier returns the quota for one tier.
func (a Allocation) ForTier(tier Tier) int {
	switch tier {
	case TierCritical:
		return a.Critical
	case TierHigh:
		return a.High
	case TierMedium:
		return a.Medium
	case TierLow:
		return a.Low
	default:
		return a.Minimal
	}
}

// CalculateAllocation splits totalBudget across the tiers. The critical
// tier has a token floor so critical content is never starved; when the
// floor cannot coexist with the other tiers the allocator degrades
// granularity instead of failing: the non-critical tiers shrink
// proportionally, and when even that is impossible they drop to zero and
// the whole remainder goes to critical.
func (asm *Assembler) CalculateAllocation(totalBudget int) Allocation {
	if totalBudget <= 0 {
		return Allocation{}
	}

	cfg := asm.config

	reserved := int(float64(totalBudget) * cfg.EmergencyReservePct)
	remainder := totalBudget - reserved

	critical := int(float64(remainder) * cfg.CriticalPct)
	if critical < cfg.MinCriticalTokens {
		critical = cfg.MinCriticalTokens
	}
	if critical > remainder {
		critical = remainder
	}

	high := int(float64(remainder) * cfg.HighPct)
	medium := int(float64(remainder) * cfg.MediumPct)
	low := int(float64(remainder) * cfg.LowPct)
	minimal := int(float64(remainder) * cfg.MinimalPct)

	available := remainder - critical
	othersSum := high + medium + low + minimal

	if othersSum > available {
		if available > 0 {
			ratio := float64(available) / float64(othersSum)
			high = int(float64(high) * ratio)
			medium = int(float64(medium) * ratio)
			low = int(float64(low) * ratio)
			minimal = int(float64(minimal) * ratio)
		} else {
			high, medium, low, minimal = 0, 0, 0, 0
		}

		// Rounding can zero every non-critical tier; as a last resort
		// split whatever room is left after critical evenly.
		if high+medium+low+minimal == 0 && available >= 4 {
			share := available / 4
			high, medium, low, minimal = share, share, share, share
		}
	}

	allocation, err := NewAllocation(remainder+reserved, critical, high, medium, low, minimal, reserved)
	if err != nil {
		// The ladder above keeps the sum under the total; reaching this
		// point means the arithmetic changed without its guard.
		panic(err)
	}

	return allocation
}
