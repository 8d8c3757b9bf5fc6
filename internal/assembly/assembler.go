package assembly

import (
	"sort"

	"github.com/kompakt-dev/kompakt/internal/priority"
	"github.com/kompakt-dev/kompakt/internal/tokens"
)

// Config holds the assembler's budget split and selection behavior.
type Config struct {
	CriticalPct float64 `toml:"critical_pct"`
	HighPct     float64 `toml:"high_pct"`
	MediumPct   float64 `toml:"medium_pct"`
	LowPct      float64 `toml:"low_pct"`
	MinimalPct  float64 `toml:"minimal_pct"`

	EmergencyReservePct float64 `toml:"emergency_reserve_pct"`

	// MinCriticalTokens is the floor of the critical tier's quota.
	MinCriticalTokens int `toml:"min_critical_tokens"`

	// EmergencyThreshold is the budget utilization above which the
	// result is flagged as emergency mode.
	EmergencyThreshold float64 `toml:"emergency_threshold"`

	AllowPartialInclusion bool `toml:"allow_partial_inclusion"`

	// MaxAssemblyItems bounds worst-case work on pathological inputs.
	MaxAssemblyItems int `toml:"max_assembly_items"`
}

func DefaultConfig() Config {
	return Config{
		CriticalPct:           0.40,
		HighPct:               0.25,
		MediumPct:             0.15,
		LowPct:                0.10,
		MinimalPct:            0.05,
		EmergencyReservePct:   0.05,
		MinCriticalTokens:     500,
		EmergencyThreshold:    0.90,
		AllowPartialInclusion: true,
		MaxAssemblyItems:      1000,
	}
}

// Assembler fits prioritized content into a token budget. Each instance
// owns its config; sharing across passes is safe absent SetConfig races.
type Assembler struct {
	counter tokens.TextCounter
	config  Config
}

func NewAssembler(counter tokens.TextCounter, config Config) *Assembler {
	return &Assembler{counter: counter, config: config}
}

func (asm *Assembler) Config() Config {
	return asm.config
}

func (asm *Assembler) SetConfig(config Config) {
	asm.config = config
}

// Strategy labels for Result.
const (
	StrategyStandard  = "standard"
	StrategyTruncated = "truncated"
	StrategyEmergency = "emergency"
	StrategyEmpty     = "empty"
)

// TierStats is the per-tier slice of an assembly result.
type TierStats struct {
	Candidates int `json:"candidates"`
	Selected   int `json:"selected"`
	TokensUsed int `json:"tokens_used"`
	Budget     int `json:"budget"`
}

// Result is the output artifact of one assembly pass.
type Result struct {
	Items             []priority.Item
	TokensUsed        int
	BudgetUtilization float64
	ByTier            map[string]TierStats
	Strategy          string
	EmergencyModeUsed bool
	TruncationApplied bool

	// PreservedCriticalContent is true when at least one assembled item
	// is a system message, the current turn, or part of an incomplete
	// tool chain.
	PreservedCriticalContent bool
}

// ClassifyTier places an item in a priority tier. The predicates are
// structural and deliberately independent of the composite score
// thresholds: an explicit signal such as a system message outranks a
// borderline score.
func (asm *Assembler) ClassifyTier(item priority.Item) Tier {
	switch {
	case item.IsSystem || item.IsCurrentTurn || item.InIncompleteChain || item.Score >= 0.9:
		return TierCritical
	case len(item.ErrorLabels) > 0 || item.HasRecentErrors ||
		(item.ToolCount > 0 && item.Score >= 0.7):
		return TierHigh
	case item.ToolCount > 0 || item.Score >= 0.5:
		return TierMedium
	case item.Score >= 0.2:
		return TierLow
	default:
		return TierMinimal
	}
}

// Assemble classifies every item into a tier, allocates the budget, and
// fills the tiers in strict priority order.
func (asm *Assembler) Assemble(items []priority.Item, targetBudget int) Result {
	if len(items) == 0 || targetBudget <= 0 {
		return Result{Strategy: StrategyEmpty, ByTier: map[string]TierStats{}}
	}

	if max := asm.config.MaxAssemblyItems; max > 0 && len(items) > max {
		items = items[:max]
	}

	tierItems := make(map[Tier][]priority.Item, len(Tiers))
	for _, item := range items {
		item.Tokens = asm.itemTokens(item)
		tier := asm.ClassifyTier(item)
		tierItems[tier] = append(tierItems[tier], item)
	}

	allocation := asm.CalculateAllocation(targetBudget)

	result := Result{ByTier: make(map[string]TierStats, len(Tiers))}

	for _, tier := range Tiers {
		candidates := tierItems[tier]
		tierBudget := allocation.ForTier(tier)

		selected, used := asm.assembleTier(candidates, tierBudget)
		result.Items = append(result.Items, selected...)
		result.TokensUsed += used

		if len(selected) < len(candidates) {
			result.TruncationApplied = true
		}

		result.ByTier[tier.String()] = TierStats{
			Candidates: len(candidates),
			Selected:   len(selected),
			TokensUsed: used,
			Budget:     tierBudget,
		}
	}

	result.BudgetUtilization = float64(result.TokensUsed) / float64(targetBudget)
	result.EmergencyModeUsed = result.BudgetUtilization > asm.config.EmergencyThreshold

	for _, item := range result.Items {
		if item.Partial {
			result.TruncationApplied = true
		}
		if item.IsSystem || item.IsCurrentTurn || item.InIncompleteChain {
			result.PreservedCriticalContent = true
		}
	}

	switch {
	case result.EmergencyModeUsed:
		result.Strategy = StrategyEmergency
	case result.TruncationApplied:
		result.Strategy = StrategyTruncated
	default:
		result.Strategy = StrategyStandard
	}

	return result
}

// assembleTier greedily takes the highest-scored items that fit the tier
// budget. The first item that does not fit ends the tier: either a
// partial inclusion is attempted for it, or the rest of the tier is
// dropped without reordering.
func (asm *Assembler) assembleTier(items []priority.Item, budget int) ([]priority.Item, int) {
	if len(items) == 0 || budget <= 0 {
		return nil, 0
	}

	ordered := make([]priority.Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Score > ordered[b].Score
	})

	var selected []priority.Item
	used := 0

	for _, item := range ordered {
		if used+item.Tokens <= budget {
			selected = append(selected, item)
			used += item.Tokens
			continue
		}

		remaining := budget - used
		if asm.config.AllowPartialInclusion && remaining >= minPartialBudget {
			if partial, ok := asm.tryPartialInclusion(item, remaining); ok {
				selected = append(selected, partial)
				used += partial.Tokens
			}
		}
		break
	}

	return selected, used
}

func (asm *Assembler) itemTokens(item priority.Item) int {
	if item.Tokens > 0 {
		return item.Tokens
	}
	return asm.counter.Count(item.Text())
}
