// Package budget computes the token budget available for optimizable
// context once the fixed parts of a request are accounted for.
package budget

import (
	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/tokens"
)

// DefaultMaxContextTokens is a conservative default context window.
const DefaultMaxContextTokens = 200_000

// Manager computes per-request context budgets against a fixed model
// context limit.
type Manager struct {
	MaxTokens int
}

func NewManager(maxTokens int) *Manager {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	return &Manager{MaxTokens: maxTokens}
}

// Breakdown extends the request token breakdown with the budget decision.
type Breakdown struct {
	tokens.Breakdown

	BaseTokens     int     `json:"base_tokens"`
	SafetyMargin   int     `json:"safety_margin"`
	Budget         int     `json:"budget"`
	UtilizationPct float64 `json:"utilization_pct"`
}

// SafetyMargin returns the fixed token reserve for a request whose
// non-optimizable parts cost baseTokens. The margin shrinks as headroom
// shrinks so optimization still has room to operate near the limit.
func (m *Manager) SafetyMargin(baseTokens int) int {
	remaining := m.MaxTokens - baseTokens

	switch {
	case remaining > 100_000:
		return 2000
	case remaining > 50_000:
		return 1000
	case remaining > 10_000:
		return 500
	case remaining > 1_000:
		return 200
	default:
		return 50
	}
}

// AvailableBudget returns the tokens the optimizer may spend on
// conversation history, never negative, along with the full breakdown.
// The base cost is the system instruction, tool schemas, and the current
// user message; history is what gets optimized against the budget.
func (m *Manager) AvailableBudget(request *core.ModelRequest, counter *tokens.Counter) (int, Breakdown) {
	requestBreakdown := counter.CountRequest(request)

	base := requestBreakdown.SystemInstruction + requestBreakdown.Tools + requestBreakdown.UserMessage
	margin := m.SafetyMargin(base)

	available := m.MaxTokens - base - margin
	if available < 0 {
		available = 0
	}

	breakdown := Breakdown{
		Breakdown:      requestBreakdown,
		BaseTokens:     base,
		SafetyMargin:   margin,
		Budget:         available,
		UtilizationPct: float64(base) / float64(m.MaxTokens) * 100,
	}

	return available, breakdown
}
