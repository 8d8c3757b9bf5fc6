// Package filter reduces a conversation to fit a token budget by
// dropping whole segments or messages, under a preservation policy that
// protects system messages, context injections, tool chains, and the
// current turn.
package filter

type Strategy string

const (
	// StrategyConservative drops only the lowest-priority segments and
	// never attempts token-level fitting.
	StrategyConservative Strategy = "conservative"

	// StrategyModerate keeps a medium slice and iteratively drops
	// low-priority segments until the result fits.
	StrategyModerate Strategy = "moderate"

	// StrategyAggressive keeps the minimum slice and then removes
	// individual messages from the middle of what remains.
	StrategyAggressive Strategy = "aggressive"
)

// Policy controls what filtering may remove.
type Policy struct {
	Strategy Strategy `toml:"strategy"`

	PreserveSystemMessages    bool `toml:"preserve_system_messages"`
	PreserveContextInjections bool `toml:"preserve_context_injections"`
	PreserveToolChains        bool `toml:"preserve_tool_chains"`
	PreserveCurrentTurn       bool `toml:"preserve_current_turn"`

	// PreserveErrors biases segment ranking toward segments containing
	// tool errors.
	PreserveErrors bool `toml:"preserve_errors"`

	MinConversationsToKeep int `toml:"min_conversations_to_keep"`
	MaxConversationsToKeep int `toml:"max_conversations_to_keep"`

	TargetReductionPct float64 `toml:"target_reduction_pct"`
}

func DefaultPolicy() Policy {
	return Policy{
		Strategy:                  StrategyModerate,
		PreserveSystemMessages:    true,
		PreserveContextInjections: true,
		PreserveToolChains:        true,
		PreserveCurrentTurn:       true,
		PreserveErrors:            true,
		MinConversationsToKeep:    2,
		MaxConversationsToKeep:    10,
		TargetReductionPct:        0.5,
	}
}
