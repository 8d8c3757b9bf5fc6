// Package priority scores conversation content for inclusion decisions.
// A composite score blends content relevance, recency, tool activity, and
// error priority, with structural bonuses on top.
package priority

// Config holds the scoring weights and decay parameters. The four weights
// default to a sum of 1.0; the structural bonuses are additive on top of
// the weighted sum.
type Config struct {
	RelevanceWeight     float64 `toml:"relevance_weight"`
	RecencyWeight       float64 `toml:"recency_weight"`
	ToolActivityWeight  float64 `toml:"tool_activity_weight"`
	ErrorPriorityWeight float64 `toml:"error_priority_weight"`

	// RecencyDecayFactor is the exponent applied per hour of age.
	RecencyDecayFactor float64 `toml:"recency_decay_factor"`

	// MaxRecencyHours caps the age used for decay, so recency never
	// fully zeroes out a message.
	MaxRecencyHours float64 `toml:"max_recency_hours"`
}

func DefaultConfig() Config {
	return Config{
		RelevanceWeight:     0.3,
		RecencyWeight:       0.25,
		ToolActivityWeight:  0.25,
		ErrorPriorityWeight: 0.2,
		RecencyDecayFactor:  0.1,
		MaxRecencyHours:     24,
	}
}

// Prioritizer computes scores for content items. Each instance owns its
// config; concurrent scoring is safe as long as SetConfig is not raced.
type Prioritizer struct {
	config Config
}

func NewPrioritizer(config Config) *Prioritizer {
	return &Prioritizer{config: config}
}

// Config returns a copy of the active configuration.
func (p *Prioritizer) Config() Config {
	return p.config
}

// SetConfig replaces the active configuration.
func (p *Prioritizer) SetConfig(config Config) {
	p.config = config
}
