// Package tokens counts tokens for budget decisions. A counter picks the
// most accurate strategy available at construction and degrades to a
// character estimate whenever a strategy fails at runtime, so counting
// never returns an error.
package tokens

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

type Strategy string

const (
	StrategyNative    Strategy = "native"
	StrategyTiktoken  Strategy = "tiktoken"
	StrategyHeuristic Strategy = "heuristic"
)

// universalEncoding is the fallback tokenizer table when no model-specific
// table exists.
const universalEncoding = "cl100k_base"

// TextCounter is the minimal counting contract the pipeline components
// depend on. Count never fails; implementations fall back to an estimate.
type TextCounter interface {
	Count(text string) int
}

// Counter counts tokens using the best strategy that survived a probe at
// construction time. Safe for concurrent use; it holds no mutable state.
type Counter struct {
	strategy Strategy
	native   *nativeCounter
	encoding *tiktoken.Tiktoken
}

type Option func(*options)

type options struct {
	model         string
	native        *nativeCounter
	heuristicOnly bool
}

// WithModel selects the model whose tokenizer table is attempted before
// the universal table.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithHeuristicOnly pins the counter to the character estimate. Used by
// tests and offline tooling that must not touch tokenizer data files.
func WithHeuristicOnly() Option {
	return func(o *options) { o.heuristicOnly = true }
}

// NewCounter builds a counter, probing strategies in priority order:
// native provider API, subword tokenizer, character estimate. Each
// strategy must pass a live probe before it is accepted.
func NewCounter(opts ...Option) *Counter {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	counter := &Counter{strategy: StrategyHeuristic}

	if o.heuristicOnly {
		return counter
	}

	if o.native != nil && o.native.probe() {
		counter.strategy = StrategyNative
		counter.native = o.native
		return counter
	}

	if encoding := openEncoding(o.model); encoding != nil {
		counter.strategy = StrategyTiktoken
		counter.encoding = encoding
		return counter
	}

	return counter
}

// Strategy returns the strategy selected at construction.
func (c *Counter) Strategy() Strategy {
	return c.strategy
}

// Count returns the token count of text. It never fails: any strategy
// error falls back to the character estimate.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}

	switch c.strategy {
	case StrategyNative:
		count, err := c.native.count(text)
		if err != nil {
			slog.Warn("native token count failed, using estimate", "error", err)
			return Estimate(text)
		}
		return count
	case StrategyTiktoken:
		return c.countEncoded(text)
	default:
		return Estimate(text)
	}
}

func (c *Counter) countEncoded(text string) (count int) {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.Warn("tokenizer panicked, using estimate", "error", recovered)
			count = Estimate(text)
		}
	}()

	return len(c.encoding.Encode(text, nil, nil))
}

// Estimate is the character-count heuristic: roughly four characters per
// token for English text and code.
func Estimate(text string) int {
	return len(text) / 4
}

func openEncoding(model string) *tiktoken.Tiktoken {
	if model != "" {
		encoding, err := tiktoken.EncodingForModel(model)
		if err == nil && probeEncoding(encoding) {
			return encoding
		}
	}

	encoding, err := tiktoken.GetEncoding(universalEncoding)
	if err != nil {
		slog.Warn("tokenizer unavailable, using character estimate", "error", err)
		return nil
	}
	if !probeEncoding(encoding) {
		return nil
	}

	return encoding
}

func probeEncoding(encoding *tiktoken.Tiktoken) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	return len(encoding.Encode("probe", nil, nil)) > 0
}
