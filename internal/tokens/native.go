package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

const probeTimeout = 10 * time.Second

// WithNativeClient enables the provider token-counting API as the first
// strategy. The client is probed once at construction; if the probe fails
// the counter silently moves on to the next strategy.
func WithNativeClient(client *anthropic.Client, model string) Option {
	return func(o *options) {
		if client == nil {
			return
		}
		o.native = &nativeCounter{client: client, model: anthropic.Model(model)}
	}
}

type nativeCounter struct {
	client *anthropic.Client
	model  anthropic.Model
}

func (nc *nativeCounter) count(text string) (int, error) {
	result, err := nc.client.Messages.CountTokens(context.Background(), anthropic.MessageCountTokensParams{
		Model: nc.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}

	return int(result.InputTokens), nil
}

func (nc *nativeCounter) probe() bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	result, err := nc.client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model: nc.model,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("probe")),
		},
	})
	if err != nil {
		return false
	}

	return result.InputTokens > 0
}
