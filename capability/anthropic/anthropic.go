// Package anthropic provides a capability backend powered by the Anthropic
// Claude API. It keeps the backend thin: one prompt per capability, a single
// non-streaming message call, and payload decoding shared with the other
// hosted-model adapters.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/reqmesh/capability"
)

// Options configures the Anthropic backend (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Backend implements capability.Backend over the Anthropic Messages API.
type Backend struct {
	name   string
	client *anthropic.Client
	opts   Options
}

// NewBackend creates a backend for the named capability using the official client.
func NewBackend(name string, optFns ...func(o *Options)) *Backend {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.3,
		MaxTokens:   2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Backend{name: name, client: &client, opts: opts}
}

// NewBackendFromClient creates a backend for the named capability from an existing client.
func NewBackendFromClient(name string, client *anthropic.Client, optFns ...func(o *Options)) *Backend {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.3,
		MaxTokens:   2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Backend{name: name, client: client, opts: opts}
}

// Name returns the capability name this backend serves.
func (b *Backend) Name() string { return b.name }

// Analyze prompts the model with the requirement text and decodes the answer
// into the capability's payload shape.
func (b *Backend) Analyze(ctx context.Context, in capability.Input) (any, error) {
	params := anthropic.MessageNewParams{
		Model:       b.opts.Model,
		MaxTokens:   b.opts.MaxTokens,
		Temperature: anthropic.Float(b.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: capability.PromptFor(b.name)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(in))),
		},
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("anthropic: empty response for capability %s", b.name)
	}

	return capability.DecodePayload(b.name, sb.String()), nil
}

// buildUserPrompt folds the requirement and any hints into one user message.
func buildUserPrompt(in capability.Input) string {
	if len(in.Hints) == 0 {
		return in.Requirement
	}
	var sb strings.Builder
	sb.WriteString(in.Requirement)
	sb.WriteString("\n\nAdditional context:\n")
	for k, v := range in.Hints {
		fmt.Fprintf(&sb, "- %s: %s\n", k, v)
	}
	return sb.String()
}
