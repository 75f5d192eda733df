// Package openai provides a capability backend powered by the OpenAI Chat
// Completions API. Like the anthropic adapter it stays thin: one prompt per
// capability, one non-streaming call, shared payload decoding.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/reqmesh/capability"
)

// Options configure the OpenAI backend. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Backend implements capability.Backend over the OpenAI Chat Completions API.
type Backend struct {
	name   string
	client *openai.Client
	opts   Options
}

// NewBackend creates a backend for the named capability using the official client.
func NewBackend(name string, optFns ...func(o *Options)) *Backend {
	client := openai.NewClient()
	return NewBackendFromClient(name, &client, optFns...)
}

// NewBackendFromClient creates a backend for the named capability from an existing client.
func NewBackendFromClient(name string, client *openai.Client, optFns ...func(o *Options)) *Backend {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.3,
		MaxCompletionTokens: 2048,
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
	params := openai.ChatCompletionNewParams{
		Model: b.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(capability.PromptFor(b.name)),
			openai.UserMessage(buildUserPrompt(in)),
		},
		Temperature:         openai.Float(b.opts.Temperature),
		MaxCompletionTokens: openai.Int(b.opts.MaxCompletionTokens),
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai: empty response for capability %s", b.name)
	}

	return capability.DecodePayload(b.name, resp.Choices[0].Message.Content), nil
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
