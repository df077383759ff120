/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudereader serves Claude models through the Anthropic API,
// either directly or through Vertex AI.
package claudereader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/docprobe/agents/reader"
	"github.com/anthropics/anthropic-sdk-go"
)

// Backend opens Claude readers on one client.
type Backend struct {
	client      anthropic.Client
	maxTokens   int64
	temperature float64
}

var _ reader.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend) error

// WithMaxTokens sets the reply token limit.
func WithMaxTokens(tokens int64) Option {
	return func(b *Backend) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		if tokens > 32000 {
			return fmt.Errorf("max tokens %d exceeds maximum of 32000", tokens)
		}
		b.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the sampling temperature, between 0.0 and 1.0.
func WithTemperature(temp float64) Option {
	return func(b *Backend) error {
		if temp < 0.0 || temp > 1.0 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		b.temperature = temp
		return nil
	}
}

// New returns a backend over client. Answers are short, so the defaults
// are 1024 reply tokens at temperature 0.
func New(client anthropic.Client, opts ...Option) (*Backend, error) {
	b := &Backend{
		client:    client,
		maxTokens: 1024,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return b, nil
}

// Open implements reader.Backend.
func (b *Backend) Open(_ context.Context, model, system string) (reader.Reader, error) {
	if !strings.HasPrefix(model, "claude-") {
		return nil, fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
	}
	return &claudeReader{backend: b, model: model, system: system}, nil
}

// Retryable implements reader.Backend. Rate limits, overload and transient
// gateway errors are retried.
func (b *Backend) Retryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 503, 504, 529:
			return true
		}
	}
	return false
}

type claudeReader struct {
	backend *Backend
	model   string
	system  string
}

func (r *claudeReader) Query(ctx context.Context, turns []reader.Turn) (reader.Reply, error) {
	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Text)
		if t.Role == reader.Assistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(r.model),
		MaxTokens:   r.backend.maxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(r.backend.temperature),
	}
	if r.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.system}}
	}

	stream := r.backend.client.Messages.NewStreaming(ctx, params)
	var msg anthropic.Message
	for stream.Next() {
		if err := msg.Accumulate(stream.Current()); err != nil {
			return reader.Reply{}, fmt.Errorf("failed to accumulate event: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return reader.Reply{}, err
	}

	var text strings.Builder
	for _, content := range msg.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}
	return reader.Reply{
		Text: text.String(),
		Usage: reader.Usage{
			Prompt:     msg.Usage.InputTokens,
			Completion: msg.Usage.OutputTokens,
		},
	}, nil
}
