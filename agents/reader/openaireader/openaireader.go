/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaireader serves OpenAI chat-completion models, and any
// server speaking the same API.
package openaireader

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/docprobe/agents/reader"
	"github.com/openai/openai-go"
)

// Backend opens OpenAI readers on one client.
type Backend struct {
	client      openai.Client
	maxTokens   int64
	temperature *float64
}

var _ reader.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend) error

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(tokens int64) Option {
	return func(b *Backend) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		b.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the sampling temperature, between 0.0 and 2.0.
// Reasoning models reject the parameter, so it is only sent when set.
func WithTemperature(temp float64) Option {
	return func(b *Backend) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		b.temperature = &temp
		return nil
	}
}

// New returns a backend over client.
func New(client openai.Client, opts ...Option) (*Backend, error) {
	b := &Backend{client: client, maxTokens: 1024}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return b, nil
}

// Open implements reader.Backend.
func (b *Backend) Open(_ context.Context, model, system string) (reader.Reader, error) {
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}
	return &openaiReader{backend: b, model: model, system: system}, nil
}

// Retryable implements reader.Backend.
func (b *Backend) Retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return false
}

type openaiReader struct {
	backend *Backend
	model   string
	system  string
}

func (r *openaiReader) Query(ctx context.Context, turns []reader.Turn) (reader.Reply, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if r.system != "" {
		messages = append(messages, openai.SystemMessage(r.system))
	}
	for _, t := range turns {
		if t.Role == reader.Assistant {
			messages = append(messages, openai.AssistantMessage(t.Text))
		} else {
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(r.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(r.backend.maxTokens),
	}
	if r.backend.temperature != nil {
		params.Temperature = openai.Float(*r.backend.temperature)
	}

	resp, err := r.backend.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return reader.Reply{}, err
	}
	if len(resp.Choices) == 0 {
		return reader.Reply{}, errors.New("no choices returned")
	}
	return reader.Reply{
		Text: resp.Choices[0].Message.Content,
		Usage: reader.Usage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
		},
	}, nil
}
