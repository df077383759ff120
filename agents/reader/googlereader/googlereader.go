/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package googlereader serves Gemini models through google.golang.org/genai.
package googlereader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/docprobe/agents/reader"
	"google.golang.org/genai"
)

// Backend opens Gemini readers on one client.
type Backend struct {
	client          *genai.Client
	temperature     float32
	maxOutputTokens int32
}

var _ reader.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend) error

// WithTemperature sets the sampling temperature, between 0.0 and 2.0.
func WithTemperature(temp float32) Option {
	return func(b *Backend) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		b.temperature = temp
		return nil
	}
}

// WithMaxOutputTokens sets the reply token limit.
func WithMaxOutputTokens(tokens int32) Option {
	return func(b *Backend) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		b.maxOutputTokens = tokens
		return nil
	}
}

// New returns a backend over client.
func New(client *genai.Client, opts ...Option) (*Backend, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	b := &Backend{
		client:          client,
		maxOutputTokens: 1024,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return b, nil
}

// NewVertex creates a Vertex AI client for project and region.
func NewVertex(ctx context.Context, project, region string, opts ...Option) (*Backend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google AI client: %w", err)
	}
	return New(client, opts...)
}

// NewGeminiAPI creates a Gemini API client authenticated with apiKey.
func NewGeminiAPI(ctx context.Context, apiKey string, opts ...Option) (*Backend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google AI client: %w", err)
	}
	return New(client, opts...)
}

// Open implements reader.Backend.
func (b *Backend) Open(_ context.Context, model, system string) (reader.Reader, error) {
	if !strings.HasPrefix(model, "gemini-") {
		return nil, fmt.Errorf("model %q does not appear to be a Gemini model (expected gemini-* format)", model)
	}
	config := &genai.GenerateContentConfig{
		Temperature:     ptr(b.temperature),
		MaxOutputTokens: b.maxOutputTokens,
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	return &geminiReader{client: b.client, model: model, config: config}, nil
}

// Retryable implements reader.Backend. genai reports quota and server
// failures only in the error text.
func (b *Backend) Retryable(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Resource exhausted") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "Overloaded") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "quota exceeded") ||
		strings.Contains(errStr, "Internal error") ||
		strings.Contains(errStr, "server error")
}

type geminiReader struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func (r *geminiReader) Query(ctx context.Context, turns []reader.Turn) (reader.Reply, error) {
	// Earlier turns seed the chat; the last one is sent.
	history := make([]*genai.Content, 0, len(turns)-1)
	for _, t := range turns[:len(turns)-1] {
		role := "user"
		if t.Role == reader.Assistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}

	chat, err := r.client.Chats.Create(ctx, r.model, r.config, history)
	if err != nil {
		return reader.Reply{}, fmt.Errorf("creating chat: %w", err)
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: turns[len(turns)-1].Text})
	if err != nil {
		return reader.Reply{}, err
	}

	reply := reader.Reply{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		reply.Usage = reader.Usage{
			Prompt:     int64(resp.UsageMetadata.PromptTokenCount),
			Completion: int64(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return reply, nil
}

func ptr[T any](v T) *T {
	return &v
}
