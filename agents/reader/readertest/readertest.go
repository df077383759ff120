/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package readertest provides in-process reader backends for tests.
package readertest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"chainguard.dev/docprobe/agents/reader"
)

// ErrTransient is a failure the fake backend reports as retryable.
var ErrTransient = errors.New("transient failure")

// AnswerFunc produces the reply text for one query.
type AnswerFunc func(ctx context.Context, model, system string, turns []reader.Turn) (string, error)

// Backend is a reader.Backend whose replies come from a function.
type Backend struct {
	Answer AnswerFunc
	// OpenErr, when set, fails every Open.
	OpenErr error

	opens   atomic.Int64
	queries atomic.Int64

	mu      sync.Mutex
	systems map[string]string
}

var _ reader.Backend = (*Backend)(nil)

// Open implements reader.Backend.
func (b *Backend) Open(_ context.Context, model, system string) (reader.Reader, error) {
	b.opens.Add(1)
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	b.mu.Lock()
	if b.systems == nil {
		b.systems = make(map[string]string)
	}
	b.systems[model] = system
	b.mu.Unlock()
	return &fakeReader{backend: b, model: model, system: system}, nil
}

// Retryable implements reader.Backend.
func (b *Backend) Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Opens returns how many times Open was called.
func (b *Backend) Opens() int { return int(b.opens.Load()) }

// Queries returns how many queries reached the backend, across all
// readers and attempts.
func (b *Backend) Queries() int { return int(b.queries.Load()) }

// System returns the system prompt the last reader for model was opened
// with.
func (b *Backend) System(model string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.systems[model]
}

type fakeReader struct {
	backend *Backend
	model   string
	system  string
}

func (r *fakeReader) Query(ctx context.Context, turns []reader.Turn) (reader.Reply, error) {
	r.backend.queries.Add(1)
	text, err := r.backend.Answer(ctx, r.model, r.system, turns)
	if err != nil {
		return reader.Reply{}, err
	}
	return reader.Reply{Text: text, Usage: reader.Usage{Prompt: 10, Completion: 5}}, nil
}

// Resolver serves every model from the backend of the same name, or from
// Default when no entry matches.
type Resolver struct {
	Backends map[string]*Backend
	Default  *Backend
}

// Resolve implements reader.Resolver.
func (r Resolver) Resolve(model string) (reader.Backend, error) {
	if b, ok := r.Backends[model]; ok {
		return b, nil
	}
	if r.Default != nil {
		return r.Default, nil
	}
	return nil, reader.ErrUnknownModel
}

// Static returns an AnswerFunc that always replies with text.
func Static(text string) AnswerFunc {
	return func(context.Context, string, string, []reader.Turn) (string, error) {
		return text, nil
	}
}

// Hang returns an AnswerFunc that blocks until the attempt context ends,
// like a model that never answers.
func Hang() AnswerFunc {
	return func(ctx context.Context, _, _ string, _ []reader.Turn) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
}

// Last returns the text of the final turn.
func Last(turns []reader.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	return turns[len(turns)-1].Text
}
