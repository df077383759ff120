/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package reader

import (
	"context"
	"errors"
)

// ErrNoReachableModel is returned when no model could be reached at all.
// It is the only failure that halts a run.
var ErrNoReachableModel = errors.New("no model could be reached")

// ErrUnknownModel is returned by a resolver for an identifier no backend
// claims.
var ErrUnknownModel = errors.New("unknown model")

// Role identifies who produced a turn.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// Turn is one message of a query. A query ends with a user turn.
type Turn struct {
	Role Role
	Text string
}

// Ask is shorthand for a single user turn.
func Ask(prompt string) []Turn {
	return []Turn{{Role: User, Text: prompt}}
}

// Usage counts tokens for one call. Backends that cannot report usage
// leave it zero.
type Usage struct {
	Prompt     int64
	Completion int64
}

// Reply is the raw text a model produced.
type Reply struct {
	Text  string
	Usage Usage
}

// Reader answers queries against the system prompt it was opened with.
// Readers hold no conversation state between calls; callers pass any
// earlier turns they want the model to see.
type Reader interface {
	Query(ctx context.Context, turns []Turn) (Reply, error)
}

// Backend opens readers for a family of models.
type Backend interface {
	// Open returns a reader for model seeded with system.
	Open(ctx context.Context, model, system string) (Reader, error)
	// Retryable reports whether err is a transient failure worth one
	// more attempt.
	Retryable(err error) bool
}

// Resolver maps a model identifier to the backend that serves it.
type Resolver interface {
	Resolve(model string) (Backend, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(model string) (Backend, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(model string) (Backend, error) {
	return f(model)
}

// Validate checks that turns form a well-shaped query.
func Validate(turns []Turn) error {
	if len(turns) == 0 {
		return errors.New("query has no turns")
	}
	if turns[len(turns)-1].Role != User {
		return errors.New("query must end with a user turn")
	}
	for _, t := range turns {
		if t.Role != User && t.Role != Assistant {
			return errors.New("query turn has unknown role " + string(t.Role))
		}
	}
	return nil
}
