/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chainguard.dev/docprobe/agents/metrics"
	"chainguard.dev/docprobe/agents/reader/retry"
	"chainguard.dev/docprobe/comprehension/document"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/singleflight"
)

// SystemFunc builds the system prompt a session for doc is seeded with.
type SystemFunc func(doc *document.Document) (string, error)

type key struct {
	model   string
	docHash string
}

// Pool lazily opens and caches sessions keyed by (model, document hash).
// Concurrent requests for the same key share one Open call. A session is
// never handed out for a different document.
type Pool struct {
	resolver Resolver
	system   SystemFunc
	retry    retry.Config
	metrics  *metrics.GenAI

	mu       sync.Mutex
	sessions map[key]*Session
	opening  singleflight.Group
}

// Option configures a Pool.
type Option func(*Pool) error

// WithRetry sets the timeout and retry policy of every session.
func WithRetry(cfg retry.Config) Option {
	return func(p *Pool) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		p.retry = cfg
		return nil
	}
}

// WithMetrics records call and token metrics on m.
func WithMetrics(m *metrics.GenAI) Option {
	return func(p *Pool) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		p.metrics = m
		return nil
	}
}

// NewPool returns an empty pool.
func NewPool(resolver Resolver, system SystemFunc, opts ...Option) (*Pool, error) {
	if resolver == nil {
		return nil, errors.New("resolver cannot be nil")
	}
	if system == nil {
		return nil, errors.New("system prompt builder cannot be nil")
	}
	m := metrics.NewGenAI("chainguard.dev/docprobe/agents/reader")
	m.SetAttributeEnricher(metrics.DocumentEnricher)
	p := &Pool{
		resolver: resolver,
		system:   system,
		retry:    retry.DefaultConfig(),
		metrics:  m,
		sessions: make(map[key]*Session),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return p, nil
}

// Session returns the session for (model, doc), opening it on first use.
// Open failures are not cached, so a later call tries again.
func (p *Pool) Session(ctx context.Context, model string, doc *document.Document) (*Session, error) {
	k := key{model: model, docHash: doc.Hash()}

	p.mu.Lock()
	s, ok := p.sessions[k]
	p.mu.Unlock()
	if ok {
		return s, nil
	}

	v, err, _ := p.opening.Do(k.model+"\x00"+k.docHash, func() (any, error) {
		p.mu.Lock()
		if s, ok := p.sessions[k]; ok {
			p.mu.Unlock()
			return s, nil
		}
		p.mu.Unlock()

		s, err := p.open(ctx, k, doc)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.sessions[k] = s
		p.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (p *Pool) open(ctx context.Context, k key, doc *document.Document) (*Session, error) {
	backend, err := p.resolver.Resolve(k.model)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", k.model, err)
	}
	system, err := p.system(doc)
	if err != nil {
		return nil, fmt.Errorf("building system prompt: %w", err)
	}
	r, err := backend.Open(ctx, k.model, system)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", k.model, err)
	}
	clog.FromContext(ctx).With("model", k.model, "document", shortHash(k.docHash)).Info("Opened reader session")
	return &Session{
		model:     k.model,
		docHash:   k.docHash,
		reader:    r,
		retryable: backend.Retryable,
		retry:     p.retry,
		metrics:   p.metrics,
	}, nil
}

// Len returns the number of open sessions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}
