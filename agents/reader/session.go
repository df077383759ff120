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
	"time"

	"chainguard.dev/docprobe/agents/metrics"
	"chainguard.dev/docprobe/agents/reader/retry"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Session is an opened reader for one (model, document) pair. At most one
// query is in flight per session.
type Session struct {
	model     string
	docHash   string
	reader    Reader
	retryable func(error) bool
	retry     retry.Config
	metrics   *metrics.GenAI

	mu sync.Mutex
}

// Model returns the model identifier the session talks to.
func (s *Session) Model() string { return s.model }

// Query sends turns through the retry wrapper. It returns the reply and
// the number of attempts made, which is at least 1 unless ctx was already
// done.
func (s *Session) Query(ctx context.Context, turns []Turn) (Reply, int, error) {
	if err := Validate(turns); err != nil {
		return Reply{}, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tr := otel.Tracer("chainguard.dev/docprobe/agents/reader",
		oteltrace.WithInstrumentationVersion("1.0.0"))
	ctx, span := tr.Start(ctx, "reader.query", oteltrace.WithAttributes(
		attribute.String("model", s.model),
		attribute.String("document", shortHash(s.docHash)),
		attribute.Int("turns", len(turns)),
	))
	defer span.End()

	ctx = metrics.WithDocument(ctx, s.docHash)
	start := time.Now()
	reply, attempts, err := retry.Do(ctx, s.retry, "query "+s.model, s.retryable,
		func(ctx context.Context) (Reply, error) {
			return s.reader.Query(ctx, turns)
		})
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		s.metrics.RecordCall(ctx, s.model, outcome, elapsed)
		span.SetStatus(codes.Error, err.Error())
		clog.FromContext(ctx).With("model", s.model, "attempts", attempts).
			Warnf("query failed: %v", err)
		return Reply{}, attempts, fmt.Errorf("query %s: %w", s.model, err)
	}

	s.metrics.RecordCall(ctx, s.model, metrics.OutcomeOK, elapsed)
	if reply.Usage.Prompt > 0 || reply.Usage.Completion > 0 {
		s.metrics.RecordTokens(ctx, s.model, reply.Usage.Prompt, reply.Usage.Completion)
		span.SetAttributes(
			attribute.Int64("tokens.input", reply.Usage.Prompt),
			attribute.Int64("tokens.output", reply.Usage.Completion),
		)
	}
	return reply, attempts, nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
