/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package collector asks every reader model every question and records
// the answers, failures included.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chainguard.dev/docprobe/agents/promptbuilder"
	"chainguard.dev/docprobe/agents/reader"
	"chainguard.dev/docprobe/agents/result"
	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/question"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// ErrUnparsable marks an answer whose reply never parsed.
var ErrUnparsable = errors.New("reply is not valid JSON after a strict follow-up")

// Collection is the outcome of one Collect call.
type Collection struct {
	// Answers maps question_id to model to answer. Every (question, model)
	// pair has an entry.
	Answers map[string]map[string]question.Answer
	Stats   question.AnswerStats
}

// Entries returns the answers in question order, as answers.json lists
// them.
func (c *Collection) Entries(questions []question.Question) []question.AnswerEntry {
	out := make([]question.AnswerEntry, 0, len(questions))
	for _, q := range questions {
		out = append(out, question.AnswerEntry{QuestionID: q.ID, ModelAnswers: c.Answers[q.ID]})
	}
	return out
}

// Collector runs (question, model) calls on a bounded worker pool.
type Collector struct {
	pool    *reader.Pool
	workers int
}

// Option configures a Collector.
type Option func(*Collector) error

// WithWorkers bounds the number of concurrent calls.
func WithWorkers(n int) Option {
	return func(c *Collector) error {
		if n <= 0 {
			return fmt.Errorf("workers must be positive, got %d", n)
		}
		c.workers = n
		return nil
	}
}

// New returns a collector answering through pool, whose sessions should be
// seeded with SystemPrompt.
func New(pool *reader.Pool, opts ...Option) (*Collector, error) {
	if pool == nil {
		return nil, errors.New("pool cannot be nil")
	}
	c := &Collector{pool: pool, workers: 4}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return c, nil
}

// outcome distinguishes failures that say something about reachability.
type outcome int

const (
	answered outcome = iota
	unparsable
	unreachable
	notStarted
)

// Collect asks every model every question. Partial failures are recorded
// as failure-marked answers. It returns reader.ErrNoReachableModel when
// every call failed to reach its model, and ctx's error when the run was
// cancelled; the collection is complete in both cases.
func (c *Collector) Collect(ctx context.Context, doc *document.Document, questions []question.Question, models []string) (*Collection, error) {
	if len(models) == 0 {
		return nil, errors.New("no models to collect from")
	}

	var mu sync.Mutex
	answers := make(map[string]map[string]question.Answer, len(questions))
	outcomes := make(map[outcome]int)
	record := func(a question.Answer, o outcome) {
		mu.Lock()
		defer mu.Unlock()
		if answers[a.QuestionID] == nil {
			answers[a.QuestionID] = make(map[string]question.Answer, len(models))
		}
		answers[a.QuestionID][a.Model] = a
		outcomes[o]++
	}

	g := errgroup.Group{}
	g.SetLimit(c.workers)
	for _, q := range questions {
		for _, model := range models {
			if ctx.Err() != nil {
				record(failed(q.ID, model, ctx.Err()), notStarted)
				continue
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					record(failed(q.ID, model, ctx.Err()), notStarted)
					return nil
				}
				record(c.answer(ctx, doc, q, model))
				return nil
			})
		}
	}
	_ = g.Wait()

	col := &Collection{Answers: answers, Stats: Stats(answers, models)}
	if err := ctx.Err(); err != nil {
		return col, err
	}
	if total := len(questions) * len(models); total > 0 && outcomes[unreachable] == total {
		return col, reader.ErrNoReachableModel
	}
	return col, nil
}

func failed(qid, model string, err error) question.Answer {
	return question.Answer{QuestionID: qid, Model: model, Failed: true, Error: err.Error()}
}

func (c *Collector) answer(ctx context.Context, doc *document.Document, q question.Question, model string) (question.Answer, outcome) {
	log := clog.FromContext(ctx).With("question_id", q.ID, "model", model)
	start := time.Now()
	a := question.Answer{QuestionID: q.ID, Model: model}
	fail := func(err error, o outcome) (question.Answer, outcome) {
		log.Warnf("answer failed: %v", err)
		a.Failed = true
		a.Error = err.Error()
		a.ResponseTimeMS = time.Since(start).Milliseconds()
		return a, o
	}

	session, err := c.pool.Session(ctx, model, doc)
	if err != nil {
		return fail(err, unreachable)
	}
	req := request{question: q, doc: doc}
	prompt, err := promptbuilder.Render(req.template(), req)
	if err != nil {
		return fail(fmt.Errorf("rendering prompt: %w", err), unparsable)
	}

	turns := reader.Ask(prompt)
	reply, attempts, err := session.Query(ctx, turns)
	a.Attempts = attempts
	if err != nil {
		return fail(err, unreachable)
	}
	a.RawResponse = reply.Text

	parsed, perr := parse(reply.Text)
	if perr != nil {
		log.Info("Reply unparsable, sending strict follow-up")
		text, err := strict()
		if err != nil {
			return fail(fmt.Errorf("rendering strict prompt: %w", err), unparsable)
		}
		turns = append(turns,
			reader.Turn{Role: reader.Assistant, Text: reply.Text},
			reader.Turn{Role: reader.User, Text: text})
		reply, n, err := session.Query(ctx, turns)
		a.Attempts += n
		if err != nil {
			return fail(err, unreachable)
		}
		a.RawResponse = reply.Text
		if parsed, perr = parse(reply.Text); perr != nil {
			return fail(fmt.Errorf("%w: %w", ErrUnparsable, perr), unparsable)
		}
	}

	a.Text = parsed.Answer
	a.ConfidenceStated = strings.ToLower(strings.TrimSpace(parsed.Confidence))
	a.Reasoning = parsed.Reasoning
	a.ResponseTimeMS = time.Since(start).Milliseconds()
	return a, answered
}

func parse(text string) (Reply, error) {
	r, err := result.Extract[Reply](text)
	if err != nil {
		return Reply{}, err
	}
	if strings.TrimSpace(r.Answer) == "" {
		return Reply{}, errors.New(`reply has no "answer"`)
	}
	return r, nil
}

// Stats summarises answers for the given models.
func Stats(answers map[string]map[string]question.Answer, models []string) question.AnswerStats {
	stats := question.AnswerStats{ByModel: make(map[string]question.ModelStats, len(models))}
	elapsed := make(map[string]int64, len(models))
	for _, m := range models {
		stats.ByModel[m] = question.ModelStats{}
	}
	for _, byModel := range answers {
		for model, a := range byModel {
			ms := stats.ByModel[model]
			stats.TotalAnswers++
			if a.Failed {
				stats.FailedAnswers++
				ms.Failed++
			} else {
				ms.Answered++
				elapsed[model] += a.ResponseTimeMS
			}
			stats.ByModel[model] = ms
		}
	}
	for model, ms := range stats.ByModel {
		if ms.Answered > 0 {
			ms.MeanResponseMS = elapsed[model] / int64(ms.Answered)
			stats.ByModel[model] = ms
		}
	}
	if stats.TotalAnswers > 0 {
		stats.CollectionFailureRate = question.Round(float64(stats.FailedAnswers)/float64(stats.TotalAnswers), 3)
	}
	return stats
}
