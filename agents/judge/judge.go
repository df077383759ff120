/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"chainguard.dev/docprobe/agents/promptbuilder"
	"chainguard.dev/docprobe/agents/reader"
	"chainguard.dev/docprobe/agents/result"
	"chainguard.dev/docprobe/agents/schema"
	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/question"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Reasons recorded on fallback evaluations.
const (
	ReasonUnparsable       = "judge response unparsable"
	ReasonUnavailable      = "judge unavailable: "
	ReasonCollectionFailed = "answer collection failed"
)

// Request is one answer to grade.
type Request struct {
	Question question.Question
	Answer   question.Answer
	// Excerpt is the source text of the question's target sections.
	Excerpt string
}

// Verdict is the reply a judge model must produce.
type Verdict struct {
	Score     string `json:"score" jsonschema:"required,enum=correct,enum=partially_correct,enum=incorrect,enum=unanswerable,enum=hallucinated,description=The single categorical score"`
	Reasoning string `json:"reasoning" jsonschema:"required,description=Why the score was chosen"`
	Evidence  string `json:"evidence" jsonschema:"required,description=Verbatim quote from the excerpt supporting the score"`
}

var verdictSchema = schema.ForPrompt[Verdict]()

// SystemPrompt is the reader.SystemFunc for judge pools. Judge sessions
// are not seeded with the document; each request carries its excerpt.
func SystemPrompt(*document.Document) (string, error) {
	return systemPrompt, nil
}

// Evaluator grades answers with one judge model.
type Evaluator struct {
	pool    *reader.Pool
	model   string
	workers int

	prompt, strict *promptbuilder.Prompt
}

// Option configures an Evaluator.
type Option func(*Evaluator) error

// WithWorkers bounds the number of concurrent judge calls in EvaluateAll.
func WithWorkers(n int) Option {
	return func(e *Evaluator) error {
		if n <= 0 {
			return fmt.Errorf("workers must be positive, got %d", n)
		}
		e.workers = n
		return nil
	}
}

// New returns an evaluator that opens judge sessions from pool. The pool
// must not be the one readers answer through.
func New(pool *reader.Pool, model string, opts ...Option) (*Evaluator, error) {
	if pool == nil {
		return nil, errors.New("pool cannot be nil")
	}
	if model == "" {
		return nil, errors.New("judge model cannot be empty")
	}
	e := &Evaluator{pool: pool, model: model, workers: 4, prompt: judgePrompt, strict: strictPrompt}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return e, nil
}

// Model returns the judge model identifier.
func (e *Evaluator) Model() string { return e.model }

// Evaluate grades one answer. The returned evaluation is always usable. A
// non-nil error means the judge could not be reached and the evaluation is
// a fallback.
func (e *Evaluator) Evaluate(ctx context.Context, doc *document.Document, req Request) (question.Evaluation, error) {
	eval := question.Evaluation{
		QuestionID: req.Question.ID,
		Model:      req.Answer.Model,
	}
	log := clog.FromContext(ctx).With("question_id", req.Question.ID, "model", req.Answer.Model, "judge", e.model)

	if req.Answer.Failed {
		eval.Score = question.Unanswerable
		eval.Reasoning = ReasonCollectionFailed
		if req.Answer.Error != "" {
			eval.Reasoning += ": " + req.Answer.Error
		}
		eval.CollectionFailed = true
		return eval, nil
	}

	unavailable := func(err error) (question.Evaluation, error) {
		log.Warnf("judge unavailable: %v", err)
		eval.Score = question.Unanswerable
		eval.Reasoning = ReasonUnavailable + err.Error()
		eval.JudgeFallback = true
		return eval, err
	}

	session, err := e.pool.Session(ctx, e.model, doc)
	if err != nil {
		return unavailable(err)
	}
	prompt, err := promptbuilder.Render(e.prompt, req)
	if err != nil {
		return unavailable(fmt.Errorf("rendering judge prompt: %w", err))
	}

	turns := reader.Ask(prompt)
	reply, _, err := session.Query(ctx, turns)
	if err != nil {
		return unavailable(err)
	}
	v, ok := parse(reply.Text)
	if !ok {
		log.Info("Judge reply unparsable, sending strict follow-up")
		strict, err := e.strict.BindStringLiteral("scores", scoreList)
		if err == nil {
			strict, err = strict.BindJSON("schema", verdictSchema)
		}
		var text string
		if err == nil {
			text, err = strict.Build()
		}
		if err != nil {
			return unavailable(fmt.Errorf("rendering strict prompt: %w", err))
		}
		turns = append(turns,
			reader.Turn{Role: reader.Assistant, Text: reply.Text},
			reader.Turn{Role: reader.User, Text: text})
		reply, _, err = session.Query(ctx, turns)
		if err != nil {
			return unavailable(err)
		}
		if v, ok = parse(reply.Text); !ok {
			eval.Score = question.Unanswerable
			eval.Reasoning = ReasonUnparsable
			eval.JudgeFallback = true
			return eval, nil
		}
	}

	eval.Score = question.Score(v.Score)
	eval.Reasoning = v.Reasoning
	eval.Evidence = v.Evidence
	eval.EvidenceVerified = VerifyEvidence(v.Evidence, req.Excerpt)
	return eval, nil
}

// EvaluateAll grades every request on a bounded worker pool. Results are
// in request order. If every judge call that was attempted failed to reach
// the judge, it returns reader.ErrNoReachableModel along with the fallback
// evaluations.
func (e *Evaluator) EvaluateAll(ctx context.Context, doc *document.Document, reqs []Request) ([]question.Evaluation, error) {
	out := make([]question.Evaluation, len(reqs))
	var attempted, unreachable atomic.Int64

	g := errgroup.Group{}
	g.SetLimit(e.workers)
	for i, req := range reqs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Evaluate detaches in-flight calls from cancellation, but no
			// new call starts once ctx is done.
			if ctx.Err() != nil {
				out[i] = cancelled(req, ctx.Err())
				return nil
			}
			eval, err := e.Evaluate(ctx, doc, req)
			if !req.Answer.Failed {
				attempted.Add(1)
				if err != nil {
					unreachable.Add(1)
				}
			}
			out[i] = eval
			return nil
		})
	}
	_ = g.Wait()

	for i, req := range reqs {
		if out[i].QuestionID == "" {
			out[i] = cancelled(req, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	if n := attempted.Load(); n > 0 && unreachable.Load() == n {
		return out, fmt.Errorf("judge %s: %w", e.model, reader.ErrNoReachableModel)
	}
	return out, nil
}

func cancelled(req Request, err error) question.Evaluation {
	reason := ReasonUnavailable + "run cancelled"
	if err != nil {
		reason = ReasonUnavailable + err.Error()
	}
	return question.Evaluation{
		QuestionID:    req.Question.ID,
		Model:         req.Answer.Model,
		Score:         question.Unanswerable,
		Reasoning:     reason,
		JudgeFallback: true,
	}
}

const scoreList = `"correct", "partially_correct", "incorrect", "unanswerable" or "hallucinated"`

var scoreSepRE = regexp.MustCompile(`[\s-]+`)

// parse extracts a verdict and normalizes its score. It fails when the
// reply has no JSON object or the score is not one of the five.
func parse(text string) (Verdict, bool) {
	v, err := result.Extract[Verdict](text)
	if err != nil {
		return Verdict{}, false
	}
	v.Score = scoreSepRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(v.Score)), "_")
	return v, question.Score(v.Score).Valid()
}

var (
	quoteTrimRE = regexp.MustCompile(`^[\s"'“”‘’…]+|[\s"'“”‘’…]+$`)
	spaceRE     = regexp.MustCompile(`\s+`)
)

func normalizeEvidence(s string) string {
	s = strings.ReplaceAll(s, "...", " ")
	s = quoteTrimRE.ReplaceAllString(s, "")
	s = strings.NewReplacer("`", "", "**", "", "__", "").Replace(s)
	return strings.ToLower(spaceRE.ReplaceAllString(strings.TrimSpace(s), " "))
}

// VerifyEvidence reports whether the quoted evidence occurs in excerpt,
// ignoring case, whitespace runs, markdown emphasis and surrounding
// quotes. An empty quote is never verified.
func VerifyEvidence(evidence, excerpt string) bool {
	ev := strings.TrimRight(normalizeEvidence(evidence), ".")
	if ev == "" {
		return false
	}
	return strings.Contains(normalizeEvidence(excerpt), ev)
}
