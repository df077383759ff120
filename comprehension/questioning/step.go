/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package questioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"chainguard.dev/docprobe/agents/judge"
	"chainguard.dev/docprobe/comprehension/collector"
	"chainguard.dev/docprobe/comprehension/consensus"
	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/elements"
	"chainguard.dev/docprobe/comprehension/question"
	"chainguard.dev/docprobe/comprehension/templates"
)

// ErrNoQuestions is returned when generation produced no valid question.
var ErrNoQuestions = errors.New("no valid questions generated")

// Default coverage targets, in percent.
const (
	DefaultSectionTarget = 70.0
	DefaultElementTarget = 60.0
)

// MaxDocumentQuestions caps the document-level questions of one run.
const MaxDocumentQuestions = 10

// Step runs question generation, answer collection and evaluation for one
// document. Generation needs only a catalog; Test needs a collector and
// Evaluate needs a judge.
type Step struct {
	catalog    *templates.Catalog
	applicator *templates.Applicator
	extractor  *elements.Extractor
	collector  *collector.Collector
	judge      *judge.Evaluator
	consensus  *consensus.Calculator

	sectionTarget float64
	elementTarget float64
	maxDocument   int

	now       func() time.Time
	sessionID func() string
}

// Option configures a Step.
type Option func(*Step) error

// WithCollector sets the collector Test uses.
func WithCollector(c *collector.Collector) Option {
	return func(s *Step) error {
		if c == nil {
			return errors.New("collector cannot be nil")
		}
		s.collector = c
		return nil
	}
}

// WithJudge sets the evaluator Evaluate uses.
func WithJudge(j *judge.Evaluator) Option {
	return func(s *Step) error {
		if j == nil {
			return errors.New("judge cannot be nil")
		}
		s.judge = j
		return nil
	}
}

// WithCoverage sets the section and element coverage targets in percent.
func WithCoverage(sectionPct, elementPct float64) Option {
	return func(s *Step) error {
		if sectionPct < 0 || sectionPct > 100 || elementPct < 0 || elementPct > 100 {
			return fmt.Errorf("coverage targets must be within [0, 100], got %v and %v", sectionPct, elementPct)
		}
		s.sectionTarget, s.elementTarget = sectionPct, elementPct
		return nil
	}
}

// WithMaxDocumentQuestions caps document-level questions. Zero disables
// them.
func WithMaxDocumentQuestions(n int) Option {
	return func(s *Step) error {
		if n < 0 {
			return fmt.Errorf("max document questions cannot be negative, got %d", n)
		}
		s.maxDocument = n
		return nil
	}
}

// WithExtractor replaces the default element extractor.
func WithExtractor(x *elements.Extractor) Option {
	return func(s *Step) error {
		if x == nil {
			return errors.New("extractor cannot be nil")
		}
		s.extractor = x
		return nil
	}
}

// WithClock sets the source of artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Step) error {
		s.now = now
		return nil
	}
}

// New returns a Step generating from catalog.
func New(catalog *templates.Catalog, opts ...Option) (*Step, error) {
	if catalog == nil {
		return nil, errors.New("catalog cannot be nil")
	}
	s := &Step{
		catalog:       catalog,
		applicator:    templates.NewApplicator(catalog),
		extractor:     elements.New(),
		consensus:     consensus.New(),
		sectionTarget: DefaultSectionTarget,
		elementTarget: DefaultElementTarget,
		maxDocument:   MaxDocumentQuestions,
		now:           time.Now,
		sessionID:     uuid.NewString,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return s, nil
}

// Test collects every model's answer to every question in set. The answer
// set is returned even when err is non-nil, so a partial run can still be
// written out.
func (s *Step) Test(ctx context.Context, doc *document.Document, set *question.QuestionSet, models []string) (*question.AnswerSet, error) {
	if s.collector == nil {
		return nil, errors.New("testing requires a collector")
	}
	if set.DocumentHash != "" && set.DocumentHash != doc.Hash() {
		clog.FromContext(ctx).With("questions_hash", set.DocumentHash).
			With("document_hash", doc.Hash()).
			Warn("Document changed since questions were generated")
	}

	session := s.sessionID()
	log := clog.FromContext(ctx).With("session_id", session)
	log.Infof("Collecting answers to %d questions from %d models", len(set.Questions), len(models))

	col, err := s.collector.Collect(ctx, doc, set.Questions, models)
	if col == nil {
		return nil, fmt.Errorf("collecting answers: %w", err)
	}
	out := &question.AnswerSet{
		SessionID:        session,
		QuestionsFile:    question.QuestionsFile,
		DocumentHash:     doc.Hash(),
		TestingTimestamp: question.Timestamp(s.now()),
		ModelsTested:     models,
		Statistics:       col.Stats,
		Answers:          col.Entries(set.Questions),
	}
	for model, ms := range col.Stats.ByModel {
		answerCounter.WithLabelValues(model, "answered").Add(float64(ms.Answered))
		answerCounter.WithLabelValues(model, "failed").Add(float64(ms.Failed))
	}
	log.With("failed", col.Stats.FailedAnswers).
		With("failure_rate", col.Stats.CollectionFailureRate).
		Info("Collected answers")
	if err != nil {
		return out, fmt.Errorf("collecting answers: %w", err)
	}
	return out, nil
}

// Evaluate judges every answer and computes consensus per question. The
// result set is returned even when err is non-nil.
func (s *Step) Evaluate(ctx context.Context, doc *document.Document, set *question.QuestionSet, answers *question.AnswerSet) (*question.ResultSet, error) {
	if s.judge == nil {
		return nil, errors.New("evaluation requires a judge")
	}
	byQuestion := make(map[string]map[string]question.Answer, len(answers.Answers))
	for _, e := range answers.Answers {
		byQuestion[e.QuestionID] = e.ModelAnswers
	}

	var reqs []judge.Request
	for _, q := range set.Questions {
		excerpt := doc.Excerpt(q.TargetSections...)
		for _, model := range answers.ModelsTested {
			a, ok := byQuestion[q.ID][model]
			if !ok {
				a = question.Answer{QuestionID: q.ID, Model: model, Failed: true, Error: "no answer recorded"}
			}
			reqs = append(reqs, judge.Request{Question: q, Answer: a, Excerpt: excerpt})
		}
	}

	session := answers.SessionID
	if session == "" {
		session = s.sessionID()
	}
	log := clog.FromContext(ctx).With("session_id", session).With("judge", s.judge.Model())
	log.Infof("Evaluating %d answers", len(reqs))

	evals, err := s.judge.EvaluateAll(ctx, doc, reqs)

	grouped := make(map[string]map[string]question.Evaluation, len(set.Questions))
	for _, e := range evals {
		if grouped[e.QuestionID] == nil {
			grouped[e.QuestionID] = make(map[string]question.Evaluation, len(answers.ModelsTested))
		}
		grouped[e.QuestionID][e.Model] = e
	}

	out := &question.ResultSet{
		SessionID:           session,
		EvaluationTimestamp: question.Timestamp(s.now()),
		JudgeModel:          s.judge.Model(),
		Results:             make([]question.Result, 0, len(set.Questions)),
		Issues:              []question.Issue{},
	}
	for _, q := range set.Questions {
		res := s.consensus.Calculate(q, grouped[q.ID])
		out.Results = append(out.Results, res)
		if issue, ok := s.consensus.Issue(res); ok {
			out.Issues = append(out.Issues, issue)
			issueCounter.WithLabelValues(issue.Type, string(issue.Severity)).Inc()
		}
	}
	out.Statistics = ResultStats(out.Results)
	agreementGauge.Set(out.Statistics.AgreementScore)

	log.With("issues", out.Statistics.IssuesDetected).
		With("agreement", out.Statistics.AgreementScore).
		Info("Evaluated answers")
	if err != nil {
		return out, fmt.Errorf("evaluating answers: %w", err)
	}
	return out, nil
}

// Run chains Generate, Test and Evaluate. The result holds whatever the
// stages produced before an error.
func (s *Step) Run(ctx context.Context, doc *document.Document, models []string) (*question.QuestioningResult, error) {
	gen, err := s.Generate(ctx, doc)
	if gen == nil {
		return nil, err
	}
	res := &question.QuestioningResult{
		Questions: gen.Set.Questions,
		Results:   []question.Result{},
		Statistics: question.RunStats{
			Generation: gen.Set.Statistics,
		},
	}
	if err != nil {
		return res, err
	}

	answers, err := s.Test(ctx, doc, gen.Set, models)
	if answers != nil {
		res.Statistics.Collection = answers.Statistics
	}
	if err != nil {
		return res, err
	}

	results, err := s.Evaluate(ctx, doc, gen.Set, answers)
	if results != nil {
		res.Results = results.Results
		res.Statistics.Evaluation = results.Statistics
	}
	return res, err
}
