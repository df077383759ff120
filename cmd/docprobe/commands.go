/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"google.golang.org/api/option"

	"chainguard.dev/docprobe/agents/backend"
	"chainguard.dev/docprobe/agents/judge"
	"chainguard.dev/docprobe/agents/reader"
	"chainguard.dev/docprobe/comprehension/artifact"
	"chainguard.dev/docprobe/comprehension/collector"
	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/question"
	"chainguard.dev/docprobe/comprehension/questioning"
	"chainguard.dev/docprobe/comprehension/report"
	"chainguard.dev/docprobe/comprehension/source"
	"chainguard.dev/docprobe/comprehension/templates"
)

const userAgent = "docprobe/1.0"

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"generate": runGenerate,
	"test":     runTest,
	"evaluate": runEvaluate,
	"auto":     runAuto,
}

// app carries the resolved configuration of one invocation.
type app struct {
	cfg    config
	file   fileConfig
	stdout io.Writer
	stderr io.Writer

	registry *backend.Registry
	store    artifact.Store
}

// flags registers the overrides shared by every subcommand.
func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&a.cfg.Output, "out", a.cfg.Output, "artifact directory or gs://bucket/prefix")
	fs.Usage = func() {
		fmt.Fprintf(a.stderr, "usage: docprobe %s [flags] <document>\n", name)
		fs.PrintDefaults()
	}
	return fs
}

func (a *app) collectionFlags(fs *flag.FlagSet) {
	fs.Func("models", "comma-separated reader models", func(v string) error {
		a.cfg.Models = splitModels(v)
		return nil
	})
	fs.IntVar(&a.cfg.Workers, "workers", a.cfg.Workers, "concurrent model calls")
	fs.DurationVar(&a.cfg.Timeout, "timeout", a.cfg.Timeout, "per-call timeout")
	fs.IntVar(&a.cfg.Retries, "retries", a.cfg.Retries, "automatic retries per call (0 or 1)")
}

func (a *app) generationFlags(fs *flag.FlagSet) {
	fs.Float64Var(&a.cfg.SectionTarget, "section-target", a.cfg.SectionTarget, "section coverage target in percent")
	fs.Float64Var(&a.cfg.ElementTarget, "element-target", a.cfg.ElementTarget, "element coverage target in percent")
}

func (a *app) judgeFlags(fs *flag.FlagSet) {
	fs.StringVar(&a.cfg.JudgeModel, "judge", a.cfg.JudgeModel, "judge model")
	fs.IntVar(&a.cfg.Workers, "workers", a.cfg.Workers, "concurrent model calls")
	fs.DurationVar(&a.cfg.Timeout, "timeout", a.cfg.Timeout, "per-call timeout")
	fs.IntVar(&a.cfg.Retries, "retries", a.cfg.Retries, "automatic retries per call (0 or 1)")
}

func splitModels(v string) []string {
	var models []string
	for _, m := range strings.Split(v, ",") {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

// parse parses args and loads the single document operand.
func (a *app) parse(ctx context.Context, fs *flag.FlagSet, args []string) (*document.Document, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, usageError{err}
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, usagef("%s: expected one document, got %d", fs.Name(), fs.NArg())
	}
	doc, err := source.New(ctx, a.cfg.GitHubToken).Load(ctx, fs.Arg(0))
	if err != nil {
		return nil, err
	}
	clog.FromContext(ctx).With("document", doc.Path).With("sections", len(doc.Sections)).Info("Loaded document")

	store, err := artifact.Open(ctx, a.cfg.Output, option.WithUserAgent(userAgent))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", a.cfg.Output, err)
	}
	a.store = store
	a.registry = backend.New(ctx, a.cfg.backend(a.file))
	return doc, nil
}

func (a *app) close(ctx context.Context) {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		clog.WarnContextf(ctx, "Closing artifact store: %v", err)
	}
}

func (a *app) step(withCollector, withJudge bool) (*questioning.Step, error) {
	catalog, err := templates.Default()
	if err != nil {
		return nil, err
	}
	opts := []questioning.Option{questioning.WithCoverage(a.cfg.SectionTarget, a.cfg.ElementTarget)}

	if withCollector {
		if len(a.cfg.Models) == 0 {
			return nil, usagef("no reader models configured")
		}
		pool, err := reader.NewPool(a.registry, collector.SystemPrompt, reader.WithRetry(a.cfg.retry()))
		if err != nil {
			return nil, usageError{err}
		}
		c, err := collector.New(pool, collector.WithWorkers(a.cfg.Workers))
		if err != nil {
			return nil, usageError{err}
		}
		opts = append(opts, questioning.WithCollector(c))
	}
	if withJudge {
		pool, err := reader.NewPool(a.registry, judge.SystemPrompt, reader.WithRetry(a.cfg.retry()))
		if err != nil {
			return nil, usageError{err}
		}
		j, err := judge.New(pool, a.cfg.JudgeModel, judge.WithWorkers(a.cfg.Workers))
		if err != nil {
			return nil, usageError{err}
		}
		opts = append(opts, questioning.WithJudge(j))
	}

	s, err := questioning.New(catalog, opts...)
	if err != nil {
		return nil, usageError{err}
	}
	return s, nil
}

// save writes v and logs where it went.
func (a *app) save(ctx context.Context, name string, v any) error {
	if err := artifact.Save(ctx, a.store, name, v); err != nil {
		return err
	}
	clog.InfoContextf(ctx, "Wrote %s", a.store.Location(name))
	return nil
}

func runGenerate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("generate")
	a.generationFlags(fs)
	doc, err := a.parse(ctx, fs, args)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	s, err := a.step(false, false)
	if err != nil {
		return err
	}
	_, err = a.generate(ctx, s, doc)
	return err
}

func (a *app) generate(ctx context.Context, s *questioning.Step, doc *document.Document) (*question.QuestionSet, error) {
	gen, err := s.Generate(ctx, doc)
	if gen == nil {
		return nil, err
	}
	if serr := a.save(ctx, question.QuestionsFile, gen.Set); serr != nil {
		return nil, errors.Join(err, serr)
	}
	fmt.Fprint(a.stdout, report.Generation(gen.Set))
	return gen.Set, err
}

func runTest(ctx context.Context, a *app, args []string) error {
	fs := a.flags("test")
	a.collectionFlags(fs)
	doc, err := a.parse(ctx, fs, args)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	set, err := artifact.Load[question.QuestionSet](ctx, a.store, question.QuestionsFile)
	if err != nil {
		return fmt.Errorf("run generate first: %w", err)
	}
	s, err := a.step(true, false)
	if err != nil {
		return err
	}
	_, err = a.test(ctx, s, doc, set)
	return err
}

func (a *app) test(ctx context.Context, s *questioning.Step, doc *document.Document, set *question.QuestionSet) (*question.AnswerSet, error) {
	start := time.Now()
	answers, err := s.Test(ctx, doc, set, a.cfg.Models)
	if answers == nil {
		return nil, err
	}
	if serr := a.save(ctx, question.AnswersFile, answers); serr != nil {
		return nil, errors.Join(err, serr)
	}
	clog.FromContext(ctx).With("elapsed", time.Since(start).Round(time.Millisecond)).Info("Test stage finished")
	fmt.Fprint(a.stdout, report.Collection(answers))
	return answers, err
}

func runEvaluate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("evaluate")
	a.judgeFlags(fs)
	doc, err := a.parse(ctx, fs, args)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	set, err := artifact.Load[question.QuestionSet](ctx, a.store, question.QuestionsFile)
	if err != nil {
		return fmt.Errorf("run generate first: %w", err)
	}
	answers, err := artifact.Load[question.AnswerSet](ctx, a.store, question.AnswersFile)
	if err != nil {
		return fmt.Errorf("run test first: %w", err)
	}
	s, err := a.step(false, true)
	if err != nil {
		return err
	}
	_, err = a.evaluate(ctx, s, doc, set, answers)
	return err
}

func (a *app) evaluate(ctx context.Context, s *questioning.Step, doc *document.Document, set *question.QuestionSet, answers *question.AnswerSet) (*question.ResultSet, error) {
	results, err := s.Evaluate(ctx, doc, set, answers)
	if results == nil {
		return nil, err
	}
	if serr := a.save(ctx, question.ResultsFile, results); serr != nil {
		return nil, errors.Join(err, serr)
	}
	fmt.Fprint(a.stdout, report.Evaluation(results))
	return results, err
}

func runAuto(ctx context.Context, a *app, args []string) error {
	fs := a.flags("auto")
	a.generationFlags(fs)
	a.collectionFlags(fs)
	fs.StringVar(&a.cfg.JudgeModel, "judge", a.cfg.JudgeModel, "judge model")
	doc, err := a.parse(ctx, fs, args)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	s, err := a.step(true, true)
	if err != nil {
		return err
	}
	set, err := a.generate(ctx, s, doc)
	if err != nil {
		return err
	}
	answers, err := a.test(ctx, s, doc, set)
	if err != nil {
		return err
	}
	results, err := a.evaluate(ctx, s, doc, set, answers)
	if err != nil {
		return err
	}

	// One file per document version; an edited document gets a new one.
	return a.save(ctx, question.RunFile(set.DocumentHash), &question.QuestioningResult{
		Questions: set.Questions,
		Results:   results.Results,
		Statistics: question.RunStats{
			Generation: set.Statistics,
			Collection: answers.Statistics,
			Evaluation: results.Statistics,
		},
	})
}
