/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package questioning

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/docprobe/comprehension/conflict"
	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/elements"
	"chainguard.dev/docprobe/comprehension/question"
	"chainguard.dev/docprobe/comprehension/validator"
	"chainguard.dev/docprobe/comprehension/xref"
)

// GeneratorVersion is recorded in questions.json alongside the versions of
// every pattern table generation depends on.
var GeneratorVersion = fmt.Sprintf("1.0.0 (elements %s, xref %s, conflict %s)",
	elements.TableVersion, xref.PatternVersion, conflict.TableVersion)

// Generation is the outcome of Generate.
type Generation struct {
	Set *question.QuestionSet
	// Unmatched are the elements no template could be filled for, left for
	// a fallback generator.
	Unmatched []elements.Element
	Graph     xref.Graph
	Conflicts []conflict.Conflict
}

// element identifies one extracted element for coverage.
type element struct {
	section int
	index   int
}

type candidate struct {
	q    question.Question
	elem element
	// order is the candidate's position in generation order.
	order int
}

// Generate extracts elements, applies templates, validates and selects
// questions for coverage, then appends document-level questions. It returns
// ErrNoQuestions together with the (empty) generation when nothing
// survived.
func (s *Step) Generate(ctx context.Context, doc *document.Document) (*Generation, error) {
	log := clog.FromContext(ctx).With("document", doc.Path)

	var (
		valid     []document.Section
		skipped   = []question.SkippedSection{}
		unmatched []elements.Element
		tally     validator.Tally
		perSec    [][]candidate
		total     int
		order     int
		seenIDs   = make(map[string]struct{}, len(doc.Sections))
	)
	for i, sec := range doc.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := sec.Validate()
		if _, dup := seenIDs[sec.ID]; err == nil && dup {
			err = fmt.Errorf("%w %q", document.ErrDuplicateSectionID, sec.ID)
		}
		if err != nil {
			log.With("index", i).With("header", sec.Header).Warnf("Skipping section: %v", err)
			skipped = append(skipped, question.SkippedSection{Index: i, Header: sec.Header, Reason: err.Error()})
			continue
		}
		seenIDs[sec.ID] = struct{}{}
		si := len(valid)
		valid = append(valid, sec)

		var cands []candidate
		els := s.extractor.Extract(sec)
		total += len(els)
		for ei, el := range els {
			applied, none := s.applicator.Apply(el, sec)
			if none {
				unmatched = append(unmatched, el)
				continue
			}
			for _, c := range applied {
				res := s.check(&tally, c.Question, sec)
				if !res.Valid {
					log.With("section_id", sec.ID).With("template_id", c.TemplateID).
						Debugf("Discarding candidate %q: %v", c.Question.Text, res.Issues)
					continue
				}
				cands = append(cands, candidate{q: c.Question, elem: element{section: si, index: ei}, order: order})
				order++
			}
		}
		perSec = append(perSec, cands)
	}

	selected := selectForCoverage(perSec, total, s.elementTarget)
	questions := make([]question.Question, 0, len(selected))
	covered := make(map[element]struct{}, len(selected))
	for _, c := range selected {
		c.q.ID = question.ID(len(questions) + 1)
		questions = append(questions, c.q)
		covered[c.elem] = struct{}{}
	}

	gen := &Generation{Unmatched: unmatched}
	var err error
	if gen.Graph, err = xref.Analyze(valid); err != nil {
		return nil, fmt.Errorf("analyzing references: %w", err)
	}
	if gen.Conflicts, err = conflict.Detect(valid); err != nil {
		return nil, fmt.Errorf("detecting conflicts: %w", err)
	}
	for _, q := range s.documentQuestions(doc, gen.Graph, gen.Conflicts, &tally) {
		q.ID = question.ID(len(questions) + 1)
		questions = append(questions, q)
	}

	stats := generationStats(questions, len(doc.Sections), total, len(covered))
	stats.Validation = tally.Stats()
	stats.SkippedSections = skipped
	stats.UnmatchedElements = len(unmatched)
	for _, q := range questions {
		questionCounter.WithLabelValues(string(q.Scope)).Inc()
	}

	gen.Set = &question.QuestionSet{
		DocumentPath:        doc.Path,
		DocumentHash:        doc.Hash(),
		GenerationTimestamp: question.Timestamp(s.now()),
		GeneratorVersion:    GeneratorVersion,
		CatalogVersion:      s.catalog.Version(),
		Statistics:          stats,
		Questions:           questions,
	}

	if stats.Coverage.SectionCoveragePct < s.sectionTarget {
		log.Warnf("Section coverage %.1f%% is below the %.1f%% target", stats.Coverage.SectionCoveragePct, s.sectionTarget)
	}
	if stats.Coverage.ElementCoveragePct < s.elementTarget {
		log.Warnf("Element coverage %.1f%% is below the %.1f%% target", stats.Coverage.ElementCoveragePct, s.elementTarget)
	}
	log.With("questions", len(questions)).
		With("section_coverage_pct", stats.Coverage.SectionCoveragePct).
		With("element_coverage_pct", stats.Coverage.ElementCoveragePct).
		Info("Generated questions")
	if len(questions) == 0 {
		return gen, ErrNoQuestions
	}
	return gen, nil
}

func (s *Step) check(tally *validator.Tally, q question.Question, sec document.Section) validator.Result {
	res := validator.Validate(q, sec)
	tally.Record(res)
	for _, rule := range res.Failed {
		discardCounter.WithLabelValues(string(rule)).Inc()
	}
	return res
}

// selectForCoverage takes the first candidate of every section, then keeps
// drawing from the section with the most remaining candidates until the
// element target is met. The selection is returned in generation order.
func selectForCoverage(perSec [][]candidate, elems int, elementPct float64) []candidate {
	goal := int(math.Ceil(float64(elems) * elementPct / 100))

	remaining := make([][]candidate, len(perSec))
	copy(remaining, perSec)

	var picked []candidate
	covered := make(map[element]struct{})
	take := func(si int) {
		c := remaining[si][0]
		remaining[si] = remaining[si][1:]
		picked = append(picked, c)
		covered[c.elem] = struct{}{}
	}

	for si := range remaining {
		if len(remaining[si]) > 0 {
			take(si)
		}
	}
	for len(covered) < goal {
		best := -1
		for si, rest := range remaining {
			if len(rest) > 0 && (best < 0 || len(rest) > len(remaining[best])) {
				best = si
			}
		}
		if best < 0 {
			break
		}
		take(best)
	}

	slices.SortFunc(picked, func(a, b candidate) int { return a.order - b.order })
	return picked
}

func generationStats(qs []question.Question, sections, elems, elementsCovered int) question.GenerationStats {
	stats := question.GenerationStats{
		TotalQuestions: len(qs),
		ByCategory:     make(map[string]int),
		ByDifficulty:   make(map[string]int),
	}
	coveredSections := make(map[string]struct{})
	for _, q := range qs {
		switch q.Scope {
		case question.SectionScope:
			stats.SectionLevel++
		case question.DocumentScope:
			stats.DocumentLevel++
		}
		if q.IsAdversarial {
			stats.Adversarial++
		}
		stats.ByCategory[string(q.Category)]++
		stats.ByDifficulty[string(q.Difficulty)]++
		for _, id := range q.TargetSections {
			coveredSections[id] = struct{}{}
		}
	}
	stats.Coverage = question.Coverage{
		SectionsCovered:    len(coveredSections),
		TotalSections:      sections,
		SectionCoveragePct: question.Pct(len(coveredSections), sections),
		ElementsCovered:    elementsCovered,
		TotalElements:      elems,
		ElementCoveragePct: question.Pct(elementsCovered, elems),
	}
	return stats
}

// documentQuestions builds questions spanning several sections from
// detected conflicts first, then from explicit references, up to the cap.
func (s *Step) documentQuestions(doc *document.Document, g xref.Graph, conflicts []conflict.Conflict, tally *validator.Tally) []question.Question {
	if s.maxDocument == 0 {
		return nil
	}
	header := func(id string) string {
		if sec, ok := doc.Section(id); ok && sec.Header != "" {
			return sec.Header
		}
		return id
	}
	lines := func(ids ...string) []int {
		out := make([]int, 0, len(ids))
		for _, id := range ids {
			if sec, ok := doc.Section(id); ok {
				out = append(out, sec.LineRange[0])
			}
		}
		return out
	}

	var out []question.Question
	add := func(id string, slots map[string]string, targets []string, meta question.Metadata) bool {
		meta.SectionHeader = header(targets[0])
		c, ok := s.applicator.ApplyDocument(id, slots, targets, lines(targets...), meta)
		if !ok {
			return len(out) < s.maxDocument
		}
		if res := s.check(tally, c.Question, doc.Merge(targets...)); res.Valid {
			out = append(out, c.Question)
		}
		return len(out) < s.maxDocument
	}

	for _, c := range conflicts {
		a, b := c.Sections[0], c.Sections[1]
		targets := []string{a, b}
		meta := question.Metadata{DocumentKind: string(c.Kind), Evidence: c.Evidence}
		var keep bool
		switch c.Kind {
		case conflict.Contradiction:
			keep = add("document_conflict_01", map[string]string{
				"section_a":   header(a),
				"section_b":   header(b),
				"statement_a": c.Statements[0],
				"statement_b": c.Statements[1],
			}, targets, meta)
		case conflict.ValueConflict:
			keep = add("document_conflict_02", map[string]string{
				"key":       c.Key,
				"value_a":   c.Values[0],
				"value_b":   c.Values[1],
				"section_a": header(a),
				"section_b": header(b),
			}, targets, meta)
		default:
			keep = true
		}
		if !keep {
			return out
		}
	}

	asked := make(map[string]struct{})
	for _, e := range g.Edges {
		if e.Kind != xref.KindExplicit {
			continue
		}
		slots := map[string]string{"source": header(e.From), "target": header(e.To)}
		meta := question.Metadata{DocumentKind: question.KindDependency, Evidence: e.Evidence}
		if !add("document_dependency_01", slots, []string{e.From, e.To}, meta) {
			return out
		}
		if _, dup := asked[e.From]; dup {
			continue
		}
		asked[e.From] = struct{}{}
		if !add("document_dependency_02", slots, []string{e.From, e.To}, meta) {
			return out
		}
	}
	return out
}
