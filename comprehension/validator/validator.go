/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package validator gates generated questions before they are persisted.
// Every rule must pass; a question that fails any of them is discarded and
// the failure is counted per rule.
package validator

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/question"
	"chainguard.dev/docprobe/comprehension/tokens"
)

// Rule names one validation check.
type Rule string

const (
	Answerable    Rule = "answerable"
	NoLeakage     Rule = "leakage"
	Grammatical   Rule = "grammatical"
	SingleConcept Rule = "single_concept"
)

// Rules lists every rule in evaluation order.
var Rules = []Rule{Answerable, NoLeakage, Grammatical, SingleConcept}

const (
	minAnswerable = 0.5
	maxLeakage    = 0.10
	minWords      = 4
	maxConjuncts  = 1
)

var questionWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`what where when why how which who whom whose
		is are was were does do did can could should would will must may has have`) {
		questionWords[w] = struct{}{}
	}
}

// Result is the outcome of validating one question.
type Result struct {
	Valid   bool
	Issues  []string
	Failed  []Rule
	Leakage float64
}

func (r *Result) fail(rule Rule, format string, args ...any) {
	r.Failed = append(r.Failed, rule)
	r.Issues = append(r.Issues, fmt.Sprintf("%s: %s", rule, fmt.Sprintf(format, args...)))
}

// Validate runs every rule against q. section is the text the expected
// answer must come from; document-level questions pass their merged
// target sections.
func Validate(q question.Question, section document.Section) Result {
	r := Result{}
	answer := strings.TrimSpace(q.ExpectedAnswer.Text)
	answerTokens := tokens.Meaningful(answer)

	source := section.Text()
	if answer == "" || !strings.Contains(strings.ToLower(source), strings.ToLower(answer)) {
		if len(answerTokens) == 0 {
			r.fail(Answerable, "expected answer has no meaningful tokens")
		} else if got := tokens.Overlap(answerTokens, tokens.Meaningful(source)); got < minAnswerable {
			r.fail(Answerable, "%.0f%% of answer tokens appear in section %q", 100*got, section.ID)
		}
	}

	r.Leakage = Leakage(q.Text, answer)
	if r.Leakage >= maxLeakage {
		r.fail(NoLeakage, "%.0f%% of answer tokens appear in the question", 100*r.Leakage)
	}

	if msg := grammar(q.Text); msg != "" {
		r.fail(Grammatical, "%s", msg)
	}

	if n := conjunctions(q.Text); n > maxConjuncts {
		r.fail(SingleConcept, "question has %d coordinating conjunctions", n)
	}

	r.Valid = len(r.Failed) == 0
	return r
}

// Leakage returns the fraction of the answer's meaningful tokens that
// already appear in the question text.
func Leakage(questionText, answer string) float64 {
	return tokens.Overlap(tokens.Meaningful(answer), tokens.Meaningful(questionText))
}

func grammar(text string) string {
	text = strings.TrimSpace(text)
	first, _ := utf8.DecodeRuneInString(text)
	switch {
	case text == "":
		return "question is empty"
	case !unicode.IsUpper(first):
		return "question does not start with a capital letter"
	case !strings.HasSuffix(text, "?"):
		return `question does not end with "?"`
	}
	words := strings.Fields(text)
	if len(words) < minWords {
		return fmt.Sprintf("question has %d words, want at least %d", len(words), minWords)
	}
	lead := strings.ToLower(strings.TrimFunc(words[0], func(r rune) bool { return !unicode.IsLetter(r) }))
	if _, ok := questionWords[lead]; !ok {
		return fmt.Sprintf("question starts with %q, not an interrogative or auxiliary", words[0])
	}
	return ""
}

func conjunctions(text string) int {
	n := 0
	for _, w := range tokens.Words(text) {
		if w == "and" || w == "or" {
			n++
		}
	}
	return n
}

// Tally counts validation outcomes for a run.
type Tally struct {
	candidates int
	discarded  int
	byRule     map[Rule]int
}

// Record adds one validation result.
func (t *Tally) Record(r Result) {
	if t.byRule == nil {
		t.byRule = make(map[Rule]int, len(Rules))
	}
	t.candidates++
	if r.Valid {
		return
	}
	t.discarded++
	for _, rule := range r.Failed {
		t.byRule[rule]++
	}
}

// Stats returns the tally in artifact form. Every rule is present, zero or
// not.
func (t *Tally) Stats() question.ValidationStats {
	s := question.ValidationStats{
		Candidates: t.candidates,
		Discarded:  t.discarded,
		ByRule:     make(map[string]int, len(Rules)),
	}
	for _, rule := range Rules {
		s.ByRule[string(rule)] = t.byRule[rule]
	}
	return s
}
