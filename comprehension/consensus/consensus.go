/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package consensus turns the evaluations of one question into a
// consensus label and, when warranted, an issue record.
package consensus

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"chainguard.dev/docprobe/comprehension/question"
)

// NoData is the consensus when every evaluation was of a failed answer.
const NoData = "no_data"

// Disagreement is the consensus when no score has a strict majority.
const Disagreement = "disagreement"

// Issue types.
const (
	Hallucination           = "hallucination"
	Misinterpretation       = "misinterpretation"
	ComprehensionDivergence = "comprehension_divergence"
	MissingInformation      = "missing_information"
)

// Label computes the consensus of scores: unanimous_<score> when all agree,
// majority_<score> when more than half share one, disagreement otherwise.
func Label(scores []question.Score) string {
	if len(scores) == 0 {
		return NoData
	}
	counts := make(map[question.Score]int, len(scores))
	for _, s := range scores {
		counts[s]++
	}
	for _, s := range question.Scores {
		switch n := counts[s]; {
		case n == len(scores):
			return "unanimous_" + string(s)
		case 2*n > len(scores):
			return "majority_" + string(s)
		}
	}
	return Disagreement
}

// Calculator applies the issue policy. It is stateless and safe for
// concurrent use.
type Calculator struct{}

// New returns a Calculator.
func New() *Calculator { return &Calculator{} }

type finding struct {
	kind     string
	severity question.Severity
}

// Calculate builds the result for q. Evaluations of failed answers are
// excluded from the consensus but kept in the result.
func (c *Calculator) Calculate(q question.Question, evals map[string]question.Evaluation) question.Result {
	res := question.Result{Question: q, Evaluations: evals}

	var scores []question.Score
	counts := make(map[question.Score]int)
	for _, model := range slices.Sorted(maps.Keys(evals)) {
		e := evals[model]
		if e.CollectionFailed {
			continue
		}
		scores = append(scores, e.Score)
		counts[e.Score]++
	}
	res.Consensus = Label(scores)
	if len(scores) == 0 {
		return res
	}

	var findings []finding
	wrong := counts[question.Incorrect] + counts[question.Hallucinated]
	adjust := func(base question.Severity) question.Severity {
		s := base
		if 2*wrong > len(scores) {
			s = s.Shift(1)
		}
		if q.Scope == question.DocumentScope && q.IsConflict() {
			s = s.Shift(1)
		}
		if q.IsAdversarial {
			s = s.Shift(-1)
		}
		return s
	}
	if counts[question.Hallucinated] > 0 {
		findings = append(findings, finding{Hallucination, adjust(question.High)})
	} else if counts[question.Incorrect] > 0 {
		findings = append(findings, finding{Misinterpretation, adjust(question.Medium)})
	}
	if res.Consensus == Disagreement {
		findings = append(findings, finding{ComprehensionDivergence, divergenceSeverity(q)})
	}
	if res.Consensus == "unanimous_"+string(question.Unanswerable) || res.Consensus == "majority_"+string(question.Unanswerable) {
		findings = append(findings, finding{MissingInformation, question.Medium})
	}
	if len(findings) == 0 {
		return res
	}

	res.IssueDetected = true
	res.IssueType = findings[0].kind
	res.Severity = findings[0].severity
	for _, f := range findings[1:] {
		if f.severity.Rank() > res.Severity.Rank() {
			res.Severity = f.severity
		}
	}
	res.Recommendation = recommend(q, res.IssueType)
	return res
}

func divergenceSeverity(q question.Question) question.Severity {
	if q.Scope != question.DocumentScope {
		return question.Medium
	}
	if q.Metadata.DocumentKind == question.KindContradiction {
		return question.Critical
	}
	return question.High
}

func recommend(q question.Question, kind string) string {
	where := sectionList(q.TargetSections)
	switch kind {
	case Hallucination:
		return fmt.Sprintf("Readers added details not present in %s. State the fact explicitly so it is not filled in by guesswork.", where)
	case Misinterpretation:
		return fmt.Sprintf("Readers reached a conclusion that contradicts %s. Reword the statement so only one reading is possible.", where)
	case ComprehensionDivergence:
		if q.IsConflict() {
			return fmt.Sprintf("Reconcile the conflicting statements in %s.", where)
		}
		return fmt.Sprintf("Readers disagree about %s. Make the statement unambiguous.", where)
	case MissingInformation:
		return fmt.Sprintf("Readers could not find the answer in %s. Add the missing information or make it easier to find.", where)
	}
	return ""
}

func sectionList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("section %q", id)
	}
	switch len(quoted) {
	case 0:
		return "the document"
	case 1:
		return quoted[0]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + " and " + quoted[len(quoted)-1]
}

// Issue converts a result into an issue record compatible with the
// ambiguity records of interpretation testing. It reports false when the
// result has no issue.
func (c *Calculator) Issue(r question.Result) (question.Issue, bool) {
	if !r.IssueDetected {
		return question.Issue{}, false
	}
	issue := question.Issue{
		Type:            r.IssueType,
		Severity:        r.Severity,
		QuestionID:      r.Question.ID,
		QuestionText:    r.Question.Text,
		SectionHeader:   r.Question.Metadata.SectionHeader,
		TargetSections:  r.Question.TargetSections,
		ModelsCorrect:   []string{},
		ModelsIncorrect: []string{},
		Consensus:       r.Consensus,
		Recommendation:  r.Recommendation,
	}
	if len(r.Question.TargetSections) > 0 {
		issue.SectionID = r.Question.TargetSections[0]
	}
	for _, model := range slices.Sorted(maps.Keys(r.Evaluations)) {
		switch e := r.Evaluations[model]; {
		case e.CollectionFailed:
		case e.Score == question.Correct:
			issue.ModelsCorrect = append(issue.ModelsCorrect, model)
		case e.Score == question.Incorrect || e.Score == question.Hallucinated:
			issue.ModelsIncorrect = append(issue.ModelsIncorrect, model)
		}
	}
	return issue, true
}
