/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders run summaries as markdown tables for the CLI.
package report

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"chainguard.dev/docprobe/comprehension/question"
)

// Generation summarises a question set.
func Generation(set *question.QuestionSet) string {
	s := set.Statistics
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "## Questions for %s\n\n", set.DocumentPath)

	table := newTable([]string{"Metric", "Value"}, &buf)
	for _, row := range [][]string{
		{"Questions", fmt.Sprint(s.TotalQuestions)},
		{"Section level", fmt.Sprint(s.SectionLevel)},
		{"Document level", fmt.Sprint(s.DocumentLevel)},
		{"Adversarial", fmt.Sprint(s.Adversarial)},
		{"Section coverage", fmt.Sprintf("%d/%d (%.1f%%)", s.Coverage.SectionsCovered, s.Coverage.TotalSections, s.Coverage.SectionCoveragePct)},
		{"Element coverage", fmt.Sprintf("%d/%d (%.1f%%)", s.Coverage.ElementsCovered, s.Coverage.TotalElements, s.Coverage.ElementCoveragePct)},
		{"Candidates discarded", fmt.Sprintf("%d/%d", s.Validation.Discarded, s.Validation.Candidates)},
		{"Unmatched elements", fmt.Sprint(s.UnmatchedElements)},
		{"Skipped sections", fmt.Sprint(len(s.SkippedSections))},
	} {
		_ = table.Append(row)
	}
	_ = table.Render()

	if len(s.Validation.ByRule) > 0 {
		buf.WriteString("\n")
		rules := newTable([]string{"Rule", "Discards"}, &buf)
		for _, rule := range slices.Sorted(maps.Keys(s.Validation.ByRule)) {
			_ = rules.Append([]string{rule, fmt.Sprint(s.Validation.ByRule[rule])})
		}
		_ = rules.Render()
	}
	return buf.String()
}

// Collection summarises an answer set per model, in the order models were
// tested.
func Collection(set *question.AnswerSet) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "## Answers (session %s)\n\n", set.SessionID)

	table := newTable([]string{"Model", "Answered", "Failed", "Mean response"}, &buf)
	for _, model := range set.ModelsTested {
		ms := set.Statistics.ByModel[model]
		_ = table.Append([]string{model, fmt.Sprint(ms.Answered), fmt.Sprint(ms.Failed), fmt.Sprintf("%dms", ms.MeanResponseMS)})
	}
	_ = table.Render()
	fmt.Fprintf(&buf, "\nCollection failure rate: %.1f%%\n", 100*set.Statistics.CollectionFailureRate)
	return buf.String()
}

// Evaluation summarises a result set and lists its issues, most severe
// first.
func Evaluation(set *question.ResultSet) string {
	s := set.Statistics
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "## Evaluation (judge %s)\n\n", set.JudgeModel)

	scores := newTable([]string{"Correct", "Partial", "Incorrect", "Unanswerable", "Hallucinated", "Agreement"}, &buf)
	_ = scores.Append([]string{
		fmt.Sprint(s.Correct), fmt.Sprint(s.PartiallyCorrect), fmt.Sprint(s.Incorrect),
		fmt.Sprint(s.Unanswerable), fmt.Sprint(s.Hallucinated), fmt.Sprintf("%.3f", s.AgreementScore),
	})
	_ = scores.Render()

	fmt.Fprintf(&buf, "\nIssues: %d (section level %d/%d, document level %d/%d)\n",
		s.IssuesDetected, s.SectionLevel.Issues, s.SectionLevel.Questions, s.DocumentLevel.Issues, s.DocumentLevel.Questions)
	if len(set.Issues) == 0 {
		return buf.String()
	}

	issues := slices.Clone(set.Issues)
	slices.SortStableFunc(issues, func(a, b question.Issue) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})
	buf.WriteString("\n")
	table := newTable([]string{"Severity", "Type", "Question", "Section", "Consensus"}, &buf)
	for _, is := range issues {
		_ = table.Append([]string{string(is.Severity), is.Type, is.QuestionID, is.SectionID, is.Consensus})
	}
	_ = table.Render()
	return buf.String()
}
