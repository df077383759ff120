/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package questioning

import (
	"strings"

	"chainguard.dev/docprobe/comprehension/question"
)

// ResultStats summarises evaluated results. Score counts cover judged
// answers only; evaluations of failed answers are left out.
func ResultStats(results []question.Result) question.ResultStats {
	stats := question.ResultStats{BySeverity: make(map[string]int, len(question.Severities))}
	for _, s := range question.Severities {
		stats.BySeverity[string(s)] = 0
	}

	unanimous := 0
	for _, r := range results {
		bucket := &stats.SectionLevel
		if r.Question.Scope == question.DocumentScope {
			bucket = &stats.DocumentLevel
		}
		bucket.Questions++
		if r.IssueDetected {
			bucket.Issues++
			stats.IssuesDetected++
			stats.BySeverity[string(r.Severity)]++
		}
		if strings.HasPrefix(r.Consensus, "unanimous_") {
			unanimous++
		}

		for _, e := range r.Evaluations {
			if e.CollectionFailed {
				continue
			}
			stats.TotalEvaluated++
			if e.JudgeFallback {
				stats.JudgeFallbacks++
			}
			switch e.Score {
			case question.Correct:
				stats.Correct++
			case question.PartiallyCorrect:
				stats.PartiallyCorrect++
			case question.Incorrect:
				stats.Incorrect++
			case question.Unanswerable:
				stats.Unanswerable++
			case question.Hallucinated:
				stats.Hallucinated++
			}
		}
	}
	if len(results) > 0 {
		stats.AgreementScore = question.Round(float64(unanimous)/float64(len(results)), 3)
	}
	return stats
}
