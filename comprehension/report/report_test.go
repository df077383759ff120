/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report_test

import (
	"strings"
	"testing"

	"chainguard.dev/docprobe/comprehension/question"
	"chainguard.dev/docprobe/comprehension/report"
)

func TestGeneration(t *testing.T) {
	got := report.Generation(&question.QuestionSet{
		DocumentPath: "guide.md",
		Statistics: question.GenerationStats{
			TotalQuestions: 3,
			SectionLevel:   2,
			DocumentLevel:  1,
			Coverage: question.Coverage{
				SectionsCovered: 2, TotalSections: 3, SectionCoveragePct: 66.7,
				ElementsCovered: 3, TotalElements: 4, ElementCoveragePct: 75,
			},
			Validation: question.ValidationStats{Candidates: 6, Discarded: 2, ByRule: map[string]int{"leakage": 2, "answerable": 0}},
		},
	})
	for _, want := range []string{"guide.md", "2/3 (66.7%)", "3/4 (75.0%)", "2/6", "leakage"} {
		if !strings.Contains(got, want) {
			t.Errorf("Generation() missing %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "answerable") > strings.Index(got, "leakage") {
		t.Errorf("Generation(): rules not sorted:\n%s", got)
	}
}

func TestCollection(t *testing.T) {
	got := report.Collection(&question.AnswerSet{
		SessionID:    "abc",
		ModelsTested: []string{"gemini-2.5-pro", "claude-sonnet-4-5"},
		Statistics: question.AnswerStats{
			CollectionFailureRate: 0.25,
			ByModel: map[string]question.ModelStats{
				"gemini-2.5-pro":    {Answered: 2, MeanResponseMS: 1200},
				"claude-sonnet-4-5": {Answered: 1, Failed: 1, MeanResponseMS: 900},
			},
		},
	})
	for _, want := range []string{"abc", "1200ms", "900ms", "25.0%"} {
		if !strings.Contains(got, want) {
			t.Errorf("Collection() missing %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "gemini-2.5-pro") > strings.Index(got, "claude-sonnet-4-5") {
		t.Errorf("Collection(): models not in tested order:\n%s", got)
	}
}

func TestEvaluation(t *testing.T) {
	got := report.Evaluation(&question.ResultSet{
		JudgeModel: "claude-opus-4-1",
		Statistics: question.ResultStats{Correct: 4, Hallucinated: 1, AgreementScore: 0.5, IssuesDetected: 2},
		Issues: []question.Issue{
			{Type: "misinterpretation", Severity: question.Medium, QuestionID: "q_001", SectionID: "cfg"},
			{Type: "hallucination", Severity: question.Critical, QuestionID: "q_004", SectionID: "ops"},
		},
	})
	for _, want := range []string{"claude-opus-4-1", "0.500", "Issues: 2", "q_001", "q_004"} {
		if !strings.Contains(got, want) {
			t.Errorf("Evaluation() missing %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "q_004") > strings.Index(got, "q_001") {
		t.Errorf("Evaluation(): issues not sorted by severity:\n%s", got)
	}

	clean := report.Evaluation(&question.ResultSet{JudgeModel: "j"})
	if strings.Contains(clean, "Severity") {
		t.Errorf("Evaluation() without issues rendered an issue table:\n%s", clean)
	}
}
