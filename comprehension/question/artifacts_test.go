/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package question_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"chainguard.dev/docprobe/comprehension/question"
	"github.com/google/go-cmp/cmp"
)

func sampleQuestion() question.Question {
	return question.Question{
		ID:             question.ID(1),
		Text:           "What is the required timeout value?",
		Category:       question.Factual,
		Difficulty:     question.Basic,
		Scope:          question.SectionScope,
		TargetSections: []string{"cfg"},
		ExpectedAnswer: question.ExpectedAnswer{
			Text:        "30 seconds",
			SourceLines: []int{2},
			Confidence:  "high",
		},
		GenerationMethod: question.MethodTemplate,
		TemplateID:       "requirement_value_01",
		Metadata: question.Metadata{
			ElementType:   "requirement",
			ElementText:   "Timeout must be 30 seconds",
			SectionHeader: "Réglages <cfg> & more",
		},
	}
}

// roundTrip checks that re-encoding a decoded artifact reproduces it.
func roundTrip[T any](t *testing.T, v T) {
	t.Helper()
	var first bytes.Buffer
	if err := question.Encode(&first, v); err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	loaded, err := question.Decode[T](bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if diff := cmp.Diff(v, *loaded); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
	var second bytes.Buffer
	if err := question.Encode(&second, *loaded); err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	if first.String() != second.String() {
		t.Errorf("re-encoded artifact differs:\n%s\nvs\n%s", first.String(), second.String())
	}
}

func TestQuestionSetRoundTrip(t *testing.T) {
	set := question.QuestionSet{
		DocumentPath:        "docs/guide.md",
		DocumentHash:        "abc123",
		GenerationTimestamp: question.Timestamp(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		GeneratorVersion:    "1.0.0",
		CatalogVersion:      "1.0.0",
		Statistics: question.GenerationStats{
			TotalQuestions: 1,
			SectionLevel:   1,
			ByCategory:     map[string]int{"factual": 1},
			ByDifficulty:   map[string]int{"basic": 1},
			Coverage: question.Coverage{
				SectionsCovered:    1,
				TotalSections:      3,
				SectionCoveragePct: question.Pct(1, 3),
				ElementsCovered:    1,
				TotalElements:      1,
				ElementCoveragePct: 100,
			},
			Validation: question.ValidationStats{
				Candidates: 3,
				Discarded:  2,
				ByRule:     map[string]int{"leakage": 2},
			},
			SkippedSections: []question.SkippedSection{{Index: 2, Header: "Orphan", Reason: "section is missing section_id"}},
		},
		Questions: []question.Question{sampleQuestion()},
	}
	roundTrip(t, set)
}

func TestAnswerAndResultSetRoundTrip(t *testing.T) {
	answers := question.AnswerSet{
		SessionID:        "5f0c3c1e-3f1d-4c55-9d0e-2d7f7d1f8a11",
		QuestionsFile:    "out/questions.json",
		TestingTimestamp: "2025-03-01T12:05:00Z",
		ModelsTested:     []string{"a", "b"},
		Statistics: question.AnswerStats{
			TotalAnswers:          2,
			FailedAnswers:         1,
			CollectionFailureRate: 0.5,
			ByModel: map[string]question.ModelStats{
				"a": {Answered: 1, MeanResponseMS: 120},
				"b": {Failed: 1},
			},
		},
		Answers: []question.AnswerEntry{{
			QuestionID: "q_001",
			ModelAnswers: map[string]question.Answer{
				"a": {QuestionID: "q_001", Model: "a", Text: "30 seconds", ResponseTimeMS: 120, RawResponse: `{"answer":"30 seconds"}`, Attempts: 1},
				"b": {QuestionID: "q_001", Model: "b", Failed: true, Error: "context deadline exceeded", Attempts: 2},
			},
		}},
	}
	roundTrip(t, answers)

	results := question.ResultSet{
		SessionID:           answers.SessionID,
		EvaluationTimestamp: "2025-03-01T12:10:00Z",
		JudgeModel:          "judge",
		Statistics: question.ResultStats{
			TotalEvaluated: 1,
			Correct:        1,
			AgreementScore: 1,
			BySeverity:     map[string]int{},
		},
		Results: []question.Result{{
			Question: sampleQuestion(),
			Evaluations: map[string]question.Evaluation{
				"a": {QuestionID: "q_001", Model: "a", Score: question.Correct, Evidence: "Timeout must be 30 seconds", EvidenceVerified: true},
			},
			Consensus: "unanimous_correct",
		}},
		Issues: []question.Issue{},
	}
	roundTrip(t, results)
}

func TestQuestioningResultRoundTrip(t *testing.T) {
	q := sampleQuestion()
	run := question.QuestioningResult{
		Questions: []question.Question{q},
		Results: []question.Result{{
			Question: q,
			Evaluations: map[string]question.Evaluation{
				"a": {QuestionID: q.ID, Model: "a", Score: question.Correct},
				"b": {QuestionID: q.ID, Model: "b", Score: question.Correct},
				"c": {QuestionID: q.ID, Model: "c", Score: question.Hallucinated, Reasoning: "Invents retries."},
			},
			Consensus:      "majority_correct",
			IssueDetected:  true,
			IssueType:      "hallucination",
			Severity:       question.High,
			Recommendation: "State the limits in section \"cfg\" explicitly.",
		}},
		Statistics: question.RunStats{
			Generation: question.GenerationStats{TotalQuestions: 1, SectionLevel: 1},
			Collection: question.AnswerStats{TotalAnswers: 3},
			Evaluation: question.ResultStats{
				TotalEvaluated: 3,
				Correct:        2,
				Hallucinated:   1,
				IssuesDetected: 1,
				BySeverity:     map[string]int{"low": 0, "medium": 0, "high": 1, "critical": 0},
				SectionLevel:   question.IssueBucket{Questions: 1, Issues: 1},
			},
		},
	}
	roundTrip(t, run)
}

func TestRunFile(t *testing.T) {
	if got, want := question.RunFile("0123456789abcdef"), "questioning_result_0123456789ab.json"; got != want {
		t.Errorf("RunFile() = %q, wanted %q", got, want)
	}
	if got, want := question.RunFile("abc"), "questioning_result_abc.json"; got != want {
		t.Errorf("RunFile() = %q, wanted %q", got, want)
	}
}

func TestEncodeNoEscaping(t *testing.T) {
	var buf bytes.Buffer
	if err := question.Encode(&buf, sampleQuestion()); err != nil {
		t.Fatalf("Encode() = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Réglages <cfg> & more", "\n  \"question_id\": \"q_001\""} {
		if !strings.Contains(out, want) {
			t.Errorf("Encode() output missing %q:\n%s", want, out)
		}
	}
}

func TestQuestionValidate(t *testing.T) {
	q := sampleQuestion()
	if err := q.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	q.TargetSections = []string{"a", "b"}
	if err := q.Validate(); err == nil {
		t.Error("Validate(section scope, two targets): got nil error")
	}

	q.Scope = question.DocumentScope
	if err := q.Validate(); err != nil {
		t.Errorf("Validate(document scope) = %v", err)
	}

	q.TargetSections = nil
	if err := q.Validate(); err == nil {
		t.Error("Validate(no targets): got nil error")
	}
}

func TestSeverityShift(t *testing.T) {
	tests := []struct {
		in   question.Severity
		n    int
		want question.Severity
	}{
		{question.High, 1, question.Critical},
		{question.Critical, 1, question.Critical},
		{question.Medium, -1, question.Low},
		{question.Low, -1, question.Low},
		{question.Medium, 2, question.Critical},
	}
	for _, tt := range tests {
		if got := tt.in.Shift(tt.n); got != tt.want {
			t.Errorf("%s.Shift(%d): got = %s, wanted = %s", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestPct(t *testing.T) {
	if got := question.Pct(1, 3); got != 33.3 {
		t.Errorf("Pct(1, 3): got = %v, wanted = 33.3", got)
	}
	if got := question.Pct(1, 0); got != 0 {
		t.Errorf("Pct(1, 0): got = %v, wanted = 0", got)
	}
}
