/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package consensus

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"chainguard.dev/docprobe/comprehension/question"
)

func sectionQuestion() question.Question {
	return question.Question{
		ID:             "q_001",
		Text:           "What is the default timeout?",
		Scope:          question.SectionScope,
		TargetSections: []string{"cfg"},
		Metadata:       question.Metadata{SectionHeader: "Configuration"},
	}
}

func evals(scores map[string]question.Score) map[string]question.Evaluation {
	out := make(map[string]question.Evaluation, len(scores))
	for model, s := range scores {
		out[model] = question.Evaluation{QuestionID: "q_001", Model: model, Score: s}
	}
	return out
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name   string
		scores []question.Score
		want   string
	}{{
		name: "empty",
		want: NoData,
	}, {
		name:   "unanimous",
		scores: []question.Score{question.Correct, question.Correct, question.Correct},
		want:   "unanimous_correct",
	}, {
		name:   "single",
		scores: []question.Score{question.Unanswerable},
		want:   "unanimous_unanswerable",
	}, {
		name:   "majority",
		scores: []question.Score{question.Correct, question.Incorrect, question.Correct},
		want:   "majority_correct",
	}, {
		name:   "half is not a majority",
		scores: []question.Score{question.Correct, question.Incorrect},
		want:   Disagreement,
	}, {
		name:   "three way",
		scores: []question.Score{question.Correct, question.Incorrect, question.Hallucinated},
		want:   Disagreement,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Label(tt.scores); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCalculate(t *testing.T) {
	contradiction := sectionQuestion()
	contradiction.Scope = question.DocumentScope
	contradiction.TargetSections = []string{"cfg", "ops"}
	contradiction.Metadata.DocumentKind = question.KindContradiction

	valueConflict := contradiction
	valueConflict.Metadata.DocumentKind = question.KindValueConflict

	dependency := contradiction
	dependency.Metadata.DocumentKind = question.KindDependency

	adversarial := sectionQuestion()
	adversarial.IsAdversarial = true
	adversarial.AdversarialType = "false_premise"

	tests := []struct {
		name      string
		q         question.Question
		scores    map[string]question.Score
		consensus string
		issue     string
		severity  question.Severity
	}{{
		name:      "unanimous correct",
		q:         sectionQuestion(),
		scores:    map[string]question.Score{"a": question.Correct, "b": question.Correct, "c": question.Correct},
		consensus: "unanimous_correct",
	}, {
		name:      "one hallucination among correct answers",
		q:         sectionQuestion(),
		scores:    map[string]question.Score{"a": question.Correct, "b": question.Correct, "c": question.Hallucinated},
		consensus: "majority_correct",
		issue:     Hallucination,
		severity:  question.High,
	}, {
		name:      "one incorrect among correct answers",
		q:         sectionQuestion(),
		scores:    map[string]question.Score{"a": question.Correct, "b": question.Correct, "c": question.Incorrect},
		consensus: "majority_correct",
		issue:     Misinterpretation,
		severity:  question.Medium,
	}, {
		name:      "wrong majority escalates",
		q:         sectionQuestion(),
		scores:    map[string]question.Score{"a": question.Correct, "b": question.Incorrect, "c": question.Incorrect},
		consensus: "majority_incorrect",
		issue:     Misinterpretation,
		severity:  question.High,
	}, {
		name:      "hallucination capped at critical",
		q:         contradiction,
		scores:    map[string]question.Score{"a": question.Hallucinated, "b": question.Hallucinated, "c": question.Correct},
		consensus: "majority_hallucinated",
		issue:     Hallucination,
		severity:  question.Critical,
	}, {
		name:      "adversarial lowers severity",
		q:         adversarial,
		scores:    map[string]question.Score{"a": question.Correct, "b": question.Correct, "c": question.Incorrect},
		consensus: "majority_correct",
		issue:     Misinterpretation,
		severity:  question.Low,
	}, {
		name:      "section disagreement",
		q:         sectionQuestion(),
		scores:    map[string]question.Score{"a": question.Correct, "b": question.PartiallyCorrect},
		consensus: Disagreement,
		issue:     ComprehensionDivergence,
		severity:  question.Medium,
	}, {
		name:      "contradiction disagreement is critical",
		q:         contradiction,
		scores:    map[string]question.Score{"a": question.Correct, "b": question.PartiallyCorrect},
		consensus: Disagreement,
		issue:     ComprehensionDivergence,
		severity:  question.Critical,
	}, {
		name:      "value conflict disagreement is high",
		q:         valueConflict,
		scores:    map[string]question.Score{"a": question.Correct, "b": question.PartiallyCorrect},
		consensus: Disagreement,
		issue:     ComprehensionDivergence,
		severity:  question.High,
	}, {
		name:      "dependency disagreement is high",
		q:         dependency,
		scores:    map[string]question.Score{"a": question.Correct, "b": question.PartiallyCorrect},
		consensus: Disagreement,
		issue:     ComprehensionDivergence,
		severity:  question.High,
	}, {
		name:      "disagreement with an incorrect answer takes the higher severity",
		q:         contradiction,
		scores:    map[string]question.Score{"a": question.Correct, "b": question.Incorrect},
		consensus: Disagreement,
		issue:     Misinterpretation,
		severity:  question.Critical,
	}, {
		name:      "unanswerable majority",
		q:         sectionQuestion(),
		scores:    map[string]question.Score{"a": question.Unanswerable, "b": question.Unanswerable, "c": question.Correct},
		consensus: "majority_unanswerable",
		issue:     MissingInformation,
		severity:  question.Medium,
	}, {
		name:      "partially correct raises nothing",
		q:         sectionQuestion(),
		scores:    map[string]question.Score{"a": question.PartiallyCorrect, "b": question.PartiallyCorrect},
		consensus: "unanimous_partially_correct",
	}}
	calc := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Calculate(tt.q, evals(tt.scores))
			if got.Consensus != tt.consensus {
				t.Errorf("Consensus = %q, want %q", got.Consensus, tt.consensus)
			}
			if got.IssueDetected != (tt.issue != "") {
				t.Fatalf("IssueDetected = %v, want %v", got.IssueDetected, tt.issue != "")
			}
			if got.IssueType != tt.issue {
				t.Errorf("IssueType = %q, want %q", got.IssueType, tt.issue)
			}
			if got.Severity != tt.severity {
				t.Errorf("Severity = %q, want %q", got.Severity, tt.severity)
			}
			if tt.issue != "" && got.Recommendation == "" {
				t.Error("Recommendation is empty")
			}
		})
	}
}

func TestCalculateNoData(t *testing.T) {
	ev := map[string]question.Evaluation{
		"a": {Model: "a", Score: question.Unanswerable, CollectionFailed: true, JudgeFallback: true},
		"b": {Model: "b", Score: question.Unanswerable, CollectionFailed: true, JudgeFallback: true},
	}
	got := New().Calculate(sectionQuestion(), ev)
	if got.Consensus != NoData {
		t.Errorf("Consensus = %q, want %q", got.Consensus, NoData)
	}
	if got.IssueDetected {
		t.Errorf("IssueDetected = true, want false")
	}
	if len(got.Evaluations) != 2 {
		t.Errorf("Evaluations = %d, want 2 kept in the result", len(got.Evaluations))
	}
}

func TestCalculateIgnoresFailedAnswers(t *testing.T) {
	ev := evals(map[string]question.Score{"a": question.Correct, "b": question.Correct})
	ev["c"] = question.Evaluation{Model: "c", Score: question.Unanswerable, CollectionFailed: true}

	got := New().Calculate(sectionQuestion(), ev)
	if got.Consensus != "unanimous_correct" {
		t.Errorf("Consensus = %q, want unanimous_correct", got.Consensus)
	}
	if got.IssueDetected {
		t.Errorf("IssueDetected = true, want false")
	}
}

func TestIssue(t *testing.T) {
	calc := New()
	ev := evals(map[string]question.Score{
		"gemini-2.5-pro":    question.Correct,
		"claude-sonnet-4-5": question.Correct,
		"gpt-5":             question.Hallucinated,
	})
	ev["cli:codex/gpt-5"] = question.Evaluation{Model: "cli:codex/gpt-5", Score: question.Unanswerable, CollectionFailed: true}
	res := calc.Calculate(sectionQuestion(), ev)

	got, ok := calc.Issue(res)
	if !ok {
		t.Fatal("Issue() reported no issue")
	}
	want := question.Issue{
		Type:            Hallucination,
		Severity:        question.High,
		QuestionID:      "q_001",
		QuestionText:    "What is the default timeout?",
		SectionID:       "cfg",
		SectionHeader:   "Configuration",
		TargetSections:  []string{"cfg"},
		ModelsCorrect:   []string{"claude-sonnet-4-5", "gemini-2.5-pro"},
		ModelsIncorrect: []string{"gpt-5"},
		Consensus:       "majority_correct",
		Recommendation:  res.Recommendation,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Issue() mismatch (-want +got):\n%s", diff)
	}

	clean := calc.Calculate(sectionQuestion(), evals(map[string]question.Score{"a": question.Correct}))
	if _, ok := calc.Issue(clean); ok {
		t.Error("Issue() reported an issue for a clean result")
	}
}

func TestRecommendationNamesSections(t *testing.T) {
	q := sectionQuestion()
	q.Scope = question.DocumentScope
	q.TargetSections = []string{"cfg", "ops", "limits"}
	q.Metadata.DocumentKind = question.KindContradiction

	got := New().Calculate(q, evals(map[string]question.Score{"a": question.Correct, "b": question.PartiallyCorrect}))
	want := `Reconcile the conflicting statements in section "cfg", section "ops" and section "limits".`
	if got.Recommendation != want {
		t.Errorf("Recommendation = %q, want %q", got.Recommendation, want)
	}
}
