/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package question

import (
	"errors"
	"fmt"
)

// Category groups questions by the kind of knowledge they probe.
type Category string

const (
	Factual      Category = "factual"
	Procedural   Category = "procedural"
	Conditional  Category = "conditional"
	Quantitative Category = "quantitative"
	Existence    Category = "existence"
)

// Categories lists the known categories.
var Categories = []Category{Factual, Procedural, Conditional, Quantitative, Existence}

// Difficulty is the labelled difficulty of a question.
type Difficulty string

const (
	Basic        Difficulty = "basic"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Expert       Difficulty = "expert"
)

// Difficulties lists the known difficulties, easiest first.
var Difficulties = []Difficulty{Basic, Intermediate, Advanced, Expert}

// Scope says whether a question targets one section or several.
type Scope string

const (
	SectionScope  Scope = "section"
	DocumentScope Scope = "document"
)

// Method records how a question was produced.
type Method string

const (
	MethodTemplate Method = "template"
	MethodLLM      Method = "llm"
)

// Document-level question kinds, recorded in Metadata.DocumentKind.
const (
	KindDependency    = "dependency"
	KindContradiction = "contradiction"
	KindValueConflict = "value_conflict"
)

// ExpectedAnswer is the reference answer a judge compares against.
type ExpectedAnswer struct {
	Text        string `json:"text"`
	SourceLines []int  `json:"source_lines"`
	Confidence  string `json:"confidence"`
}

// Metadata carries provenance for a generated question.
type Metadata struct {
	ElementType   string `json:"element_type,omitempty"`
	ElementText   string `json:"element_text,omitempty"`
	Trigger       string `json:"trigger,omitempty"`
	SectionHeader string `json:"section_header,omitempty"`
	DocumentKind  string `json:"document_kind,omitempty"`
	Evidence      string `json:"evidence,omitempty"`
}

// Question is the unit of work for collection and evaluation. It is never
// mutated once it has passed validation.
type Question struct {
	ID               string         `json:"question_id"`
	Text             string         `json:"question_text"`
	Category         Category       `json:"category"`
	Difficulty       Difficulty     `json:"difficulty"`
	Scope            Scope          `json:"scope"`
	TargetSections   []string       `json:"target_sections"`
	ExpectedAnswer   ExpectedAnswer `json:"expected_answer"`
	GenerationMethod Method         `json:"generation_method"`
	TemplateID       string         `json:"template_id,omitempty"`
	IsAdversarial    bool           `json:"is_adversarial"`
	AdversarialType  string         `json:"adversarial_type,omitempty"`
	Metadata         Metadata       `json:"metadata"`
}

// ID formats the n-th (1-based) question id.
func ID(n int) string {
	return fmt.Sprintf("q_%03d", n)
}

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	var errs []error
	if q.ID == "" {
		errs = append(errs, errors.New("question_id is empty"))
	}
	if len(q.TargetSections) == 0 {
		errs = append(errs, errors.New("target_sections is empty"))
	}
	switch q.Scope {
	case SectionScope:
		if len(q.TargetSections) > 1 {
			errs = append(errs, fmt.Errorf("section-scoped question has %d target sections", len(q.TargetSections)))
		}
	case DocumentScope:
	default:
		errs = append(errs, fmt.Errorf("unknown scope %q", q.Scope))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("question %q: %w", q.ID, err)
	}
	return nil
}

// IsConflict reports whether q was generated from a detected conflict.
func (q Question) IsConflict() bool {
	return q.Metadata.DocumentKind == KindContradiction || q.Metadata.DocumentKind == KindValueConflict
}

// Answer is one model's reply to one question.
type Answer struct {
	QuestionID       string `json:"question_id"`
	Model            string `json:"model_name"`
	Text             string `json:"answer_text"`
	ConfidenceStated string `json:"confidence_stated,omitempty"`
	Reasoning        string `json:"reasoning,omitempty"`
	ResponseTimeMS   int64  `json:"response_time_ms"`
	RawResponse      string `json:"raw_response"`
	Attempts         int    `json:"attempts"`
	// Failed marks a placeholder for a call that produced no usable answer.
	Failed bool   `json:"failed"`
	Error  string `json:"error,omitempty"`
}

// Score is the judge's categorical verdict.
type Score string

const (
	Correct          Score = "correct"
	PartiallyCorrect Score = "partially_correct"
	Incorrect        Score = "incorrect"
	Unanswerable     Score = "unanswerable"
	Hallucinated     Score = "hallucinated"
)

// Scores lists the verdicts a judge may return.
var Scores = []Score{Correct, PartiallyCorrect, Incorrect, Unanswerable, Hallucinated}

// Valid reports whether s is one of Scores.
func (s Score) Valid() bool {
	for _, v := range Scores {
		if s == v {
			return true
		}
	}
	return false
}

// Evaluation is the judge's verdict on one answer.
type Evaluation struct {
	QuestionID       string `json:"question_id"`
	Model            string `json:"model_name"`
	Score            Score  `json:"score"`
	Reasoning        string `json:"reasoning"`
	Evidence         string `json:"evidence"`
	EvidenceVerified bool   `json:"evidence_verified"`
	JudgeFallback    bool   `json:"judge_fallback"`
	CollectionFailed bool   `json:"collection_failed"`
}

// Severity grades a detected issue.
type Severity string

const (
	Low      Severity = "low"
	Medium   Severity = "medium"
	High     Severity = "high"
	Critical Severity = "critical"
)

// Severities lists severities from least to most severe.
var Severities = []Severity{Low, Medium, High, Critical}

// Rank returns the position of s in Severities, or -1.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if s == v {
			return i
		}
	}
	return -1
}

// Shift moves s by n levels, clamped to [Low, Critical].
func (s Severity) Shift(n int) Severity {
	r := min(max(s.Rank()+n, 0), len(Severities)-1)
	return Severities[r]
}

// Result aggregates a question with every model's evaluation.
type Result struct {
	Question       Question              `json:"question"`
	Evaluations    map[string]Evaluation `json:"evaluations"`
	Consensus      string                `json:"consensus"`
	IssueDetected  bool                  `json:"issue_detected"`
	IssueType      string                `json:"issue_type,omitempty"`
	Severity       Severity              `json:"severity,omitempty"`
	Recommendation string                `json:"recommendation,omitempty"`
}

// Issue is a located document defect. Its fields line up with the ambiguity
// records produced by chunk interpretation testing so both can be merged into
// one report.
type Issue struct {
	Type            string   `json:"type"`
	Severity        Severity `json:"severity"`
	QuestionID      string   `json:"question_id"`
	QuestionText    string   `json:"question_text"`
	SectionID       string   `json:"section_id"`
	SectionHeader   string   `json:"section_header"`
	TargetSections  []string `json:"target_sections"`
	ModelsCorrect   []string `json:"models_correct"`
	ModelsIncorrect []string `json:"models_incorrect"`
	Consensus       string   `json:"consensus"`
	Recommendation  string   `json:"recommendation"`
}
