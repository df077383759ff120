/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package question

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"
)

// Artifact file names.
const (
	QuestionsFile = "questions.json"
	AnswersFile   = "answers.json"
	ResultsFile   = "question_results.json"
)

// RunFile names the QuestioningResult artifact of one document version.
func RunFile(documentHash string) string {
	if len(documentHash) > 12 {
		documentHash = documentHash[:12]
	}
	return "questioning_result_" + documentHash + ".json"
}

// QuestionSet is the questions.json artifact.
type QuestionSet struct {
	DocumentPath        string          `json:"document_path"`
	DocumentHash        string          `json:"document_hash"`
	GenerationTimestamp string          `json:"generation_timestamp"`
	GeneratorVersion    string          `json:"generator_version"`
	CatalogVersion      string          `json:"catalog_version"`
	Statistics          GenerationStats `json:"statistics"`
	Questions           []Question      `json:"questions"`
}

// GenerationStats discloses how much of the document produced questions.
type GenerationStats struct {
	TotalQuestions    int              `json:"total_questions"`
	SectionLevel      int              `json:"section_level"`
	DocumentLevel     int              `json:"document_level"`
	Adversarial       int              `json:"adversarial"`
	ByCategory        map[string]int   `json:"by_category"`
	ByDifficulty      map[string]int   `json:"by_difficulty"`
	Coverage          Coverage         `json:"coverage"`
	Validation        ValidationStats  `json:"validation"`
	SkippedSections   []SkippedSection `json:"skipped_sections"`
	UnmatchedElements int              `json:"unmatched_elements"`
}

// Coverage reports how many sections and elements have a question.
type Coverage struct {
	SectionsCovered    int     `json:"sections_covered"`
	TotalSections      int     `json:"total_sections"`
	SectionCoveragePct float64 `json:"section_coverage_pct"`
	ElementsCovered    int     `json:"elements_covered"`
	TotalElements      int     `json:"total_elements"`
	ElementCoveragePct float64 `json:"element_coverage_pct"`
}

// ValidationStats counts candidates and discards per validator rule.
type ValidationStats struct {
	Candidates int            `json:"candidates"`
	Discarded  int            `json:"discarded"`
	ByRule     map[string]int `json:"by_rule"`
}

// SkippedSection records a section that failed input validation.
type SkippedSection struct {
	Index  int    `json:"index"`
	Header string `json:"header,omitempty"`
	Reason string `json:"reason"`
}

// AnswerSet is the answers.json artifact.
type AnswerSet struct {
	SessionID        string        `json:"session_id"`
	QuestionsFile    string        `json:"questions_file"`
	DocumentHash     string        `json:"document_hash"`
	TestingTimestamp string        `json:"testing_timestamp"`
	ModelsTested     []string      `json:"models_tested"`
	Statistics       AnswerStats   `json:"statistics"`
	Answers          []AnswerEntry `json:"answers"`
}

// AnswerStats summarises collection.
type AnswerStats struct {
	TotalAnswers          int                   `json:"total_answers"`
	FailedAnswers         int                   `json:"failed_answers"`
	CollectionFailureRate float64               `json:"collection_failure_rate"`
	ByModel               map[string]ModelStats `json:"by_model"`
}

// ModelStats summarises one model's answers.
type ModelStats struct {
	Answered       int   `json:"answered"`
	Failed         int   `json:"failed"`
	MeanResponseMS int64 `json:"mean_response_ms"`
}

// AnswerEntry holds every model's answer to one question.
type AnswerEntry struct {
	QuestionID   string            `json:"question_id"`
	ModelAnswers map[string]Answer `json:"model_answers"`
}

// ResultSet is the question_results.json artifact.
type ResultSet struct {
	SessionID           string      `json:"session_id"`
	EvaluationTimestamp string      `json:"evaluation_timestamp"`
	JudgeModel          string      `json:"judge_model"`
	Statistics          ResultStats `json:"statistics"`
	Results             []Result    `json:"results"`
	Issues              []Issue     `json:"issues"`
}

// ResultStats summarises evaluation.
type ResultStats struct {
	TotalEvaluated   int            `json:"total_evaluated"`
	Correct          int            `json:"correct"`
	PartiallyCorrect int            `json:"partially_correct"`
	Incorrect        int            `json:"incorrect"`
	Unanswerable     int            `json:"unanswerable"`
	Hallucinated     int            `json:"hallucinated"`
	AgreementScore   float64        `json:"agreement_score"`
	IssuesDetected   int            `json:"issues_detected"`
	BySeverity       map[string]int `json:"by_severity"`
	JudgeFallbacks   int            `json:"judge_fallbacks"`
	// Document-level issues are reported apart from section-level ones and
	// are never compared against a section-level baseline.
	DocumentLevel IssueBucket `json:"document_level"`
	SectionLevel  IssueBucket `json:"section_level"`
}

// IssueBucket counts questions and issues of one scope.
type IssueBucket struct {
	Questions int `json:"questions"`
	Issues    int `json:"issues"`
}

// QuestioningResult is the frozen outcome of a full run.
type QuestioningResult struct {
	Questions  []Question `json:"questions"`
	Results    []Result   `json:"results"`
	Statistics RunStats   `json:"statistics"`
}

// RunStats combines the statistics of every stage.
type RunStats struct {
	Generation GenerationStats `json:"generation"`
	Collection AnswerStats     `json:"collection"`
	Evaluation ResultStats     `json:"evaluation"`
}

// Encode writes v as an indented JSON artifact.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	return nil
}

// Decode reads one JSON artifact of type T.
func Decode[T any](r io.Reader) (*T, error) {
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	return &v, nil
}

// Timestamp formats t the way artifacts record it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Pct returns n/total as a percentage rounded to one decimal, or 0.
func Pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round(100*float64(n)/float64(total), 1)
}
