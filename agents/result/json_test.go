/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{{
		name:     "json block with text around it",
		input:    "Let me check.\n\n```json\n{\"answer\": \"30 seconds\"}\n```\n\nDone.",
		expected: `{"answer": "30 seconds"}`,
	}, {
		name:     "generic code block",
		input:    "```\n{\"generic\": \"block\"}\n```",
		expected: `{"generic": "block"}`,
	}, {
		name:     "indented fence",
		input:    "  ```json\n  {\"indented\": true}\n  ```",
		expected: `{"indented": true}`,
	}, {
		name:     "windows line endings",
		input:    "```json\r\n{\"windows\": \"style\"}\r\n```",
		expected: `{"windows": "style"}`,
	}, {
		name:     "first of several blocks",
		input:    "```json\n{\"first\": true}\n```\n\n```json\n{\"second\": true}\n```",
		expected: `{"first": true}`,
	}, {
		name:     "inline fence",
		input:    "```json{\"inline\": \"style\"}```",
		expected: `{"inline": "style"}`,
	}, {
		name:     "plain json",
		input:    "  {\"plain\": \"json\"}\n",
		expected: `{"plain": "json"}`,
	}, {
		name:     "empty block",
		input:    "```json\n```",
		expected: "",
	}, {
		name:     "empty input",
		input:    "",
		expected: "",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.expected {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtractJSON_Malformed(t *testing.T) {
	for _, input := range []string{
		"```json",
		"```",
		"``````",
		"```json```json```",
		"\n\n\n```json\n\n\n",
		"```json" + strings.Repeat("\n", 1000) + "```",
		"```json\x00\x01\x02```",
	} {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("ExtractJSON panicked on input: %q, panic: %v", input, r)
				}
			}()
			_ = ExtractJSON(input)
		}()
	}
}

type answer struct {
	Answer     string `json:"answer"`
	Confidence string `json:"confidence"`
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    answer
		wantErr bool
	}{{
		name:  "fenced",
		input: "```json\n{\"answer\": \"30 seconds\", \"confidence\": \"high\"}\n```",
		want:  answer{Answer: "30 seconds", Confidence: "high"},
	}, {
		name:  "object inside prose",
		input: "The answer is {\"answer\": \"30 seconds\", \"confidence\": \"medium\"} as stated.",
		want:  answer{Answer: "30 seconds", Confidence: "medium"},
	}, {
		name:    "prose only",
		input:   "I think the timeout is thirty seconds.",
		wantErr: true,
	}, {
		name:    "broken object",
		input:   "```json\n{\"answer\": \n```",
		wantErr: true,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract[answer](tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Extract() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtract_Empty(t *testing.T) {
	if _, err := Extract[answer]("   "); !errors.Is(err, ErrNoJSON) {
		t.Errorf("Extract(blank) error = %v, want ErrNoJSON", err)
	}
}
