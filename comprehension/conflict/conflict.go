/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package conflict finds statements in different sections that contradict
// each other or assign different values to the same key. Detection favours
// recall: every record becomes a question a judge can dismiss.
package conflict

import (
	"fmt"
	"regexp"
	"strings"

	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/tokens"
)

// Kind is the type of a conflict record.
type Kind string

const (
	Contradiction Kind = "contradiction"
	ValueConflict Kind = "value_conflict"
)

// Conflict is one detected inconsistency between two sections.
type Conflict struct {
	Kind       Kind      `json:"kind"`
	Sections   [2]string `json:"sections"`
	Evidence   string    `json:"evidence"`
	Pair       string    `json:"pair,omitempty"`
	Key        string    `json:"key,omitempty"`
	Values     []string  `json:"values,omitempty"`
	Statements []string  `json:"statements,omitempty"`
}

type statement struct {
	text    string
	subject map[string]struct{}
}

// polarity holds one section's positive and negative statements per table
// pair.
type polarity struct {
	pos, neg [][]statement
}

var sentenceRE = regexp.MustCompile(`[^.!?\n]+`)

// Detect compares every pair of sections. Every section must carry a
// unique id.
func Detect(sections []document.Section) ([]Conflict, error) {
	if err := document.ValidateAll(sections); err != nil {
		return nil, err
	}

	pols := make([]polarity, len(sections))
	for i, s := range sections {
		pols[i] = classify(s.Content)
	}

	var out []Conflict
	for i := range sections {
		for j := i + 1; j < len(sections); j++ {
			if c, ok := contradiction(sections[i].ID, sections[j].ID, pols[i], pols[j]); ok {
				out = append(out, c)
			}
		}
	}
	return append(out, valueConflicts(sections)...), nil
}

func classify(content string) polarity {
	p := polarity{pos: make([][]statement, len(Table)), neg: make([][]statement, len(Table))}
	for _, raw := range sentenceRE.FindAllString(content, -1) {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		var st *statement
		get := func() statement {
			if st == nil {
				st = &statement{text: text, subject: subject(text)}
			}
			return *st
		}
		negated := negationRE.MatchString(text)
		for k, pair := range Table {
			switch {
			case pair.Negative.MatchString(text):
				p.neg[k] = append(p.neg[k], get())
			case !negated && pair.Positive.MatchString(text):
				p.pos[k] = append(p.pos[k], get())
			}
		}
	}
	return p
}

func subject(text string) map[string]struct{} {
	set := tokens.Meaningful(text)
	for m := range markers {
		delete(set, m)
	}
	return set
}

// contradiction returns the first table pair on which sections a and b take
// opposite positions about an overlapping subject.
func contradiction(a, b string, pa, pb polarity) (Conflict, bool) {
	for k, pair := range Table {
		if x, y, ok := opposed(pa.pos[k], pb.neg[k]); ok {
			return newContradiction(a, b, pair.Name, x, y), true
		}
		if x, y, ok := opposed(pa.neg[k], pb.pos[k]); ok {
			return newContradiction(a, b, pair.Name, x, y), true
		}
	}
	return Conflict{}, false
}

func opposed(xs, ys []statement) (statement, statement, bool) {
	for _, x := range xs {
		for _, y := range ys {
			if len(tokens.Shared(x.subject, y.subject)) > 0 {
				return x, y, true
			}
		}
	}
	return statement{}, statement{}, false
}

func newContradiction(a, b, pair string, x, y statement) Conflict {
	return Conflict{
		Kind:       Contradiction,
		Sections:   [2]string{a, b},
		Evidence:   fmt.Sprintf("%q contradicts %q", x.text, y.text),
		Pair:       pair,
		Statements: []string{x.text, y.text},
	}
}

type assignment struct {
	section   string
	value     string
	statement string
}

func valueConflicts(sections []document.Section) []Conflict {
	var keys []string
	byKey := make(map[string][]assignment)
	for _, s := range sections {
		for _, m := range assignmentRE.FindAllStringSubmatch(s.Content, -1) {
			key := strings.ToLower(m[1])
			value := normalizeValue(m[2])
			if tokens.IsStopword(key) || value == "" || tokens.IsStopword(value) {
				continue
			}
			if _, ok := byKey[key]; !ok {
				keys = append(keys, key)
			}
			byKey[key] = append(byKey[key], assignment{section: s.ID, value: value, statement: strings.TrimSpace(m[0])})
		}
	}

	var out []Conflict
	for _, key := range keys {
		if c, ok := firstDiffering(key, byKey[key]); ok {
			out = append(out, c)
		}
	}
	return out
}

func firstDiffering(key string, as []assignment) (Conflict, bool) {
	for i, x := range as {
		for _, y := range as[i+1:] {
			if x.section == y.section || x.value == y.value {
				continue
			}
			return Conflict{
				Kind:       ValueConflict,
				Sections:   [2]string{x.section, y.section},
				Evidence:   fmt.Sprintf("%q vs %q", x.statement, y.statement),
				Key:        key,
				Values:     []string{x.value, y.value},
				Statements: []string{x.statement, y.statement},
			}, true
		}
	}
	return Conflict{}, false
}

func normalizeValue(v string) string {
	v = strings.ToLower(strings.Trim(v, "`*_\"'"))
	v = strings.TrimRight(v, ".,;:)!?")
	if strings.HasPrefix(v, "//") {
		return ""
	}
	return v
}
