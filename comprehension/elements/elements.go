/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package elements

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"chainguard.dev/docprobe/comprehension/document"
)

// Type classifies a testable element.
type Type string

const (
	Requirement Type = "requirement"
	Constraint  Type = "constraint"
	Conditional Type = "conditional"
	Output      Type = "output"
	Input       Type = "input"
	Default     Type = "default"
	Exception   Type = "exception"
	Step        Type = "step"
)

// Types lists every element type in table order.
var Types = []Type{Requirement, Constraint, Conditional, Output, Input, Default, Exception, Step}

// Element is one claim extracted from a section. The slot fields are the
// pieces of the sentence templates are filled from.
type Element struct {
	Type      Type   `json:"type"`
	Text      string `json:"text"`
	Line      int    `json:"line"`
	SectionID string `json:"section_id"`
	Context   string `json:"surrounding_context"`

	// Trigger is the matched keyword, lowercased.
	Trigger string `json:"trigger,omitempty"`
	// Subject is the text before the trigger, Predicate the text after it.
	Subject   string `json:"subject,omitempty"`
	Predicate string `json:"predicate,omitempty"`
	// Condition and Consequence split "If X, Y" sentences.
	Condition   string `json:"condition,omitempty"`
	Consequence string `json:"consequence,omitempty"`
	// StepNumber is set for numbered steps.
	StepNumber string `json:"step_number,omitempty"`
}

const (
	contextRadius = 200
	dedupePrefix  = 50
)

var (
	sentenceEndRE = regexp.MustCompile(`[.!?](\s+|$)`)
	conditionRE   = regexp.MustCompile(`(?i)^\s*(?:if|when|unless)\s+(.+?),\s*(.+)$`)
)

// Extractor scans sections with a pattern table.
type Extractor struct {
	table []Pattern
}

// New returns an extractor over the default table.
func New() *Extractor {
	return &Extractor{table: Table}
}

// NewWithTable returns an extractor over a custom table.
func NewWithTable(table []Pattern) *Extractor {
	return &Extractor{table: table}
}

// Extract returns the section's elements in document order. A sentence
// matching several patterns yields one element per type. Elements are
// deduplicated on type and the first 50 runes of their text.
func (x *Extractor) Extract(section document.Section) []Element {
	var out []Element
	seen := make(map[string]struct{})

	for lineIdx, line := range strings.Split(section.Content, "\n") {
		trimmed := strings.TrimLeft(strings.TrimSpace(line), "-*+> ")
		if trimmed == "" {
			continue
		}
		lineOffset := offsetOfLine(section.Content, lineIdx)

		for _, p := range x.table {
			if !p.Line {
				continue
			}
			m := p.Expr.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}
			el := Element{
				Type:      p.Type,
				Text:      trimmed,
				Line:      section.ContentLine(lineIdx),
				SectionID: section.ID,
				Context:   surrounding(section.Content, lineOffset, lineOffset+len(line)),
			}
			if i := p.Expr.SubexpIndex("step"); i > 0 {
				el.StepNumber = m[i]
			}
			if i := p.Expr.SubexpIndex("body"); i > 0 {
				el.Predicate = trimSentence(m[i])
			}
			out = appendUnique(out, seen, el)
		}

		for _, sent := range sentences(line) {
			for _, p := range x.table {
				if p.Line {
					continue
				}
				m := p.Expr.FindStringIndex(sent.text)
				if m == nil {
					continue
				}
				el := Element{
					Type:      p.Type,
					Text:      sent.text,
					Line:      section.ContentLine(lineIdx),
					SectionID: section.ID,
					Trigger:   strings.ToLower(normalizeSpace(sent.text[m[0]:m[1]])),
					Subject:   cleanSubject(sent.text[:m[0]]),
					Predicate: trimSentence(sent.text[m[1]:]),
				}
				if c := conditionRE.FindStringSubmatch(sent.text); c != nil {
					el.Condition = trimSentence(c[1])
					el.Consequence = trimSentence(c[2])
				}
				start := lineOffset + sent.offset + m[0]
				el.Context = surrounding(section.Content, start, lineOffset+sent.offset+m[1])
				out = appendUnique(out, seen, el)
			}
		}
	}
	return out
}

func appendUnique(out []Element, seen map[string]struct{}, el Element) []Element {
	key := string(el.Type) + "\x00" + prefixRunes(el.Text, dedupePrefix)
	if _, dup := seen[key]; dup {
		return out
	}
	seen[key] = struct{}{}
	return append(out, el)
}

type sentence struct {
	text   string
	offset int
}

// sentences splits a line at terminal punctuation followed by whitespace or
// end of line. The terminator is dropped.
func sentences(line string) []sentence {
	var out []sentence
	pos := 0
	for _, m := range sentenceEndRE.FindAllStringIndex(line, -1) {
		out = appendSentence(out, line, pos, m[0])
		pos = m[1]
	}
	if pos < len(line) {
		out = appendSentence(out, line, pos, len(line))
	}
	return out
}

func appendSentence(out []sentence, line string, start, end int) []sentence {
	raw := line[start:end]
	text := strings.TrimSpace(raw)
	text = strings.TrimLeft(text, "-*+> ")
	if text == "" {
		return out
	}
	return append(out, sentence{text: text, offset: start + strings.Index(raw, text)})
}

func offsetOfLine(content string, idx int) int {
	off := 0
	for i := 0; i < idx; i++ {
		n := strings.IndexByte(content[off:], '\n')
		if n < 0 {
			return len(content)
		}
		off += n + 1
	}
	return off
}

// surrounding returns up to contextRadius bytes either side of [start, end),
// widened to rune boundaries.
func surrounding(content string, start, end int) string {
	lo := max(start-contextRadius, 0)
	hi := min(end+contextRadius, len(content))
	for lo > 0 && !utf8.RuneStart(content[lo]) {
		lo--
	}
	for hi < len(content) && !utf8.RuneStart(content[hi]) {
		hi++
	}
	return strings.TrimSpace(content[lo:hi])
}

func prefixRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var (
	subjectTrailRE = regexp.MustCompile(`(?i)\s+(?:may|can|must|should|will|shall|is|are|was|were|be|always|never|not|also|only)$`)
	spaceRE        = regexp.MustCompile(`\s+`)
)

func normalizeSpace(s string) string {
	return spaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// cleanSubject trims markup and trailing auxiliaries from the text before a
// trigger: "The retry count may" becomes "The retry count".
func cleanSubject(s string) string {
	s = trimSentence(s)
	for {
		next := subjectTrailRE.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimRight(s, ",;: ")
}

func trimSentence(s string) string {
	s = normalizeSpace(strings.NewReplacer("`", "", "**", "", "__", "").Replace(s))
	return strings.Trim(s, " ,;:.!?")
}
