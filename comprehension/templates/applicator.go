/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package templates

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/elements"
	"chainguard.dev/docprobe/comprehension/question"
	"chainguard.dev/docprobe/comprehension/tokens"
)

// MaxPerElement caps the candidates generated from one element.
const MaxPerElement = 2

// Candidate is a generated question awaiting validation. Its ID is assigned
// once it has been accepted.
type Candidate struct {
	Question   question.Question
	TemplateID string
	Element    elements.Element
}

// Applicator binds elements to catalog templates.
type Applicator struct {
	catalog *Catalog
}

// NewApplicator returns an applicator over c.
func NewApplicator(c *Catalog) *Applicator {
	return &Applicator{catalog: c}
}

// Apply produces up to MaxPerElement candidates for el, preferring one per
// category. unmatched is true when no template could be filled.
func (a *Applicator) Apply(el elements.Element, section document.Section) (cands []Candidate, unmatched bool) {
	slots := Slots(el, section)
	lowerText := strings.ToLower(el.Text)

	var filled []Candidate
	for _, t := range a.catalog.ForElement(el.Type) {
		if !hasKeywords(lowerText, t.Triggers.RequiredKeywords) {
			continue
		}
		text, answer, ok := t.Fill(slots)
		if !ok || !tokens.HasMeaning(answer) {
			continue
		}
		// The whole element would give the question away.
		if strings.EqualFold(trimAnswer(answer), trimAnswer(el.Text)) {
			continue
		}
		filled = append(filled, Candidate{
			Question: question.Question{
				Text:           text,
				Category:       t.Category,
				Difficulty:     t.Difficulty,
				Scope:          question.SectionScope,
				TargetSections: []string{section.ID},
				ExpectedAnswer: question.ExpectedAnswer{
					Text:        answer,
					SourceLines: []int{el.Line},
					Confidence:  t.Confidence,
				},
				GenerationMethod: question.MethodTemplate,
				TemplateID:       t.ID,
				IsAdversarial:    t.AdversarialType != "",
				AdversarialType:  t.AdversarialType,
				Metadata: question.Metadata{
					ElementType:   string(el.Type),
					ElementText:   el.Text,
					Trigger:       el.Trigger,
					SectionHeader: section.Header,
				},
			},
			TemplateID: t.ID,
			Element:    el,
		})
	}
	cands = diverse(filled, MaxPerElement)
	return cands, len(cands) == 0
}

// ApplyDocument fills a document-scope template. The question targets the
// given sections, in order.
func (a *Applicator) ApplyDocument(id string, slots map[string]string, targets []string, lines []int, meta question.Metadata) (Candidate, bool) {
	t, ok := a.catalog.Get(id)
	if !ok || t.Scope != question.DocumentScope {
		return Candidate{}, false
	}
	text, answer, ok := t.Fill(slots)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{
		Question: question.Question{
			Text:           text,
			Category:       t.Category,
			Difficulty:     t.Difficulty,
			Scope:          question.DocumentScope,
			TargetSections: targets,
			ExpectedAnswer: question.ExpectedAnswer{
				Text:        answer,
				SourceLines: lines,
				Confidence:  t.Confidence,
			},
			GenerationMethod: question.MethodTemplate,
			TemplateID:       t.ID,
			IsAdversarial:    t.AdversarialType != "",
			AdversarialType:  t.AdversarialType,
			Metadata:         meta,
		},
		TemplateID: t.ID,
	}, true
}

// diverse keeps at most n candidates, taking the first of each category
// before any repeat. Picks stay in catalog order.
func diverse(cands []Candidate, n int) []Candidate {
	picked := make([]bool, len(cands))
	count := 0
	seen := make(map[question.Category]struct{})
	for i, c := range cands {
		if count == n {
			break
		}
		if _, dup := seen[c.Question.Category]; dup {
			continue
		}
		seen[c.Question.Category] = struct{}{}
		picked[i] = true
		count++
	}
	for i := range cands {
		if count == n {
			break
		}
		if !picked[i] {
			picked[i] = true
			count++
		}
	}
	var out []Candidate
	for i, c := range cands {
		if picked[i] {
			out = append(out, c)
		}
	}
	return out
}

func hasKeywords(lowerText string, kws []string) bool {
	for _, kw := range kws {
		if !strings.Contains(lowerText, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

func trimAnswer(s string) string {
	return strings.Trim(strings.Join(strings.Fields(s), " "), " .,;:!?")
}

var (
	copulaRE   = regexp.MustCompile(`(?i)^(?:be|is|are|equals?|equal\s+to|to\s+be|set\s+to)\s+(.+)$`)
	valueRE    = regexp.MustCompile(`(?i)\d|^["']|^(?:true|false|enabled|disabled|on|off|none|null|empty)$`)
	quantityRE = regexp.MustCompile(`\d+(?:[.,]\d+)?(?:\s*(?:%|\p{L}+))?`)
)

var boundWords = map[string]string{
	"maximum":      "maximum",
	"max":          "maximum",
	"at most":      "maximum",
	"no more than": "maximum",
	"minimum":      "minimum",
	"min":          "minimum",
	"at least":     "minimum",
	"limit":        "limit",
}

var attributeWords = []struct {
	re        *regexp.Regexp
	attribute string
}{
	{regexp.MustCompile(`(?i)\b(?:timeout|interval|duration|delay|ttl|period)s?\b`), "duration"},
	{regexp.MustCompile(`(?i)\b(?:path|file|dir|directory|location|url)s?\b`), "location"},
	{regexp.MustCompile(`(?i)\b(?:format|encoding)s?\b`), "format"},
	{regexp.MustCompile(`(?i)\b(?:level|mode)s?\b`), "setting"},
}

// Slots derives every template slot from an element and its section. A slot
// with no meaningful content is left empty.
func Slots(el elements.Element, section document.Section) map[string]string {
	subject := ""
	if tokens.HasMeaning(el.Subject) {
		subject = lowerFirst(el.Subject)
	}
	header := section.Header
	if header == "" {
		header = section.ID
	}
	slots := map[string]string{
		"subject":     subject,
		"predicate":   meaningful(el.Predicate),
		"value":       value(el.Predicate),
		"quantity":    quantity(el),
		"condition":   meaningful(el.Condition),
		"consequence": meaningful(el.Consequence),
		"section":     header,
		"bound":       boundWords[el.Trigger],
		"step":        el.StepNumber,
		"attribute":   "value",
	}
	for _, aw := range attributeWords {
		if aw.re.MatchString(el.Subject) {
			slots["attribute"] = aw.attribute
			break
		}
	}
	return slots
}

func meaningful(s string) string {
	if tokens.HasMeaning(s) {
		return s
	}
	return ""
}

// value strips a leading copula from a predicate and keeps the rest only
// when it looks like a literal.
func value(predicate string) string {
	m := copulaRE.FindStringSubmatch(predicate)
	if m == nil {
		return ""
	}
	v := m[1]
	for {
		next := copulaRE.FindStringSubmatch(v)
		if next == nil {
			break
		}
		v = next[1]
	}
	if !valueRE.MatchString(v) {
		return ""
	}
	return v
}

func quantity(el elements.Element) string {
	if q := quantityRE.FindString(el.Predicate); q != "" {
		return q
	}
	return quantityRE.FindString(el.Text)
}

// lowerFirst lowercases a leading capital unless the word is an acronym.
func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if !unicode.IsUpper(r) {
		return s
	}
	if next, _ := utf8.DecodeRuneInString(s[n:]); unicode.IsUpper(next) {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
