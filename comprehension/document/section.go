/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingSectionID is returned for a section that lacks its join key.
var ErrMissingSectionID = errors.New("section is missing section_id")

// ErrDuplicateSectionID is returned for a section whose id an earlier
// section already uses.
var ErrDuplicateSectionID = errors.New("duplicate section_id")

// LineRange is the inclusive, 1-based [first, last] span of a section in its
// document. The first line holds the header.
type LineRange [2]int

// Section is one addressable region of a document.
type Section struct {
	ID        string    `json:"section_id"`
	Header    string    `json:"header"`
	Content   string    `json:"content"`
	LineRange LineRange `json:"line_range"`
}

// Validate reports whether the section can participate in a run.
func (s Section) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		if s.Header != "" {
			return fmt.Errorf("%w (header %q)", ErrMissingSectionID, s.Header)
		}
		return ErrMissingSectionID
	}
	if s.LineRange[0] < 0 || s.LineRange[1] < s.LineRange[0] {
		return fmt.Errorf("section %q has invalid line_range %v", s.ID, s.LineRange)
	}
	return nil
}

// ValidateAll validates every section and checks that ids are unique.
func ValidateAll(sections []Section) error {
	seen := make(map[string]int, len(sections))
	for i, s := range sections {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		if first, dup := seen[s.ID]; dup {
			return fmt.Errorf("section %d: %w %q (first used by section %d)", i, ErrDuplicateSectionID, s.ID, first)
		}
		seen[s.ID] = i
	}
	return nil
}

// Text returns the header and content joined, which is the text a reader
// sees for the section.
func (s Section) Text() string {
	if s.Header == "" {
		return s.Content
	}
	return s.Header + "\n" + s.Content
}

// ContentLine returns the absolute document line of the i-th (0-based)
// content line.
func (s Section) ContentLine(i int) int {
	return s.LineRange[0] + 1 + i
}

// Document is the unit of a pipeline run.
type Document struct {
	Path     string
	Content  string
	Sections []Section
}

// Hash returns the hex SHA-256 of the document content. Sessions and
// artifacts are versioned by it.
func (d *Document) Hash() string {
	sum := sha256.Sum256([]byte(d.Content))
	return hex.EncodeToString(sum[:])
}

// Section looks up a section by id.
func (d *Document) Section(id string) (Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Excerpt joins the named sections in document order as markdown, for
// prompts and judge context. Unknown ids are ignored.
func (d *Document) Excerpt(ids ...string) string {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var sb strings.Builder
	for _, s := range d.Sections {
		if _, ok := want[s.ID]; !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		header := s.Header
		if header == "" {
			header = s.ID
		}
		fmt.Fprintf(&sb, "## %s\n%s", header, strings.TrimSpace(s.Content))
	}
	return sb.String()
}

// Merge returns a synthetic section spanning the named sections, used to
// validate questions whose answer depends on more than one section.
func (d *Document) Merge(ids ...string) Section {
	merged := Section{ID: strings.Join(ids, "+")}
	var headers, bodies []string
	first := true
	for _, id := range ids {
		s, ok := d.Section(id)
		if !ok {
			continue
		}
		headers = append(headers, s.Header)
		bodies = append(bodies, s.Content)
		if first || s.LineRange[0] < merged.LineRange[0] {
			merged.LineRange[0] = s.LineRange[0]
		}
		if s.LineRange[1] > merged.LineRange[1] {
			merged.LineRange[1] = s.LineRange[1]
		}
		first = false
	}
	merged.Header = strings.Join(headers, " / ")
	merged.Content = strings.Join(bodies, "\n")
	return merged
}
