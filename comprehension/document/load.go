/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sectionsFile is the layout written by the section extraction step.
type sectionsFile struct {
	Sections        []sectionRecord `json:"sections"`
	DocumentContent string          `json:"document_content"`
	DocumentPath    string          `json:"document_path"`
}

// sectionRecord accepts either line_range or start_line/end_line.
type sectionRecord struct {
	Section
	StartLine *int `json:"start_line,omitempty"`
	EndLine   *int `json:"end_line,omitempty"`
}

func (r sectionRecord) section() Section {
	s := r.Section
	if r.StartLine != nil && s.LineRange == (LineRange{}) {
		s.LineRange[0] = *r.StartLine
		s.LineRange[1] = *r.StartLine
		if r.EndLine != nil {
			s.LineRange[1] = *r.EndLine
		}
	}
	return s
}

// Load reads a document. Markdown files are split into sections; JSON files
// are read as a sections file produced by the extraction step, either a bare
// array of sections or an object with a "sections" key.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return Parse(path, raw)
}

// Parse builds a document from raw bytes, choosing the format from the
// extension of path the way Load does.
func Parse(path string, raw []byte) (*Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseSections(path, raw)
	}
	return FromMarkdown(path, string(raw)), nil
}

// FromMarkdown builds a document from in-memory markdown.
func FromMarkdown(path, content string) *Document {
	return &Document{Path: path, Content: content, Sections: ExtractSections(content)}
}

func parseSections(path string, raw []byte) (*Document, error) {
	doc := &Document{Path: path}

	var records []sectionRecord
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parsing sections %s: %w", path, err)
		}
		doc.Content = string(raw)
	} else {
		var f sectionsFile
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parsing sections %s: %w", path, err)
		}
		records = f.Sections
		doc.Content = f.DocumentContent
		if f.DocumentPath != "" {
			doc.Path = f.DocumentPath
		}
		if doc.Content == "" {
			doc.Content = string(raw)
		}
	}

	doc.Sections = make([]Section, 0, len(records))
	for _, r := range records {
		doc.Sections = append(doc.Sections, r.section())
	}
	return doc, nil
}
