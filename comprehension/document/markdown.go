/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	headerRE    = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	fenceRE     = regexp.MustCompile("^(```|~~~)")
	nonWordRE   = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separatorRE = regexp.MustCompile(`[-\s]+`)
)

// minSectionContent is the shortest trimmed body kept as a section.
const minSectionContent = 10

// maxSlugRunes caps section ids derived from headers.
const maxSlugRunes = 50

// Slugify converts a header to a section id: lowercase, punctuation removed,
// whitespace and hyphen runs collapsed to "-", capped at 50 runes.
func Slugify(text string) string {
	slug := nonWordRE.ReplaceAllString(strings.ToLower(text), "")
	slug = strings.Trim(separatorRE.ReplaceAllString(slug, "-"), "-")
	if utf8.RuneCountInString(slug) > maxSlugRunes {
		slug = strings.TrimRight(string([]rune(slug)[:maxSlugRunes]), "-")
	}
	return slug
}

// ExtractSections splits markdown into sections at ATX headers. Headers
// inside fenced code blocks do not start sections. Text before the first
// header becomes a "preamble" section. Sections with less than ten
// characters of body are dropped. Ids are slugified headers made unique with
// a numeric suffix.
func ExtractSections(content string) []Section {
	lines := strings.Split(content, "\n")

	var (
		sections []Section
		seen     = map[string]int{}
		inFence  bool
		header   string
		start    int
		body     []string
	)

	flush := func() {
		text := strings.TrimRight(strings.Join(body, "\n"), "\n \t")
		if len(strings.TrimSpace(text)) < minSectionContent {
			return
		}
		id := Slugify(header)
		switch {
		case header == "" && len(sections) == 0:
			id = "preamble"
		case id == "":
			id = fmt.Sprintf("section-%d", len(sections)+1)
		}
		if n := seen[id]; n > 0 {
			base := id
			for seen[id] > 0 {
				n++
				id = fmt.Sprintf("%s-%d", base, n)
			}
			seen[base] = n
		}
		seen[id] = 1
		sections = append(sections, Section{
			ID:        id,
			Header:    header,
			Content:   text,
			LineRange: LineRange{start, start + strings.Count(text, "\n") + 1},
		})
	}

	for i, line := range lines {
		if fenceRE.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
		}
		if !inFence {
			if m := headerRE.FindStringSubmatch(line); m != nil {
				flush()
				header = strings.TrimSpace(m[2])
				start = i + 1
				body = nil
				continue
			}
		}
		body = append(body, line)
	}
	flush()

	return sections
}
