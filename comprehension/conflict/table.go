/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package conflict

import "regexp"

// TableVersion identifies the contradiction table.
const TableVersion = "1"

// Pair is one positive/negative marker pair. A sentence states the positive
// form when Positive matches and no negation occurs in it.
type Pair struct {
	Name     string
	Positive *regexp.Regexp
	Negative *regexp.Regexp
}

// Table is the ordered contradiction table.
var Table = []Pair{{
	Name:     "must/must not",
	Positive: regexp.MustCompile(`(?i)\bmust\b`),
	Negative: regexp.MustCompile(`(?i)\bmust\s+(?:not|never)\b|\bmustn['’]t\b`),
}, {
	Name:     "required/optional",
	Positive: regexp.MustCompile(`(?i)\b(?:required|must|mandatory)\b`),
	Negative: regexp.MustCompile(`(?i)\b(?:optional|not\s+required)\b`),
}, {
	Name:     "always/never",
	Positive: regexp.MustCompile(`(?i)\balways\b`),
	Negative: regexp.MustCompile(`(?i)\bnever\b`),
}, {
	Name:     "should/should not",
	Positive: regexp.MustCompile(`(?i)\bshould\b`),
	Negative: regexp.MustCompile(`(?i)\bshould\s+(?:not|never)\b|\bshouldn['’]t\b`),
}}

var negationRE = regexp.MustCompile(`(?i)\b(?:not|never|no)\b|n['’]t\b`)

// assignmentRE matches "key is value", "key = value" and "key: value".
var assignmentRE = regexp.MustCompile(`(\w+)(?:\s+is\s+|\s*[=:]\s*)(\S+)`)

// markers are excluded from statement subjects.
var markers = map[string]struct{}{
	"must": {}, "mustn": {}, "required": {}, "mandatory": {}, "optional": {},
	"always": {}, "never": {}, "should": {}, "shouldn": {}, "not": {}, "t": {},
}
