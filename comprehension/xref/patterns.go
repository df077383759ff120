/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package xref

import "regexp"

// PatternVersion identifies the reference pattern tables.
const PatternVersion = "1"

// Explicit patterns capture the referenced section as group 1.
var Explicit = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:see|refer\s+to|as\s+described\s+in)\s+(?:the\s+)?(?:section\s+)?([^"'“”.,;:()\n]+?)\s+(?:section|for)\b`),
	regexp.MustCompile(`(?i)\b(?:see|refer\s+to|as\s+described\s+in)\s+(?:the\s+)?["'“]([^"'“”\n]+)["'”]`),
	regexp.MustCompile(`(?i)\bsection\s+["'“]([^"'“”\n]+)["'”]`),
	regexp.MustCompile(`\b[Ss]ection\s+(\p{Lu}[\p{L}\p{N}_-]*|\d+(?:\.\d+)*)`),
	regexp.MustCompile(`\]\(#([^)\s]+)\)`),
}

// Implicit patterns name no target.
var Implicit = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:above|previously|earlier)\s+(?:mentioned|described|defined)\b`),
	regexp.MustCompile(`(?i)\b(?:following|next|subsequent)\s+section\b`),
	regexp.MustCompile(`(?i)\bas\s+noted\s+(?:above|below)\b`),
}
