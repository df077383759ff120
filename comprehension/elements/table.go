/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package elements

import "regexp"

// TableVersion identifies the pattern table. Bump it whenever a pattern
// changes so coverage numbers from different runs are not compared blindly.
const TableVersion = "1"

// Pattern maps one lexical trigger to an element type. Sentence patterns
// match within a sentence and locate the trigger; line patterns match a whole
// line and may capture "step" and "body" groups.
type Pattern struct {
	Type Type
	Expr *regexp.Regexp
	Line bool
}

// Table is the default ordered pattern table. Triggers are deliberately
// narrow: paraphrases such as "it is necessary to" are not detected.
var Table = []Pattern{
	{Type: Requirement, Expr: regexp.MustCompile(`(?i)\b(?:must|shall|required)\b`)},
	{Type: Constraint, Expr: regexp.MustCompile(`(?i)\b(?:maximum|minimum|max|min|limit|at\s+least|at\s+most|no\s+more\s+than)\b`)},
	{Type: Conditional, Expr: regexp.MustCompile(`(?i)\b(?:if|when|unless)\b`)},
	{Type: Output, Expr: regexp.MustCompile(`(?i)\b(?:outputs?|produces?|generates?|returns?)\b`)},
	{Type: Input, Expr: regexp.MustCompile(`(?i)\b(?:inputs?|accepts?|takes?|receives?)\b`)},
	{Type: Default, Expr: regexp.MustCompile(`(?i)\b(?:defaults?\s+to|default\s+value(?:\s+(?:is|of))?|is\s+set\s+to)\b`)},
	{Type: Exception, Expr: regexp.MustCompile(`(?i)\b(?:except|unless|but\s+not|errors?|exceptions?|fails?|invalid)\b`)},
	{Type: Step, Line: true, Expr: regexp.MustCompile(`(?i)^step\s+(?P<step>\d+)[:.)]\s+(?P<body>.+)$`)},
	{Type: Step, Line: true, Expr: regexp.MustCompile(`^(?P<step>\d+)[.)]\s+(?P<body>.+)$`)},
	{Type: Step, Line: true, Expr: regexp.MustCompile(`^First,?\s+(?P<body>.+)$`)},
}
