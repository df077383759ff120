/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package tokens holds the word tokenizer and stopword list shared by
// question generation, validation and conflict detection.
package tokens

import (
	"regexp"
	"strings"
)

var wordRE = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// stopwords are dropped before any overlap computation.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the and or but nor so yet
		in on at to for of from by with without into onto over under about as
		is are was were be been being am
		it its this that these those there here
		i you he she we they them his her their our your my
		do does did done
		has have had
		can could may might will would shall should must
		not no yes
		all any each every some such
		than then also only just very
		which who whom whose what when where why how
		if else
	`) {
		stopwords[w] = struct{}{}
	}
}

// Words returns the lowercased word tokens of s in order.
func Words(s string) []string {
	return wordRE.FindAllString(strings.ToLower(s), -1)
}

// IsStopword reports whether w, lowercased, is a stopword.
func IsStopword(w string) bool {
	_, ok := stopwords[strings.ToLower(w)]
	return ok
}

// Meaningful returns the set of non-stopword tokens of s.
func Meaningful(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Words(s) {
		if _, stop := stopwords[w]; !stop {
			set[w] = struct{}{}
		}
	}
	return set
}

// HasMeaning reports whether s contains at least one non-stopword token.
func HasMeaning(s string) bool {
	for _, w := range Words(s) {
		if _, stop := stopwords[w]; !stop {
			return true
		}
	}
	return false
}

// Overlap returns |a ∩ b| / |a|, or 0 when a is empty.
func Overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return float64(n) / float64(len(a))
}

// Shared returns the tokens present in both sets, in no particular order.
func Shared(a, b map[string]struct{}) []string {
	var out []string
	for w := range a {
		if _, ok := b[w]; ok {
			out = append(out, w)
		}
	}
	return out
}
