/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package xref builds the cross-reference graph of a document.
package xref

import (
	"slices"
	"strings"

	"chainguard.dev/docprobe/comprehension/document"
)

// Kind distinguishes references that name their target from those that
// do not.
type Kind string

const (
	KindExplicit Kind = "explicit"
	KindImplicit Kind = "implicit"
)

// Edge is one reference. Implicit edges have an empty To.
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Kind     Kind   `json:"kind"`
	Evidence string `json:"evidence"`
}

// Unresolved is an explicit reference whose target matched no section.
type Unresolved struct {
	From   string `json:"from"`
	Target string `json:"target"`
}

// Graph is the analysed reference structure.
type Graph struct {
	Edges      []Edge       `json:"edges"`
	Cycles     [][]string   `json:"cycles"`
	Orphans    []string     `json:"orphans"`
	Unresolved []Unresolved `json:"unresolved"`
}

// Targets returns the sections id explicitly references, in order.
func (g Graph) Targets(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Kind == KindExplicit && e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

// Analyze finds references between sections. Every section must carry a
// unique id.
func Analyze(sections []document.Section) (Graph, error) {
	if err := document.ValidateAll(sections); err != nil {
		return Graph{}, err
	}
	index := make(map[string]int, len(sections))
	bySlug := make(map[string]string, 2*len(sections))
	for i, s := range sections {
		index[s.ID] = i
		bySlug[s.ID] = s.ID
	}
	for _, s := range sections {
		if slug := document.Slugify(s.Header); slug != "" {
			if _, taken := bySlug[slug]; !taken {
				bySlug[slug] = s.ID
			}
		}
	}
	resolve := func(target string) (string, bool) {
		target = strings.TrimSpace(target)
		if id, ok := bySlug[target]; ok {
			return id, true
		}
		id, ok := bySlug[document.Slugify(target)]
		return id, ok
	}

	g := Graph{}
	for _, s := range sections {
		seen := make(map[string]struct{})
		for _, m := range explicitMatches(s.Content) {
			to, ok := resolve(m.target)
			if !ok {
				g.Unresolved = append(g.Unresolved, Unresolved{From: s.ID, Target: m.target})
				continue
			}
			if to == s.ID {
				continue
			}
			if _, dup := seen[to]; dup {
				continue
			}
			seen[to] = struct{}{}
			g.Edges = append(g.Edges, Edge{From: s.ID, To: to, Kind: KindExplicit, Evidence: m.evidence})
		}
		for _, re := range Implicit {
			if m := re.FindString(s.Content); m != "" {
				g.Edges = append(g.Edges, Edge{From: s.ID, Kind: KindImplicit, Evidence: m})
				break
			}
		}
	}

	g.Cycles = cycles(sections, index, g.Edges)
	g.Orphans = orphans(sections, g.Edges)
	return g, nil
}

type match struct {
	pos      int
	target   string
	evidence string
}

// explicitMatches returns explicit reference targets in text order. When
// patterns overlap, the first pattern to claim a position wins.
func explicitMatches(text string) []match {
	var out []match
	claimed := make(map[int]struct{})
	for _, re := range Explicit {
		for _, idx := range re.FindAllStringSubmatchIndex(text, -1) {
			if _, dup := claimed[idx[2]]; dup {
				continue
			}
			claimed[idx[2]] = struct{}{}
			out = append(out, match{
				pos:      idx[2],
				target:   text[idx[2]:idx[3]],
				evidence: text[idx[0]:idx[1]],
			})
		}
	}
	slices.SortStableFunc(out, func(a, b match) int { return a.pos - b.pos })
	return out
}

// cycles runs a DFS over explicit edges in section order. Each cycle is
// reported once, starting at its earliest section.
func cycles(sections []document.Section, index map[string]int, edges []Edge) [][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		if e.Kind == KindExplicit {
			adj[e.From] = append(adj[e.From], e.To)
		}
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(sections))
	var stack []string
	seen := make(map[string]struct{})
	var out [][]string

	var visit func(id string)
	visit = func(id string) {
		color[id] = grey
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch color[next] {
			case white:
				visit(next)
			case grey:
				start := slices.Index(stack, next)
				cycle := rotate(stack[start:], index)
				key := strings.Join(cycle, "\x00")
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					out = append(out, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}
	for _, s := range sections {
		if color[s.ID] == white {
			visit(s.ID)
		}
	}
	return out
}

func rotate(cycle []string, index map[string]int) []string {
	first := 0
	for i, id := range cycle {
		if index[id] < index[cycle[first]] {
			first = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[first:]...)
	return append(out, cycle[:first]...)
}

// orphans are sections with no explicit edge in either direction.
func orphans(sections []document.Section, edges []Edge) []string {
	linked := make(map[string]struct{})
	for _, e := range edges {
		if e.Kind != KindExplicit {
			continue
		}
		linked[e.From] = struct{}{}
		linked[e.To] = struct{}{}
	}
	var out []string
	for _, s := range sections {
		if _, ok := linked[s.ID]; !ok {
			out = append(out, s.ID)
		}
	}
	return out
}
