/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package templates

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"sync"

	"chainguard.dev/docprobe/comprehension/elements"
	"chainguard.dev/docprobe/comprehension/question"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Triggers select the elements a section template applies to.
type Triggers struct {
	ElementTypes     []elements.Type `yaml:"element_types"`
	RequiredKeywords []string        `yaml:"required_keywords"`
}

// Template is one question pattern. Pattern and Answer both contain {slot}
// placeholders.
type Template struct {
	ID              string              `yaml:"id"`
	Category        question.Category   `yaml:"category"`
	Scope           question.Scope      `yaml:"scope"`
	Difficulty      question.Difficulty `yaml:"difficulty"`
	Triggers        Triggers            `yaml:"triggers"`
	Pattern         string              `yaml:"pattern"`
	Answer          string              `yaml:"answer"`
	Confidence      string              `yaml:"confidence"`
	AdversarialType string              `yaml:"adversarial_type"`
}

// Catalog is an immutable, validated set of templates.
type Catalog struct {
	version   string
	templates []Template
	byID      map[string]int
}

type catalogFile struct {
	Version   string     `yaml:"version"`
	Templates []Template `yaml:"templates"`
}

var slotRE = regexp.MustCompile(`\{([a-z_]+)\}`)

// Load parses and validates a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing template catalog: %w", err)
	}
	if err := validate(f); err != nil {
		return nil, fmt.Errorf("invalid template catalog: %w", err)
	}
	c := &Catalog{
		version:   f.Version,
		templates: f.Templates,
		byID:      make(map[string]int, len(f.Templates)),
	}
	for i, t := range f.Templates {
		c.byID[t.ID] = i
	}
	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load(bytes.NewReader(defaultCatalog))
	})
	return defaultCat, defaultErr
}

func validate(f catalogFile) error {
	var errs []error
	if f.Version == "" {
		errs = append(errs, errors.New("missing version"))
	}
	if len(f.Templates) == 0 {
		errs = append(errs, errors.New("no templates"))
	}
	seen := make(map[string]struct{}, len(f.Templates))
	for i, t := range f.Templates {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("template %d: missing id", i))
			continue
		}
		if _, dup := seen[t.ID]; dup {
			errs = append(errs, fmt.Errorf("template %s: duplicate id", t.ID))
		}
		seen[t.ID] = struct{}{}
		if !slices.Contains(question.Categories, t.Category) {
			errs = append(errs, fmt.Errorf("template %s: unknown category %q", t.ID, t.Category))
		}
		if !slices.Contains(question.Difficulties, t.Difficulty) {
			errs = append(errs, fmt.Errorf("template %s: unknown difficulty %q", t.ID, t.Difficulty))
		}
		switch t.Scope {
		case question.SectionScope:
			if len(t.Triggers.ElementTypes) == 0 {
				errs = append(errs, fmt.Errorf("template %s: section template has no trigger element types", t.ID))
			}
			for _, et := range t.Triggers.ElementTypes {
				if !slices.Contains(elements.Types, et) {
					errs = append(errs, fmt.Errorf("template %s: unknown element type %q", t.ID, et))
				}
			}
		case question.DocumentScope:
		default:
			errs = append(errs, fmt.Errorf("template %s: unknown scope %q", t.ID, t.Scope))
		}
		if t.Pattern == "" || t.Answer == "" {
			errs = append(errs, fmt.Errorf("template %s: pattern and answer are required", t.ID))
		}
		if !slotRE.MatchString(t.Answer) {
			errs = append(errs, fmt.Errorf("template %s: answer %q names no slot", t.ID, t.Answer))
		}
	}
	return errors.Join(errs...)
}

// Version returns the catalog version.
func (c *Catalog) Version() string { return c.version }

// Templates returns a copy of every template in catalog order.
func (c *Catalog) Templates() []Template {
	return slices.Clone(c.templates)
}

// Get looks up a template by id.
func (c *Catalog) Get(id string) (Template, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Template{}, false
	}
	return c.templates[i], true
}

// ForElement returns the section templates triggered by an element type, in
// catalog order.
func (c *Catalog) ForElement(t elements.Type) []Template {
	var out []Template
	for _, tmpl := range c.templates {
		if tmpl.Scope == question.SectionScope && slices.Contains(tmpl.Triggers.ElementTypes, t) {
			out = append(out, tmpl)
		}
	}
	return out
}

// Fill substitutes slots into a template. It reports false when the pattern
// or answer references a slot with no meaningful value.
func (t Template) Fill(slots map[string]string) (text, answer string, ok bool) {
	text, ok = fill(t.Pattern, slots)
	if !ok {
		return "", "", false
	}
	answer, ok = fill(t.Answer, slots)
	if !ok {
		return "", "", false
	}
	return text, answer, true
}

func fill(pattern string, slots map[string]string) (string, bool) {
	ok := true
	out := slotRE.ReplaceAllStringFunc(pattern, func(m string) string {
		v := slots[m[1:len(m)-1]]
		if v == "" {
			ok = false
		}
		return v
	})
	return out, ok
}
