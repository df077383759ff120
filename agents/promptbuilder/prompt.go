/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// stringLiteral only accepts untyped string constants from callers outside
// this package.
type stringLiteral string

// Prompt is an immutable template with {{name}} placeholders. Every Bind
// method returns a new Prompt.
type Prompt struct {
	template string
	bindings map[string]binding
}

// NewPrompt parses a template literal and collects its placeholders.
func NewPrompt(template stringLiteral) (*Prompt, error) {
	bindings := make(map[string]binding)
	tmpl, err := walkTemplate(string(template), func(name string) (string, error) {
		bindings[name] = nil
		return "{{" + name + "}}", nil
	})
	if err != nil {
		return nil, err
	}
	return &Prompt{template: tmpl, bindings: bindings}, nil
}

// Placeholders returns the placeholder names in sorted order.
func (p *Prompt) Placeholders() []string {
	return slices.Sorted(maps.Keys(p.bindings))
}

// Unbound returns the names still waiting for a value, sorted.
func (p *Prompt) Unbound() []string {
	var out []string
	for name, b := range p.bindings {
		if b == nil {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func (p *Prompt) with(name string, b binding) (*Prompt, error) {
	if err := checkUnbound(p.bindings, name); err != nil {
		return nil, err
	}
	next := &Prompt{template: p.template, bindings: maps.Clone(p.bindings)}
	next.bindings[name] = b
	return next, nil
}

// BindStringLiteral binds a developer-written string.
func (p *Prompt) BindStringLiteral(name string, value stringLiteral) (*Prompt, error) {
	return p.with(name, literal(string(value)))
}

// BindText binds runtime text with XML escaping. Use it for anything that
// came from a document or a model.
func (p *Prompt) BindText(name, value string) (*Prompt, error) {
	return p.with(name, text(value))
}

// BindXML binds data marshaled with encoding/xml.
func (p *Prompt) BindXML(name string, data any) (*Prompt, error) {
	return p.with(name, marshaled("XML", data, xmlIndent))
}

// BindJSON binds data marshaled as indented JSON.
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	return p.with(name, marshaled("JSON", data, jsonIndent))
}

// BindYAML binds data marshaled as YAML.
func (p *Prompt) BindYAML(name string, data any) (*Prompt, error) {
	return p.with(name, marshaled("YAML", data, yaml.Marshal))
}

// Build renders the prompt. It fails if any placeholder is unbound.
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bindings))
	for name, b := range p.bindings {
		if b == nil {
			return "", fmt.Errorf("unbound placeholder: %s", name)
		}
		val, err := b()
		if err != nil {
			return "", err
		}
		values[name] = val
	}
	// Values are substituted in a single pass, so a value containing
	// {{x}} is never expanded.
	return walkTemplate(p.template, func(name string) (string, error) {
		if val, exists := values[name]; exists {
			return val, nil
		}
		return "", fmt.Errorf("internal error: binding %q not found in values map", name)
	})
}
