/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	"chainguard.dev/docprobe/agents/schema"
)

func TestReflect(t *testing.T) {
	type nested struct {
		Value string `json:"value" jsonschema:"description=Nested value"`
	}
	type sample struct {
		Name   string  `json:"name" jsonschema:"description=Name,required"`
		Count  int     `json:"count,omitempty"`
		Nested *nested `json:"nested,omitempty"`
	}

	s := schema.Reflect(&sample{})
	if s == nil {
		t.Fatal("expected schema")
	}

	if len(s.Required) != 1 || s.Required[0] != "name" {
		t.Fatalf("unexpected required: %#v", s.Required)
	}

	props := s.Properties
	if props == nil {
		t.Fatal("expected properties")
	}

	name, ok := props.Get("name")
	if !ok {
		t.Fatal("missing name property")
	}
	if name.Description != "Name" {
		t.Fatalf("unexpected description: %q", name.Description)
	}

	nestedSchema, ok := props.Get("nested")
	if !ok {
		t.Fatal("missing nested property")
	}
	valueSchema, ok := nestedSchema.Properties.Get("value")
	if !ok {
		t.Fatal("missing nested value property")
	}
	if valueSchema.Description != "Nested value" {
		t.Fatalf("unexpected nested description: %q", valueSchema.Description)
	}
}

type verdict struct {
	Score     string `json:"score" jsonschema:"required,enum=correct,enum=incorrect"`
	Reasoning string `json:"reasoning" jsonschema:"required"`
	Evidence  string `json:"evidence,omitempty"`
}

func TestForPrompt(t *testing.T) {
	b, err := json.MarshalIndent(schema.ForPrompt[verdict](), "", "  ")
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(b)
	if strings.Contains(out, "$schema") {
		t.Errorf("ForPrompt() kept the $schema url:\n%s", out)
	}
	if strings.Contains(out, "$ref") {
		t.Errorf("ForPrompt() references instead of inlining:\n%s", out)
	}

	var decoded struct {
		Type       string                     `json:"type"`
		Required   []string                   `json:"required"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if decoded.Type != "object" {
		t.Errorf("type: got = %q, wanted = object", decoded.Type)
	}
	if len(decoded.Required) != 2 {
		t.Errorf("required: got = %v, wanted [score reasoning]", decoded.Required)
	}
	if !strings.Contains(string(decoded.Properties["score"]), `"incorrect"`) {
		t.Errorf("score enum missing: %s", decoded.Properties["score"])
	}
}
