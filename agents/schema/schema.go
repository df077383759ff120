/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package schema turns reply types into the JSON schemas quoted in prompts,
// so a model is told the exact shape of the JSON it must return.
package schema

import "github.com/invopop/jsonschema"

// Nested types are inlined; a prompt has nowhere to resolve a $ref.
var reflector = jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	AllowAdditionalProperties:  true,
	DoNotReference:             true,
}

// Reflect returns the schema of v. Only fields tagged
// `jsonschema:"required"` are required.
func Reflect(v any) *jsonschema.Schema {
	return reflector.Reflect(v)
}

// ForPrompt reflects T without the $schema URL.
func ForPrompt[T any]() *jsonschema.Schema {
	s := Reflect(new(T))
	s.Version = ""
	return s
}
