/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder builds reader and judge prompts from templates with
{{name}} placeholders.

Templates must be string literals. Runtime values are bound through
encoders: BindText escapes document and answer text for XML element
content, BindJSON embeds reply schemas, and BindYAML renders structured
context such as target section lists. Substitution is a single pass, so a
bound value containing a placeholder is never expanded.

	p := promptbuilder.MustNewPrompt(`<question>{{question}}</question>`)
	p, err := p.BindText("question", q.Text)
	if err != nil {
		return err
	}
	prompt, err := p.Build()

Request types implement [Bindable] so a shared template can be rendered
per request with [Render].
*/
package promptbuilder
