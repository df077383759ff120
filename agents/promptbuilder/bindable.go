/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

// Bindable is implemented by request types that carry their own prompt
// data. Readers and the judge bind a request into a shared template so one
// template serves every question.
type Bindable interface {
	// Bind returns a new prompt with the receiver's values bound.
	Bind(prompt *Prompt) (*Prompt, error)
}

// Render binds b into p and builds the result.
func Render(p *Prompt, b Bindable) (string, error) {
	bound, err := b.Bind(p)
	if err != nil {
		return "", err
	}
	return bound.Build()
}
