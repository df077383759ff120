/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import "chainguard.dev/docprobe/agents/promptbuilder"

// SetPrompts replaces the templates e renders.
func SetPrompts(e *Evaluator, prompt, strict *promptbuilder.Prompt) {
	if prompt != nil {
		e.prompt = prompt
	}
	if strict != nil {
		e.strict = strict
	}
}
