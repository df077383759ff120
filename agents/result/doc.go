/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result extracts JSON replies from model output.

Readers and judges are asked to reply with a single JSON object, but models
often wrap it in a markdown fence or surround it with prose. [ExtractJSON]
strips the fence and [Extract] unmarshals the content into a typed value:

	type reply struct {
		Answer     string `json:"answer"`
		Confidence string `json:"confidence"`
	}

	r, err := result.Extract[reply]("Sure:\n```json\n{\"answer\": \"30 seconds\"}\n```")

When the fenced content does not parse, Extract falls back to the span
between the first '{' and the last '}' of the reply. An error is returned
only when neither parses; callers treat that as a parse failure and may
issue a stricter follow-up prompt.
*/
package result
