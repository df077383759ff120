/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when a reply contains nothing that parses as JSON.
var ErrNoJSON = errors.New("no JSON object in response")

// ExtractJSON returns the JSON content of a model reply. It prefers the
// first fenced ```json block, then a bare fenced block, then the trimmed
// reply itself.
func ExtractJSON(responseText string) string {
	lines := strings.Split(strings.ReplaceAll(responseText, "\r\n", "\n"), "\n")
	var buf bytes.Buffer
	inBlock, found := false, false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inBlock && (trimmed == "```json" || (!found && trimmed == "```")) {
			inBlock, found = true, true
			continue
		}
		if inBlock && trimmed == "```" {
			break
		}
		if inBlock {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(line)
		}
	}
	if found {
		return strings.TrimSpace(buf.String())
	}

	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	return strings.TrimSpace(responseText)
}

// objectSpan returns the text from the first '{' to the last '}', which
// recovers an object a model surrounded with prose.
func objectSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// Extract parses the JSON content of a reply into T. When the extracted
// content is not valid JSON, the outermost object span is tried before
// giving up.
func Extract[T any](responseText string) (T, error) {
	var result T

	content := ExtractJSON(responseText)
	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}
	span, ok := objectSpan(responseText)
	if !ok {
		if content == "" {
			return result, ErrNoJSON
		}
		return result, err
	}
	var retry T
	if json.Unmarshal([]byte(span), &retry) != nil {
		return result, err
	}
	return retry, nil
}
