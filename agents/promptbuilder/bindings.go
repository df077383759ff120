/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// binding renders the replacement for one placeholder. A nil binding is a
// placeholder that has not been bound yet.
type binding func() (string, error)

func literal(s string) binding {
	return func() (string, error) { return s, nil }
}

// Quotes and newlines are left alone; xml.EscapeText would encode every
// line break of a document as &#xA;.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// text escapes runtime text, such as document content or a model answer,
// so it cannot close the tag it is placed in.
func text(s string) binding {
	return func() (string, error) { return textEscaper.Replace(s), nil }
}

// marshaled renders data with marshal. Trailing newlines are dropped so a
// value sits flush against the closing tag that follows it.
func marshaled(format string, data any, marshal func(any) ([]byte, error)) binding {
	return func() (string, error) {
		b, err := marshal(data)
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s: %w", format, err)
		}
		return strings.TrimRight(string(b), "\n"), nil
	}
}

func xmlIndent(v any) ([]byte, error) { return xml.MarshalIndent(v, "", "  ") }
func jsonIndent(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }

// checkUnbound returns an error unless name is a placeholder that has not
// been bound.
func checkUnbound(bindings map[string]binding, name string) error {
	b, ok := bindings[name]
	switch {
	case !ok:
		return fmt.Errorf("binding %q not found in template", name)
	case b != nil:
		return fmt.Errorf("binding %q already bound", name)
	}
	return nil
}
