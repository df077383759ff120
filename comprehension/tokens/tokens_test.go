/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tokens

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMeaningful(t *testing.T) {
	got := Meaningful("What is the required Timeout value?")
	want := map[string]struct{}{"required": {}, "timeout": {}, "value": {}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Meaningful() mismatch (-want +got):\n%s", diff)
	}
	if HasMeaning("the and of") {
		t.Error("HasMeaning(stopwords only): got = true, wanted = false")
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"disjoint", "30 seconds", "What is the required timeout value?", 0},
		{"full", "timeout value", "What is the timeout value?", 1},
		{"half", "retry count", "How many retries does the retry loop use?", 0.5},
		{"empty answer", "the", "anything", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlap(Meaningful(tt.a), Meaningful(tt.b)); got != tt.want {
				t.Errorf("Overlap(): got = %v, wanted = %v", got, tt.want)
			}
		})
	}
}

func TestShared(t *testing.T) {
	got := Shared(Meaningful("All fields must be validated"), Meaningful("Optional fields may be skipped"))
	sort.Strings(got)
	if diff := cmp.Diff([]string{"fields"}, got); diff != "" {
		t.Errorf("Shared() mismatch (-want +got):\n%s", diff)
	}
}
