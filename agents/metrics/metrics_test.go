/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics_test

import (
	"context"
	"testing"
	"time"

	"chainguard.dev/docprobe/agents/metrics"
	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
)

func TestDocumentEnricher(t *testing.T) {
	base := []attribute.KeyValue{attribute.String("model", "m")}

	if got := metrics.DocumentEnricher(context.Background(), base); len(got) != 1 {
		t.Errorf("DocumentEnricher(no document): got = %v", got)
	}

	ctx := metrics.WithDocument(context.Background(), "0123456789abcdef")
	got := metrics.DocumentEnricher(ctx, base)
	want := []attribute.KeyValue{attribute.String("model", "m"), attribute.String("document", "0123456789ab")}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b attribute.KeyValue) bool { return a == b })); diff != "" {
		t.Errorf("DocumentEnricher() mismatch (-want +got):\n%s", diff)
	}
}

func TestGenAIRecordsWithoutProvider(t *testing.T) {
	m := metrics.NewGenAI("docprobe.test")
	m.SetAttributeEnricher(metrics.DocumentEnricher)
	ctx := metrics.WithDocument(context.Background(), "abc")
	// The global provider is a no-op; recording must not panic.
	m.RecordTokens(ctx, "m", 10, 5)
	m.RecordCall(ctx, "m", metrics.OutcomeOK, time.Second)
}
