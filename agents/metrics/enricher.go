/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher adds contextual attributes to every measurement. It
// receives the base attributes (model, outcome) and returns the enriched set.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

type documentKey struct{}

// WithDocument records the document hash on ctx for DocumentEnricher.
func WithDocument(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, documentKey{}, hash)
}

// DocumentEnricher tags measurements with the document hash carried by ctx,
// shortened to 12 characters to bound cardinality per run.
func DocumentEnricher(ctx context.Context, base []attribute.KeyValue) []attribute.KeyValue {
	hash, ok := ctx.Value(documentKey{}).(string)
	if !ok || hash == "" {
		return base
	}
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return append(base, attribute.String("document", hash))
}
