/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package artifact reads and writes the JSON artifacts of a run in a local
// directory or under a gs://bucket/prefix location.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"

	"chainguard.dev/docprobe/comprehension/question"
)

// ErrNotFound is returned by Get for a missing artifact.
var ErrNotFound = errors.New("artifact not found")

// Store holds artifacts by file name.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// Location returns where name is stored, for logs.
	Location(name string) string
	Close() error
}

// Open returns the store for location: a gs://bucket[/prefix] URL or a
// local directory. The client options only apply to GCS.
func Open(ctx context.Context, location string, opts ...option.ClientOption) (Store, error) {
	if rest, ok := strings.CutPrefix(location, "gs://"); ok {
		bucket, prefix, err := ParseGCS(rest)
		if err != nil {
			return nil, err
		}
		return newGCS(ctx, bucket, prefix, opts...)
	}
	if location == "" {
		location = "."
	}
	return NewDir(location), nil
}

// ParseGCS splits "bucket/some/prefix" into its bucket and prefix. The
// prefix has no leading or trailing slash.
func ParseGCS(path string) (bucket, prefix string, err error) {
	bucket, prefix, _ = strings.Cut(path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("gs://%s: missing bucket", path)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// Save encodes v as an artifact and stores it under name.
func Save(ctx context.Context, s Store, name string, v any) error {
	var buf bytes.Buffer
	if err := question.Encode(&buf, v); err != nil {
		return err
	}
	if err := s.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", s.Location(name), err)
	}
	return nil
}

// Load reads the artifact stored under name.
func Load[T any](ctx context.Context, s Store, name string) (*T, error) {
	data, err := s.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Location(name), err)
	}
	v, err := question.Decode[T](bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Location(name), err)
	}
	return v, nil
}
