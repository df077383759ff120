/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package reader is the capability interface every model integration
// implements, plus the sessions answer collection and judging run through.
//
// A [Backend] opens a [Reader] for one model with a system prompt. A
// [Pool] caches one [Session] per (model, document hash), opening it lazily
// on first use. A Session serializes its queries and routes every call
// through [retry.Do], which is the only place model calls are retried.
package reader
