/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package questioning orchestrates a comprehension run over one document.
//
// Generate turns sections into validated questions. It takes the first
// candidate of every section, then adds candidates until the element
// coverage target is met, and appends questions spanning several sections
// that come from detected conflicts and explicit cross references. Test
// collects answers from every reader model and Evaluate grades them with a
// judge and computes per-question consensus. Run chains the three.
//
// Issues on document-level questions are counted in their own bucket and
// are never compared against a section-level baseline.
package questioning
