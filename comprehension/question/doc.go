/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package question defines the records that flow through a comprehension run
// and the three JSON artifacts they are persisted in:
//
//   - questions.json ([QuestionSet]), written by generation
//   - answers.json ([AnswerSet]), written by collection
//   - question_results.json ([ResultSet]), written by evaluation
//
// Artifacts are encoded with [Encode], which writes UTF-8 JSON with a two
// space indent and no HTML escaping, so that loading and re-saving an
// artifact reproduces it byte for byte.
package question
