/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package judge scores reader answers against the source text with a model
acting as judge.

Scores are categorical:

  - correct: the answer matches the expected answer.
  - partially_correct: the answer is right but incomplete.
  - incorrect: the answer contradicts the source text.
  - hallucinated: the answer introduces claims the source never makes.
  - unanswerable: the answer declines, or the question cannot be scored.

The judge must quote the passage of the excerpt its verdict rests on. The
quote is checked against the excerpt and the result is recorded as
evidence_verified, so a judge that invents support can be told apart from
one that cites real text.

A reply that does not parse, or carries a score outside the set, gets one
stricter follow-up in the same session. A second failure is recorded as
unanswerable with judge_fallback set. Answers whose collection failed are
never sent to the judge.
*/
package judge
