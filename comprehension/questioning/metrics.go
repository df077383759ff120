/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package questioning

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discardCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docprobe_validation_discards_total",
			Help: "Candidate questions discarded by validation, per failed rule",
		},
		[]string{"rule"},
	)

	questionCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docprobe_questions_generated_total",
			Help: "Questions accepted into a question set",
		},
		[]string{"scope"},
	)

	answerCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docprobe_answers_total",
			Help: "Answers collected, by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	issueCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docprobe_issues_total",
			Help: "Issues detected, by type and severity",
		},
		[]string{"type", "severity"},
	)

	agreementGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docprobe_agreement_score",
			Help: "Fraction of questions with a unanimous consensus in the last evaluation",
		},
	)
)
