/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package collector_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"chainguard.dev/docprobe/agents/reader"
	"chainguard.dev/docprobe/agents/reader/readertest"
	"chainguard.dev/docprobe/agents/reader/retry"
	"chainguard.dev/docprobe/comprehension/collector"
	"chainguard.dev/docprobe/comprehension/document"
	"chainguard.dev/docprobe/comprehension/question"
	"github.com/stretchr/testify/require"
)

var doc = &document.Document{
	Path:    "guide.md",
	Content: "# Config\nTimeout must be 30 seconds.\n# Usage\nSee the Config section.",
	Sections: []document.Section{
		{ID: "config", Header: "Config", Content: "Timeout must be 30 seconds.", LineRange: document.LineRange{1, 2}},
		{ID: "usage", Header: "Usage", Content: "See the Config section.", LineRange: document.LineRange{3, 4}},
	},
}

var questions = []question.Question{{
	ID:             "q_001",
	Text:           "What is the required timeout value?",
	Scope:          question.SectionScope,
	TargetSections: []string{"config"},
}, {
	ID:             "q_002",
	Text:           "What must be completed before Usage can begin?",
	Scope:          question.DocumentScope,
	TargetSections: []string{"usage", "config"},
}}

func newCollector(t *testing.T, resolver reader.Resolver) *collector.Collector {
	t.Helper()
	pool, err := reader.NewPool(resolver, collector.SystemPrompt,
		reader.WithRetry(retry.Config{Timeout: 50 * time.Millisecond, MaxRetries: 1, Backoff: time.Millisecond}))
	require.NoError(t, err)
	c, err := collector.New(pool, collector.WithWorkers(3))
	require.NoError(t, err)
	return c
}

const good = `{"answer": "30 seconds", "confidence": "High", "reasoning": "Config section"}`

func TestCollectWithTimingOutModel(t *testing.T) {
	fast := &readertest.Backend{Answer: readertest.Static(good)}
	slow := &readertest.Backend{Answer: readertest.Hang()}
	c := newCollector(t, readertest.Resolver{Backends: map[string]*readertest.Backend{"fast": fast, "slow": slow}})

	col, err := c.Collect(context.Background(), doc, questions, []string{"fast", "slow"})
	require.NoError(t, err)

	require.Len(t, col.Answers, 2)
	for _, q := range questions {
		byModel := col.Answers[q.ID]
		require.Len(t, byModel, 2, q.ID)

		ok := byModel["fast"]
		require.False(t, ok.Failed)
		require.Equal(t, "30 seconds", ok.Text)
		require.Equal(t, "high", ok.ConfidenceStated)
		require.Equal(t, 1, ok.Attempts)

		bad := byModel["slow"]
		require.True(t, bad.Failed)
		require.Equal(t, 2, bad.Attempts)
		require.Contains(t, bad.Error, "deadline exceeded")
		require.Empty(t, bad.Text)
	}

	require.Equal(t, 4, col.Stats.TotalAnswers)
	require.Equal(t, 2, col.Stats.FailedAnswers)
	require.Equal(t, 0.5, col.Stats.CollectionFailureRate)
	require.Equal(t, question.ModelStats{Answered: 0, Failed: 2}, col.Stats.ByModel["slow"])
	require.Equal(t, 2, col.Stats.ByModel["fast"].Answered)

	// The partial collection still serializes.
	set := question.AnswerSet{
		SessionID:    "s",
		ModelsTested: []string{"fast", "slow"},
		Statistics:   col.Stats,
		Answers:      col.Entries(questions),
	}
	var buf bytes.Buffer
	require.NoError(t, question.Encode(&buf, set))
	require.Contains(t, buf.String(), `"failed": true`)
}

func TestCollectPrompts(t *testing.T) {
	var mu sync.Mutex
	prompts := map[string]string{}
	var system string
	b := &readertest.Backend{Answer: func(_ context.Context, _, sys string, turns []reader.Turn) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		system = sys
		last := readertest.Last(turns)
		switch {
		case strings.Contains(last, "timeout value"):
			prompts["q_001"] = last
		case strings.Contains(last, "Usage can begin"):
			prompts["q_002"] = last
		}
		return good, nil
	}}
	c := newCollector(t, readertest.Resolver{Default: b})
	_, err := c.Collect(context.Background(), doc, questions, []string{"m"})
	require.NoError(t, err)

	require.Contains(t, system, "<document>\n# Config\nTimeout must be 30 seconds.")
	require.Equal(t, 1, b.Opens())

	require.Contains(t, prompts["q_001"], "<question>What is the required timeout value?</question>")
	require.Contains(t, prompts["q_001"], `"confidence"`)
	require.NotContains(t, prompts["q_001"], "<excerpts>")

	require.Contains(t, prompts["q_002"], `<section id="usage" header="Usage"></section>`)
	require.Contains(t, prompts["q_002"], "<excerpts>\n## Config\nTimeout must be 30 seconds.\n\n## Usage\nSee the Config section.\n</excerpts>")
}

func TestCollectStrictFollowUp(t *testing.T) {
	b := &readertest.Backend{Answer: func(_ context.Context, _, _ string, turns []reader.Turn) (string, error) {
		if len(turns) == 1 {
			return "The timeout is 30 seconds.", nil
		}
		return good, nil
	}}
	c := newCollector(t, readertest.Resolver{Default: b})
	col, err := c.Collect(context.Background(), doc, questions[:1], []string{"m"})
	require.NoError(t, err)

	a := col.Answers["q_001"]["m"]
	require.False(t, a.Failed)
	require.Equal(t, 2, a.Attempts)
	require.Equal(t, good, a.RawResponse)
}

func TestCollectUnparsable(t *testing.T) {
	b := &readertest.Backend{Answer: readertest.Static("thirty seconds, probably")}
	c := newCollector(t, readertest.Resolver{Default: b})
	col, err := c.Collect(context.Background(), doc, questions[:1], []string{"m"})
	require.NoError(t, err)

	a := col.Answers["q_001"]["m"]
	require.True(t, a.Failed)
	require.Contains(t, a.Error, collector.ErrUnparsable.Error())
	require.Equal(t, "thirty seconds, probably", a.RawResponse)
	require.Equal(t, 2, b.Queries())
}

func TestCollectNoReachableModel(t *testing.T) {
	b := &readertest.Backend{OpenErr: errors.New("connection refused")}
	c := newCollector(t, readertest.Resolver{Default: b})
	col, err := c.Collect(context.Background(), doc, questions, []string{"a", "b"})
	require.ErrorIs(t, err, reader.ErrNoReachableModel)
	require.Equal(t, 4, col.Stats.FailedAnswers)
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &readertest.Backend{Answer: readertest.Static(good)}
	c := newCollector(t, readertest.Resolver{Default: b})

	col, err := c.Collect(ctx, doc, questions, []string{"m"})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, b.Queries())
	require.Len(t, col.Answers, 2)
	require.True(t, col.Answers["q_002"]["m"].Failed)
}

func TestCollectNoModels(t *testing.T) {
	c := newCollector(t, readertest.Resolver{})
	_, err := c.Collect(context.Background(), doc, questions, nil)
	require.Error(t, err)
}
