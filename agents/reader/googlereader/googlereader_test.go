/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googlereader_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chainguard.dev/docprobe/agents/reader"
	"chainguard.dev/docprobe/agents/reader/googlereader"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestQuery(t *testing.T) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	}
	var got struct {
		Contents          []content `json:"contents"`
		SystemInstruction *content  `json:"systemInstruction"`
	}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "{\"answer\": \"30 seconds\"}"}]}}],
  "usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4}
}`))
	}))
	defer srv.Close()

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	require.NoError(t, err)
	b, err := googlereader.New(client)
	require.NoError(t, err)

	r, err := b.Open(context.Background(), "gemini-test", "Document text")
	require.NoError(t, err)
	reply, err := r.Query(context.Background(), []reader.Turn{
		{Role: reader.User, Text: "What is the timeout?"},
		{Role: reader.Assistant, Text: "about thirty"},
		{Role: reader.User, Text: "Reply with JSON only."},
	})
	require.NoError(t, err)
	require.Equal(t, `{"answer": "30 seconds"}`, reply.Text)
	require.Equal(t, reader.Usage{Prompt: 12, Completion: 4}, reply.Usage)

	require.True(t, strings.HasSuffix(path, "models/gemini-test:generateContent"), path)
	require.Len(t, got.Contents, 3)
	require.Equal(t, "model", got.Contents[1].Role)
	require.Equal(t, "Reply with JSON only.", got.Contents[2].Parts[0].Text)
	require.NotNil(t, got.SystemInstruction)
	require.Equal(t, "Document text", got.SystemInstruction.Parts[0].Text)
}

func TestRetryable(t *testing.T) {
	b, err := googlereader.New(&genai.Client{})
	require.NoError(t, err)
	for msg, want := range map[string]bool{
		"Error 429, Message: Resource exhausted": true,
		"RESOURCE_EXHAUSTED":                     true,
		"Error 503: Overloaded":                  true,
		"Error 400: invalid argument":            false,
	} {
		require.Equal(t, want, b.Retryable(errors.New(msg)), msg)
	}
	require.False(t, b.Retryable(nil))
}

func TestOpenRejectsOtherModels(t *testing.T) {
	b, err := googlereader.New(&genai.Client{})
	require.NoError(t, err)
	_, err = b.Open(context.Background(), "claude-x", "")
	require.Error(t, err)

	_, err = googlereader.New(nil)
	require.Error(t, err)
	_, err = googlereader.New(&genai.Client{}, googlereader.WithTemperature(3))
	require.Error(t, err)
}
